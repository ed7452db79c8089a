package weex

import (
	"sort"

	"github.com/tidwall/gjson"

	"agent-team-trader/internal/types"
)

// The exchange sends most numbers as strings and is not consistent about
// wrapping single objects in arrays, so decoding goes through gjson rather than
// fixed structs.

func first(r gjson.Result) gjson.Result {
	if r.IsArray() {
		return r.Get("0")
	}
	return r
}

func num(r gjson.Result, keys ...string) float64 {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() {
			return v.Float()
		}
	}
	return 0
}

func str(r gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func decodeTicker(symbol string, r gjson.Result) types.Ticker {
	r = first(r)
	t := types.Ticker{
		Symbol:             str(r, "symbol"),
		Last:               num(r, "last", "lastPr", "close"),
		High24h:            num(r, "high_24h", "high24h"),
		Low24h:             num(r, "low_24h", "low24h"),
		Volume24h:          num(r, "volume_24h", "base_volume", "baseVolume"),
		PriceChangePercent: num(r, "priceChangePercent", "price_change_percent"),
	}
	if t.Symbol == "" {
		t.Symbol = symbol
	}
	return t
}

func decodeLevels(r gjson.Result) []types.Level {
	out := make([]types.Level, 0, len(r.Array()))
	r.ForEach(func(_, lv gjson.Result) bool {
		if lv.IsArray() {
			out = append(out, types.Level{Price: lv.Get("0").Float(), Size: lv.Get("1").Float()})
		} else {
			out = append(out, types.Level{Price: num(lv, "price"), Size: num(lv, "size", "amount")})
		}
		return true
	})
	return out
}

func decodeDepth(r gjson.Result) types.Depth {
	r = first(r)
	return types.Depth{Bids: decodeLevels(r.Get("bids")), Asks: decodeLevels(r.Get("asks"))}
}

// decodeCandles reads [time, open, high, low, close, volume] rows and returns
// them oldest first.
func decodeCandles(r gjson.Result) []types.Candle {
	out := make([]types.Candle, 0, len(r.Array()))
	r.ForEach(func(_, row gjson.Result) bool {
		if !row.IsArray() || len(row.Array()) < 5 {
			return true
		}
		out = append(out, types.Candle{
			Ts:    row.Get("0").Int(),
			Open:  row.Get("1").Float(),
			High:  row.Get("2").Float(),
			Low:   row.Get("3").Float(),
			Close: row.Get("4").Float(),
			Vol:   row.Get("5").Float(),
		})
		return true
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ts < out[j].Ts })
	return out
}

func decodeFunding(symbol string, r gjson.Result) types.FundingRate {
	r = first(r)
	f := types.FundingRate{
		Symbol:          str(r, "symbol"),
		Rate:            num(r, "fundingRate", "funding_rate"),
		NextFundingTime: int64(num(r, "fundingTime", "nextFundingTime", "timestamp")),
	}
	if f.Symbol == "" {
		f.Symbol = symbol
	}
	return f
}

func decodeAssets(r gjson.Result) []types.Asset {
	var out []types.Asset
	r.ForEach(func(_, a gjson.Result) bool {
		out = append(out, types.Asset{
			Coin:      str(a, "coinName", "coin"),
			Available: num(a, "available"),
			Equity:    num(a, "equity"),
		})
		return true
	})
	return out
}

func decodePositions(r gjson.Result) []types.Position {
	var out []types.Position
	r.ForEach(func(_, p gjson.Result) bool {
		out = append(out, types.Position{
			Symbol:       str(p, "symbol"),
			Side:         str(p, "holdSide", "side"),
			Size:         num(p, "total", "size"),
			AvgOpenPrice: num(p, "averageOpenPrice", "openPrice"),
			UnrealizedPL: num(p, "unrealizedPL", "unrealizePnl"),
		})
		return true
	})
	return out
}
