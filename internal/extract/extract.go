// Package extract turns free-form analyzer text into a validated stage signal.
// Every input yields a usable result; malformed text falls back to the stage default.
package extract

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"agent-team-trader/internal/types"
)

// Profile is the vocabulary and fallback for one analysis stage.
type Profile struct {
	Name              string
	Vocabulary        map[string]types.SignalKind
	DefaultSignal     types.SignalKind
	DefaultConfidence float64
}

var (
	MarketProfile = Profile{
		Name: "market",
		Vocabulary: map[string]types.SignalKind{
			"buy":     types.SignalBuy,
			"sell":    types.SignalSell,
			"neutral": types.SignalNeutral,
			"hold":    types.SignalHold,
		},
		DefaultSignal:     types.SignalNeutral,
		DefaultConfidence: 0.5,
	}
	SentimentProfile = Profile{
		Name: "sentiment",
		Vocabulary: map[string]types.SignalKind{
			"bullish": types.SignalBullish,
			"bearish": types.SignalBearish,
			"neutral": types.SignalNeutral,
		},
		DefaultSignal:     types.SignalNeutral,
		DefaultConfidence: 0.5,
	}
	RiskProfile = Profile{
		Name: "risk",
		Vocabulary: map[string]types.SignalKind{
			"approve": types.SignalApprove,
			"reduce":  types.SignalReduce,
			"reject":  types.SignalReject,
		},
		DefaultSignal:     types.SignalApprove,
		DefaultConfidence: 0.7,
	}
)

// Result is the extracted signal. RecommendedSize is only meaningful for the risk profile.
type Result struct {
	Signal          types.SignalKind
	Confidence      float64
	Rationale       string
	RecommendedSize decimal.Decimal
	Fallback        bool
}

// Market extracts a technical-analysis signal.
func Market(raw string) Result {
	return extract(MarketProfile, raw, decimal.Zero)
}

// Sentiment extracts a sentiment signal.
func Sentiment(raw string) Result {
	return extract(SentimentProfile, raw, decimal.Zero)
}

// Risk extracts a risk verdict. The size is clamped to [0, maxSize] and
// defaults to maxSize when absent.
func Risk(raw string, maxSize decimal.Decimal) Result {
	return extract(RiskProfile, raw, maxSize)
}

func extract(p Profile, raw string, maxSize decimal.Decimal) Result {
	fallback := Result{
		Signal:          p.DefaultSignal,
		Confidence:      p.DefaultConfidence,
		Rationale:       raw,
		RecommendedSize: maxSize,
		Fallback:        true,
	}

	obj, ok := jsonObject(raw)
	if !ok {
		return fallback
	}
	sig := gjson.Get(obj, "signal")
	if sig.Type != gjson.String {
		return fallback
	}

	res := Result{
		Signal:          p.lookup(sig.Str),
		Confidence:      confidence(gjson.Get(obj, "confidence"), p.DefaultConfidence),
		Rationale:       rationale(obj, raw),
		RecommendedSize: maxSize,
	}
	if p.Name == RiskProfile.Name {
		res.RecommendedSize = size(gjson.Get(obj, "recommended_size"), maxSize)
	}
	return res
}

// jsonObject takes the text between the first '{' and the last '}'.
func jsonObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	sub := raw[start : end+1]
	if !gjson.Valid(sub) {
		return "", false
	}
	if !gjson.Parse(sub).IsObject() {
		return "", false
	}
	return sub, true
}

func (p Profile) lookup(name string) types.SignalKind {
	if k, ok := p.Vocabulary[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k
	}
	return p.DefaultSignal
}

func confidence(r gjson.Result, def float64) float64 {
	switch r.Type {
	case gjson.Number:
		return types.ClampUnit(r.Num)
	case gjson.String:
		if v, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64); err == nil {
			return types.ClampUnit(v)
		}
	}
	return def
}

func rationale(obj, raw string) string {
	for _, key := range []string{"reasoning", "rationale", "reason"} {
		if r := gjson.Get(obj, key); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return raw
}

func size(r gjson.Result, maxSize decimal.Decimal) decimal.Decimal {
	var (
		v   decimal.Decimal
		err error
	)
	switch r.Type {
	case gjson.Number:
		v, err = decimal.NewFromString(r.Raw)
	case gjson.String:
		v, err = decimal.NewFromString(strings.TrimSpace(r.Str))
	default:
		return maxSize
	}
	if err != nil {
		return maxSize
	}
	return Clamp(v, maxSize)
}

// Clamp bounds v to [0, maxSize].
func Clamp(v, maxSize decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(maxSize) {
		return maxSize
	}
	return v
}
