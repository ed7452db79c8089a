package stage

import (
	"context"
	"errors"
	"sync"

	"agent-team-trader/internal/types"
)

// fakeExchange serves canned market and account data and records orders.
type fakeExchange struct {
	mu        sync.Mutex
	ticker    types.Ticker
	candles   []types.Candle
	depth     types.Depth
	funding   types.FundingRate
	assets    []types.Asset
	positions []types.Position
	tickerErr error
	orderResp types.OrderResp
	orderErr  error
	orders    []types.OrderReq
}

func newFakeExchange() *fakeExchange {
	candles := make([]types.Candle, 60)
	for i := range candles {
		p := 100 + float64(i)
		candles[i] = types.Candle{Ts: int64(i), Open: p - 0.5, High: p + 1, Low: p - 1, Close: p, Vol: 10}
	}
	return &fakeExchange{
		ticker:  types.Ticker{Symbol: "cmt_btcusdt", Last: 159, High24h: 160, Low24h: 100, Volume24h: 500, PriceChangePercent: 0.02},
		candles: candles,
		depth:   types.Depth{Bids: []types.Level{{Price: 158.9, Size: 1}}, Asks: []types.Level{{Price: 159.1, Size: 2}}},
		funding: types.FundingRate{Symbol: "cmt_btcusdt", Rate: -0.0001, NextFundingTime: 1700000000000},
		assets:  []types.Asset{{Coin: "USDT", Available: 900, Equity: 1000}},
		positions: []types.Position{
			{Symbol: "cmt_ethusdt", Side: "long", Size: 0.5},
			{Symbol: "cmt_solusdt", Side: "short", Size: 0},
		},
		orderResp: types.OrderResp{OrderID: "7001"},
	}
}

func (f *fakeExchange) Ticker(ctx context.Context, symbol string) (types.Ticker, error) {
	return f.ticker, f.tickerErr
}

func (f *fakeExchange) Depth(ctx context.Context, symbol string) (types.Depth, error) {
	return f.depth, nil
}

func (f *fakeExchange) Candles(ctx context.Context, symbol, granularity string, limit int) ([]types.Candle, error) {
	return f.candles, nil
}

func (f *fakeExchange) FundingRate(ctx context.Context, symbol string) (types.FundingRate, error) {
	return f.funding, nil
}

func (f *fakeExchange) Assets(ctx context.Context) ([]types.Asset, error) {
	return f.assets, nil
}

func (f *fakeExchange) Positions(ctx context.Context) ([]types.Position, error) {
	return f.positions, nil
}

func (f *fakeExchange) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, req)
	return f.orderResp, f.orderErr
}

// scriptedAnalyzer returns a fixed reply and remembers the last prompts.
type scriptedAnalyzer struct {
	reply  string
	err    error
	system string
	prompt string
}

func (a *scriptedAnalyzer) Complete(ctx context.Context, system, prompt string) (string, error) {
	a.system, a.prompt = system, prompt
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return a.reply, a.err
}

var errDown = errors.New("exchange unreachable")
