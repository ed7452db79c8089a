package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"agent-team-trader/internal/compliance"
	"agent-team-trader/internal/gate"
	"agent-team-trader/internal/stage"
	"agent-team-trader/internal/store"
	"agent-team-trader/internal/types"
)

var maxSize = decimal.RequireFromString("0.0002")

type fakeExchange struct {
	mu        sync.Mutex
	calls     atomic.Int64
	tickerErr error
	orderResp types.OrderResp
	orders    []types.OrderReq
	uploads   []types.AILog
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{orderResp: types.OrderResp{OrderID: "7001", Status: "SUBMITTED"}}
}

func (f *fakeExchange) Ticker(ctx context.Context, symbol string) (types.Ticker, error) {
	f.calls.Add(1)
	return types.Ticker{Symbol: symbol, Last: 159, High24h: 160, Low24h: 100, Volume24h: 500}, f.tickerErr
}

func (f *fakeExchange) Depth(ctx context.Context, symbol string) (types.Depth, error) {
	f.calls.Add(1)
	return types.Depth{Bids: []types.Level{{Price: 158.9, Size: 1}}, Asks: []types.Level{{Price: 159.1, Size: 1}}}, nil
}

func (f *fakeExchange) Candles(ctx context.Context, symbol, granularity string, limit int) ([]types.Candle, error) {
	f.calls.Add(1)
	candles := make([]types.Candle, 60)
	for i := range candles {
		p := 100 + float64(i)
		candles[i] = types.Candle{Ts: int64(i), Open: p, High: p + 1, Low: p - 1, Close: p, Vol: 10}
	}
	return candles, nil
}

func (f *fakeExchange) FundingRate(ctx context.Context, symbol string) (types.FundingRate, error) {
	f.calls.Add(1)
	return types.FundingRate{Symbol: symbol, Rate: 0.0001}, nil
}

func (f *fakeExchange) Assets(ctx context.Context) ([]types.Asset, error) {
	f.calls.Add(1)
	return []types.Asset{{Coin: "USDT", Available: 900, Equity: 1000}}, nil
}

func (f *fakeExchange) Positions(ctx context.Context) ([]types.Position, error) {
	f.calls.Add(1)
	return nil, nil
}

func (f *fakeExchange) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, req)
	return f.orderResp, nil
}

func (f *fakeExchange) Upload(ctx context.Context, log types.AILog) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, log)
	return "00000", nil
}

func (f *fakeExchange) placed() []types.OrderReq {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.OrderReq(nil), f.orders...)
}

func (f *fakeExchange) uploaded() []types.AILog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.AILog(nil), f.uploads...)
}

// replyAnalyzer answers every prompt with the same text.
type replyAnalyzer string

func (a replyAnalyzer) Complete(ctx context.Context, system, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return string(a), nil
}

type replies struct {
	market, sentiment, risk string
}

func newTestCoordinator(t *testing.T, ex *fakeExchange, r replies) (*Coordinator, *compliance.Reporter) {
	t.Helper()
	timeouts := stage.Timeouts{MarketData: time.Second, Account: time.Second, Analysis: time.Second, Order: time.Second}
	reporter := compliance.NewReporter(ex, "test-model", time.Second, nil)
	exec := stage.NewExecutor(ex, stage.DefaultClientIDPrefix, maxSize, time.Second)

	c := newCoordinator(Deps{
		Market:         stage.NewMarket(ex, replyAnalyzer(r.market), "1h", 50, timeouts),
		Sentiment:      stage.NewSentiment(ex, replyAnalyzer(r.sentiment), nil, timeouts),
		Risk:           stage.NewRisk(ex, ex, replyAnalyzer(r.risk), "USDT", maxSize, 0.02, timeouts),
		Gate:           gate.New(exec, reporter, 0, maxSize),
		Reporter:       reporter,
		AllowedSymbols: store.DefaultAllowedSymbols,
	})
	return c, reporter
}
