package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"agent-team-trader/internal/compliance"
	"agent-team-trader/internal/llm"
	"agent-team-trader/internal/types"
)

type fakeExchange struct {
	mu        sync.Mutex
	ticker    types.Ticker
	depth     types.Depth
	candles   []types.Candle
	funding   types.FundingRate
	assets    []types.Asset
	positions []types.Position
	orderResp types.OrderResp
	orderErr  error
	orders    []types.OrderReq
	logs      []types.AILog
}

func newFakeExchange() *fakeExchange {
	candles := make([]types.Candle, 60)
	for i := range candles {
		p := 100 + float64(i)
		candles[i] = types.Candle{Ts: int64(i), Open: p - 0.5, High: p + 1, Low: p - 1, Close: p, Vol: 10}
	}
	return &fakeExchange{
		ticker:  types.Ticker{Symbol: "cmt_btcusdt", Last: 159, High24h: 160, Low24h: 100, Volume24h: 500, PriceChangePercent: 0.02},
		depth:   types.Depth{Bids: []types.Level{{Price: 158.9, Size: 1}}, Asks: []types.Level{{Price: 159.1, Size: 2}}},
		candles: candles,
		funding: types.FundingRate{Symbol: "cmt_btcusdt", Rate: 0.0001, NextFundingTime: 1700000000000},
		assets:  []types.Asset{{Coin: "BTC", Available: 1}, {Coin: "USDT", Available: 900, Equity: 1000}},
		positions: []types.Position{
			{Symbol: "cmt_ethusdt", Side: "long", Size: 0.5, AvgOpenPrice: 3000, UnrealizedPL: 12.5},
			{Symbol: "cmt_solusdt", Side: "short", Size: 0},
		},
		orderResp: types.OrderResp{OrderID: "8001"},
	}
}

func (f *fakeExchange) Ticker(ctx context.Context, symbol string) (types.Ticker, error) {
	return f.ticker, nil
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

func (f *fakeExchange) Upload(ctx context.Context, log types.AILog) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return "00000", nil
}

// scriptedChat replays canned assistant turns and records every request.
type scriptedChat struct {
	mu       sync.Mutex
	replies  []llm.Message
	errs     map[int]error
	requests [][]llm.Message
}

var errModelDown = errors.New("model unavailable")

func (s *scriptedChat) Chat(ctx context.Context, messages []llm.Message, tools []llm.Tool) (llm.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.requests)
	s.requests = append(s.requests, append([]llm.Message(nil), messages...))
	if err := s.errs[n]; err != nil {
		return llm.Message{}, err
	}
	if len(s.replies) == 0 {
		return llm.Message{Role: "assistant", Content: "nothing to add"}, nil
	}
	msg := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return msg, nil
}

func (s *scriptedChat) requestSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.requests))
	for i, r := range s.requests {
		out[i] = len(r)
	}
	return out
}

func toolCall(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Type: "function", Function: llm.FunctionCall{Name: name, Arguments: args}}
}

func callsTools(calls ...llm.ToolCall) llm.Message {
	return llm.Message{Role: "assistant", ToolCalls: calls}
}

func answers(text string) llm.Message {
	return llm.Message{Role: "assistant", Content: text}
}

var testMaxSize = decimal.RequireFromString("0.0002")

func newTestToolbox(ex *fakeExchange, reporter *compliance.Reporter) *Toolbox {
	tb := NewToolbox(ex, reporter, ToolboxConfig{
		AllowedSymbols: []string{"cmt_btcusdt", "cmt_ethusdt"},
		MaxSize:        testMaxSize,
	})
	tb.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return tb
}
