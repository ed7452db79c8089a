package stage

import (
	"context"
	"fmt"

	"agent-team-trader/internal/extract"
	"agent-team-trader/internal/interfaces"
	"agent-team-trader/internal/ta"
	"agent-team-trader/internal/types"
)

// Market is the technical analysis stage.
type Market struct {
	data        interfaces.MarketData
	analyzer    interfaces.Analyzer
	granularity string
	limit       int
	timeouts    Timeouts
}

var _ interfaces.Stage = (*Market)(nil)

func NewMarket(data interfaces.MarketData, analyzer interfaces.Analyzer, granularity string, limit int, timeouts Timeouts) *Market {
	return &Market{data: data, analyzer: analyzer, granularity: granularity, limit: limit, timeouts: timeouts}
}

func (m *Market) Name() string { return types.SourceMarket }

func (m *Market) Produce(ctx context.Context, in types.StageInput) (types.AgentDecision, error) {
	symbol := in.Symbol

	ticker, err := call(ctx, m.timeouts.MarketData, func(ctx context.Context) (types.Ticker, error) {
		return m.data.Ticker(ctx, symbol)
	})
	if err != nil {
		return types.AgentDecision{}, fmt.Errorf("market stage ticker: %w", err)
	}
	candles, err := call(ctx, m.timeouts.MarketData, func(ctx context.Context) ([]types.Candle, error) {
		return m.data.Candles(ctx, symbol, m.granularity, m.limit)
	})
	if err != nil {
		return types.AgentDecision{}, fmt.Errorf("market stage candles: %w", err)
	}
	depth, err := call(ctx, m.timeouts.MarketData, func(ctx context.Context) (types.Depth, error) {
		return m.data.Depth(ctx, symbol)
	})
	if err != nil {
		return types.AgentDecision{}, fmt.Errorf("market stage depth: %w", err)
	}

	indicators := ta.Compute(candles).Display()
	orderbook := map[string]any{"best_bid": nil, "best_ask": nil}
	if bid, ok := depth.BestBid(); ok {
		orderbook["best_bid"] = bid
	}
	if ask, ok := depth.BestAsk(); ok {
		orderbook["best_ask"] = ask
	}

	input := map[string]any{
		"symbol":        symbol,
		"current_price": ticker.Last,
		"24h_high":      ticker.High24h,
		"24h_low":       ticker.Low24h,
		"24h_change":    ticker.PriceChangePercent,
		"candles":       len(candles),
		"granularity":   m.granularity,
		"indicators":    indicators,
		"orderbook":     orderbook,
	}

	instruction := fmt.Sprintf("Analyze %s and provide a trading signal based on the technical data.", symbol)
	raw, err := ask(ctx, m.analyzer, m.timeouts.Analysis, marketSystemPrompt, instruction, input)
	if err != nil {
		return types.AgentDecision{}, fmt.Errorf("market stage analysis: %w", err)
	}

	res := extract.Market(raw)
	return types.NewAgentDecision(types.SourceMarket, types.StageTechnical, res.Signal, res.Confidence, res.Rationale,
		types.WithContext(input, map[string]any{"indicators": indicators}),
	), nil
}
