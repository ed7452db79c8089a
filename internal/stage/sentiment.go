package stage

import (
	"context"
	"fmt"

	"agent-team-trader/internal/extract"
	"agent-team-trader/internal/interfaces"
	"agent-team-trader/internal/types"
)

// Sentiment reads positioning from funding and, when a headline source is
// configured, recent news.
type Sentiment struct {
	data      interfaces.MarketData
	analyzer  interfaces.Analyzer
	headlines interfaces.HeadlineSource
	timeouts  Timeouts
}

var _ interfaces.Stage = (*Sentiment)(nil)

// NewSentiment builds the stage. headlines may be nil.
func NewSentiment(data interfaces.MarketData, analyzer interfaces.Analyzer, headlines interfaces.HeadlineSource, timeouts Timeouts) *Sentiment {
	return &Sentiment{data: data, analyzer: analyzer, headlines: headlines, timeouts: timeouts}
}

func (s *Sentiment) Name() string { return types.SourceSentiment }

func (s *Sentiment) Produce(ctx context.Context, in types.StageInput) (types.AgentDecision, error) {
	symbol := in.Symbol

	ticker, err := call(ctx, s.timeouts.MarketData, func(ctx context.Context) (types.Ticker, error) {
		return s.data.Ticker(ctx, symbol)
	})
	if err != nil {
		return types.AgentDecision{}, fmt.Errorf("sentiment stage ticker: %w", err)
	}
	funding, err := call(ctx, s.timeouts.MarketData, func(ctx context.Context) (types.FundingRate, error) {
		return s.data.FundingRate(ctx, symbol)
	})
	if err != nil {
		return types.AgentDecision{}, fmt.Errorf("sentiment stage funding rate: %w", err)
	}

	input := map[string]any{
		"symbol":            symbol,
		"funding_rate":      funding.Rate,
		"next_funding_time": funding.NextFundingTime,
		"24h_volume":        ticker.Volume24h,
		"24h_change":        ticker.PriceChangePercent,
		"current_price":     ticker.Last,
	}
	if s.headlines != nil {
		news, _ := call(ctx, s.timeouts.MarketData, func(ctx context.Context) ([]types.NewsHeadline, error) {
			return s.headlines.Headlines(ctx, symbol), nil
		})
		if len(news) > 0 {
			input["headlines"] = news
		}
	}

	instruction := fmt.Sprintf("Analyze the sentiment for %s based on funding rates and market data.", symbol)
	raw, err := ask(ctx, s.analyzer, s.timeouts.Analysis, sentimentSystemPrompt, instruction, input)
	if err != nil {
		return types.AgentDecision{}, fmt.Errorf("sentiment stage analysis: %w", err)
	}

	res := extract.Sentiment(raw)
	return types.NewAgentDecision(types.SourceSentiment, types.StageSentiment, res.Signal, res.Confidence, res.Rationale,
		types.WithContext(input, map[string]any{
			"funding_rate": funding.Rate,
			"sentiment":    string(res.Signal),
		}),
	), nil
}
