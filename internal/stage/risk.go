package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"agent-team-trader/internal/extract"
	"agent-team-trader/internal/interfaces"
	"agent-team-trader/internal/types"
)

// Risk assesses the market stage's proposal against the account and holds the veto.
type Risk struct {
	data       interfaces.MarketData
	account    interfaces.Account
	analyzer   interfaces.Analyzer
	quoteCoin  string
	maxSize    decimal.Decimal
	maxRiskPct float64
	timeouts   Timeouts
}

var _ interfaces.Stage = (*Risk)(nil)

func NewRisk(data interfaces.MarketData, account interfaces.Account, analyzer interfaces.Analyzer, quoteCoin string, maxSize decimal.Decimal, maxRiskPct float64, timeouts Timeouts) *Risk {
	return &Risk{
		data:       data,
		account:    account,
		analyzer:   analyzer,
		quoteCoin:  quoteCoin,
		maxSize:    maxSize,
		maxRiskPct: maxRiskPct,
		timeouts:   timeouts,
	}
}

func (r *Risk) Name() string { return types.SourceRisk }

func (r *Risk) Produce(ctx context.Context, in types.StageInput) (types.AgentDecision, error) {
	symbol := in.Symbol
	proposed := in.ProposedSignal
	if proposed == "" {
		proposed = types.SignalBuy
	}

	assets, err := call(ctx, r.timeouts.Account, r.account.Assets)
	if err != nil {
		return types.AgentDecision{}, fmt.Errorf("risk stage assets: %w", err)
	}
	positions, err := call(ctx, r.timeouts.Account, r.account.Positions)
	if err != nil {
		return types.AgentDecision{}, fmt.Errorf("risk stage positions: %w", err)
	}
	ticker, err := call(ctx, r.timeouts.MarketData, func(ctx context.Context) (types.Ticker, error) {
		return r.data.Ticker(ctx, symbol)
	})
	if err != nil {
		return types.AgentDecision{}, fmt.Errorf("risk stage ticker: %w", err)
	}

	var available, equity float64
	for _, a := range assets {
		if strings.EqualFold(a.Coin, r.quoteCoin) {
			available, equity = a.Available, a.Equity
			break
		}
	}
	active := make([]map[string]any, 0, len(positions))
	for _, p := range positions {
		if p.Size <= 0 {
			continue
		}
		active = append(active, map[string]any{
			"symbol": p.Symbol,
			"size":   p.Size,
			"side":   p.Side,
			"pnl":    p.UnrealizedPL,
		})
	}

	maxSize, _ := r.maxSize.Float64()
	input := map[string]any{
		"symbol":              symbol,
		"proposed_signal":     string(proposed),
		"proposed_confidence": in.ProposedConfidence,
		"account": map[string]any{
			"available_" + strings.ToLower(r.quoteCoin): available,
			"equity_" + strings.ToLower(r.quoteCoin):    equity,
			"active_positions":                          active,
			"position_count":                            len(active),
		},
		"risk_limits": map[string]any{
			"max_risk_pct":      r.maxRiskPct,
			"max_position_size": maxSize,
		},
		"current_price": ticker.Last,
	}

	instruction := fmt.Sprintf("Assess the risk for a potential %s trade on %s. Should we proceed?", strings.ToUpper(string(proposed)), symbol)
	system := riskSystemPrompt(r.maxRiskPct, r.maxSize.String())
	raw, err := ask(ctx, r.analyzer, r.timeouts.Analysis, system, instruction, input)
	if err != nil {
		return types.AgentDecision{}, fmt.Errorf("risk stage analysis: %w", err)
	}

	res := extract.Risk(raw, r.maxSize)
	return types.NewAgentDecision(types.SourceRisk, types.StageRisk, res.Signal, res.Confidence, res.Rationale,
		types.WithContext(input, map[string]any{"risk_status": string(res.Signal)}),
		types.WithRecommendedSize(res.RecommendedSize),
	), nil
}
