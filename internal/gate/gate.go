// Package gate turns a consensus into an outcome: no trade, an alert, or an
// order through the executor.
package gate

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"agent-team-trader/internal/compliance"
	"agent-team-trader/internal/logger"
	"agent-team-trader/internal/stage"
	"agent-team-trader/internal/trace"
	"agent-team-trader/internal/types"
)

// NoTradeRationale is recorded when the consensus gives nothing to act on.
const NoTradeRationale = "no trade signal"

type Executor interface {
	Execute(ctx context.Context, in types.StageInput) stage.Execution
}

type Gate struct {
	exec          Executor
	reporter      *compliance.Reporter
	minConfidence float64
	maxSize       decimal.Decimal
}

// New builds a gate. reporter may be nil; minConfidence 0 disables that check.
func New(exec Executor, reporter *compliance.Reporter, minConfidence float64, maxSize decimal.Decimal) *Gate {
	return &Gate{exec: exec, reporter: reporter, minConfidence: minConfidence, maxSize: maxSize}
}

type Result struct {
	Outcome types.Outcome
	Size    decimal.Decimal
	OrderID string
	// Execution is set only when an order was attempted.
	Execution *types.AgentDecision
	// Hold is set when the gate blocked the cycle.
	Hold *types.AgentDecision
}

// Evaluate applies the consensus. An order is placed only for Execute with a
// buy or sell direction, a score at or above the minimum confidence, and a live
// context. Order failures come back as OutcomeFailed, not as errors; the only
// error is cancellation before the order.
func (g *Gate) Evaluate(ctx context.Context, symbol string, c types.ConsensusResult, risk types.AgentDecision, reasoning string) (Result, error) {
	ctx, span := trace.StartSpan(ctx, "gate.Evaluate")
	defer span.End()

	size := g.approvedSize(risk)
	tradable := c.Direction == types.DirectionBuy || c.Direction == types.DirectionSell

	switch {
	case c.Action == types.ActionHold || !tradable:
		if c.Vetoed {
			logger.Risk(ctx, symbol, "VETO", "reason", risk.Rationale(), "weighted_score", c.WeightedScore)
		}
		logger.Decision(ctx, symbol, string(c.Action), c.WeightedScore, NoTradeRationale, "direction", c.Direction, "vetoed", c.Vetoed)
		return g.blocked(NoTradeRationale, size), nil

	case c.Action == types.ActionAlert:
		logger.Decision(ctx, symbol, string(c.Action), c.WeightedScore, "alert only", "direction", c.Direction)
		return Result{Outcome: types.OutcomeAlerted, Size: size}, nil

	case c.WeightedScore < g.minConfidence:
		reason := fmt.Sprintf("consensus score %.3f below minimum confidence %.2f", c.WeightedScore, g.minConfidence)
		logger.Decision(ctx, symbol, string(c.Action), c.WeightedScore, reason, "direction", c.Direction)
		return g.blocked(reason, size), nil
	}

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("cycle cancelled before execution: %w", err)
	}

	exec := g.exec.Execute(ctx, types.StageInput{
		Symbol:    symbol,
		Direction: c.Direction,
		Size:      size,
		Reasoning: reasoning,
	})
	if g.reporter != nil {
		g.reporter.Submit(ctx, exec.Decision, exec.OrderID)
	}

	res := Result{Outcome: types.OutcomeExecuted, Size: size, OrderID: exec.OrderID, Execution: &exec.Decision}
	if !exec.Succeeded() {
		res.Outcome = types.OutcomeFailed
		logger.Warn(ctx, "Order not confirmed", "symbol", symbol, "direction", c.Direction, "size", size.String(), "error", errString(exec.Err))
		return res, nil
	}

	logger.Trade(ctx, symbol, string(c.Direction), size.String(), 0, exec.OrderID, "score", c.WeightedScore)
	return res, nil
}

// approvedSize is the risk stage's recommendation, or the maximum when it gave
// none, clamped to [0, max].
func (g *Gate) approvedSize(risk types.AgentDecision) decimal.Decimal {
	size, ok := risk.RecommendedSize()
	if !ok {
		size = g.maxSize
	}
	if size.GreaterThan(g.maxSize) {
		size = g.maxSize
	}
	if size.IsNegative() {
		size = decimal.Zero
	}
	return size
}

func (g *Gate) blocked(reason string, size decimal.Decimal) Result {
	hold := types.NewAgentDecision(types.SourceExecutor, types.StageExecution, types.SignalHold, 0, reason,
		types.WithContext(nil, map[string]any{"action": "hold", "reason": reason}),
	)
	return Result{Outcome: types.OutcomeBlocked, Size: size, Hold: &hold}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
