// Package engine runs decision cycles: the analysis stages, the consensus and
// the execution gate, plus the loop that repeats them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"agent-team-trader/internal/consensus"
	"agent-team-trader/internal/interfaces"
	"agent-team-trader/internal/logger"
	"agent-team-trader/internal/trace"
	"agent-team-trader/internal/tradelog"
	"agent-team-trader/internal/types"
)

var ErrSymbolNotAllowed = errors.New("symbol not in allowed_symbols")

// Coordinator runs one cycle per RunCycle call. It holds no per-cycle state,
// so concurrent cycles for different symbols are safe.
type Coordinator struct {
	deps Deps
	now  func() time.Time
}

var _ interfaces.Engine = (*Coordinator)(nil)

func newCoordinator(d Deps) *Coordinator {
	return &Coordinator{deps: d, now: time.Now}
}

func (c *Coordinator) RunCycle(ctx context.Context, symbol string) (*types.TeamDecision, error) {
	symbol = strings.ToLower(symbol)
	if !slices.Contains(c.deps.AllowedSymbols, symbol) {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotAllowed, symbol)
	}

	ctx, span := trace.StartSpan(ctx, "engine.RunCycle")
	defer span.End()

	start := c.now()
	td, err := c.runCycle(ctx, symbol, start)
	if err != nil {
		if c.deps.Metrics != nil {
			c.deps.Metrics.RecordCycleError()
		}
		return nil, err
	}

	if c.deps.Metrics != nil {
		c.deps.Metrics.RecordCycle(symbol, string(td.Outcome), td.Confidence, c.now().Sub(start))
	}
	if c.deps.Journal {
		if err := tradelog.RecordCycle(td); err != nil {
			logger.Warn(ctx, "Failed to journal cycle", "cycle_id", td.CycleID, "error", err.Error())
		}
	}
	return td, nil
}

func (c *Coordinator) runCycle(ctx context.Context, symbol string, start time.Time) (*types.TeamDecision, error) {
	cycleID := uuid.NewString()
	logger.Debug(ctx, "Cycle started", "cycle_id", cycleID, "symbol", symbol)

	market, sentiment, err := c.analyze(ctx, symbol)
	if err != nil {
		return nil, err
	}

	risk, err := c.deps.Risk.Produce(ctx, types.StageInput{
		Symbol:             symbol,
		ProposedSignal:     market.Signal(),
		ProposedConfidence: market.Confidence(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.deps.Risk.Name(), err)
	}
	c.record(ctx, risk)

	decisions := []types.AgentDecision{market, sentiment, risk}
	result := consensus.Evaluate(decisions)
	reasoning := Reasoning(result)
	logger.Decision(ctx, symbol, string(result.Action), result.WeightedScore, reasoning, "cycle_id", cycleID, "vetoed", result.Vetoed)

	if c.deps.Reporter != nil {
		c.deps.Reporter.Submit(ctx, coordinatorDecision(result, decisions, reasoning), "")
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cycle %s cancelled: %w", cycleID, err)
	}

	res, err := c.deps.Gate.Evaluate(ctx, symbol, result, risk, reasoning)
	if err != nil {
		return nil, err
	}

	if res.Execution != nil {
		decisions = append(decisions, *res.Execution)
	}
	return &types.TeamDecision{
		CycleID:      cycleID,
		Symbol:       symbol,
		Action:       result.Action,
		Direction:    result.Direction,
		ApprovedSize: res.Size,
		Confidence:   result.WeightedScore,
		Reasoning:    reasoning,
		Outcome:      res.Outcome,
		OrderID:      res.OrderID,
		Decisions:    decisions,
		HoldRecord:   res.Hold,
		StartedAt:    start.UTC(),
	}, nil
}

// analyze runs the market and sentiment stages concurrently. Either failing
// cancels the other.
func (c *Coordinator) analyze(ctx context.Context, symbol string) (market, sentiment types.AgentDecision, err error) {
	g, gctx := errgroup.WithContext(ctx)
	in := types.StageInput{Symbol: symbol}

	g.Go(func() error {
		d, err := c.deps.Market.Produce(gctx, in)
		if err != nil {
			return fmt.Errorf("%s: %w", c.deps.Market.Name(), err)
		}
		market = d
		c.record(ctx, d)
		return nil
	})
	g.Go(func() error {
		d, err := c.deps.Sentiment.Produce(gctx, in)
		if err != nil {
			return fmt.Errorf("%s: %w", c.deps.Sentiment.Name(), err)
		}
		sentiment = d
		c.record(ctx, d)
		return nil
	})

	if err := g.Wait(); err != nil {
		return types.AgentDecision{}, types.AgentDecision{}, err
	}
	return market, sentiment, nil
}

// record submits a stage decision to compliance and counts its signal.
func (c *Coordinator) record(ctx context.Context, d types.AgentDecision) {
	logger.Info(ctx, "Stage decision", "source", d.Source(), "signal", d.Signal(), "confidence", d.Confidence())
	if c.deps.Reporter != nil {
		c.deps.Reporter.Submit(ctx, d, "")
	}
	if c.deps.Metrics != nil {
		c.deps.Metrics.RecordSignal(d.Source(), string(d.Signal()))
	}
}

// Reasoning is the one-line summary carried by the team decision and handed
// to the executor.
func Reasoning(r types.ConsensusResult) string {
	return fmt.Sprintf("Consensus: %s. Weighted confidence: %.2f. Direction: %s. Votes: buy=%.2f sell=%.2f hold=%.2f",
		r.Action, r.WeightedScore, r.Direction, r.Votes.Buy, r.Votes.Sell, r.Votes.Hold)
}

func coordinatorDecision(r types.ConsensusResult, stages []types.AgentDecision, reasoning string) types.AgentDecision {
	signal := types.SignalHold
	switch r.Direction {
	case types.DirectionBuy:
		signal = types.SignalBuy
	case types.DirectionSell:
		signal = types.SignalSell
	}

	signals := make([]string, len(stages))
	for i, d := range stages {
		signals[i] = string(d.Signal())
	}
	input := map[string]any{"agent_decisions": signals}
	output := map[string]any{
		"action":     string(r.Action),
		"confidence": r.WeightedScore,
		"direction":  string(r.Direction),
		"votes":      map[string]float64{"buy": r.Votes.Buy, "sell": r.Votes.Sell, "hold": r.Votes.Hold},
	}
	return types.NewAgentDecision(types.SourceCoordinator, types.StageDecision, signal, r.WeightedScore, reasoning,
		types.WithContext(input, output),
	)
}
