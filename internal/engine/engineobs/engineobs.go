package engineobs

import (
	"context"
	"time"

	"agent-team-trader/internal/interfaces"
	"agent-team-trader/internal/logger"
	"agent-team-trader/internal/trace"
	"agent-team-trader/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) RunCycle(ctx context.Context, symbol string) (*types.TeamDecision, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Cycle")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting decision cycle",
		"symbol", symbol,
	)

	td, err := oe.engine.RunCycle(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Decision cycle failed", err,
			"symbol", symbol,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Decision cycle completed",
		"symbol", symbol,
		"cycle_id", td.CycleID,
		"action", td.Action,
		"direction", td.Direction,
		"outcome", td.Outcome,
		"confidence", td.Confidence,
		"size", td.ApprovedSize.String(),
		"order_id", td.OrderID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return td, nil
}
