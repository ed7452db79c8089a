package interfaces

import (
	"context"

	"agent-team-trader/internal/types"
)

type Engine interface {
	RunCycle(ctx context.Context, symbol string) (*types.TeamDecision, error)
}
