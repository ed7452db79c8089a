package interfaces

import (
	"context"

	"agent-team-trader/internal/types"
)

// Stage is one analysis participant in a cycle.
type Stage interface {
	Name() string
	Produce(ctx context.Context, in types.StageInput) (types.AgentDecision, error)
}
