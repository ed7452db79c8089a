package engine

import (
	"agent-team-trader/internal/compliance"
	"agent-team-trader/internal/gate"
	"agent-team-trader/internal/interfaces"
	"agent-team-trader/internal/metrics"
)

// Deps are the collaborators of a Coordinator. Reporter, Metrics may be nil.
type Deps struct {
	Market    interfaces.Stage
	Sentiment interfaces.Stage
	Risk      interfaces.Stage
	Gate      *gate.Gate
	Reporter  *compliance.Reporter
	Metrics   *metrics.Recorder

	AllowedSymbols []string
	// Journal writes each cycle to the local decision log.
	Journal bool
}

func New(d Deps) interfaces.Engine {
	return newCoordinator(d)
}
