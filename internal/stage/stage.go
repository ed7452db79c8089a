// Package stage holds the participants of a decision cycle: three analysis
// stages that consult the analyzer and the executor that places orders.
package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agent-team-trader/internal/interfaces"
)

// Timeouts bound each kind of external call a stage makes. Zero means the
// call inherits the caller's deadline only.
type Timeouts struct {
	MarketData time.Duration
	Account    time.Duration
	Analysis   time.Duration
	Order      time.Duration
}

func call[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return fn(ctx)
}

// ask sends the instruction and the JSON context to the analyzer.
func ask(ctx context.Context, a interfaces.Analyzer, d time.Duration, system, instruction string, input map[string]any) (string, error) {
	body, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode context: %w", err)
	}
	prompt := instruction + "\n\nContext:\n" + string(body)
	return call(ctx, d, func(ctx context.Context) (string, error) {
		return a.Complete(ctx, system, prompt)
	})
}
