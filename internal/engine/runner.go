package engine

import (
	"context"
	"fmt"
	"time"

	"agent-team-trader/internal/compliance"
	"agent-team-trader/internal/interfaces"
	"agent-team-trader/internal/logger"
	"agent-team-trader/internal/types"
)

type Mode string

const (
	ModeSingle     Mode = "single"
	ModeContinuous Mode = "continuous"
	ModeHFT        Mode = "hft"
)

type RunnerConfig struct {
	Mode     Mode
	Symbol   string
	Interval time.Duration
	// Cycles bounds an hft session.
	Cycles int
}

// Summary counts what a run did.
type Summary struct {
	Cycles   int
	Errors   int
	Executed int
	Alerted  int
	Blocked  int
	Failed   int

	ComplianceSubmitted int64
	ComplianceFailed    int64
}

func (s *Summary) add(td *types.TeamDecision) {
	s.Cycles++
	switch td.Outcome {
	case types.OutcomeExecuted:
		s.Executed++
	case types.OutcomeAlerted:
		s.Alerted++
	case types.OutcomeBlocked:
		s.Blocked++
	case types.OutcomeFailed:
		s.Failed++
	}
}

type Runner struct {
	engine   interfaces.Engine
	reporter *compliance.Reporter
	cfg      RunnerConfig
}

// NewRunner builds a runner. reporter may be nil; when set, hft sessions wait
// for pending uploads before reporting compliance counts.
func NewRunner(eng interfaces.Engine, reporter *compliance.Reporter, cfg RunnerConfig) *Runner {
	return &Runner{engine: eng, reporter: reporter, cfg: cfg}
}

// Run drives cycles per the configured mode. Single mode returns the cycle
// error; the repeating modes log it and carry on until ctx is done.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	switch r.cfg.Mode {
	case ModeSingle, "":
		return r.single(ctx)
	case ModeContinuous:
		return r.loop(ctx, 0), nil
	case ModeHFT:
		s := r.loop(ctx, r.cfg.Cycles)
		r.report(ctx, &s)
		return s, nil
	default:
		return Summary{}, fmt.Errorf("unknown run mode '%s'", r.cfg.Mode)
	}
}

func (r *Runner) single(ctx context.Context) (Summary, error) {
	var s Summary
	td, err := r.engine.RunCycle(ctx, r.cfg.Symbol)
	if err != nil {
		s.Errors++
		return s, err
	}
	s.add(td)
	return s, nil
}

// loop runs cycles until ctx is done, or limit cycles when limit > 0.
func (r *Runner) loop(ctx context.Context, limit int) Summary {
	var s Summary
	for n := 1; limit <= 0 || n <= limit; n++ {
		if ctx.Err() != nil {
			break
		}
		logger.Info(ctx, "Running cycle", "mode", r.cfg.Mode, "cycle", n, "symbol", r.cfg.Symbol)

		td, err := r.engine.RunCycle(ctx, r.cfg.Symbol)
		if err != nil {
			s.Errors++
			logger.ErrorWithErr(ctx, "Cycle failed", err, "cycle", n, "symbol", r.cfg.Symbol)
		} else {
			s.add(td)
		}

		if limit > 0 && n == limit {
			break
		}
		if !wait(ctx, r.cfg.Interval) {
			break
		}
	}
	return s
}

func (r *Runner) report(ctx context.Context, s *Summary) {
	if r.reporter != nil {
		r.reporter.Wait()
		s.ComplianceSubmitted = r.reporter.Submitted()
		s.ComplianceFailed = r.reporter.Failed()
	}
	logger.Info(ctx, "HFT session complete",
		"cycles", s.Cycles,
		"errors", s.Errors,
		"trades_executed", s.Executed,
		"compliance_logs_submitted", s.ComplianceSubmitted,
		"compliance_logs_failed", s.ComplianceFailed,
	)
}

// wait sleeps for d and reports false if ctx ended first.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
