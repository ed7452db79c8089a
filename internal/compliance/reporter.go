// Package compliance submits decision records to the exchange's AI log
// endpoint without blocking the pipeline.
package compliance

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"agent-team-trader/internal/interfaces"
	"agent-team-trader/internal/logger"
	"agent-team-trader/internal/types"
)

// ResultFunc is told about every finished upload, e.g. to feed metrics.
type ResultFunc func(stage string, err error)

type Reporter struct {
	sink     interfaces.ComplianceLog
	model    string
	timeout  time.Duration
	onResult ResultFunc

	wg        sync.WaitGroup
	submitted atomic.Int64
	failed    atomic.Int64
}

// NewReporter returns a reporter tagging every record with model. A zero
// timeout leaves uploads bounded only by the sink's own client timeout.
func NewReporter(sink interfaces.ComplianceLog, model string, timeout time.Duration, onResult ResultFunc) *Reporter {
	return &Reporter{sink: sink, model: model, timeout: timeout, onResult: onResult}
}

// Submit uploads d in the background. The upload outlives cancellation of ctx
// so an interrupted cycle still leaves its trail; it is bounded by the timeout.
func (r *Reporter) Submit(ctx context.Context, d types.AgentDecision, orderID string) {
	record := d.AILog(r.model, orderID)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.upload(context.WithoutCancel(ctx), record)
	}()
}

func (r *Reporter) upload(ctx context.Context, record types.AILog) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	code, err := r.sink.Upload(ctx, record)
	if err != nil {
		r.failed.Add(1)
		logger.Warn(ctx, "Compliance upload failed", "stage", record.Stage, "code", code, "error", err.Error())
	} else {
		r.submitted.Add(1)
		logger.Debug(ctx, "Compliance record submitted", "stage", record.Stage, "code", code)
	}
	if r.onResult != nil {
		r.onResult(record.Stage, err)
	}
}

// Wait blocks until every pending upload has finished.
func (r *Reporter) Wait() {
	r.wg.Wait()
}

// Submitted is the number of accepted uploads so far.
func (r *Reporter) Submitted() int64 { return r.submitted.Load() }

func (r *Reporter) Failed() int64 { return r.failed.Load() }
