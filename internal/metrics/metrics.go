// Package metrics exposes cycle and stage counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agent-team-trader/internal/logger"
)

const namespace = "agent_team"

// Recorder holds the bot's collectors on its own registry, so several
// recorders (one per test, say) never collide.
type Recorder struct {
	registry *prometheus.Registry

	cycles            *prometheus.CounterVec
	cycleErrors       prometheus.Counter
	stageSignals      *prometheus.CounterVec
	complianceUploads *prometheus.CounterVec
	orderFailures     prometheus.Counter
	cycleDuration     prometheus.Histogram
	weightedScore     *prometheus.GaugeVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Completed decision cycles by outcome",
			},
			[]string{"symbol", "outcome"},
		),
		cycleErrors: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycle_errors_total",
				Help:      "Cycles that ended with an error",
			},
		),
		stageSignals: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_signals_total",
				Help:      "Signals emitted per stage",
			},
			[]string{"stage", "signal"},
		),
		complianceUploads: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compliance_uploads_total",
				Help:      "Compliance record uploads by result",
			},
			[]string{"stage", "result"},
		),
		orderFailures: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_failures_total",
				Help:      "Orders attempted without a confirmed order id",
			},
		),
		cycleDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Duration of a full decision cycle",
				Buckets:   prometheus.DefBuckets,
			},
		),
		weightedScore: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_weighted_score",
				Help:      "Weighted consensus score of the last cycle",
			},
			[]string{"symbol"},
		),
	}
}

// RecordCycle records a finished cycle.
func (r *Recorder) RecordCycle(symbol, outcome string, score float64, d time.Duration) {
	r.cycles.WithLabelValues(symbol, outcome).Inc()
	r.weightedScore.WithLabelValues(symbol).Set(score)
	r.cycleDuration.Observe(d.Seconds())
	if outcome == "failed" {
		r.orderFailures.Inc()
	}
}

func (r *Recorder) RecordCycleError() {
	r.cycleErrors.Inc()
}

func (r *Recorder) RecordSignal(stage, signal string) {
	r.stageSignals.WithLabelValues(stage, signal).Inc()
}

// RecordUpload matches compliance.ResultFunc.
func (r *Recorder) RecordUpload(stage string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.complianceUploads.WithLabelValues(stage, result).Inc()
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Metrics server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
