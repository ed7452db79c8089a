package logger

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-team-trader/internal/trace"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "ERROR")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("LOG_DETAILED", "true")
	t.Setenv("LOG_TRACING_ENABLED", "false")

	cfg := LoadConfigFromEnv()
	assert.Equal(t, "ERROR", cfg.Level)
	assert.Equal(t, "text", cfg.Format)
	assert.True(t, cfg.DetailedLogging)
	assert.False(t, cfg.TracingEnabled)
}

func TestToAttributesSkipsMalformedPairs(t *testing.T) {
	attrs := toAttributes([]any{"symbol", "cmt_btcusdt", 42, "ignored", "count", 3, "dangling"})
	require.Len(t, attrs, 2)
	assert.Equal(t, "symbol", string(attrs[0].Key))
	assert.Equal(t, "count", string(attrs[1].Key))
}

func TestHelpersWithoutTracing(t *testing.T) {
	require.NoError(t, InitWithConfig(LogConfig{Level: "DEBUG", Format: "text", DetailedLogging: true}))
	assert.False(t, IsTracingEnabled())
	assert.True(t, IsDebugEnabled())

	ctx := context.Background()
	assert.NotPanics(t, func() {
		Info(ctx, "cycle started", "symbol", "cmt_btcusdt")
		InfoSkip(ctx, 1, "wrapped")
		ErrorWithErrSkip(ctx, 1, "wrapped failure", errors.New("boom"))
		Decision(ctx, "cmt_btcusdt", "hold", 0.2, "low score")
		Trade(ctx, "cmt_btcusdt", "buy", "0.0002", 65000, "SIM-1")
		Risk(ctx, "cmt_btcusdt", "VETO")

		op := StartOperation(ctx, "test.op", "k", "v")
		op.End("extra", 1)
		StartOperation(ctx, "test.fail").EndWithError(errors.New("fail"))
	})
}

func TestTraceAttrsFollowOperationSpan(t *testing.T) {
	require.NoError(t, InitWithConfig(LogConfig{Level: "INFO", Format: "text", TracingEnabled: true}))
	t.Cleanup(func() {
		_ = Shutdown(context.Background())
		_ = trace.Init(trace.Config{Enabled: false})
		_ = InitWithConfig(LogConfig{Level: "INFO", Format: "text"})
	})
	require.True(t, IsTracingEnabled())

	assert.Nil(t, getTraceAttrs(context.Background()))

	op := StartOperation(context.Background(), "test.traced", "symbol", "cmt_btcusdt")
	attrs := getTraceAttrs(op.GetContext())
	require.Len(t, attrs, 4)
	assert.Equal(t, "trace_id", attrs[0])
	assert.Len(t, attrs[1], 32)
	assert.Equal(t, "span_id", attrs[2])
	assert.GreaterOrEqual(t, op.Duration(), time.Duration(0))
	op.End()
}
