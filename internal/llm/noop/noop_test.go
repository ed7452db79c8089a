package noop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-team-trader/internal/extract"
)

func TestReplyFallsBackToStageDefaults(t *testing.T) {
	out, err := New().Complete(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.True(t, extract.Market(out).Fallback)
}

func TestCompleteHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Complete(ctx, "", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChatNeverCallsTools(t *testing.T) {
	msg, err := New().Chat(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "assistant", msg.Role)
	assert.Equal(t, Reply, msg.Content)
	assert.Empty(t, msg.ToolCalls)
}
