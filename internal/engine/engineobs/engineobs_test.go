package engineobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agent-team-trader/internal/types"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) RunCycle(ctx context.Context, symbol string) (*types.TeamDecision, error) {
	args := m.Called(ctx, symbol)
	td, _ := args.Get(0).(*types.TeamDecision)
	return td, args.Error(1)
}

func TestWrapPassesThrough(t *testing.T) {
	inner := &mockEngine{}
	want := &types.TeamDecision{CycleID: "c1", Symbol: "cmt_btcusdt", Outcome: types.OutcomeAlerted}
	inner.On("RunCycle", mock.Anything, "cmt_btcusdt").Return(want, nil).Once()

	got, err := Wrap(inner).RunCycle(context.Background(), "cmt_btcusdt")
	require.NoError(t, err)
	assert.Same(t, want, got)
	inner.AssertExpectations(t)
}

func TestWrapReturnsError(t *testing.T) {
	inner := &mockEngine{}
	boom := errors.New("boom")
	inner.On("RunCycle", mock.Anything, "cmt_btcusdt").Return(nil, boom).Once()

	got, err := Wrap(inner).RunCycle(context.Background(), "cmt_btcusdt")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, boom)
}
