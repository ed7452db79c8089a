package stage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-team-trader/internal/types"
)

func newTestExecutor(ex *fakeExchange) *Executor {
	e := NewExecutor(ex, "", decimal.RequireFromString("0.0002"), time.Second)
	e.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return e
}

func TestExecutorPlacesMarketOrder(t *testing.T) {
	ex := newFakeExchange()
	e := newTestExecutor(ex)

	res := e.Execute(context.Background(), types.StageInput{
		Symbol:    "cmt_btcusdt",
		Direction: types.DirectionSell,
		Size:      decimal.RequireFromString("0.0001"),
		Reasoning: "consensus sell",
	})
	require.NoError(t, res.Err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, "7001", res.OrderID)

	require.Len(t, ex.orders, 1)
	req := ex.orders[0]
	assert.Equal(t, types.SideOpenShort, req.Side)
	assert.Equal(t, types.OrderTypeMarket, req.OrderType)
	assert.Equal(t, "0.0001", req.Size.String())
	assert.Equal(t, "fenyr_multi_1700000000123", req.ClientOID)

	d := res.Decision
	assert.Equal(t, types.SourceExecutor, d.Source())
	assert.Equal(t, types.StageExecution, d.Stage())
	assert.Equal(t, types.SignalSell, d.Signal())
	assert.Equal(t, 1.0, d.Confidence())
	assert.Equal(t, true, d.Output()["success"])
	assert.Equal(t, int64(1700000000123), d.CreatedAt().UnixMilli())
}

func TestExecutorClampsSize(t *testing.T) {
	ex := newFakeExchange()
	res := newTestExecutor(ex).Execute(context.Background(), types.StageInput{
		Symbol:    "cmt_btcusdt",
		Direction: types.DirectionBuy,
		Size:      decimal.RequireFromString("5"),
	})
	require.True(t, res.Succeeded())
	assert.Equal(t, types.SideOpenLong, ex.orders[0].Side)
	assert.Equal(t, "0.0002", ex.orders[0].Size.String())
}

func TestExecutorReportsFailuresAsZeroConfidence(t *testing.T) {
	ex := newFakeExchange()
	ex.orderResp = types.OrderResp{}
	res := newTestExecutor(ex).Execute(context.Background(), types.StageInput{
		Symbol: "cmt_btcusdt", Direction: types.DirectionBuy, Size: decimal.RequireFromString("0.0001"),
	})
	assert.False(t, res.Succeeded())
	assert.NoError(t, res.Err)
	assert.Equal(t, types.SignalBuy, res.Decision.Signal())
	assert.Zero(t, res.Decision.Confidence())

	ex = newFakeExchange()
	ex.orderErr = errDown
	res = newTestExecutor(ex).Execute(context.Background(), types.StageInput{
		Symbol: "cmt_btcusdt", Direction: types.DirectionSell, Size: decimal.RequireFromString("0.0001"),
	})
	assert.ErrorIs(t, res.Err, errDown)
	assert.Equal(t, types.SignalSell, res.Decision.Signal())
	assert.Zero(t, res.Decision.Confidence())
	assert.Equal(t, errDown.Error(), res.Decision.Output()["error"])
}

func TestExecutorSkipsZeroSize(t *testing.T) {
	ex := newFakeExchange()
	res := newTestExecutor(ex).Execute(context.Background(), types.StageInput{
		Symbol: "cmt_btcusdt", Direction: types.DirectionBuy, Size: decimal.Zero,
	})
	assert.Error(t, res.Err)
	assert.Empty(t, ex.orders)
	assert.Zero(t, res.Decision.Confidence())
}

func TestExecutorProduceRequiresDirection(t *testing.T) {
	ex := newFakeExchange()
	e := newTestExecutor(ex)

	_, err := e.Produce(context.Background(), types.StageInput{Symbol: "cmt_btcusdt", Direction: types.DirectionNone})
	assert.ErrorIs(t, err, ErrNoDirection)
	assert.Empty(t, ex.orders)

	d, err := e.Produce(context.Background(), types.StageInput{Symbol: "cmt_btcusdt", Direction: types.DirectionBuy, Size: decimal.RequireFromString("0.0001")})
	require.NoError(t, err)
	assert.Equal(t, 1.0, d.Confidence())
	assert.Equal(t, types.SourceExecutor, e.Name())
}
