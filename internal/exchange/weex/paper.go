package weex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agent-team-trader/internal/interfaces"
	"agent-team-trader/internal/logger"
	"agent-team-trader/internal/types"
)

// DefaultPaperBalance is the simulated quote balance reported when the account
// endpoints cannot be reached for lack of credentials.
const DefaultPaperBalance = 1000.0

// Paper reads market data from the real exchange but never places orders or
// uploads compliance records. Orders get SIM-<nanos> ids.
type Paper struct {
	inner     interfaces.Exchange
	quoteCoin string
	balance   float64
	now       func() time.Time
}

var _ interfaces.Exchange = (*Paper)(nil)

func NewPaper(inner interfaces.Exchange, quoteCoin string) *Paper {
	return &Paper{inner: inner, quoteCoin: quoteCoin, balance: DefaultPaperBalance, now: time.Now}
}

func (p *Paper) Ticker(ctx context.Context, symbol string) (types.Ticker, error) {
	return p.inner.Ticker(ctx, symbol)
}

func (p *Paper) Depth(ctx context.Context, symbol string) (types.Depth, error) {
	return p.inner.Depth(ctx, symbol)
}

func (p *Paper) Candles(ctx context.Context, symbol, granularity string, limit int) ([]types.Candle, error) {
	return p.inner.Candles(ctx, symbol, granularity, limit)
}

func (p *Paper) FundingRate(ctx context.Context, symbol string) (types.FundingRate, error) {
	return p.inner.FundingRate(ctx, symbol)
}

func (p *Paper) Assets(ctx context.Context) ([]types.Asset, error) {
	assets, err := p.inner.Assets(ctx)
	if errors.Is(err, ErrMissingCredentials) {
		return []types.Asset{{Coin: p.quoteCoin, Available: p.balance, Equity: p.balance}}, nil
	}
	return assets, err
}

func (p *Paper) Positions(ctx context.Context) ([]types.Position, error) {
	positions, err := p.inner.Positions(ctx)
	if errors.Is(err, ErrMissingCredentials) {
		return nil, nil
	}
	return positions, err
}

func (p *Paper) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if !req.Size.IsPositive() {
		return types.OrderResp{}, errors.New("order size must be positive")
	}
	resp := types.OrderResp{
		OrderID:   fmt.Sprintf("SIM-%d", p.now().UnixNano()),
		ClientOID: req.ClientOID,
		Status:    "SIMULATED",
	}
	logger.Info(ctx, "Simulated order",
		"symbol", req.Symbol,
		"side", int(req.Side),
		"size", req.Size.String(),
		"client_oid", req.ClientOID,
		"order_id", resp.OrderID,
	)
	return resp, nil
}

func (p *Paper) Upload(ctx context.Context, log types.AILog) (string, error) {
	logger.Info(ctx, "Compliance record (dry run)",
		"stage", log.Stage,
		"model", log.Model,
		"order_id", log.OrderID,
		"explanation", types.Truncate(log.Explanation, 200),
	)
	return SuccessCode, nil
}
