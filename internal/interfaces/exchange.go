package interfaces

import (
	"context"

	"agent-team-trader/internal/types"
)

// MarketData is the read-only market view the analysis stages consume.
type MarketData interface {
	Ticker(ctx context.Context, symbol string) (types.Ticker, error)
	Depth(ctx context.Context, symbol string) (types.Depth, error)
	Candles(ctx context.Context, symbol, granularity string, limit int) ([]types.Candle, error)
	FundingRate(ctx context.Context, symbol string) (types.FundingRate, error)
}

// Account exposes balances and open positions.
type Account interface {
	Assets(ctx context.Context) ([]types.Asset, error)
	Positions(ctx context.Context) ([]types.Position, error)
}

type OrderSink interface {
	PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error)
}

// ComplianceLog receives one record per decision. Callers treat failures as non-fatal.
type ComplianceLog interface {
	Upload(ctx context.Context, log types.AILog) (string, error)
}

// Exchange is everything a venue adapter provides.
type Exchange interface {
	MarketData
	Account
	OrderSink
	ComplianceLog
}
