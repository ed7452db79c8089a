package exchangeobs

import (
	"context"

	"agent-team-trader/internal/interfaces"
	"agent-team-trader/internal/logger"
	"agent-team-trader/internal/trace"
	"agent-team-trader/internal/types"
)

// observableExchange wraps an Exchange with observability (logging & tracing)
type observableExchange struct {
	exchange interfaces.Exchange
}

// Compile-time interface check
var _ interfaces.Exchange = (*observableExchange)(nil)

// Wrap wraps an exchange with observability middleware
func Wrap(exchange interfaces.Exchange) interfaces.Exchange {
	return &observableExchange{
		exchange: exchange,
	}
}

// Ticker returns the 24h ticker with observability
func (oe *observableExchange) Ticker(ctx context.Context, symbol string) (types.Ticker, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.Ticker")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching ticker", "symbol", symbol)

	t, err := oe.exchange.Ticker(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch ticker", err, "symbol", symbol)
		return types.Ticker{}, err
	}

	logger.DebugSkip(ctx, 1, "Ticker fetched successfully", "symbol", symbol, "last", t.Last)
	return t, nil
}

func (oe *observableExchange) Depth(ctx context.Context, symbol string) (types.Depth, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.Depth")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching order book", "symbol", symbol)

	d, err := oe.exchange.Depth(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch order book", err, "symbol", symbol)
		return types.Depth{}, err
	}

	logger.DebugSkip(ctx, 1, "Order book fetched successfully", "symbol", symbol, "bids", len(d.Bids), "asks", len(d.Asks))
	return d, nil
}

// Candles fetches candles with observability
func (oe *observableExchange) Candles(ctx context.Context, symbol, granularity string, limit int) ([]types.Candle, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.Candles")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching candles", "symbol", symbol, "granularity", granularity, "limit", limit)

	candles, err := oe.exchange.Candles(ctx, symbol, granularity, limit)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch candles", err, "symbol", symbol, "granularity", granularity)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Candles fetched successfully", "symbol", symbol, "count", len(candles))
	return candles, nil
}

func (oe *observableExchange) FundingRate(ctx context.Context, symbol string) (types.FundingRate, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.FundingRate")
	defer span.End()

	f, err := oe.exchange.FundingRate(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch funding rate", err, "symbol", symbol)
		return types.FundingRate{}, err
	}

	logger.DebugSkip(ctx, 1, "Funding rate fetched", "symbol", symbol, "rate", f.Rate)
	return f, nil
}

func (oe *observableExchange) Assets(ctx context.Context) ([]types.Asset, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.Assets")
	defer span.End()

	assets, err := oe.exchange.Assets(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch account assets", err)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Account assets fetched", "count", len(assets))
	return assets, nil
}

func (oe *observableExchange) Positions(ctx context.Context) ([]types.Position, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.Positions")
	defer span.End()

	positions, err := oe.exchange.Positions(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch positions", err)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Positions fetched", "count", len(positions))
	return positions, nil
}

// PlaceOrder places an order with observability
func (oe *observableExchange) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.PlaceOrder")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing order",
		"symbol", req.Symbol,
		"side", int(req.Side),
		"size", req.Size.String(),
		"client_oid", req.ClientOID,
	)

	resp, err := oe.exchange.PlaceOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place order", err,
			"symbol", req.Symbol,
			"side", int(req.Side),
			"size", req.Size.String(),
		)
		return types.OrderResp{}, err
	}

	if resp.OrderID == "" {
		logger.WarnSkip(ctx, 1, "Order accepted without an order id",
			"symbol", req.Symbol,
			"client_oid", req.ClientOID,
		)
		return resp, nil
	}

	logger.InfoSkip(ctx, 1, "Order placed successfully",
		"symbol", req.Symbol,
		"order_id", resp.OrderID,
		"status", resp.Status,
	)
	return resp, nil
}

// Upload submits a compliance record with observability
func (oe *observableExchange) Upload(ctx context.Context, log types.AILog) (string, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.Upload")
	defer span.End()

	code, err := oe.exchange.Upload(ctx, log)
	if err != nil {
		logger.WarnSkip(ctx, 1, "Compliance upload failed",
			"stage", log.Stage,
			"code", code,
			"error", err.Error(),
		)
		return code, err
	}

	logger.DebugSkip(ctx, 1, "Compliance record uploaded", "stage", log.Stage, "code", code, "order_id", log.OrderID)
	return code, nil
}
