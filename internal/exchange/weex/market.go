package weex

import (
	"context"
	"strconv"

	"agent-team-trader/internal/types"
)

func (c *Client) Ticker(ctx context.Context, symbol string) (types.Ticker, error) {
	res, err := c.publicGet(ctx, "/capi/v2/market/ticker", query("symbol", symbol))
	if err != nil {
		return types.Ticker{}, err
	}
	return decodeTicker(symbol, data(res)), nil
}

func (c *Client) Depth(ctx context.Context, symbol string) (types.Depth, error) {
	res, err := c.publicGet(ctx, "/capi/v2/market/depth", query("symbol", symbol, "type", "step0"))
	if err != nil {
		return types.Depth{}, err
	}
	return decodeDepth(data(res)), nil
}

func (c *Client) Candles(ctx context.Context, symbol, granularity string, limit int) ([]types.Candle, error) {
	res, err := c.publicGet(ctx, "/capi/v2/market/candles",
		query("symbol", symbol, "granularity", granularity, "limit", strconv.Itoa(limit)))
	if err != nil {
		return nil, err
	}
	return decodeCandles(data(res)), nil
}

func (c *Client) FundingRate(ctx context.Context, symbol string) (types.FundingRate, error) {
	res, err := c.publicGet(ctx, "/capi/v2/market/fundingRate", query("symbol", symbol))
	if err != nil {
		return types.FundingRate{}, err
	}
	return decodeFunding(symbol, data(res)), nil
}
