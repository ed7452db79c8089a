package weex

import (
	"context"

	"agent-team-trader/internal/types"
)

func (c *Client) Assets(ctx context.Context) ([]types.Asset, error) {
	res, err := c.privateGet(ctx, "/capi/v2/account/assets", "")
	if err != nil {
		return nil, err
	}
	return decodeAssets(data(res)), nil
}

func (c *Client) Positions(ctx context.Context) ([]types.Position, error) {
	res, err := c.privateGet(ctx, "/capi/v2/account/position/allPosition", "")
	if err != nil {
		return nil, err
	}
	return decodePositions(data(res)), nil
}
