package weex

import (
	"context"
	"errors"
	"strconv"

	"agent-team-trader/internal/types"
)

type placeOrderBody struct {
	Symbol     string `json:"symbol"`
	ClientOID  string `json:"client_oid"`
	Size       string `json:"size"`
	Type       string `json:"type"`
	OrderType  string `json:"order_type"`
	MatchPrice string `json:"match_price"`
	Price      string `json:"price,omitempty"`
}

// PlaceOrder submits a futures order. An accepted reply without an order id is
// returned as-is with an empty OrderID; deciding what that means is up to the caller.
func (c *Client) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if !req.Size.IsPositive() {
		return types.OrderResp{}, errors.New("order size must be positive")
	}
	body := placeOrderBody{
		Symbol:     req.Symbol,
		ClientOID:  req.ClientOID,
		Size:       req.Size.String(),
		Type:       strconv.Itoa(int(req.Side)),
		OrderType:  strconv.Itoa(int(req.OrderType)),
		MatchPrice: "0",
	}
	if req.OrderType == types.OrderTypeMarket {
		body.MatchPrice = "1"
	} else if req.Price.IsPositive() {
		body.Price = req.Price.String()
	}
	if body.ClientOID == "" {
		body.ClientOID = strconv.FormatInt(c.now().UnixMilli(), 10)
	}

	res, err := c.post(ctx, "/capi/v2/order/placeOrder", body)
	if err != nil {
		return types.OrderResp{}, err
	}
	d := first(data(res))
	out := types.OrderResp{
		OrderID:   str(d, "order_id", "orderId"),
		ClientOID: str(d, "client_oid", "clientOid"),
	}
	if out.ClientOID == "" {
		out.ClientOID = body.ClientOID
	}
	if out.OrderID != "" {
		out.Status = "SUBMITTED"
	}
	return out, nil
}

// Upload submits one compliance record and returns the exchange's status code.
func (c *Client) Upload(ctx context.Context, log types.AILog) (string, error) {
	body := map[string]any{
		"stage":       log.Stage,
		"model":       log.Model,
		"input":       log.Input,
		"output":      log.Output,
		"explanation": types.Truncate(log.Explanation, types.MaxExplanationLen),
	}
	if log.OrderID != "" {
		if id, err := strconv.ParseInt(log.OrderID, 10, 64); err == nil {
			body["orderId"] = id
		} else {
			body["orderId"] = log.OrderID
		}
	}

	res, err := c.post(ctx, "/capi/v2/order/uploadAiLog", body)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr.Code, err
		}
		return "", err
	}
	if code := res.Get("code").String(); code != "" {
		return code, nil
	}
	return SuccessCode, nil
}
