package stage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"agent-team-trader/internal/interfaces"
	"agent-team-trader/internal/types"
)

// DefaultClientIDPrefix prefixes client order ids when none is configured.
const DefaultClientIDPrefix = "fenyr_multi"

var ErrNoDirection = errors.New("executor needs a buy or sell direction")

// Execution is the outcome of one order attempt.
type Execution struct {
	Decision types.AgentDecision
	OrderID  string
	Err      error
}

// Succeeded reports whether the exchange acknowledged the order with an id.
func (e Execution) Succeeded() bool { return e.OrderID != "" }

// Executor places market orders for a resolved consensus.
type Executor struct {
	orders  interfaces.OrderSink
	prefix  string
	maxSize decimal.Decimal
	timeout time.Duration
	now     func() time.Time
}

var _ interfaces.Stage = (*Executor)(nil)

func NewExecutor(orders interfaces.OrderSink, prefix string, maxSize decimal.Decimal, timeout time.Duration) *Executor {
	if prefix == "" {
		prefix = DefaultClientIDPrefix
	}
	return &Executor{orders: orders, prefix: prefix, maxSize: maxSize, timeout: timeout, now: time.Now}
}

func (e *Executor) Name() string { return types.SourceExecutor }

// Produce runs Execute and returns its decision. Order failures are reported in
// the decision, never as an error.
func (e *Executor) Produce(ctx context.Context, in types.StageInput) (types.AgentDecision, error) {
	if in.Direction != types.DirectionBuy && in.Direction != types.DirectionSell {
		return types.AgentDecision{}, ErrNoDirection
	}
	return e.Execute(ctx, in).Decision, nil
}

// Execute places one market order for in.Direction sized in.Size, clamped to
// the maximum position size.
func (e *Executor) Execute(ctx context.Context, in types.StageInput) Execution {
	side, signal := types.SideOpenLong, types.SignalBuy
	if in.Direction == types.DirectionSell {
		side, signal = types.SideOpenShort, types.SignalSell
	}
	now := e.now()
	size := in.Size
	if size.GreaterThan(e.maxSize) {
		size = e.maxSize
	}

	req := types.OrderReq{
		Symbol:    in.Symbol,
		Size:      size,
		Side:      side,
		OrderType: types.OrderTypeMarket,
		ClientOID: fmt.Sprintf("%s_%d", e.prefix, now.UnixMilli()),
	}
	input := map[string]any{
		"action":          "execute",
		"symbol":          in.Symbol,
		"size":            size.String(),
		"trade_direction": string(in.Direction),
		"reasoning":       in.Reasoning,
	}

	var resp types.OrderResp
	var err error
	if size.IsPositive() {
		resp, err = call(ctx, e.timeout, func(ctx context.Context) (types.OrderResp, error) {
			return e.orders.PlaceOrder(ctx, req)
		})
	} else {
		err = errors.New("approved size is zero")
	}

	output := map[string]any{
		"success":    err == nil && resp.OrderID != "",
		"order_id":   resp.OrderID,
		"client_oid": req.ClientOID,
		"symbol":     in.Symbol,
		"action":     string(in.Direction),
		"side":       int(side),
		"size":       size.String(),
	}

	confidence := 1.0
	var rationale string
	switch {
	case err != nil:
		confidence = 0
		output["error"] = err.Error()
		rationale = fmt.Sprintf("Order %s %s %s failed: %v", in.Direction, size, in.Symbol, err)
	case resp.OrderID == "":
		confidence = 0
		rationale = fmt.Sprintf("Order %s %s %s returned no order id", in.Direction, size, in.Symbol)
	default:
		rationale = fmt.Sprintf("Executed %s order %s for %s %s. %s", in.Direction, resp.OrderID, size, in.Symbol, in.Reasoning)
	}

	d := types.NewAgentDecision(types.SourceExecutor, types.StageExecution, signal, confidence, rationale,
		types.WithContext(input, output),
		types.WithCreatedAt(now.UTC()),
	)
	return Execution{Decision: d, OrderID: resp.OrderID, Err: err}
}
