package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"agent-team-trader/internal/compliance"
	"agent-team-trader/internal/interfaces"
	"agent-team-trader/internal/llm"
	"agent-team-trader/internal/logger"
	"agent-team-trader/internal/stage"
	"agent-team-trader/internal/ta"
	"agent-team-trader/internal/tradelog"
	"agent-team-trader/internal/types"
)

const (
	ToolMarketData    = "get_market_data"
	ToolIndicators    = "get_technical_indicators"
	ToolAccountStatus = "get_account_status"
	ToolExecuteTrade  = "execute_trade"
	ToolFundingRate   = "get_funding_rate"
	ToolStopLoss      = "set_stop_loss_take_profit"
)

const (
	// DefaultMinConfidence is the lowest confidence execute_trade accepts.
	DefaultMinConfidence  = 0.6
	DefaultClientIDPrefix = "fenyr"
)

var (
	errInvalidArguments = errors.New("arguments are not valid JSON")
	errNoPriceData      = errors.New("no price data available")
)

var defaultIndicators = []string{"rsi", "ema_20", "macd"}

// actionSides maps execute_trade actions to exchange order sides.
var actionSides = map[string]types.Side{
	"open_long":   types.SideOpenLong,
	"close_short": types.SideCloseShort,
	"open_short":  types.SideOpenShort,
	"close_long":  types.SideCloseLong,
}

type ToolboxConfig struct {
	AllowedSymbols []string
	QuoteCoin      string
	Granularity    string
	CandleLimit    int
	MaxSize        decimal.Decimal
	MinConfidence  float64
	ClientIDPrefix string
	Timeouts       stage.Timeouts
	// Journal appends executed trades to the daily trade log.
	Journal bool
}

// Toolbox runs the tools the agent may call against an exchange. Every
// execute_trade that reaches the exchange is reported for compliance.
type Toolbox struct {
	ex       interfaces.Exchange
	reporter *compliance.Reporter
	cfg      ToolboxConfig
	now      func() time.Time
	trades   atomic.Int64
}

// NewToolbox builds a toolbox. reporter may be nil.
func NewToolbox(ex interfaces.Exchange, reporter *compliance.Reporter, cfg ToolboxConfig) *Toolbox {
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	if cfg.ClientIDPrefix == "" {
		cfg.ClientIDPrefix = DefaultClientIDPrefix
	}
	if cfg.QuoteCoin == "" {
		cfg.QuoteCoin = "USDT"
	}
	if cfg.Granularity == "" {
		cfg.Granularity = "1h"
	}
	if cfg.CandleLimit <= 0 {
		cfg.CandleLimit = 50
	}
	return &Toolbox{ex: ex, reporter: reporter, cfg: cfg, now: time.Now}
}

// Trades is the number of orders the toolbox has placed.
func (tb *Toolbox) Trades() int64 { return tb.trades.Load() }

// Definitions describes every tool in the chat completions format.
func (tb *Toolbox) Definitions() []llm.Tool {
	symbol := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc, "enum": tb.cfg.AllowedSymbols}
	}
	object := func(props map[string]any, required ...string) map[string]any {
		if required == nil {
			required = []string{}
		}
		return map[string]any{"type": "object", "properties": props, "required": required}
	}

	return []llm.Tool{
		llm.FunctionTool(ToolMarketData,
			"Get current market data including last price, 24h range and volume, and best bid and ask. Use this to understand market conditions before deciding.",
			object(map[string]any{"symbol": symbol("Trading pair symbol, e.g. cmt_btcusdt")}, "symbol")),
		llm.FunctionTool(ToolIndicators,
			"Calculate technical indicators from recent candles. Use this to identify trading signals.",
			object(map[string]any{
				"symbol": symbol("Trading pair symbol"),
				"indicators": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Indicators to calculate: rsi, ema_20, ema_50, macd, bollinger",
				},
			}, "symbol", "indicators")),
		llm.FunctionTool(ToolAccountStatus,
			"Get account balance, equity and open positions. Use this to understand available capital and exposure.",
			object(map[string]any{})),
		llm.FunctionTool(ToolExecuteTrade,
			"Place a market order. Only call this with high confidence and clear reasoning; the reasoning is logged for compliance.",
			object(map[string]any{
				"symbol": symbol("Trading pair to trade"),
				"action": map[string]any{
					"type":        "string",
					"enum":        []string{"open_long", "close_long", "open_short", "close_short"},
					"description": "Trade action to execute",
				},
				"size":       map[string]any{"type": "string", "description": fmt.Sprintf("Position size in base currency, at most %s", tb.cfg.MaxSize)},
				"confidence": map[string]any{"type": "number", "description": "Confidence 0-1 for this trade"},
				"reasoning":  map[string]any{"type": "string", "description": "Detailed reasoning for this trade"},
			}, "symbol", "action", "size", "confidence", "reasoning")),
		llm.FunctionTool(ToolFundingRate,
			"Get the current funding rate and the next funding time.",
			object(map[string]any{"symbol": symbol("Trading pair symbol")}, "symbol")),
		llm.FunctionTool(ToolStopLoss,
			"Record stop loss and take profit levels for a position.",
			object(map[string]any{
				"symbol":            symbol("Trading pair"),
				"stop_loss_price":   map[string]any{"type": "string", "description": "Stop loss price"},
				"take_profit_price": map[string]any{"type": "string", "description": "Take profit price"},
			}, "symbol")),
	}
}

// Call runs one tool call and returns its JSON result. Failures are reported
// to the model as {"error": ...} rather than ending the turn.
func (tb *Toolbox) Call(ctx context.Context, call llm.ToolCall) string {
	args := call.Function.Arguments
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}

	var result map[string]any
	var err error
	switch {
	case !gjson.Valid(args):
		err = errInvalidArguments
	default:
		result, err = tb.dispatch(ctx, call.Function.Name, gjson.Parse(args))
	}
	if err != nil {
		logger.Warn(ctx, "Agent tool failed", "tool", call.Function.Name, "error", err.Error())
		result = map[string]any{"error": err.Error()}
	}

	b, merr := json.Marshal(result)
	if merr != nil {
		return fmt.Sprintf(`{"error":%q}`, merr.Error())
	}
	return string(b)
}

func (tb *Toolbox) dispatch(ctx context.Context, name string, args gjson.Result) (map[string]any, error) {
	if name == ToolAccountStatus {
		return tb.accountStatus(ctx)
	}
	h, ok := tb.handlers()[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	symbol := strings.ToLower(args.Get("symbol").String())
	if !slices.Contains(tb.cfg.AllowedSymbols, symbol) {
		return nil, fmt.Errorf("symbol %q is not allowed", symbol)
	}
	return h(ctx, symbol, args)
}

type handler func(ctx context.Context, symbol string, args gjson.Result) (map[string]any, error)

func (tb *Toolbox) handlers() map[string]handler {
	return map[string]handler{
		ToolMarketData:   tb.marketData,
		ToolIndicators:   tb.indicators,
		ToolExecuteTrade: tb.executeTrade,
		ToolFundingRate:  tb.fundingRate,
		ToolStopLoss:     tb.stopLoss,
	}
}

func (tb *Toolbox) marketData(ctx context.Context, symbol string, _ gjson.Result) (map[string]any, error) {
	ticker, err := bounded(ctx, tb.cfg.Timeouts.MarketData, func(ctx context.Context) (types.Ticker, error) {
		return tb.ex.Ticker(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	depth, err := bounded(ctx, tb.cfg.Timeouts.MarketData, func(ctx context.Context) (types.Depth, error) {
		return tb.ex.Depth(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"symbol":           symbol,
		"last_price":       ticker.Last,
		"high_24h":         ticker.High24h,
		"low_24h":          ticker.Low24h,
		"volume_24h":       ticker.Volume24h,
		"price_change_pct": ticker.PriceChangePercent,
		"best_bid":         nil,
		"best_ask":         nil,
		"timestamp":        tb.now().UTC().Format(time.RFC3339),
	}
	if bid, ok := depth.BestBid(); ok {
		out["best_bid"] = bid
	}
	if ask, ok := depth.BestAsk(); ok {
		out["best_ask"] = ask
	}
	return out, nil
}

func (tb *Toolbox) indicators(ctx context.Context, symbol string, args gjson.Result) (map[string]any, error) {
	wanted := defaultIndicators
	if list := args.Get("indicators").Array(); len(list) > 0 {
		wanted = make([]string, 0, len(list))
		for _, v := range list {
			wanted = append(wanted, strings.ToLower(v.String()))
		}
	}

	candles, err := bounded(ctx, tb.cfg.Timeouts.MarketData, func(ctx context.Context) ([]types.Candle, error) {
		return tb.ex.Candles(ctx, symbol, tb.cfg.Granularity, tb.cfg.CandleLimit)
	})
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, errNoPriceData
	}

	view := ta.Compute(candles).Display()
	out := map[string]any{"symbol": symbol, "current_price": view["current_price"]}
	for _, name := range wanted {
		switch name {
		case "rsi":
			out["rsi_14"] = view["rsi_14"]
		case "ema_20", "ema_50":
			out[name] = view[name]
		case "macd":
			out["macd"] = map[string]any{
				"macd":      view["macd"],
				"signal":    view["macd_signal"],
				"histogram": view["macd_histogram"],
			}
		case "bollinger":
			out["bollinger"] = map[string]any{
				"upper":  view["bb_upper"],
				"middle": view["bb_middle"],
				"lower":  view["bb_lower"],
			}
		}
	}
	return out, nil
}

func (tb *Toolbox) accountStatus(ctx context.Context) (map[string]any, error) {
	assets, err := bounded(ctx, tb.cfg.Timeouts.Account, tb.ex.Assets)
	if err != nil {
		return nil, err
	}
	positions, err := bounded(ctx, tb.cfg.Timeouts.Account, tb.ex.Positions)
	if err != nil {
		return nil, err
	}

	var quote types.Asset
	for _, a := range assets {
		if strings.EqualFold(a.Coin, tb.cfg.QuoteCoin) {
			quote = a
			break
		}
	}

	active := make([]map[string]any, 0, len(positions))
	pnl := 0.0
	for _, p := range positions {
		if p.Size <= 0 {
			continue
		}
		pnl += p.UnrealizedPL
		active = append(active, map[string]any{
			"symbol":         p.Symbol,
			"size":           p.Size,
			"side":           p.Side,
			"entry_price":    p.AvgOpenPrice,
			"unrealized_pnl": p.UnrealizedPL,
		})
	}

	q := strings.ToLower(tb.cfg.QuoteCoin)
	return map[string]any{
		"available_" + q:   quote.Available,
		"equity_" + q:      quote.Equity,
		"unrealized_pnl":   pnl,
		"active_positions": active,
		"position_count":   len(active),
	}, nil
}

func (tb *Toolbox) executeTrade(ctx context.Context, symbol string, args gjson.Result) (map[string]any, error) {
	action := strings.ToLower(args.Get("action").String())
	confidence := args.Get("confidence").Float()
	reasoning := args.Get("reasoning").String()

	if confidence < tb.cfg.MinConfidence {
		return rejected(fmt.Sprintf("confidence too low, minimum %.2f required", tb.cfg.MinConfidence)), nil
	}
	size, err := decimal.NewFromString(strings.TrimSpace(args.Get("size").String()))
	if err != nil || !size.IsPositive() {
		return rejected(fmt.Sprintf("invalid size %q", args.Get("size").String())), nil
	}
	if size.GreaterThan(tb.cfg.MaxSize) {
		return rejected(fmt.Sprintf("size exceeds max of %s", tb.cfg.MaxSize)), nil
	}
	side, ok := actionSides[action]
	if !ok {
		return rejected(fmt.Sprintf("invalid action: %s", action)), nil
	}

	ticker, err := bounded(ctx, tb.cfg.Timeouts.MarketData, func(ctx context.Context) (types.Ticker, error) {
		return tb.ex.Ticker(ctx, symbol)
	})
	if err != nil {
		return nil, fmt.Errorf("price check before order: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := tb.now()
	req := types.OrderReq{
		Symbol:    symbol,
		Size:      size,
		Side:      side,
		OrderType: types.OrderTypeMarket,
		ClientOID: fmt.Sprintf("%s_%d", tb.cfg.ClientIDPrefix, now.UnixMilli()),
	}
	resp, err := bounded(ctx, tb.cfg.Timeouts.Order, func(ctx context.Context) (types.OrderResp, error) {
		return tb.ex.PlaceOrder(ctx, req)
	})
	if err != nil {
		return rejected(fmt.Sprintf("order failed: %v", err)), nil
	}
	tb.trades.Add(1)

	input := map[string]any{
		"symbol":             symbol,
		"action":             action,
		"market_price":       ticker.Last,
		"analysis_timestamp": now.UTC().Format(time.RFC3339),
	}
	output := map[string]any{
		"signal":     strings.ToUpper(action),
		"size":       size.String(),
		"confidence": confidence,
		"order_id":   resp.OrderID,
	}
	if tb.reporter != nil {
		d := types.NewAgentDecision(types.SourceAgent, types.StageStrategy, actionSignal(side), confidence, reasoning,
			types.WithContext(input, output),
			types.WithCreatedAt(now.UTC()),
		)
		tb.reporter.Submit(ctx, d, resp.OrderID)
	}
	if tb.cfg.Journal {
		if err := tradelog.AppendTrade(tradelog.TradeEntry{
			CycleID:    req.ClientOID,
			Symbol:     symbol,
			Side:       action,
			Size:       size.String(),
			OrderID:    resp.OrderID,
			Reason:     reasoning,
			Confidence: confidence,
			Extra:      map[string]any{"source": types.SourceAgent, "price": ticker.Last},
		}); err != nil {
			logger.Warn(ctx, "Failed to journal agent trade", "order_id", resp.OrderID, "error", err.Error())
		}
	}
	logger.Trade(ctx, symbol, action, size.String(), ticker.Last, resp.OrderID, "confidence", confidence, "source", types.SourceAgent)

	return map[string]any{
		"executed":             resp.OrderID != "",
		"order_id":             resp.OrderID,
		"client_oid":           req.ClientOID,
		"symbol":               symbol,
		"action":               action,
		"size":                 size.String(),
		"price":                ticker.Last,
		"confidence":           confidence,
		"compliance_submitted": tb.reporter != nil,
		"reasoning":            reasoning,
	}, nil
}

func (tb *Toolbox) fundingRate(ctx context.Context, symbol string, _ gjson.Result) (map[string]any, error) {
	f, err := bounded(ctx, tb.cfg.Timeouts.MarketData, func(ctx context.Context) (types.FundingRate, error) {
		return tb.ex.FundingRate(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"symbol":            symbol,
		"funding_rate":      f.Rate,
		"next_funding_time": f.NextFundingTime,
	}, nil
}

// stopLoss records the requested levels. No trigger orders are placed.
func (tb *Toolbox) stopLoss(ctx context.Context, symbol string, args gjson.Result) (map[string]any, error) {
	sl := args.Get("stop_loss_price").String()
	tp := args.Get("take_profit_price").String()
	logger.Risk(ctx, symbol, "TPSL_REQUESTED", "stop_loss_price", sl, "take_profit_price", tp)
	return map[string]any{
		"status":            "recorded",
		"symbol":            symbol,
		"stop_loss_price":   sl,
		"take_profit_price": tp,
		"note":              "levels are logged only; no trigger orders were placed",
	}, nil
}

func rejected(reason string) map[string]any {
	return map[string]any{"executed": false, "error": reason}
}

func actionSignal(side types.Side) types.SignalKind {
	if side == types.SideOpenLong || side == types.SideCloseShort {
		return types.SignalBuy
	}
	return types.SignalSell
}

func bounded[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return fn(ctx)
}
