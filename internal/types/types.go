package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// SignalKind is the opinion a single stage emits.
type SignalKind string

const (
	SignalBuy     SignalKind = "buy"
	SignalSell    SignalKind = "sell"
	SignalHold    SignalKind = "hold"
	SignalNeutral SignalKind = "neutral"
	SignalBullish SignalKind = "bullish"
	SignalBearish SignalKind = "bearish"
	SignalApprove SignalKind = "approve"
	SignalReject  SignalKind = "reject"
	SignalReduce  SignalKind = "reduce"
)

// Action is the consensus outcome for a cycle.
type Action string

const (
	ActionExecute Action = "execute"
	ActionHold    Action = "hold"
	ActionAlert   Action = "alert"
)

type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
	DirectionNone Direction = "none"
)

// Outcome records what the execution gate did with a consensus.
type Outcome string

const (
	OutcomeBlocked  Outcome = "blocked"
	OutcomeAlerted  Outcome = "alerted"
	OutcomeExecuted Outcome = "executed"
	OutcomeFailed   Outcome = "failed"
)

// Stage names and labels as they appear in the decision trail and compliance log.
const (
	SourceMarket      = "MarketAnalyst"
	SourceSentiment   = "SentimentAgent"
	SourceRisk        = "RiskManager"
	SourceExecutor    = "Executor"
	SourceCoordinator = "Coordinator"
	SourceAgent       = "TradingAgent"

	StageTechnical = "Technical Analysis"
	StageSentiment = "Sentiment Analysis"
	StageRisk      = "Risk Assessment"
	StageExecution = "Order Execution"
	StageDecision  = "Decision Making"
	StageStrategy  = "Strategy Generation"
)

// Votes holds the summed stage weights per direction bucket.
type Votes struct {
	Buy  float64 `json:"buy"`
	Sell float64 `json:"sell"`
	Hold float64 `json:"hold"`
}

type ConsensusResult struct {
	Action        Action    `json:"action"`
	WeightedScore float64   `json:"weighted_score"`
	Direction     Direction `json:"direction"`
	Votes         Votes     `json:"votes"`
	Vetoed        bool      `json:"vetoed,omitempty"`
}

// TeamDecision is the result of one full cycle.
type TeamDecision struct {
	CycleID      string          `json:"cycle_id"`
	Symbol       string          `json:"symbol"`
	Action       Action          `json:"action"`
	Direction    Direction       `json:"direction"`
	ApprovedSize decimal.Decimal `json:"approved_size"`
	Confidence   float64         `json:"confidence"`
	Reasoning    string          `json:"reasoning"`
	Outcome      Outcome         `json:"outcome"`
	OrderID      string          `json:"order_id,omitempty"`
	Decisions    []AgentDecision `json:"decisions"`
	HoldRecord   *AgentDecision  `json:"hold_record,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
}

// StageInput is what the coordinator hands to a stage. The risk stage reads the
// proposed fields; the executor reads the trade fields.
type StageInput struct {
	Symbol             string
	ProposedSignal     SignalKind
	ProposedConfidence float64

	Direction Direction
	Size      decimal.Decimal
	Reasoning string
}

type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

type Ticker struct {
	Symbol             string  `json:"symbol"`
	Last               float64 `json:"last"`
	High24h            float64 `json:"high_24h"`
	Low24h             float64 `json:"low_24h"`
	Volume24h          float64 `json:"volume_24h"`
	PriceChangePercent float64 `json:"price_change_percent"`
}

type Level struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

type Depth struct {
	Bids []Level `json:"bids"`
	Asks []Level `json:"asks"`
}

// BestBid returns the top bid price, if any.
func (d Depth) BestBid() (float64, bool) {
	if len(d.Bids) == 0 {
		return 0, false
	}
	return d.Bids[0].Price, true
}

// BestAsk returns the top ask price, if any.
func (d Depth) BestAsk() (float64, bool) {
	if len(d.Asks) == 0 {
		return 0, false
	}
	return d.Asks[0].Price, true
}

type FundingRate struct {
	Symbol          string  `json:"symbol"`
	Rate            float64 `json:"funding_rate"`
	NextFundingTime int64   `json:"next_funding_time"`
}

type Asset struct {
	Coin      string  `json:"coin"`
	Available float64 `json:"available"`
	Equity    float64 `json:"equity"`
}

type Position struct {
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"`
	Size         float64 `json:"size"`
	AvgOpenPrice float64 `json:"avg_open_price"`
	UnrealizedPL float64 `json:"unrealized_pl"`
}

// Side is the exchange's futures order side code.
type Side int

const (
	SideOpenLong   Side = 1
	SideCloseShort Side = 2
	SideOpenShort  Side = 3
	SideCloseLong  Side = 4
)

type OrderType int

const (
	OrderTypeLimit  OrderType = 0
	OrderTypeMarket OrderType = 1
)

type OrderReq struct {
	Symbol    string
	Size      decimal.Decimal
	Side      Side
	OrderType OrderType
	Price     decimal.Decimal
	ClientOID string
}

type OrderResp struct {
	OrderID   string `json:"order_id"`
	ClientOID string `json:"client_oid"`
	Status    string `json:"status"`
}

// AILog is one compliance record submitted to the exchange.
type AILog struct {
	Stage       string         `json:"stage"`
	Model       string         `json:"model"`
	Input       map[string]any `json:"input"`
	Output      map[string]any `json:"output"`
	Explanation string         `json:"explanation"`
	OrderID     string         `json:"orderId,omitempty"`
}

type NewsHeadline struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at,omitempty"`
}
