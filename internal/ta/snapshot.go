package ta

import (
	"math"

	"agent-team-trader/internal/types"
)

// Snapshot is the indicator set handed to the market stage. Values keep full
// precision; Display produces the rounded view used in prompts.
type Snapshot struct {
	Price         float64
	RSI14         float64
	EMA20         float64
	EMA50         float64
	MACD          float64
	MACDSignal    float64
	MACDHistogram float64
	SMA20         float64
	BBMiddle      float64
	BBUpper       float64
	BBLower       float64
	ATR14         float64
	Candles       int
}

// Compute derives a snapshot from candles ordered oldest first.
func Compute(candles []types.Candle) Snapshot {
	n := len(candles)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}
	s := Snapshot{Candles: n}
	if n > 0 {
		s.Price = closes[n-1]
	}
	s.RSI14 = RSI(closes, RSIPeriod)
	s.EMA20 = EMA(closes, 20)
	s.EMA50 = EMA(closes, 50)
	s.MACD, s.MACDSignal, s.MACDHistogram = MACD(closes)
	s.SMA20 = SMA(closes, 20)
	s.BBMiddle, s.BBUpper, s.BBLower = Bollinger(closes, 20, 2)
	s.ATR14 = ATR(highs, lows, closes, 14)
	return s
}

// Display returns the rounded, JSON-safe view. Undefined values become nil.
func (s Snapshot) Display() map[string]any {
	return map[string]any{
		"rsi_14":            finite(s.RSI14),
		"ema_20":            finite(s.EMA20),
		"ema_50":            finite(s.EMA50),
		"macd":              finite(s.MACD),
		"macd_signal":       finite(s.MACDSignal),
		"macd_histogram":    finite(s.MACDHistogram),
		"sma_20":            finite(s.SMA20),
		"bb_upper":          finite(s.BBUpper),
		"bb_middle":         finite(s.BBMiddle),
		"bb_lower":          finite(s.BBLower),
		"atr_14":            finite(s.ATR14),
		"current_price":     s.Price,
		"price_above_ema20": s.Price > s.EMA20,
		"price_above_ema50": s.Price > s.EMA50,
		"ema_bullish_cross": s.EMA20 > s.EMA50,
	}
}

func finite(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return Round2(v)
}
