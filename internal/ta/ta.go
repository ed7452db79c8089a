package ta

import "math"

const (
	RSIPeriod    = 14
	MACDFast     = 12
	MACDSlow     = 26
	MACDSignal   = 9
	neutralRSI   = 50.0
	saturatedRSI = 100.0
)

func SMA(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(n)
}

// RSI is the simple-average relative strength index over the last period deltas.
// It reads 50 when there are not enough prices and 100 when nothing was lost.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return neutralRSI
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return saturatedRSI
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100.0 - (100.0 / (1.0 + rs))
}

// EMA seeds with the first price and folds the rest in with multiplier 2/(period+1).
// A series shorter than period still uses every point. Empty input gives 0.
func EMA(closes []float64, period int) float64 {
	if len(closes) == 0 || period <= 0 {
		return 0
	}
	k := 2.0 / float64(period+1)
	ema := closes[0]
	for _, p := range closes[1:] {
		ema = (p-ema)*k + ema
	}
	return ema
}

// emaSeries returns the running EMA after each price.
func emaSeries(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if len(closes) == 0 || period <= 0 {
		return out
	}
	k := 2.0 / float64(period+1)
	ema := closes[0]
	out[0] = ema
	for i := 1; i < len(closes); i++ {
		ema = (closes[i]-ema)*k + ema
		out[i] = ema
	}
	return out
}

// MACD returns the 12/26 line, the 9-period signal over the trailing line history,
// and the histogram. Histogram is exactly line minus signal.
func MACD(closes []float64) (line, signal, hist float64) {
	if len(closes) == 0 {
		return 0, 0, 0
	}
	fast := emaSeries(closes, MACDFast)
	slow := emaSeries(closes, MACDSlow)
	history := make([]float64, len(closes))
	for i := range closes {
		history[i] = fast[i] - slow[i]
	}
	line = history[len(history)-1]
	start := len(history) - MACDSignal
	if start < 0 {
		start = 0
	}
	signal = EMA(history[start:], MACDSignal)
	hist = line - signal
	return line, signal, hist
}

func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	m := SMA(vals, n)
	s := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		d := vals[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}

func Bollinger(closes []float64, n int, k float64) (mid, up, low float64) {
	mid = SMA(closes, n)
	sd := StdDev(closes, n)
	up = mid + k*sd
	low = mid - k*sd
	return
}

func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return math.NaN()
	}
	if period <= 0 || len(closes) < period+1 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		tr := math.Max(highs[i]-lows[i], math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))
		sum += tr
	}
	return sum / float64(period)
}

// Round2 rounds half away from zero to two decimals. Display only.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.Round(v*100) / 100
}
