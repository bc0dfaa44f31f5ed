// Package indicator provides stateless technical indicator calculations over
// a supplied price series.
package indicator

import "math"

// RSI computes a Wilder-style Relative Strength Index over the last period
// differences of closes. Gains and losses are averaged arithmetically over
// the window. Returns false while fewer than period differences are
// available. A window with zero average loss saturates to 100 rather than
// dividing by zero.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	var avgGain, avgLoss float64
	start := len(closes) - period
	for i := start; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	if avgLoss == 0 {
		return 100.0, true
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), true
}

// EMA computes an exponential moving average with smoothing factor
// 2/(span+1), seeded by the first value. Returns false for an empty series.
func EMA(closes []float64, span int) (float64, bool) {
	if span <= 0 || len(closes) == 0 {
		return 0, false
	}
	alpha := 2.0 / float64(span+1)
	ema := closes[0]
	for _, c := range closes[1:] {
		ema = c*alpha + ema*(1-alpha)
	}
	return ema, true
}

// PctChange returns the percentage change from a to b, rounded to two
// decimals for display. A zero base is reported as no signal.
func PctChange(a, b float64) (float64, bool) {
	if a == 0 {
		return 0, false
	}
	pct := (b - a) / a * 100.0
	return math.Round(pct*100) / 100, true
}
