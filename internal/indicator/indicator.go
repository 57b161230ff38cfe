// Package indicator provides the moving-average and oscillator helpers used
// by the builtin strategy rules. All functions operate on closing-price
// series and tolerate short lookback windows: near the start of a series
// they compute over fewer samples than the nominal period.
package indicator

// SMA returns the simple moving average of the trailing min(period, len)
// values. It returns 0 for an empty series.
func SMA(values []float64, period int) float64 {
	if len(values) == 0 || period <= 0 {
		return 0
	}
	n := period
	if len(values) < n {
		n = len(values)
	}
	window := values[len(values)-n:]
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	return sum / float64(n)
}

// EMA returns the exponential moving average over the trailing
// min(period, len) values. The series is seeded with the first value of the
// window, then each subsequent value is blended with multiplier 2/(period+1).
// It returns 0 for an empty series.
func EMA(values []float64, period int) float64 {
	if len(values) == 0 || period <= 0 {
		return 0
	}
	n := period
	if len(values) < n {
		n = len(values)
	}
	window := values[len(values)-n:]
	multiplier := 2.0 / (float64(period) + 1.0)
	ema := window[0]
	for _, v := range window[1:] {
		ema = v*multiplier + ema*(1-multiplier)
	}
	return ema
}

// RSI returns the Relative Strength Index over the trailing period deltas.
// It returns the neutral value 50 when fewer than period+1 samples are
// available, and 100 when the window contains no losing deltas.
func RSI(values []float64, period int) float64 {
	if period <= 0 || len(values) < period+1 {
		return 50
	}
	window := values[len(values)-period-1:]
	var gains, losses float64
	for i := 1; i < len(window); i++ {
		change := window[i] - window[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
