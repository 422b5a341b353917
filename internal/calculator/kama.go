package calculator

import "math"

// KAMA computes Kaufman's adaptive moving average. The efficiency ratio
// is |x[i]-x[i-n]| over the sum of absolute one-bar changes in the same
// span, taken as 0 where it cannot be computed; the smoothing constant is
// (er*(fastSC-slowSC)+slowSC)^2 with fastSC=2/(fast+1), slowSC=2/(slow+1).
func KAMA(values []float64, n, fast, slow int) []float64 {
	out := nanSeries(len(values))
	if n <= 0 || countValid(values) < n+1 {
		return out
	}

	diffs := nanSeries(len(values))
	for i := 1; i < len(values); i++ {
		diffs[i] = math.Abs(values[i] - values[i-1])
	}
	volatility := rollingSum(diffs, n)

	fastSC := 2.0 / (float64(fast) + 1)
	slowSC := 2.0 / (float64(slow) + 1)
	sc := make([]float64, len(values))
	for i := range values {
		er := 0.0
		if i >= n && valid(volatility[i]) && volatility[i] != 0 {
			change := math.Abs(values[i] - values[i-n])
			if valid(change) {
				er = change / volatility[i]
			}
		}
		sc[i] = math.Pow(er*(fastSC-slowSC)+slowSC, 2)
	}

	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		prev := out[i-1]
		if valid(prev) && valid(values[i]) {
			out[i] = prev + sc[i]*(values[i]-prev)
		} else {
			out[i] = prev
		}
	}
	return out
}

// AdaptiveRSI is the RSI of the KAMA-smoothed closes. It needs
// (kamaN+1)+(period+1) closes and falls back to the plain RSI when the
// smoothed series yields nothing.
func AdaptiveRSI(closes []float64, period, kamaN, fast, slow int) []float64 {
	if countValid(closes) < (kamaN+1)+(period+1) {
		return nanSeries(len(closes))
	}
	kama := KAMA(closes, kamaN, fast, slow)
	if countValid(kama) == 0 {
		return RSI(closes, period)
	}
	rsi := RSI(kama, period)
	if countValid(rsi) == 0 {
		return RSI(closes, period)
	}
	return rsi
}
