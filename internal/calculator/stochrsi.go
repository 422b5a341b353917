package calculator

// StochRSI applies the stochastic oscillator to the RSI of closes and
// smooths the raw %K with a kSmooth-bar simple average. A window whose
// RSI did not move reports the midpoint 50.
func StochRSI(closes []float64, rsiPeriod, stochPeriod, kSmooth int) []float64 {
	out := nanSeries(len(closes))
	if stochPeriod <= 0 {
		return out
	}
	rsi := RSI(closes, rsiPeriod)
	if countValid(rsi) < stochPeriod {
		return out
	}

	raw := nanSeries(len(closes))
	for i := stochPeriod - 1; i < len(rsi); i++ {
		lo, hi, ok := windowRange(rsi, i, stochPeriod)
		if !ok {
			continue
		}
		if hi == lo {
			raw[i] = 50
			continue
		}
		raw[i] = (rsi[i] - lo) / (hi - lo) * 100
	}
	if kSmooth <= 1 {
		return raw
	}
	return rollingMean(raw, kSmooth)
}
