package calculator

import (
	"math"

	"MarketGauge/internal/model"
)

// highestHigh returns the maximum high of bars[end-period+1 : end+1].
func highestHigh(bars []model.OHLCV, end, period int) float64 {
	high := math.Inf(-1)
	for i := end - period + 1; i <= end; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
	}
	return high
}

// lowestLow returns the minimum low of bars[end-period+1 : end+1].
func lowestLow(bars []model.OHLCV, end, period int) float64 {
	low := math.Inf(1)
	for i := end - period + 1; i <= end; i++ {
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return low
}

// windowRange returns the min and max of s[end-period+1 : end+1] and
// whether every value in the window is defined.
func windowRange(s []float64, end, period int) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := end - period + 1; i <= end; i++ {
		if !valid(s[i]) {
			return 0, 0, false
		}
		lo = math.Min(lo, s[i])
		hi = math.Max(hi, s[i])
	}
	return lo, hi, true
}
