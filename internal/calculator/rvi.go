package calculator

import "MarketGauge/internal/model"

// RVI computes the relative vigor index: the period-bar average of
// (close-open)/(high-low). A bar with no range is undefined and so is
// every window containing it.
func RVI(bars []model.OHLCV, period int) []float64 {
	if period <= 0 || len(bars) < period {
		return nanSeries(len(bars))
	}
	ratio := nanSeries(len(bars))
	for i, b := range bars {
		if b.High == b.Low {
			continue
		}
		ratio[i] = (b.Close - b.Open) / (b.High - b.Low)
	}
	return rollingMean(ratio, period)
}
