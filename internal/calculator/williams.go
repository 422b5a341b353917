package calculator

import "MarketGauge/internal/model"

// WilliamsR computes Williams %R in [-100, 0]. A window with no range is
// undefined.
func WilliamsR(bars []model.OHLCV, period int) []float64 {
	out := nanSeries(len(bars))
	if period <= 0 || len(bars) < period {
		return out
	}
	for i := period - 1; i < len(bars); i++ {
		hh := highestHigh(bars, i, period)
		ll := lowestLow(bars, i, period)
		if hh == ll {
			continue
		}
		out[i] = (hh - bars[i].Close) / (hh - ll) * -100
	}
	return out
}
