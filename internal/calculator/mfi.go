package calculator

import "MarketGauge/internal/model"

// MFI computes the money flow index over period bars. Typical price is
// (high+low+close)/3 and flow is typical price times volume, split into
// positive and negative by the direction of the typical price change.
func MFI(bars []model.OHLCV, period int) []float64 {
	out := nanSeries(len(bars))
	if period <= 0 || len(bars) < period+1 {
		return out
	}

	pos := make([]float64, len(bars))
	neg := make([]float64, len(bars))
	prevTP := typicalPrice(bars[0])
	for i := 1; i < len(bars); i++ {
		tp := typicalPrice(bars[i])
		flow := tp * bars[i].Volume
		switch {
		case tp > prevTP:
			pos[i] = flow
		case tp < prevTP:
			neg[i] = flow
		}
		prevTP = tp
	}

	posSum := rollingSum(pos, period)
	negSum := rollingSum(neg, period)
	for i := range bars {
		p, n := posSum[i], negSum[i]
		if !valid(p) || !valid(n) {
			continue
		}
		switch {
		case n == 0 && p > 0:
			out[i] = 100
		case n == 0:
			out[i] = 50
		default:
			out[i] = clip(100-100/(1+p/n), 0, 100)
		}
	}
	return out
}

func typicalPrice(b model.OHLCV) float64 {
	return (b.High + b.Low + b.Close) / 3
}
