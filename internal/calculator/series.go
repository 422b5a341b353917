package calculator

import (
	"math"

	"github.com/guregu/null/v6"

	"MarketGauge/internal/model"
)

// Series functions return one value per input bar. NaN marks a point where
// the indicator is not defined.

func nanSeries(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func countValid(s []float64) int {
	n := 0
	for _, v := range s {
		if valid(v) {
			n++
		}
	}
	return n
}

// Latest returns the most recent defined value of s.
func Latest(s []float64) null.Float {
	for i := len(s) - 1; i >= 0; i-- {
		if valid(s[i]) {
			return null.FloatFrom(s[i])
		}
	}
	return null.Float{}
}

// rollingMean averages each trailing window. A window containing an
// undefined point is undefined.
func rollingMean(s []float64, window int) []float64 {
	out := rollingSum(s, window)
	for i, v := range out {
		if valid(v) {
			out[i] = v / float64(window)
		}
	}
	return out
}

// rollingSum sums each trailing window. A window containing an undefined
// point is undefined.
func rollingSum(s []float64, window int) []float64 {
	out := nanSeries(len(s))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(s); i++ {
		sum := 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if !valid(s[j]) {
				ok = false
				break
			}
			sum += s[j]
		}
		if ok {
			out[i] = sum
		}
	}
	return out
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func extractCloses(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
