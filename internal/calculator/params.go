package calculator

import "MarketGauge/internal/model"

// DefaultMinBars is the bar count below which no indicator is computed.
const DefaultMinBars = 20

// StochRSIParams configures StochRSI.
type StochRSIParams struct {
	RSIPeriod   int
	StochPeriod int
	KSmooth     int
}

// CRSIParams configures ConnorsRSI. RankPeriod is an upper bound; the
// engine shrinks it on short histories.
type CRSIParams struct {
	RSIPeriod    int
	StreakPeriod int
	RankPeriod   int
}

// AdaptiveRSIParams configures AdaptiveRSI.
type AdaptiveRSIParams struct {
	Period int
	KamaN  int
	Fast   int
	Slow   int
}

// Params holds the per-indicator settings for one timeframe.
type Params struct {
	RSIPeriod       int
	StochRSI        StochRSIParams
	MFIPeriod       int
	CRSI            CRSIParams
	WilliamsRPeriod int
	RVIPeriod       int
	AdaptiveRSI     AdaptiveRSIParams
	// MinRankPeriod is the floor of the dynamic CRSI rank period.
	MinRankPeriod int
}

// DefaultParams returns the weekly settings.
func DefaultParams() Params {
	return Params{
		RSIPeriod:       14,
		StochRSI:        StochRSIParams{RSIPeriod: 14, StochPeriod: 14, KSmooth: 3},
		MFIPeriod:       14,
		CRSI:            CRSIParams{RSIPeriod: 3, StreakPeriod: 2, RankPeriod: 50},
		WilliamsRPeriod: 14,
		RVIPeriod:       10,
		AdaptiveRSI:     AdaptiveRSIParams{Period: 14, KamaN: 10, Fast: 2, Slow: 30},
		MinRankPeriod:   10,
	}
}

// MonthlyParams returns the settings tuned for the short monthly series.
func MonthlyParams() Params {
	p := DefaultParams()
	p.StochRSI = StochRSIParams{RSIPeriod: 7, StochPeriod: 7, KSmooth: 3}
	p.CRSI.RankPeriod = 12
	p.AdaptiveRSI = AdaptiveRSIParams{Period: 14, KamaN: 5, Fast: 2, Slow: 10}
	p.MinRankPeriod = 5
	return p
}

// ParamsFor returns the default settings for a timeframe.
func ParamsFor(tf model.Timeframe) Params {
	if tf == model.Monthly {
		return MonthlyParams()
	}
	return DefaultParams()
}

// rankPeriod shrinks the CRSI rank period to fit n bars, never going
// below MinRankPeriod or above the configured bound.
func (p Params) rankPeriod(n int) int {
	r := n - 10
	if r < p.MinRankPeriod {
		r = p.MinRankPeriod
	}
	if r > p.CRSI.RankPeriod {
		r = p.CRSI.RankPeriod
	}
	return r
}
