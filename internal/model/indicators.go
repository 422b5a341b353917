package model

import "github.com/guregu/null/v6"

// IndicatorKey identifies one of the seven oscillators.
type IndicatorKey string

const (
	KeyRSI         IndicatorKey = "rsi"
	KeyStochRSI    IndicatorKey = "stochRsi"
	KeyMFI         IndicatorKey = "mfi"
	KeyCRSI        IndicatorKey = "crsi"
	KeyWilliamsR   IndicatorKey = "williamsR"
	KeyRVI         IndicatorKey = "rvi"
	KeyAdaptiveRSI IndicatorKey = "adaptiveRsi"
)

// IndicatorKeys lists every indicator in its canonical order.
var IndicatorKeys = []IndicatorKey{
	KeyRSI, KeyStochRSI, KeyMFI, KeyCRSI, KeyWilliamsR, KeyRVI, KeyAdaptiveRSI,
}

// Timeframe is the resampled bar size indicators are computed on.
type Timeframe string

const (
	Weekly  Timeframe = "weekly"
	Monthly Timeframe = "monthly"
)

// Timeframes lists the supported timeframes.
var Timeframes = []Timeframe{Monthly, Weekly}

// IndicatorSet holds the latest value of each indicator for one timeframe.
// An invalid null.Float means the indicator is unavailable.
type IndicatorSet map[IndicatorKey]null.Float

// NewIndicatorSet returns a set with every indicator unavailable.
func NewIndicatorSet() IndicatorSet {
	s := make(IndicatorSet, len(IndicatorKeys))
	for _, k := range IndicatorKeys {
		s[k] = null.Float{}
	}
	return s
}

// IndicatorReading pairs the monthly and weekly value of one indicator.
type IndicatorReading struct {
	Monthly null.Float `json:"monthly"`
	Weekly  null.Float `json:"weekly"`
}

// Get returns the value for the given timeframe.
func (r IndicatorReading) Get(tf Timeframe) null.Float {
	if tf == Monthly {
		return r.Monthly
	}
	return r.Weekly
}

// IndicatorSnapshot maps every indicator to its monthly and weekly reading.
type IndicatorSnapshot map[IndicatorKey]IndicatorReading

// NewIndicatorSnapshot merges per-timeframe sets into a snapshot that
// always carries all seven keys.
func NewIndicatorSnapshot(monthly, weekly IndicatorSet) IndicatorSnapshot {
	s := make(IndicatorSnapshot, len(IndicatorKeys))
	for _, k := range IndicatorKeys {
		s[k] = IndicatorReading{Monthly: monthly[k], Weekly: weekly[k]}
	}
	return s
}

// TimeframePair carries one composite score per timeframe.
type TimeframePair struct {
	Monthly float64 `json:"monthly"`
	Weekly  float64 `json:"weekly"`
}

// Set stores v under the given timeframe.
func (p *TimeframePair) Set(tf Timeframe, v float64) {
	if tf == Monthly {
		p.Monthly = v
		return
	}
	p.Weekly = v
}

// CompositeMetrics holds the overbought score (COS) and the bull strength
// index (BSI), both within [0, 100].
type CompositeMetrics struct {
	COS TimeframePair `json:"cos"`
	BSI TimeframePair `json:"bsi"`
}
