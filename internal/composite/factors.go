package composite

import "MarketGauge/internal/model"

// Factor describes how one indicator contributes to the composites.
type Factor struct {
	Weight    float64
	Threshold float64 // overbought level
	Neutral   float64 // no-trend level
	// Inverted marks a scale whose overbought side is negative (Williams %R).
	Inverted bool
}

// Table holds every factor plus the per-component ceilings.
type Table struct {
	Factors map[model.IndicatorKey]Factor
	// COSCap bounds one normalized overbought component; values above
	// 100 let a single extreme reading outweigh its nominal share.
	COSCap float64
	// BSICap bounds one normalized bull-strength component.
	BSICap float64
}

// DefaultCOSCap is the default ceiling of an overbought component.
const DefaultCOSCap = 150.0

// DefaultBSICap is the default ceiling of a bull-strength component.
const DefaultBSICap = 100.0

// DefaultTable returns the standard weights, thresholds and neutral points.
// Weights sum to 1.
func DefaultTable() Table {
	return Table{
		Factors: map[model.IndicatorKey]Factor{
			model.KeyStochRSI:    {Weight: 0.30, Threshold: 80, Neutral: 50},
			model.KeyCRSI:        {Weight: 0.20, Threshold: 90, Neutral: 50},
			model.KeyMFI:         {Weight: 0.20, Threshold: 70, Neutral: 50},
			model.KeyRSI:         {Weight: 0.15, Threshold: 70, Neutral: 50},
			model.KeyWilliamsR:   {Weight: 0.10, Threshold: -20, Neutral: -50, Inverted: true},
			model.KeyRVI:         {Weight: 0.03, Threshold: 0.7, Neutral: 0},
			model.KeyAdaptiveRSI: {Weight: 0.02, Threshold: 70, Neutral: 50},
		},
		COSCap: DefaultCOSCap,
		BSICap: DefaultBSICap,
	}
}

// overbought maps a reading onto a scale where the threshold is 100.
// Williams %R lives in [-100, 0], so it is shifted onto [0, 100] first.
func (f Factor) overbought(v float64) (float64, bool) {
	if f.Inverted {
		denom := 100 + f.Threshold
		if denom == 0 {
			return 0, false
		}
		return (100 + v) / denom * 100, true
	}
	if f.Threshold == 0 {
		return 0, false
	}
	return v / f.Threshold * 100, true
}

// strength maps a reading onto a scale where neutral is 0 and the
// threshold is 100.
func (f Factor) strength(v float64) (float64, bool) {
	span := f.Threshold - f.Neutral
	if span == 0 {
		return 0, false
	}
	return (v - f.Neutral) / span * 100, true
}
