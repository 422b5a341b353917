package model

import "time"

// Snapshot is the full analysis for one target date.
type Snapshot struct {
	Date         time.Time         `json:"-"`
	Price        float64           `json:"price"`
	Indicators   IndicatorSnapshot `json:"indicators"`
	Composite    CompositeMetrics  `json:"composite_metrics"`
	Outcomes     OutcomeSet        `json:"outcomes"`
	CalculatedAt time.Time         `json:"calculated_at"`
	// Note explains a degraded or approximated snapshot; empty for a full
	// computation.
	Note string `json:"note,omitempty"`
	// Partial is set when indicators were skipped for lack of history.
	Partial bool `json:"partial,omitempty"`
}

// DateStr returns the snapshot date as an ISO key.
func (s *Snapshot) DateStr() string {
	return DateKey(s.Date)
}

// Degraded reports whether the snapshot was produced without indicators.
func (s *Snapshot) Degraded() bool {
	return s.Partial
}
