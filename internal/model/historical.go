package model

// HistoricalEvent is a notable market date replayed by the time machine.
type HistoricalEvent struct {
	ID          int    `yaml:"id" json:"id"`
	Date        string `yaml:"date" json:"date"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// HistoricalPoint is the full analysis of one HistoricalEvent.
type HistoricalPoint struct {
	HistoricalEvent
	Price            float64           `json:"price"`
	Outcomes         OutcomeSet        `json:"outcomes"`
	Indicators       IndicatorSnapshot `json:"indicators"`
	CompositeMetrics CompositeMetrics  `json:"compositeMetrics"`
	Note             string            `json:"note,omitempty"`
}

// DefaultHistoricalEvents lists cycle peaks and bottoms since 2017.
func DefaultHistoricalEvents() []HistoricalEvent {
	return []HistoricalEvent{
		{1, "2017-12-17", "2017 Bull Run Peak", "Peak of the 2017 bull run, driven by retail FOMO and ICO mania."},
		{2, "2018-12-15", "2018 Bear Market Bottom", "Bottom of the prolonged bear market following the 2017 peak."},
		{3, "2020-03-12", "COVID-19 Crash ('Black Thursday')", "Market-wide crash at the onset of the COVID-19 pandemic."},
		{4, "2021-04-14", "2021 First Peak (Coinbase IPO)", "First major peak of the 2021 bull market, around the Coinbase direct listing."},
		{5, "2021-11-10", "2021 All-Time High (Futures ETF)", "All-time high of late 2021, after the first bitcoin futures ETF launch."},
		{6, "2022-11-21", "FTX Collapse Bottom", "Consolidated bottom after the FTX exchange collapse."},
		{7, "2024-03-14", "Spot ETF Approval Peak (Early 2024)", "New all-time high following the approval of US spot bitcoin ETFs."},
	}
}
