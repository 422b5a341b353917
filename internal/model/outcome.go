package model

// Horizon is a forward-looking offset measured in calendar months.
type Horizon string

const (
	Horizon1M  Horizon = "1M"
	Horizon6M  Horizon = "6M"
	Horizon12M Horizon = "12M"
)

// Horizons lists the outcome horizons in ascending order.
var Horizons = []Horizon{Horizon1M, Horizon6M, Horizon12M}

// Months returns the number of calendar months the horizon spans.
func (h Horizon) Months() int {
	switch h {
	case Horizon1M:
		return 1
	case Horizon6M:
		return 6
	case Horizon12M:
		return 12
	}
	return 0
}

// Direction describes how price moved over a horizon.
type Direction string

const (
	DirectionUp      Direction = "up"
	DirectionDown    Direction = "down"
	DirectionFlat    Direction = "flat"
	DirectionUnknown Direction = "unknown"
)

// Outcome is the realised move over one horizon. Percentage is the
// absolute change rounded to one decimal; Price is rounded to two decimals.
type Outcome struct {
	Direction  Direction `json:"direction"`
	Percentage float64   `json:"percentage"`
	Price      float64   `json:"price"`
}

// UnknownOutcome is reported for future or unresolvable horizons.
var UnknownOutcome = Outcome{Direction: DirectionUnknown}

// OutcomeSet holds one outcome per horizon.
type OutcomeSet map[Horizon]Outcome

// UnknownOutcomes returns a set with every horizon unknown.
func UnknownOutcomes() OutcomeSet {
	s := make(OutcomeSet, len(Horizons))
	for _, h := range Horizons {
		s[h] = UnknownOutcome
	}
	return s
}
