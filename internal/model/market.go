package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DateLayout is the ISO calendar-date key used by stores and the HTTP API.
const DateLayout = "2006-01-02"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// ErrInvalidBar is wrapped by Validate failures.
var ErrInvalidBar = errors.New("invalid ohlcv bar")

// Validate checks that every field is finite and non-negative and that
// low <= open, close <= high.
func (b OHLCV) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close}, {"volume", b.Volume}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidBar, f.name)
		}
		if f.v < 0 {
			return fmt.Errorf("%w: %s %v is negative", ErrInvalidBar, f.name, f.v)
		}
	}
	if b.Low > b.High {
		return fmt.Errorf("%w: low %v above high %v", ErrInvalidBar, b.Low, b.High)
	}
	if b.Open < b.Low || b.Open > b.High || b.Close < b.Low || b.Close > b.High {
		return fmt.Errorf("%w: open %v / close %v outside [%v, %v]", ErrInvalidBar, b.Open, b.Close, b.Low, b.High)
	}
	return nil
}

// DailyBar is one calendar day of OHLCV data tagged with where it came from.
type DailyBar struct {
	OHLCV
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Day normalises t to midnight UTC of its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats t as an ISO calendar date in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses an ISO calendar date into a UTC day.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// SameDay reports whether a and b fall on the same UTC calendar date.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// Bars strips provenance from a daily series.
func Bars(daily []DailyBar) []OHLCV {
	out := make([]OHLCV, len(daily))
	for i, d := range daily {
		out[i] = d.OHLCV
	}
	return out
}
