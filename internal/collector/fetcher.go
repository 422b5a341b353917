package collector

import (
	"context"
	"errors"
	"time"

	"MarketGauge/internal/model"
)

var (
	// ErrNoData means the source answered but has no bar for the date.
	ErrNoData = errors.New("no data for date")
	// ErrRateLimited means the source asked us to slow down.
	ErrRateLimited = errors.New("rate limited")
	// ErrMalformed means the source answered with an unusable payload.
	ErrMalformed = errors.New("malformed response")
)

// Fetcher retrieves the daily bar of one calendar date from one source.
type Fetcher interface {
	Name() string
	FetchDay(ctx context.Context, day time.Time) (*model.DailyBar, error)
}

// Windowed is implemented by fetchers that only serve part of the
// calendar, such as providers limited to recent history.
type Windowed interface {
	Covers(day, now time.Time) bool
}
