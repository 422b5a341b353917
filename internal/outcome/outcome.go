package outcome

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"MarketGauge/internal/logger"
	"MarketGauge/internal/model"
)

// PriceSource resolves the daily bar of a date.
type PriceSource interface {
	Acquire(ctx context.Context, day time.Time) (*model.DailyBar, error)
}

// Calculator measures how price moved after an anchor date.
type Calculator struct {
	prices PriceSource
	now    func() time.Time
	log    *logrus.Entry
}

func NewCalculator(prices PriceSource, now func() time.Time) *Calculator {
	if now == nil {
		now = time.Now
	}
	return &Calculator{prices: prices, now: now, log: logger.WithComponent("outcome")}
}

// Compute returns the outcome of every horizon from anchor at basePrice.
// Horizons ending after today, or whose price cannot be found, are unknown.
func (c *Calculator) Compute(ctx context.Context, anchor time.Time, basePrice float64) model.OutcomeSet {
	out := model.UnknownOutcomes()
	if !(basePrice > 0) {
		return out
	}
	today := model.Day(c.now())
	for _, h := range model.Horizons {
		target := AddMonths(model.Day(anchor), h.Months())
		if target.After(today) {
			continue
		}
		bar, err := c.prices.Acquire(ctx, target)
		if err != nil {
			c.log.WithFields(logrus.Fields{"horizon": h, "date": model.DateKey(target)}).
				WithError(err).Warn("outcome price unavailable")
			continue
		}
		out[h] = Measure(basePrice, bar.Close)
	}
	return out
}

// Measure compares a later price with the base price.
func Measure(base, later float64) model.Outcome {
	if !(base > 0) || !(later > 0) {
		return model.UnknownOutcome
	}
	b := decimal.NewFromFloat(base)
	l := decimal.NewFromFloat(later)

	dir := model.DirectionFlat
	switch l.Cmp(b) {
	case 1:
		dir = model.DirectionUp
	case -1:
		dir = model.DirectionDown
	}
	pct, _ := l.Sub(b).Div(b).Mul(decimal.NewFromInt(100)).Abs().Round(1).Float64()
	price, _ := l.Round(2).Float64()
	return model.Outcome{Direction: dir, Percentage: pct, Price: price}
}

// AddMonths moves t forward by n calendar months, clamping the day to the
// end of a shorter target month (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
