package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"MarketGauge/internal/logger"
	"MarketGauge/internal/metrics"
	"MarketGauge/internal/model"
	"MarketGauge/internal/store"
)

// SourceCSVImport tags bars loaded through Import.
const SourceCSVImport = "csv_import"

// ErrNotFound is returned when no source could supply a date.
var ErrNotFound = errors.New("data not found in any source")

// NotFoundError explains which sources were tried for a date.
type NotFoundError struct {
	Day     time.Time
	Sources []string
	Reason  string
}

func (e *NotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("data not found for %s: %s", model.DateKey(e.Day), e.Reason)
	}
	return fmt.Sprintf("data not found for %s in any source (%s)", model.DateKey(e.Day), strings.Join(e.Sources, ", "))
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Collector acquires daily bars: the store first, then each fetcher in
// priority order. The first bar found is persisted and returned.
type Collector struct {
	fetchers []Fetcher
	store    store.PriceStore
	metrics  *metrics.Metrics
	now      func() time.Time
	todayTTL time.Duration
	log      *logrus.Entry
}

// Option customises a Collector.
type Option func(*Collector)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// WithMetrics records per-source outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Collector) { c.metrics = m }
}

// WithTodayTTL sets how long a stored bar for the current date is trusted
// before it is fetched again. Past dates are never refetched.
func WithTodayTTL(d time.Duration) Option {
	return func(c *Collector) { c.todayTTL = d }
}

// NewCollector creates a collector over st trying fetchers in order.
func NewCollector(st store.PriceStore, fetchers []Fetcher, opts ...Option) *Collector {
	c := &Collector{
		fetchers: fetchers,
		store:    st,
		now:      time.Now,
		todayTTL: time.Hour,
		log:      logger.WithComponent("collector"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Acquire returns the daily bar for day.
func (c *Collector) Acquire(ctx context.Context, day time.Time) (*model.DailyBar, error) {
	day = model.Day(day)
	now := c.now()
	if day.After(model.Day(now)) {
		return nil, &NotFoundError{Day: day, Reason: "date is in the future"}
	}

	stored, err := c.store.GetDaily(ctx, day)
	switch {
	case err == nil:
		if !c.refreshDue(stored, now) {
			c.metrics.Acquired("store")
			return stored, nil
		}
	case errors.Is(err, store.ErrNotFound):
		stored = nil
	default:
		return nil, fmt.Errorf("read store: %w", err)
	}

	bar, err := c.fetch(ctx, day, now)
	if err != nil {
		if stored != nil && !isContextErr(err) {
			c.log.WithField("date", model.DateKey(day)).WithError(err).Warn("refresh failed, serving stored bar")
			c.metrics.Acquired("store")
			return stored, nil
		}
		c.metrics.Acquired("not_found")
		return nil, err
	}

	if err := c.store.PutDaily(ctx, bar); err != nil {
		c.log.WithField("date", model.DateKey(day)).WithError(err).Error("persist daily bar")
	}
	c.metrics.Acquired("fetched")
	return bar, nil
}

func (c *Collector) refreshDue(bar *model.DailyBar, now time.Time) bool {
	return model.SameDay(bar.Time, now) && now.Sub(bar.FetchedAt) > c.todayTTL
}

func (c *Collector) fetch(ctx context.Context, day, now time.Time) (*model.DailyBar, error) {
	var tried []string
	for _, f := range c.fetchers {
		if w, ok := f.(Windowed); ok && !w.Covers(day, now) {
			continue
		}
		tried = append(tried, f.Name())
		log := c.log.WithFields(logrus.Fields{"date": model.DateKey(day), "source": f.Name()})

		bar, err := f.FetchDay(ctx, day)
		if err == nil {
			if verr := bar.Validate(); verr != nil {
				err = fmt.Errorf("%w: %v", ErrMalformed, verr)
			}
		}
		if err == nil {
			c.metrics.SourceRequest(f.Name(), "ok")
			bar.Time = day
			log.WithField("provenance", bar.Source).Info("daily bar fetched")
			return bar, nil
		}
		if isContextErr(err) {
			return nil, err
		}
		c.metrics.SourceRequest(f.Name(), resultLabel(err))
		if errors.Is(err, ErrNoData) {
			log.Debug("source has no data")
		} else {
			log.WithError(err).Warn("source failed")
		}
	}
	return nil, &NotFoundError{Day: day, Sources: tried}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	}
	return "error"
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// History returns the daily bars from years*365 days before end through
// end, oldest first. Dates no source can supply are skipped.
func (c *Collector) History(ctx context.Context, end time.Time, years int) ([]model.DailyBar, error) {
	end = model.Day(end)
	start := end.AddDate(0, 0, -years*365)

	stored, err := c.store.ListDaily(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list stored bars: %w", err)
	}
	have := make(map[string]model.DailyBar, len(stored))
	for _, b := range stored {
		have[model.DateKey(b.Time)] = b
	}

	now := c.now()
	out := make([]model.DailyBar, 0, len(stored))
	missing := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if b, ok := have[model.DateKey(d)]; ok && !c.refreshDue(&b, now) {
			out = append(out, b)
			continue
		}
		bar, err := c.Acquire(ctx, d)
		if err != nil {
			if isContextErr(err) {
				return nil, err
			}
			missing++
			continue
		}
		out = append(out, *bar)
	}
	c.log.WithFields(logrus.Fields{
		"from": model.DateKey(start), "to": model.DateKey(end),
		"bars": len(out), "missing": missing,
	}).Info("history window assembled")
	return out, nil
}

// Gaps lists the dates in [from, to] the store has no bar for.
func (c *Collector) Gaps(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	from, to = model.Day(from), model.Day(to)
	stored, err := c.store.ListDaily(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list stored bars: %w", err)
	}
	have := make(map[string]bool, len(stored))
	for _, b := range stored {
		have[model.DateKey(b.Time)] = true
	}
	var gaps []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if !have[model.DateKey(d)] {
			gaps = append(gaps, d)
		}
	}
	return gaps, nil
}

// Import loads bundled-format CSV rows straight into the store, one bar
// per UTC day, overwriting what is there.
func (c *Collector) Import(ctx context.Context, r io.Reader) (int, error) {
	rows, err := ParseBundledCSV(r)
	if err != nil {
		return 0, err
	}
	ds := NewLocalDataset(rows)
	bars := make([]model.DailyBar, 0, ds.Len())
	for _, b := range ds.bars {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	now := c.now().UTC()
	for i := range bars {
		bars[i].Source = SourceCSVImport
		bars[i].FetchedAt = now
		if err := c.store.PutDaily(ctx, &bars[i]); err != nil {
			return i, fmt.Errorf("import %s: %w", model.DateKey(bars[i].Time), err)
		}
	}
	c.log.WithField("bars", len(bars)).Info("csv import complete")
	return len(bars), nil
}
