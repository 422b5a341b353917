package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"MarketGauge/internal/calculator"
	"MarketGauge/internal/collector"
	"MarketGauge/internal/composite"
	"MarketGauge/internal/logger"
	"MarketGauge/internal/metrics"
	"MarketGauge/internal/model"
	"MarketGauge/internal/outcome"
	"MarketGauge/internal/store"
)

var (
	// ErrFutureDate is returned for dates after the current UTC date.
	ErrFutureDate = errors.New("date is in the future")
	// ErrNoPrice is returned when the target date's price cannot be found.
	ErrNoPrice = errors.New("price unavailable for date")
)

// Options tunes the snapshot pipeline.
type Options struct {
	HistoryYears int
	// MinDailyRows below which a snapshot is degraded to price and outcomes.
	MinDailyRows int
	// SnapshotTTL is how long a snapshot of the current date stays fresh.
	SnapshotTTL time.Duration
	MinBars     int
	Composite   composite.Table
	// Events are the dates served by HistoricalPoints.
	Events []model.HistoricalEvent
}

// DefaultOptions returns the standard pipeline settings.
func DefaultOptions() Options {
	return Options{
		HistoryYears: 2,
		MinDailyRows: 60,
		SnapshotTTL:  time.Hour,
		MinBars:      calculator.DefaultMinBars,
		Composite:    composite.DefaultTable(),
		Events:       model.DefaultHistoricalEvents(),
	}
}

// Service answers daily-bar and snapshot queries.
type Service struct {
	collector *collector.Collector
	snapshots store.SnapshotStore
	engine    *calculator.Engine
	outcomes  *outcome.Calculator
	opts      Options
	metrics   *metrics.Metrics
	now       func() time.Time
	log       *logrus.Entry
}

// New wires a service. now may be nil for the wall clock.
func New(col *collector.Collector, snapshots store.SnapshotStore, opts Options, m *metrics.Metrics, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		collector: col,
		snapshots: snapshots,
		engine:    calculator.NewEngine(opts.MinBars),
		outcomes:  outcome.NewCalculator(col, now),
		opts:      opts,
		metrics:   m,
		now:       now,
		log:       logger.WithComponent("service"),
	}
}

// GetDaily returns the daily bar for day.
func (s *Service) GetDaily(ctx context.Context, day time.Time) (*model.DailyBar, error) {
	day = model.Day(day)
	if day.After(model.Day(s.now())) {
		return nil, ErrFutureDate
	}
	return s.collector.Acquire(ctx, day)
}

// GetSnapshot returns the analysis for day, from the cache when fresh.
// A cached snapshot of a past date never expires; one of the current date
// expires after SnapshotTTL.
func (s *Service) GetSnapshot(ctx context.Context, day time.Time) (*model.Snapshot, error) {
	day = model.Day(day)
	now := s.now()
	if day.After(model.Day(now)) {
		return nil, ErrFutureDate
	}

	cached, err := s.snapshots.GetSnapshot(ctx, day)
	switch {
	case err == nil:
		if s.fresh(cached, now) {
			s.metrics.SnapshotLookup("hit")
			return cached, nil
		}
		s.metrics.SnapshotLookup("stale")
	case errors.Is(err, store.ErrNotFound):
		s.metrics.SnapshotLookup("miss")
	default:
		s.log.WithField("date", model.DateKey(day)).WithError(err).Warn("snapshot cache read failed, recomputing")
	}

	return s.Compute(ctx, day)
}

func (s *Service) fresh(snap *model.Snapshot, now time.Time) bool {
	if !model.SameDay(snap.Date, now) {
		return true
	}
	return now.Sub(snap.CalculatedAt) < s.opts.SnapshotTTL
}

// Compute builds a snapshot for day regardless of the cache. It is stored
// unless it is degraded or priced from an earlier day.
func (s *Service) Compute(ctx context.Context, day time.Time) (*model.Snapshot, error) {
	day = model.Day(day)
	if day.After(model.Day(s.now())) {
		return nil, ErrFutureDate
	}
	start := time.Now()
	defer s.metrics.ObserveCompute(start)
	log := s.log.WithFields(logrus.Fields{"date": model.DateKey(day), "run_id": uuid.NewString()})

	history, err := s.collector.History(ctx, day, s.opts.HistoryYears)
	if err != nil {
		return nil, fmt.Errorf("assemble history: %w", err)
	}
	s.metrics.SetHistoryBars(len(history))

	if len(history) < s.opts.MinDailyRows {
		log.WithFields(logrus.Fields{"rows": len(history), "min": s.opts.MinDailyRows}).
			Warn("insufficient history, degraded snapshot")
		return s.degraded(ctx, day, len(history))
	}

	price, note, err := priceOn(history, day)
	if err != nil {
		return nil, err
	}

	daily := model.Bars(history)
	monthly := s.engine.Compute(calculator.Resample(daily, model.Monthly), model.Monthly)
	weekly := s.engine.Compute(calculator.Resample(daily, model.Weekly), model.Weekly)
	indicators := model.NewIndicatorSnapshot(monthly, weekly)

	snap := &model.Snapshot{
		Date:         day,
		Price:        price,
		Indicators:   indicators,
		Composite:    s.opts.Composite.Evaluate(indicators),
		Outcomes:     s.outcomes.Compute(ctx, day, price),
		CalculatedAt: s.now().UTC(),
		Note:         note,
	}

	if note != "" {
		log.Warn(note)
	} else if err := s.snapshots.PutSnapshot(ctx, snap); err != nil {
		log.WithError(err).Error("persist snapshot")
	}
	log.WithFields(logrus.Fields{
		"bars": len(history), "price": price,
		"cos_monthly": snap.Composite.COS.Monthly, "cos_weekly": snap.Composite.COS.Weekly,
		"bsi_monthly": snap.Composite.BSI.Monthly, "bsi_weekly": snap.Composite.BSI.Weekly,
	}).Info("snapshot computed")
	return snap, nil
}

// degraded reports price and outcomes only. It is not cached so a later
// request can pick up backfilled history.
func (s *Service) degraded(ctx context.Context, day time.Time, rows int) (*model.Snapshot, error) {
	bar, err := s.collector.Acquire(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoPrice, model.DateKey(day), err)
	}
	empty := model.NewIndicatorSnapshot(model.NewIndicatorSet(), model.NewIndicatorSet())
	return &model.Snapshot{
		Date:         day,
		Price:        bar.Close,
		Indicators:   empty,
		Composite:    model.CompositeMetrics{},
		Outcomes:     s.outcomes.Compute(ctx, day, bar.Close),
		CalculatedAt: s.now().UTC(),
		Note: fmt.Sprintf("insufficient history: %d daily bars, need %d; indicators unavailable",
			rows, s.opts.MinDailyRows),
		Partial: true,
	}, nil
}

// HistoricalPoints returns the snapshot of every configured event in
// configuration order. Composites are re-evaluated with the
// current factor table. Events whose snapshot fails are left out.
func (s *Service) HistoricalPoints(ctx context.Context) ([]model.HistoricalPoint, error) {
	points := make([]model.HistoricalPoint, 0, len(s.opts.Events))
	for _, ev := range s.opts.Events {
		log := s.log.WithFields(logrus.Fields{"event": ev.Name, "date": ev.Date})
		day, err := model.ParseDate(ev.Date)
		if err != nil {
			log.WithError(err).Warn("skipping event with invalid date")
			continue
		}
		snap, err := s.GetSnapshot(ctx, day)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithError(err).Warn("skipping event without snapshot")
			continue
		}
		comp := snap.Composite
		if !snap.Degraded() {
			comp = s.opts.Composite.Evaluate(snap.Indicators)
		}
		points = append(points, model.HistoricalPoint{
			HistoricalEvent:  ev,
			Price:            snap.Price,
			Outcomes:         snap.Outcomes,
			Indicators:       snap.Indicators,
			CompositeMetrics: comp,
			Note:             snap.Note,
		})
	}
	return points, nil
}

// priceOn returns the close of day. When day itself has no bar the last
// earlier close is used and the returned note says so.
func priceOn(history []model.DailyBar, day time.Time) (float64, string, error) {
	if len(history) == 0 {
		return 0, "", fmt.Errorf("%w: %s", ErrNoPrice, model.DateKey(day))
	}
	last := history[len(history)-1]
	if model.SameDay(last.Time, day) {
		return last.Close, "", nil
	}
	note := fmt.Sprintf("no daily bar for %s; price is the last available close from %s",
		model.DateKey(day), model.DateKey(last.Time))
	return last.Close, note, nil
}
