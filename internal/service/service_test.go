package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"MarketGauge/internal/collector"
	"MarketGauge/internal/model"
	"MarketGauge/internal/store"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func date(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func flatBars(from, to time.Time, price float64) []model.DailyBar {
	var out []model.DailyBar
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, model.DailyBar{OHLCV: model.OHLCV{
			Time: d, Open: price, High: price, Low: price, Close: price, Volume: 1000,
		}})
	}
	return out
}

type fixture struct {
	svc     *Service
	store   *store.MemoryStore
	fetcher *collector.MockFetcher
	clock   *clock
}

func newFixture(t *testing.T, now time.Time, bars []model.DailyBar) *fixture {
	t.Helper()
	clk := &clock{t: now}
	st := store.NewMemoryStore()
	f := collector.NewMockFetcher("csv", bars...)
	col := collector.NewCollector(st, []collector.Fetcher{f}, collector.WithClock(clk.Now))
	return &fixture{
		svc:     New(col, st, DefaultOptions(), nil, clk.Now),
		store:   st,
		fetcher: f,
		clock:   clk,
	}
}

func TestSnapshotFlatMarket(t *testing.T) {
	ctx := context.Background()
	target := date("2024-03-01")
	fx := newFixture(t, date("2024-06-01").Add(10*time.Hour),
		flatBars(target.AddDate(0, 0, -2*365), date("2024-06-01"), 100))

	snap, err := fx.svc.GetSnapshot(ctx, target)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Price != 100 {
		t.Errorf("price = %v, want 100", snap.Price)
	}
	if snap.Degraded() {
		t.Errorf("unexpected degraded snapshot: %s", snap.Note)
	}
	for _, tf := range model.Timeframes {
		rsi := snap.Indicators[model.KeyRSI].Get(tf)
		if !rsi.Valid || math.Abs(rsi.Float64-50) > 1e-9 {
			t.Errorf("%s RSI = %+v, want 50", tf, rsi)
		}
		if snap.Indicators[model.KeyWilliamsR].Get(tf).Valid {
			t.Errorf("%s Williams %%R should be unavailable on a flat market", tf)
		}
	}
	if snap.Composite.BSI.Monthly > 2 || snap.Composite.BSI.Weekly > 2 {
		t.Errorf("BSI = %+v, want about 0", snap.Composite.BSI)
	}
	for _, v := range []float64{snap.Composite.COS.Monthly, snap.Composite.COS.Weekly, snap.Composite.BSI.Monthly, snap.Composite.BSI.Weekly} {
		if v < 0 || v > 100 {
			t.Errorf("composite %v out of range", v)
		}
	}
	if o := snap.Outcomes[model.Horizon1M]; o.Direction != model.DirectionFlat || o.Price != 100 {
		t.Errorf("1M outcome = %+v, want flat at 100", o)
	}
	if o := snap.Outcomes[model.Horizon6M]; o.Direction != model.DirectionUnknown {
		t.Errorf("6M outcome = %+v, want unknown (future)", o)
	}

	if _, err := fx.store.GetSnapshot(ctx, target); err != nil {
		t.Errorf("snapshot not cached: %v", err)
	}
	calls := fx.fetcher.Calls()
	again, err := fx.svc.GetSnapshot(ctx, target)
	if err != nil {
		t.Fatal(err)
	}
	if fx.fetcher.Calls() != calls {
		t.Errorf("cached snapshot hit the sources again")
	}
	if !again.CalculatedAt.Equal(snap.CalculatedAt) {
		t.Errorf("cached snapshot was recomputed")
	}
}

func TestSnapshotOutcomesFromStoredPrices(t *testing.T) {
	ctx := context.Background()
	anchor := date("2023-01-15")
	bars := flatBars(anchor.AddDate(0, 0, -2*365), date("2024-02-01"), 50000)
	for i := range bars {
		if model.DateKey(bars[i].Time) == "2023-02-15" {
			bars[i].Close, bars[i].High = 55000, 55000
		}
	}
	fx := newFixture(t, date("2024-02-01"), bars)

	snap, err := fx.svc.GetSnapshot(ctx, anchor)
	if err != nil {
		t.Fatal(err)
	}
	want := model.Outcome{Direction: model.DirectionUp, Percentage: 10.0, Price: 55000.00}
	if got := snap.Outcomes[model.Horizon1M]; got != want {
		t.Errorf("1M = %+v, want %+v", got, want)
	}
	if got := snap.Outcomes[model.Horizon12M]; got.Direction != model.DirectionFlat {
		t.Errorf("12M = %+v, want flat", got)
	}
}

func TestSnapshotInsufficientHistory(t *testing.T) {
	ctx := context.Background()
	target := date("2024-03-10")
	fx := newFixture(t, date("2024-06-01"), flatBars(date("2024-03-01"), date("2024-05-01"), 100))

	snap, err := fx.svc.GetSnapshot(ctx, target)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snap.Degraded() {
		t.Error("expected a degraded snapshot")
	}
	if snap.Price != 100 {
		t.Errorf("price = %v, want 100", snap.Price)
	}
	for k, r := range snap.Indicators {
		if r.Monthly.Valid || r.Weekly.Valid {
			t.Errorf("%s should be unavailable", k)
		}
	}
	if len(snap.Indicators) != len(model.IndicatorKeys) {
		t.Errorf("got %d indicator keys", len(snap.Indicators))
	}
	if snap.Composite != (model.CompositeMetrics{}) {
		t.Errorf("composite = %+v, want zeros", snap.Composite)
	}
	if o := snap.Outcomes[model.Horizon1M]; o.Direction != model.DirectionFlat {
		t.Errorf("1M outcome = %+v, want flat", o)
	}
	if _, err := fx.store.GetSnapshot(ctx, target); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("degraded snapshot should not be cached, got %v", err)
	}
}

func TestTodaySnapshotExpires(t *testing.T) {
	ctx := context.Background()
	today := date("2024-06-01")
	fx := newFixture(t, today.Add(9*time.Hour), flatBars(today.AddDate(0, 0, -2*365), today, 100))

	first, err := fx.svc.GetSnapshot(ctx, today)
	if err != nil {
		t.Fatal(err)
	}

	fx.clock.Advance(30 * time.Minute)
	second, err := fx.svc.GetSnapshot(ctx, today)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CalculatedAt.Equal(first.CalculatedAt) {
		t.Error("today's snapshot recomputed before the TTL elapsed")
	}

	fx.clock.Advance(31 * time.Minute)
	third, err := fx.svc.GetSnapshot(ctx, today)
	if err != nil {
		t.Fatal(err)
	}
	if !third.CalculatedAt.After(first.CalculatedAt) {
		t.Error("today's snapshot not recomputed after the TTL")
	}
}

func TestPastSnapshotNeverExpires(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, date("2024-06-01"), nil)
	cached := &model.Snapshot{
		Date:         date("2024-01-01"),
		Price:        1,
		Indicators:   model.NewIndicatorSnapshot(model.NewIndicatorSet(), model.NewIndicatorSet()),
		Outcomes:     model.UnknownOutcomes(),
		CalculatedAt: date("2024-01-01"),
	}
	if err := fx.store.PutSnapshot(ctx, cached); err != nil {
		t.Fatal(err)
	}
	got, err := fx.svc.GetSnapshot(ctx, date("2024-01-01"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Price != 1 || fx.fetcher.Calls() != 0 {
		t.Errorf("expected cached snapshot without fetching, got price %v after %d calls", got.Price, fx.fetcher.Calls())
	}
}

func TestFutureDatesRejected(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, date("2024-06-01"), nil)
	if _, err := fx.svc.GetSnapshot(ctx, date("2024-06-02")); !errors.Is(err, ErrFutureDate) {
		t.Errorf("snapshot err = %v, want ErrFutureDate", err)
	}
	if _, err := fx.svc.GetDaily(ctx, date("2024-06-02")); !errors.Is(err, ErrFutureDate) {
		t.Errorf("daily err = %v, want ErrFutureDate", err)
	}
}

func TestGetDailyNotFound(t *testing.T) {
	fx := newFixture(t, date("2024-06-01"), nil)
	if _, err := fx.svc.GetDaily(context.Background(), date("2024-01-01")); !errors.Is(err, collector.ErrNotFound) {
		t.Errorf("err = %v, want collector.ErrNotFound", err)
	}
}

func TestSnapshotFallsBackToLastClose(t *testing.T) {
	ctx := context.Background()
	target := date("2024-03-01")
	// history stops two days before the target
	bars := flatBars(target.AddDate(0, 0, -2*365), date("2024-02-28"), 100)
	bars[len(bars)-1].Close, bars[len(bars)-1].High = 120, 120
	fx := newFixture(t, date("2024-06-01"), bars)

	snap, err := fx.svc.GetSnapshot(ctx, target)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Price != 120 {
		t.Errorf("price = %v, want the last close 120", snap.Price)
	}
	if snap.Note == "" || snap.Degraded() {
		t.Errorf("note = %q degraded = %v, want a note on a full snapshot", snap.Note, snap.Degraded())
	}
	if !snap.Indicators[model.KeyRSI].Monthly.Valid {
		t.Error("indicators should still be computed")
	}
	if _, err := fx.store.GetSnapshot(ctx, target); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("approximated snapshot was cached: %v", err)
	}
}

func TestHistoricalPoints(t *testing.T) {
	ctx := context.Background()
	now := date("2024-06-01")
	fx := newFixture(t, now, flatBars(date("2021-01-01"), now, 100))
	fx.svc.opts.Events = []model.HistoricalEvent{
		{ID: 1, Date: "2023-03-01", Name: "first"},
		{ID: 2, Date: "2030-01-01", Name: "future"},
		{ID: 3, Date: "2024-01-15", Name: "second"},
	}

	// a stale composite in the cache is replaced on read
	snap, err := fx.svc.GetSnapshot(ctx, date("2023-03-01"))
	if err != nil {
		t.Fatal(err)
	}
	want := snap.Composite
	snap.Composite.COS.Monthly = 99
	if err := fx.store.PutSnapshot(ctx, snap); err != nil {
		t.Fatal(err)
	}

	points, err := fx.svc.HistoricalPoints(ctx)
	if err != nil {
		t.Fatalf("historical points: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("points = %d, want 2 (future event skipped)", len(points))
	}
	if points[0].ID != 1 || points[1].ID != 3 {
		t.Errorf("order = %d, %d", points[0].ID, points[1].ID)
	}
	if points[0].CompositeMetrics != want {
		t.Errorf("composite = %+v, want re-evaluated %+v", points[0].CompositeMetrics, want)
	}
	if points[1].Price != 100 || len(points[1].Indicators) != len(model.IndicatorKeys) {
		t.Errorf("point = %+v", points[1])
	}
}
