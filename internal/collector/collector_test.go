package collector

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"MarketGauge/internal/model"
	"MarketGauge/internal/store"
)

func day(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func dailyBar(date string, closePrice float64) model.DailyBar {
	return model.DailyBar{OHLCV: model.OHLCV{
		Time: day(date), Open: closePrice, High: closePrice, Low: closePrice, Close: closePrice, Volume: 1,
	}}
}

func fixedClock(s string) func() time.Time {
	t := day(s).Add(15 * time.Hour)
	return func() time.Time { return t }
}

// windowed restricts a mock to dates at most maxAge days old.
type windowed struct {
	*MockFetcher
	maxAge int
}

func (w windowed) Covers(d, now time.Time) bool {
	age := int(model.Day(now).Sub(model.Day(d)).Hours() / 24)
	return age >= 0 && age <= w.maxAge
}

func TestAcquirePrefersEarlierSources(t *testing.T) {
	ctx := context.Background()
	local := NewMockFetcher("csv", dailyBar("2024-01-02", 100))
	remote := NewMockFetcher("kraken", dailyBar("2024-01-02", 999), dailyBar("2024-01-03", 101))
	st := store.NewMemoryStore()
	c := NewCollector(st, []Fetcher{local, remote}, WithClock(fixedClock("2024-06-01")))

	bar, err := c.Acquire(ctx, day("2024-01-02"))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if bar.Close != 100 || bar.Source != "csv" {
		t.Errorf("got close %.0f from %q, want 100 from csv", bar.Close, bar.Source)
	}
	if remote.Calls() != 0 {
		t.Errorf("remote called %d times, want 0", remote.Calls())
	}

	bar, err = c.Acquire(ctx, day("2024-01-03"))
	if err != nil {
		t.Fatalf("acquire fallback: %v", err)
	}
	if bar.Source != "kraken" {
		t.Errorf("source = %q, want kraken", bar.Source)
	}
	if _, err := st.GetDaily(ctx, day("2024-01-03")); err != nil {
		t.Errorf("fetched bar not persisted: %v", err)
	}
}

func TestAcquireIsIdempotentOnceStored(t *testing.T) {
	ctx := context.Background()
	remote := NewMockFetcher("kraken", dailyBar("2024-01-02", 100))
	c := NewCollector(store.NewMemoryStore(), []Fetcher{remote}, WithClock(fixedClock("2024-06-01")))

	first, err := c.Acquire(ctx, day("2024-01-02"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Acquire(ctx, day("2024-01-02"))
	if err != nil {
		t.Fatal(err)
	}
	if remote.Calls() != 1 {
		t.Errorf("fetcher called %d times, want 1", remote.Calls())
	}
	if first.Close != second.Close || first.Source != second.Source {
		t.Errorf("records differ: %+v vs %+v", first, second)
	}
}

func TestAcquireSkipsRecentOnlySourceForOldDates(t *testing.T) {
	ctx := context.Background()
	recent := windowed{NewMockFetcher("coingecko", dailyBar("2022-01-01", 1), dailyBar("2024-05-20", 2)), 365}
	general := NewMockFetcher("kraken", dailyBar("2022-01-01", 3))
	c := NewCollector(store.NewMemoryStore(), []Fetcher{recent, general}, WithClock(fixedClock("2024-06-01")))

	bar, err := c.Acquire(ctx, day("2022-01-01"))
	if err != nil {
		t.Fatal(err)
	}
	if bar.Source != "kraken" || recent.Calls() != 0 {
		t.Errorf("source %q, recent calls %d; want kraken and 0", bar.Source, recent.Calls())
	}

	bar, err = c.Acquire(ctx, day("2024-05-20"))
	if err != nil {
		t.Fatal(err)
	}
	if bar.Source != "coingecko" {
		t.Errorf("source = %q, want coingecko", bar.Source)
	}
}

func TestAcquireNotFound(t *testing.T) {
	ctx := context.Background()
	failing := NewMockFetcher("kraken")
	failing.Err = errors.New("connection reset")
	c := NewCollector(store.NewMemoryStore(),
		[]Fetcher{NewMockFetcher("csv"), failing}, WithClock(fixedClock("2024-06-01")))

	_, err := c.Acquire(ctx, day("2024-01-02"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "2024-01-02") || !strings.Contains(err.Error(), "csv, kraken") {
		t.Errorf("unhelpful message: %v", err)
	}

	if _, err := c.Acquire(ctx, day("2024-06-02")); !errors.Is(err, ErrNotFound) {
		t.Errorf("future date err = %v, want ErrNotFound", err)
	}
	if failing.Calls() != 1 {
		t.Errorf("future date should not reach sources, calls = %d", failing.Calls())
	}
}

func TestAcquireRefreshesStaleToday(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	now := day("2024-06-01").Add(15 * time.Hour)
	old := dailyBar("2024-06-01", 100)
	old.Source = "kraken"
	old.FetchedAt = now.Add(-2 * time.Hour)
	if err := st.PutDaily(ctx, &old); err != nil {
		t.Fatal(err)
	}
	fresh := NewMockFetcher("kraken", dailyBar("2024-06-01", 105))
	c := NewCollector(st, []Fetcher{fresh},
		WithClock(func() time.Time { return now }), WithTodayTTL(time.Hour))

	bar, err := c.Acquire(ctx, day("2024-06-01"))
	if err != nil {
		t.Fatal(err)
	}
	if bar.Close != 105 {
		t.Errorf("close = %v, want refreshed 105", bar.Close)
	}

	// a past date is never refetched regardless of age
	past := dailyBar("2024-05-01", 90)
	past.FetchedAt = now.AddDate(0, -1, 0)
	st.PutDaily(ctx, &past)
	fresh.Bars["2024-05-01"] = dailyBar("2024-05-01", 1)
	bar, err = c.Acquire(ctx, day("2024-05-01"))
	if err != nil || bar.Close != 90 {
		t.Errorf("past date = %+v, %v; want stored 90", bar, err)
	}
}

func TestHistorySkipsMissingDays(t *testing.T) {
	ctx := context.Background()
	var bars []model.DailyBar
	for d := day("2024-01-01"); !d.After(day("2024-01-10")); d = d.AddDate(0, 0, 1) {
		if d.Day() == 5 {
			continue
		}
		bars = append(bars, dailyBar(model.DateKey(d), float64(d.Day())))
	}
	c := NewCollector(store.NewMemoryStore(), []Fetcher{NewMockFetcher("csv", bars...)},
		WithClock(fixedClock("2024-06-01")))

	got, err := c.History(ctx, day("2024-01-10"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Close != 10 {
		t.Fatalf("zero-year window = %+v", got)
	}

	end := day("2024-01-10")
	c2 := NewCollector(store.NewMemoryStore(), []Fetcher{NewMockFetcher("csv", bars...)},
		WithClock(fixedClock("2024-06-01")))
	got, err = c2.History(ctx, end, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 9 {
		t.Fatalf("got %d bars, want 9", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i].Time.After(got[i-1].Time) {
			t.Fatalf("history not ordered at %d", i)
		}
	}

	gaps, err := c2.Gaps(ctx, day("2024-01-01"), end)
	if err != nil {
		t.Fatal(err)
	}
	if len(gaps) != 1 || model.DateKey(gaps[0]) != "2024-01-05" {
		t.Errorf("gaps = %v, want [2024-01-05]", gaps)
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	c := NewCollector(st, nil, WithClock(fixedClock("2024-06-01")))

	csv := "1704067200,42000,42500,41800,42300,12.5,100\n" + // 2024-01-01 00:00
		"1704070800,1,1,1,1,1,1\n" + // 2024-01-01 01:00, superseded
		"1704157200,42300,43000,42000,42900,10,90\n" // 2024-01-02 01:00
	n, err := c.Import(ctx, strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("imported %d bars, want 2", n)
	}
	bar, err := st.GetDaily(ctx, day("2024-01-01"))
	if err != nil {
		t.Fatal(err)
	}
	if bar.Close != 42300 || bar.Source != SourceCSVImport {
		t.Errorf("bar = %+v", bar)
	}
}

func TestAcquireRejectsInvalidBars(t *testing.T) {
	tests := []struct {
		name string
		bar  model.OHLCV
	}{
		{"high below low", model.OHLCV{Open: 44000, High: 100, Low: 50000, Close: 45000, Volume: 1}},
		{"negative close", model.OHLCV{Open: 10, High: 12, Low: 9, Close: -5, Volume: 1}},
		{"negative volume", model.OHLCV{Open: 10, High: 12, Low: 9, Close: 11, Volume: -7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			bad := tt.bar
			bad.Time = day("2024-01-02")
			local := NewMockFetcher("csv", model.DailyBar{OHLCV: bad})
			remote := NewMockFetcher("kraken", dailyBar("2024-01-02", 42000))
			st := store.NewMemoryStore()
			c := NewCollector(st, []Fetcher{local, remote}, WithClock(fixedClock("2024-06-01")))

			bar, err := c.Acquire(ctx, day("2024-01-02"))
			if err != nil {
				t.Fatalf("acquire: %v", err)
			}
			if bar.Source != "kraken" || bar.Close != 42000 {
				t.Errorf("got %q close %v, want the next source's bar", bar.Source, bar.Close)
			}
			stored, err := st.GetDaily(ctx, day("2024-01-02"))
			if err != nil || stored.Source != "kraken" {
				t.Errorf("stored = %+v, %v", stored, err)
			}

			only := NewCollector(store.NewMemoryStore(), []Fetcher{local}, WithClock(fixedClock("2024-06-01")))
			if _, err := only.Acquire(ctx, day("2024-01-02")); !errors.Is(err, ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound when the only bar is invalid", err)
			}
		})
	}
}
