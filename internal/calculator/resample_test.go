package calculator

import (
	"testing"
	"time"

	"MarketGauge/internal/model"
)

func dailyRun(start time.Time, days int) []model.OHLCV {
	out := make([]model.OHLCV, days)
	for i := range out {
		p := float64(100 + i)
		out[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: p, High: p + 5, Low: p - 5, Close: p + 1, Volume: 1}
	}
	return out
}

func TestResampleWeekly(t *testing.T) {
	monday := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got := Resample(dailyRun(monday, 28), model.Weekly)
	if len(got) != 4 {
		t.Fatalf("got %d weekly bars, want 4", len(got))
	}
	for i, w := range got {
		wantStart := monday.AddDate(0, 0, 7*i)
		if !w.Time.Equal(wantStart) {
			t.Errorf("bar %d time = %v, want %v", i, w.Time, wantStart)
		}
		if w.Volume != 7 {
			t.Errorf("bar %d volume = %v, want 7", i, w.Volume)
		}
		first := float64(100 + 7*i)
		if w.Open != first || w.Close != first+6+1 || w.High != first+6+5 || w.Low != first-5 {
			t.Errorf("bar %d = %+v", i, w)
		}
	}
}

func TestResampleWeeklyMidWeekStartAndGap(t *testing.T) {
	wed := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	daily := dailyRun(wed, 3) // Wed..Fri
	daily = append(daily, dailyRun(time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC), 2)...)
	got := Resample(daily, model.Weekly)
	if len(got) != 2 {
		t.Fatalf("got %d bars, want 2 (empty week dropped)", len(got))
	}
	if !got[0].Time.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first week labelled %v, want its Monday", got[0].Time)
	}
	if !got[1].Time.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("second week labelled %v", got[1].Time)
	}
}

func TestResampleMonthly(t *testing.T) {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	got := Resample(dailyRun(start, 56), model.Monthly) // through Mar 10
	want := []time.Time{
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d monthly bars, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Time.Equal(want[i]) {
			t.Errorf("bar %d = %v, want %v", i, got[i].Time, want[i])
		}
	}
	if got[0].Volume != 17 || got[1].Volume != 29 || got[2].Volume != 10 {
		t.Errorf("volumes = %v %v %v", got[0].Volume, got[1].Volume, got[2].Volume)
	}
}

func TestResampleEmpty(t *testing.T) {
	if got := Resample(nil, model.Monthly); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}
