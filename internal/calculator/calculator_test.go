package calculator

import (
	"math"
	"testing"
	"time"

	"MarketGauge/internal/model"
)

func linear(n int, start, step float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = start + float64(i)*step
	}
	return s
}

func barsFromCloses(closes []float64) []model.OHLCV {
	bars := make([]model.OHLCV, len(closes))
	t := time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = model.OHLCV{Time: t.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return bars
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   float64
		valid  bool
	}{
		{"rising", linear(30, 100, 1), 100, true},
		{"falling", linear(30, 100, -1), 0, true},
		{"flat", linear(30, 100, 0), 50, true},
		{"too short", linear(14, 100, 1), 0, false},
		{"exactly period+1", linear(15, 100, 1), 100, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Latest(RSI(tt.closes, 14))
			if got.Valid != tt.valid {
				t.Fatalf("valid = %v, want %v", got.Valid, tt.valid)
			}
			if tt.valid && !approx(got.Float64, tt.want) {
				t.Errorf("RSI = %.4f, want %.4f", got.Float64, tt.want)
			}
		})
	}
}

func TestRSISkipsLeadingUndefined(t *testing.T) {
	closes := append([]float64{math.NaN(), math.NaN()}, linear(15, 10, 1)...)
	rsi := RSI(closes, 14)
	if valid(rsi[15]) {
		t.Errorf("point 15 should be undefined, got %v", rsi[15])
	}
	if !approx(rsi[16], 100) {
		t.Errorf("point 16 = %v, want 100", rsi[16])
	}
}

func TestRSIMixedMoves(t *testing.T) {
	closes := []float64{10, 11, 10, 11, 10, 11}
	rsi := RSI(closes, 4)
	// gains 1+1 over 4 changes, losses 1+1 -> 50, then one more gain
	if !approx(rsi[4], 50) {
		t.Errorf("seed RSI = %v, want 50", rsi[4])
	}
	wantGain := (0.5*3 + 1) / 4
	wantLoss := (0.5 * 3) / 4
	want := 100 - 100/(1+wantGain/wantLoss)
	if !approx(rsi[5], want) {
		t.Errorf("smoothed RSI = %v, want %v", rsi[5], want)
	}
}

func TestStochRSI(t *testing.T) {
	if got := Latest(StochRSI(linear(40, 100, 0), 14, 14, 3)); !got.Valid || !approx(got.Float64, 50) {
		t.Errorf("flat StochRSI = %+v, want 50", got)
	}
	if got := Latest(StochRSI(linear(20, 100, 1), 14, 14, 3)); got.Valid {
		t.Errorf("short StochRSI should be unavailable, got %v", got.Float64)
	}

	// a late rally after a decline pins RSI at its window high
	closes := append(linear(30, 200, -2), linear(10, 142, 5)...)
	got := Latest(StochRSI(closes, 7, 7, 3))
	if !got.Valid || got.Float64 < 99 {
		t.Errorf("rally StochRSI = %+v, want ~100", got)
	}
}

func TestMFI(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   float64
		valid  bool
	}{
		{"rising", linear(20, 10, 1), 100, true},
		{"falling", linear(20, 100, -1), 0, true},
		{"flat", linear(20, 10, 0), 50, true},
		{"too short", linear(14, 10, 1), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Latest(MFI(barsFromCloses(tt.closes), 14))
			if got.Valid != tt.valid {
				t.Fatalf("valid = %v, want %v", got.Valid, tt.valid)
			}
			if tt.valid && !approx(got.Float64, tt.want) {
				t.Errorf("MFI = %.4f, want %.4f", got.Float64, tt.want)
			}
		})
	}
}

func TestWilliamsR(t *testing.T) {
	bars := make([]model.OHLCV, 14)
	for i := range bars {
		bars[i] = model.OHLCV{High: 110, Low: 90, Close: 100}
	}
	bars[13].Close = 110
	if got := Latest(WilliamsR(bars, 14)); !got.Valid || !approx(got.Float64, 0) {
		t.Errorf("close at high = %+v, want 0", got)
	}
	bars[13].Close = 90
	if got := Latest(WilliamsR(bars, 14)); !approx(got.Float64, -100) {
		t.Errorf("close at low = %+v, want -100", got)
	}
	bars[13].Close = 105
	if got := Latest(WilliamsR(bars, 14)); !approx(got.Float64, -25) {
		t.Errorf("close 105 = %+v, want -25", got)
	}
	if got := Latest(WilliamsR(barsFromCloses(linear(20, 5, 0)), 14)); got.Valid {
		t.Errorf("flat range should be unavailable, got %v", got.Float64)
	}
	if got := Latest(WilliamsR(bars[:13], 14)); got.Valid {
		t.Errorf("short series should be unavailable")
	}
}

func TestRVI(t *testing.T) {
	bars := make([]model.OHLCV, 12)
	for i := range bars {
		bars[i] = model.OHLCV{Open: 100, High: 110, Low: 100, Close: 110}
	}
	if got := Latest(RVI(bars, 10)); !got.Valid || !approx(got.Float64, 1) {
		t.Errorf("RVI = %+v, want 1", got)
	}

	bars[11] = model.OHLCV{Open: 100, High: 100, Low: 100, Close: 100}
	rvi := RVI(bars, 10)
	if valid(rvi[11]) {
		t.Errorf("window with flat bar should be undefined, got %v", rvi[11])
	}
	if got := Latest(rvi); !got.Valid || !approx(got.Float64, 1) {
		t.Errorf("latest defined RVI = %+v, want 1 from previous window", got)
	}
	if got := Latest(RVI(bars[:9], 10)); got.Valid {
		t.Error("short series should be unavailable")
	}
}

func TestConnorsRSI(t *testing.T) {
	// rising line: short RSI 100, streak RSI 100, and the shrinking
	// rate of change ranks last within the window
	closes := linear(60, 100, 1)
	got := Latest(ConnorsRSI(closes, 3, 2, 50))
	want := (100.0 + 100.0 + 100.0/50) / 3
	if !got.Valid || !approx(got.Float64, want) {
		t.Errorf("CRSI = %+v, want %.4f", got, want)
	}

	if got := Latest(ConnorsRSI(linear(59, 100, 1), 3, 2, 50)); got.Valid {
		t.Errorf("CRSI with %d closes should be unavailable", 59)
	}
}

func TestStreaks(t *testing.T) {
	got := streaks([]float64{1, 2, 3, 3, 2, 1, 2})
	want := []float64{0, 1, 2, 0, -1, -2, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("streak[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPercentRankTies(t *testing.T) {
	got := percentRank([]float64{1, 1, 1, 1}, 4)
	// all tied: average rank 2.5 of 4
	if !approx(got[3], 62.5) {
		t.Errorf("tied rank = %v, want 62.5", got[3])
	}
	got = percentRank([]float64{3, 1, 2, 4}, 4)
	if !approx(got[3], 100) {
		t.Errorf("max rank = %v, want 100", got[3])
	}
}

func TestKAMA(t *testing.T) {
	flat := KAMA(linear(20, 50, 0), 10, 2, 30)
	for i, v := range flat {
		if !approx(v, 50) {
			t.Fatalf("flat KAMA[%d] = %v, want 50", i, v)
		}
	}
	if got := Latest(KAMA(linear(10, 1, 1), 10, 2, 30)); got.Valid {
		t.Error("KAMA with n values should be unavailable")
	}

	rising := KAMA(linear(40, 1, 1), 10, 2, 30)
	for i := 1; i < len(rising); i++ {
		if rising[i] <= rising[i-1] {
			t.Fatalf("KAMA not increasing at %d: %v <= %v", i, rising[i], rising[i-1])
		}
	}
}

func TestAdaptiveRSI(t *testing.T) {
	if got := Latest(AdaptiveRSI(linear(40, 10, 1), 14, 10, 2, 30)); !got.Valid || !approx(got.Float64, 100) {
		t.Errorf("rising adaptive RSI = %+v, want 100", got)
	}
	if got := Latest(AdaptiveRSI(linear(25, 10, 1), 14, 10, 2, 30)); got.Valid {
		t.Error("adaptive RSI with 25 closes should be unavailable")
	}
}
