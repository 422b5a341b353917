package calculator

import (
	"time"

	"MarketGauge/internal/model"
)

// Resample aggregates chronologically ordered daily bars into weekly
// (ISO week, Monday start) or calendar-month bars: open of the first day,
// max high, min low, close of the last day, summed volume. Weekly bars are
// stamped with their Monday, monthly bars with the last day of the month.
// Periods without data produce no bar.
func Resample(daily []model.OHLCV, tf model.Timeframe) []model.OHLCV {
	if len(daily) == 0 {
		return nil
	}
	label := weekStart
	if tf == model.Monthly {
		label = monthEnd
	}

	var out []model.OHLCV
	var cur model.OHLCV
	var curLabel time.Time
	started := false

	for _, d := range daily {
		l := label(d.Time)
		if !started || !l.Equal(curLabel) {
			if started {
				out = append(out, cur)
			}
			cur = model.OHLCV{Time: l, Open: d.Open, High: d.High, Low: d.Low, Close: d.Close, Volume: d.Volume}
			curLabel = l
			started = true
			continue
		}
		if d.High > cur.High {
			cur.High = d.High
		}
		if d.Low < cur.Low {
			cur.Low = d.Low
		}
		cur.Close = d.Close
		cur.Volume += d.Volume
	}
	return append(out, cur)
}

func weekStart(t time.Time) time.Time {
	d := model.Day(t)
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	return d.AddDate(0, 0, -offset)
}

func monthEnd(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
}
