package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"MarketGauge/internal/logger"
	"MarketGauge/internal/model"
)

const (
	SourceCSVExact    = "csv_exact"
	SourceCSVDayMatch = "csv_day_match"
)

// LocalDataset serves daily bars from bundled CSV files. Rows have no
// header: unix_ts,open,high,low,close,volume[,trades].
type LocalDataset struct {
	bars map[string]model.DailyBar
	log  *logrus.Entry
}

// LoadLocalDataset reads every *.csv file under dir once. A missing
// directory yields an empty dataset.
func LoadLocalDataset(dir string) (*LocalDataset, error) {
	ds := &LocalDataset{
		bars: make(map[string]model.DailyBar),
		log:  logger.WithComponent("local_dataset"),
	}
	if dir == "" {
		return ds, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", dir, err)
	}
	if len(files) == 0 {
		ds.log.WithField("dir", dir).Warn("no csv files found, local dataset empty")
		return ds, nil
	}
	sort.Strings(files)

	var rows []model.DailyBar
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		parsed, err := ParseBundledCSV(f)
		f.Close()
		if err != nil {
			ds.log.WithField("file", path).WithError(err).Warn("skipping unreadable csv file")
			continue
		}
		rows = append(rows, parsed...)
	}
	ds.index(rows)
	ds.log.WithFields(logrus.Fields{"files": len(files), "days": len(ds.bars)}).Info("local dataset loaded")
	return ds, nil
}

// NewLocalDataset builds a dataset from already parsed rows.
func NewLocalDataset(rows []model.DailyBar) *LocalDataset {
	ds := &LocalDataset{bars: make(map[string]model.DailyBar), log: logger.WithComponent("local_dataset")}
	ds.index(rows)
	return ds
}

// index keeps one row per UTC day: the row stamped exactly at midnight if
// present, otherwise the earliest row of that day.
func (d *LocalDataset) index(rows []model.DailyBar) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Time.Before(rows[j].Time) })
	for _, r := range rows {
		key := model.DateKey(r.Time)
		exact := r.Time.Equal(model.Day(r.Time))
		if prev, ok := d.bars[key]; ok && (prev.Source == SourceCSVExact || !exact) {
			continue
		}
		r.Source = SourceCSVDayMatch
		if exact {
			r.Source = SourceCSVExact
		}
		r.Time = model.Day(r.Time)
		d.bars[key] = r
	}
}

func (d *LocalDataset) Name() string { return "csv" }

// Len returns the number of distinct days held.
func (d *LocalDataset) Len() int { return len(d.bars) }

func (d *LocalDataset) FetchDay(_ context.Context, day time.Time) (*model.DailyBar, error) {
	bar, ok := d.bars[model.DateKey(day)]
	if !ok {
		return nil, ErrNoData
	}
	bar.FetchedAt = time.Now().UTC()
	return &bar, nil
}

// ParseBundledCSV parses headerless rows of unix_ts,open,high,low,close,volume.
// Unparseable rows and bars failing OHLCV validation are skipped.
func ParseBundledCSV(r io.Reader) ([]model.DailyBar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	log := logger.WithComponent("local_dataset")
	var out []model.DailyBar
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			log.WithField("line", line).WithError(err).Warn("skipping malformed csv line")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bar, err := parseRow(rec)
		if err != nil {
			log.WithField("line", line).WithError(err).Debug("skipping row")
			continue
		}
		out = append(out, bar)
	}
	return out, nil
}

func parseRow(rec []string) (model.DailyBar, error) {
	if len(rec) < 6 {
		return model.DailyBar{}, fmt.Errorf("want at least 6 fields, got %d", len(rec))
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
	if err != nil {
		return model.DailyBar{}, fmt.Errorf("timestamp: %w", err)
	}
	if ts > 1e12 { // milliseconds
		ts /= 1000
	}
	vals := make([]float64, 5)
	for i := range vals {
		v, err := ParseNumber(rec[i+1])
		if err != nil {
			return model.DailyBar{}, fmt.Errorf("field %d: %w", i+2, err)
		}
		vals[i] = v
	}
	bar := model.DailyBar{OHLCV: model.OHLCV{
		Time: time.Unix(ts, 0).UTC(),
		Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
	}}
	if err := bar.Validate(); err != nil {
		return model.DailyBar{}, err
	}
	return bar, nil
}

// ParseNumber parses a decimal that may carry thousands separators.
func ParseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}
