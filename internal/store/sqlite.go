package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/guregu/null/v6"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"MarketGauge/internal/logger"
	"MarketGauge/internal/model"
)

// SQLiteStore persists daily bars and computed snapshots to SQLite.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	log *logrus.Entry
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
// Pass ":memory:" for a throwaway database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps :memory: databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, log: logger.WithComponent("store")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s.log.WithField("path", dbPath).Info("sqlite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_ohlcv (
			date_str   TEXT PRIMARY KEY,
			open       REAL NOT NULL,
			high       REAL NOT NULL,
			low        REAL NOT NULL,
			close      REAL NOT NULL,
			volume     REAL NOT NULL,
			source     TEXT,
			fetched_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS calculated_indicators (` +
			strings.Join(snapshotColumnDefs(), ",\n") + `)`,
		`CREATE INDEX IF NOT EXISTS idx_calculated_at ON calculated_indicators(calculated_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) GetDaily(ctx context.Context, day time.Time) (*model.DailyBar, error) {
	row := s.db.QueryRowContext(ctx, `SELECT date_str, open, high, low, close, volume, source, fetched_at
		FROM daily_ohlcv WHERE date_str = ?`, model.DateKey(day))
	bar, err := scanDaily(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get daily %s: %w", model.DateKey(day), err)
	}
	return bar, nil
}

func (s *SQLiteStore) PutDaily(ctx context.Context, bar *model.DailyBar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO daily_ohlcv
		(date_str, open, high, low, close, volume, source, fetched_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(date_str) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume,
			source = excluded.source, fetched_at = excluded.fetched_at`,
		model.DateKey(bar.Time), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
		bar.Source, bar.FetchedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("put daily %s: %w", model.DateKey(bar.Time), err)
	}
	return nil
}

func (s *SQLiteStore) ListDaily(ctx context.Context, from, to time.Time) ([]model.DailyBar, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date_str, open, high, low, close, volume, source, fetched_at
		FROM daily_ohlcv WHERE date_str BETWEEN ? AND ? ORDER BY date_str ASC`,
		model.DateKey(from), model.DateKey(to))
	if err != nil {
		return nil, fmt.Errorf("list daily: %w", err)
	}
	defer rows.Close()

	var out []model.DailyBar
	for rows.Next() {
		bar, err := scanDaily(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily: %w", err)
		}
		out = append(out, *bar)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDaily(sc scanner) (*model.DailyBar, error) {
	var (
		dateStr   string
		source    sql.NullString
		fetchedAt int64
		bar       model.DailyBar
	)
	if err := sc.Scan(&dateStr, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume, &source, &fetchedAt); err != nil {
		return nil, err
	}
	day, err := model.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("parse date_str %q: %w", dateStr, err)
	}
	bar.Time = day
	bar.Source = source.String
	bar.FetchedAt = time.Unix(fetchedAt, 0).UTC()
	return &bar, nil
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, day time.Time) (*model.Snapshot, error) {
	query := `SELECT ` + strings.Join(snapshotColumns(), ", ") +
		` FROM calculated_indicators WHERE date_str = ?`
	row := s.db.QueryRowContext(ctx, query, model.DateKey(day))

	var (
		dateStr      string
		price        float64
		calculatedAt int64
		comp         model.CompositeMetrics
	)
	indicators := make(map[string]*null.Float)
	outcomes := make(map[model.Horizon]*outcomeRow)

	dest := []any{&dateStr, &price}
	for _, k := range model.IndicatorKeys {
		for _, tf := range model.Timeframes {
			v := new(null.Float)
			indicators[indicatorColumn(k, tf)] = v
			dest = append(dest, v)
		}
	}
	dest = append(dest, &comp.COS.Monthly, &comp.COS.Weekly, &comp.BSI.Monthly, &comp.BSI.Weekly)
	for _, h := range model.Horizons {
		o := &outcomeRow{}
		outcomes[h] = o
		dest = append(dest, &o.direction, &o.percentage, &o.price)
	}
	dest = append(dest, &calculatedAt)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot %s: %w", model.DateKey(day), err)
	}

	date, err := model.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("parse date_str %q: %w", dateStr, err)
	}
	snap := &model.Snapshot{
		Date:         date,
		Price:        price,
		Indicators:   make(model.IndicatorSnapshot, len(model.IndicatorKeys)),
		Composite:    comp,
		Outcomes:     make(model.OutcomeSet, len(model.Horizons)),
		CalculatedAt: time.Unix(calculatedAt, 0).UTC(),
	}
	for _, k := range model.IndicatorKeys {
		snap.Indicators[k] = model.IndicatorReading{
			Monthly: *indicators[indicatorColumn(k, model.Monthly)],
			Weekly:  *indicators[indicatorColumn(k, model.Weekly)],
		}
	}
	for _, h := range model.Horizons {
		o := outcomes[h]
		dir := model.Direction(o.direction.String)
		if dir == "" {
			dir = model.DirectionUnknown
		}
		snap.Outcomes[h] = model.Outcome{
			Direction:  dir,
			Percentage: o.percentage.Float64,
			Price:      o.price.Float64,
		}
	}
	return snap, nil
}

type outcomeRow struct {
	direction  sql.NullString
	percentage sql.NullFloat64
	price      sql.NullFloat64
}

func (s *SQLiteStore) PutSnapshot(ctx context.Context, snap *model.Snapshot) error {
	cols := snapshotColumns()
	args := []any{snap.DateStr(), snap.Price}
	for _, k := range model.IndicatorKeys {
		r := snap.Indicators[k]
		args = append(args, r.Monthly, r.Weekly)
	}
	c := snap.Composite
	args = append(args, c.COS.Monthly, c.COS.Weekly, c.BSI.Monthly, c.BSI.Weekly)
	for _, h := range model.Horizons {
		o, ok := snap.Outcomes[h]
		if !ok {
			o = model.UnknownOutcome
		}
		args = append(args, string(o.Direction), o.Percentage, o.Price)
	}
	args = append(args, snap.CalculatedAt.Unix())

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	query := `INSERT OR REPLACE INTO calculated_indicators (` + strings.Join(cols, ", ") +
		`) VALUES (` + placeholders + `)`

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put snapshot %s: %w", snap.DateStr(), err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.log.Info("closing sqlite store")
	return s.db.Close()
}

var indicatorColumnNames = map[model.IndicatorKey]string{
	model.KeyRSI:         "rsi",
	model.KeyStochRSI:    "stoch_rsi",
	model.KeyMFI:         "mfi",
	model.KeyCRSI:        "crsi",
	model.KeyWilliamsR:   "williams_r",
	model.KeyRVI:         "rvi",
	model.KeyAdaptiveRSI: "adaptive_rsi",
}

func indicatorColumn(k model.IndicatorKey, tf model.Timeframe) string {
	return indicatorColumnNames[k] + "_" + string(tf)
}

func outcomeColumnPrefix(h model.Horizon) string {
	return "outcome_" + strings.ToLower(string(h))
}

// snapshotColumns lists calculated_indicators columns in scan order.
func snapshotColumns() []string {
	cols := []string{"date_str", "price_at_event"}
	for _, k := range model.IndicatorKeys {
		for _, tf := range model.Timeframes {
			cols = append(cols, indicatorColumn(k, tf))
		}
	}
	cols = append(cols, "cos_monthly", "cos_weekly", "bsi_monthly", "bsi_weekly")
	for _, h := range model.Horizons {
		p := outcomeColumnPrefix(h)
		cols = append(cols, p+"_direction", p+"_percentage", p+"_price")
	}
	return append(cols, "calculated_at")
}

func snapshotColumnDefs() []string {
	cols := snapshotColumns()
	defs := make([]string, 0, len(cols))
	for _, c := range cols {
		switch {
		case c == "date_str":
			defs = append(defs, "date_str TEXT PRIMARY KEY")
		case c == "calculated_at":
			defs = append(defs, "calculated_at INTEGER NOT NULL")
		case strings.HasSuffix(c, "_direction"):
			defs = append(defs, c+" TEXT")
		default:
			defs = append(defs, c+" REAL")
		}
	}
	return defs
}
