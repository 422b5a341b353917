package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"MarketGauge/internal/collector"
	"MarketGauge/internal/composite"
	"MarketGauge/internal/config"
	"MarketGauge/internal/logger"
	"MarketGauge/internal/metrics"
	"MarketGauge/internal/model"
	"MarketGauge/internal/service"
	"MarketGauge/internal/store"
)

// app holds the wired components shared by every command.
type app struct {
	cfg       *config.Config
	store     store.Store
	collector *collector.Collector
	service   *service.Service
	metrics   *metrics.Metrics
	log       *logrus.Entry
}

func newApp(cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	if err := logger.Init(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log := logger.WithComponent("main")

	var st store.Store
	sq, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		log.WithError(err).Warn("init sqlite store failed, using in-memory store")
		st = store.NewMemoryStore()
	} else {
		st = sq
	}

	local, err := collector.LoadLocalDataset(cfg.Sources.CSVDir)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load local dataset: %w", err)
	}

	m := metrics.New()
	pacer := collector.NewPacer(cfg.Sources.PolitenessDelay)
	cg := cfg.Sources.CoinGecko
	kr := cfg.Sources.Kraken
	fetchers := []collector.Fetcher{
		local,
		collector.NewCoinGeckoFetcher(collector.CoinGeckoConfig{
			BaseURL:    cg.BaseURL,
			CoinID:     cfg.Asset.CoinGeckoID,
			WindowDays: cfg.Sources.RecentWindow,
			Timeout:    cg.Timeout,
			Proxy:      cfg.Proxy,
			Retry:      retryPolicy(cg),
		}, pacer),
		collector.NewKrakenFetcher(collector.KrakenConfig{
			BaseURL: kr.BaseURL,
			Pair:    cfg.Asset.KrakenPair,
			Timeout: kr.Timeout,
			Proxy:   cfg.Proxy,
			Retry:   retryPolicy(kr),
		}, pacer),
	}
	col := collector.NewCollector(st, fetchers,
		collector.WithMetrics(m),
		collector.WithTodayTTL(cfg.Pipeline.SnapshotTTL),
	)

	table := composite.DefaultTable()
	table.COSCap = cfg.Composite.COSCap
	table.BSICap = cfg.Composite.BSICap
	svc := service.New(col, st, service.Options{
		HistoryYears: cfg.Pipeline.HistoryYears,
		MinDailyRows: cfg.Pipeline.MinDailyRows,
		SnapshotTTL:  cfg.Pipeline.SnapshotTTL,
		MinBars:      cfg.Indicators.MinBars,
		Composite:    table,
		Events:       cfg.HistoricalPoints,
	}, m, nil)

	return &app{cfg: cfg, store: st, collector: col, service: svc, metrics: m, log: log}, nil
}

func retryPolicy(p config.ProviderConfig) collector.RetryPolicy {
	return collector.RetryPolicy{
		Attempts:  p.Attempts,
		BaseDelay: p.BaseDelay,
		MaxDelay:  p.MaxDelay,
		Backoff:   collector.Backoff(p.Backoff),
	}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("close store")
	}
}

// parseDay reads a YYYY-MM-DD flag, defaulting to the current UTC date.
func parseDay(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return model.Day(now), nil
	}
	return model.ParseDate(s)
}
