package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pipeline.HistoryYears != 2 || cfg.Pipeline.MinDailyRows != 60 || cfg.Pipeline.SnapshotTTL != time.Hour {
		t.Errorf("pipeline defaults = %+v", cfg.Pipeline)
	}
	if cfg.Sources.RecentWindow != 365 || cfg.Sources.PolitenessDelay != 1500*time.Millisecond {
		t.Errorf("source defaults = %+v", cfg.Sources)
	}
	if cfg.Sources.Kraken.Backoff != "exponential" || cfg.Sources.CoinGecko.Backoff != "linear" {
		t.Errorf("backoff defaults = %q / %q", cfg.Sources.Kraken.Backoff, cfg.Sources.CoinGecko.Backoff)
	}
	if cfg.Composite.COSCap != 150 || cfg.Indicators.MinBars != 20 {
		t.Errorf("composite cap %v min bars %d", cfg.Composite.COSCap, cfg.Indicators.MinBars)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  history_years: 3
  snapshot_ttl: 30m
sources:
  kraken:
    attempts: 5
database:
  sqlite_path: /tmp/file.db
`)
	t.Setenv("SQLITE_PATH", "/tmp/env.db")
	t.Setenv("GAUGE_HISTORY_YEARS", "4")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.SQLitePath != "/tmp/env.db" {
		t.Errorf("sqlite path = %q, want env override", cfg.Database.SQLitePath)
	}
	if cfg.Pipeline.HistoryYears != 4 {
		t.Errorf("history years = %d, want 4", cfg.Pipeline.HistoryYears)
	}
	if cfg.Pipeline.SnapshotTTL != 30*time.Minute {
		t.Errorf("ttl = %v, want 30m", cfg.Pipeline.SnapshotTTL)
	}
	if cfg.Sources.Kraken.Attempts != 5 || cfg.Sources.Kraken.BaseURL == "" {
		t.Errorf("kraken = %+v", cfg.Sources.Kraken)
	}
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("GAUGE_SNAPSHOT_TTL", "soon")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for bad duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"cap below 100", func(c *Config) { c.Composite.COSCap = 90 }, "cos_component_cap"},
		{"bad backoff", func(c *Config) { c.Sources.Kraken.Backoff = "random" }, "backoff"},
		{"half telegram", func(c *Config) { c.Telegram.BotToken = "x" }, "telegram"},
		{"zero years", func(c *Config) { c.Pipeline.HistoryYears = 0 }, "history_years"},
		{"bad event date", func(c *Config) { c.HistoricalPoints[0].Date = "17-12-2017" }, "historical_points"},
		{"duplicate event id", func(c *Config) { c.HistoricalPoints[1].ID = c.HistoricalPoints[0].ID }, "duplicate id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadHistoricalPoints(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.HistoricalPoints) != 7 || cfg.HistoricalPoints[0].Date != "2017-12-17" {
		t.Errorf("default points = %+v", cfg.HistoricalPoints)
	}

	path := writeConfig(t, `
historical_points:
  - id: 10
    date: "2020-03-12"
    name: Black Thursday
    description: covid crash
`)
	cfg, err = Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.HistoricalPoints) != 1 || cfg.HistoricalPoints[0].ID != 10 || cfg.HistoricalPoints[0].Name != "Black Thursday" {
		t.Errorf("points = %+v", cfg.HistoricalPoints)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}
