package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"MarketGauge/internal/model"
)

// ProviderConfig configures one remote daily-bar provider.
type ProviderConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Attempts  int           `yaml:"attempts"`
	BaseDelay time.Duration `yaml:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay"`
	Backoff   string        `yaml:"backoff"` // linear or exponential
	Timeout   time.Duration `yaml:"timeout"`
}

// Config holds all application configuration.
type Config struct {
	Asset struct {
		CoinGeckoID string `yaml:"coingecko_id"`
		KrakenPair  string `yaml:"kraken_pair"`
	} `yaml:"asset"`
	Sources struct {
		CSVDir          string         `yaml:"csv_dir"`
		PolitenessDelay time.Duration  `yaml:"politeness_delay"`
		RecentWindow    int            `yaml:"recent_window_days"`
		CoinGecko       ProviderConfig `yaml:"coingecko"`
		Kraken          ProviderConfig `yaml:"kraken"`
	} `yaml:"sources"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Pipeline struct {
		HistoryYears int           `yaml:"history_years"`
		MinDailyRows int           `yaml:"min_daily_rows"`
		SnapshotTTL  time.Duration `yaml:"snapshot_ttl"`
	} `yaml:"pipeline"`
	Indicators struct {
		MinBars int `yaml:"min_bars"`
	} `yaml:"indicators"`
	Composite struct {
		COSCap float64 `yaml:"cos_component_cap"`
		BSICap float64 `yaml:"bsi_component_cap"`
	} `yaml:"composite"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	// HistoricalPoints are the dates replayed by the time machine.
	HistoricalPoints []model.HistoricalEvent `yaml:"historical_points"`
	Telegram         struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides and finally defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"GAUGE_CSV_DIR":       &c.Sources.CSVDir,
		"GAUGE_COINGECKO_URL": &c.Sources.CoinGecko.BaseURL,
		"GAUGE_KRAKEN_URL":    &c.Sources.Kraken.BaseURL,
		"GAUGE_COINGECKO_ID":  &c.Asset.CoinGeckoID,
		"GAUGE_KRAKEN_PAIR":   &c.Asset.KrakenPair,
		"SQLITE_PATH":         &c.Database.SQLitePath,
		"GAUGE_ADDR":          &c.Server.Addr,
		"GAUGE_REFRESH_CRON":  &c.Schedule.RefreshCron,
		"TELEGRAM_BOT_TOKEN":  &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":    &c.Telegram.ChatID,
		"LOG_LEVEL":           &c.Logging.Level,
		"LOG_FORMAT":          &c.Logging.Format,
		"LOG_FILE":            &c.Logging.File,
		"HTTPS_PROXY":         &c.Proxy,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("GAUGE_HISTORY_YEARS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GAUGE_HISTORY_YEARS: %w", err)
		}
		c.Pipeline.HistoryYears = n
	}
	if v := os.Getenv("GAUGE_SNAPSHOT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("GAUGE_SNAPSHOT_TTL: %w", err)
		}
		c.Pipeline.SnapshotTTL = d
	}
	if v := os.Getenv("GAUGE_POLITENESS_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("GAUGE_POLITENESS_DELAY: %w", err)
		}
		c.Sources.PolitenessDelay = d
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Asset.CoinGeckoID == "" {
		c.Asset.CoinGeckoID = "bitcoin"
	}
	if c.Asset.KrakenPair == "" {
		c.Asset.KrakenPair = "XXBTZUSD"
	}
	if c.Sources.CSVDir == "" {
		c.Sources.CSVDir = "data/csv"
	}
	if c.Sources.PolitenessDelay == 0 {
		c.Sources.PolitenessDelay = 1500 * time.Millisecond
	}
	if c.Sources.RecentWindow == 0 {
		c.Sources.RecentWindow = 365
	}
	providerDefaults(&c.Sources.CoinGecko, "https://api.coingecko.com/api/v3", 2*time.Second, "linear")
	providerDefaults(&c.Sources.Kraken, "https://api.kraken.com", time.Second, "exponential")
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/market_gauge.db"
	}
	if c.Pipeline.HistoryYears == 0 {
		c.Pipeline.HistoryYears = 2
	}
	if c.Pipeline.MinDailyRows == 0 {
		c.Pipeline.MinDailyRows = 60
	}
	if c.Pipeline.SnapshotTTL == 0 {
		c.Pipeline.SnapshotTTL = time.Hour
	}
	if c.Indicators.MinBars == 0 {
		c.Indicators.MinBars = 20
	}
	if c.Composite.COSCap == 0 {
		c.Composite.COSCap = 150
	}
	if c.Composite.BSICap == 0 {
		c.Composite.BSICap = 100
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "0 5 * * * *" // hourly, five past
	}
	if len(c.HistoricalPoints) == 0 {
		c.HistoricalPoints = model.DefaultHistoricalEvents()
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func providerDefaults(p *ProviderConfig, baseURL string, delay time.Duration, backoff string) {
	if p.BaseURL == "" {
		p.BaseURL = baseURL
	}
	if p.Attempts == 0 {
		p.Attempts = 3
	}
	if p.BaseDelay == 0 {
		p.BaseDelay = delay
	}
	if p.MaxDelay == 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.Backoff == "" {
		p.Backoff = backoff
	}
	if p.Timeout == 0 {
		p.Timeout = 30 * time.Second
	}
}

// TelegramEnabled reports whether refresh summaries should be sent.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks that all settings are usable.
func (c *Config) Validate() error {
	if c.Pipeline.HistoryYears < 1 {
		return fmt.Errorf("pipeline.history_years must be at least 1")
	}
	if c.Pipeline.MinDailyRows < 0 {
		return fmt.Errorf("pipeline.min_daily_rows must not be negative")
	}
	if c.Pipeline.SnapshotTTL < 0 {
		return fmt.Errorf("pipeline.snapshot_ttl must not be negative")
	}
	if c.Indicators.MinBars < 1 {
		return fmt.Errorf("indicators.min_bars must be positive")
	}
	if c.Composite.COSCap < 100 {
		return fmt.Errorf("composite.cos_component_cap must be at least 100")
	}
	if c.Composite.BSICap <= 0 {
		return fmt.Errorf("composite.bsi_component_cap must be positive")
	}
	if c.Sources.RecentWindow < 0 {
		return fmt.Errorf("sources.recent_window_days must not be negative")
	}
	for name, p := range map[string]ProviderConfig{"coingecko": c.Sources.CoinGecko, "kraken": c.Sources.Kraken} {
		if p.Backoff != "linear" && p.Backoff != "exponential" {
			return fmt.Errorf("sources.%s.backoff must be linear or exponential, got %q", name, p.Backoff)
		}
		if p.Attempts < 1 {
			return fmt.Errorf("sources.%s.attempts must be positive", name)
		}
	}
	ids := make(map[int]bool, len(c.HistoricalPoints))
	for _, e := range c.HistoricalPoints {
		if _, err := model.ParseDate(e.Date); err != nil {
			return fmt.Errorf("historical_points: event %d has invalid date %q", e.ID, e.Date)
		}
		if ids[e.ID] {
			return fmt.Errorf("historical_points: duplicate id %d", e.ID)
		}
		ids[e.ID] = true
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}
