package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"MarketGauge/internal/logger"
	"MarketGauge/internal/model"
)

const SourceCoinGecko = "coingecko"

// CoinGeckoConfig configures CoinGeckoFetcher.
type CoinGeckoConfig struct {
	BaseURL string
	CoinID  string
	// WindowDays limits requests to dates at most this many days old.
	WindowDays int
	Timeout    time.Duration
	Proxy      string
	Retry      RetryPolicy
}

// CoinGeckoFetcher reads the daily history snapshot of a coin. The
// endpoint only reports a price, so open, high, low and close are equal.
type CoinGeckoFetcher struct {
	client *resty.Client
	cfg    CoinGeckoConfig
	pacer  *Pacer
	log    *logrus.Entry
}

func NewCoinGeckoFetcher(cfg CoinGeckoConfig, pacer *Pacer) *CoinGeckoFetcher {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Accept", "application/json")
	if cfg.Proxy != "" {
		client.SetProxy(cfg.Proxy)
	}
	return &CoinGeckoFetcher{
		client: client,
		cfg:    cfg,
		pacer:  pacer,
		log:    logger.WithComponent("coingecko"),
	}
}

func (c *CoinGeckoFetcher) Name() string { return SourceCoinGecko }

// Covers reports whether day is within the provider's recent window.
func (c *CoinGeckoFetcher) Covers(day, now time.Time) bool {
	age := int(model.Day(now).Sub(model.Day(day)).Hours() / 24)
	return age >= 0 && age <= c.cfg.WindowDays
}

type coinGeckoHistory struct {
	MarketData *struct {
		CurrentPrice map[string]float64 `json:"current_price"`
		TotalVolume  map[string]float64 `json:"total_volume"`
	} `json:"market_data"`
}

func (c *CoinGeckoFetcher) FetchDay(ctx context.Context, day time.Time) (*model.DailyBar, error) {
	log := c.log.WithField("date", model.DateKey(day))
	var bar *model.DailyBar
	err := withRetry(ctx, c.cfg.Retry, log, func(attempt int) error {
		if err := c.pacer.Wait(ctx); err != nil {
			return err
		}
		resp, err := c.client.R().
			SetContext(ctx).
			SetPathParam("id", c.cfg.CoinID).
			SetQueryParams(map[string]string{
				"date":         day.UTC().Format("02-01-2006"),
				"localization": "false",
			}).
			Get("/coins/{id}/history")
		if err != nil {
			return fmt.Errorf("request: %w", err)
		}
		switch code := resp.StatusCode(); {
		case code == http.StatusTooManyRequests:
			return ErrRateLimited
		case code == http.StatusNotFound:
			return ErrNoData
		case code != http.StatusOK:
			return fmt.Errorf("status %d: %s", code, truncate(resp.String(), 200))
		}

		var h coinGeckoHistory
		if err := json.Unmarshal(resp.Body(), &h); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if h.MarketData == nil {
			return ErrNoData
		}
		price, ok := h.MarketData.CurrentPrice["usd"]
		if !ok || price <= 0 {
			return ErrNoData
		}
		bar = &model.DailyBar{
			OHLCV: model.OHLCV{
				Time: model.Day(day), Open: price, High: price, Low: price, Close: price,
				Volume: h.MarketData.TotalVolume["usd"],
			},
			Source:    SourceCoinGecko,
			FetchedAt: time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bar, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
