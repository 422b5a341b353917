package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"MarketGauge/internal/logger"
	"MarketGauge/internal/model"
)

const (
	SourceKraken         = "kraken"
	SourceKrakenAdjusted = "kraken_adjusted_time"
)

// KrakenConfig configures KrakenFetcher.
type KrakenConfig struct {
	BaseURL string
	Pair    string
	Timeout time.Duration
	Proxy   string
	Retry   RetryPolicy
}

// KrakenFetcher reads daily candles from the public OHLC endpoint.
type KrakenFetcher struct {
	client *resty.Client
	cfg    KrakenConfig
	pacer  *Pacer
	log    *logrus.Entry
}

func NewKrakenFetcher(cfg KrakenConfig, pacer *Pacer) *KrakenFetcher {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.Timeout)
	if cfg.Proxy != "" {
		client.SetProxy(cfg.Proxy)
	}
	return &KrakenFetcher{
		client: client,
		cfg:    cfg,
		pacer:  pacer,
		log:    logger.WithComponent("kraken"),
	}
}

func (k *KrakenFetcher) Name() string { return SourceKraken }

type krakenResponse struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

// FetchDay asks for candles starting at the target midnight and takes the
// one stamped exactly then. Failing that it widens the window one day back
// and accepts the first candle on the same UTC date. A malformed first
// answer also triggers the wider request.
func (k *KrakenFetcher) FetchDay(ctx context.Context, day time.Time) (*model.DailyBar, error) {
	target := model.Day(day)
	log := k.log.WithField("date", model.DateKey(target))

	candles, err := k.candles(ctx, target, log)
	if err != nil && !errors.Is(err, ErrMalformed) {
		return nil, err
	}
	for _, c := range candles {
		if c.Time.Equal(target) {
			return k.bar(c, SourceKraken), nil
		}
	}

	log.Debug("no exact candle, widening window by one day")
	candles, err = k.candles(ctx, target.AddDate(0, 0, -1), log)
	if err != nil {
		return nil, err
	}
	for _, c := range candles {
		if c.Time.Equal(target) {
			return k.bar(c, SourceKraken), nil
		}
	}
	for _, c := range candles {
		if model.SameDay(c.Time, target) {
			return k.bar(c, SourceKrakenAdjusted), nil
		}
	}
	return nil, ErrNoData
}

func (k *KrakenFetcher) bar(c model.OHLCV, source string) *model.DailyBar {
	c.Time = model.Day(c.Time)
	return &model.DailyBar{OHLCV: c, Source: source, FetchedAt: time.Now().UTC()}
}

func (k *KrakenFetcher) candles(ctx context.Context, since time.Time, log *logrus.Entry) ([]model.OHLCV, error) {
	var out []model.OHLCV
	err := withRetry(ctx, k.cfg.Retry, log, func(attempt int) error {
		if err := k.pacer.Wait(ctx); err != nil {
			return err
		}
		resp, err := k.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"pair":     k.cfg.Pair,
				"interval": "1440",
				"since":    strconv.FormatInt(since.Unix(), 10),
			}).
			Get("/0/public/OHLC")
		if err != nil {
			return fmt.Errorf("request: %w", err)
		}
		switch code := resp.StatusCode(); {
		case code == http.StatusTooManyRequests:
			return ErrRateLimited
		case code >= 500:
			return fmt.Errorf("status %d", code)
		case code != http.StatusOK:
			return fmt.Errorf("%w: status %d", ErrMalformed, code)
		}

		candles, err := k.parse(resp.Body())
		if err != nil {
			return err
		}
		out = candles
		return nil
	})
	return out, err
}

func (k *KrakenFetcher) parse(body []byte) ([]model.OHLCV, error) {
	var r krakenResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for _, e := range r.Error {
		if strings.Contains(e, "Rate limit") {
			return nil, ErrRateLimited
		}
	}
	if len(r.Error) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, strings.Join(r.Error, "; "))
	}

	raw, ok := r.Result[k.cfg.Pair]
	if !ok {
		for key, v := range r.Result {
			if key != "last" {
				raw, ok = v, true
				break
			}
		}
	}
	if !ok {
		return nil, nil
	}

	var rows [][]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: candles: %v", ErrMalformed, err)
	}
	out := make([]model.OHLCV, 0, len(rows))
	for _, row := range rows {
		c, err := parseKrakenCandle(row)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// parseKrakenCandle decodes [time, open, high, low, close, vwap, volume, count].
func parseKrakenCandle(row []json.RawMessage) (model.OHLCV, error) {
	if len(row) < 7 {
		return model.OHLCV{}, fmt.Errorf("candle has %d fields", len(row))
	}
	ts, err := strconv.ParseInt(strings.Trim(string(row[0]), `"`), 10, 64)
	if err != nil {
		return model.OHLCV{}, fmt.Errorf("candle time: %w", err)
	}
	field := func(i int) (float64, error) {
		return ParseNumber(strings.Trim(string(row[i]), `"`))
	}
	var vals [5]float64
	for i, idx := range []int{1, 2, 3, 4, 6} {
		if vals[i], err = field(idx); err != nil {
			return model.OHLCV{}, fmt.Errorf("candle field %d: %w", idx, err)
		}
	}
	c := model.OHLCV{
		Time: time.Unix(ts, 0).UTC(),
		Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
	}
	if err := c.Validate(); err != nil {
		return model.OHLCV{}, err
	}
	return c, nil
}
