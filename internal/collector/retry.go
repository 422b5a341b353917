package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Backoff selects how retry delays grow.
type Backoff string

const (
	BackoffLinear      Backoff = "linear"      // base * attempt
	BackoffExponential Backoff = "exponential" // base * 2^(attempt-1)
)

// RetryPolicy bounds the attempts one source gets for one request.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Backoff   Backoff
}

// Delay returns how long to wait before retry number attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	var d time.Duration
	switch p.Backoff {
	case BackoffExponential:
		d = p.BaseDelay * time.Duration(1<<uint(attempt-1))
	default:
		d = p.BaseDelay * time.Duration(attempt)
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// retryable reports whether another attempt may succeed. Missing data and
// unusable payloads will not change on retry.
func retryable(err error) bool {
	return !errors.Is(err, ErrNoData) && !errors.Is(err, ErrMalformed) &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// withRetry runs fn until it succeeds or fails permanently, at most
// p.Attempts times.
func withRetry(ctx context.Context, p RetryPolicy, log *logrus.Entry, fn func(attempt int) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := p.Delay(attempt)
			log.WithFields(logrus.Fields{"attempt": attempt + 1, "delay": delay}).
				WithError(lastErr).Warn("retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) {
			return err
		}
	}
	return fmt.Errorf("%d attempts exhausted: %w", attempts, lastErr)
}

// Pacer enforces a minimum gap between outbound requests across every
// remote source.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer allows one request per interval. A zero interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next request may be sent.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
