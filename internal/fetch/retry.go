package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/crawllie/crawllie/internal/metrics"
)

// Retrier wraps a strategy with the shared retry envelope: bounded
// attempts, linearly growing backoff, per-attempt identity rotation, and a
// politeness delay after success. It mutates no crawl state.
type Retrier struct {
	cfg      Config
	strategy strategy
	robots   RobotsPolicy
	logger   *zap.Logger
	pick     func(n int) int
	sleep    func(ctx context.Context, d time.Duration) error
}

func newRetrier(cfg Config, s strategy, robots RobotsPolicy, logger *zap.Logger) *Retrier {
	return &Retrier{
		cfg:      cfg,
		strategy: s,
		robots:   robots,
		logger:   logger.With(zap.String("site", cfg.Site)),
		pick:     rand.Intn,
		sleep:    pause,
	}
}

// Fetch retrieves the body of rawURL. Attempts run up to the configured
// ceiling; before attempt n (n > 0) it waits baseDelay*(n+1), so backoff
// grows linearly. A successful attempt is followed by one more baseDelay
// wait (politeness, distinct from backoff) before the body is returned.
func (r *Retrier) Fetch(ctx context.Context, rawURL string) (string, error) {
	if !r.robots.Allowed(rawURL) {
		return "", fmt.Errorf("%w: %s", ErrRobotsDisallowed, rawURL)
	}

	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, r.cfg.BaseDelay*time.Duration(attempt+1)); err != nil {
				return "", err
			}
		}

		agent := r.cfg.UserAgents[r.pick(len(r.cfg.UserAgents))]
		body, err := r.strategy.attempt(ctx, rawURL, agent)
		if err != nil {
			lastErr = err
			metrics.ObserveFetchAttempt(r.cfg.Site, "error")
			r.logger.Debug("fetch attempt failed",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", r.cfg.MaxRetries),
				zap.Error(err),
			)
			continue
		}

		metrics.ObserveFetchAttempt(r.cfg.Site, "success")
		if err := r.sleep(ctx, r.cfg.BaseDelay); err != nil {
			return "", err
		}
		return body, nil
	}

	return "", fmt.Errorf("%w: %s after %d attempts: %w", ErrExhaustedRetries, rawURL, r.cfg.MaxRetries, lastErr)
}

// Close releases strategy resources.
func (r *Retrier) Close() error {
	if closer, ok := r.strategy.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// pause waits for d or until the context finishes.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
