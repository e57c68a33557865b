// Package fetch implements the retryable fetcher. Two strategies share one
// retry envelope: a direct strategy performing a plain GET through a Colly
// collector, and a rendered strategy that drives headless Chrome and waits
// for scripts to settle. The factory selects a strategy from the site's
// dynamic flag.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrExhaustedRetries marks a fetch that failed every configured attempt.
// Callers treat it as a skip, never as fatal to the crawl.
var ErrExhaustedRetries = errors.New("fetch retries exhausted")

// ErrRobotsDisallowed marks a URL rejected by the robots policy hook.
var ErrRobotsDisallowed = errors.New("disallowed by robots policy")

// Config controls fetch behavior for one site.
type Config struct {
	// Site labels metrics and logs.
	Site string
	// Dynamic selects the rendered strategy.
	Dynamic bool
	// UserAgents is the identity pool rotated across attempts.
	UserAgents []string
	// MaxRetries is the total attempt ceiling.
	MaxRetries int
	// BaseDelay is both the politeness delay after a successful fetch and
	// the unit of backoff between attempts.
	BaseDelay time.Duration
	// Timeout bounds a single direct attempt.
	Timeout time.Duration
	// RenderWait is how long the rendered strategy lets scripts settle.
	RenderWait time.Duration
	// RenderQPS rate-limits headless navigations. Zero disables the limit.
	RenderQPS float64
}

func (c *Config) applyDefaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 1
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RenderWait <= 0 {
		c.RenderWait = 5 * time.Second
	}
	if len(c.UserAgents) == 0 {
		c.UserAgents = []string{"crawllie/1.0"}
	}
}

// RobotsPolicy is the admission hook consulted before any attempt.
// The default allows everything; real enforcement can slot in later
// without touching the retry envelope.
type RobotsPolicy interface {
	Allowed(url string) bool
}

type allowAll struct{}

func (allowAll) Allowed(string) bool { return true }

// strategy performs one fetch attempt under a given identity.
type strategy interface {
	attempt(ctx context.Context, rawURL, userAgent string) (string, error)
}

// New builds the fetcher for a site. The returned Retrier implements
// crawler.Fetcher; Close releases strategy resources (the headless browser
// for rendered sites).
func New(cfg Config, logger *zap.Logger) (*Retrier, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		s   strategy
		err error
	)
	if cfg.Dynamic {
		s, err = newRenderedStrategy(cfg)
		if err != nil {
			return nil, fmt.Errorf("init rendered strategy: %w", err)
		}
	} else {
		s = newDirectStrategy(cfg)
	}
	return newRetrier(cfg, s, allowAll{}, logger), nil
}
