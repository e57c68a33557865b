package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// directStrategy performs a single synchronous GET through a Colly
// collector. Each attempt clones the base collector so the rotated
// user-agent applies cleanly.
type directStrategy struct {
	base    *colly.Collector
	timeout time.Duration
}

func newDirectStrategy(cfg Config) *directStrategy {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true // admission runs through the RobotsPolicy hook
	c.AllowURLRevisit = true // retries re-request the same URL
	c.WithTransport(newHTTPTransport())
	return &directStrategy{
		base:    c,
		timeout: cfg.Timeout,
	}
}

func (s *directStrategy) attempt(ctx context.Context, rawURL, userAgent string) (string, error) {
	collector := s.base.Clone()
	collector.UserAgent = userAgent
	collector.AllowURLRevisit = true
	collector.SetRequestTimeout(s.timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("http status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return "", fetchErr
		}
		if err != nil {
			return "", fmt.Errorf("visit %s: %w", rawURL, err)
		}
		return string(body), nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
