package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"
)

// renderedStrategy fetches through headless Chrome, waiting a configured
// settle duration so client-side rendering finishes before the DOM is
// captured. Render failures surface as ordinary attempt errors and go
// through the same retry envelope as direct fetches.
type renderedStrategy struct {
	allocator   context.Context
	allocCancel context.CancelFunc
	navTimeout  time.Duration
	settle      time.Duration
	limiter     *rate.Limiter
}

func newRenderedStrategy(cfg Config) (*renderedStrategy, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	var limiter *rate.Limiter
	if cfg.RenderQPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RenderQPS), 1)
	}

	navTimeout := cfg.Timeout + cfg.RenderWait
	return &renderedStrategy{
		allocator:   allocCtx,
		allocCancel: allocCancel,
		navTimeout:  navTimeout,
		settle:      cfg.RenderWait,
		limiter:     limiter,
	}, nil
}

func (s *renderedStrategy) attempt(ctx context.Context, rawURL, userAgent string) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("render rate limit: %w", err)
		}
	}

	taskCtx, taskCancel := chromedp.NewContext(s.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, s.navTimeout)
	defer cancel()

	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	var html string
	actions := []chromedp.Action{
		emulation.SetUserAgentOverride(userAgent),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, nil
}

// Close tears down the browser allocator.
func (s *renderedStrategy) Close() error {
	s.allocCancel()
	return nil
}

// forwardCancel propagates cancellation of the caller's context into the
// chromedp task context.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
