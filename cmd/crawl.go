package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crawllie/crawllie/internal/app"
)

// newCrawlCmd creates the 'crawl' subcommand. It runs the configured sites
// sequentially and exits zero even when individual sites fail; per-site
// outcomes land in the results file.
func newCrawlCmd() *cobra.Command {
	var (
		sites    []string
		withNews bool
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the configured sites",
		Long: `Runs one crawl per configured site: breadth-first traversal from the
seed URL up to the page limit, streaming records into the object store.
With --sites only the named sites run; --news additionally collects
supplementary news articles.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all {
				sites = nil
				withNews = true
			}
			return runCrawl(cmd.Context(), sites, withNews)
		},
	}

	cmd.Flags().StringSliceVar(&sites, "sites", nil, "site names to crawl (default: all configured)")
	cmd.Flags().BoolVar(&withNews, "news", false, "also collect news articles")
	cmd.Flags().BoolVar(&all, "all", false, "crawl every configured site and collect news")
	return cmd
}

func runCrawl(parent context.Context, sites []string, withNews bool) error {
	cfg, logger, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}
	defer a.Close()

	if err := a.Run(ctx, sites, withNews); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawl: %w", err)
	}

	logger.Info("crawl command finished", zap.Int("sites", len(a.Runs())))
	return nil
}
