// Package cmd defines the CLI commands for the crawllie executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crawllie/crawllie/internal/config"
	"github.com/crawllie/crawllie/internal/logging"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawllie",
		Short: "A bounded breadth-first website crawler with streaming persistence.",
		Long: `crawllie crawls configured websites breadth-first up to a page limit,
deduplicates page content, and streams page and analysis records into an
object store as gzip-compressed, chunked artifacts. Post-crawl summary and
sitemap artifacts are written alongside, and run outcomes are optionally
recorded in Postgres and announced over Pub/Sub.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	cmd.AddCommand(newCrawlCmd())
	return cmd
}

// loadEnvironment builds the config and logger shared by subcommands.
func loadEnvironment() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "crawllie: %v\n", err)
		os.Exit(1)
	}
}
