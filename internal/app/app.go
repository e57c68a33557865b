// Package app is the composition root: it builds the object store, the
// ledger, the publisher, and the per-site crawl pipelines from config, runs
// the sites sequentially, and writes the local results file.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	gstorage "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crawllie/crawllie/internal/api"
	"github.com/crawllie/crawllie/internal/clock/system"
	"github.com/crawllie/crawllie/internal/config"
	"github.com/crawllie/crawllie/internal/crawler"
	"github.com/crawllie/crawllie/internal/extract"
	"github.com/crawllie/crawllie/internal/fetch"
	"github.com/crawllie/crawllie/internal/ledger"
	"github.com/crawllie/crawllie/internal/metrics"
	"github.com/crawllie/crawllie/internal/news"
	"github.com/crawllie/crawllie/internal/publish"
	"github.com/crawllie/crawllie/internal/storage"
	gcsstore "github.com/crawllie/crawllie/internal/storage/gcs"
	memorystore "github.com/crawllie/crawllie/internal/storage/memory"
	"github.com/crawllie/crawllie/internal/stream"
	"github.com/crawllie/crawllie/internal/textproc"
)

// App holds the shared dependencies for one process lifetime.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	store     storage.ObjectStore
	gcsClient *gstorage.Client
	ledger    *ledger.Store
	publisher publish.Publisher
	clock     crawler.Clock

	mu   sync.Mutex
	runs []api.SiteRun
}

// Build constructs an App from config. Construction fails fast on
// misconfiguration; nothing here starts a crawl.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.Init()

	a := &App{
		cfg:    cfg,
		logger: logger,
		clock:  system.New(),
	}

	if err := a.setupStorage(ctx); err != nil {
		return nil, err
	}
	if err := a.setupLedger(ctx); err != nil {
		return nil, err
	}
	if err := a.setupPublisher(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) setupStorage(ctx context.Context) error {
	switch a.cfg.Storage.Backend {
	case "gcs":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("gcs client init failed: %w", err)
		}
		store, err := gcsstore.New(ctx, client, gcsstore.Config{Bucket: a.cfg.Storage.Bucket}, a.logger.Named("gcs"))
		if err != nil {
			client.Close()
			return fmt.Errorf("gcs store init failed: %w", err)
		}
		a.gcsClient = client
		a.store = store
		a.logger.Info("using gcs storage backend", zap.String("bucket", a.cfg.Storage.Bucket))
	default:
		a.store = memorystore.New()
		a.logger.Info("using in-memory storage backend")
	}
	return nil
}

func (a *App) setupLedger(ctx context.Context) error {
	if a.cfg.Ledger.DSN == "" {
		a.logger.Info("no ledger dsn configured, run history will not be recorded")
		return nil
	}
	store, err := ledger.New(ctx, ledger.Config{
		DSN:             a.cfg.Ledger.DSN,
		Table:           a.cfg.Ledger.Table,
		MaxConns:        a.cfg.Ledger.MaxConns,
		MinConns:        a.cfg.Ledger.MinConns,
		MaxConnLifetime: a.cfg.Ledger.MaxConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("ledger init failed: %w", err)
	}
	a.ledger = store
	a.logger.Info("run ledger initialized", zap.String("table", a.cfg.Ledger.Table))
	return nil
}

func (a *App) setupPublisher(ctx context.Context) error {
	if a.cfg.PubSub.TopicName == "" {
		a.publisher = publish.NewMemory()
		return nil
	}
	pub, err := publish.NewPubSub(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.TopicName, a.logger.Named("pubsub"))
	if err != nil {
		return fmt.Errorf("publisher init failed: %w", err)
	}
	a.publisher = pub
	a.logger.Info("pubsub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	return nil
}

// Runs implements api.RunSource.
func (a *App) Runs() []api.SiteRun {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]api.SiteRun(nil), a.runs...)
}

// Close releases shared resources.
func (a *App) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("publisher close failed", zap.Error(err))
		}
	}
	a.ledger.Close()
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
}

// Run crawls the given sites sequentially, optionally collects news, and
// writes the local results file. Per-site failures are recorded, not
// returned; only an empty site selection or a results-file write error is
// fatal.
func (a *App) Run(ctx context.Context, siteNames []string, withNews bool) error {
	sites, err := a.selectSites(siteNames)
	if err != nil {
		return err
	}

	var srv *http.Server
	if a.cfg.Server.Enabled {
		srv = a.startServer()
		defer a.stopServer(srv)
	}

	for _, site := range sites {
		result, err := a.runSite(ctx, site)
		run := api.SiteRun{Site: site.Name, Result: result}
		if err != nil {
			run.Error = err.Error()
		}
		a.mu.Lock()
		a.runs = append(a.runs, run)
		a.mu.Unlock()

		a.recordRun(ctx, site.Name, result)
		if ctx.Err() != nil {
			break
		}
	}

	if withNews {
		if err := a.collectNews(ctx); err != nil {
			a.logger.Warn("news collection failed", zap.Error(err))
		}
	}

	return a.writeResults()
}

func (a *App) selectSites(names []string) ([]crawler.SiteConfig, error) {
	if len(names) == 0 {
		if len(a.cfg.Sites) == 0 {
			return nil, errors.New("no sites configured")
		}
		return a.cfg.Sites, nil
	}
	sites := make([]crawler.SiteConfig, 0, len(names))
	for _, name := range names {
		site, ok := a.cfg.SiteByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown site %q", name)
		}
		sites = append(sites, site)
	}
	return sites, nil
}

// runSite builds the full pipeline for one site and executes a single run.
func (a *App) runSite(ctx context.Context, site crawler.SiteConfig) (crawler.RunResult, error) {
	runID := uuid.NewString()
	logger := a.logger.Named("crawl").With(zap.String("site", site.Name), zap.String("run_id", runID))

	fetcher, err := fetch.New(fetch.Config{
		Site:       site.Name,
		Dynamic:    site.Dynamic,
		UserAgents: a.cfg.Crawler.UserAgents,
		MaxRetries: a.cfg.Crawler.MaxRetries,
		BaseDelay:  a.cfg.Crawler.BaseDelay,
		Timeout:    a.cfg.Crawler.Timeout,
		RenderWait: site.RenderWait,
		RenderQPS:  a.cfg.Crawler.RenderQPS,
	}, logger)
	if err != nil {
		return crawler.RunResult{RunID: runID, State: crawler.StateFailed}, fmt.Errorf("build fetcher for %s: %w", site.Name, err)
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("fetcher close failed", zap.Error(err))
		}
	}()

	orch := crawler.NewOrchestrator(
		site,
		fetcher,
		extract.New(site.URL),
		textproc.New(a.cfg.Crawler.KeywordLimit),
		crawler.NewDeduper(a.cfg.Crawler.DedupCapacity),
		a.store,
		a.clock,
		logger,
	)

	now := a.clock.Now()
	rawKey := storage.ObjectKey(storage.CategoryRaw, site.Name, now,
		storage.TimestampedFilename(site.Name, now, ""))
	textKey := storage.ObjectKey(storage.CategoryTextProcessed, site.Name, now,
		storage.TimestampedFilename(site.Name, now, "analysis"))

	threshold := a.cfg.Storage.PartThreshold
	rawSink := stream.New(a.store, rawKey, threshold, logger.Named("raw_stream"))
	textSink := stream.New(a.store, textKey, threshold, logger.Named("text_stream"))

	result, err := orch.Run(ctx, runID, textSink, rawSink)
	if err != nil {
		return result, err
	}

	event := publish.Event{
		RunID:     runID,
		Site:      site.Name,
		State:     string(result.State),
		RawKey:    result.RawKey,
		TextKey:   result.TextKey,
		Pages:     result.Metrics.TotalPages,
		Timestamp: a.clock.Now(),
	}
	if err := a.publisher.Publish(ctx, event); err != nil {
		logger.Warn("publish run event failed", zap.Error(err))
	}
	return result, nil
}

func (a *App) recordRun(ctx context.Context, site string, result crawler.RunResult) {
	if err := a.ledger.RecordRun(ctx, site, result); err != nil {
		a.logger.Warn("ledger record failed", zap.String("site", site), zap.Error(err))
	}
}

// collectNews pulls supplementary articles and stores them as one raw
// artifact under the news source.
func (a *App) collectNews(ctx context.Context) error {
	client := news.New(news.Config{
		APIKey:   a.cfg.News.APIKey,
		Query:    a.cfg.News.Query,
		PageSize: a.cfg.News.PageSize,
		Feeds:    a.cfg.News.Feeds,
		Timeout:  a.cfg.Crawler.Timeout,
	}, a.logger.Named("news"))

	articles, err := client.Collect(ctx)
	if err != nil {
		return err
	}
	now := a.clock.Now()
	key := storage.ObjectKey(storage.CategoryRaw, "news", now,
		storage.TimestampedFilename("news", now, ""))
	if err := storage.PutGzipJSON(ctx, a.store, key, articles); err != nil {
		return err
	}
	a.logger.Info("news articles stored", zap.Int("count", len(articles)), zap.String("key", key))
	return nil
}

// writeResults persists the per-site outcomes to a local timestamped file so
// operators get a durable record even when every site failed.
func (a *App) writeResults() error {
	dir := a.cfg.Crawler.ResultsDir
	if dir == "" {
		dir = "results"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("crawl_results_%s.json", a.clock.Now().Format("20060102150405")))
	data, err := json.MarshalIndent(a.Runs(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write results file: %w", err)
	}
	a.logger.Info("results written", zap.String("path", path))
	return nil
}

func (a *App) startServer() *http.Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           api.NewServer(a, a.logger.Named("api")).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
		}
	}()
	return srv
}

func (a *App) stopServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		a.logger.Warn("server shutdown error", zap.Error(err))
	}
}
