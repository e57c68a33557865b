package crawler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crawllie/crawllie/internal/metrics"
	"github.com/crawllie/crawllie/internal/storage"
)

// Orchestrator drives one site's crawl runs. It composes the fetcher,
// extractor, analyzer, and dedup ledger into a single-threaded traversal
// that emits an analysis stream and a raw page stream. The dedup ledger
// survives across runs of the same orchestrator; frontier state does not.
type Orchestrator struct {
	site      SiteConfig
	fetcher   Fetcher
	extractor Extractor
	analyzer  Analyzer
	dedup     *Deduper
	store     storage.ObjectStore
	clock     Clock
	logger    *zap.Logger

	state State
}

// NewOrchestrator wires an orchestrator for one site.
func NewOrchestrator(
	site SiteConfig,
	fetcher Fetcher,
	extractor Extractor,
	analyzer Analyzer,
	dedup *Deduper,
	store storage.ObjectStore,
	clock Clock,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		site:      site,
		fetcher:   fetcher,
		extractor: extractor,
		analyzer:  analyzer,
		dedup:     dedup,
		store:     store,
		clock:     clock,
		logger:    logger.With(zap.String("site", site.Name)),
		state:     StateIdle,
	}
}

// State returns the lifecycle state of the most recent run.
func (o *Orchestrator) State() State {
	return o.state
}

// Run executes one crawl: breadth-first traversal from the site's seed URL
// up to its page limit, streaming analysis and page records into the two
// sinks, then draining the sinks and persisting the summary and sitemap
// artifacts.
//
// Per-URL fetch and extraction failures are counted and absorbed; a storage
// failure aborts both sinks, flushes the summary best-effort, and is
// returned with the run marked failed.
func (o *Orchestrator) Run(ctx context.Context, runID string, textSink, rawSink RecordSink) (RunResult, error) {
	o.state = StateRunning
	m := RunMetrics{StartTime: o.clock.Now()}
	frontier := NewFrontier(o.site.URL, o.site.PageLimit)

	o.logger.Info("crawl started",
		zap.String("run_id", runID),
		zap.String("seed", o.site.URL),
		zap.Int("page_limit", o.site.PageLimit),
	)

	for frontier.HasMore() {
		url, ok := frontier.Next()
		if !ok {
			break
		}
		if err := o.processURL(ctx, url, frontier, &m, textSink, rawSink); err != nil {
			return o.failRun(ctx, runID, frontier, m, textSink, rawSink, err)
		}
	}

	o.state = StateDraining
	textKey, err := textSink.Finish(ctx)
	if err != nil {
		rawSink.Abort(ctx)
		return o.failRun(ctx, runID, frontier, m, nil, nil, err)
	}
	rawKey, err := rawSink.Finish(ctx)
	if err != nil {
		return o.failRun(ctx, runID, frontier, m, nil, nil, err)
	}

	m.EndTime = o.clock.Now()
	m.TotalPages = frontier.VisitedCount()

	summaryKey, sitemapKey, err := o.persistArtifacts(ctx, runID, frontier, m)
	if err != nil {
		return o.failRun(ctx, runID, frontier, m, nil, nil, err)
	}

	o.state = StateCompleted
	o.logger.Info("crawl completed",
		zap.String("run_id", runID),
		zap.Int("total_pages", m.TotalPages),
		zap.Int("successful", m.Successful),
		zap.Int("failed", m.Failed),
		zap.Int("duplicates", m.Duplicates),
	)

	return RunResult{
		RunID:      runID,
		State:      StateCompleted,
		Metrics:    m,
		RawKey:     rawKey,
		TextKey:    textKey,
		SummaryKey: summaryKey,
		SitemapKey: sitemapKey,
		Visited:    frontier.Visited(),
	}, nil
}

// processURL handles one dequeued URL. Only storage errors propagate; fetch
// and extraction failures are absorbed into the counters.
func (o *Orchestrator) processURL(
	ctx context.Context,
	url string,
	frontier *Frontier,
	m *RunMetrics,
	textSink, rawSink RecordSink,
) error {
	o.logger.Debug("crawling", zap.String("url", url))

	body, err := o.fetcher.Fetch(ctx, url)
	frontier.MarkVisited(url)
	if err != nil {
		m.Failed++
		metrics.ObservePage(o.site.Name, "failed")
		o.logger.Warn("fetch failed", zap.String("url", url), zap.Error(err))
		return nil
	}

	ex, err := o.extractor.Extract(url, body)
	if err != nil {
		m.Failed++
		metrics.ObservePage(o.site.Name, "failed")
		o.logger.Warn("extraction failed", zap.String("url", url), zap.Error(err))
		return nil
	}

	if o.dedup.CheckAndRecord(ex.Text) {
		m.Duplicates++
		metrics.ObserveDuplicate(o.site.Name)
		o.logger.Debug("duplicate content", zap.String("url", url))
		return nil
	}

	analysis, err := o.analyzer.Analyze(ex.Text)
	if err != nil {
		// The analyzer degrades internally; an error here means even the
		// fallback failed. The page is still archived without analysis.
		o.logger.Warn("analysis failed", zap.String("url", url), zap.Error(err))
		analysis = Analysis{}
	}

	now := o.clock.Now().UTC().Format(time.RFC3339)
	contentHash := Fingerprint(ex.Text)

	textRecord := TextAnalysisRecord{
		URL:         url,
		Entities:    analysis.Entities,
		Keywords:    analysis.Keywords,
		ContentHash: contentHash,
		Timestamp:   now,
	}
	// The analysis record must reach its channel before the page record is
	// appended to the raw stream.
	if err := textSink.Push(ctx, textRecord); err != nil {
		return fmt.Errorf("push analysis record for %s: %w", url, err)
	}

	pageRecord := PageRecord{
		URL:       url,
		Text:      ex.Text,
		Images:    ex.Images,
		Metadata:  ex.Metadata,
		HTML:      body,
		Hash:      urlHash(url),
		Crawler:   o.site.Name,
		Timestamp: now,
		SourceURL: o.site.URL,
	}
	if err := rawSink.Push(ctx, pageRecord); err != nil {
		return fmt.Errorf("push page record for %s: %w", url, err)
	}

	m.Successful++
	metrics.ObservePage(o.site.Name, "success")

	for _, link := range ex.Links {
		frontier.Offer(link)
	}
	return nil
}

// persistArtifacts writes the post-crawl summary and sitemap as single-shot
// processed objects.
func (o *Orchestrator) persistArtifacts(
	ctx context.Context,
	runID string,
	frontier *Frontier,
	m RunMetrics,
) (string, string, error) {
	now := o.clock.Now()

	summary := Summary{
		Site:       o.site.Name,
		RunID:      runID,
		TotalPages: m.TotalPages,
		Successful: m.Successful,
		Failed:     m.Failed,
		Duplicates: m.Duplicates,
		StartTime:  m.StartTime,
		EndTime:    m.EndTime,
	}
	summaryKey := storage.ObjectKey(storage.CategoryProcessed, o.site.Name, now, o.site.Name+"_summary.json")
	if err := storage.PutGzipJSON(ctx, o.store, summaryKey, summary); err != nil {
		return "", "", err
	}

	sitemap := Sitemap{
		URLs:        frontier.Visited(),
		LastUpdated: now,
	}
	sitemapKey := storage.ObjectKey(storage.CategoryProcessed, o.site.Name, now, o.site.Name+"_sitemap.json")
	if err := storage.PutGzipJSON(ctx, o.store, sitemapKey, sitemap); err != nil {
		return "", "", err
	}
	return summaryKey, sitemapKey, nil
}

// failRun transitions to Failed, aborts whatever sinks are still open, and
// flushes the summary artifact best-effort so the failure is diagnosable.
func (o *Orchestrator) failRun(
	ctx context.Context,
	runID string,
	frontier *Frontier,
	m RunMetrics,
	textSink, rawSink RecordSink,
	cause error,
) (RunResult, error) {
	o.state = StateFailed
	if textSink != nil {
		textSink.Abort(ctx)
	}
	if rawSink != nil {
		rawSink.Abort(ctx)
	}

	m.EndTime = o.clock.Now()
	m.TotalPages = frontier.VisitedCount()

	summary := Summary{
		Site:       o.site.Name,
		RunID:      runID,
		TotalPages: m.TotalPages,
		Successful: m.Successful,
		Failed:     m.Failed,
		Duplicates: m.Duplicates,
		StartTime:  m.StartTime,
		EndTime:    m.EndTime,
	}
	summaryKey := storage.ObjectKey(storage.CategoryProcessed, o.site.Name, m.EndTime, o.site.Name+"_summary.json")
	if err := storage.PutGzipJSON(ctx, o.store, summaryKey, summary); err != nil {
		o.logger.Warn("flush summary after failure", zap.Error(err))
		summaryKey = ""
	}

	o.logger.Error("crawl failed", zap.String("run_id", runID), zap.Error(cause))
	return RunResult{
		RunID:      runID,
		State:      StateFailed,
		Metrics:    m,
		SummaryKey: summaryKey,
		Visited:    frontier.Visited(),
	}, cause
}

func urlHash(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
