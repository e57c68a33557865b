package crawler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crawllie/crawllie/internal/storage"
	memorystore "github.com/crawllie/crawllie/internal/storage/memory"
)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (string, error) {
	if err, ok := f.errs[rawURL]; ok {
		return "", err
	}
	body, ok := f.pages[rawURL]
	if !ok {
		return "", fmt.Errorf("no page for %s", rawURL)
	}
	return body, nil
}

type fakeExtractor struct {
	extractions map[string]Extraction
	errs        map[string]error
}

func (e *fakeExtractor) Extract(pageURL, _ string) (Extraction, error) {
	if err, ok := e.errs[pageURL]; ok {
		return Extraction{}, err
	}
	return e.extractions[pageURL], nil
}

type fakeAnalyzer struct{}

func (fakeAnalyzer) Analyze(text string) (Analysis, error) {
	return Analysis{Keywords: []string{"kw"}, Entities: map[string][]string{}}, nil
}

// fakeSink records pushes into a shared event log so tests can assert
// cross-sink ordering.
type fakeSink struct {
	name    string
	key     string
	log     *[]string
	records []any
	failOn  int
	aborted bool
	done    bool
}

func (s *fakeSink) Push(_ context.Context, record any) error {
	if s.failOn > 0 && len(s.records)+1 >= s.failOn {
		return errors.New("injected sink failure")
	}
	s.records = append(s.records, record)
	*s.log = append(*s.log, s.name)
	return nil
}

func (s *fakeSink) Finish(context.Context) (string, error) {
	s.done = true
	if len(s.records) == 0 {
		return "", nil
	}
	return s.key, nil
}

func (s *fakeSink) Abort(context.Context) { s.aborted = true }

func (s *fakeSink) Key() string { return s.key }

func newTestOrchestrator(t *testing.T, fetcher Fetcher, extractor Extractor, store storage.ObjectStore) *Orchestrator {
	t.Helper()
	site := SiteConfig{
		Name:      "testsite",
		URL:       "https://example.com",
		PageLimit: 10,
	}
	return NewOrchestrator(
		site,
		fetcher,
		extractor,
		fakeAnalyzer{},
		NewDeduper(100),
		store,
		fakeClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)},
		nil,
	)
}

func TestRunCrawlsAndStreamsRecords(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com":   "<html>root</html>",
		"https://example.com/a": "<html>a</html>",
		"https://example.com/b": "<html>b</html>",
	}}
	extractor := &fakeExtractor{extractions: map[string]Extraction{
		"https://example.com": {
			Text:  "root page",
			Links: []string{"https://example.com/a", "https://example.com/b", "https://other.org/x"},
		},
		"https://example.com/a": {Text: "page a"},
		"https://example.com/b": {Text: "page b"},
	}}
	store := memorystore.New()
	orch := newTestOrchestrator(t, fetcher, extractor, store)

	var log []string
	textSink := &fakeSink{name: "text", key: "text_processed/testsite/x", log: &log}
	rawSink := &fakeSink{name: "raw", key: "raw/testsite/x", log: &log}

	result, err := orch.Run(context.Background(), "run-1", textSink, rawSink)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, result.State)
	require.Equal(t, StateCompleted, orch.State())

	require.Equal(t, 3, result.Metrics.TotalPages)
	require.Equal(t, 3, result.Metrics.Successful)
	require.Zero(t, result.Metrics.Failed)
	require.Zero(t, result.Metrics.Duplicates)
	require.Equal(t, []string{
		"https://example.com",
		"https://example.com/a",
		"https://example.com/b",
	}, result.Visited)

	// Each page emits its analysis record strictly before its page record.
	require.Equal(t, []string{"text", "raw", "text", "raw", "text", "raw"}, log)

	page, ok := rawSink.records[0].(PageRecord)
	require.True(t, ok)
	require.Equal(t, "https://example.com", page.URL)
	require.Equal(t, "testsite", page.Crawler)
	require.Equal(t, "<html>root</html>", page.HTML)
	require.NotEmpty(t, page.Hash)

	analysis, ok := textSink.records[0].(TextAnalysisRecord)
	require.True(t, ok)
	require.Equal(t, Fingerprint("root page"), analysis.ContentHash)

	require.Equal(t, rawSink.key, result.RawKey)
	require.Equal(t, textSink.key, result.TextKey)

	// Summary and sitemap artifacts landed under the processed category.
	keys, err := store.List(context.Background(), "processed/testsite/")
	require.NoError(t, err)
	require.Len(t, keys, 2)
	require.Contains(t, keys[0], "_sitemap.json")
	require.Contains(t, keys[1], "_summary.json")
}

func TestRunCountsDuplicatesWithoutArchiving(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com":     "<html>root</html>",
		"https://example.com/dup": "<html>dup</html>",
	}}
	extractor := &fakeExtractor{extractions: map[string]Extraction{
		"https://example.com": {
			Text:  "same content",
			Links: []string{"https://example.com/dup"},
		},
		// Same text after normalization: counted, never streamed.
		"https://example.com/dup": {
			Text:  "Same   CONTENT",
			Links: []string{"https://example.com/never"},
		},
	}}
	orch := newTestOrchestrator(t, fetcher, extractor, memorystore.New())

	var log []string
	textSink := &fakeSink{name: "text", key: "t", log: &log}
	rawSink := &fakeSink{name: "raw", key: "r", log: &log}

	result, err := orch.Run(context.Background(), "run-2", textSink, rawSink)
	require.NoError(t, err)
	require.Equal(t, 1, result.Metrics.Duplicates)
	require.Equal(t, 1, result.Metrics.Successful)
	require.Len(t, rawSink.records, 1)
	require.Len(t, textSink.records, 1)
	// The duplicate's links were not offered to the frontier.
	require.Equal(t, 2, result.Metrics.TotalPages)
}

func TestRunAbsorbsFetchAndExtractionFailures(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		pages: map[string]string{
			"https://example.com":      "<html>root</html>",
			"https://example.com/bad":  "<html>bad</html>",
			"https://example.com/gone": "",
		},
		errs: map[string]error{
			"https://example.com/gone": errors.New("connection refused"),
		},
	}
	extractor := &fakeExtractor{
		extractions: map[string]Extraction{
			"https://example.com": {
				Text:  "root",
				Links: []string{"https://example.com/gone", "https://example.com/bad"},
			},
		},
		errs: map[string]error{
			"https://example.com/bad": errors.New("malformed html"),
		},
	}
	orch := newTestOrchestrator(t, fetcher, extractor, memorystore.New())

	var log []string
	textSink := &fakeSink{name: "text", key: "t", log: &log}
	rawSink := &fakeSink{name: "raw", key: "r", log: &log}

	result, err := orch.Run(context.Background(), "run-3", textSink, rawSink)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, result.State)
	require.Equal(t, 2, result.Metrics.Failed)
	require.Equal(t, 1, result.Metrics.Successful)
	require.Equal(t, 3, result.Metrics.TotalPages)
}

func TestRunSinkFailureAbortsBothSinks(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com": "<html>root</html>",
	}}
	extractor := &fakeExtractor{extractions: map[string]Extraction{
		"https://example.com": {Text: "root"},
	}}
	store := memorystore.New()
	orch := newTestOrchestrator(t, fetcher, extractor, store)

	var log []string
	textSink := &fakeSink{name: "text", key: "t", log: &log, failOn: 1}
	rawSink := &fakeSink{name: "raw", key: "r", log: &log}

	result, err := orch.Run(context.Background(), "run-4", textSink, rawSink)
	require.Error(t, err)
	require.Equal(t, StateFailed, result.State)
	require.Equal(t, StateFailed, orch.State())
	require.True(t, textSink.aborted)
	require.True(t, rawSink.aborted)
	require.Empty(t, result.RawKey)

	// The failure summary was still flushed for diagnosis.
	require.NotEmpty(t, result.SummaryKey)
	exists, err := store.Exists(context.Background(), result.SummaryKey)
	require.NoError(t, err)
	require.True(t, exists)
}
