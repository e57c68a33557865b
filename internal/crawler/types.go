// Package crawler implements the crawl engine: the frontier that drives a
// bounded breadth-first traversal, the content dedup ledger, and the
// orchestrator that composes fetching, extraction, and persistence into one
// run.
package crawler

import (
	"time"
)

// SiteConfig describes one website to crawl.
type SiteConfig struct {
	// Name identifies the site in object keys and logs.
	Name string `mapstructure:"name" json:"name"`
	// URL is the seed and the containment prefix; links outside it are
	// never enqueued.
	URL string `mapstructure:"url" json:"url"`
	// Dynamic selects the rendered fetch strategy.
	Dynamic bool `mapstructure:"dynamic" json:"dynamic"`
	// PageLimit caps the visited set for one run.
	PageLimit int `mapstructure:"page_limit" json:"page_limit"`
	// RenderWait is how long the rendered strategy lets scripts settle.
	RenderWait time.Duration `mapstructure:"render_wait" json:"render_wait"`
}

// ImageRef is one image found on a page.
type ImageRef struct {
	URL     string `json:"url"`
	AltText string `json:"alt_text"`
}

// Extraction is what the extraction collaborator pulls out of raw HTML.
// Links are absolute; the extractor resolves them against the page URL.
type Extraction struct {
	Text     string
	Links    []string
	Images   []ImageRef
	Metadata map[string]string
}

// Analysis is the NLP collaborator's output for one page.
type Analysis struct {
	Entities map[string][]string `json:"entities"`
	Keywords []string            `json:"keywords"`
}

// PageRecord is the full archival record for one non-duplicate page.
// Immutable once built.
type PageRecord struct {
	URL       string            `json:"url"`
	Text      string            `json:"text"`
	Images    []ImageRef        `json:"images"`
	Metadata  map[string]string `json:"metadata"`
	HTML      string            `json:"html"`
	Hash      string            `json:"hash"`
	Crawler   string            `json:"crawler"`
	Timestamp string            `json:"timestamp"`
	SourceURL string            `json:"source_url"`
}

// TextAnalysisRecord is the lightweight analysis projection emitted for a
// page before its PageRecord reaches the raw stream.
type TextAnalysisRecord struct {
	URL         string              `json:"url"`
	Entities    map[string][]string `json:"entities"`
	Keywords    []string            `json:"keywords"`
	ContentHash string              `json:"content_hash"`
	Timestamp   string              `json:"timestamp"`
}

// RunMetrics are the per-run counters. Each orchestrator owns its own copy;
// there is no process-wide metrics state.
type RunMetrics struct {
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	TotalPages int       `json:"total_pages"`
	Successful int       `json:"successful_crawls"`
	Failed     int       `json:"failed_crawls"`
	Duplicates int       `json:"duplicate_pages"`
}

// Summary is the post-crawl artifact persisted under the processed category.
type Summary struct {
	Site       string    `json:"site"`
	RunID      string    `json:"run_id"`
	TotalPages int       `json:"total_pages"`
	Successful int       `json:"successful_crawls"`
	Failed     int       `json:"failed_crawls"`
	Duplicates int       `json:"duplicate_pages"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
}

// Sitemap is the visited set persisted as a post-crawl artifact.
type Sitemap struct {
	URLs        []string  `json:"urls"`
	LastUpdated time.Time `json:"last_updated"`
}

// State is the orchestrator lifecycle state for one run.
type State string

// Run states.
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateDraining  State = "draining"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// RunResult reports where a finished run left its artifacts.
type RunResult struct {
	RunID      string     `json:"run_id"`
	State      State      `json:"state"`
	Metrics    RunMetrics `json:"metrics"`
	RawKey     string     `json:"raw_key,omitempty"`
	TextKey    string     `json:"text_key,omitempty"`
	SummaryKey string     `json:"summary_key,omitempty"`
	SitemapKey string     `json:"sitemap_key,omitempty"`
	Visited    []string   `json:"-"`
}
