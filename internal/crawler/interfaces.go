package crawler

import (
	"context"
	"time"
)

// Fetcher retrieves the body of a single URL. Implementations own retries,
// backoff, and politeness delays; they never touch frontier or dedup state.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Extractor parses raw page content into text, links, images, and metadata.
// Returned links must be absolute.
type Extractor interface {
	Extract(pageURL, html string) (Extraction, error)
}

// Analyzer is the NLP collaborator boundary. A failing primary model must
// degrade to a local heuristic rather than returning an error for ordinary
// text.
type Analyzer interface {
	Analyze(text string) (Analysis, error)
}

// RecordSink consumes a stream of records destined for one logical stored
// object. Finish commits the object and returns its key ("" if no records
// were pushed); Abort discards the in-flight session.
type RecordSink interface {
	Push(ctx context.Context, record any) error
	Finish(ctx context.Context) (string, error)
	Abort(ctx context.Context)
	Key() string
}

// Clock returns the current time (swap-able for tests).
type Clock interface {
	Now() time.Time
}
