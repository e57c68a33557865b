package crawler

import "strings"

// Frontier owns the to-visit queue and the visited set for one crawl run.
// Traversal is pure FIFO breadth-first; a URL can enter the queue at most
// once, and only when it shares the configured base prefix. The frontier is
// mutated by a single traversal loop only.
type Frontier struct {
	basePrefix string
	limit      int
	queue      []string
	queued     map[string]struct{}
	visited    map[string]struct{}
	order      []string
}

// NewFrontier seeds a frontier with the base URL. The limit caps the
// visited set; a limit <= 0 means the frontier is exhausted immediately.
func NewFrontier(baseURL string, limit int) *Frontier {
	f := &Frontier{
		basePrefix: baseURL,
		limit:      limit,
		queued:     make(map[string]struct{}),
		visited:    make(map[string]struct{}),
	}
	f.queue = append(f.queue, baseURL)
	f.queued[baseURL] = struct{}{}
	return f
}

// HasMore reports whether the traversal should continue: false once the
// queue is empty or the visited set has reached the page limit.
func (f *Frontier) HasMore() bool {
	return len(f.queue) > 0 && len(f.visited) < f.limit
}

// Next pops the oldest queued URL.
func (f *Frontier) Next() (string, bool) {
	if len(f.queue) == 0 {
		return "", false
	}
	url := f.queue[0]
	f.queue = f.queue[1:]
	delete(f.queued, url)
	return url, true
}

// Offer enqueues a URL unless it falls outside the base prefix or has
// already been visited or queued. This containment check is the sole
// link-filtering policy; external links are dropped silently.
func (f *Frontier) Offer(url string) {
	if !strings.HasPrefix(url, f.basePrefix) {
		return
	}
	if _, ok := f.visited[url]; ok {
		return
	}
	if _, ok := f.queued[url]; ok {
		return
	}
	f.queue = append(f.queue, url)
	f.queued[url] = struct{}{}
}

// MarkVisited records a URL as visited, in visit order.
func (f *Frontier) MarkVisited(url string) {
	if _, ok := f.visited[url]; ok {
		return
	}
	f.visited[url] = struct{}{}
	f.order = append(f.order, url)
}

// Visited returns the visited URLs in visit order.
func (f *Frontier) Visited() []string {
	return append([]string(nil), f.order...)
}

// VisitedCount returns the size of the visited set.
func (f *Frontier) VisitedCount() int {
	return len(f.visited)
}
