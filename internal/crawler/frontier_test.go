package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrontierSeedsBaseURL(t *testing.T) {
	t.Parallel()

	f := NewFrontier("https://example.com", 5)
	require.True(t, f.HasMore())

	url, ok := f.Next()
	require.True(t, ok)
	require.Equal(t, "https://example.com", url)
}

func TestFrontierBreadthFirstOrder(t *testing.T) {
	t.Parallel()

	f := NewFrontier("https://example.com", 10)
	seed, _ := f.Next()
	f.MarkVisited(seed)
	f.Offer("https://example.com/a")
	f.Offer("https://example.com/b")

	first, _ := f.Next()
	f.MarkVisited(first)
	f.Offer("https://example.com/a/1")

	second, _ := f.Next()
	third, _ := f.Next()
	require.Equal(t, "https://example.com/a", first)
	require.Equal(t, "https://example.com/b", second)
	require.Equal(t, "https://example.com/a/1", third)
}

func TestFrontierRejectsExternalLinks(t *testing.T) {
	t.Parallel()

	f := NewFrontier("https://example.com", 10)
	f.Next()
	f.Offer("https://other.org/page")
	f.Offer("http://example.com/insecure")
	require.False(t, f.HasMore())
}

func TestFrontierNeverEnqueuesTwice(t *testing.T) {
	t.Parallel()

	f := NewFrontier("https://example.com", 10)
	seed, _ := f.Next()
	f.MarkVisited(seed)

	f.Offer("https://example.com/a")
	f.Offer("https://example.com/a")
	url, ok := f.Next()
	require.True(t, ok)
	require.Equal(t, "https://example.com/a", url)
	f.MarkVisited(url)

	// Visited URLs are not re-admitted either.
	f.Offer("https://example.com/a")
	require.False(t, f.HasMore())
}

// A limit of 3 with two links per page visits exactly three pages even
// though the queue still holds work.
func TestFrontierStopsAtPageLimit(t *testing.T) {
	t.Parallel()

	f := NewFrontier("https://example.com", 3)
	visits := 0
	for f.HasMore() {
		url, ok := f.Next()
		require.True(t, ok)
		f.MarkVisited(url)
		visits++
		f.Offer(url + "/x")
		f.Offer(url + "/y")
	}
	require.Equal(t, 3, visits)
	require.Equal(t, 3, f.VisitedCount())
	require.Len(t, f.Visited(), 3)
}

func TestFrontierZeroLimitExhaustedImmediately(t *testing.T) {
	t.Parallel()

	f := NewFrontier("https://example.com", 0)
	require.False(t, f.HasMore())
}
