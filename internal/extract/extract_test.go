package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title> Example News </title>
  <meta name="description" content="A sample page">
  <meta property="og:title" content="Example OG Title">
  <meta charset="utf-8">
  <script>var tracking = "ignore me";</script>
  <style>.hidden { display: none; }</style>
</head>
<body>
  <h1>Top   Story</h1>
  <p>Body text
     spanning lines.</p>
  <a href="/local">Local</a>
  <a href="https://example.com/absolute">Absolute</a>
  <a href="https://other.org/external">External</a>
  <a href="#section">Fragment</a>
  <a href="javascript:void(0)">JS</a>
  <img src="/img/a.png" alt="first image">
  <img src="https://cdn.example.com/b.jpg">
</body>
</html>`

func TestExtractText(t *testing.T) {
	t.Parallel()

	e := New("https://example.com")
	ex, err := e.Extract("https://example.com/page", samplePage)
	require.NoError(t, err)

	require.Contains(t, ex.Text, "Top Story")
	require.Contains(t, ex.Text, "Body text")
	require.NotContains(t, ex.Text, "ignore me")
	require.NotContains(t, ex.Text, "display: none")
}

func TestExtractLinksResolvedAndContained(t *testing.T) {
	t.Parallel()

	e := New("https://example.com")
	ex, err := e.Extract("https://example.com/page", samplePage)
	require.NoError(t, err)

	require.Equal(t, []string{
		"https://example.com/local",
		"https://example.com/absolute",
	}, ex.Links)
}

func TestExtractImages(t *testing.T) {
	t.Parallel()

	e := New("https://example.com")
	ex, err := e.Extract("https://example.com/page", samplePage)
	require.NoError(t, err)

	require.Len(t, ex.Images, 2)
	require.Equal(t, "https://example.com/img/a.png", ex.Images[0].URL)
	require.Equal(t, "first image", ex.Images[0].AltText)
	require.Equal(t, "https://cdn.example.com/b.jpg", ex.Images[1].URL)
	require.Empty(t, ex.Images[1].AltText)
}

func TestExtractMetadata(t *testing.T) {
	t.Parallel()

	e := New("https://example.com")
	ex, err := e.Extract("https://example.com/page", samplePage)
	require.NoError(t, err)

	require.Equal(t, "Example News", ex.Metadata["title"])
	require.Equal(t, "A sample page", ex.Metadata["description"])
	require.Equal(t, "Example OG Title", ex.Metadata["og:title"])
}

func TestExtractEmptyDocument(t *testing.T) {
	t.Parallel()

	e := New("https://example.com")
	ex, err := e.Extract("https://example.com", "")
	require.NoError(t, err)
	require.Empty(t, ex.Text)
	require.Empty(t, ex.Links)
}
