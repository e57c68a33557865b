// Package extract parses fetched HTML into the pieces the crawl pipeline
// needs: cleaned text, outbound links, images, and page metadata.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/crawllie/crawllie/internal/crawler"
)

// Extractor implements crawler.Extractor using goquery. Relative links are
// resolved against the page URL; only links under the configured base
// prefix are returned, satisfying the frontier's containment check up
// front (the frontier re-checks regardless).
type Extractor struct {
	basePrefix string
}

// New creates an extractor scoped to the crawl's base URL prefix.
func New(basePrefix string) *Extractor {
	return &Extractor{basePrefix: basePrefix}
}

// Extract parses the document once and pulls out text, links, images, and
// metadata.
func (e *Extractor) Extract(pageURL, html string) (crawler.Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return crawler.Extraction{}, fmt.Errorf("parse document %s: %w", pageURL, err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return crawler.Extraction{}, fmt.Errorf("parse page url %s: %w", pageURL, err)
	}

	doc.Find("script, style, noscript").Remove()

	return crawler.Extraction{
		Text:     cleanText(doc.Text()),
		Links:    e.extractLinks(doc, base),
		Images:   extractImages(doc, base),
		Metadata: extractMetadata(doc),
	}, nil
}

func (e *Extractor) extractLinks(doc *goquery.Document, base *url.URL) []string {
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		resolved.Fragment = ""
		absolute := resolved.String()
		if strings.HasPrefix(absolute, e.basePrefix) {
			links = append(links, absolute)
		}
	})
	return links
}

func extractImages(doc *goquery.Document, base *url.URL) []crawler.ImageRef {
	var images []crawler.ImageRef
	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		src = strings.TrimSpace(src)
		if src == "" {
			return
		}
		resolved, err := base.Parse(src)
		if err != nil {
			return
		}
		alt, _ := sel.Attr("alt")
		images = append(images, crawler.ImageRef{
			URL:     resolved.String(),
			AltText: alt,
		})
	})
	return images
}

func extractMetadata(doc *goquery.Document) map[string]string {
	metadata := make(map[string]string)
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		metadata["title"] = title
	}
	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		content, ok := sel.Attr("content")
		if !ok || content == "" {
			return
		}
		if name, ok := sel.Attr("name"); ok && name != "" {
			metadata[name] = content
			return
		}
		if property, ok := sel.Attr("property"); ok && property != "" {
			metadata[property] = content
		}
	})
	return metadata
}

// cleanText collapses the rendered text: one line per non-empty chunk,
// inner whitespace squeezed.
func cleanText(raw string) string {
	var chunks []string
	for _, line := range strings.Split(raw, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		chunks = append(chunks, strings.Join(fields, " "))
	}
	return strings.Join(chunks, "\n")
}
