// Package news pulls supplementary articles from the NewsAPI HTTP service
// and from configured RSS feeds, merging the two sources with URL-level
// deduplication. Results land in the object store as a single raw artifact
// per collection run.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

const newsAPIEndpoint = "https://newsapi.org/v2/everything"

// Article is the normalized shape shared by both sources.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// Config controls one collection run.
type Config struct {
	// APIKey authenticates against NewsAPI. Empty disables the API source.
	APIKey string
	// Query is the NewsAPI search term.
	Query string
	// PageSize bounds how many API articles one request returns.
	PageSize int
	// Feeds lists RSS feed URLs to pull alongside the API.
	Feeds []string
	// Timeout bounds each outbound request.
	Timeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.PageSize <= 0 {
		c.PageSize = 50
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
}

// Client fetches and merges articles.
type Client struct {
	cfg     Config
	http    *http.Client
	parser  *gofeed.Parser
	logger  *zap.Logger
	baseURL string
}

// New builds a client. The base URL for NewsAPI can be overridden through
// WithBaseURL for tests.
func New(cfg Config, logger *zap.Logger) *Client {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		parser:  gofeed.NewParser(),
		logger:  logger,
		baseURL: newsAPIEndpoint,
	}
}

// WithBaseURL points the NewsAPI source at an alternate endpoint.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = base
	return c
}

// Collect gathers articles from every configured source. A failing source
// is logged and skipped; Collect only errors when every source failed.
func (c *Client) Collect(ctx context.Context) ([]Article, error) {
	var (
		articles []Article
		sources  int
		failures int
	)
	seen := make(map[string]struct{})

	add := func(batch []Article) {
		for _, a := range batch {
			if a.URL == "" {
				continue
			}
			if _, dup := seen[a.URL]; dup {
				continue
			}
			seen[a.URL] = struct{}{}
			articles = append(articles, a)
		}
	}

	if c.cfg.APIKey != "" {
		sources++
		batch, err := c.fromAPI(ctx)
		if err != nil {
			failures++
			c.logger.Warn("newsapi source failed", zap.Error(err))
		} else {
			add(batch)
		}
	}

	for _, feedURL := range c.cfg.Feeds {
		sources++
		batch, err := c.fromFeed(ctx, feedURL)
		if err != nil {
			failures++
			c.logger.Warn("rss source failed", zap.String("feed", feedURL), zap.Error(err))
			continue
		}
		add(batch)
	}

	if sources > 0 && failures == sources {
		return nil, fmt.Errorf("all %d news sources failed", sources)
	}
	return articles, nil
}

type apiResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

func (c *Client) fromAPI(ctx context.Context) ([]Article, error) {
	params := url.Values{}
	params.Set("q", c.cfg.Query)
	params.Set("pageSize", fmt.Sprint(c.cfg.PageSize))
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build newsapi request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("newsapi status %d: %s", resp.StatusCode, body)
	}

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode newsapi response: %w", err)
	}
	if decoded.Status != "ok" {
		return nil, fmt.Errorf("newsapi returned status %q", decoded.Status)
	}

	articles := make([]Article, 0, len(decoded.Articles))
	for _, a := range decoded.Articles {
		articles = append(articles, Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}
	return articles, nil
}

func (c *Client) fromFeed(ctx context.Context, feedURL string) ([]Article, error) {
	feed, err := c.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	articles := make([]Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		a := Article{
			Title:       item.Title,
			Description: item.Description,
			URL:         item.Link,
			Source:      feed.Title,
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = item.PublishedParsed.UTC()
		}
		articles = append(articles, a)
	}
	return articles, nil
}
