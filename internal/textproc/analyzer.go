// Package textproc derives lightweight analysis from extracted page text:
// heuristic entity spans and frequency-ranked keywords. It deliberately
// avoids model inference so the crawl path stays cheap and dependency-free
// on the hot loop.
package textproc

import (
	"regexp"
	"sort"
	"strings"

	"github.com/crawllie/crawllie/internal/crawler"
)

// DefaultKeywordLimit caps how many keywords Analyze returns.
const DefaultKeywordLimit = 10

// minKeywordLength filters short tokens before frequency ranking.
const minKeywordLength = 4

var (
	moneyPattern   = regexp.MustCompile(`[$€£]\s?\d[\d,]*(?:\.\d+)?(?:\s?(?:million|billion|trillion))?`)
	percentPattern = regexp.MustCompile(`\d+(?:\.\d+)?\s?(?:%|percent)`)
	datePattern    = regexp.MustCompile(`(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}|\d{4}-\d{2}-\d{2}`)
	// properPattern matches runs of capitalized words, the cheap stand-in
	// for named entities.
	properPattern = regexp.MustCompile(`(?:[A-Z][a-z]+)(?:\s+[A-Z][a-z]+)+`)
	wordPattern   = regexp.MustCompile(`[a-z]+`)
)

var stopwords = map[string]struct{}{
	"about": {}, "after": {}, "also": {}, "been": {}, "before": {},
	"being": {}, "between": {}, "both": {}, "could": {}, "from": {},
	"have": {}, "here": {}, "into": {}, "more": {}, "most": {},
	"other": {}, "over": {}, "same": {}, "should": {}, "some": {},
	"such": {}, "than": {}, "that": {}, "their": {}, "them": {},
	"then": {}, "there": {}, "these": {}, "they": {}, "this": {},
	"those": {}, "through": {}, "under": {}, "very": {}, "were": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "while": {},
	"will": {}, "with": {}, "would": {}, "your": {},
}

// Analyzer implements crawler.Analyzer with regex heuristics.
type Analyzer struct {
	keywordLimit int
}

// New builds an analyzer. A limit <= 0 selects the default keyword cap.
func New(keywordLimit int) *Analyzer {
	if keywordLimit <= 0 {
		keywordLimit = DefaultKeywordLimit
	}
	return &Analyzer{keywordLimit: keywordLimit}
}

// Analyze extracts entity spans by category and the top keywords by
// frequency. Empty input yields empty (non-nil) results so downstream
// serialization stays stable.
func (a *Analyzer) Analyze(text string) (crawler.Analysis, error) {
	res := crawler.Analysis{
		Entities: map[string][]string{
			"money":   dedupMatches(moneyPattern.FindAllString(text, -1)),
			"percent": dedupMatches(percentPattern.FindAllString(text, -1)),
			"date":    dedupMatches(datePattern.FindAllString(text, -1)),
			"proper":  dedupMatches(properPattern.FindAllString(text, -1)),
		},
		Keywords: a.keywords(text),
	}
	return res, nil
}

func (a *Analyzer) keywords(text string) []string {
	counts := make(map[string]int)
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(word) < minKeywordLength {
			continue
		}
		if _, skip := stopwords[word]; skip {
			continue
		}
		counts[word]++
	}

	ranked := make([]string, 0, len(counts))
	for word := range counts {
		ranked = append(ranked, word)
	}
	// Ties break alphabetically so output is deterministic.
	sort.Slice(ranked, func(i, j int) bool {
		if counts[ranked[i]] != counts[ranked[j]] {
			return counts[ranked[i]] > counts[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > a.keywordLimit {
		ranked = ranked[:a.keywordLimit]
	}
	return ranked
}

func dedupMatches(matches []string) []string {
	out := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if _, dup := seen[m]; dup || m == "" {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
