package textproc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnalyzeExtractsEntities(t *testing.T) {
	t.Parallel()

	a := New(0)
	res, err := a.Analyze("Jane Smith announced on January 5, 2026 that revenue rose 4.5% to $2.3 million.")
	require.NoError(t, err)

	require.Contains(t, res.Entities["proper"], "Jane Smith")
	require.Contains(t, res.Entities["date"], "January 5, 2026")
	require.Contains(t, res.Entities["percent"], "4.5%")
	require.Contains(t, res.Entities["money"], "$2.3 million")
}

func TestAnalyzeKeywordsRankedByFrequency(t *testing.T) {
	t.Parallel()

	a := New(3)
	text := strings.Repeat("inflation ", 5) + strings.Repeat("prices ", 3) + "economy economy grocery"
	res, err := a.Analyze(text)
	require.NoError(t, err)
	require.Equal(t, []string{"inflation", "prices", "economy"}, res.Keywords)
}

func TestAnalyzeFiltersShortWordsAndStopwords(t *testing.T) {
	t.Parallel()

	a := New(10)
	res, err := a.Analyze("the cat sat there with them about it")
	require.NoError(t, err)
	require.NotContains(t, res.Keywords, "the")
	require.NotContains(t, res.Keywords, "cat")
	require.NotContains(t, res.Keywords, "there")
	require.NotContains(t, res.Keywords, "about")
}

func TestAnalyzeEmptyText(t *testing.T) {
	t.Parallel()

	a := New(10)
	res, err := a.Analyze("")
	require.NoError(t, err)
	require.Empty(t, res.Keywords)
	require.Empty(t, res.Entities["proper"])
}

func TestKeywordTiesBreakAlphabetically(t *testing.T) {
	t.Parallel()

	a := New(2)
	res, err := a.Analyze("zebra apple zebra apple")
	require.NoError(t, err)
	require.Equal(t, []string{"apple", "zebra"}, res.Keywords)
}
