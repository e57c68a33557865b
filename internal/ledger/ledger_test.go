package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/crawllie/crawllie/internal/crawler"
)

func TestRecordRunInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "crawl_runs")
	require.NoError(t, err)

	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	result := crawler.RunResult{
		RunID: "run-1",
		State: crawler.StateCompleted,
		Metrics: crawler.RunMetrics{
			StartTime:  start,
			EndTime:    start.Add(time.Minute),
			TotalPages: 5,
			Successful: 4,
			Failed:     1,
		},
		RawKey:     "raw/site/2026/03/14/site.json.gz",
		TextKey:    "text_processed/site/2026/03/14/site_analysis.json.gz",
		SummaryKey: "processed/site/2026/03/14/site_summary.json",
		SitemapKey: "processed/site/2026/03/14/site_sitemap.json",
		Visited:    []string{"a", "b", "c", "d", "e"},
	}

	mock.ExpectExec("INSERT INTO crawl_runs").
		WithArgs(
			result.RunID,
			"site",
			"completed",
			result.RawKey,
			result.TextKey,
			result.SummaryKey,
			result.SitemapKey,
			5,
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.RecordRun(context.Background(), "site", result)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRunRequiresRunID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "crawl_runs")
	require.NoError(t, err)

	err = store.RecordRun(context.Background(), "site", crawler.RunResult{})
	require.Error(t, err)
}

func TestRecordRunOnNilStoreIsNoop(t *testing.T) {
	t.Parallel()

	var store *Store
	require.NoError(t, store.RecordRun(context.Background(), "site", crawler.RunResult{RunID: "r"}))
	store.Close()
}

func TestNewRejectsBadTableName(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, "runs; drop table users")
	require.Error(t, err)
}
