package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crawllie/crawllie/internal/crawler"
)

type staticSource struct {
	runs []SiteRun
}

func (s staticSource) Runs() []SiteRun { return s.runs }

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv := NewServer(staticSource{}, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := NewServer(staticSource{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRunsEndpoint(t *testing.T) {
	t.Parallel()

	source := staticSource{runs: []SiteRun{
		{
			Site: "example",
			Result: crawler.RunResult{
				RunID:  "run-1",
				State:  crawler.StateCompleted,
				RawKey: "raw/example/2026/03/14/example.json.gz",
			},
		},
		{
			Site:  "broken",
			Error: "fetch retries exhausted",
		},
	}}
	srv := NewServer(source, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Runs []SiteRun `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Runs, 2)
	require.Equal(t, "example", payload.Runs[0].Site)
	require.Equal(t, crawler.StateCompleted, payload.Runs[0].Result.State)
	require.Equal(t, "fetch retries exhausted", payload.Runs[1].Error)
}

func TestRunsEndpointEmpty(t *testing.T) {
	t.Parallel()

	srv := NewServer(staticSource{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"runs":[]}`, rec.Body.String())
}
