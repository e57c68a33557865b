// Package metrics exposes Prometheus collectors for the crawler.
package metrics

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesTotal         *prometheus.CounterVec
	fetchAttemptsTotal *prometheus.CounterVec
	duplicatesTotal    *prometheus.CounterVec
	uploadPartsTotal   *prometheus.CounterVec
	uploadBytesTotal   *prometheus.CounterVec

	once sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawllie_pages_total",
				Help: "Pages processed, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawllie_fetch_attempts_total",
				Help: "Fetch attempts, labeled by site and result.",
			},
			[]string{"site", "result"},
		)

		duplicatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawllie_duplicate_pages_total",
				Help: "Pages dropped by the dedup engine, labeled by site.",
			},
			[]string{"site"},
		)

		uploadPartsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawllie_upload_parts_total",
				Help: "Multipart parts committed, labeled by object category.",
			},
			[]string{"category"},
		)

		uploadBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawllie_upload_bytes_total",
				Help: "Compressed bytes written to storage, labeled by object category.",
			},
			[]string{"category"},
		)
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// keyCategory extracts the leading <category>/ segment of an object key.
func keyCategory(key string) string {
	if i := strings.IndexByte(key, '/'); i > 0 {
		return key[:i]
	}
	return "unknown"
}

// ObservePage counts a processed page for a site.
func ObservePage(site, outcome string) {
	if pagesTotal == nil {
		return
	}
	pagesTotal.WithLabelValues(site, outcome).Inc()
}

// ObserveFetchAttempt counts one fetch attempt for a site.
func ObserveFetchAttempt(site, result string) {
	if fetchAttemptsTotal == nil {
		return
	}
	fetchAttemptsTotal.WithLabelValues(site, result).Inc()
}

// ObserveDuplicate counts a page dropped as duplicate content.
func ObserveDuplicate(site string) {
	if duplicatesTotal == nil {
		return
	}
	duplicatesTotal.WithLabelValues(site).Inc()
}

// ObserveUploadPart counts a committed multipart part.
func ObserveUploadPart(key string, bytes int) {
	if uploadPartsTotal == nil {
		return
	}
	category := keyCategory(key)
	uploadPartsTotal.WithLabelValues(category).Inc()
	uploadBytesTotal.WithLabelValues(category).Add(float64(bytes))
}

// ObserveUpload counts a whole-object write.
func ObserveUpload(key string, bytes int) {
	if uploadBytesTotal == nil {
		return
	}
	uploadBytesTotal.WithLabelValues(keyCategory(key)).Add(float64(bytes))
}
