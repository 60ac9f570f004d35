// Package metrics provides Prometheus metrics for file retrieval.
// It exports three metrics:
//   - pronto_fetch_requests_total: Counter with an outcome label (downloaded, skipped, failed)
//   - pronto_fetch_bytes_total: Counter of bytes written to destination files
//   - pronto_fetch_duration_seconds: Histogram of download durations
//
// All metrics are registered with the Prometheus default registry during package
// initialization. The tool has no listener, so WriteTextfile dumps them for the
// node exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeDownloaded = "downloaded"
	OutcomeSkipped    = "skipped"
	OutcomeFailed     = "failed"
)

var (
	FetchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pronto_fetch_requests_total",
			Help: "Total fetch calls by outcome",
		},
		[]string{"outcome"},
	)

	FetchBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pronto_fetch_bytes_total",
			Help: "Total bytes written to destination files",
		},
	)

	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pronto_fetch_duration_seconds",
			Help:    "Duration of downloads, skipped calls excluded",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300},
		},
	)

	RefreshLastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pronto_refresh_last_success_timestamp_seconds",
			Help: "Unix time of the last fully successful scheduled refresh",
		},
	)
)

func init() {
	prometheus.MustRegister(FetchRequestsTotal)
	prometheus.MustRegister(FetchBytesTotal)
	prometheus.MustRegister(FetchDuration)
	prometheus.MustRegister(RefreshLastSuccess)
}

// ObserveFetch records the outcome of one fetch call
func ObserveFetch(outcome string, bytes int64, elapsed time.Duration) {
	FetchRequestsTotal.WithLabelValues(outcome).Inc()

	if outcome == OutcomeSkipped {
		return
	}
	if bytes > 0 {
		FetchBytesTotal.Add(float64(bytes))
	}
	FetchDuration.Observe(elapsed.Seconds())
}

// WriteTextfile writes every metric of the default gatherer to path in the text exposition format
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
