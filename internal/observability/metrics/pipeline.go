// Package metrics provides centralized Prometheus metrics for the posting
// pipeline. Metrics are registered on the default registry and served from
// the /metrics endpoint when the scheduler mode is running.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipelineRunsTotal counts pipeline runs by final status.
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promopost_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"},
	)

	// GenerationDuration measures the duration of a single post generation,
	// including validation-band regenerations.
	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "promopost_generation_duration_seconds",
			Help:    "Post generation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// DeliveriesTotal counts per-channel delivery outcomes.
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promopost_deliveries_total",
			Help: "Total number of channel deliveries",
		},
		[]string{"channel", "status"},
	)

	// TokenCacheLookupsTotal counts credential cache lookups by result.
	TokenCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promopost_token_cache_lookups_total",
			Help: "Total number of token cache lookups",
		},
		[]string{"result"},
	)

	// EnrichmentResultsTotal counts enrichment outcomes by source.
	EnrichmentResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promopost_enrichment_results_total",
			Help: "Total number of enrichment attempts",
		},
		[]string{"source", "outcome"},
	)

	// ImagesAcquiredTotal counts image acquisition outcomes.
	ImagesAcquiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promopost_images_acquired_total",
			Help: "Total number of image acquisitions",
		},
		[]string{"outcome"},
	)
)

// RecordPipelineRun records the completion of a pipeline run.
func RecordPipelineRun(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	PipelineRunsTotal.WithLabelValues(status).Inc()
}

// RecordGenerationDuration records the time taken to generate an accepted post.
func RecordGenerationDuration(d time.Duration) {
	GenerationDuration.Observe(d.Seconds())
}

// RecordDelivery records a per-channel delivery outcome.
func RecordDelivery(channel string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	DeliveriesTotal.WithLabelValues(channel, status).Inc()
}

// RecordTokenCacheLookup records a credential cache lookup result:
// "hit", "miss" or "expired".
func RecordTokenCacheLookup(result string) {
	TokenCacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordEnrichment records an enrichment outcome for a source
// ("wikipedia" or "websearch"); outcome is "found" or "empty".
func RecordEnrichment(source, outcome string) {
	EnrichmentResultsTotal.WithLabelValues(source, outcome).Inc()
}

// RecordImageAcquired records an image acquisition outcome:
// "fetched" or "fallback".
func RecordImageAcquired(outcome string) {
	ImagesAcquiredTotal.WithLabelValues(outcome).Inc()
}
