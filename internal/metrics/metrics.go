package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gateway
	IngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_ingest_requests_total",
			Help: "Ingestion requests by resulting HTTP status",
		},
		[]string{"status"},
	)

	IngestedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_ingest_bytes_total",
			Help: "Bytes written to the raw location",
		},
	)

	// Validator
	ValidationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_validation_outcomes_total",
			Help: "Validator decisions by outcome and reason",
		},
		[]string{"outcome", "reason"},
	)

	ValidationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_validation_errors_total",
			Help: "Validator invocations that failed before reaching a decision",
		},
	)

	// Transformer
	TransformRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_transform_runs_total",
			Help: "Transformer invocations by result and failing step",
		},
		[]string{"result", "step"},
	)

	TransformDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_transform_duration_seconds",
			Help:    "Duration of a full transformer invocation",
			Buckets: prometheus.DefBuckets,
		},
	)
)
