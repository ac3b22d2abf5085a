package validator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Validation call metrics
	validationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helmvalidator_validations_total",
			Help: "Total number of validation calls by outcome",
		},
		[]string{"outcome"}, // deployable, not_deployable or a failure code
	)

	validationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "helmvalidator_validation_duration_seconds",
			Help:    "Duration of a complete validation call in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// Helm process metrics
	processDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "helmvalidator_helm_process_duration_seconds",
			Help:    "Duration of helm template and lint invocations in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"}, // template or lint
	)
)
