package scratch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cleanupFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helmvalidator_scratch_cleanup_failures_total",
			Help: "Total number of scratch files that could not be deleted",
		},
	)
)
