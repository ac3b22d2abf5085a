package workers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	janitorRemovals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helmvalidator_janitor_removed_files_total",
			Help: "Total number of abandoned scratch files removed by the janitor",
		},
	)
)
