// Package metrics holds the Prometheus collectors of the Redmine integration.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ninetofiver"

var (
	timeEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redmine_time_entries_total",
			Help:      "Redmine time entries reconciled, by outcome.",
		},
		[]string{"outcome"},
	)

	updatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redmine_updated_total",
			Help:      "Previously imported time entries that changed upstream.",
		},
	)

	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redmine_requests_total",
			Help:      "Requests sent to the Redmine API.",
		},
		[]string{"endpoint", "status"},
	)

	prefetchRounds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "redmine_prefetch_rounds",
			Help:      "Issue batch fetches needed to resolve contracts for one run.",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8, 12},
		},
	)
)

func ObserveTimeEntry(valid, updated bool) {
	outcome := "invalid"
	if valid {
		outcome = "valid"
	}
	timeEntriesTotal.WithLabelValues(outcome).Inc()
	if updated {
		updatedTotal.Inc()
	}
}

// ObserveRequest records one API call. status 0 means a transport failure.
func ObserveRequest(endpoint string, status int) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	requestsTotal.WithLabelValues(endpoint, label).Inc()
}

func ObservePrefetchRounds(rounds int) {
	prefetchRounds.Observe(float64(rounds))
}
