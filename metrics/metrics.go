// Package metrics holds the prometheus collectors shared by the iptvkit packages.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// XtreamAttempts counts every HTTP attempt made by the xtream caller.
	XtreamAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iptvkit_xtream_attempts_total",
			Help: "Total number of Xtream API attempts by action and outcome",
		},
		[]string{"action", "outcome"}, // success, upstream, transport, payload
	)

	// XtreamRetriesExhausted counts calls that used up their retry budget.
	XtreamRetriesExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iptvkit_xtream_retries_exhausted_total",
			Help: "Total number of Xtream API calls that exhausted their retries",
		},
		[]string{"action"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iptvkit_cache_requests_total",
			Help: "Total number of cache lookups by result",
		},
		[]string{"result"}, // hit, miss, error
	)

	ExtIPLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iptvkit_extip_lookups_total",
			Help: "Total number of external IP lookups by answer source",
		},
		[]string{"source"}, // remote, local
	)
)

// WriteTextfile writes the default gatherer to path in the node_exporter
// textfile collector format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
