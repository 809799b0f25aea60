// Package metrics exposes Prometheus instrumentation for run processing.
// Registration is on the default registry; exposition is the embedding
// service's concern.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsProcessed counts validation outcomes by result ("accepted" or a
	// rejection kind tag).
	RunsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rungate",
		Subsystem: "runs",
		Name:      "processed_total",
		Help:      "Completed run submissions by validation result.",
	}, []string{"result"})

	// PersonalBests counts accepted runs that improved a leaderboard row.
	PersonalBests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rungate",
		Subsystem: "leaderboard",
		Name:      "personal_bests_total",
		Help:      "Accepted runs that set a new personal best, by record kind.",
	}, []string{"kind"})

	// RankShiftWidth observes how many existing rows each PB insertion had
	// to re-rank; the acknowledged hot spot of the merge engine.
	RankShiftWidth = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rungate",
		Subsystem: "leaderboard",
		Name:      "rank_shift_width",
		Help:      "Rows re-ranked per personal best.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})
)
