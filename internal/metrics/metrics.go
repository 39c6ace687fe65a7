package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Item Operations Metrics
var (
	// ItemsCreatedTotal tracks items created through the API
	ItemsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "items_created_total",
			Help: "Total to-do items created",
		},
	)

	// ItemsDeletedTotal tracks items deleted, by path (api or sweep)
	ItemsDeletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "items_deleted_total",
			Help: "Total to-do items deleted by path",
		},
		[]string{"path"},
	)
)

// Expiry Sweeper Metrics
var (
	// SweepRunsTotal tracks completed sweep passes
	SweepRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Total expiry sweep passes",
		},
	)

	// SweepDurationSeconds tracks how long a full sweep pass takes
	SweepDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sweep_duration_seconds",
			Help:    "Expiry sweep pass duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// SessionsPurgedTotal tracks expired sessions removed by the sweeper
	SessionsPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_purged_total",
			Help: "Total expired sessions removed by the sweeper",
		},
	)

	// SweepErrorsTotal tracks per-session cleanup failures by stage
	SweepErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_errors_total",
			Help: "Sweep cleanup failures by stage (leader/list/items/session)",
		},
		[]string{"stage"},
	)

	// SweepLeaderElections tracks sweep passes won via the shared lock
	SweepLeaderElections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sweep_leader_elections_total",
			Help: "Total sweep passes for which this instance held the sweep lock",
		},
	)
)
