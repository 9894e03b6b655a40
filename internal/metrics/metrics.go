package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	holdOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seatcore_hold_operations_total",
			Help: "Total hold operations by outcome",
		},
		[]string{"operation", "status"},
	)

	sweepReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seatcore_sweep_released_total",
			Help: "Total holds released by the expiry sweep",
		},
	)

	holdDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seatcore_hold_op_duration_seconds",
			Help:    "Duration of hold operations against the store",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)
)

// TrackHoldOperation records one hold/release/confirm outcome.
func TrackHoldOperation(operation, status string) {
	holdOperations.WithLabelValues(operation, status).Inc()
}

// TrackSweepReleased adds the number of holds freed by one sweep pass.
func TrackSweepReleased(n int64) {
	sweepReleased.Add(float64(n))
}

// TrackHoldDuration records how long one store operation took.
func TrackHoldDuration(operation string, d time.Duration) {
	holdDuration.WithLabelValues(operation).Observe(d.Seconds())
}
