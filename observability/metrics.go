package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	checkinsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nohand",
		Subsystem: "ledger",
		Name:      "checkins_recorded_total",
		Help:      "Check-ins accepted by the ledger, by status.",
	}, []string{"status"})
	checkinsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nohand",
		Subsystem: "ledger",
		Name:      "checkins_rejected_total",
		Help:      "Check-ins rejected by the ledger, by reason.",
	}, []string{"reason"})
	leaderboardDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nohand",
		Subsystem: "leaderboard",
		Name:      "compute_duration_seconds",
		Help:      "Time spent producing the leaderboard.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})
	ledgerWipes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "nohand",
		Subsystem: "ledger",
		Name:      "wipes_total",
		Help:      "Administrative full resets.",
	})
)

func init() {
	prometheus.MustRegister(checkinsRecorded, checkinsRejected, leaderboardDuration, ledgerWipes)
}

// RecordCheckin counts an accepted check-in.
func RecordCheckin(status string) {
	checkinsRecorded.WithLabelValues(status).Inc()
}

// RecordRejection counts a refused check-in, e.g. "duplicate" or "invalid_status".
func RecordRejection(reason string) {
	checkinsRejected.WithLabelValues(reason).Inc()
}

// ObserveLeaderboard records how long a leaderboard took; source is "cache" or "store".
func ObserveLeaderboard(source string, started time.Time) {
	leaderboardDuration.WithLabelValues(source).Observe(time.Since(started).Seconds())
}

// RecordWipe counts a full reset.
func RecordWipe() {
	ledgerWipes.Inc()
}
