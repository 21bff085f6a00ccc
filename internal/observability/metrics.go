package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	syncRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stride",
		Subsystem: "sync",
		Name:      "runs_total",
		Help:      "Completed sync attempts by terminal result.",
	}, []string{"result"})
	activitiesStoredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stride",
		Subsystem: "sync",
		Name:      "activities_stored_total",
		Help:      "Activity rows upserted into Postgres.",
	})
	tokenRefreshesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stride",
		Subsystem: "oauth",
		Name:      "token_refreshes_total",
		Help:      "Refresh-grant exchanges performed against Strava.",
	})
	lastSyncGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "stride",
		Subsystem: "sync",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful sync.",
	})
)

func init() {
	prometheus.MustRegister(syncRunsTotal, activitiesStoredTotal, tokenRefreshesTotal, lastSyncGauge)
}

// RecordSyncResult counts a finished sync under its terminal result ("done"
// or an error kind).
func RecordSyncResult(result string) {
	syncRunsTotal.WithLabelValues(result).Inc()
}

// RecordActivitiesStored adds to the stored-rows counter.
func RecordActivitiesStored(n int) {
	if n > 0 {
		activitiesStoredTotal.Add(float64(n))
	}
}

// RecordTokenRefresh counts one refresh exchange.
func RecordTokenRefresh() {
	tokenRefreshesTotal.Inc()
}

// RecordSyncSuccess updates the last-success watermark gauge.
func RecordSyncSuccess(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastSyncGauge.Set(float64(ts.Unix()))
}
