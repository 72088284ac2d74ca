// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_jobs_completed_total",
			Help: "Total number of notification jobs processed successfully",
		},
		[]string{"job_type"},
	)

	JobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_jobs_failed_total",
			Help: "Total number of notification jobs that failed",
		},
		[]string{"job_type", "error_code"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "notifier_job_duration_seconds",
			Help: "Duration of notification job processing in seconds",
		},
		[]string{"job_type"},
	)

	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notifier_live_connections",
			Help: "Number of currently registered websocket connections",
		},
	)

	BroadcastsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_broadcast_sends_total",
			Help: "Total per-connection live delivery attempts",
		},
		[]string{"result"},
	)
)
