package obs

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hubsync",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hubsync",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hubsync",
			Subsystem: "command",
			Name:      "executed_total",
			Help:      "Hub commands executed, by kind and outcome.",
		},
		[]string{"node", "kind", "outcome"},
	)
	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hubsync",
			Subsystem: "propagate",
			Name:      "notifications_total",
			Help:      "Outbound stock notifications, by result.",
		},
		[]string{"node", "result"},
	)
)

// Notification result labels.
const (
	NotifySent       = "sent"
	NotifyFailed     = "failed"
	NotifyDropped    = "dropped"
	NotifySuppressed = "suppressed"
	NotifySkipped    = "skipped"
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, commands, notifications)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordCommand(node, kind, outcome string) {
	RegisterMetrics()
	commands.WithLabelValues(node, kind, outcome).Inc()
}

func RecordNotification(node, result string) {
	RegisterMetrics()
	notifications.WithLabelValues(node, result).Inc()
}
