// Package metrics defines the Prometheus metrics of the OptiFlow client. It
// is the single source of truth for metric names, labels and help strings.
//
// A CLI process is short-lived, so nothing scrapes it; WriteTextfile dumps the
// default registry for the node-exporter textfile collector instead.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "optiflow"

// ── Gateway metrics ───────────────────────────────────────────────────────────

// GatewayRequestsTotal counts responses seen by the authorization gateway.
// Label:
//   - code: HTTP status code as a string (e.g. "200", "401")
var GatewayRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "requests_total",
		Help:      "Total number of backend responses, by status code.",
	},
	[]string{"code"},
)

// GatewayTransportErrorsTotal counts requests that produced no response.
var GatewayTransportErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "transport_errors_total",
		Help:      "Total number of requests that failed before a response arrived.",
	},
)

// GatewayAuthLostTotal counts stored tokens erased after a 401.
var GatewayAuthLostTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "auth_lost_total",
		Help:      "Total number of times a rejected token was erased from storage.",
	},
)

// RequestDuration measures backend round-trip time.
// Label:
//   - method: HTTP method
var RequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of backend requests, including failed ones.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method"},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionOperationsTotal counts session store operations.
// Labels:
//   - operation: "bootstrap", "login", "register" or "logout"
//   - result: "ok", "failed", "expired", "skipped" or "busy"
var SessionOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "operations_total",
		Help:      "Total number of session operations, by outcome.",
	},
	[]string{"operation", "result"},
)

// WriteTextfile writes every registered metric to path in the text exposition
// format, replacing the file atomically.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
