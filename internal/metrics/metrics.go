// Package metrics exposes Prometheus collectors for request handling, the
// entitlement gate, renewal prompts and broadcasts, plus the ops HTTP server.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "personabot"

// Metrics groups the bot collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Requests          *prometheus.CounterVec
	BackendDuration   *prometheus.HistogramVec
	GateDenials       *prometheus.CounterVec
	BusyRejections    prometheus.Counter
	RenewalPrompts    *prometheus.CounterVec
	BroadcastMessages *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Dispatched requests by model and outcome",
		}, []string{"model", "outcome"}),
		BackendDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_duration_seconds",
			Help:      "Time spent waiting on AI backends",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"model"}),
		GateDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_denials_total",
			Help:      "Requests denied by the free-tier quota",
		}, []string{"model"}),
		BusyRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "busy_rejections_total",
			Help:      "Requests rejected because the user already had one in flight",
		}),
		RenewalPrompts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renewal_prompts_total",
			Help:      "Renewal invoices by delivery result",
		}, []string{"result"}),
		BroadcastMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_messages_total",
			Help:      "Broadcast deliveries by result",
		}, []string{"result"}),
	}
}

func label(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}

// ObserveRequest records one backend dispatch.
func (m *Metrics) ObserveRequest(model, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(label(model), label(outcome)).Inc()
	m.BackendDuration.WithLabelValues(label(model)).Observe(duration.Seconds())
}

func (m *Metrics) GateDenied(model string) {
	if m == nil {
		return
	}
	m.GateDenials.WithLabelValues(label(model)).Inc()
}

func (m *Metrics) BusyRejected() {
	if m == nil {
		return
	}
	m.BusyRejections.Inc()
}

// RenewalPrompt records a renewal invoice with result "sent" or "failed".
func (m *Metrics) RenewalPrompt(result string) {
	if m == nil {
		return
	}
	m.RenewalPrompts.WithLabelValues(label(result)).Inc()
}

// BroadcastMessage records a broadcast delivery with result "sent" or "failed".
func (m *Metrics) BroadcastMessage(result string) {
	if m == nil {
		return
	}
	m.BroadcastMessages.WithLabelValues(label(result)).Inc()
}
