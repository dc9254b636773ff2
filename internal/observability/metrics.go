package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the daemon.
type Metrics struct {
	CallActive       prometheus.Gauge
	CallEvents       *prometheus.CounterVec
	PollCycles       *prometheus.CounterVec
	TranscriptLines  prometheus.Gauge
	StartCallLatency prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		CallActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "call_active",
			Help:      "1 while an outbound call is active, 0 otherwise.",
		}),
		CallEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_events_total",
			Help:      "Call lifecycle events by type.",
		}, []string{"event"}),
		PollCycles: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_poll_cycles_total",
			Help:      "Transcript poll cycles by result.",
		}, []string{"result"}),
		TranscriptLines: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transcript_lines",
			Help:      "Number of utterances in the current call transcript.",
		}),
		StartCallLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "start_call_latency_ms",
			Help:      "Latency of the call/start request in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 10000},
		}),
	}
}

func (m *Metrics) ObserveStartCallLatency(d time.Duration) {
	m.StartCallLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
