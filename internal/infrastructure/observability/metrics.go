// Package observability exposes Prometheus metrics for the poller and the
// notification mailer.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for Tor Weather.
type Metrics struct {
	PollCycles        prometheus.Counter
	PollCycleErrors   prometheus.Counter
	PollCycleDuration prometheus.Histogram
	RoutersTracked    prometheus.Gauge

	// Notification mail by subscription type and outcome.
	EmailsSent *prometheus.CounterVec // labels: kind={confirmation,confirmed,node_down,version,bandwidth,t_shirt,welcome}, outcome={success,error}

	// Web subscription churn.
	SubscriptionsCreated prometheus.Counter
	Unsubscribes         prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.PollCycles,
		m.PollCycleErrors,
		m.PollCycleDuration,
		m.RoutersTracked,
		m.EmailsSent,
		m.SubscriptionsCreated,
		m.Unsubscribes,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PollCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "torweather",
			Name:      "poll_cycles_total",
			Help:      "Total completed consensus poll cycles.",
		}),
		PollCycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "torweather",
			Name:      "poll_cycle_errors_total",
			Help:      "Total poll cycles that failed before completing.",
		}),
		PollCycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "torweather",
			Name:      "poll_cycle_duration_seconds",
			Help:      "Duration of a complete poll cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		RoutersTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "torweather",
			Name:      "routers_tracked",
			Help:      "Number of relays currently tracked.",
		}),
		EmailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "torweather",
			Name:      "emails_sent_total",
			Help:      "Notification mail by kind and outcome.",
		}, []string{"kind", "outcome"}),
		SubscriptionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "torweather",
			Name:      "subscriptions_created_total",
			Help:      "Total subscription requests accepted by the web frontend.",
		}),
		Unsubscribes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "torweather",
			Name:      "unsubscribes_total",
			Help:      "Total subscribers removed via unsubscribe links.",
		}),
	}
}

// ObserveEmail records one send attempt.
func (m *Metrics) ObserveEmail(kind string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.EmailsSent.WithLabelValues(kind, outcome).Inc()
}
