package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics - prometheus collector for the registry. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	subscriptions prometheus.Gauge
	delivered     prometheus.Counter
	dropped       prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stackit",
			Subsystem: "realtime",
			Name:      "subscriptions",
			Help:      "Open notification stream subscriptions.",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stackit",
			Subsystem: "realtime",
			Name:      "events_published_total",
			Help:      "Events queued onto a subscription.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stackit",
			Subsystem: "realtime",
			Name:      "events_dropped_total",
			Help:      "Events dropped because a subscription queue was full.",
		}),
	}
}

// Describe is part of prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.subscriptions.Describe(ch)
	m.delivered.Describe(ch)
	m.dropped.Describe(ch)
}

// Collect is part of prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.subscriptions.Collect(ch)
	m.delivered.Collect(ch)
	m.dropped.Collect(ch)
}

func (m *Metrics) subscribed() {
	if m != nil {
		m.subscriptions.Inc()
	}
}

func (m *Metrics) unsubscribed() {
	if m != nil {
		m.subscriptions.Dec()
	}
}

func (m *Metrics) published(delivered, dropped int) {
	if m == nil {
		return
	}
	m.delivered.Add(float64(delivered))
	m.dropped.Add(float64(dropped))
}
