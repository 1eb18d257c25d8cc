package pagerduty

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors updated by the request queue.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlight        prometheus.Gauge
	Pending         prometheus.Gauge
}

// NewMetrics creates unregistered queue collectors under the given namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pagerduty",
			Name:      "requests_total",
			Help:      "Upstream PagerDuty requests by resource and outcome.",
		}, []string{"resource", "outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pagerduty",
			Name:      "request_duration_seconds",
			Help:      "Time spent executing upstream PagerDuty requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pagerduty",
			Name:      "requests_in_flight",
			Help:      "Upstream PagerDuty requests currently executing.",
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pagerduty",
			Name:      "requests_pending",
			Help:      "Upstream PagerDuty requests waiting for a free slot.",
		}),
	}
}

// Register registers every collector with r.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Requests, m.RequestDuration, m.InFlight, m.Pending} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}
