package interceptors

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/toyz/synapse/pkg/synapse"
)

// Metrics records handler counts and durations in Prometheus
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors under namespace and registers them with reg
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handler_requests_total",
				Help:      "Total number of handled requests",
			},
			[]string{"method", "route", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "handler_duration_seconds",
				Help:      "Handler duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.Requests, m.Duration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) Intercept(ec *synapse.ExecutionContext, next synapse.CallHandler) (any, error) {
	start := time.Now()
	result, err := next.Handle()

	route := ec.Route()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Requests.WithLabelValues(route.Method, route.Path, outcome).Inc()
	m.Duration.WithLabelValues(route.Method, route.Path).Observe(time.Since(start).Seconds())
	return result, err
}
