package observability

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusFactory is a MetricFactory backed by Prometheus collectors.
// Dotted metric names become underscored: "tokenledger.mint.rejected" is
// exported as "tokenledger_mint_rejected".
type PrometheusFactory struct {
	reg     prometheus.Registerer
	buckets []float64
}

var _ MetricFactory = (*PrometheusFactory)(nil)

// NewPrometheusFactory registers collectors with reg. Nil buckets select
// prometheus.DefBuckets.
func NewPrometheusFactory(reg prometheus.Registerer, buckets []float64) *PrometheusFactory {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	return &PrometheusFactory{reg: reg, buckets: buckets}
}

// Counter implements MetricFactory. Asking twice for the same name returns
// the already registered collector.
func (f *PrometheusFactory) Counter(name string) Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: metricName(name),
		Help: "Token ledger counter " + name + ".",
	})
	if err := f.reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// Histogram implements MetricFactory.
func (f *PrometheusFactory) Histogram(name string) Histogram {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    metricName(name),
		Help:    "Token ledger histogram " + name + ".",
		Buckets: f.buckets,
	})
	if err := f.reg.Register(h); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing
			}
		}
		panic(err)
	}
	return h
}

func metricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}
