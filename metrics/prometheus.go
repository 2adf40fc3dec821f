package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// NewPromCounter adapts an unlabeled counter. Labels passed to Observe are
// ignored.
func NewPromCounter(m prometheus.Counter) Observer {
	return &promMetric{
		observe:   func(val float64, labels ...string) { m.Add(val) },
		Collector: m,
	}
}

// NewPromCounterVec adapts a labeled counter. Observe must receive exactly
// one value per label, in order.
func NewPromCounterVec(m *prometheus.CounterVec) Observer {
	return &promMetric{
		observe:   func(val float64, labels ...string) { m.WithLabelValues(labels...).Add(val) },
		Collector: m,
	}
}

// NewPromObserverVec adapts a labeled histogram or summary.
func NewPromObserverVec(m prometheus.ObserverVec) Observer {
	return &promMetric{
		observe:   func(val float64, labels ...string) { m.WithLabelValues(labels...).Observe(val) },
		Collector: m,
	}
}

type promMetric struct {
	observe func(val float64, labels ...string)
	prometheus.Collector
}

func (m *promMetric) Observe(val float64, labels ...string) {
	m.observe(val, labels...)
}
