package metrics

import "github.com/prometheus/client_golang/prometheus"

type Observer interface {
	Observe(val float64, labels ...string)

	// for now we will tightly couple to the prometheus collector type
	prometheus.Collector
}

type Metrics struct {
	// MessagesCount counts messages received from the gateway.
	MessagesCount Observer
	// FilteredCount counts messages dropped before dispatch, by reason.
	FilteredCount Observer
	// CommandCount counts invoked commands, by command name.
	CommandCount Observer
	// CommandErrors counts command errors, by error kind.
	CommandErrors Observer
	// CommandLatency measures command body latency in seconds, by command name.
	CommandLatency Observer
}

func (m Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.MessagesCount,
		m.FilteredCount,
		m.CommandCount,
		m.CommandErrors,
		m.CommandLatency,
	}
}

// Discard returns metrics which are not exported anywhere.
func Discard() *Metrics {
	return &Metrics{
		MessagesCount:  NewPromCounter(prometheus.NewCounter(prometheus.CounterOpts{Name: "discard_messages"})),
		FilteredCount:  NewPromCounterVec(prometheus.NewCounterVec(prometheus.CounterOpts{Name: "discard_filtered"}, []string{"reason"})),
		CommandCount:   NewPromCounterVec(prometheus.NewCounterVec(prometheus.CounterOpts{Name: "discard_commands"}, []string{"command"})),
		CommandErrors:  NewPromCounterVec(prometheus.NewCounterVec(prometheus.CounterOpts{Name: "discard_errors"}, []string{"kind"})),
		CommandLatency: NewPromObserverVec(prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "discard_latency"}, []string{"command"})),
	}
}
