package metrics

import (
	gokitmetrics "github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/someapp/riak-dt/crdt"
)

// statKeys is the closed set of crdt.Stat keys any of the three CRDT
// types can report, used to pre-create one gauge per key at construction
// time instead of registering gauges lazily by name.
var statKeys = []string{
	"actor_count",
	"element_count",
	"dot_length",
	"field_count",
	"max_dot_length",
}

// Instrumented republishes a crdt value's Stats as gauges and counts the
// outcome of every mutating call a caller routes through Record, mirroring
// the reference implementation's metricsService decorator.
type Instrumented struct {
	gauges  map[string]gokitmetrics.Gauge
	outcome gokitmetrics.Counter
}

// New builds an Instrumented wired to Prometheus under namespace/subsystem
// when namespace is non-empty, or to a discarding backend when it is
// empty (the same branch go-pluto-pluto/metrics.go's NewPlutoMetrics takes
// on an empty distributor address).
func New(namespace, subsystem string) *Instrumented {

	in := &Instrumented{gauges: make(map[string]gokitmetrics.Gauge, len(statKeys))}

	if namespace == "" {
		for _, key := range statKeys {
			in.gauges[key] = discard.NewGauge()
		}
		in.outcome = discard.NewCounter()
		return in
	}

	for _, key := range statKeys {
		in.gauges[key] = prometheus.NewGaugeFrom(prom.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      key,
			Help:      "Last observed " + key + " for an instrumented CRDT value.",
		}, nil)
	}

	in.outcome = prometheus.NewCounterFrom(prom.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "operations_total",
		Help:      "Outcomes of operations against an instrumented CRDT value.",
	}, []string{"outcome"})

	return in
}

// Observe republishes v's current crdt.Stats through the matching gauges.
// Keys v's type does not report are left at their last value.
func (in *Instrumented) Observe(v crdt.CRDT) {
	for _, stat := range crdt.Stats(v) {
		if gauge, ok := in.gauges[stat.Key]; ok {
			gauge.Set(stat.Value)
		}
	}
}

// Record wraps a single mutating call: it runs fn, observes the resulting
// value's stats on success, increments the "ok" or "precondition_error"
// outcome counter, and returns fn's result unchanged.
func (in *Instrumented) Record(fn func() (crdt.CRDT, error)) (crdt.CRDT, error) {

	v, err := fn()
	if err != nil {
		in.outcome.With("outcome", "precondition_error").Add(1)
		return nil, err
	}

	in.outcome.With("outcome", "ok").Add(1)
	in.Observe(v)
	return v, nil
}
