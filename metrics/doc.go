// Package metrics instruments crdt values with go-kit metrics, following
// the same Prometheus-or-discard decorator pattern the reference
// implementation uses for its own service-level counters: a non-empty
// namespace wires a Prometheus backend, an empty one falls back to
// go-kit's discard metrics, which drop every value.
package metrics
