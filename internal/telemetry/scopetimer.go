// Package telemetry holds cross-cutting instrumentation: Prometheus
// counters, gauges and a scope-timing histogram that the event loop,
// matching engine and intake bridge update directly, plus OpenTelemetry
// spans around event dispatch. The metrics are registered at package
// init; exposing them is up to the harness, and spans are no-ops until
// a TracerProvider is registered.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// scopeDuration records how long a labeled scope took. This replaces
// the rejected "mutable global timer slots keyed by string" pattern:
// instead of a fixed-size array of thread-local slots addressed by an
// enum, each call to Start gets its own closure holding the start
// time, and Stop (the returned func) is the only mutation it performs.
var scopeDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "exchange_scope_duration_seconds",
		Help:    "Duration of a labeled code scope",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"label"},
)

// Start begins timing a scope and returns a function that records the
// elapsed duration when called. Typical use:
//
//	stop := telemetry.Start("dispatch")
//	defer stop()
func Start(label string) func() {
	begin := time.Now()
	return func() {
		scopeDuration.WithLabelValues(label).Observe(time.Since(begin).Seconds())
	}
}
