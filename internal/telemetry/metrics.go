package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TradesTotal counts fills by symbol.
	TradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_trades_total",
			Help: "Total number of trades by symbol",
		},
		[]string{"symbol"},
	)

	// OrdersTotal counts accepted order submissions by action and symbol.
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_orders_total",
			Help: "Total number of orders by action and symbol",
		},
		[]string{"action", "symbol"},
	)

	// QueueDepth tracks how many events are currently buffered in the
	// SPSC ring between the producer and the event loop's consumer.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "exchange_queue_depth",
			Help: "Current occupancy of the event loop's ingress ring buffer",
		},
	)

	// EventsDispatched tracks how many events the event loop has
	// processed since startup.
	EventsDispatched = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "exchange_events_dispatched_total",
			Help: "Total number of events dispatched by the event loop",
		},
	)

	// ShutdownDrains counts how many times Pipeline.Shutdown has run the
	// drain-then-join sequence to completion.
	ShutdownDrains = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exchange_shutdown_drains_total",
			Help: "Total number of completed event loop shutdown drains",
		},
	)
)
