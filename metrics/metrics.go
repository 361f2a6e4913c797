package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Cycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "atlas_cycles_total",
			Help: "Total number of completed scheduling cycles.",
		},
	)

	SymbolResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_symbol_results_total",
			Help: "Per-symbol cycle outcomes (entered, skipped, failed) by reason.",
		},
		[]string{"outcome", "reason"},
	)

	OrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_orders_submitted_total",
			Help: "Order legs accepted by the broker, by leg.",
		},
		[]string{"leg"},
	)

	OrderRollbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "atlas_order_rollbacks_total",
			Help: "Order groups unwound after a leg was rejected.",
		},
	)

	Reconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "atlas_broker_reconnects_total",
			Help: "Broker session reconnects performed by the supervisor.",
		},
	)

	EquityGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "atlas_equity",
			Help: "Account equity from the most recent snapshot.",
		},
	)
)

func init() {
	prometheus.MustRegister(Cycles, SymbolResults, OrdersSubmitted, OrderRollbacks, Reconnects, EquityGauge)
}
