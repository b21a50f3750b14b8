package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks router activity for the /metrics endpoint.
type Metrics struct {
	SwapsTotal          *prometheus.CounterVec
	SwapErrorsTotal     *prometheus.CounterVec
	FeeAccrualsTotal    *prometheus.CounterVec
	FeeCollectionsTotal prometheus.Counter
}

// NewMetrics registers the router metrics with reg. A nil registerer gets a
// private registry so the counters still work without an exporter.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		SwapsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "router_swaps_total",
			Help: "Completed swaps by call shape.",
		}, []string{"shape"}),
		SwapErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "router_swap_errors_total",
			Help: "Failed swaps by call shape.",
		}, []string{"shape"}),
		FeeAccrualsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "router_referrer_fee_accruals_total",
			Help: "Referrer fee credits by token mint.",
		}, []string{"mint"}),
		FeeCollectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "router_referrer_fee_collections_total",
			Help: "Successful referrer fee collections.",
		}),
	}
}
