// Package metrics provides Prometheus instrumentation for the payment core.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ReconcileOutcomes counts reconciliation results per gateway.
	ReconcileOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: "reconcile",
			Name:      "outcomes_total",
			Help:      "Reconciliation outcomes by gateway and class.",
		},
		[]string{"gateway", "outcome"},
	)

	// CheckoutsInitiated counts opened gateway transactions.
	CheckoutsInitiated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: "checkout",
			Name:      "initiated_total",
			Help:      "Checkout transactions opened by gateway and result.",
		},
		[]string{"gateway", "result"},
	)
)

func init() {
	prometheus.MustRegister(ReconcileOutcomes, CheckoutsInitiated)
}

// Handler exposes the scrape endpoint on an echo route.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
