package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "labstock_executions_total",
		Help: "Executed reservations by type.",
	}, []string{"type"})

	RollbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "labstock_execution_rollbacks_total",
		Help: "Reservation and recipe executions rolled back on error.",
	})

	ShortfallGrams = promauto.NewCounter(prometheus.CounterOpts{
		Name: "labstock_shortfall_grams_total",
		Help: "Grams requested but not available during FIFO executions.",
	})

	LowStockMaterials = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "labstock_low_stock_materials",
		Help: "Materials currently having at least one critical period.",
	})
)
