package metrics

import "github.com/prometheus/client_golang/prometheus"

// InventoryMetrics counts per-item stock adjustments by result.
type InventoryMetrics struct {
	adjustments *prometheus.CounterVec
}

func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_adjustments_total",
		Help: "Stock adjustments applied after payment, by result.",
	}, []string{"result"})
	reg.MustRegister(adjustments)
	return &InventoryMetrics{adjustments: adjustments}
}

// IncAdjustment records one item result such as applied, insufficient_stock,
// product_missing, or error.
func (m *InventoryMetrics) IncAdjustment(result string) {
	if m == nil || m.adjustments == nil {
		return
	}
	m.adjustments.WithLabelValues(normalizeLabel(result)).Inc()
}
