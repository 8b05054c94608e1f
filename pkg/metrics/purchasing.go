package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PurchasingMetrics records stock movement and fulfillment activity.
type PurchasingMetrics struct {
	stockAdjustments *prometheus.CounterVec
	replenishments   *prometheus.CounterVec
	fulfillments     *prometheus.CounterVec
}

// NewPurchasingMetrics registers purchasing metrics on the provided
// registerer. A nil registerer yields a no-op collector.
func NewPurchasingMetrics(reg prometheus.Registerer) *PurchasingMetrics {
	if reg == nil {
		return &PurchasingMetrics{}
	}
	stockAdjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_total",
		Help: "Item stock adjustments by direction.",
	}, []string{"direction"})
	replenishments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replenishment_requests_total",
		Help: "Replenishment order requests created or widened.",
	}, []string{"outcome"})
	fulfillments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_request_fulfillments_total",
		Help: "Order request completions and reversals.",
	}, []string{"outcome"})
	reg.MustRegister(stockAdjustments, replenishments, fulfillments)
	return &PurchasingMetrics{
		stockAdjustments: stockAdjustments,
		replenishments:   replenishments,
		fulfillments:     fulfillments,
	}
}

// IncStockAdjustment counts one stock mutation in the given direction
// ("increase" or "decrease").
func (m *PurchasingMetrics) IncStockAdjustment(direction string) {
	if m == nil || m.stockAdjustments == nil {
		return
	}
	m.stockAdjustments.WithLabelValues(normalizeLabel(direction)).Inc()
}

// IncReplenishment counts one replenishment decision ("created" or "widened").
func (m *PurchasingMetrics) IncReplenishment(outcome string) {
	if m == nil || m.replenishments == nil {
		return
	}
	m.replenishments.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncFulfillment counts one completion-path run ("completed" or "reverted").
func (m *PurchasingMetrics) IncFulfillment(outcome string) {
	if m == nil || m.fulfillments == nil {
		return
	}
	m.fulfillments.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
