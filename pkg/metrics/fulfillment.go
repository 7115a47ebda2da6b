package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// FulfillmentMetrics counts ledger mutations. A nil receiver is a no-op so
// callers never have to guard.
type FulfillmentMetrics struct {
	shipmentsCreated prometheus.Counter
	shipmentsVoided  prometheus.Counter
	itemsCancelled   prometheus.Counter
}

// NewFulfillmentMetrics registers the fulfillment counters on the provided registerer.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shipments_created_total",
		Help: "Shipments recorded in the ledger.",
	})
	voided := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shipments_voided_total",
		Help: "Shipments soft-deleted from aggregation.",
	})
	cancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_items_cancelled_total",
		Help: "Order item cancellation operations.",
	})
	reg.MustRegister(created, voided, cancelled)
	return &FulfillmentMetrics{
		shipmentsCreated: created,
		shipmentsVoided:  voided,
		itemsCancelled:   cancelled,
	}
}

// IncShipmentsCreated increments the shipment creation counter.
func (f *FulfillmentMetrics) IncShipmentsCreated() {
	if f == nil || f.shipmentsCreated == nil {
		return
	}
	f.shipmentsCreated.Inc()
}

// IncShipmentsVoided increments the shipment void counter.
func (f *FulfillmentMetrics) IncShipmentsVoided() {
	if f == nil || f.shipmentsVoided == nil {
		return
	}
	f.shipmentsVoided.Inc()
}

// IncItemsCancelled increments the cancellation counter by one item.
func (f *FulfillmentMetrics) IncItemsCancelled() {
	f.AddItemsCancelled(1)
}

// AddItemsCancelled adds a batch of cancelled items to the counter.
func (f *FulfillmentMetrics) AddItemsCancelled(n int) {
	if f == nil || f.itemsCancelled == nil || n <= 0 {
		return
	}
	f.itemsCancelled.Add(float64(n))
}
