package fulfillment

import (
	"github.com/orderdesk/orderdesk-backend/pkg/enums"
)

// ItemQuantities carries the per-item ledger inputs the reconciler works on.
// Shipped must already be summed over non-voided shipments only.
type ItemQuantities struct {
	Ordered   int
	Shipped   int
	Cancelled int
}

// Remaining is the quantity still expected to ship for this item.
func (q ItemQuantities) Remaining() int {
	return q.Ordered - q.Shipped - q.Cancelled
}

// Effective is the ordered quantity minus cancellations.
func (q ItemQuantities) Effective() int {
	return q.Ordered - q.Cancelled
}

// MaxCancellable is how much of the item can still be cancelled.
func (q ItemQuantities) MaxCancellable() int {
	return q.Ordered - q.Shipped - q.Cancelled
}

// ItemStatus derives the stored item status. An item is cancelled once its
// cancellations cover everything that was not shipped.
func ItemStatus(q ItemQuantities) enums.OrderItemStatus {
	if q.Cancelled >= q.Ordered-q.Shipped {
		return enums.OrderItemStatusCancelled
	}
	return enums.OrderItemStatusOpen
}

// PlannedShipmentStatus derives a planned shipment's status from its member
// items. The second return is false when the grouping has no members, in
// which case callers skip the status write entirely.
func PlannedShipmentStatus(items []ItemQuantities) (enums.PlannedShipmentStatus, bool) {
	if len(items) == 0 {
		return "", false
	}

	var ordered, shipped, cancelled int
	for _, q := range items {
		ordered += q.Ordered
		shipped += q.Shipped
		cancelled += q.Cancelled
	}
	remaining := ordered - shipped - cancelled

	switch {
	case cancelled == ordered:
		return enums.PlannedShipmentStatusCancelled, true
	case remaining <= 0:
		return enums.PlannedShipmentStatusFulfilled, true
	case shipped > 0:
		return enums.PlannedShipmentStatusPartiallyFulfilled, true
	default:
		return enums.PlannedShipmentStatusPlanned, true
	}
}

// OrderStatusOnShipment derives the order status right after a shipment was
// created. Item quantities must include the shipment just written. The second
// return reports whether the status actually changed.
func OrderStatusOnShipment(current enums.OrderStatus, items []ItemQuantities) (enums.OrderStatus, bool) {
	if current.IsTerminal() {
		return current, false
	}

	if fullyShipped(items) {
		return enums.OrderStatusShipped, current != enums.OrderStatusShipped
	}
	if current != enums.OrderStatusPartiallyShipped {
		return enums.OrderStatusPartiallyShipped, true
	}
	return current, false
}

// OrderStatusAfterVoid derives the order status once a shipment has been
// voided, using only the remaining non-voided shipments.
func OrderStatusAfterVoid(current enums.OrderStatus, items []ItemQuantities, hasShipments bool) (enums.OrderStatus, bool) {
	if current == enums.OrderStatusCancelled {
		return current, false
	}
	return reconcileOrderStatus(current, items, hasShipments)
}

// OrderStatusOnCancellation re-derives the order status after a cancellation
// reduced the effective quantities. Cancelling the unshipped remainder of an
// order can complete it: the active shipments now cover everything still
// expected, so the order moves to shipped.
func OrderStatusOnCancellation(current enums.OrderStatus, items []ItemQuantities, hasShipments bool) (enums.OrderStatus, bool) {
	if current.IsTerminal() {
		return current, false
	}
	return reconcileOrderStatus(current, items, hasShipments)
}

func reconcileOrderStatus(current enums.OrderStatus, items []ItemQuantities, hasShipments bool) (enums.OrderStatus, bool) {
	var next enums.OrderStatus
	switch {
	case hasShipments && fullyShipped(items):
		next = enums.OrderStatusShipped
	case hasShipments:
		next = enums.OrderStatusPartiallyShipped
	default:
		next = enums.OrderStatusPending
	}
	return next, next != current
}

func fullyShipped(items []ItemQuantities) bool {
	for _, q := range items {
		if q.Shipped < q.Effective() {
			return false
		}
	}
	return true
}
