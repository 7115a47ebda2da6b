package enums

import "fmt"

// OrderStatus tracks the fulfillment lifecycle of a customer order.
type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "pending"
	OrderStatusPartiallyShipped OrderStatus = "partially_shipped"
	OrderStatusShipped          OrderStatus = "shipped"
	OrderStatusInvoiced         OrderStatus = "invoiced"
	OrderStatusCancelled        OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPartiallyShipped,
	OrderStatusShipped,
	OrderStatusInvoiced,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the order no longer accepts ledger mutations.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusInvoiced || o == OrderStatusCancelled
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
