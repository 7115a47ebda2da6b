package enums

import "fmt"

// OrderItemStatus is fully derived from an item's shipped and cancelled
// quantities; it is stored for query convenience but never set by hand.
type OrderItemStatus string

const (
	OrderItemStatusOpen      OrderItemStatus = "open"
	OrderItemStatusCancelled OrderItemStatus = "cancelled"
)

var validOrderItemStatuses = []OrderItemStatus{
	OrderItemStatusOpen,
	OrderItemStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderItemStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderItemStatus.
func (o OrderItemStatus) IsValid() bool {
	for _, candidate := range validOrderItemStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderItemStatus converts raw input into an OrderItemStatus.
func ParseOrderItemStatus(value string) (OrderItemStatus, error) {
	for _, candidate := range validOrderItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order item status %q", value)
}
