package enums

import "fmt"

// PlannedShipmentStatus is derived from the member items' quantities.
type PlannedShipmentStatus string

const (
	PlannedShipmentStatusPlanned            PlannedShipmentStatus = "planned"
	PlannedShipmentStatusPartiallyFulfilled PlannedShipmentStatus = "partially_fulfilled"
	PlannedShipmentStatusFulfilled          PlannedShipmentStatus = "fulfilled"
	PlannedShipmentStatusCancelled          PlannedShipmentStatus = "cancelled"
)

var validPlannedShipmentStatuses = []PlannedShipmentStatus{
	PlannedShipmentStatusPlanned,
	PlannedShipmentStatusPartiallyFulfilled,
	PlannedShipmentStatusFulfilled,
	PlannedShipmentStatusCancelled,
}

// String implements fmt.Stringer.
func (p PlannedShipmentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PlannedShipmentStatus.
func (p PlannedShipmentStatus) IsValid() bool {
	for _, candidate := range validPlannedShipmentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlannedShipmentStatus converts raw input into a PlannedShipmentStatus.
func ParsePlannedShipmentStatus(value string) (PlannedShipmentStatus, error) {
	for _, candidate := range validPlannedShipmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid planned shipment status %q", value)
}
