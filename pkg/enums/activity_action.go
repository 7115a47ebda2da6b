package enums

// ActivityAction names an audited back-office mutation.
type ActivityAction string

const (
	ActivityShipmentCreated ActivityAction = "shipment_created"
	ActivityShipmentUpdated ActivityAction = "shipment_updated"
	ActivityShipmentVoided  ActivityAction = "shipment_voided"
	ActivityItemAdded       ActivityAction = "item_added"
	ActivityItemUpdated     ActivityAction = "item_updated"
	ActivityItemRemoved     ActivityAction = "item_removed"
	ActivityItemCancelled   ActivityAction = "item_cancelled"
	ActivityBulkCancelled   ActivityAction = "items_bulk_cancelled"
)

// String implements fmt.Stringer.
func (a ActivityAction) String() string {
	return string(a)
}
