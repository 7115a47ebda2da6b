package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shipment is one physical fulfillment event. Voiding is a soft delete: the
// row and its items stay queryable for audit but are excluded from every
// aggregate. ShippedSubtotal is fixed at creation; only ShippedTotal moves
// when the shipping cost is corrected later.
type Shipment struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	PlannedShipmentID *uuid.UUID         `gorm:"column:planned_shipment_id;type:uuid;index"`
	ShippingCost      decimal.Decimal    `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	ShippedSubtotal   decimal.Decimal    `gorm:"column:shipped_subtotal;type:numeric(12,2);not null"`
	ShippedTotal      decimal.Decimal    `gorm:"column:shipped_total;type:numeric(12,2);not null"`
	ShipDate          *time.Time         `gorm:"column:ship_date"`
	Notes             *string            `gorm:"column:notes"`
	VoidedAt          *time.Time         `gorm:"column:voided_at;index"`
	VoidedBy          *string            `gorm:"column:voided_by"`
	VoidReason        *string            `gorm:"column:void_reason"`
	VoidNotes         *string            `gorm:"column:void_notes"`
	Items             []ShipmentItem     `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE"`
	Tracking          []ShipmentTracking `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// Voided reports whether the shipment has been excluded from aggregation.
// Call sites use this instead of poking at the nullable timestamp.
func (s Shipment) Voided() bool {
	return s.VoidedAt != nil
}

// ShipmentItem records how much of one order item a shipment covered.
// UnitPrice is the effective price at creation (override or the item price).
type ShipmentItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShipmentID      uuid.UUID       `gorm:"column:shipment_id;type:uuid;not null;index"`
	OrderItemID     uuid.UUID       `gorm:"column:order_item_id;type:uuid;not null;index"`
	QuantityShipped int             `gorm:"column:quantity_shipped;not null"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// ShipmentTracking holds carrier tracking records attached to a shipment.
type ShipmentTracking struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShipmentID     uuid.UUID `gorm:"column:shipment_id;type:uuid;not null;index"`
	Carrier        string    `gorm:"column:carrier;not null"`
	TrackingNumber string    `gorm:"column:tracking_number;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName pins the singular table name; gorm would pluralize to
// shipment_trackings otherwise.
func (ShipmentTracking) TableName() string {
	return "shipment_tracking"
}
