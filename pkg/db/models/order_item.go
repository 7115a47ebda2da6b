package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderdesk/orderdesk-backend/pkg/enums"
)

// OrderItem is one line of a customer order. CancelledQuantity only ever
// grows; shipped quantity lives in shipment_items and is aggregated over
// non-voided shipments.
type OrderItem struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	PlannedShipmentID *uuid.UUID            `gorm:"column:planned_shipment_id;type:uuid;index"`
	SKU               string                `gorm:"column:sku;not null"`
	Name              string                `gorm:"column:name;not null"`
	Size              *string               `gorm:"column:size"`
	OrderedQuantity   int                   `gorm:"column:ordered_quantity;not null"`
	CancelledQuantity int                   `gorm:"column:cancelled_quantity;not null;default:0"`
	UnitPrice         decimal.Decimal       `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Status            enums.OrderItemStatus `gorm:"column:status;type:text;not null;default:'open'"`
	Notes             *string               `gorm:"column:notes"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// LineAmount is the item's contribution to the denormalized order amount.
func (i OrderItem) LineAmount() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.OrderedQuantity)))
}
