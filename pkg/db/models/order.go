package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderdesk/orderdesk-backend/pkg/enums"
)

// Order is the top-level aggregate for the fulfillment ledger. OrderAmount is
// denormalized from current (non-removed) items and recomputed after every
// item mutation.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber   int64             `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerName  string            `gorm:"column:customer_name;not null"`
	CustomerEmail string            `gorm:"column:customer_email;not null"`
	Currency      enums.Currency    `gorm:"column:currency;type:text;not null;default:'USD'"`
	Status        enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	OrderAmount   decimal.Decimal   `gorm:"column:order_amount;type:numeric(12,2);not null"`
	Notes         *string           `gorm:"column:notes"`
	Items         []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Shipments     []Shipment        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Planned       []PlannedShipment `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
