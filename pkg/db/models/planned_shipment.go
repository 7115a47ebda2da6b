package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-backend/pkg/enums"
)

// PlannedShipment groups order items intended to ship together. Status is
// derived purely from the member items' quantities.
type PlannedShipment struct {
	ID        uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID                   `gorm:"column:order_id;type:uuid;not null;index"`
	Name      string                      `gorm:"column:name;not null"`
	Status    enums.PlannedShipmentStatus `gorm:"column:status;type:text;not null;default:'planned'"`
	Items     []OrderItem                 `gorm:"foreignKey:PlannedShipmentID"`
	CreatedAt time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}
