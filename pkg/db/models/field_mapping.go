package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-backend/pkg/enums"
)

// FieldMapping configures one Shopify field-sync rule for the admin dashboard.
// Position drives the dashboard ordering.
type FieldMapping struct {
	ID           uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopifyField string                      `gorm:"column:shopify_field;not null"`
	LocalField   string                      `gorm:"column:local_field;not null;uniqueIndex"`
	Direction    enums.FieldMappingDirection `gorm:"column:direction;type:text;not null;default:'both'"`
	Enabled      bool                        `gorm:"column:enabled;not null;default:true"`
	Position     int                         `gorm:"column:position;not null;default:0"`
	CreatedAt    time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}
