package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-backend/pkg/enums"
	"github.com/orderdesk/orderdesk-backend/pkg/types"
)

// ActivityLog records who performed a back-office mutation and its effect.
type ActivityLog struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	Actor     string               `gorm:"column:actor;not null"`
	Action    enums.ActivityAction `gorm:"column:action;type:text;not null"`
	Detail    types.JSONMap        `gorm:"column:detail;type:jsonb;serializer:json"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
}
