package models

import (
	"time"

	"github.com/google/uuid"
)

// SizeMapping normalizes a vendor's raw size label to the canonical size
// used across the catalog.
type SizeMapping struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Vendor    string    `gorm:"column:vendor;not null;uniqueIndex:idx_size_mappings_vendor_label"`
	RawLabel  string    `gorm:"column:raw_label;not null;uniqueIndex:idx_size_mappings_vendor_label"`
	Canonical string    `gorm:"column:canonical;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
