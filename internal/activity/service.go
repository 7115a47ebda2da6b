package activity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	"github.com/orderdesk/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
)

// Entry is one audit record for a back-office mutation.
type Entry struct {
	OrderID uuid.UUID
	Actor   string
	Action  enums.ActivityAction
	Detail  map[string]any
}

// Service persists audit entries and serves the per-order audit trail.
type Service interface {
	Record(ctx context.Context, entry Entry) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ActivityLog, error)
}

type service struct {
	db *gorm.DB
}

// NewService builds the activity service bound to the provided DB.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("activity db required")
	}
	return &service{db: db}, nil
}

func (s *service) Record(ctx context.Context, entry Entry) error {
	if entry.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if entry.Actor == "" {
		entry.Actor = "system"
	}
	row := models.ActivityLog{
		OrderID: entry.OrderID,
		Actor:   entry.Actor,
		Action:  entry.Action,
		Detail:  entry.Detail,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record activity")
	}
	return nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ActivityLog, error) {
	var rows []models.ActivityLog
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list activity")
	}
	return rows, nil
}
