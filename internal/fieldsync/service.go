package fieldsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	"github.com/orderdesk/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the Shopify field-sync mapping configuration behind the
// admin dashboard.
type Service interface {
	List(ctx context.Context) ([]models.FieldMapping, error)
	Create(ctx context.Context, input CreateInput) (*models.FieldMapping, error)
	Update(ctx context.Context, input UpdateInput) (*models.FieldMapping, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Reorder(ctx context.Context, ids []uuid.UUID) error
}

// CreateInput adds one sync rule.
type CreateInput struct {
	ShopifyField string
	LocalField   string
	Direction    enums.FieldMappingDirection
	Enabled      bool
}

// UpdateInput mutates an existing rule in place.
type UpdateInput struct {
	ID           uuid.UUID
	ShopifyField *string
	Direction    *enums.FieldMappingDirection
	Enabled      *bool
}

type service struct {
	db *gorm.DB
	tx txRunner
}

// NewService builds the field-sync configuration service.
func NewService(db *gorm.DB, tx txRunner) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{db: db, tx: tx}, nil
}

func (s *service) List(ctx context.Context) ([]models.FieldMapping, error) {
	var mappings []models.FieldMapping
	err := s.db.WithContext(ctx).
		Order("position ASC, created_at ASC").
		Find(&mappings).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list field mappings")
	}
	return mappings, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.FieldMapping, error) {
	if input.ShopifyField == "" || input.LocalField == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shopify field and local field required")
	}
	if !input.Direction.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sync direction")
	}

	mapping := &models.FieldMapping{
		ShopifyField: input.ShopifyField,
		LocalField:   input.LocalField,
		Direction:    input.Direction,
		Enabled:      input.Enabled,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var maxPosition int
		if err := tx.WithContext(ctx).
			Model(&models.FieldMapping{}).
			Select("COALESCE(MAX(position), -1)").
			Scan(&maxPosition).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find max position")
		}
		mapping.Position = maxPosition + 1
		if err := tx.WithContext(ctx).Create(mapping).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create field mapping")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mapping, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.FieldMapping, error) {
	if input.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mapping id required")
	}
	if input.Direction != nil && !input.Direction.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sync direction")
	}

	var mapping models.FieldMapping
	err := s.db.WithContext(ctx).
		Where("id = ?", input.ID).
		First(&mapping).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "field mapping not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load field mapping")
	}

	updates := map[string]any{}
	if input.ShopifyField != nil {
		updates["shopify_field"] = *input.ShopifyField
		mapping.ShopifyField = *input.ShopifyField
	}
	if input.Direction != nil {
		updates["direction"] = *input.Direction
		mapping.Direction = *input.Direction
	}
	if input.Enabled != nil {
		updates["enabled"] = *input.Enabled
		mapping.Enabled = *input.Enabled
	}
	if len(updates) == 0 {
		return &mapping, nil
	}
	if err := s.db.WithContext(ctx).
		Model(&models.FieldMapping{}).
		Where("id = ?", mapping.ID).
		Updates(updates).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update field mapping")
	}
	return &mapping, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "mapping id required")
	}
	res := s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.FieldMapping{})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete field mapping")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "field mapping not found")
	}
	return nil
}

// Reorder rewrites positions to match the given id order. Every existing
// mapping must be listed exactly once.
func (s *service) Reorder(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "mapping ids required")
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate mapping id")
		}
		seen[id] = struct{}{}
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).
			Model(&models.FieldMapping{}).
			Count(&count).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count field mappings")
		}
		if count != int64(len(ids)) {
			return pkgerrors.New(pkgerrors.CodeValidation, "reorder must include every mapping")
		}
		for position, id := range ids {
			res := tx.WithContext(ctx).
				Model(&models.FieldMapping{}).
				Where("id = ?", id).
				Update("position", position)
			if res.Error != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update position")
			}
			if res.RowsAffected == 0 {
				return pkgerrors.New(pkgerrors.CodeNotFound, "field mapping not found").
					WithDetails(map[string]any{"id": id})
			}
		}
		return nil
	})
}
