package sizes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
	"github.com/orderdesk/orderdesk-backend/pkg/logger"
)

// builtinAliases folds the common vendor spellings onto canonical sizes.
// Vendor-specific rows in size_mappings take precedence.
var builtinAliases = map[string]string{
	"EXTRA SMALL": "XS",
	"X-SMALL":     "XS",
	"XSMALL":      "XS",
	"SMALL":       "S",
	"MEDIUM":      "M",
	"MED":         "M",
	"LARGE":       "L",
	"EXTRA LARGE": "XL",
	"X-LARGE":     "XL",
	"XLARGE":      "XL",
	"2XL":         "XXL",
	"XX-LARGE":    "XXL",
	"3XL":         "XXXL",
}

// Normalizer resolves vendor size labels to canonical catalog sizes,
// consulting the explicit cache before the mapping table.
type Normalizer struct {
	db     *gorm.DB
	cache  *Cache
	logger *logger.Logger
}

// NewNormalizer builds the size normalizer.
func NewNormalizer(db *gorm.DB, cache *Cache, logg *logger.Logger) (*Normalizer, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache required")
	}
	return &Normalizer{db: db, cache: cache, logger: logg}, nil
}

// Normalize resolves one vendor label. Resolution order: cache, vendor
// mapping row, built-in aliases, and finally the cleaned label itself.
func (n *Normalizer) Normalize(ctx context.Context, vendor, rawLabel string) (string, error) {
	label := strings.ToUpper(strings.TrimSpace(rawLabel))
	if label == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "size label required")
	}

	if canonical, ok := n.cache.Lookup(ctx, vendor, label); ok {
		return canonical, nil
	}

	canonical, err := n.resolve(ctx, vendor, label)
	if err != nil {
		return "", err
	}

	if err := n.cache.Store(ctx, vendor, label, canonical); err != nil && n.logger != nil {
		n.logger.Warn(ctx, "size cache store failed")
	}
	return canonical, nil
}

func (n *Normalizer) resolve(ctx context.Context, vendor, label string) (string, error) {
	var mapping models.SizeMapping
	err := n.db.WithContext(ctx).
		Where("vendor = ? AND raw_label = ?", vendor, label).
		First(&mapping).Error
	switch {
	case err == nil:
		return mapping.Canonical, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if canonical, ok := builtinAliases[label]; ok {
			return canonical, nil
		}
		return label, nil
	default:
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load size mapping")
	}
}

// UpsertMapping writes a vendor mapping row and evicts the stale cache entry.
func (n *Normalizer) UpsertMapping(ctx context.Context, vendor, rawLabel, canonical string) error {
	vendor = strings.TrimSpace(vendor)
	label := strings.ToUpper(strings.TrimSpace(rawLabel))
	canonical = strings.ToUpper(strings.TrimSpace(canonical))
	if vendor == "" || label == "" || canonical == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor, label and canonical size required")
	}

	var existing models.SizeMapping
	err := n.db.WithContext(ctx).
		Where("vendor = ? AND raw_label = ?", vendor, label).
		First(&existing).Error
	switch {
	case err == nil:
		if err := n.db.WithContext(ctx).
			Model(&existing).
			Update("canonical", canonical).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update size mapping")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := models.SizeMapping{Vendor: vendor, RawLabel: label, Canonical: canonical}
		if err := n.db.WithContext(ctx).Create(&row).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create size mapping")
		}
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load size mapping")
	}

	if err := n.cache.Evict(ctx, vendor, label); err != nil && n.logger != nil {
		n.logger.Warn(ctx, "size cache evict failed")
	}
	return nil
}

// InvalidateCache drops every cached mapping, forcing re-resolution.
func (n *Normalizer) InvalidateCache(ctx context.Context) error {
	if err := n.cache.Invalidate(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalidate size cache")
	}
	return nil
}
