package fieldsync

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	"github.com/orderdesk/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
)

type gormTx struct {
	db *gorm.DB
}

func (g gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

// Each test gets its own named in-memory database so the reorder count
// check sees only its own rows.
func setupFieldSyncTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:fieldsync_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS field_mappings (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  shopify_field TEXT NOT NULL,
  local_field TEXT NOT NULL UNIQUE,
  direction TEXT NOT NULL DEFAULT 'both',
  enabled INTEGER NOT NULL DEFAULT 1,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newFieldSyncService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(db, gormTx{db: db})
	require.NoError(t, err)
	return svc
}

func createMapping(t *testing.T, db *gorm.DB, localField string, position int) *models.FieldMapping {
	t.Helper()

	mapping := &models.FieldMapping{
		ID:           uuid.New(),
		ShopifyField: "note_attributes." + localField,
		LocalField:   localField,
		Direction:    enums.FieldMappingDirectionBoth,
		Enabled:      true,
		Position:     position,
	}
	require.NoError(t, db.Create(mapping).Error)
	return mapping
}

func TestServiceCreateAppendsPosition(t *testing.T) {
	db := setupFieldSyncTestDB(t, "create")
	svc := newFieldSyncService(t, db)

	first, err := svc.Create(context.Background(), CreateInput{
		ShopifyField: "note_attributes.po_number",
		LocalField:   "po_number",
		Direction:    enums.FieldMappingDirectionPull,
		Enabled:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, first.Position)

	second, err := svc.Create(context.Background(), CreateInput{
		ShopifyField: "tags",
		LocalField:   "labels",
		Direction:    enums.FieldMappingDirectionPush,
		Enabled:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Position)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "po_number", list[0].LocalField)
	assert.Equal(t, "labels", list[1].LocalField)
}

func TestServiceCreateRejectsInvalidDirection(t *testing.T) {
	db := setupFieldSyncTestDB(t, "create_invalid")
	svc := newFieldSyncService(t, db)

	_, err := svc.Create(context.Background(), CreateInput{
		ShopifyField: "tags",
		LocalField:   "labels",
		Direction:    enums.FieldMappingDirection("sideways"),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestServiceUpdateMapping(t *testing.T) {
	db := setupFieldSyncTestDB(t, "update")
	svc := newFieldSyncService(t, db)

	mapping := createMapping(t, db, "po_number", 0)

	direction := enums.FieldMappingDirectionPush
	enabled := false
	updated, err := svc.Update(context.Background(), UpdateInput{
		ID:        mapping.ID,
		Direction: &direction,
		Enabled:   &enabled,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.FieldMappingDirectionPush, updated.Direction)
	assert.False(t, updated.Enabled)

	var persisted models.FieldMapping
	require.NoError(t, db.Where("id = ?", mapping.ID).First(&persisted).Error)
	assert.Equal(t, enums.FieldMappingDirectionPush, persisted.Direction)
	assert.False(t, persisted.Enabled)
}

func TestServiceUpdateUnknownMapping(t *testing.T) {
	db := setupFieldSyncTestDB(t, "update_missing")
	svc := newFieldSyncService(t, db)

	enabled := true
	_, err := svc.Update(context.Background(), UpdateInput{ID: uuid.New(), Enabled: &enabled})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestServiceDeleteMapping(t *testing.T) {
	db := setupFieldSyncTestDB(t, "delete")
	svc := newFieldSyncService(t, db)

	mapping := createMapping(t, db, "po_number", 0)

	require.NoError(t, svc.Delete(context.Background(), mapping.ID))

	err := svc.Delete(context.Background(), mapping.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestServiceReorderRewritesPositions(t *testing.T) {
	db := setupFieldSyncTestDB(t, "reorder")
	svc := newFieldSyncService(t, db)

	a := createMapping(t, db, "po_number", 0)
	b := createMapping(t, db, "labels", 1)
	c := createMapping(t, db, "gift_message", 2)

	require.NoError(t, svc.Reorder(context.Background(), []uuid.UUID{c.ID, a.ID, b.ID}))

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "gift_message", list[0].LocalField)
	assert.Equal(t, "po_number", list[1].LocalField)
	assert.Equal(t, "labels", list[2].LocalField)
}

func TestServiceReorderValidation(t *testing.T) {
	db := setupFieldSyncTestDB(t, "reorder_invalid")
	svc := newFieldSyncService(t, db)

	a := createMapping(t, db, "po_number", 0)
	createMapping(t, db, "labels", 1)

	err := svc.Reorder(context.Background(), []uuid.UUID{a.ID, a.ID})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	err = svc.Reorder(context.Background(), []uuid.UUID{a.ID})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
