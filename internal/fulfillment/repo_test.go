package fulfillment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	"github.com/orderdesk/orderdesk-backend/pkg/enums"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number INTEGER NOT NULL,
  customer_name TEXT NOT NULL,
  customer_email TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  status TEXT NOT NULL DEFAULT 'pending',
  order_amount NUMERIC NOT NULL DEFAULT 0,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	plannedShipments := `
CREATE TABLE IF NOT EXISTS planned_shipments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  name TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'planned',
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  planned_shipment_id TEXT,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  size TEXT,
  ordered_quantity INTEGER NOT NULL,
  cancelled_quantity INTEGER NOT NULL DEFAULT 0,
  unit_price NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'open',
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	shipments := `
CREATE TABLE IF NOT EXISTS shipments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  planned_shipment_id TEXT,
  shipping_cost NUMERIC NOT NULL DEFAULT 0,
  shipped_subtotal NUMERIC NOT NULL DEFAULT 0,
  shipped_total NUMERIC NOT NULL DEFAULT 0,
  ship_date DATETIME,
  notes TEXT,
  voided_at DATETIME,
  voided_by TEXT,
  void_reason TEXT,
  void_notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	shipmentItems := `
CREATE TABLE IF NOT EXISTS shipment_items (
  id TEXT PRIMARY KEY,
  shipment_id TEXT NOT NULL,
  order_item_id TEXT NOT NULL,
  quantity_shipped INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  created_at DATETIME
);`
	shipmentTracking := `
CREATE TABLE IF NOT EXISTS shipment_tracking (
  id TEXT PRIMARY KEY,
  shipment_id TEXT NOT NULL,
  carrier TEXT NOT NULL,
  tracking_number TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(plannedShipments).Error)
	require.NoError(t, db.Exec(orderItems).Error)
	require.NoError(t, db.Exec(shipments).Error)
	require.NoError(t, db.Exec(shipmentItems).Error)
	require.NoError(t, db.Exec(shipmentTracking).Error)
	return db
}

func createOrderRow(t *testing.T, db *gorm.DB, number int64) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   number,
		CustomerName:  "Test Customer",
		CustomerEmail: "customer@example.com",
		Currency:      enums.CurrencyUSD,
		Status:        enums.OrderStatusPending,
		OrderAmount:   decimal.Zero,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func createItemRow(t *testing.T, db *gorm.DB, order *models.Order, sku string, ordered int) *models.OrderItem {
	t.Helper()

	item := &models.OrderItem{
		ID:              uuid.New(),
		OrderID:         order.ID,
		SKU:             sku,
		Name:            sku,
		OrderedQuantity: ordered,
		UnitPrice:       decimal.RequireFromString("4.00"),
		Status:          enums.OrderItemStatusOpen,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func createShipmentRow(t *testing.T, db *gorm.DB, order *models.Order, voided bool, lines map[uuid.UUID]int) *models.Shipment {
	t.Helper()

	shipment := &models.Shipment{
		ID:              uuid.New(),
		OrderID:         order.ID,
		ShippingCost:    decimal.Zero,
		ShippedSubtotal: decimal.Zero,
		ShippedTotal:    decimal.Zero,
	}
	if voided {
		now := time.Now().UTC()
		reason := "test void"
		shipment.VoidedAt = &now
		shipment.VoidReason = &reason
	}
	for itemID, qty := range lines {
		shipment.Items = append(shipment.Items, models.ShipmentItem{
			ID:              uuid.New(),
			OrderItemID:     itemID,
			QuantityShipped: qty,
			UnitPrice:       decimal.RequireFromString("4.00"),
		})
	}
	require.NoError(t, db.Create(shipment).Error)
	return shipment
}

func TestRepositoryShippedQuantitiesExcludesVoided(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	order := createOrderRow(t, db, 9001)
	itemA := createItemRow(t, db, order, "SKU-A", 10)
	itemB := createItemRow(t, db, order, "SKU-B", 5)

	createShipmentRow(t, db, order, false, map[uuid.UUID]int{itemA.ID: 3, itemB.ID: 2})
	createShipmentRow(t, db, order, false, map[uuid.UUID]int{itemA.ID: 1})
	createShipmentRow(t, db, order, true, map[uuid.UUID]int{itemA.ID: 6, itemB.ID: 3})

	shipped, err := repo.ShippedQuantities(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, shipped[itemA.ID])
	assert.Equal(t, 2, shipped[itemB.ID])

	active, err := repo.CountActiveShipments(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), active)
}

func TestRepositoryShippedQuantitiesForItems(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	order := createOrderRow(t, db, 9002)
	itemA := createItemRow(t, db, order, "SKU-A", 10)
	itemB := createItemRow(t, db, order, "SKU-B", 5)
	createShipmentRow(t, db, order, false, map[uuid.UUID]int{itemA.ID: 4, itemB.ID: 2})
	createShipmentRow(t, db, order, true, map[uuid.UUID]int{itemA.ID: 5})

	shipped, err := repo.ShippedQuantitiesForItems(context.Background(), []uuid.UUID{itemA.ID})
	require.NoError(t, err)
	assert.Equal(t, 4, shipped[itemA.ID])
	_, present := shipped[itemB.ID]
	assert.False(t, present)

	empty, err := repo.ShippedQuantitiesForItems(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRepositoryFindShipmentPreloads(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	order := createOrderRow(t, db, 9003)
	item := createItemRow(t, db, order, "SKU-A", 10)

	shipment := &models.Shipment{
		ID:              uuid.New(),
		OrderID:         order.ID,
		ShippingCost:    decimal.RequireFromString("5.00"),
		ShippedSubtotal: decimal.RequireFromString("12.00"),
		ShippedTotal:    decimal.RequireFromString("17.00"),
		Items: []models.ShipmentItem{{
			ID:              uuid.New(),
			OrderItemID:     item.ID,
			QuantityShipped: 3,
			UnitPrice:       decimal.RequireFromString("4.00"),
		}},
		Tracking: []models.ShipmentTracking{{
			ID:             uuid.New(),
			Carrier:        "UPS",
			TrackingNumber: "1Z999",
		}},
	}
	require.NoError(t, db.Create(shipment).Error)

	found, err := repo.FindShipment(context.Background(), shipment.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, 3, found.Items[0].QuantityShipped)
	require.Len(t, found.Tracking, 1)
	assert.Equal(t, "UPS", found.Tracking[0].Carrier)
	assert.False(t, found.Voided())
}

func TestRepositoryUpdateShipmentVoidColumns(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	order := createOrderRow(t, db, 9004)
	item := createItemRow(t, db, order, "SKU-A", 10)
	shipment := createShipmentRow(t, db, order, false, map[uuid.UUID]int{item.ID: 2})

	now := time.Now().UTC()
	err := repo.UpdateShipment(context.Background(), shipment.ID, map[string]any{
		"voided_at":   now,
		"voided_by":   "ops@example.com",
		"void_reason": "mispick",
	})
	require.NoError(t, err)

	found, err := repo.FindShipment(context.Background(), shipment.ID)
	require.NoError(t, err)
	assert.True(t, found.Voided())
	require.NotNil(t, found.VoidReason)
	assert.Equal(t, "mispick", *found.VoidReason)

	shipped, err := repo.ShippedQuantities(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Zero(t, shipped[item.ID])
}
