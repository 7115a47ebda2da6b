package orders

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
	"github.com/orderdesk/orderdesk-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
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

func createOrder(t *testing.T, db *gorm.DB, number int64, status enums.OrderStatus, created time.Time) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   number,
		CustomerName:  "Test Customer",
		CustomerEmail: "customer@example.com",
		Currency:      enums.CurrencyUSD,
		Status:        status,
		OrderAmount:   decimal.Zero,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestRepositoryListOrders_pagination(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	createOrder(t, db, 101, enums.OrderStatusPartiallyShipped, now.Add(-2*time.Hour))
	createOrder(t, db, 102, enums.OrderStatusPartiallyShipped, now.Add(-time.Hour))
	createOrder(t, db, 103, enums.OrderStatusPartiallyShipped, now)

	status := enums.OrderStatusPartiallyShipped
	filters := OrderFilters{Status: &status}

	first, err := repo.ListOrders(context.Background(), pagination.Params{Limit: 2}, filters)
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	assert.Equal(t, int64(103), first.Orders[0].OrderNumber)
	assert.Equal(t, int64(102), first.Orders[1].OrderNumber)
	require.NotEmpty(t, first.NextCursor)

	second, err := repo.ListOrders(context.Background(), pagination.Params{Limit: 2, Cursor: first.NextCursor}, filters)
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	assert.Equal(t, int64(101), second.Orders[0].OrderNumber)
	assert.Empty(t, second.NextCursor)
}

func TestRepositoryListOrders_statusFilter(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	createOrder(t, db, 201, enums.OrderStatusInvoiced, now.Add(-time.Minute))
	createOrder(t, db, 202, enums.OrderStatusCancelled, now)

	status := enums.OrderStatusInvoiced
	list, err := repo.ListOrders(context.Background(), pagination.Params{Limit: 10}, OrderFilters{Status: &status})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, int64(201), list.Orders[0].OrderNumber)
	assert.Empty(t, list.NextCursor)
}

func TestRepositoryListOrders_badCursor(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.ListOrders(context.Background(), pagination.Params{Limit: 10, Cursor: "not-a-cursor"}, OrderFilters{})
	require.Error(t, err)
}

func TestRepositoryFindOrderDetail(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := createOrder(t, db, 301, enums.OrderStatusPending, time.Now().UTC())

	planned := &models.PlannedShipment{
		ID:      uuid.New(),
		OrderID: order.ID,
		Name:    "wave 1",
		Status:  enums.PlannedShipmentStatusPlanned,
	}
	require.NoError(t, db.Create(planned).Error)

	item := &models.OrderItem{
		ID:                uuid.New(),
		OrderID:           order.ID,
		PlannedShipmentID: &planned.ID,
		SKU:               "SKU-1",
		Name:              "Crew Tee",
		OrderedQuantity:   4,
		UnitPrice:         decimal.RequireFromString("9.50"),
		Status:            enums.OrderItemStatusOpen,
	}
	require.NoError(t, db.Create(item).Error)

	shipment := &models.Shipment{
		ID:              uuid.New(),
		OrderID:         order.ID,
		ShippingCost:    decimal.RequireFromString("5.00"),
		ShippedSubtotal: decimal.RequireFromString("19.00"),
		ShippedTotal:    decimal.RequireFromString("24.00"),
		Items: []models.ShipmentItem{{
			ID:              uuid.New(),
			OrderItemID:     item.ID,
			QuantityShipped: 2,
			UnitPrice:       decimal.RequireFromString("9.50"),
		}},
		Tracking: []models.ShipmentTracking{{
			ID:             uuid.New(),
			Carrier:        "USPS",
			TrackingNumber: "9400100000000000000000",
		}},
	}
	require.NoError(t, db.Create(shipment).Error)

	found, err := repo.FindOrderDetail(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "SKU-1", found.Items[0].SKU)
	require.Len(t, found.Shipments, 1)
	require.Len(t, found.Shipments[0].Items, 1)
	require.Len(t, found.Shipments[0].Tracking, 1)
	require.Len(t, found.Planned, 1)
	assert.Equal(t, "wave 1", found.Planned[0].Name)

	_, err = repo.FindOrderDetail(context.Background(), uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
