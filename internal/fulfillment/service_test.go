package fulfillment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/internal/activity"
	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	"github.com/orderdesk/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
)

type stubRepo struct {
	orders    map[uuid.UUID]*models.Order
	items     map[uuid.UUID]*models.OrderItem
	shipments map[uuid.UUID]*models.Shipment
	planned   map[uuid.UUID]*models.PlannedShipment
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		orders:    map[uuid.UUID]*models.Order{},
		items:     map[uuid.UUID]*models.OrderItem{},
		shipments: map[uuid.UUID]*models.Shipment{},
		planned:   map[uuid.UUID]*models.PlannedShipment{},
	}
}

func (r *stubRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, ok := r.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *stubRepo) FindOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var out []models.OrderItem
	for _, item := range r.items {
		if item.OrderID == orderID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *stubRepo) FindShipment(ctx context.Context, shipmentID uuid.UUID) (*models.Shipment, error) {
	shipment, ok := r.shipments[shipmentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *shipment
	return &copied, nil
}

func (r *stubRepo) FindShipmentsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Shipment, error) {
	var out []models.Shipment
	for _, shipment := range r.shipments {
		if shipment.OrderID == orderID {
			out = append(out, *shipment)
		}
	}
	return out, nil
}

func (r *stubRepo) FindPlannedShipment(ctx context.Context, id uuid.UUID) (*models.PlannedShipment, error) {
	planned, ok := r.planned[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *planned
	return &copied, nil
}

func (r *stubRepo) FindPlannedShipmentItems(ctx context.Context, id uuid.UUID) ([]models.OrderItem, error) {
	var out []models.OrderItem
	for _, item := range r.items {
		if item.PlannedShipmentID != nil && *item.PlannedShipmentID == id {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *stubRepo) CreateShipment(ctx context.Context, shipment *models.Shipment) error {
	shipment.ID = uuid.New()
	for i := range shipment.Items {
		shipment.Items[i].ID = uuid.New()
		shipment.Items[i].ShipmentID = shipment.ID
	}
	copied := *shipment
	r.shipments[shipment.ID] = &copied
	return nil
}

func (r *stubRepo) UpdateShipment(ctx context.Context, shipmentID uuid.UUID, updates map[string]any) error {
	shipment, ok := r.shipments[shipmentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range updates {
		switch key {
		case "voided_at":
			at := value.(time.Time)
			shipment.VoidedAt = &at
		case "voided_by":
			by := value.(string)
			shipment.VoidedBy = &by
		case "void_reason":
			reason := value.(string)
			shipment.VoidReason = &reason
		case "void_notes":
			notes := value.(string)
			shipment.VoidNotes = &notes
		case "shipping_cost":
			shipment.ShippingCost = value.(decimal.Decimal)
		case "shipped_total":
			shipment.ShippedTotal = value.(decimal.Decimal)
		case "ship_date":
			date := value.(time.Time)
			shipment.ShipDate = &date
		case "notes":
			notes := value.(string)
			shipment.Notes = &notes
		}
	}
	return nil
}

func (r *stubRepo) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	order, ok := r.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	order.Status = status
	return nil
}

func (r *stubRepo) UpdateOrderItemStatus(ctx context.Context, itemID uuid.UUID, status enums.OrderItemStatus) error {
	item, ok := r.items[itemID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.Status = status
	return nil
}

func (r *stubRepo) UpdatePlannedShipmentStatus(ctx context.Context, id uuid.UUID, status enums.PlannedShipmentStatus) error {
	planned, ok := r.planned[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	planned.Status = status
	return nil
}

func (r *stubRepo) ShippedQuantities(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]int, error) {
	out := map[uuid.UUID]int{}
	for _, shipment := range r.shipments {
		if shipment.OrderID != orderID || shipment.Voided() {
			continue
		}
		for _, si := range shipment.Items {
			out[si.OrderItemID] += si.QuantityShipped
		}
	}
	return out, nil
}

func (r *stubRepo) ShippedQuantitiesForItems(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	wanted := map[uuid.UUID]struct{}{}
	for _, id := range itemIDs {
		wanted[id] = struct{}{}
	}
	out := map[uuid.UUID]int{}
	for _, shipment := range r.shipments {
		if shipment.Voided() {
			continue
		}
		for _, si := range shipment.Items {
			if _, ok := wanted[si.OrderItemID]; ok {
				out[si.OrderItemID] += si.QuantityShipped
			}
		}
	}
	return out, nil
}

func (r *stubRepo) CountActiveShipments(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	for _, shipment := range r.shipments {
		if shipment.OrderID == orderID && !shipment.Voided() {
			count++
		}
	}
	return count, nil
}

func (r *stubRepo) addOrder(status enums.OrderStatus) *models.Order {
	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: int64(1000 + len(r.orders)),
		Status:      status,
		Currency:    enums.CurrencyUSD,
	}
	r.orders[order.ID] = order
	return order
}

func (r *stubRepo) addItem(order *models.Order, sku string, ordered int, price decimal.Decimal) *models.OrderItem {
	item := &models.OrderItem{
		ID:              uuid.New(),
		OrderID:         order.ID,
		SKU:             sku,
		Name:            sku,
		OrderedQuantity: ordered,
		UnitPrice:       price,
		Status:          enums.OrderItemStatusOpen,
	}
	r.items[item.ID] = item
	return item
}

func (r *stubRepo) addPlanned(order *models.Order, items ...*models.OrderItem) *models.PlannedShipment {
	planned := &models.PlannedShipment{
		ID:      uuid.New(),
		OrderID: order.ID,
		Name:    "wave 1",
		Status:  enums.PlannedShipmentStatusPlanned,
	}
	r.planned[planned.ID] = planned
	for _, item := range items {
		item.PlannedShipmentID = &planned.ID
	}
	return planned
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubActivity struct {
	entries []activity.Entry
}

func (a *stubActivity) Record(ctx context.Context, entry activity.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

type stubSyncer struct {
	calls []FulfillmentSyncRequest
	err   error
}

func (s *stubSyncer) CreateFulfillment(ctx context.Context, req FulfillmentSyncRequest) error {
	s.calls = append(s.calls, req)
	return s.err
}

func newTestService(t *testing.T, repo *stubRepo, syncer FulfillmentSyncer) (Service, *stubActivity) {
	t.Helper()
	recorder := &stubActivity{}
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Tx:       stubTx{},
		Activity: recorder,
		Syncer:   syncer,
	})
	require.NoError(t, err)
	return svc, recorder
}

func price(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestCreateShipmentCompletesOrder(t *testing.T) {
	repo := newStubRepo()
	order := repo.addOrder(enums.OrderStatusPending)
	item := repo.addItem(order, "SKU-1", 10, price("4.50"))
	svc, recorder := newTestService(t, repo, nil)

	shipment, err := svc.CreateShipment(context.Background(), CreateShipmentInput{
		OrderID:      order.ID,
		Items:        []ShipmentItemInput{{OrderItemID: item.ID, Quantity: 10}},
		ShippingCost: price("8.00"),
		Actor:        "ops@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "45", shipment.ShippedSubtotal.String())
	assert.Equal(t, "53", shipment.ShippedTotal.String())
	assert.Equal(t, enums.OrderStatusShipped, repo.orders[order.ID].Status)

	require.Len(t, recorder.entries, 1)
	assert.Equal(t, enums.ActivityShipmentCreated, recorder.entries[0].Action)
	assert.Equal(t, "ops@example.com", recorder.entries[0].Actor)
}

func TestCreateShipmentPartialMarksPartiallyShipped(t *testing.T) {
	repo := newStubRepo()
	order := repo.addOrder(enums.OrderStatusPending)
	item := repo.addItem(order, "SKU-1", 10, price("4.50"))
	svc, _ := newTestService(t, repo, nil)

	_, err := svc.CreateShipment(context.Background(), CreateShipmentInput{
		OrderID: order.ID,
		Items:   []ShipmentItemInput{{OrderItemID: item.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPartiallyShipped, repo.orders[order.ID].Status)
}

func TestCreateShipmentPriceOverride(t *testing.T) {
	repo := newStubRepo()
	order := repo.addOrder(enums.OrderStatusPending)
	item := repo.addItem(order, "SKU-1", 10, price("4.50"))
	svc, _ := newTestService(t, repo, nil)

	override := price("3.00")
	shipment, err := svc.CreateShipment(context.Background(), CreateShipmentInput{
		OrderID: order.ID,
		Items:   []ShipmentItemInput{{OrderItemID: item.ID, Quantity: 2, PriceOverride: &override}},
	})
	require.NoError(t, err)
	assert.Equal(t, "6", shipment.ShippedSubtotal.String())
	assert.Equal(t, "3", shipment.Items[0].UnitPrice.String())
}

func TestCreateShipmentRejectsOverShipping(t *testing.T) {
	repo := newStubRepo()
	order := repo.addOrder(enums.OrderStatusPending)
	item := repo.addItem(order, "SKU-1", 10, price("4.50"))
	svc, _ := newTestService(t, repo, nil)

	_, err := svc.CreateShipment(context.Background(), CreateShipmentInput{
		OrderID: order.ID,
		Items:   []ShipmentItemInput{{OrderItemID: item.ID, Quantity: 6}},
	})
	require.NoError(t, err)

	_, err = svc.CreateShipment(context.Background(), CreateShipmentInput{
		OrderID: order.ID,
		Items:   []ShipmentItemInput{{OrderItemID: item.ID, Quantity: 5}},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCreateShipmentRejectsForeignItem(t *testing.T) {
	repo := newStubRepo()
	order := repo.addOrder(enums.OrderStatusPending)
	other := repo.addOrder(enums.OrderStatusPending)
	foreign := repo.addItem(other, "SKU-X", 5, price("1.00"))
	svc, _ := newTestService(t, repo, nil)

	_, err := svc.CreateShipment(context.Background(), CreateShipmentInput{
		OrderID: order.ID,
		Items:   []ShipmentItemInput{{OrderItemID: foreign.ID, Quantity: 1}},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCreateShipmentRejectsTerminalOrder(t *testing.T) {
	repo := newStubRepo()
	order := repo.addOrder(enums.OrderStatusCancelled)
	item := repo.addItem(order, "SKU-1", 10, price("4.50"))
	svc, _ := newTestService(t, repo, nil)

	_, err := svc.CreateShipment(context.Background(), CreateShipmentInput{
		OrderID: order.ID,
		Items:   []ShipmentItemInput{{OrderItemID: item.ID, Quantity: 1}},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestCreateShipmentSyncFailureDoesNotFail(t *testing.T) {
	repo := newStubRepo()
	order := repo.addOrder(enums.OrderStatusPending)
	item := repo.addItem(order, "SKU-1", 10, price("4.50"))
	syncer := &stubSyncer{err: errors.New("shopify down")}
	svc, _ := newTestService(t, repo, syncer)

	shipment, err := svc.CreateShipment(context.Background(), CreateShipmentInput{
		OrderID: order.ID,
		Items:   []ShipmentItemInput{{OrderItemID: item.ID, Quantity: 10}},
	})
	require.NoError(t, err)
	require.NotNil(t, shipment)

	// The sync was attempted and the shipment stood regardless.
	require.Len(t, syncer.calls, 1)
	assert.Equal(t, order.OrderNumber, syncer.calls[0].OrderNumber)
	assert.Equal(t, enums.OrderStatusShipped, repo.orders[order.ID].Status)
}

func TestVoidShipmentRewindsOrder(t *testing.T) {
	repo := newStubRepo()
	order := repo.addOrder(enums.OrderStatusPending)
	item := repo.addItem(order, "SKU-1", 10, price("4.50"))
	svc, recorder := newTestService(t, repo, nil)

	shipment, err := svc.CreateShipment(context.Background(), CreateShipmentInput{
		OrderID: order.ID,
		Items:   []ShipmentItemInput{{OrderItemID: item.ID, Quantity: 10}},
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusShipped, repo.orders[order.ID].Status)

	voided, err := svc.VoidShipment(context.Background(), VoidShipmentInput{
		ShipmentID: shipment.ID,
		Reason:     "picked wrong items",
		Actor:      "ops@example.com",
	})
	require.NoError(t, err)

	assert.True(t, voided.Voided())
	assert.Equal(t, enums.OrderStatusPending, repo.orders[order.ID].Status)
	require.Len(t, recorder.entries, 2)
	assert.Equal(t, enums.ActivityShipmentVoided, recorder.entries[1].Action)
}

func TestCreateShipmentDerivesItemStatus(t *testing.T) {
	repo := newStubRepo()
	order := repo.addOrder(enums.OrderStatusPending)
	item := repo.addItem(order, "SKU-1", 10, price("4.50"))
	repo.items[item.ID].CancelledQuantity = 6
	svc, _ := newTestService(t, repo, nil)

	// Shipping the last 4 units covers everything that was not cancelled.
	_, err := svc.CreateShipment(context.Background(), CreateShipmentInput{
		OrderID: order.ID,
		Items:   []ShipmentItemInput{{OrderItemID: item.ID, Quantity: 4}},
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderItemStatusCancelled, repo.items[item.ID].Status)
	assert.Equal(t, enums.OrderStatusShipped, repo.orders[order.ID].Status)
}

func TestVoidShipmentRevertsItemStatus(t *testing.T) {
	repo := newStubRepo()
	order := repo.addOrder(enums.OrderStatusPending)
	item := repo.addItem(order, "SKU-1", 10, price("4.50"))
	repo.items[item.ID].CancelledQuantity = 6
	svc, _ := newTestService(t, repo, nil)

	shipment, err := svc.CreateShipment(context.Background(), CreateShipmentInput{
		OrderID: order.ID,
		Items:   []ShipmentItemInput{{OrderItemID: item.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderItemStatusCancelled, repo.items[item.ID].Status)

	// Without the shipment the cancellations no longer cover the item.
	_, err = svc.VoidShipment(context.Background(), VoidShipmentInput{
		ShipmentID: shipment.ID,
		Reason:     "picked wrong items",
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderItemStatusOpen, repo.items[item.ID].Status)
	assert.Equal(t, enums.OrderStatusPending, repo.orders[order.ID].Status)
}

func TestVoidShipmentTwiceRejected(t *testing.T) {
	repo := newStubRepo()
	order := repo.addOrder(enums.OrderStatusPending)
	item := repo.addItem(order, "SKU-1", 10, price("4.50"))
	svc, _ := newTestService(t, repo, nil)

	shipment, err := svc.CreateShipment(context.Background(), CreateShipmentInput{
		OrderID: order.ID,
		Items:   []ShipmentItemInput{{OrderItemID: item.ID, Quantity: 4}},
	})
	require.NoError(t, err)

	_, err = svc.VoidShipment(context.Background(), VoidShipmentInput{ShipmentID: shipment.ID, Reason: "dup"})
	require.NoError(t, err)

	_, err = svc.VoidShipment(context.Background(), VoidShipmentInput{ShipmentID: shipment.ID, Reason: "dup"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestVoidShipmentInvoicedOrderRejected(t *testing.T) {
	repo := newStubRepo()
	order := repo.addOrder(enums.OrderStatusPending)
	item := repo.addItem(order, "SKU-1", 10, price("4.50"))
	svc, _ := newTestService(t, repo, nil)

	shipment, err := svc.CreateShipment(context.Background(), CreateShipmentInput{
		OrderID: order.ID,
		Items:   []ShipmentItemInput{{OrderItemID: item.ID, Quantity: 10}},
	})
	require.NoError(t, err)

	repo.orders[order.ID].Status = enums.OrderStatusInvoiced

	_, err = svc.VoidShipment(context.Background(), VoidShipmentInput{ShipmentID: shipment.ID, Reason: "late"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestUpdateShipmentCostMovesTotalOnly(t *testing.T) {
	repo := newStubRepo()
	order := repo.addOrder(enums.OrderStatusPending)
	item := repo.addItem(order, "SKU-1", 10, price("4.50"))
	svc, _ := newTestService(t, repo, nil)

	shipment, err := svc.CreateShipment(context.Background(), CreateShipmentInput{
		OrderID:      order.ID,
		Items:        []ShipmentItemInput{{OrderItemID: item.ID, Quantity: 10}},
		ShippingCost: price("8.00"),
	})
	require.NoError(t, err)

	newCost := price("12.50")
	updated, err := svc.UpdateShipment(context.Background(), UpdateShipmentInput{
		ShipmentID:   shipment.ID,
		ShippingCost: &newCost,
	})
	require.NoError(t, err)

	assert.Equal(t, "45", updated.ShippedSubtotal.String())
	assert.Equal(t, "57.5", updated.ShippedTotal.String())
}

func TestUpdateVoidedShipmentRejected(t *testing.T) {
	repo := newStubRepo()
	order := repo.addOrder(enums.OrderStatusPending)
	item := repo.addItem(order, "SKU-1", 10, price("4.50"))
	svc, _ := newTestService(t, repo, nil)

	shipment, err := svc.CreateShipment(context.Background(), CreateShipmentInput{
		OrderID: order.ID,
		Items:   []ShipmentItemInput{{OrderItemID: item.ID, Quantity: 4}},
	})
	require.NoError(t, err)

	_, err = svc.VoidShipment(context.Background(), VoidShipmentInput{ShipmentID: shipment.ID, Reason: "oops"})
	require.NoError(t, err)

	notes := "too late"
	_, err = svc.UpdateShipment(context.Background(), UpdateShipmentInput{ShipmentID: shipment.ID, Notes: &notes})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestCreateShipmentRecomputesPlannedShipment(t *testing.T) {
	repo := newStubRepo()
	order := repo.addOrder(enums.OrderStatusPending)
	item := repo.addItem(order, "SKU-1", 10, price("4.50"))
	planned := repo.addPlanned(order, item)
	svc, _ := newTestService(t, repo, nil)

	_, err := svc.CreateShipment(context.Background(), CreateShipmentInput{
		OrderID:           order.ID,
		Items:             []ShipmentItemInput{{OrderItemID: item.ID, Quantity: 4}},
		PlannedShipmentID: &planned.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PlannedShipmentStatusPartiallyFulfilled, repo.planned[planned.ID].Status)

	_, err = svc.CreateShipment(context.Background(), CreateShipmentInput{
		OrderID:           order.ID,
		Items:             []ShipmentItemInput{{OrderItemID: item.ID, Quantity: 6}},
		PlannedShipmentID: &planned.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PlannedShipmentStatusFulfilled, repo.planned[planned.ID].Status)
}

func TestVoidShipmentRecomputesPlannedShipment(t *testing.T) {
	repo := newStubRepo()
	order := repo.addOrder(enums.OrderStatusPending)
	item := repo.addItem(order, "SKU-1", 10, price("4.50"))
	planned := repo.addPlanned(order, item)
	svc, _ := newTestService(t, repo, nil)

	shipment, err := svc.CreateShipment(context.Background(), CreateShipmentInput{
		OrderID:           order.ID,
		Items:             []ShipmentItemInput{{OrderItemID: item.ID, Quantity: 10}},
		PlannedShipmentID: &planned.ID,
	})
	require.NoError(t, err)
	require.Equal(t, enums.PlannedShipmentStatusFulfilled, repo.planned[planned.ID].Status)

	_, err = svc.VoidShipment(context.Background(), VoidShipmentInput{ShipmentID: shipment.ID, Reason: "wrong wave"})
	require.NoError(t, err)
	assert.Equal(t, enums.PlannedShipmentStatusPlanned, repo.planned[planned.ID].Status)
}
