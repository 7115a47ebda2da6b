package orderitems

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/internal/activity"
	"github.com/orderdesk/orderdesk-backend/internal/fulfillment"
	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	"github.com/orderdesk/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
	"github.com/orderdesk/orderdesk-backend/pkg/logger"
	"github.com/orderdesk/orderdesk-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PlannedRecomputer re-derives a planned shipment's status inside the caller's
// transaction. Implemented by the fulfillment service.
type PlannedRecomputer interface {
	RecomputePlannedShipment(ctx context.Context, tx *gorm.DB, plannedShipmentID uuid.UUID) error
}

// ActivityRecorder writes the synchronous audit entry for a mutation.
type ActivityRecorder interface {
	Record(ctx context.Context, entry activity.Entry) error
}

// Service defines the order item ledger operations.
type Service interface {
	AddItem(ctx context.Context, input AddItemInput) (*models.OrderItem, error)
	UpdateItem(ctx context.Context, input UpdateItemInput) (*models.OrderItem, error)
	RemoveItem(ctx context.Context, input RemoveItemInput) error
	CancelItem(ctx context.Context, input CancelItemInput) (*models.OrderItem, error)
	BulkCancel(ctx context.Context, input BulkCancelInput) (int, error)
}

// AddItemInput creates a manual line with no variant linkage.
type AddItemInput struct {
	OrderID   uuid.UUID
	SKU       string
	Name      string
	Size      *string
	Quantity  int
	UnitPrice decimal.Decimal
	Notes     *string
	Actor     string
}

// UpdateItemInput mutates quantity, price or notes in place.
type UpdateItemInput struct {
	ItemID    uuid.UUID
	Quantity  *int
	UnitPrice *decimal.Decimal
	Notes     *string
	Actor     string
}

// RemoveItemInput deletes an item that has never shipped.
type RemoveItemInput struct {
	ItemID uuid.UUID
	Actor  string
}

// CancelItemInput cancels part of an item's remaining quantity.
type CancelItemInput struct {
	ItemID   uuid.UUID
	Quantity int
	Reason   string
	Actor    string
}

// BulkCancelInput cancels whatever remains on each listed item.
type BulkCancelInput struct {
	ItemIDs []uuid.UUID
	Reason  string
	Actor   string
}

type service struct {
	repo     Repository
	tx       txRunner
	planned  PlannedRecomputer
	activity ActivityRecorder
	metrics  *metrics.FulfillmentMetrics
	logg     *logger.Logger
}

// ServiceParams bundles the service dependencies.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Planned  PlannedRecomputer
	Activity ActivityRecorder
	Metrics  *metrics.FulfillmentMetrics
	Logger   *logger.Logger
}

// NewService builds the order items service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("order items repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Planned == nil {
		return nil, fmt.Errorf("planned shipment recomputer required")
	}
	if params.Activity == nil {
		return nil, fmt.Errorf("activity recorder required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		planned:  params.Planned,
		activity: params.Activity,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func (s *service) AddItem(ctx context.Context, input AddItemInput) (*models.OrderItem, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.SKU == "" || input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku and name required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	var item *models.OrderItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadMutableOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}

		item = &models.OrderItem{
			OrderID:         order.ID,
			SKU:             input.SKU,
			Name:            input.Name,
			Size:            input.Size,
			OrderedQuantity: input.Quantity,
			UnitPrice:       input.UnitPrice,
			Status:          enums.OrderItemStatusOpen,
			Notes:           input.Notes,
		}
		if err := repo.CreateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order item")
		}
		return s.recomputeOrderAmount(ctx, repo, order.ID)
	})
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, activity.Entry{
		OrderID: item.OrderID,
		Actor:   input.Actor,
		Action:  enums.ActivityItemAdded,
		Detail:  map[string]any{"item_id": item.ID, "sku": item.SKU, "quantity": item.OrderedQuantity},
	})
	return item, nil
}

func (s *service) UpdateItem(ctx context.Context, input UpdateItemInput) (*models.OrderItem, error) {
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.Quantity == nil && input.UnitPrice == nil && input.Notes == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	if input.Quantity != nil && *input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.UnitPrice != nil && input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	var item *models.OrderItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		item, err = repo.FindItem(ctx, input.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
		}
		if _, err := s.loadMutableOrder(ctx, repo, item.OrderID); err != nil {
			return err
		}

		updates := map[string]any{}
		if input.Quantity != nil {
			shipped, err := repo.ShippedQuantitiesForItems(ctx, []uuid.UUID{item.ID})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate shipped quantities")
			}
			floor := shipped[item.ID] + item.CancelledQuantity
			if *input.Quantity < floor {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("quantity cannot drop below %d (already shipped or cancelled)", floor))
			}
			updates["ordered_quantity"] = *input.Quantity
			item.OrderedQuantity = *input.Quantity
		}
		if input.UnitPrice != nil {
			updates["unit_price"] = *input.UnitPrice
			item.UnitPrice = *input.UnitPrice
		}
		if input.Notes != nil {
			updates["notes"] = *input.Notes
			item.Notes = input.Notes
		}
		if err := repo.UpdateItem(ctx, item.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order item")
		}
		return s.recomputeOrderAmount(ctx, repo, item.OrderID)
	})
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, activity.Entry{
		OrderID: item.OrderID,
		Actor:   input.Actor,
		Action:  enums.ActivityItemUpdated,
		Detail:  map[string]any{"item_id": item.ID},
	})
	return item, nil
}

func (s *service) RemoveItem(ctx context.Context, input RemoveItemInput) error {
	if input.ItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	var orderID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.FindItem(ctx, input.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
		}
		orderID = item.OrderID
		if _, err := s.loadMutableOrder(ctx, repo, item.OrderID); err != nil {
			return err
		}

		shipped, err := repo.ShippedQuantitiesForItems(ctx, []uuid.UUID{item.ID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate shipped quantities")
		}
		if qty := shipped[item.ID]; qty > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot remove item: %d units already shipped", qty))
		}

		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order item")
		}
		return s.recomputeOrderAmount(ctx, repo, item.OrderID)
	})
	if err != nil {
		return err
	}

	s.recordActivity(ctx, activity.Entry{
		OrderID: orderID,
		Actor:   input.Actor,
		Action:  enums.ActivityItemRemoved,
		Detail:  map[string]any{"item_id": input.ItemID},
	})
	return nil
}

func (s *service) CancelItem(ctx context.Context, input CancelItemInput) (*models.OrderItem, error) {
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancel quantity must be positive")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancel reason required")
	}

	var item *models.OrderItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		item, err = repo.FindItem(ctx, input.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
		}
		order, err := s.loadMutableOrder(ctx, repo, item.OrderID)
		if err != nil {
			return err
		}

		shipped, err := repo.ShippedQuantitiesForItems(ctx, []uuid.UUID{item.ID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate shipped quantities")
		}
		q := fulfillment.ItemQuantities{
			Ordered:   item.OrderedQuantity,
			Shipped:   shipped[item.ID],
			Cancelled: item.CancelledQuantity,
		}
		if input.Quantity > q.MaxCancellable() {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("cannot cancel %d units, only %d cancellable", input.Quantity, q.MaxCancellable()))
		}

		q.Cancelled += input.Quantity
		status := fulfillment.ItemStatus(q)
		updates := map[string]any{
			"cancelled_quantity": q.Cancelled,
			"status":             status,
		}
		if err := repo.UpdateItem(ctx, item.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order item")
		}
		item.CancelledQuantity = q.Cancelled
		item.Status = status

		// Cancelling the unshipped remainder can complete the order.
		if err := s.reconcileOrderStatus(ctx, repo, order); err != nil {
			return err
		}

		if item.PlannedShipmentID != nil {
			return s.planned.RecomputePlannedShipment(ctx, tx, *item.PlannedShipmentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncItemsCancelled()
	s.recordActivity(ctx, activity.Entry{
		OrderID: item.OrderID,
		Actor:   input.Actor,
		Action:  enums.ActivityItemCancelled,
		Detail: map[string]any{
			"item_id":  item.ID,
			"quantity": input.Quantity,
			"reason":   input.Reason,
		},
	})
	return item, nil
}

func (s *service) BulkCancel(ctx context.Context, input BulkCancelInput) (int, error) {
	if len(input.ItemIDs) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "item ids required")
	}
	if input.Reason == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "cancel reason required")
	}

	cancelled := 0
	var touchedOrders []uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		items, err := repo.FindItemsByIDs(ctx, input.ItemIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}

		orderIDs := distinctOrderIDs(items)
		orders, err := repo.FindOrdersByIDs(ctx, orderIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load orders")
		}
		ordersByID := make(map[uuid.UUID]models.Order, len(orders))
		for _, order := range orders {
			ordersByID[order.ID] = order
		}

		itemIDs := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			itemIDs = append(itemIDs, item.ID)
		}
		shipped, err := repo.ShippedQuantitiesForItems(ctx, itemIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate shipped quantities")
		}

		// Recompute each touched grouping once, after all item writes.
		plannedSeen := map[uuid.UUID]struct{}{}
		for _, item := range items {
			order, ok := ordersByID[item.OrderID]
			if !ok || order.Status.IsTerminal() {
				continue
			}
			remaining := item.OrderedQuantity - shipped[item.ID] - item.CancelledQuantity
			if remaining <= 0 {
				continue
			}

			q := fulfillment.ItemQuantities{
				Ordered:   item.OrderedQuantity,
				Shipped:   shipped[item.ID],
				Cancelled: item.CancelledQuantity + remaining,
			}
			updates := map[string]any{
				"cancelled_quantity": q.Cancelled,
				"status":             fulfillment.ItemStatus(q),
			}
			if err := repo.UpdateItem(ctx, item.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order item")
			}
			cancelled++
			touchedOrders = appendDistinct(touchedOrders, item.OrderID)
			if item.PlannedShipmentID != nil {
				plannedSeen[*item.PlannedShipmentID] = struct{}{}
			}
		}

		for _, orderID := range touchedOrders {
			order := ordersByID[orderID]
			if err := s.reconcileOrderStatus(ctx, repo, &order); err != nil {
				return err
			}
		}
		for plannedID := range plannedSeen {
			if err := s.planned.RecomputePlannedShipment(ctx, tx, plannedID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if cancelled > 0 {
		s.metrics.AddItemsCancelled(cancelled)
		for _, orderID := range touchedOrders {
			s.recordActivity(ctx, activity.Entry{
				OrderID: orderID,
				Actor:   input.Actor,
				Action:  enums.ActivityBulkCancelled,
				Detail:  map[string]any{"reason": input.Reason},
			})
		}
	}
	return cancelled, nil
}

func (s *service) loadMutableOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is %s and can no longer be modified", order.Status))
	}
	return order, nil
}

// reconcileOrderStatus re-derives the order status from the full item ledger
// after cancellations changed the effective quantities.
func (s *service) reconcileOrderStatus(ctx context.Context, repo Repository, order *models.Order) error {
	items, err := repo.FindItemsByOrder(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	itemIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
	}
	shipped, err := repo.ShippedQuantitiesForItems(ctx, itemIDs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate shipped quantities")
	}
	active, err := repo.CountActiveShipments(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count shipments")
	}

	quantities := make([]fulfillment.ItemQuantities, 0, len(items))
	for _, item := range items {
		quantities = append(quantities, fulfillment.ItemQuantities{
			Ordered:   item.OrderedQuantity,
			Shipped:   shipped[item.ID],
			Cancelled: item.CancelledQuantity,
		})
	}
	if next, changed := fulfillment.OrderStatusOnCancellation(order.Status, quantities, active > 0); changed {
		if err := repo.UpdateOrderStatus(ctx, order.ID, next); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = next
	}
	return nil
}

func (s *service) recomputeOrderAmount(ctx context.Context, repo Repository, orderID uuid.UUID) error {
	items, err := repo.FindItemsByOrder(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	amount := decimal.Zero
	for _, item := range items {
		amount = amount.Add(item.LineAmount())
	}
	if err := repo.UpdateOrderAmount(ctx, orderID, amount); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order amount")
	}
	return nil
}

func (s *service) recordActivity(ctx context.Context, entry activity.Entry) {
	if err := s.activity.Record(ctx, entry); err != nil && s.logg != nil {
		s.logg.Error(ctx, "activity.record_failed", err)
	}
}

func distinctOrderIDs(items []models.OrderItem) []uuid.UUID {
	var out []uuid.UUID
	for _, item := range items {
		out = appendDistinct(out, item.OrderID)
	}
	return out
}

func appendDistinct(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
