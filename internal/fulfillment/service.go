package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/internal/activity"
	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	"github.com/orderdesk/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
	"github.com/orderdesk/orderdesk-backend/pkg/logger"
	"github.com/orderdesk/orderdesk-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// FulfillmentSyncer pushes a committed shipment to the external platform.
// Failures never unwind the shipment.
type FulfillmentSyncer interface {
	CreateFulfillment(ctx context.Context, req FulfillmentSyncRequest) error
}

// DocumentGenerator produces packing-slip artifacts for a committed shipment.
type DocumentGenerator interface {
	GeneratePackingSlip(ctx context.Context, order *models.Order, shipment *models.Shipment) error
}

// Notifier dispatches the shipment notification email.
type Notifier interface {
	SendShipmentNotice(ctx context.Context, notice ShipmentNotice) error
}

// ActivityRecorder writes the synchronous audit entry for a mutation.
type ActivityRecorder interface {
	Record(ctx context.Context, entry activity.Entry) error
}

// FulfillmentSyncRequest is the structured call to the external platform.
type FulfillmentSyncRequest struct {
	OrderNumber    int64
	ShipmentID     uuid.UUID
	Carrier        string
	TrackingNumber string
	NotifyCustomer bool
}

// ShipmentNotice is the structured payload handed to the email dispatcher.
type ShipmentNotice struct {
	OrderNumber    int64
	CustomerName   string
	CustomerEmail  string
	Currency       enums.Currency
	ShipmentID     uuid.UUID
	ShippedTotal   decimal.Decimal
	Carrier        string
	TrackingNumber string
	Lines          []ShipmentNoticeLine
}

// ShipmentNoticeLine is one shipped line in the notification payload.
type ShipmentNoticeLine struct {
	SKU       string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Service defines the shipment ledger operations.
type Service interface {
	CreateShipment(ctx context.Context, input CreateShipmentInput) (*models.Shipment, error)
	VoidShipment(ctx context.Context, input VoidShipmentInput) (*models.Shipment, error)
	UpdateShipment(ctx context.Context, input UpdateShipmentInput) (*models.Shipment, error)
	GetShipment(ctx context.Context, shipmentID uuid.UUID) (*models.Shipment, error)
	ListShipments(ctx context.Context, orderID uuid.UUID) ([]models.Shipment, error)
	RecomputePlannedShipment(ctx context.Context, tx *gorm.DB, plannedShipmentID uuid.UUID) error
}

// TrackingInput attaches one carrier tracking record to a new shipment.
type TrackingInput struct {
	Carrier        string
	TrackingNumber string
}

// ShipmentItemInput is one (order item, quantity) pair of a new shipment.
type ShipmentItemInput struct {
	OrderItemID   uuid.UUID
	Quantity      int
	PriceOverride *decimal.Decimal
}

// CreateShipmentInput carries everything needed to record a fulfillment event.
type CreateShipmentInput struct {
	OrderID           uuid.UUID
	Items             []ShipmentItemInput
	ShippingCost      decimal.Decimal
	ShipDate          *time.Time
	Tracking          *TrackingInput
	PlannedShipmentID *uuid.UUID
	Notes             *string
	NotifyCustomer    bool
	AttachDocuments   bool
	Actor             string
}

// VoidShipmentInput soft-deletes a shipment while keeping it auditable.
type VoidShipmentInput struct {
	ShipmentID uuid.UUID
	Reason     string
	Notes      *string
	Actor      string
}

// UpdateShipmentInput corrects mutable shipment fields. The subtotal is fixed
// at creation; a cost change only moves the total.
type UpdateShipmentInput struct {
	ShipmentID   uuid.UUID
	ShippingCost *decimal.Decimal
	ShipDate     *time.Time
	Notes        *string
	Actor        string
}

type service struct {
	repo     Repository
	tx       txRunner
	activity ActivityRecorder
	syncer   FulfillmentSyncer
	docs     DocumentGenerator
	notifier Notifier
	metrics  *metrics.FulfillmentMetrics
	logg     *logger.Logger
}

// ServiceParams bundles the service dependencies. Syncer, docs and notifier
// are optional; when nil the corresponding post-commit effect is skipped.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Activity ActivityRecorder
	Syncer   FulfillmentSyncer
	Docs     DocumentGenerator
	Notifier Notifier
	Metrics  *metrics.FulfillmentMetrics
	Logger   *logger.Logger
}

// NewService builds the fulfillment service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("fulfillment repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Activity == nil {
		return nil, fmt.Errorf("activity recorder required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		activity: params.Activity,
		syncer:   params.Syncer,
		docs:     params.Docs,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func (s *service) CreateShipment(ctx context.Context, input CreateShipmentInput) (*models.Shipment, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment requires at least one item")
	}
	for _, item := range input.Items {
		if item.OrderItemID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "order item id required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipped quantity must be positive").
				WithDetails(map[string]any{"order_item_id": item.OrderItemID, "quantity": item.Quantity})
		}
	}
	if input.ShippingCost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping cost cannot be negative")
	}

	var (
		shipment *models.Shipment
		order    *models.Order
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		order, err = repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order is %s and can no longer be modified", order.Status))
		}

		items, err := repo.FindOrderItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		itemsByID := make(map[uuid.UUID]models.OrderItem, len(items))
		for _, item := range items {
			itemsByID[item.ID] = item
		}

		shipped, err := repo.ShippedQuantities(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate shipped quantities")
		}

		subtotal := decimal.Zero
		shipmentItems := make([]models.ShipmentItem, 0, len(input.Items))
		for _, in := range input.Items {
			item, ok := itemsByID[in.OrderItemID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "order item does not belong to order").
					WithDetails(map[string]any{"order_item_id": in.OrderItemID})
			}
			remaining := item.OrderedQuantity - shipped[item.ID] - item.CancelledQuantity
			if in.Quantity > remaining {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("cannot ship %d units of %s, only %d remaining", in.Quantity, item.SKU, remaining))
			}

			price := item.UnitPrice
			if in.PriceOverride != nil {
				price = *in.PriceOverride
			}
			subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(in.Quantity))))
			shipmentItems = append(shipmentItems, models.ShipmentItem{
				OrderItemID:     in.OrderItemID,
				QuantityShipped: in.Quantity,
				UnitPrice:       price,
			})
		}

		if input.PlannedShipmentID != nil {
			planned, err := repo.FindPlannedShipment(ctx, *input.PlannedShipmentID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeValidation, "planned shipment not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load planned shipment")
			}
			if planned.OrderID != order.ID {
				return pkgerrors.New(pkgerrors.CodeValidation, "planned shipment does not belong to order")
			}
		}

		shipment = &models.Shipment{
			OrderID:           order.ID,
			PlannedShipmentID: input.PlannedShipmentID,
			ShippingCost:      input.ShippingCost,
			ShippedSubtotal:   subtotal,
			ShippedTotal:      subtotal.Add(input.ShippingCost),
			ShipDate:          input.ShipDate,
			Notes:             input.Notes,
			Items:             shipmentItems,
		}
		if input.Tracking != nil {
			shipment.Tracking = []models.ShipmentTracking{{
				Carrier:        input.Tracking.Carrier,
				TrackingNumber: input.Tracking.TrackingNumber,
			}}
		}
		if err := repo.CreateShipment(ctx, shipment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shipment")
		}

		// Fold the shipment just written into the aggregates before deriving.
		for _, si := range shipmentItems {
			shipped[si.OrderItemID] += si.QuantityShipped
		}
		quantities := make([]ItemQuantities, 0, len(items))
		for _, item := range items {
			q := ItemQuantities{
				Ordered:   item.OrderedQuantity,
				Shipped:   shipped[item.ID],
				Cancelled: item.CancelledQuantity,
			}
			quantities = append(quantities, q)
			if status := ItemStatus(q); status != item.Status {
				if err := repo.UpdateOrderItemStatus(ctx, item.ID, status); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order item status")
				}
			}
		}
		if next, changed := OrderStatusOnShipment(order.Status, quantities); changed {
			if err := repo.UpdateOrderStatus(ctx, order.ID, next); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
			order.Status = next
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncShipmentsCreated()
	s.recordActivity(ctx, activity.Entry{
		OrderID: order.ID,
		Actor:   input.Actor,
		Action:  enums.ActivityShipmentCreated,
		Detail: map[string]any{
			"shipment_id":   shipment.ID,
			"shipped_total": shipment.ShippedTotal,
			"item_count":    len(shipment.Items),
		},
	})
	s.runPostCommitEffects(ctx, order, shipment, input)

	return shipment, nil
}

// runPostCommitEffects performs the best-effort side effects after the
// shipment is durable. Each one is recovered individually; the shipment
// record is the source of truth and stands regardless.
func (s *service) runPostCommitEffects(ctx context.Context, order *models.Order, shipment *models.Shipment, input CreateShipmentInput) {
	var auxErr error

	if shipment.PlannedShipmentID != nil {
		if err := s.recomputePlanned(ctx, *shipment.PlannedShipmentID); err != nil {
			auxErr = multierr.Append(auxErr, fmt.Errorf("planned shipment recompute: %w", err))
		}
	}

	if s.syncer != nil {
		req := FulfillmentSyncRequest{
			OrderNumber:    order.OrderNumber,
			ShipmentID:     shipment.ID,
			NotifyCustomer: input.NotifyCustomer,
		}
		if input.Tracking != nil {
			req.Carrier = input.Tracking.Carrier
			req.TrackingNumber = input.Tracking.TrackingNumber
		}
		if err := s.syncer.CreateFulfillment(ctx, req); err != nil {
			auxErr = multierr.Append(auxErr, fmt.Errorf("fulfillment sync: %w", err))
		}
	}

	if s.docs != nil && input.AttachDocuments {
		if err := s.docs.GeneratePackingSlip(ctx, order, shipment); err != nil {
			auxErr = multierr.Append(auxErr, fmt.Errorf("packing slip: %w", err))
		}
	}

	if s.notifier != nil && input.NotifyCustomer {
		if err := s.notifier.SendShipmentNotice(ctx, s.buildNotice(ctx, order, shipment, input)); err != nil {
			auxErr = multierr.Append(auxErr, fmt.Errorf("shipment notice: %w", err))
		}
	}

	if auxErr != nil && s.logg != nil {
		ctx = s.logg.WithShipmentID(ctx, shipment.ID.String())
		s.logg.Error(ctx, "shipment.post_commit_effects", auxErr)
	}
}

func (s *service) buildNotice(ctx context.Context, order *models.Order, shipment *models.Shipment, input CreateShipmentInput) ShipmentNotice {
	notice := ShipmentNotice{
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		Currency:      order.Currency,
		ShipmentID:    shipment.ID,
		ShippedTotal:  shipment.ShippedTotal,
	}
	if input.Tracking != nil {
		notice.Carrier = input.Tracking.Carrier
		notice.TrackingNumber = input.Tracking.TrackingNumber
	}

	items, err := s.repo.FindOrderItems(ctx, order.ID)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "shipment.notice_lines_unavailable")
		}
		return notice
	}
	itemsByID := make(map[uuid.UUID]models.OrderItem, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}
	for _, si := range shipment.Items {
		item := itemsByID[si.OrderItemID]
		notice.Lines = append(notice.Lines, ShipmentNoticeLine{
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  si.QuantityShipped,
			UnitPrice: si.UnitPrice,
		})
	}
	return notice
}

func (s *service) VoidShipment(ctx context.Context, input VoidShipmentInput) (*models.Shipment, error) {
	if input.ShipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "void reason required")
	}

	var shipment *models.Shipment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		shipment, err = repo.FindShipment(ctx, input.ShipmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment")
		}
		if shipment.Voided() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shipment already voided")
		}

		order, err := repo.FindOrder(ctx, shipment.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == enums.OrderStatusInvoiced {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot void a shipment on an invoiced order")
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"voided_at":   now,
			"voided_by":   input.Actor,
			"void_reason": input.Reason,
		}
		if input.Notes != nil {
			updates["void_notes"] = *input.Notes
		}
		if err := repo.UpdateShipment(ctx, shipment.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "void shipment")
		}
		shipment.VoidedAt = &now
		shipment.VoidedBy = &input.Actor
		shipment.VoidReason = &input.Reason
		shipment.VoidNotes = input.Notes

		items, err := repo.FindOrderItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		shipped, err := repo.ShippedQuantities(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate shipped quantities")
		}
		active, err := repo.CountActiveShipments(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count shipments")
		}

		quantities := make([]ItemQuantities, 0, len(items))
		for _, item := range items {
			q := ItemQuantities{
				Ordered:   item.OrderedQuantity,
				Shipped:   shipped[item.ID],
				Cancelled: item.CancelledQuantity,
			}
			quantities = append(quantities, q)
			if status := ItemStatus(q); status != item.Status {
				if err := repo.UpdateOrderItemStatus(ctx, item.ID, status); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order item status")
				}
			}
		}
		if next, changed := OrderStatusAfterVoid(order.Status, quantities, active > 0); changed {
			if err := repo.UpdateOrderStatus(ctx, order.ID, next); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
		}

		if shipment.PlannedShipmentID != nil {
			if err := s.RecomputePlannedShipment(ctx, tx, *shipment.PlannedShipmentID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncShipmentsVoided()
	s.recordActivity(ctx, activity.Entry{
		OrderID: shipment.OrderID,
		Actor:   input.Actor,
		Action:  enums.ActivityShipmentVoided,
		Detail: map[string]any{
			"shipment_id": shipment.ID,
			"reason":      input.Reason,
		},
	})

	return shipment, nil
}

func (s *service) UpdateShipment(ctx context.Context, input UpdateShipmentInput) (*models.Shipment, error) {
	if input.ShipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id required")
	}
	if input.ShippingCost != nil && input.ShippingCost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping cost cannot be negative")
	}
	if input.ShippingCost == nil && input.ShipDate == nil && input.Notes == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}

	var shipment *models.Shipment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		shipment, err = repo.FindShipment(ctx, input.ShipmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment")
		}
		if shipment.Voided() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot update a voided shipment")
		}

		updates := map[string]any{}
		if input.ShippingCost != nil {
			// Subtotal is fixed at creation; only cost and total move.
			total := shipment.ShippedSubtotal.Add(*input.ShippingCost)
			updates["shipping_cost"] = *input.ShippingCost
			updates["shipped_total"] = total
			shipment.ShippingCost = *input.ShippingCost
			shipment.ShippedTotal = total
		}
		if input.ShipDate != nil {
			updates["ship_date"] = *input.ShipDate
			shipment.ShipDate = input.ShipDate
		}
		if input.Notes != nil {
			updates["notes"] = *input.Notes
			shipment.Notes = input.Notes
		}
		if err := repo.UpdateShipment(ctx, shipment.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shipment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, activity.Entry{
		OrderID: shipment.OrderID,
		Actor:   input.Actor,
		Action:  enums.ActivityShipmentUpdated,
		Detail:  map[string]any{"shipment_id": shipment.ID},
	})

	return shipment, nil
}

func (s *service) GetShipment(ctx context.Context, shipmentID uuid.UUID) (*models.Shipment, error) {
	shipment, err := s.repo.FindShipment(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment")
	}
	return shipment, nil
}

func (s *service) ListShipments(ctx context.Context, orderID uuid.UUID) ([]models.Shipment, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	shipments, err := s.repo.FindShipmentsByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shipments")
	}
	return shipments, nil
}

// RecomputePlannedShipment re-derives a planned shipment's status from its
// member items. No-op when the grouping has no members. Safe to call inside
// or outside a surrounding transaction.
func (s *service) RecomputePlannedShipment(ctx context.Context, tx *gorm.DB, plannedShipmentID uuid.UUID) error {
	repo := s.repo.WithTx(tx)

	planned, err := repo.FindPlannedShipment(ctx, plannedShipmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "planned shipment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load planned shipment")
	}

	items, err := repo.FindPlannedShipmentItems(ctx, planned.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load planned shipment items")
	}
	itemIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
	}
	shipped, err := repo.ShippedQuantitiesForItems(ctx, itemIDs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate shipped quantities")
	}

	quantities := make([]ItemQuantities, 0, len(items))
	for _, item := range items {
		quantities = append(quantities, ItemQuantities{
			Ordered:   item.OrderedQuantity,
			Shipped:   shipped[item.ID],
			Cancelled: item.CancelledQuantity,
		})
	}
	status, ok := PlannedShipmentStatus(quantities)
	if !ok || status == planned.Status {
		return nil
	}
	if err := repo.UpdatePlannedShipmentStatus(ctx, planned.ID, status); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update planned shipment status")
	}
	return nil
}

func (s *service) recomputePlanned(ctx context.Context, plannedShipmentID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.RecomputePlannedShipment(ctx, tx, plannedShipmentID)
	})
}

func (s *service) recordActivity(ctx context.Context, entry activity.Entry) {
	if err := s.activity.Record(ctx, entry); err != nil && s.logg != nil {
		s.logg.Error(ctx, "activity.record_failed", err)
	}
}
