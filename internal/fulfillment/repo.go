package fulfillment

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	"github.com/orderdesk/orderdesk-backend/pkg/enums"
)

// Repository is the ledger access surface for shipment operations. Every
// shipped-quantity aggregate it returns already excludes voided shipments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	FindShipment(ctx context.Context, shipmentID uuid.UUID) (*models.Shipment, error)
	FindShipmentsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Shipment, error)
	FindPlannedShipment(ctx context.Context, id uuid.UUID) (*models.PlannedShipment, error)
	FindPlannedShipmentItems(ctx context.Context, id uuid.UUID) ([]models.OrderItem, error)

	CreateShipment(ctx context.Context, shipment *models.Shipment) error
	UpdateShipment(ctx context.Context, shipmentID uuid.UUID, updates map[string]any) error
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
	UpdateOrderItemStatus(ctx context.Context, itemID uuid.UUID, status enums.OrderItemStatus) error
	UpdatePlannedShipmentStatus(ctx context.Context, id uuid.UUID, status enums.PlannedShipmentStatus) error

	ShippedQuantities(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]int, error)
	ShippedQuantitiesForItems(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]int, error)
	CountActiveShipments(ctx context.Context, orderID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a fulfillment repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindShipment(ctx context.Context, shipmentID uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Tracking").
		Where("id = ?", shipmentID).
		First(&shipment).Error
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *repository) FindShipmentsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Shipment, error) {
	var shipments []models.Shipment
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Tracking").
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&shipments).Error
	if err != nil {
		return nil, err
	}
	return shipments, nil
}

func (r *repository) FindPlannedShipment(ctx context.Context, id uuid.UUID) (*models.PlannedShipment, error) {
	var planned models.PlannedShipment
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&planned).Error
	if err != nil {
		return nil, err
	}
	return &planned, nil
}

func (r *repository) FindPlannedShipmentItems(ctx context.Context, id uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("planned_shipment_id = ?", id).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CreateShipment(ctx context.Context, shipment *models.Shipment) error {
	return r.db.WithContext(ctx).Create(shipment).Error
}

func (r *repository) UpdateShipment(ctx context.Context, shipmentID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Shipment{}).
		Where("id = ?", shipmentID).
		Updates(updates).Error
}

func (r *repository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", status).Error
}

func (r *repository) UpdateOrderItemStatus(ctx context.Context, itemID uuid.UUID, status enums.OrderItemStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Update("status", status).Error
}

func (r *repository) UpdatePlannedShipmentStatus(ctx context.Context, id uuid.UUID, status enums.PlannedShipmentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.PlannedShipment{}).
		Where("id = ?", id).
		Update("status", status).Error
}

type shippedRow struct {
	OrderItemID uuid.UUID `gorm:"column:order_item_id"`
	Total       int       `gorm:"column:total"`
}

func (r *repository) ShippedQuantities(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]int, error) {
	var rows []shippedRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT si.order_item_id AS order_item_id, COALESCE(SUM(si.quantity_shipped), 0) AS total
		FROM shipment_items si
		JOIN shipments s ON s.id = si.shipment_id
		WHERE s.order_id = ? AND s.voided_at IS NULL
		GROUP BY si.order_item_id
	`, orderID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return shippedRowsToMap(rows), nil
}

func (r *repository) ShippedQuantitiesForItems(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	if len(itemIDs) == 0 {
		return map[uuid.UUID]int{}, nil
	}
	var rows []shippedRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT si.order_item_id AS order_item_id, COALESCE(SUM(si.quantity_shipped), 0) AS total
		FROM shipment_items si
		JOIN shipments s ON s.id = si.shipment_id
		WHERE si.order_item_id IN ? AND s.voided_at IS NULL
		GROUP BY si.order_item_id
	`, itemIDs).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return shippedRowsToMap(rows), nil
}

func (r *repository) CountActiveShipments(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Shipment{}).
		Where("order_id = ? AND voided_at IS NULL", orderID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func shippedRowsToMap(rows []shippedRow) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		out[row.OrderItemID] = row.Total
	}
	return out
}
