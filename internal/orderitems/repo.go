package orderitems

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	"github.com/orderdesk/orderdesk-backend/pkg/enums"
)

// Repository is the ledger access surface for item-level mutations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrdersByIDs(ctx context.Context, orderIDs []uuid.UUID) ([]models.Order, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error)
	FindItemsByIDs(ctx context.Context, itemIDs []uuid.UUID) ([]models.OrderItem, error)
	FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)

	CreateItem(ctx context.Context, item *models.OrderItem) error
	UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	UpdateOrderAmount(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal) error
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error

	ShippedQuantitiesForItems(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]int, error)
	CountActiveShipments(ctx context.Context, orderID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order items repository bound to the provided DB.
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

func (r *repository) FindOrdersByIDs(ctx context.Context, orderIDs []uuid.UUID) ([]models.Order, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("id IN ?", orderIDs).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	err := r.db.WithContext(ctx).
		Where("id = ?", itemID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindItemsByIDs(ctx context.Context, itemIDs []uuid.UUID) ([]models.OrderItem, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("id IN ?", itemIDs).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
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

func (r *repository) CreateItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Updates(updates).Error
}

func (r *repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", itemID).
		Delete(&models.OrderItem{}).Error
}

func (r *repository) UpdateOrderAmount(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("order_amount", amount).Error
}

func (r *repository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", status).Error
}

type shippedRow struct {
	OrderItemID uuid.UUID `gorm:"column:order_item_id"`
	Total       int       `gorm:"column:total"`
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
	out := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		out[row.OrderItemID] = row.Total
	}
	return out, nil
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
