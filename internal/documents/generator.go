package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderdesk/orderdesk-backend/pkg/db/models"
	"github.com/orderdesk/orderdesk-backend/pkg/logger"
)

// ObjectStore is the storage surface packing slips are written to.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
}

// Generator renders packing-slip artifacts for committed shipments and stores
// them in object storage under a predictable per-shipment key.
type Generator struct {
	store  ObjectStore
	logger *logger.Logger
}

// NewGenerator builds the packing slip generator.
func NewGenerator(store ObjectStore, logg *logger.Logger) (*Generator, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	return &Generator{store: store, logger: logg}, nil
}

type packingSlip struct {
	OrderNumber  int64             `json:"order_number"`
	CustomerName string            `json:"customer_name"`
	ShipmentID   uuid.UUID         `json:"shipment_id"`
	ShipDate     *time.Time        `json:"ship_date,omitempty"`
	Lines        []packingSlipLine `json:"lines"`
	ShippedTotal decimal.Decimal   `json:"shipped_total"`
	GeneratedAt  time.Time         `json:"generated_at"`
}

type packingSlipLine struct {
	OrderItemID uuid.UUID       `json:"order_item_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Key returns the storage key for a shipment's packing slip.
func Key(shipmentID uuid.UUID) string {
	return fmt.Sprintf("documents/packing-slips/%s.json", shipmentID)
}

// GeneratePackingSlip renders and stores the packing slip for a shipment.
func (g *Generator) GeneratePackingSlip(ctx context.Context, order *models.Order, shipment *models.Shipment) error {
	slip := packingSlip{
		OrderNumber:  order.OrderNumber,
		CustomerName: order.CustomerName,
		ShipmentID:   shipment.ID,
		ShipDate:     shipment.ShipDate,
		ShippedTotal: shipment.ShippedTotal,
		GeneratedAt:  time.Now().UTC(),
	}
	for _, item := range shipment.Items {
		slip.Lines = append(slip.Lines, packingSlipLine{
			OrderItemID: item.OrderItemID,
			Quantity:    item.QuantityShipped,
			UnitPrice:   item.UnitPrice,
		})
	}

	body, err := json.MarshalIndent(slip, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal packing slip: %w", err)
	}
	if err := g.store.Put(ctx, Key(shipment.ID), "application/json", body); err != nil {
		return fmt.Errorf("store packing slip: %w", err)
	}
	if g.logger != nil {
		g.logger.Info(g.logger.WithShipmentID(ctx, shipment.ID.String()), "packing slip generated")
	}
	return nil
}
