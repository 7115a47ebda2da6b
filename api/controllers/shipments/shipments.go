package shipments

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderdesk/orderdesk-backend/api/responses"
	"github.com/orderdesk/orderdesk-backend/api/validators"
	"github.com/orderdesk/orderdesk-backend/internal/fulfillment"
	"github.com/orderdesk/orderdesk-backend/pkg/logger"
)

type createItemRequest struct {
	OrderItemID   uuid.UUID        `json:"order_item_id" validate:"required"`
	Quantity      int              `json:"quantity" validate:"required,min=1"`
	PriceOverride *decimal.Decimal `json:"price_override,omitempty"`
}

type trackingRequest struct {
	Carrier        string `json:"carrier" validate:"required"`
	TrackingNumber string `json:"tracking_number" validate:"required"`
}

type createRequest struct {
	Items             []createItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingCost      decimal.Decimal     `json:"shipping_cost"`
	ShipDate          *time.Time          `json:"ship_date,omitempty"`
	Tracking          *trackingRequest    `json:"tracking,omitempty"`
	PlannedShipmentID *uuid.UUID          `json:"planned_shipment_id,omitempty"`
	Notes             *string             `json:"notes,omitempty"`
	NotifyCustomer    bool                `json:"notify_customer"`
	AttachDocuments   bool                `json:"attach_documents"`
	Actor             string              `json:"actor"`
}

// Create records a fulfillment event against an order.
func Create(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLUUID(chi.URLParam(r, "orderId"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := fulfillment.CreateShipmentInput{
			OrderID:           orderID,
			ShippingCost:      req.ShippingCost,
			ShipDate:          req.ShipDate,
			PlannedShipmentID: req.PlannedShipmentID,
			Notes:             req.Notes,
			NotifyCustomer:    req.NotifyCustomer,
			AttachDocuments:   req.AttachDocuments,
			Actor:             req.Actor,
		}
		for _, item := range req.Items {
			input.Items = append(input.Items, fulfillment.ShipmentItemInput{
				OrderItemID:   item.OrderItemID,
				Quantity:      item.Quantity,
				PriceOverride: item.PriceOverride,
			})
		}
		if req.Tracking != nil {
			input.Tracking = &fulfillment.TrackingInput{
				Carrier:        req.Tracking.Carrier,
				TrackingNumber: req.Tracking.TrackingNumber,
			}
		}

		shipment, err := svc.CreateShipment(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, shipment)
	}
}

type voidRequest struct {
	Reason string  `json:"reason" validate:"required"`
	Notes  *string `json:"notes,omitempty"`
	Actor  string  `json:"actor"`
}

// Void soft-deletes a shipment and rewinds the derived statuses.
func Void(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shipmentID, err := validators.ParseURLUUID(chi.URLParam(r, "shipmentId"), "shipment id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req voidRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.VoidShipment(r.Context(), fulfillment.VoidShipmentInput{
			ShipmentID: shipmentID,
			Reason:     req.Reason,
			Notes:      req.Notes,
			Actor:      req.Actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

type updateRequest struct {
	ShippingCost *decimal.Decimal `json:"shipping_cost,omitempty"`
	ShipDate     *time.Time       `json:"ship_date,omitempty"`
	Notes        *string          `json:"notes,omitempty"`
	Actor        string           `json:"actor"`
}

// Update corrects mutable shipment fields on a live shipment.
func Update(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shipmentID, err := validators.ParseURLUUID(chi.URLParam(r, "shipmentId"), "shipment id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.UpdateShipment(r.Context(), fulfillment.UpdateShipmentInput{
			ShipmentID:   shipmentID,
			ShippingCost: req.ShippingCost,
			ShipDate:     req.ShipDate,
			Notes:        req.Notes,
			Actor:        req.Actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

// Detail returns one shipment with its items and tracking records.
func Detail(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shipmentID, err := validators.ParseURLUUID(chi.URLParam(r, "shipmentId"), "shipment id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.GetShipment(r.Context(), shipmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

// List returns every shipment of an order, voided ones included, for audit.
func List(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLUUID(chi.URLParam(r, "orderId"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipments, err := svc.ListShipments(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipments)
	}
}
