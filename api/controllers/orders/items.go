package orders

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderdesk/orderdesk-backend/api/responses"
	"github.com/orderdesk/orderdesk-backend/api/validators"
	"github.com/orderdesk/orderdesk-backend/internal/orderitems"
	"github.com/orderdesk/orderdesk-backend/pkg/logger"
)

type addItemRequest struct {
	SKU       string          `json:"sku" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Size      *string         `json:"size,omitempty"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Notes     *string         `json:"notes,omitempty"`
	Actor     string          `json:"actor"`
}

// AddItem appends a manual line to an open order.
func AddItem(svc orderitems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLUUID(chi.URLParam(r, "orderId"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req addItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.AddItem(r.Context(), orderitems.AddItemInput{
			OrderID:   orderID,
			SKU:       req.SKU,
			Name:      req.Name,
			Size:      req.Size,
			Quantity:  req.Quantity,
			UnitPrice: req.UnitPrice,
			Notes:     req.Notes,
			Actor:     req.Actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

type updateItemRequest struct {
	Quantity  *int             `json:"quantity,omitempty" validate:"omitempty,min=1"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Notes     *string          `json:"notes,omitempty"`
	Actor     string           `json:"actor"`
}

// UpdateItem mutates quantity, price or notes on an open order's line.
func UpdateItem(svc orderitems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParseURLUUID(chi.URLParam(r, "itemId"), "item id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateItem(r.Context(), orderitems.UpdateItemInput{
			ItemID:    itemID,
			Quantity:  req.Quantity,
			UnitPrice: req.UnitPrice,
			Notes:     req.Notes,
			Actor:     req.Actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// RemoveItem deletes a line that has never shipped.
func RemoveItem(svc orderitems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParseURLUUID(chi.URLParam(r, "itemId"), "item id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := r.URL.Query().Get("actor")
		if err := svc.RemoveItem(r.Context(), orderitems.RemoveItemInput{
			ItemID: itemID,
			Actor:  actor,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"removed": itemID})
	}
}

type cancelItemRequest struct {
	Quantity int    `json:"quantity" validate:"required,min=1"`
	Reason   string `json:"reason" validate:"required"`
	Actor    string `json:"actor"`
}

// CancelItem cancels part of a line's remaining quantity.
func CancelItem(svc orderitems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParseURLUUID(chi.URLParam(r, "itemId"), "item id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cancelItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.CancelItem(r.Context(), orderitems.CancelItemInput{
			ItemID:   itemID,
			Quantity: req.Quantity,
			Reason:   req.Reason,
			Actor:    req.Actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

type bulkCancelRequest struct {
	ItemIDs []uuid.UUID `json:"item_ids" validate:"required,min=1"`
	Reason  string      `json:"reason" validate:"required"`
	Actor   string      `json:"actor"`
}

// BulkCancel cancels the full remaining quantity on every listed line,
// skipping lines that no longer accept cancellation.
func BulkCancel(svc orderitems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkCancelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		count, err := svc.BulkCancel(r.Context(), orderitems.BulkCancelInput{
			ItemIDs: req.ItemIDs,
			Reason:  req.Reason,
			Actor:   req.Actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"cancelled": count})
	}
}
