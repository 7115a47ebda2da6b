package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-backend/api/responses"
	"github.com/orderdesk/orderdesk-backend/api/validators"
	"github.com/orderdesk/orderdesk-backend/internal/fieldsync"
	"github.com/orderdesk/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
	"github.com/orderdesk/orderdesk-backend/pkg/logger"
)

// FieldMappingList returns every sync rule in dashboard order.
func FieldMappingList(svc fieldsync.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mappings, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, mappings)
	}
}

type fieldMappingCreateRequest struct {
	ShopifyField string `json:"shopify_field" validate:"required"`
	LocalField   string `json:"local_field" validate:"required"`
	Direction    string `json:"direction" validate:"required"`
	Enabled      bool   `json:"enabled"`
}

func FieldMappingCreate(svc fieldsync.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req fieldMappingCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		direction, err := enums.ParseFieldMappingDirection(req.Direction)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sync direction"))
			return
		}

		mapping, err := svc.Create(r.Context(), fieldsync.CreateInput{
			ShopifyField: req.ShopifyField,
			LocalField:   req.LocalField,
			Direction:    direction,
			Enabled:      req.Enabled,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, mapping)
	}
}

type fieldMappingUpdateRequest struct {
	ShopifyField *string `json:"shopify_field,omitempty"`
	Direction    *string `json:"direction,omitempty"`
	Enabled      *bool   `json:"enabled,omitempty"`
}

func FieldMappingUpdate(svc fieldsync.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mappingID, err := validators.ParseURLUUID(chi.URLParam(r, "mappingId"), "mapping id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req fieldMappingUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := fieldsync.UpdateInput{
			ID:           mappingID,
			ShopifyField: req.ShopifyField,
			Enabled:      req.Enabled,
		}
		if req.Direction != nil {
			direction, err := enums.ParseFieldMappingDirection(*req.Direction)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sync direction"))
				return
			}
			input.Direction = &direction
		}

		mapping, err := svc.Update(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, mapping)
	}
}

func FieldMappingDelete(svc fieldsync.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mappingID, err := validators.ParseURLUUID(chi.URLParam(r, "mappingId"), "mapping id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), mappingID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": mappingID})
	}
}

type fieldMappingReorderRequest struct {
	MappingIDs []uuid.UUID `json:"mapping_ids" validate:"required,min=1"`
}

func FieldMappingReorder(svc fieldsync.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req fieldMappingReorderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Reorder(r.Context(), req.MappingIDs); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"reordered": len(req.MappingIDs)})
	}
}
