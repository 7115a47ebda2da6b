package admin

import (
	"net/http"
	"strings"

	"github.com/orderdesk/orderdesk-backend/api/responses"
	"github.com/orderdesk/orderdesk-backend/api/validators"
	"github.com/orderdesk/orderdesk-backend/internal/sizes"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
	"github.com/orderdesk/orderdesk-backend/pkg/logger"
)

// SizeNormalize resolves a vendor's raw size label to the canonical size.
func SizeNormalize(normalizer *sizes.Normalizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor := strings.TrimSpace(r.URL.Query().Get("vendor"))
		rawLabel := strings.TrimSpace(r.URL.Query().Get("label"))
		if vendor == "" || rawLabel == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "vendor and label query parameters are required"))
			return
		}

		canonical, err := normalizer.Normalize(r.Context(), vendor, rawLabel)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"vendor":    vendor,
			"raw_label": rawLabel,
			"canonical": canonical,
		})
	}
}

type sizeMappingRequest struct {
	Vendor    string `json:"vendor" validate:"required"`
	RawLabel  string `json:"raw_label" validate:"required"`
	Canonical string `json:"canonical" validate:"required"`
}

// SizeMappingUpsert creates or replaces a vendor size mapping and evicts the
// stale cache entry.
func SizeMappingUpsert(normalizer *sizes.Normalizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sizeMappingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := normalizer.UpsertMapping(r.Context(), req.Vendor, req.RawLabel, req.Canonical); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"vendor":    req.Vendor,
			"raw_label": req.RawLabel,
			"canonical": req.Canonical,
		})
	}
}

// SizeCacheInvalidate drops every cached normalization result.
func SizeCacheInvalidate(normalizer *sizes.Normalizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := normalizer.InvalidateCache(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "invalidated"})
	}
}
