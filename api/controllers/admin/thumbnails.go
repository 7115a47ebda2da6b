package admin

import (
	"net/http"

	"github.com/orderdesk/orderdesk-backend/api/responses"
	"github.com/orderdesk/orderdesk-backend/api/validators"
	"github.com/orderdesk/orderdesk-backend/internal/thumbnails"
	"github.com/orderdesk/orderdesk-backend/pkg/logger"
)

type thumbnailRequest struct {
	SourceKey string `json:"source_key" validate:"required"`
}

// ThumbnailEnsure generates (or reuses) the cached thumbnail for a stored
// image and returns its object key.
func ThumbnailEnsure(svc *thumbnails.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req thumbnailRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		key, err := svc.Ensure(r.Context(), req.SourceKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"source_key":    req.SourceKey,
			"thumbnail_key": key,
		})
	}
}
