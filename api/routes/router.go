package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orderdesk/orderdesk-backend/api/controllers"
	admincontrollers "github.com/orderdesk/orderdesk-backend/api/controllers/admin"
	ordercontrollers "github.com/orderdesk/orderdesk-backend/api/controllers/orders"
	shipmentcontrollers "github.com/orderdesk/orderdesk-backend/api/controllers/shipments"
	"github.com/orderdesk/orderdesk-backend/api/middleware"
	"github.com/orderdesk/orderdesk-backend/internal/activity"
	"github.com/orderdesk/orderdesk-backend/internal/fieldsync"
	"github.com/orderdesk/orderdesk-backend/internal/fulfillment"
	"github.com/orderdesk/orderdesk-backend/internal/orderitems"
	internalorders "github.com/orderdesk/orderdesk-backend/internal/orders"
	"github.com/orderdesk/orderdesk-backend/internal/sizes"
	"github.com/orderdesk/orderdesk-backend/internal/thumbnails"
	"github.com/orderdesk/orderdesk-backend/pkg/config"
	"github.com/orderdesk/orderdesk-backend/pkg/logger"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	Readiness  []controllers.ReadinessCheck
	Registry   *prometheus.Registry
	Orders     internalorders.Repository
	Fulfill    fulfillment.Service
	Items      orderitems.Service
	Activity   activity.Service
	FieldSync  fieldsync.Service
	Sizes      *sizes.Normalizer
	Thumbnails *thumbnails.Service
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.Readiness...))
	})

	if params.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(params.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(params.Orders, logg))
			r.Get("/{orderId}/activity", ordercontrollers.Activity(params.Activity, logg))

			r.Post("/{orderId}/items", ordercontrollers.AddItem(params.Items, logg))
			r.Patch("/{orderId}/items/{itemId}", ordercontrollers.UpdateItem(params.Items, logg))
			r.Delete("/{orderId}/items/{itemId}", ordercontrollers.RemoveItem(params.Items, logg))
			r.Post("/{orderId}/items/{itemId}/cancel", ordercontrollers.CancelItem(params.Items, logg))

			r.Get("/{orderId}/shipments", shipmentcontrollers.List(params.Fulfill, logg))
			r.Post("/{orderId}/shipments", shipmentcontrollers.Create(params.Fulfill, logg))
		})

		r.Post("/items/bulk-cancel", ordercontrollers.BulkCancel(params.Items, logg))

		r.Route("/shipments", func(r chi.Router) {
			r.Get("/{shipmentId}", shipmentcontrollers.Detail(params.Fulfill, logg))
			r.Patch("/{shipmentId}", shipmentcontrollers.Update(params.Fulfill, logg))
			r.Post("/{shipmentId}/void", shipmentcontrollers.Void(params.Fulfill, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Route("/field-mappings", func(r chi.Router) {
			r.Get("/", admincontrollers.FieldMappingList(params.FieldSync, logg))
			r.Post("/", admincontrollers.FieldMappingCreate(params.FieldSync, logg))
			r.Patch("/{mappingId}", admincontrollers.FieldMappingUpdate(params.FieldSync, logg))
			r.Delete("/{mappingId}", admincontrollers.FieldMappingDelete(params.FieldSync, logg))
			r.Post("/reorder", admincontrollers.FieldMappingReorder(params.FieldSync, logg))
		})

		r.Route("/sizes", func(r chi.Router) {
			r.Get("/normalize", admincontrollers.SizeNormalize(params.Sizes, logg))
			r.Put("/mappings", admincontrollers.SizeMappingUpsert(params.Sizes, logg))
			r.Post("/cache/invalidate", admincontrollers.SizeCacheInvalidate(params.Sizes, logg))
		})

		r.Post("/thumbnails/ensure", admincontrollers.ThumbnailEnsure(params.Thumbnails, logg))
	})

	return r
}
