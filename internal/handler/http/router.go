package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veloxcart/catalogd/pkg/health"
	"github.com/veloxcart/catalogd/pkg/middleware"

	"github.com/veloxcart/catalogd/internal/service"
)

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(
	catalogService *service.CatalogService,
	searchService *service.SearchService,
	ingestService *service.IngestService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("catalogd"))
	r.Use(middleware.Tracing("catalogd"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	// Product API endpoints
	productHandler := NewProductHandler(catalogService, logger)

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", productHandler.ListProducts)
		r.Get("/{id}", productHandler.GetProduct)
		r.Delete("/{id}", productHandler.DeleteProduct)
	})

	// Category API endpoints
	categoryHandler := NewCategoryHandler(catalogService, logger)

	r.Route("/api/v1/categories", func(r chi.Router) {
		r.With(middleware.CacheControl(300)).Get("/", categoryHandler.ListCategories)
	})

	// Search API endpoints
	searchHandler := NewSearchHandler(searchService, logger)

	r.Route("/api/v1/search", func(r chi.Router) {
		r.Get("/suggest", searchHandler.Suggest)
		r.Get("/", searchHandler.Search)
	})

	// Ingestion control endpoints
	ingestHandler := NewIngestHandler(ingestService, logger)

	r.Group(func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Post("/api/v1/ingest", ingestHandler.RunIngestion)
		r.Post("/api/v1/reindex", ingestHandler.RunReindex)
	})

	return r
}
