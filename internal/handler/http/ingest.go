package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/veloxcart/catalogd/pkg/httputil"

	"github.com/veloxcart/catalogd/internal/service"
)

// IngestHandler handles HTTP requests that control the ingestion pipeline.
type IngestHandler struct {
	service *service.IngestService
	logger  *slog.Logger
}

// NewIngestHandler creates a new ingestion HTTP handler.
func NewIngestHandler(svc *service.IngestService, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{
		service: svc,
		logger:  logger,
	}
}

// RunIngestion handles POST /api/v1/ingest
// The run continues in the background after the response; its outcome is
// reported through logs, metrics, and the ingest.completed event.
// @Summary Trigger a catalog ingestion run
// @Description Fetches the full source catalog, persists new records, and indexes them. Runs in the background.
// @Tags ingest
// @Produce json
// @Param index_from_source query bool false "Index fetched records directly instead of persisted rows"
// @Success 202 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/ingest [post]
func (h *IngestHandler) RunIngestion(w http.ResponseWriter, r *http.Request) {
	if h.service.Running() {
		httputil.WriteJSON(w, http.StatusConflict, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "CONFLICT", Message: "an ingestion or reindex run is already in progress"},
		})
		return
	}

	opts := service.RunOptions{
		IndexFromSource: r.URL.Query().Get("index_from_source") == "true",
	}

	go func() {
		ctx := context.Background()
		if _, err := h.service.Run(ctx, opts); err != nil {
			h.logger.ErrorContext(ctx, "background ingestion failed", slog.String("error", err.Error()))
		}
	}()

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: map[string]string{"status": "ingestion started"}})
}

// RunReindex handles POST /api/v1/reindex
// @Summary Rebuild the search index from the store
// @Description Re-reads every persisted product and reindexes it. Runs in the background.
// @Tags ingest
// @Produce json
// @Success 202 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/reindex [post]
func (h *IngestHandler) RunReindex(w http.ResponseWriter, r *http.Request) {
	if h.service.Running() {
		httputil.WriteJSON(w, http.StatusConflict, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "CONFLICT", Message: "an ingestion or reindex run is already in progress"},
		})
		return
	}

	go func() {
		ctx := context.Background()
		if _, err := h.service.Reindex(ctx); err != nil {
			h.logger.ErrorContext(ctx, "background reindex failed", slog.String("error", err.Error()))
		}
	}()

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: map[string]string{"status": "reindex started"}})
}
