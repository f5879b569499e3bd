package event

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/veloxcart/catalogd/pkg/errors"
	pkgkafka "github.com/veloxcart/catalogd/pkg/kafka"

	"github.com/veloxcart/catalogd/internal/domain"
)

// ConsumerGroupID is the Kafka consumer group for the catalog service.
const ConsumerGroupID = "catalogd"

// IngestRequestedData is the payload of a catalog.ingest.requested event.
type IngestRequestedData struct {
	IndexFromSource bool `json:"index_from_source"`
}

// Ingestor is the subset of the ingestion orchestrator the consumer drives.
type Ingestor interface {
	Run(ctx context.Context, opts domain.RunOptions) (*domain.IngestSummary, error)
	Reindex(ctx context.Context) (*domain.BulkResult, error)
}

// ConsumerHandler routes incoming Kafka events to the ingestion orchestrator.
type ConsumerHandler struct {
	ingest Ingestor
	logger *slog.Logger
}

// NewConsumerHandler creates a new event consumer handler.
func NewConsumerHandler(ingest Ingestor, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{
		ingest: ingest,
		logger: logger,
	}
}

// Handle processes an incoming Kafka event based on its event type.
func (h *ConsumerHandler) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicIngestRequested:
		return h.handleIngestRequested(ctx, event)
	case TopicReindexRequested:
		return h.handleReindexRequested(ctx, event)
	default:
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleIngestRequested starts one ingestion run. A run already in flight is
// not a failure: retrying the message would not help, so it is dropped.
func (h *ConsumerHandler) handleIngestRequested(ctx context.Context, event *pkgkafka.Event) error {
	var data IngestRequestedData
	if err := event.UnmarshalData(&data); err != nil {
		h.logger.WarnContext(ctx, "malformed ingest.requested payload, using defaults",
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
	}

	h.logger.InfoContext(ctx, "received ingest.requested event",
		slog.String("event_id", event.EventID),
		slog.Bool("index_from_source", data.IndexFromSource),
	)

	summary, err := h.ingest.Run(ctx, domain.RunOptions{IndexFromSource: data.IndexFromSource})
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			h.logger.InfoContext(ctx, "ingestion already running, dropping request",
				slog.String("event_id", event.EventID),
			)
			return nil
		}
		return err
	}

	h.logger.InfoContext(ctx, "event-triggered ingestion finished",
		slog.Int("created", summary.Created),
		slog.Int("duplicates", summary.Duplicates),
		slog.Int("failed", summary.Failed),
	)

	return nil
}

// handleReindexRequested rebuilds the index from the store.
func (h *ConsumerHandler) handleReindexRequested(ctx context.Context, event *pkgkafka.Event) error {
	h.logger.InfoContext(ctx, "received reindex.requested event",
		slog.String("event_id", event.EventID),
	)

	result, err := h.ingest.Reindex(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			h.logger.InfoContext(ctx, "a run is already in progress, dropping reindex request",
				slog.String("event_id", event.EventID),
			)
			return nil
		}
		return err
	}

	h.logger.InfoContext(ctx, "event-triggered reindex finished",
		slog.Int("indexed", result.Indexed),
		slog.Int("failed", result.Failed),
	)

	return nil
}
