// Package event publishes and consumes the catalog domain events.
package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/veloxcart/catalogd/pkg/kafka"

	"github.com/veloxcart/catalogd/internal/domain"
)

// Kafka topic constants for catalog domain events.
const (
	TopicIngestRequested  = "catalog.ingest.requested"
	TopicReindexRequested = "catalog.reindex.requested"
	TopicIngestCompleted  = "catalog.ingest.completed"
	TopicProductDeleted   = "catalog.product.deleted"
)

// Aggregate type constants.
const (
	AggregateTypeCatalog = "catalog"
	AggregateTypeProduct = "product"
)

// Source identifier for events originating from this service.
const SourceCatalogService = "catalogd"

// IngestCompletedData is the payload for a catalog.ingest.completed event.
type IngestCompletedData struct {
	RunID       string `json:"run_id"`
	Fetched     int    `json:"fetched"`
	Invalid     int    `json:"invalid"`
	Created     int    `json:"created"`
	Duplicates  int    `json:"duplicates"`
	Failed      int    `json:"failed"`
	Indexed     int    `json:"indexed"`
	IndexFailed int    `json:"index_failed"`
	ElapsedMs   int64  `json:"elapsed_ms"`
}

// ProductDeletedData is the payload for a catalog.product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// Producer publishes catalog domain events to Kafka. A Producer constructed
// with a nil Kafka client publishes nothing, which is how deployments without
// a broker run.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the catalog service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishIngestCompleted publishes a catalog.ingest.completed event.
func (p *Producer) PublishIngestCompleted(ctx context.Context, runID string, summary *domain.IngestSummary) error {
	if p.kafka == nil {
		return nil
	}

	data := IngestCompletedData{
		RunID:       runID,
		Fetched:     summary.Fetched,
		Invalid:     summary.Invalid,
		Created:     summary.Created,
		Duplicates:  summary.Duplicates,
		Failed:      summary.Failed,
		Indexed:     summary.Indexed,
		IndexFailed: summary.IndexFailed,
		ElapsedMs:   summary.ElapsedMs,
	}

	event, err := pkgkafka.NewEvent(TopicIngestCompleted, runID, AggregateTypeCatalog, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create ingest.completed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicIngestCompleted, event); err != nil {
		return fmt.Errorf("publish ingest.completed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published ingest.completed event",
		slog.String("run_id", runID),
		slog.Int("created", summary.Created),
	)

	return nil
}

// PublishProductDeleted publishes a catalog.product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, id string) error {
	if p.kafka == nil {
		return nil
	}

	data := ProductDeletedData{ID: id}

	event, err := pkgkafka.NewEvent(TopicProductDeleted, id, AggregateTypeProduct, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create product.deleted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductDeleted, event); err != nil {
		return fmt.Errorf("publish product.deleted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published product.deleted event",
		slog.String("product_id", id),
	)

	return nil
}
