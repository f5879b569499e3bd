package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/veloxcart/catalogd/pkg/errors"
	pkgkafka "github.com/veloxcart/catalogd/pkg/kafka"

	"github.com/veloxcart/catalogd/internal/domain"
)

// --- Fake Ingestor ---

type fakeIngestor struct {
	runCalls     []domain.RunOptions
	reindexCalls int
	runErr       error
	reindexErr   error
}

func (f *fakeIngestor) Run(_ context.Context, opts domain.RunOptions) (*domain.IngestSummary, error) {
	f.runCalls = append(f.runCalls, opts)
	if f.runErr != nil {
		return nil, f.runErr
	}
	return &domain.IngestSummary{Fetched: 3, Created: 3, Indexed: 3}, nil
}

func (f *fakeIngestor) Reindex(_ context.Context) (*domain.BulkResult, error) {
	f.reindexCalls++
	if f.reindexErr != nil {
		return nil, f.reindexErr
	}
	return &domain.BulkResult{Indexed: 3}, nil
}

// --- Test Helpers ---

func newTestHandler(ingest *fakeIngestor) *ConsumerHandler {
	return NewConsumerHandler(ingest, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func mustEvent(t *testing.T, eventType string, data any) *pkgkafka.Event {
	t.Helper()
	event, err := pkgkafka.NewEvent(eventType, "run-1", AggregateTypeCatalog, SourceCatalogService, data)
	require.NoError(t, err)
	return event
}

// --- Tests ---

func TestHandle_IngestRequested(t *testing.T) {
	ingest := &fakeIngestor{}
	handler := newTestHandler(ingest)

	event := mustEvent(t, TopicIngestRequested, IngestRequestedData{IndexFromSource: true})
	err := handler.Handle(context.Background(), event)

	require.NoError(t, err)
	require.Len(t, ingest.runCalls, 1)
	assert.True(t, ingest.runCalls[0].IndexFromSource)
}

func TestHandle_IngestRequestedDefaultPayload(t *testing.T) {
	ingest := &fakeIngestor{}
	handler := newTestHandler(ingest)

	event := mustEvent(t, TopicIngestRequested, IngestRequestedData{})
	err := handler.Handle(context.Background(), event)

	require.NoError(t, err)
	require.Len(t, ingest.runCalls, 1)
	assert.False(t, ingest.runCalls[0].IndexFromSource)
}

func TestHandle_MalformedPayloadFallsBackToDefaults(t *testing.T) {
	ingest := &fakeIngestor{}
	handler := newTestHandler(ingest)

	event := mustEvent(t, TopicIngestRequested, nil)
	event.Data = json.RawMessage(`"not an object"`)

	err := handler.Handle(context.Background(), event)

	require.NoError(t, err)
	require.Len(t, ingest.runCalls, 1)
	assert.False(t, ingest.runCalls[0].IndexFromSource)
}

func TestHandle_ReindexRequested(t *testing.T) {
	ingest := &fakeIngestor{}
	handler := newTestHandler(ingest)

	event := mustEvent(t, TopicReindexRequested, nil)
	err := handler.Handle(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, 1, ingest.reindexCalls)
	assert.Empty(t, ingest.runCalls)
}

func TestHandle_ConcurrentRunConflictIsDropped(t *testing.T) {
	ingest := &fakeIngestor{runErr: apperrors.Conflict("an ingestion or reindex run is already in progress")}
	handler := newTestHandler(ingest)

	// A conflicting request is dropped, not retried into the DLQ.
	event := mustEvent(t, TopicIngestRequested, IngestRequestedData{})
	err := handler.Handle(context.Background(), event)

	assert.NoError(t, err)
	assert.Len(t, ingest.runCalls, 1)
}

func TestHandle_ReindexConflictIsDropped(t *testing.T) {
	ingest := &fakeIngestor{reindexErr: apperrors.Conflict("an ingestion or reindex run is already in progress")}
	handler := newTestHandler(ingest)

	event := mustEvent(t, TopicReindexRequested, nil)
	err := handler.Handle(context.Background(), event)

	assert.NoError(t, err)
	assert.Equal(t, 1, ingest.reindexCalls)
}

func TestHandle_RunErrorPropagatesForRetry(t *testing.T) {
	ingest := &fakeIngestor{runErr: errors.New("fetch catalog: connection refused")}
	handler := newTestHandler(ingest)

	event := mustEvent(t, TopicIngestRequested, IngestRequestedData{})
	err := handler.Handle(context.Background(), event)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch catalog")
}

func TestHandle_UnknownEventTypeIgnored(t *testing.T) {
	ingest := &fakeIngestor{}
	handler := newTestHandler(ingest)

	event := mustEvent(t, "catalog.payment.settled", nil)
	err := handler.Handle(context.Background(), event)

	require.NoError(t, err)
	assert.Empty(t, ingest.runCalls)
	assert.Equal(t, 0, ingest.reindexCalls)
}
