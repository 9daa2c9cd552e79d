// Package ingest handles item writes and document removal. Items arrive with
// pre-computed token matrices from the processing pipeline; this service only
// validates, stores and accounts for them.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/multivec/internal/domain"
	dombatch "github.com/kailas-cloud/multivec/internal/domain/batch"
	"github.com/kailas-cloud/multivec/internal/logger"
	"github.com/kailas-cloud/multivec/internal/metrics"
)

// MaxBatchSize is the maximum number of items per batch request.
const MaxBatchSize = 100

// Stats reports per-collection item counts.
type Stats struct {
	VisualCount int
	TextCount   int
}

// DeleteReport is the outcome of removing one document across collections.
type DeleteReport struct {
	VisualDeleted int
	TextDeleted   int
}

// Service handles item ingestion with per-item error reporting for batches.
type Service struct {
	repo         Repository
	maxBatchSize int
}

// New creates an ingest service.
func New(repo Repository) *Service {
	return &Service{repo: repo, maxBatchSize: MaxBatchSize}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Put stores one item.
func (s *Service) Put(ctx context.Context, item *domain.StoredItem) (string, error) {
	id, err := s.repo.Put(ctx, item)
	if err != nil {
		metrics.IngestItemsTotal.WithLabelValues(string(item.Collection()), "error").Inc()
		return "", err
	}
	metrics.IngestItemsTotal.WithLabelValues(string(item.Collection()), "ok").Inc()
	return id, nil
}

// PutBatch stores items with per-item outcomes. The pipelined write path is
// tried first; if it rejects, items are retried one by one so a single bad
// matrix does not sink its siblings.
func (s *Service) PutBatch(ctx context.Context, items []domain.StoredItem) []dombatch.Result {
	results := make([]dombatch.Result, len(items))

	if len(items) > s.maxBatchSize {
		for i := range items {
			results[i] = dombatch.NewError(
				items[i].ItemID(),
				fmt.Errorf("%w: batch size exceeds %d", domain.ErrValidation, s.maxBatchSize),
			)
		}
		return results
	}

	if err := s.repo.PutBatch(ctx, items); err == nil {
		for i := range items {
			results[i] = dombatch.NewOK(items[i].ItemID())
			metrics.IngestItemsTotal.WithLabelValues(string(items[i].Collection()), "ok").Inc()
		}
		return results
	}

	for i := range items {
		id, err := s.repo.Put(ctx, &items[i])
		if err != nil {
			results[i] = dombatch.NewError(items[i].ItemID(), err)
			metrics.IngestItemsTotal.WithLabelValues(string(items[i].Collection()), "error").Inc()
			continue
		}
		results[i] = dombatch.NewOK(id)
		metrics.IngestItemsTotal.WithLabelValues(string(items[i].Collection()), "ok").Inc()
	}
	return results
}

// DeleteDocument removes every item of a document from both collections.
// Partial failures surface as PartialDeleteError with accurate counts; the
// caller decides whether to retry.
func (s *Service) DeleteDocument(ctx context.Context, docID string) (DeleteReport, error) {
	if docID == "" {
		return DeleteReport{}, fmt.Errorf("%w: document id is required", domain.ErrValidation)
	}

	visual, text, err := s.repo.DeleteByDocument(ctx, docID)
	report := DeleteReport{VisualDeleted: visual, TextDeleted: text}

	metrics.DeletedItemsTotal.WithLabelValues(string(domain.CollectionVisual)).Add(float64(visual))
	metrics.DeletedItemsTotal.WithLabelValues(string(domain.CollectionText)).Add(float64(text))

	if err != nil {
		logger.FromContext(ctx).Warn("document deletion incomplete",
			zap.String("doc_id", docID),
			zap.Int("visual_deleted", visual),
			zap.Int("text_deleted", text),
			zap.Error(err))
		return report, err
	}
	return report, nil
}

// Stats counts stored items per collection.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	visual, err := s.repo.Count(ctx, domain.CollectionVisual)
	if err != nil {
		return Stats{}, fmt.Errorf("count visual: %w", err)
	}
	text, err := s.repo.Count(ctx, domain.CollectionText)
	if err != nil {
		return Stats{}, fmt.Errorf("count text: %w", err)
	}
	return Stats{VisualCount: visual, TextCount: text}, nil
}
