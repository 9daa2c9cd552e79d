package ingest

import (
	"context"

	"github.com/kailas-cloud/multivec/internal/domain"
)

// Repository is the storage contract for ingestion and document removal.
type Repository interface {
	Put(ctx context.Context, item *domain.StoredItem) (string, error)
	PutBatch(ctx context.Context, items []domain.StoredItem) error
	DeleteByDocument(ctx context.Context, docID string) (visual, text int, err error)
	Count(ctx context.Context, collection domain.Collection) (int, error)
}
