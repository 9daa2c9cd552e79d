// Package search implements the stage-1 approximate retriever: a KNN query
// over representative vectors in one collection's FT index.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/multivec/internal/db"
	"github.com/kailas-cloud/multivec/internal/domain"
	"github.com/kailas-cloud/multivec/internal/domain/search/filter"
	"github.com/kailas-cloud/multivec/internal/domain/search/result"
)

// store is the consumer interface for KNN queries (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Config holds retriever settings.
type Config struct {
	KeyPrefix    string
	ReturnFields []string
}

// Repo retrieves approximate candidates by representative-vector similarity.
type Repo struct {
	store store
	cfg   Config
}

// New creates a stage-1 retriever.
func New(s store, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// QueryByRepresentative runs a KNN search against one collection's index and
// returns candidates ordered by descending approximate similarity. Candidate
// metadata comes back with the hit; token matrices do not.
func (r *Repo) QueryByRepresentative(
	ctx context.Context,
	collection domain.Collection,
	vector []float32,
	k int,
	filters filter.Expression,
) ([]result.Candidate, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(collection),
		Filters:      filters,
		Vector:       vector,
		K:            k,
		ReturnFields: r.cfg.ReturnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("knn %s: %w", collection, err)
	}

	prefix := fmt.Sprintf("%s%s:", r.cfg.KeyPrefix, collection)
	candidates := make([]result.Candidate, 0, len(res.Entries))
	for _, e := range res.Entries {
		itemID := strings.TrimPrefix(e.Key, prefix)
		docID := e.Fields["doc_id"]
		if docID == "" {
			docID = domain.DocIDFromItemID(itemID)
		}
		candidates = append(candidates,
			result.NewCandidate(itemID, docID, collection, e.Score, e.Fields))
	}
	return candidates, nil
}

func (r *Repo) indexName(collection domain.Collection) string {
	return fmt.Sprintf("%s%s:idx", r.cfg.KeyPrefix, collection)
}
