package search

import (
	"context"

	"github.com/kailas-cloud/multivec/internal/domain"
	"github.com/kailas-cloud/multivec/internal/domain/search/filter"
	"github.com/kailas-cloud/multivec/internal/domain/search/result"
)

// Retriever runs the stage-1 approximate KNN query against one collection.
type Retriever interface {
	QueryByRepresentative(
		ctx context.Context, collection domain.Collection,
		vector []float32, k int, filters filter.Expression,
	) ([]result.Candidate, error)
}

// Reranker re-scores candidates with exact late-interaction MaxSim.
type Reranker interface {
	Rerank(
		ctx context.Context, query domain.TokenMatrix, candidates []result.Candidate,
	) ([]result.Candidate, error)
}

// Embedder vectorizes the query text into a per-token matrix.
type Embedder interface {
	EmbedQuery(ctx context.Context, query string) (domain.QueryEmbedding, error)
}
