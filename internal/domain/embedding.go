package domain

import "context"

// QueryEmbedder is the multi-vector embedding contract. The provider turns a
// query into one vector per token; the engine never computes embeddings itself.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) (QueryEmbedding, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// QueryEmbedding is the per-token matrix produced for one search call.
type QueryEmbedding struct {
	matrix TokenMatrix
}

// NewQueryEmbedding wraps a query token matrix.
func NewQueryEmbedding(matrix TokenMatrix) QueryEmbedding {
	return QueryEmbedding{matrix: matrix}
}

// Matrix returns the full query token matrix.
func (q QueryEmbedding) Matrix() TokenMatrix { return q.matrix }

// Representative returns the query's first token vector for stage-1 search.
func (q QueryEmbedding) Representative() []float32 {
	return q.matrix.Representative()
}
