package request

import (
	"fmt"

	"github.com/kailas-cloud/multivec/internal/domain"
	"github.com/kailas-cloud/multivec/internal/domain/search/filter"
	"github.com/kailas-cloud/multivec/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	// DefaultNResults is the result count used when the caller does not set one.
	DefaultNResults = 10
	MaxNResults     = 100
	// DefaultRerankCandidates is the stage-1 candidate count per collection.
	DefaultRerankCandidates = 100
	MaxRerankCandidates     = 500
)

// Request is a validated search query.
type Request struct {
	query            string
	searchMode       mode.Mode
	filters          filter.Expression
	nResults         int
	rerank           bool
	rerankCandidates int
}

// New validates and normalizes search parameters. Defaults: mode=hybrid,
// rerank_candidates=100. An explicit nResults <= 0 is rejected; callers that
// allow omission substitute DefaultNResults before calling.
func New(
	query string,
	m mode.Mode,
	filters filter.Expression,
	nResults int,
	rerank bool,
	rerankCandidates int,
) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrValidation)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrValidation, MaxQueryLength)
	}
	if m == "" {
		m = mode.Hybrid
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("%w: invalid search mode: %q", domain.ErrValidation, m)
	}
	if nResults <= 0 {
		return Request{}, fmt.Errorf("%w: n_results must be positive, got %d", domain.ErrValidation, nResults)
	}
	if nResults > MaxNResults {
		nResults = MaxNResults
	}
	if rerankCandidates <= 0 {
		rerankCandidates = DefaultRerankCandidates
	}
	if rerankCandidates > MaxRerankCandidates {
		rerankCandidates = MaxRerankCandidates
	}
	if rerankCandidates < nResults {
		rerankCandidates = nResults
	}

	return Request{
		query:            query,
		searchMode:       m,
		filters:          filters,
		nResults:         nResults,
		rerank:           rerank,
		rerankCandidates: rerankCandidates,
	}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// Mode returns the search strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// Filters returns the pre-filter expression.
func (r *Request) Filters() filter.Expression { return r.filters }

// NResults returns the maximum results to return after merging.
func (r *Request) NResults() int { return r.nResults }

// Rerank reports whether late-interaction re-ranking is enabled.
func (r *Request) Rerank() bool { return r.rerank }

// RerankCandidates returns the stage-1 candidate count per collection.
func (r *Request) RerankCandidates() int { return r.rerankCandidates }
