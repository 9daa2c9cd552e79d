// Package rerank implements stage-2 exact scoring: late-interaction MaxSim
// between the query token matrix and each candidate's full matrix.
package rerank

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/multivec/internal/domain"
	"github.com/kailas-cloud/multivec/internal/domain/maxsim"
	"github.com/kailas-cloud/multivec/internal/domain/search/result"
	"github.com/kailas-cloud/multivec/internal/logger"
	"github.com/kailas-cloud/multivec/internal/metrics"
)

// MatrixReader fetches full token matrices for stored items in one pipelined
// round-trip. Results and errs align with itemIDs; the error return is for
// transport-level failures only.
type MatrixReader interface {
	TokenMatrices(ctx context.Context, collection domain.Collection, itemIDs []string,
	) ([]domain.TokenMatrix, []error, error)
}

// DefaultWorkers bounds concurrent MaxSim scoring per rerank call.
const DefaultWorkers = 8

// Service re-scores stage-1 candidates with exact MaxSim.
type Service struct {
	matrices MatrixReader
	workers  int
}

// New creates a rerank service. workers <= 0 selects DefaultWorkers.
func New(matrices MatrixReader, workers int) *Service {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Service{matrices: matrices, workers: workers}
}

// Rerank fetches the candidates' token matrices in one pipelined round-trip
// and computes each candidate's exact MaxSim score against the query matrix,
// preserving input positions. Candidates whose matrix cannot be fetched or
// scored are dropped, not failed: a stale index entry or one corrupt record
// must not sink the whole query. An error is returned only when the context
// is done, the batch fetch itself failed, or every candidate failed.
func (s *Service) Rerank(
	ctx context.Context,
	query domain.TokenMatrix,
	candidates []result.Candidate,
) ([]result.Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	matrices, fetchErrs, err := s.fetchMatrices(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	scored := make([]result.Candidate, len(candidates))
	ok := make([]bool, len(candidates))
	var mu sync.Mutex
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i := range candidates {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c := candidates[i]

			score, err := scoreCandidate(query, matrices[i], fetchErrs[i])
			if err != nil {
				logger.FromContext(ctx).Warn("rerank: dropping candidate",
					zap.String("item_id", c.ItemID()),
					zap.String("collection", string(c.Collection())),
					zap.Error(err))
				metrics.RerankCandidatesTotal.WithLabelValues(string(c.Collection()), "dropped").Inc()
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			metrics.RerankCandidatesTotal.WithLabelValues(string(c.Collection()), "scored").Inc()
			scored[i] = c.WithStage2(score)
			ok[i] = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	if failed == len(candidates) {
		return nil, fmt.Errorf("%w: all %d candidates failed re-ranking",
			domain.ErrScoring, len(candidates))
	}

	out := make([]result.Candidate, 0, len(candidates)-failed)
	for i := range scored {
		if ok[i] {
			out = append(out, scored[i])
		}
	}
	return out, nil
}

// fetchMatrices batches the matrix reads per collection and scatters the
// results back to candidate positions. Stage-2 runs per collection, so this
// is normally a single round-trip.
func (s *Service) fetchMatrices(
	ctx context.Context, candidates []result.Candidate,
) ([]domain.TokenMatrix, []error, error) {
	matrices := make([]domain.TokenMatrix, len(candidates))
	errs := make([]error, len(candidates))

	byCollection := make(map[domain.Collection][]int)
	for i, c := range candidates {
		byCollection[c.Collection()] = append(byCollection[c.Collection()], i)
	}

	for col, positions := range byCollection {
		ids := make([]string, len(positions))
		for j, i := range positions {
			ids[j] = candidates[i].ItemID()
		}

		ms, es, err := s.matrices.TokenMatrices(ctx, col, ids)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch matrices %s: %w", col, err)
		}
		for j, i := range positions {
			matrices[i], errs[i] = ms[j], es[j]
		}
	}
	return matrices, errs, nil
}

func scoreCandidate(query, m domain.TokenMatrix, fetchErr error) (float64, error) {
	if fetchErr != nil {
		return 0, fmt.Errorf("fetch matrix: %w", fetchErr)
	}
	score, err := maxsim.Score(query, m)
	if err != nil {
		return 0, fmt.Errorf("maxsim: %w", err)
	}
	return score, nil
}
