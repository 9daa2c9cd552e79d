// Package search orchestrates the two-stage query pipeline: embed the query,
// retrieve approximate candidates per collection, optionally re-rank with
// exact MaxSim, then merge into one ranked result list.
package search

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/multivec/internal/domain"
	"github.com/kailas-cloud/multivec/internal/domain/search/request"
	"github.com/kailas-cloud/multivec/internal/domain/search/result"
	"github.com/kailas-cloud/multivec/internal/logger"
	"github.com/kailas-cloud/multivec/internal/metrics"
)

// Config holds per-stage deadlines. Zero disables the deadline for a stage;
// the caller's context still applies.
type Config struct {
	EmbedTimeout  time.Duration
	Stage1Timeout time.Duration
	Stage2Timeout time.Duration
}

// Service coordinates one search call end to end.
type Service struct {
	embed     Embedder
	retriever Retriever
	reranker  Reranker
	cfg       Config
}

// New creates a search orchestrator.
func New(embed Embedder, retriever Retriever, reranker Reranker, cfg Config) *Service {
	return &Service{embed: embed, retriever: retriever, reranker: reranker, cfg: cfg}
}

// Search runs the full pipeline for one validated request. Degradations are
// absorbed where the contract allows: a failed collection in hybrid stage-1
// and a failed stage-2 pass both fall back rather than failing the query.
// Empty stage-1 output yields an empty response, not an error.
func (s *Service) Search(ctx context.Context, req *request.Request) (*result.Response, error) {
	start := time.Now()
	var timing result.Timing

	emb, err := s.embedWithRetry(ctx, req.Query())
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(string(req.Mode()), "error").Inc()
		return nil, fmt.Errorf("embed query: %w", err)
	}
	timing.EmbedMS = msSince(start)
	metrics.SearchStageDuration.WithLabelValues("embed").Observe(timing.EmbedMS / 1000)

	stage1Start := time.Now()
	lists, err := s.stage1(ctx, req, emb.Representative())
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(string(req.Mode()), "error").Inc()
		return nil, err
	}
	timing.Stage1MS = msSince(stage1Start)
	metrics.SearchStageDuration.WithLabelValues("stage1").Observe(timing.Stage1MS / 1000)

	total := 0
	for _, l := range lists {
		total += len(l)
	}
	if total == 0 {
		timing.TotalMS = msSince(start)
		metrics.SearchRequestsTotal.WithLabelValues(string(req.Mode()), "ok").Inc()
		return &result.Response{Results: []result.Result{}, Timing: timing}, nil
	}

	if req.Rerank() {
		stage2Start := time.Now()
		s.stage2(ctx, emb.Matrix(), lists)
		timing.Stage2MS = msSince(stage2Start)
		metrics.SearchStageDuration.WithLabelValues("stage2").Observe(timing.Stage2MS / 1000)
	}

	mergeStart := time.Now()
	results := merge(lists, req.NResults())
	timing.MergeMS = msSince(mergeStart)
	metrics.SearchStageDuration.WithLabelValues("merge").Observe(timing.MergeMS / 1000)

	timing.TotalMS = msSince(start)
	metrics.SearchRequestsTotal.WithLabelValues(string(req.Mode()), "ok").Inc()

	return &result.Response{
		Results: results,
		Total:   len(results),
		Timing:  timing,
	}, nil
}

// embedWithRetry calls the provider once, and on failure retries exactly once
// with the query truncated to half its length. Providers reject over-long
// inputs; anything else will fail the retry too and surface as-is.
func (s *Service) embedWithRetry(ctx context.Context, query string) (domain.QueryEmbedding, error) {
	ectx, cancel := s.stageContext(ctx, s.cfg.EmbedTimeout)
	defer cancel()

	emb, err := s.embed.EmbedQuery(ectx, query)
	if err == nil {
		return emb, nil
	}
	if ctx.Err() != nil || len(query) < 2 {
		return domain.QueryEmbedding{}, err
	}

	logger.FromContext(ctx).Warn("query embedding failed, retrying with truncated input",
		zap.Int("original_len", len(query)),
		zap.Error(err))
	metrics.EmbeddingRetriesTotal.Inc()

	rctx, rcancel := s.stageContext(ctx, s.cfg.EmbedTimeout)
	defer rcancel()
	return s.embed.EmbedQuery(rctx, truncateHalf(query))
}

// truncateHalf halves the query by byte length without splitting a
// multi-byte rune.
func truncateHalf(query string) string {
	cut := len(query) / 2
	for cut > 0 && !utf8.RuneStart(query[cut]) {
		cut--
	}
	return query[:cut]
}

// stage1 queries each collection of the mode concurrently. A single failed
// collection degrades the query in hybrid mode; all collections failing
// fails it.
func (s *Service) stage1(
	ctx context.Context, req *request.Request, vector []float32,
) (map[domain.Collection][]result.Candidate, error) {
	collections := req.Mode().Collections()

	sctx, cancel := s.stageContext(ctx, s.cfg.Stage1Timeout)
	defer cancel()

	candidates := make([][]result.Candidate, len(collections))
	errs := make([]error, len(collections))

	var g errgroup.Group
	for i, col := range collections {
		i, col := i, col
		g.Go(func() error {
			candidates[i], errs[i] = s.retriever.QueryByRepresentative(
				sctx, col, vector, req.RerankCandidates(), req.Filters(),
			)
			return nil
		})
	}
	_ = g.Wait()

	lists := make(map[domain.Collection][]result.Candidate, len(collections))
	failures := 0
	for i, col := range collections {
		if errs[i] != nil {
			failures++
			logger.FromContext(ctx).Warn("stage-1 retrieval failed for collection",
				zap.String("collection", string(col)),
				zap.Error(errs[i]))
			metrics.SearchDegradedTotal.WithLabelValues("stage1_collection_failed").Inc()
			continue
		}
		lists[col] = candidates[i]
	}

	if failures == len(collections) {
		return nil, fmt.Errorf("stage-1 retrieval failed: %w", errs[0])
	}
	return lists, nil
}

// stage2 re-ranks each collection's candidates in place. A failed pass keeps
// the collection's stage-1 ordering; this is a recoverable degradation.
func (s *Service) stage2(
	ctx context.Context, query domain.TokenMatrix, lists map[domain.Collection][]result.Candidate,
) {
	sctx, cancel := s.stageContext(ctx, s.cfg.Stage2Timeout)
	defer cancel()

	for col, candidates := range lists {
		if len(candidates) == 0 {
			continue
		}
		reranked, err := s.reranker.Rerank(sctx, query, candidates)
		if err != nil {
			logger.FromContext(ctx).Warn("stage-2 re-ranking failed, keeping stage-1 order",
				zap.String("collection", string(col)),
				zap.Error(err))
			metrics.SearchDegradedTotal.WithLabelValues("rerank_failed").Inc()
			continue
		}
		lists[col] = reranked
	}
}

func (s *Service) stageContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
