package search

import (
	"sort"

	"github.com/kailas-cloud/multivec/internal/domain"
	"github.com/kailas-cloud/multivec/internal/domain/search/result"
)

// midpointScore is assigned when every score in a collection is equal and
// min-max normalization would divide by zero.
const midpointScore = 0.5

// merge combines per-collection candidate lists into one ranked, deduplicated
// result list. Scores are min-max normalized within each collection so that
// approximate cosine scores and exact MaxSim scores become comparable before
// interleaving. Ordering is fully deterministic: descending normalized score,
// ties broken by collection priority (visual before text), then lexical
// item id. One result per document survives; the first, highest-scoring one.
func merge(lists map[domain.Collection][]result.Candidate, n int) []result.Result {
	var combined []scoredCandidate

	for _, col := range []domain.Collection{domain.CollectionVisual, domain.CollectionText} {
		candidates := lists[col]
		if len(candidates) == 0 {
			continue
		}
		normalized := normalize(candidates)
		for i, c := range candidates {
			combined = append(combined, scoredCandidate{c: c, norm: normalized[i]})
		}
	}

	sort.SliceStable(combined, func(i, j int) bool {
		if combined[i].norm != combined[j].norm {
			return combined[i].norm > combined[j].norm
		}
		ci, cj := combined[i].c.Collection(), combined[j].c.Collection()
		if ci != cj {
			return ci == domain.CollectionVisual
		}
		return combined[i].c.ItemID() < combined[j].c.ItemID()
	})

	results := make([]result.Result, 0, min(n, len(combined)))
	seen := make(map[string]struct{}, len(combined))
	for _, sc := range combined {
		if _, dup := seen[sc.c.DocID()]; dup {
			continue
		}
		seen[sc.c.DocID()] = struct{}{}
		results = append(results, result.NewResult(
			sc.c.ItemID(), sc.c.DocID(), sc.c.Collection(), sc.norm, sc.c.Fields(),
		))
		if len(results) == n {
			break
		}
	}
	return results
}

type scoredCandidate struct {
	c    result.Candidate
	norm float64
}

// normalize min-max scales candidate scores to [0, 1]. A collection whose
// scores are all equal maps to the fixed midpoint.
func normalize(candidates []result.Candidate) []float64 {
	lo, hi := candidates[0].Score(), candidates[0].Score()
	for _, c := range candidates[1:] {
		s := c.Score()
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}

	out := make([]float64, len(candidates))
	if hi == lo {
		for i := range out {
			out[i] = midpointScore
		}
		return out
	}
	for i, c := range candidates {
		out[i] = (c.Score() - lo) / (hi - lo)
	}
	return out
}
