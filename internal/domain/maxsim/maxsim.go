// Package maxsim implements exact late-interaction scoring between token
// matrices: every query token is matched to its single best-aligned candidate
// token, the per-token maxima are summed and averaged over the query length.
package maxsim

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/multivec/internal/domain"
)

// Score computes the MaxSim relevance between a query matrix (Q x D) and a
// candidate matrix (C x D). Rows are L2-normalized before the similarity
// product, so the result is bounded in [-1, 1] and equals 1.0 for identical
// matrices. Arithmetic is double precision; callers persist float32.
func Score(query, candidate domain.TokenMatrix) (float64, error) {
	if query.Rows() == 0 {
		return 0, fmt.Errorf("%w: empty query matrix", domain.ErrScoring)
	}
	if candidate.Rows() == 0 {
		return 0, fmt.Errorf("%w: empty candidate matrix", domain.ErrScoring)
	}
	if query.Dim() != candidate.Dim() {
		return 0, fmt.Errorf("%w: dimension mismatch: query %d, candidate %d",
			domain.ErrScoring, query.Dim(), candidate.Dim())
	}

	qn := normalizeRows(query)
	cn := normalizeRows(candidate)

	var sum float64
	for _, q := range qn {
		best := math.Inf(-1)
		for _, c := range cn {
			var dot float64
			for k := range q {
				dot += q[k] * c[k]
			}
			if dot > best {
				best = dot
			}
		}
		sum += best
	}

	score := sum / float64(query.Rows())
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, fmt.Errorf("%w: non-finite score", domain.ErrScoring)
	}
	return score, nil
}

// normalizeRows converts each token vector to a float64 unit vector.
// Zero-norm rows are left as zeros and contribute zero similarity.
func normalizeRows(m domain.TokenMatrix) [][]float64 {
	rows := make([][]float64, m.Rows())
	for i := range rows {
		src := m.Row(i)
		row := make([]float64, len(src))
		var norm float64
		for k, v := range src {
			f := float64(v)
			row[k] = f
			norm += f * f
		}
		if norm > 0 {
			inv := 1 / math.Sqrt(norm)
			for k := range row {
				row[k] *= inv
			}
		}
		rows[i] = row
	}
	return rows
}
