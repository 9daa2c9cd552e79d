package maxsim

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/kailas-cloud/multivec/internal/domain"
)

func mustMatrix(t *testing.T, rows, dim int, data []float32) domain.TokenMatrix {
	t.Helper()
	m, err := domain.NewTokenMatrix(rows, dim, data)
	if err != nil {
		t.Fatalf("new matrix: %v", err)
	}
	return m
}

func TestScoreSelfSimilarity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	data := make([]float32, 5*8)
	for i := range data {
		data[i] = rng.Float32()*2 - 1
	}
	m := mustMatrix(t, 5, 8, data)

	score, err := Score(m, m)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if math.Abs(score-1.0) > 1e-9 {
		t.Errorf("self similarity = %v, want 1.0", score)
	}
}

func TestScoreBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 20; trial++ {
		q := make([]float32, 4*6)
		c := make([]float32, 9*6)
		for i := range q {
			q[i] = rng.Float32()*2 - 1
		}
		for i := range c {
			c[i] = rng.Float32()*2 - 1
		}

		score, err := Score(mustMatrix(t, 4, 6, q), mustMatrix(t, 9, 6, c))
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		if score < -1.0-1e-9 || score > 1.0+1e-9 {
			t.Errorf("trial %d: score %v out of [-1, 1]", trial, score)
		}
	}
}

func TestScorePicksBestToken(t *testing.T) {
	// Single query token aligned exactly with the second candidate token.
	q := mustMatrix(t, 1, 3, []float32{0, 1, 0})
	c := mustMatrix(t, 3, 3, []float32{
		1, 0, 0,
		0, 2, 0, // same direction as query, larger magnitude
		0, 0, 1,
	})

	score, err := Score(q, c)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if math.Abs(score-1.0) > 1e-9 {
		t.Errorf("score = %v, want 1.0 (normalization ignores magnitude)", score)
	}
}

func TestScoreAveragesOverQueryTokens(t *testing.T) {
	// First query token matches perfectly, second is orthogonal to everything.
	q := mustMatrix(t, 2, 2, []float32{
		1, 0,
		0, 1,
	})
	c := mustMatrix(t, 1, 2, []float32{1, 0})

	score, err := Score(q, c)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if math.Abs(score-0.5) > 1e-9 {
		t.Errorf("score = %v, want 0.5", score)
	}
}

func TestScoreZeroRows(t *testing.T) {
	// Zero-norm rows stay zero and contribute zero similarity.
	q := mustMatrix(t, 2, 2, []float32{
		0, 0,
		1, 0,
	})
	c := mustMatrix(t, 1, 2, []float32{1, 0})

	score, err := Score(q, c)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if math.Abs(score-0.5) > 1e-9 {
		t.Errorf("score = %v, want 0.5", score)
	}
}

func TestScoreErrors(t *testing.T) {
	m := mustMatrix(t, 1, 2, []float32{1, 0})
	other := mustMatrix(t, 1, 3, []float32{1, 0, 0})

	tests := []struct {
		name string
		q, c domain.TokenMatrix
	}{
		{"empty query", domain.TokenMatrix{}, m},
		{"empty candidate", m, domain.TokenMatrix{}},
		{"dimension mismatch", m, other},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Score(tc.q, tc.c)
			if !errors.Is(err, domain.ErrScoring) {
				t.Errorf("error = %v, want ErrScoring", err)
			}
		})
	}
}
