package domain

import "fmt"

// TokenMatrix is an ordered sequence of fixed-dimension token vectors, one
// per token of an item (a rendered page or a text chunk) or of a query.
// Stored row-major: data[i*dim : (i+1)*dim] is the vector for token i.
type TokenMatrix struct {
	rows int
	dim  int
	data []float32
}

// NewTokenMatrix validates and creates a token matrix from row-major data.
// Requires rows >= 1, dim >= 1 and len(data) == rows*dim.
func NewTokenMatrix(rows, dim int, data []float32) (TokenMatrix, error) {
	if rows < 1 {
		return TokenMatrix{}, fmt.Errorf("%w: sequence length must be at least 1, got %d",
			ErrInvalidEmbeddingShape, rows)
	}
	if dim < 1 {
		return TokenMatrix{}, fmt.Errorf("%w: dimension must be at least 1, got %d",
			ErrInvalidEmbeddingShape, dim)
	}
	if len(data) != rows*dim {
		return TokenMatrix{}, fmt.Errorf("%w: expected %d values for shape %dx%d, got %d",
			ErrInvalidEmbeddingShape, rows*dim, rows, dim, len(data))
	}
	return TokenMatrix{rows: rows, dim: dim, data: data}, nil
}

// MatrixFromRows builds a token matrix from per-token vectors, validating
// that every row has the same dimension.
func MatrixFromRows(rows [][]float32) (TokenMatrix, error) {
	if len(rows) == 0 {
		return TokenMatrix{}, fmt.Errorf("%w: at least one token vector is required",
			ErrInvalidEmbeddingShape)
	}
	dim := len(rows[0])
	data := make([]float32, 0, len(rows)*dim)
	for i, r := range rows {
		if len(r) != dim {
			return TokenMatrix{}, fmt.Errorf("%w: row %d has dimension %d, expected %d",
				ErrInvalidEmbeddingShape, i, len(r), dim)
		}
		data = append(data, r...)
	}
	return NewTokenMatrix(len(rows), dim, data)
}

// Rows returns the sequence length N.
func (m TokenMatrix) Rows() int { return m.rows }

// Dim returns the vector dimension D.
func (m TokenMatrix) Dim() int { return m.dim }

// Row returns the vector for token i as a view into the underlying data.
func (m TokenMatrix) Row(i int) []float32 {
	return m.data[i*m.dim : (i+1)*m.dim]
}

// Representative returns the first token vector, used as the proxy for
// approximate indexed search.
func (m TokenMatrix) Representative() []float32 {
	return m.Row(0)
}

// Data returns the row-major backing slice.
func (m TokenMatrix) Data() []float32 { return m.data }

// IsZero reports whether the matrix is the zero value (no tokens).
func (m TokenMatrix) IsZero() bool { return m.rows == 0 }

// Shape returns the "NxD" shape string persisted alongside the compressed blob.
func (m TokenMatrix) Shape() string {
	return fmt.Sprintf("%dx%d", m.rows, m.dim)
}
