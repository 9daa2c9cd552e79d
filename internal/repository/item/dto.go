package item

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/multivec/internal/domain"
)

// Hash field names for stored item records. The representative vector and
// the compressed matrix live in the same record as the metadata, so an item
// is written and deleted as one unit.
const (
	fieldVector     = "__vector"
	fieldMatrix     = "matrix"
	fieldSeqLength  = "seq_length"
	fieldShape      = "embedding_shape"
	fieldDocID      = "doc_id"
	fieldFilename   = "filename"
	fieldSourcePath = "source_path"
	fieldCreatedAt  = "created_at"
	fieldPage       = "page"
	fieldChunk      = "chunk"
	fieldPreview    = "preview"
	fieldWordCount  = "word_count"
)

// MetadataReturnFields lists the fields retrieved with stage-1 candidates.
// The matrix blob and representative vector are deliberately excluded; the
// re-ranker fetches matrices lazily.
func MetadataReturnFields() []string {
	return []string{
		fieldDocID, fieldFilename, fieldSourcePath, fieldCreatedAt,
		fieldSeqLength, fieldPage, fieldChunk, fieldPreview, fieldWordCount,
	}
}

// fieldsFromItem flattens a stored item plus its compressed matrix blob into
// hash fields.
func fieldsFromItem(it *domain.StoredItem, blob string) map[string]string {
	meta := it.Meta()
	fields := map[string]string{
		fieldVector:     vectorToBytes(it.Matrix().Representative()),
		fieldMatrix:     blob,
		fieldSeqLength:  strconv.Itoa(it.Matrix().Rows()),
		fieldShape:      it.Matrix().Shape(),
		fieldDocID:      it.DocID(),
		fieldFilename:   meta.Filename(),
		fieldSourcePath: meta.SourcePath(),
		fieldCreatedAt:  strconv.FormatInt(meta.CreatedAt(), 10),
	}

	if it.Collection() == domain.CollectionVisual {
		fields[fieldPage] = strconv.Itoa(it.Ordinal())
		return fields
	}

	fields[fieldChunk] = strconv.Itoa(it.Ordinal())
	if tm, ok := it.Text(); ok {
		fields[fieldPreview] = tm.Preview()
		fields[fieldWordCount] = strconv.Itoa(tm.WordCount())
	}
	return fields
}

// matrixShape parses the persisted seq_length and embedding_shape fields,
// cross-checking them against each other.
func matrixShape(fields map[string]string) (rows, dim int, err error) {
	seq, err := strconv.Atoi(fields[fieldSeqLength])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad seq_length %q", domain.ErrCorruptPayload, fields[fieldSeqLength])
	}

	shape := fields[fieldShape]
	n, d, ok := strings.Cut(shape, "x")
	if !ok {
		return 0, 0, fmt.Errorf("%w: bad embedding_shape %q", domain.ErrCorruptPayload, shape)
	}
	rows, err = strconv.Atoi(n)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad embedding_shape %q", domain.ErrCorruptPayload, shape)
	}
	dim, err = strconv.Atoi(d)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad embedding_shape %q", domain.ErrCorruptPayload, shape)
	}
	if rows != seq {
		return 0, 0, fmt.Errorf("%w: seq_length %d disagrees with shape %q",
			domain.ErrCorruptPayload, seq, shape)
	}
	return rows, dim, nil
}

// vectorToBytes serializes a vector as little-endian float32 bytes for the
// FT vector field.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
