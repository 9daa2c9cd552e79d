// Package codec serializes token matrices into a text-safe compact form:
// little-endian float32 bytes, DEFLATE-compressed, base64-encoded. The shape
// (N, D) is not recoverable from the blob and must be persisted alongside it.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/flate"

	"github.com/kailas-cloud/multivec/internal/domain"
)

// DefaultLevel balances CPU cost against ingestion throughput. Decompression
// speed is level-independent for DEFLATE, and search only decompresses.
const DefaultLevel = flate.DefaultCompression

// Codec compresses and restores token matrices.
type Codec struct {
	level int
}

// New creates a codec with the given DEFLATE level.
func New(level int) (*Codec, error) {
	if level < flate.HuffmanOnly || level > flate.BestCompression {
		return nil, fmt.Errorf("invalid compression level %d", level)
	}
	return &Codec{level: level}, nil
}

// Compress encodes a matrix as base64(deflate(float32le)).
func (c *Codec) Compress(m domain.TokenMatrix) (string, error) {
	if m.IsZero() {
		return "", fmt.Errorf("%w: cannot compress empty matrix", domain.ErrInvalidEmbeddingShape)
	}

	raw := make([]byte, len(m.Data())*4)
	for i, f := range m.Data() {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(f))
	}

	var buf bytes.Buffer
	zw, err := flate.NewWriter(&buf, c.level)
	if err != nil {
		return "", fmt.Errorf("new deflate writer: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("deflate: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("close deflate: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decompress reverses Compress exactly: base64-decode, inflate, reinterpret
// as float32, reshape to (rows, dim). Any mismatch between the recovered byte
// length and the declared shape is reported as ErrCorruptPayload, never
// silently truncated.
func (c *Codec) Decompress(blob string, rows, dim int) (domain.TokenMatrix, error) {
	if rows < 1 || dim < 1 {
		return domain.TokenMatrix{}, fmt.Errorf("%w: declared shape %dx%d",
			domain.ErrCorruptPayload, rows, dim)
	}

	compressed, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return domain.TokenMatrix{}, fmt.Errorf("%w: base64 decode: %v", domain.ErrCorruptPayload, err)
	}

	zr := flate.NewReader(bytes.NewReader(compressed))
	raw, err := io.ReadAll(zr)
	if cerr := zr.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return domain.TokenMatrix{}, fmt.Errorf("%w: inflate: %v", domain.ErrCorruptPayload, err)
	}

	if len(raw)%(dim*4) != 0 {
		return domain.TokenMatrix{}, fmt.Errorf("%w: %d bytes is not a multiple of %d (dim %d)",
			domain.ErrCorruptPayload, len(raw), dim*4, dim)
	}
	if len(raw) != rows*dim*4 {
		return domain.TokenMatrix{}, fmt.Errorf("%w: got %d bytes, declared shape %dx%d needs %d",
			domain.ErrCorruptPayload, len(raw), rows, dim, rows*dim*4)
	}

	data := make([]float32, rows*dim)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	m, err := domain.NewTokenMatrix(rows, dim, data)
	if err != nil {
		return domain.TokenMatrix{}, fmt.Errorf("%w: %v", domain.ErrCorruptPayload, err)
	}
	return m, nil
}
