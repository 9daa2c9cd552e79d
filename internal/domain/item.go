package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Collection partitions the store into independently indexed item kinds.
type Collection string

const (
	// CollectionVisual holds rendered page items.
	CollectionVisual Collection = "visual"
	// CollectionText holds text chunk items.
	CollectionText Collection = "text"
)

// IsValid checks if the collection is one of the supported values.
func (c Collection) IsValid() bool {
	return c == CollectionVisual || c == CollectionText
}

// VisualItemID formats the deterministic identity of a page item.
func VisualItemID(docID string, page int) string {
	return fmt.Sprintf("%s-page%03d", docID, page)
}

// TextItemID formats the deterministic identity of a chunk item.
func TextItemID(docID string, chunk int) string {
	return fmt.Sprintf("%s-chunk%04d", docID, chunk)
}

// DocIDFromItemID recovers the owning document identifier from an item id
// by stripping the trailing "-pageNNN" or "-chunkNNNN" suffix. Returns the
// input unchanged when no suffix is present.
func DocIDFromItemID(itemID string) string {
	for _, sep := range []string{"-page", "-chunk"} {
		idx := strings.LastIndex(itemID, sep)
		if idx < 0 {
			continue
		}
		suffix := itemID[idx+len(sep):]
		if suffix == "" {
			continue
		}
		if _, err := strconv.Atoi(suffix); err == nil {
			return itemID[:idx]
		}
	}
	return itemID
}

// Metadata is the base metadata shared by both collections.
type Metadata struct {
	filename   string
	sourcePath string
	createdAt  int64 // unix milliseconds
}

// NewMetadata creates base item metadata.
func NewMetadata(filename, sourcePath string, createdAt int64) Metadata {
	return Metadata{filename: filename, sourcePath: sourcePath, createdAt: createdAt}
}

// Filename returns the source file name.
func (m Metadata) Filename() string { return m.filename }

// SourcePath returns the source file path.
func (m Metadata) SourcePath() string { return m.sourcePath }

// CreatedAt returns the ingestion timestamp in unix milliseconds.
func (m Metadata) CreatedAt() int64 { return m.createdAt }

// VisualMetadata is the metadata variant for page items.
type VisualMetadata struct {
	Metadata
}

// TextMetadata is the metadata variant for chunk items, carrying a content
// preview and word count for display.
type TextMetadata struct {
	Metadata
	preview   string
	wordCount int
}

// NewTextMetadata creates text chunk metadata.
func NewTextMetadata(base Metadata, preview string, wordCount int) TextMetadata {
	return TextMetadata{Metadata: base, preview: preview, wordCount: wordCount}
}

// Preview returns the chunk content preview.
func (m TextMetadata) Preview() string { return m.preview }

// WordCount returns the chunk word count.
func (m TextMetadata) WordCount() int { return m.wordCount }

// StoredItem is the atomic unit of storage and scoring: one page or one
// chunk with its full token matrix. Immutable after ingestion; deleted as a
// unit together with its representative vector and metadata.
type StoredItem struct {
	itemID     string
	docID      string
	collection Collection
	ordinal    int // page number or chunk number
	matrix     TokenMatrix
	visualMeta *VisualMetadata
	textMeta   *TextMetadata
}

// NewVisualItem validates and creates a page item.
func NewVisualItem(docID string, page int, matrix TokenMatrix, meta VisualMetadata) (StoredItem, error) {
	if err := validateItem(docID, page, matrix); err != nil {
		return StoredItem{}, err
	}
	return StoredItem{
		itemID:     VisualItemID(docID, page),
		docID:      docID,
		collection: CollectionVisual,
		ordinal:    page,
		matrix:     matrix,
		visualMeta: &meta,
	}, nil
}

// NewTextItem validates and creates a chunk item.
func NewTextItem(docID string, chunk int, matrix TokenMatrix, meta TextMetadata) (StoredItem, error) {
	if err := validateItem(docID, chunk, matrix); err != nil {
		return StoredItem{}, err
	}
	return StoredItem{
		itemID:     TextItemID(docID, chunk),
		docID:      docID,
		collection: CollectionText,
		ordinal:    chunk,
		matrix:     matrix,
		textMeta:   &meta,
	}, nil
}

func validateItem(docID string, ordinal int, matrix TokenMatrix) error {
	if docID == "" {
		return fmt.Errorf("%w: document id is required", ErrValidation)
	}
	if ordinal < 0 {
		return fmt.Errorf("%w: page/chunk number must be non-negative, got %d", ErrValidation, ordinal)
	}
	if matrix.IsZero() {
		return fmt.Errorf("%w: token matrix is required", ErrInvalidEmbeddingShape)
	}
	return nil
}

// ItemID returns the deterministic item identity.
func (i *StoredItem) ItemID() string { return i.itemID }

// DocID returns the owning document identifier.
func (i *StoredItem) DocID() string { return i.docID }

// Collection returns the collection tag.
func (i *StoredItem) Collection() Collection { return i.collection }

// Ordinal returns the page number (visual) or chunk number (text).
func (i *StoredItem) Ordinal() int { return i.ordinal }

// Matrix returns the full token matrix.
func (i *StoredItem) Matrix() TokenMatrix { return i.matrix }

// Visual returns the visual metadata variant, if this is a page item.
func (i *StoredItem) Visual() (VisualMetadata, bool) {
	if i.visualMeta == nil {
		return VisualMetadata{}, false
	}
	return *i.visualMeta, true
}

// Text returns the text metadata variant, if this is a chunk item.
func (i *StoredItem) Text() (TextMetadata, bool) {
	if i.textMeta == nil {
		return TextMetadata{}, false
	}
	return *i.textMeta, true
}

// Meta returns the base metadata regardless of variant.
func (i *StoredItem) Meta() Metadata {
	if i.visualMeta != nil {
		return i.visualMeta.Metadata
	}
	if i.textMeta != nil {
		return i.textMeta.Metadata
	}
	return Metadata{}
}
