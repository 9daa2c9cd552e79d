package domain

import (
	"errors"
	"testing"
)

func TestItemIDFormats(t *testing.T) {
	if got := VisualItemID("atlas", 7); got != "atlas-page007" {
		t.Errorf("VisualItemID = %q", got)
	}
	if got := VisualItemID("atlas", 123); got != "atlas-page123" {
		t.Errorf("VisualItemID = %q", got)
	}
	if got := TextItemID("atlas", 7); got != "atlas-chunk0007" {
		t.Errorf("TextItemID = %q", got)
	}
	if got := TextItemID("atlas", 12345); got != "atlas-chunk12345" {
		t.Errorf("TextItemID = %q", got)
	}
}

func TestDocIDFromItemID(t *testing.T) {
	tests := []struct {
		itemID string
		want   string
	}{
		{"atlas-page001", "atlas"},
		{"atlas-chunk0042", "atlas"},
		{"multi-page-doc-page003", "multi-page-doc"},
		{"notes-chunk-chunk0001", "notes-chunk"},
		{"no-suffix-here", "no-suffix-here"},
		{"doc-pageXYZ", "doc-pageXYZ"}, // non-numeric suffix is part of the id
		{"doc-page", "doc-page"},
		{"plain", "plain"},
	}
	for _, tc := range tests {
		t.Run(tc.itemID, func(t *testing.T) {
			if got := DocIDFromItemID(tc.itemID); got != tc.want {
				t.Errorf("DocIDFromItemID(%q) = %q, want %q", tc.itemID, got, tc.want)
			}
		})
	}
}

func TestCollectionIsValid(t *testing.T) {
	if !CollectionVisual.IsValid() || !CollectionText.IsValid() {
		t.Error("built-in collections must be valid")
	}
	if Collection("audio").IsValid() {
		t.Error("unknown collection must be invalid")
	}
}

func TestNewVisualItem(t *testing.T) {
	m, err := NewTokenMatrix(2, 3, []float32{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}

	item, err := NewVisualItem("atlas", 3, m, VisualMetadata{
		Metadata: NewMetadata("atlas.pdf", "/data/atlas.pdf", 1700000000000),
	})
	if err != nil {
		t.Fatalf("new item: %v", err)
	}

	if item.ItemID() != "atlas-page003" {
		t.Errorf("item id = %q", item.ItemID())
	}
	if item.DocID() != "atlas" || item.Collection() != CollectionVisual || item.Ordinal() != 3 {
		t.Errorf("item = %+v", item)
	}
	if _, ok := item.Visual(); !ok {
		t.Error("visual metadata missing")
	}
	if _, ok := item.Text(); ok {
		t.Error("text metadata should be absent on a page item")
	}
	if item.Meta().Filename() != "atlas.pdf" {
		t.Errorf("filename = %q", item.Meta().Filename())
	}
}

func TestNewTextItem(t *testing.T) {
	m, err := NewTokenMatrix(1, 2, []float32{1, 0})
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}

	item, err := NewTextItem("notes", 12, m, NewTextMetadata(
		NewMetadata("notes.md", "", 0), "first words of the chunk", 42,
	))
	if err != nil {
		t.Fatalf("new item: %v", err)
	}

	if item.ItemID() != "notes-chunk0012" {
		t.Errorf("item id = %q", item.ItemID())
	}
	text, ok := item.Text()
	if !ok {
		t.Fatal("text metadata missing")
	}
	if text.Preview() != "first words of the chunk" || text.WordCount() != 42 {
		t.Errorf("text meta = %+v", text)
	}
}

func TestNewItemValidation(t *testing.T) {
	m, _ := NewTokenMatrix(1, 2, []float32{1, 0})

	if _, err := NewVisualItem("", 1, m, VisualMetadata{}); !errors.Is(err, ErrValidation) {
		t.Errorf("empty doc id: error = %v", err)
	}
	if _, err := NewVisualItem("d", -1, m, VisualMetadata{}); !errors.Is(err, ErrValidation) {
		t.Errorf("negative ordinal: error = %v", err)
	}
	if _, err := NewTextItem("d", 1, TokenMatrix{}, TextMetadata{}); !errors.Is(err, ErrInvalidEmbeddingShape) {
		t.Errorf("zero matrix: error = %v", err)
	}
}
