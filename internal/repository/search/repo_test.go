package search

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/multivec/internal/db"
	"github.com/kailas-cloud/multivec/internal/domain"
	"github.com/kailas-cloud/multivec/internal/domain/search/filter"
)

type fakeSearcher struct {
	lastQuery *db.KNNQuery
	result    *db.SearchResult
	err       error
}

func (f *fakeSearcher) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	f.lastQuery = q
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestQueryByRepresentative(t *testing.T) {
	fs := &fakeSearcher{result: &db.SearchResult{
		Total: 2,
		Entries: []db.SearchEntry{
			{Key: "mv:visual:report-page001", Score: 0.91, Fields: map[string]string{
				"doc_id": "report", "filename": "report.pdf", "page": "1",
			}},
			{Key: "mv:visual:report-page007", Score: 0.85, Fields: map[string]string{
				"filename": "report.pdf", "page": "7",
			}},
		},
	}}
	repo := New(fs, Config{KeyPrefix: "mv:", ReturnFields: []string{"doc_id", "filename", "page"}})

	got, err := repo.QueryByRepresentative(
		context.Background(), domain.CollectionVisual,
		[]float32{0.1, 0.2, 0.3, 0.4}, 10, filter.Expression{},
	)
	if err != nil {
		t.Fatalf("QueryByRepresentative: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}

	if got[0].ItemID() != "report-page001" {
		t.Errorf("item id = %q, want report-page001", got[0].ItemID())
	}
	if got[0].DocID() != "report" {
		t.Errorf("doc id = %q, want report", got[0].DocID())
	}
	if got[0].Stage1() != 0.91 {
		t.Errorf("stage1 = %v, want 0.91", got[0].Stage1())
	}
	if got[0].Collection() != domain.CollectionVisual {
		t.Errorf("collection = %q", got[0].Collection())
	}

	// Missing doc_id field falls back to parsing the item id.
	if got[1].DocID() != "report" {
		t.Errorf("fallback doc id = %q, want report", got[1].DocID())
	}

	q := fs.lastQuery
	if q.IndexName != "mv:visual:idx" {
		t.Errorf("index = %q, want mv:visual:idx", q.IndexName)
	}
	if q.K != 10 {
		t.Errorf("k = %d, want 10", q.K)
	}
	if len(q.ReturnFields) != 3 {
		t.Errorf("return fields = %v", q.ReturnFields)
	}
}

func TestQueryByRepresentativeError(t *testing.T) {
	fs := &fakeSearcher{err: errors.New("index unavailable")}
	repo := New(fs, Config{KeyPrefix: "mv:"})

	_, err := repo.QueryByRepresentative(
		context.Background(), domain.CollectionText,
		[]float32{1}, 5, filter.Expression{},
	)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestQueryByRepresentativeEmpty(t *testing.T) {
	fs := &fakeSearcher{result: &db.SearchResult{}}
	repo := New(fs, Config{KeyPrefix: "mv:"})

	got, err := repo.QueryByRepresentative(
		context.Background(), domain.CollectionText,
		[]float32{1, 2}, 5, filter.Expression{},
	)
	if err != nil {
		t.Fatalf("QueryByRepresentative: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d candidates, want 0", len(got))
	}
}
