package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kailas-cloud/multivec/internal/domain"
	dombatch "github.com/kailas-cloud/multivec/internal/domain/batch"
)

type fakeRepo struct {
	putErrs      map[string]error
	batchErr     error
	deleteVisual int
	deleteText   int
	deleteErr    error
	counts       map[domain.Collection]int
	countErr     error

	putCalls   []string
	batchCalls int
}

func (f *fakeRepo) Put(_ context.Context, item *domain.StoredItem) (string, error) {
	f.putCalls = append(f.putCalls, item.ItemID())
	if err, ok := f.putErrs[item.ItemID()]; ok {
		return "", err
	}
	return item.ItemID(), nil
}

func (f *fakeRepo) PutBatch(_ context.Context, _ []domain.StoredItem) error {
	f.batchCalls++
	return f.batchErr
}

func (f *fakeRepo) DeleteByDocument(_ context.Context, _ string) (int, int, error) {
	return f.deleteVisual, f.deleteText, f.deleteErr
}

func (f *fakeRepo) Count(_ context.Context, c domain.Collection) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.counts[c], nil
}

func item(t *testing.T, docID string, page int) domain.StoredItem {
	t.Helper()
	m, err := domain.MatrixFromRows([][]float32{{1, 0}, {0, 1}})
	if err != nil {
		t.Fatalf("MatrixFromRows: %v", err)
	}
	meta := domain.VisualMetadata{Metadata: domain.NewMetadata(docID+".pdf", "/"+docID, 0)}
	it, err := domain.NewVisualItem(docID, page, m, meta)
	if err != nil {
		t.Fatalf("NewVisualItem: %v", err)
	}
	return it
}

func TestPutBatchFastPath(t *testing.T) {
	repo := &fakeRepo{}
	svc := New(repo)

	items := []domain.StoredItem{item(t, "a", 1), item(t, "a", 2)}
	results := svc.PutBatch(context.Background(), items)

	if repo.batchCalls != 1 {
		t.Errorf("batch calls = %d, want 1", repo.batchCalls)
	}
	if len(repo.putCalls) != 0 {
		t.Errorf("per-item puts = %v, want none", repo.putCalls)
	}
	for _, r := range results {
		if r.Status() != dombatch.StatusOK {
			t.Errorf("item %s status = %q, err = %v", r.ID(), r.Status(), r.Err())
		}
	}
}

func TestPutBatchFallsBackPerItem(t *testing.T) {
	repo := &fakeRepo{
		batchErr: fmt.Errorf("%w: item a-page002", domain.ErrInvalidEmbeddingShape),
		putErrs: map[string]error{
			"a-page002": domain.ErrInvalidEmbeddingShape,
		},
	}
	svc := New(repo)

	items := []domain.StoredItem{item(t, "a", 1), item(t, "a", 2), item(t, "a", 3)}
	results := svc.PutBatch(context.Background(), items)

	if len(repo.putCalls) != 3 {
		t.Fatalf("per-item puts = %d, want 3", len(repo.putCalls))
	}
	if results[0].Status() != dombatch.StatusOK {
		t.Errorf("item 0: %q (%v)", results[0].Status(), results[0].Err())
	}
	if results[1].Status() != dombatch.StatusError {
		t.Error("item 1 should have failed")
	}
	if !errors.Is(results[1].Err(), domain.ErrInvalidEmbeddingShape) {
		t.Errorf("item 1 err = %v", results[1].Err())
	}
	if results[2].Status() != dombatch.StatusOK {
		t.Errorf("item 2: %q (%v)", results[2].Status(), results[2].Err())
	}
}

func TestPutBatchSizeLimit(t *testing.T) {
	repo := &fakeRepo{}
	svc := New(repo).WithMaxBatchSize(2)

	items := []domain.StoredItem{item(t, "a", 1), item(t, "a", 2), item(t, "a", 3)}
	results := svc.PutBatch(context.Background(), items)

	if repo.batchCalls != 0 || len(repo.putCalls) != 0 {
		t.Error("oversized batch must not reach the repository")
	}
	for _, r := range results {
		if r.Status() != dombatch.StatusError {
			t.Errorf("item %s status = %q, want error", r.ID(), r.Status())
		}
		if !errors.Is(r.Err(), domain.ErrValidation) {
			t.Errorf("item %s err = %v, want ErrValidation", r.ID(), r.Err())
		}
	}
}

func TestDeleteDocument(t *testing.T) {
	repo := &fakeRepo{deleteVisual: 3, deleteText: 5}
	svc := New(repo)

	report, err := svc.DeleteDocument(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if report.VisualDeleted != 3 || report.TextDeleted != 5 {
		t.Errorf("report = %+v, want (3, 5)", report)
	}
}

func TestDeleteDocumentPartialFailure(t *testing.T) {
	repo := &fakeRepo{
		deleteVisual: 2,
		deleteText:   0,
		deleteErr:    domain.NewPartialDelete(2, 0, errors.New("connection reset")),
	}
	svc := New(repo)

	report, err := svc.DeleteDocument(context.Background(), "doc1")
	if !errors.Is(err, domain.ErrPartialDelete) {
		t.Fatalf("err = %v, want ErrPartialDelete", err)
	}
	if report.VisualDeleted != 2 {
		t.Errorf("report carries %d visual deletions, want 2", report.VisualDeleted)
	}
}

func TestDeleteDocumentEmptyID(t *testing.T) {
	svc := New(&fakeRepo{})
	_, err := svc.DeleteDocument(context.Background(), "")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestStats(t *testing.T) {
	repo := &fakeRepo{counts: map[domain.Collection]int{
		domain.CollectionVisual: 120,
		domain.CollectionText:   340,
	}}
	svc := New(repo)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.VisualCount != 120 || stats.TextCount != 340 {
		t.Errorf("stats = %+v", stats)
	}
}
