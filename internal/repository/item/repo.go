package item

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/multivec/internal/codec"
	"github.com/kailas-cloud/multivec/internal/db"
	"github.com/kailas-cloud/multivec/internal/domain"
)

// store is the consumer interface for item records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig holds index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Config holds repository settings.
type Config struct {
	KeyPrefix       string
	Dim             int // system-wide vector dimension D
	MaxPayloadBytes int // per-field ceiling for the encoded matrix blob
	HNSW            HNSWConfig
}

// Repo is the vector store: per-item representative vectors in two FT
// indexes plus compressed token matrices and metadata in the same records.
type Repo struct {
	store store
	codec *codec.Codec
	cfg   Config
}

// New creates an item repository.
func New(s store, c *codec.Codec, cfg Config) *Repo {
	return &Repo{store: s, codec: c, cfg: cfg}
}

// EnsureIndexes creates the FT index for each collection if absent.
func (r *Repo) EnsureIndexes(ctx context.Context) error {
	for _, col := range []domain.Collection{domain.CollectionVisual, domain.CollectionText} {
		def := r.indexDefinition(col)

		exists, err := r.store.IndexExists(ctx, def.Name)
		if err != nil {
			return fmt.Errorf("probe index %s: %w", def.Name, err)
		}
		if exists {
			continue
		}

		// ErrIndexExists is still tolerated: a concurrent starter may win
		// the race between the probe and the create.
		if err := r.store.CreateIndex(ctx, def); err != nil && err != db.ErrIndexExists {
			return fmt.Errorf("create index %s: %w", def.Name, err)
		}
	}
	return nil
}

// RebuildIndexes drops and recreates both FT indexes. The engine reindexes
// existing records in the background; use after changing index parameters
// such as the vector dimension or HNSW build settings.
func (r *Repo) RebuildIndexes(ctx context.Context) error {
	for _, col := range []domain.Collection{domain.CollectionVisual, domain.CollectionText} {
		def := r.indexDefinition(col)

		if err := r.store.DropIndex(ctx, def.Name); err != nil && err != db.ErrIndexNotFound {
			return fmt.Errorf("drop index %s: %w", def.Name, err)
		}
		if err := r.store.CreateIndex(ctx, def); err != nil {
			return fmt.Errorf("create index %s: %w", def.Name, err)
		}
	}
	return nil
}

// Put validates, compresses and writes a stored item. The representative
// vector, compressed matrix and metadata land in one record, so the item is
// visible to search and to re-ranking atomically.
func (r *Repo) Put(ctx context.Context, it *domain.StoredItem) (string, error) {
	fields, err := r.itemFields(it)
	if err != nil {
		return "", err
	}

	key := r.key(it.Collection(), it.ItemID())
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return "", fmt.Errorf("hset %s: %w", key, err)
	}
	return it.ItemID(), nil
}

// PutBatch writes multiple items in a single pipelined round-trip. All items
// are validated and compressed before anything is written.
func (r *Repo) PutBatch(ctx context.Context, items []domain.StoredItem) error {
	if len(items) == 0 {
		return nil
	}

	hashItems := make([]db.HashSetItem, len(items))
	for i := range items {
		fields, err := r.itemFields(&items[i])
		if err != nil {
			return fmt.Errorf("item %s: %w", items[i].ItemID(), err)
		}
		hashItems[i] = db.HashSetItem{
			Key:    r.key(items[i].Collection(), items[i].ItemID()),
			Fields: fields,
		}
	}

	if err := r.store.HSetMulti(ctx, hashItems); err != nil {
		return fmt.Errorf("hset multi: %w", err)
	}
	return nil
}

// TokenMatrix decompresses and returns the full matrix of one item.
func (r *Repo) TokenMatrix(ctx context.Context, collection domain.Collection, itemID string) (domain.TokenMatrix, error) {
	key := r.key(collection, itemID)
	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domain.TokenMatrix{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	return r.matrixFromRecord(itemID, fields)
}

// TokenMatrices fetches and decompresses the matrices of several items in one
// pipelined round-trip. Results align with itemIDs; a missing or corrupt
// record carries its error at the same position instead of failing the batch.
func (r *Repo) TokenMatrices(
	ctx context.Context, collection domain.Collection, itemIDs []string,
) ([]domain.TokenMatrix, []error, error) {
	if len(itemIDs) == 0 {
		return nil, nil, nil
	}

	keys := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		keys[i] = r.key(collection, id)
	}

	records, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, nil, fmt.Errorf("hgetall multi: %w", err)
	}

	matrices := make([]domain.TokenMatrix, len(itemIDs))
	errs := make([]error, len(itemIDs))
	for i, fields := range records {
		matrices[i], errs[i] = r.matrixFromRecord(itemIDs[i], fields)
	}
	return matrices, errs, nil
}

func (r *Repo) matrixFromRecord(itemID string, fields map[string]string) (domain.TokenMatrix, error) {
	if len(fields) == 0 {
		return domain.TokenMatrix{}, domain.ErrItemNotFound
	}

	blob, ok := fields[fieldMatrix]
	if !ok || blob == "" {
		return domain.TokenMatrix{}, fmt.Errorf("%w: record %s has no matrix blob",
			domain.ErrCorruptPayload, itemID)
	}

	rows, dim, err := matrixShape(fields)
	if err != nil {
		return domain.TokenMatrix{}, err
	}

	m, err := r.codec.Decompress(blob, rows, dim)
	if err != nil {
		return domain.TokenMatrix{}, fmt.Errorf("decompress %s: %w", itemID, err)
	}
	return m, nil
}

// DeleteByDocument removes every item in both collections whose identity
// derives from docID. Returns per-collection counts; a failure mid-way is
// reported explicitly as a partial delete, never silently.
func (r *Repo) DeleteByDocument(ctx context.Context, docID string) (int, int, error) {
	visual, err := r.deleteCollectionItems(ctx, domain.CollectionVisual, docID)
	if err != nil {
		return visual, 0, domain.NewPartialDelete(visual, 0, err)
	}

	text, err := r.deleteCollectionItems(ctx, domain.CollectionText, docID)
	if err != nil {
		return visual, text, domain.NewPartialDelete(visual, text, err)
	}

	return visual, text, nil
}

// Count returns the number of items in a collection.
func (r *Repo) Count(ctx context.Context, collection domain.Collection) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(collection), "*")
	if err != nil {
		return 0, fmt.Errorf("search count %s: %w", collection, err)
	}
	return n, nil
}

func (r *Repo) itemFields(it *domain.StoredItem) (map[string]string, error) {
	if it.Matrix().Dim() != r.cfg.Dim {
		return nil, fmt.Errorf("%w: got dimension %d, store requires %d",
			domain.ErrInvalidEmbeddingShape, it.Matrix().Dim(), r.cfg.Dim)
	}

	blob, err := r.codec.Compress(it.Matrix())
	if err != nil {
		return nil, fmt.Errorf("compress %s: %w", it.ItemID(), err)
	}
	if r.cfg.MaxPayloadBytes > 0 && len(blob) > r.cfg.MaxPayloadBytes {
		return nil, fmt.Errorf("%w: encoded matrix is %d bytes, limit %d",
			domain.ErrPayloadTooLarge, len(blob), r.cfg.MaxPayloadBytes)
	}

	return fieldsFromItem(it, blob), nil
}

func (r *Repo) deleteCollectionItems(ctx context.Context, collection domain.Collection, docID string) (int, error) {
	pattern := r.key(collection, docID) + "-*"
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", pattern, err)
	}

	prefix := r.key(collection, "")
	deleted := 0
	for _, key := range keys {
		// Pattern matching is by glob; confirm ownership so "doc1" never
		// deletes "doc1-appendix" items.
		itemID := key[len(prefix):]
		if domain.DocIDFromItemID(itemID) != docID {
			continue
		}
		if err := r.store.Del(ctx, key); err != nil {
			return deleted, fmt.Errorf("del %s: %w", key, err)
		}
		deleted++
	}
	return deleted, nil
}

func (r *Repo) key(collection domain.Collection, itemID string) string {
	return fmt.Sprintf("%s%s:%s", r.cfg.KeyPrefix, collection, itemID)
}

func (r *Repo) indexName(collection domain.Collection) string {
	return fmt.Sprintf("%s%s:idx", r.cfg.KeyPrefix, collection)
}

func (r *Repo) indexDefinition(collection domain.Collection) *db.IndexDefinition {
	fields := []db.IndexField{
		{
			Name:              fieldVector,
			Type:              db.IndexFieldVector,
			VectorAlgo:        db.VectorHNSW,
			VectorDim:         r.cfg.Dim,
			VectorDistance:    db.DistanceCosine,
			VectorM:           r.cfg.HNSW.M,
			VectorEFConstruct: r.cfg.HNSW.EFConstruct,
		},
		{Name: fieldDocID, Type: db.IndexFieldTag},
		{Name: fieldFilename, Type: db.IndexFieldTag},
		{Name: fieldCreatedAt, Type: db.IndexFieldNumeric},
	}

	if collection == domain.CollectionVisual {
		fields = append(fields, db.IndexField{Name: fieldPage, Type: db.IndexFieldNumeric})
	} else {
		fields = append(fields, db.IndexField{Name: fieldChunk, Type: db.IndexFieldNumeric})
	}

	return &db.IndexDefinition{
		Name:     r.indexName(collection),
		Prefixes: []string{r.key(collection, "")},
		Fields:   fields,
	}
}
