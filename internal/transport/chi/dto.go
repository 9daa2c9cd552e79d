package chi

import (
	"fmt"
	"strconv"

	"github.com/kailas-cloud/multivec/internal/domain"
	dombatch "github.com/kailas-cloud/multivec/internal/domain/batch"
	"github.com/kailas-cloud/multivec/internal/domain/search/filter"
	"github.com/kailas-cloud/multivec/internal/domain/search/mode"
	"github.com/kailas-cloud/multivec/internal/domain/search/request"
	"github.com/kailas-cloud/multivec/internal/domain/search/result"
)

// ErrorCode identifies an API error category.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest            ErrorCode = "bad_request"
	CodeValidationFailed      ErrorCode = "validation_failed"
	CodeItemNotFound          ErrorCode = "item_not_found"
	CodeInvalidEmbeddingShape ErrorCode = "invalid_embedding_shape"
	CodePayloadTooLarge       ErrorCode = "payload_too_large"
	CodeEmbeddingProvider     ErrorCode = "embedding_provider_error"
	CodePartialDelete         ErrorCode = "partial_delete"
	CodeInternalError         ErrorCode = "internal_error"
)

// ErrorResponse is the uniform API error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the POST /api/v1/search body. Pointer fields distinguish
// "absent" (defaulted) from "explicitly invalid".
type SearchRequest struct {
	Query            string            `json:"query"`
	SearchMode       *string           `json:"search_mode,omitempty"`
	NResults         *int              `json:"n_results,omitempty"`
	Filters          *FilterExpression `json:"filters,omitempty"`
	EnableReranking  *bool             `json:"enable_reranking,omitempty"`
	RerankCandidates *int              `json:"rerank_candidates,omitempty"`
}

// FilterExpression is the wire form of a metadata pre-filter.
type FilterExpression struct {
	Must    []FilterCondition `json:"must,omitempty"`
	MustNot []FilterCondition `json:"must_not,omitempty"`
}

// FilterCondition is one filter clause: exact match or numeric range.
type FilterCondition struct {
	Key   string       `json:"key"`
	Match *string      `json:"match,omitempty"`
	Range *RangeFilter `json:"range,omitempty"`
}

// RangeFilter is an inclusive numeric range.
type RangeFilter struct {
	Gte *float64 `json:"gte,omitempty"`
	Lte *float64 `json:"lte,omitempty"`
}

// SearchResultItem is one ranked hit. PageOrChunk is the page number for
// visual hits and the chunk ordinal for text hits.
type SearchResultItem struct {
	ItemID      string            `json:"item_id"`
	DocID       string            `json:"doc_id"`
	Collection  string            `json:"collection"`
	Score       float64           `json:"score"`
	Filename    string            `json:"filename"`
	PageOrChunk int               `json:"page_or_chunk"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// TimingInfo reports per-stage latency in milliseconds.
type TimingInfo struct {
	EmbedMS  float64 `json:"embed_ms"`
	Stage1MS float64 `json:"stage1_ms"`
	Stage2MS float64 `json:"stage2_ms"`
	MergeMS  float64 `json:"merge_ms"`
	TotalMS  float64 `json:"total_ms"`
}

// SearchResponse is the POST /api/v1/search response body.
type SearchResponse struct {
	Results      []SearchResultItem `json:"results"`
	TotalResults int                `json:"total_results"`
	Timing       TimingInfo         `json:"timing"`
}

// ItemMetadata is the wire form of item metadata.
type ItemMetadata struct {
	Filename   string `json:"filename,omitempty"`
	SourcePath string `json:"source_path,omitempty"`
	CreatedAt  int64  `json:"created_at,omitempty"`
	Preview    string `json:"preview,omitempty"`
	WordCount  int    `json:"word_count,omitempty"`
}

// PutItemRequest is one item to ingest: identity, token matrix and metadata.
type PutItemRequest struct {
	DocID      string        `json:"doc_id"`
	Collection string        `json:"collection"`
	Ordinal    int           `json:"ordinal"`
	Matrix     [][]float32   `json:"matrix"`
	Metadata   *ItemMetadata `json:"metadata,omitempty"`
}

// PutItemResponse returns the deterministic item id of a stored item.
type PutItemResponse struct {
	ItemID string `json:"item_id"`
}

// BatchPutRequest is the POST /api/v1/items/batch body.
type BatchPutRequest struct {
	Items []PutItemRequest `json:"items"`
}

// BatchResultItem is the per-item outcome of a batch ingest.
type BatchResultItem struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Error  *ErrorResponse `json:"error,omitempty"`
}

// BatchPutResponse summarizes a batch ingest.
type BatchPutResponse struct {
	Items     []BatchResultItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// DeleteDocumentResponse reports per-collection deletion counts.
type DeleteDocumentResponse struct {
	DocID         string `json:"doc_id"`
	VisualDeleted int    `json:"visual_deleted"`
	TextDeleted   int    `json:"text_deleted"`
}

// StatsResponse reports per-collection item counts.
type StatsResponse struct {
	VisualCount int `json:"visual_count"`
	TextCount   int `json:"text_count"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// --- Wire -> domain conversions ---

func searchRequestFromDTO(req *SearchRequest) (request.Request, error) {
	var m mode.Mode
	if req.SearchMode != nil {
		m = mode.Mode(*req.SearchMode)
	}

	filters, err := filtersFromDTO(req.Filters)
	if err != nil {
		return request.Request{}, fmt.Errorf("%w: parse filters: %w", domain.ErrValidation, err)
	}

	nResults := request.DefaultNResults
	if req.NResults != nil {
		nResults = *req.NResults
	}

	rerank := true
	if req.EnableReranking != nil {
		rerank = *req.EnableReranking
	}

	rerankCandidates := 0
	if req.RerankCandidates != nil {
		rerankCandidates = *req.RerankCandidates
	}

	return request.New(req.Query, m, filters, nResults, rerank, rerankCandidates)
}

func filtersFromDTO(f *FilterExpression) (filter.Expression, error) {
	if f == nil {
		return filter.Expression{}, nil
	}

	must, err := conditionsFromDTO(f.Must)
	if err != nil {
		return filter.Expression{}, err
	}
	mustNot, err := conditionsFromDTO(f.MustNot)
	if err != nil {
		return filter.Expression{}, err
	}

	return filter.NewExpression(must, mustNot)
}

func conditionsFromDTO(cs []FilterCondition) ([]filter.Condition, error) {
	if len(cs) == 0 {
		return nil, nil
	}
	out := make([]filter.Condition, 0, len(cs))
	for _, c := range cs {
		cond, err := conditionFromDTO(c)
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

func conditionFromDTO(c FilterCondition) (filter.Condition, error) {
	if c.Match != nil && c.Range != nil {
		return filter.Condition{},
			fmt.Errorf("filter condition for %q must have match or range, not both", c.Key)
	}
	if c.Match != nil {
		return filter.NewMatch(c.Key, *c.Match)
	}
	if c.Range != nil {
		rf, err := filter.NewRangeFilter(c.Range.Gte, c.Range.Lte)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("range filter: %w", err)
		}
		return filter.NewRange(c.Key, rf)
	}
	return filter.Condition{},
		fmt.Errorf("filter condition for %q must have either match or range", c.Key)
}

func itemFromDTO(req *PutItemRequest) (domain.StoredItem, error) {
	matrix, err := domain.MatrixFromRows(req.Matrix)
	if err != nil {
		return domain.StoredItem{}, err
	}

	var meta ItemMetadata
	if req.Metadata != nil {
		meta = *req.Metadata
	}
	base := domain.NewMetadata(meta.Filename, meta.SourcePath, meta.CreatedAt)

	switch domain.Collection(req.Collection) {
	case domain.CollectionVisual:
		return domain.NewVisualItem(req.DocID, req.Ordinal, matrix,
			domain.VisualMetadata{Metadata: base})
	case domain.CollectionText:
		return domain.NewTextItem(req.DocID, req.Ordinal, matrix,
			domain.NewTextMetadata(base, meta.Preview, meta.WordCount))
	default:
		return domain.StoredItem{}, fmt.Errorf("%w: unknown collection %q",
			domain.ErrValidation, req.Collection)
	}
}

// --- Domain -> wire conversions ---

func searchResponseToDTO(resp *result.Response) SearchResponse {
	items := make([]SearchResultItem, len(resp.Results))
	for i, r := range resp.Results {
		fields := r.Fields()
		items[i] = SearchResultItem{
			ItemID:      r.ItemID(),
			DocID:       r.DocID(),
			Collection:  string(r.Collection()),
			Score:       r.Score(),
			Filename:    fields["filename"],
			PageOrChunk: ordinalFromFields(fields),
			Metadata:    fields,
		}
	}
	return SearchResponse{
		Results:      items,
		TotalResults: resp.Total,
		Timing: TimingInfo{
			EmbedMS:  resp.Timing.EmbedMS,
			Stage1MS: resp.Timing.Stage1MS,
			Stage2MS: resp.Timing.Stage2MS,
			MergeMS:  resp.Timing.MergeMS,
			TotalMS:  resp.Timing.TotalMS,
		},
	}
}

// ordinalFromFields reads the stored page or chunk number, whichever the
// record carries.
func ordinalFromFields(fields map[string]string) int {
	raw, ok := fields["page"]
	if !ok {
		raw = fields["chunk"]
	}
	n, _ := strconv.Atoi(raw)
	return n
}

func batchResultToDTO(r dombatch.Result) BatchResultItem {
	item := BatchResultItem{
		ID:     r.ID(),
		Status: string(r.Status()),
	}
	if r.Err() != nil {
		item.Error = &ErrorResponse{
			Code:    batchErrorCode(r.Err()),
			Message: safeDomainMessage(r.Err()),
		}
	}
	return item
}
