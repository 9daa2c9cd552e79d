package client

import "fmt"

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("multivec: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// SearchRequest holds search parameters. Zero values fall back to server
// defaults (mode=hybrid, n_results=10, re-ranking on).
type SearchRequest struct {
	Query            string            `json:"query"`
	SearchMode       string            `json:"search_mode,omitempty"`
	NResults         int               `json:"n_results,omitempty"`
	Filters          *FilterExpression `json:"filters,omitempty"`
	EnableReranking  *bool             `json:"enable_reranking,omitempty"`
	RerankCandidates int               `json:"rerank_candidates,omitempty"`
}

// FilterExpression is a metadata pre-filter with must/must_not semantics.
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

// SearchResult is one ranked hit. PageOrChunk is the page number for visual
// hits and the chunk ordinal for text hits.
type SearchResult struct {
	ItemID      string            `json:"item_id"`
	DocID       string            `json:"doc_id"`
	Collection  string            `json:"collection"`
	Score       float64           `json:"score"`
	Filename    string            `json:"filename"`
	PageOrChunk int               `json:"page_or_chunk"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Timing reports per-stage latency in milliseconds.
type Timing struct {
	EmbedMS  float64 `json:"embed_ms"`
	Stage1MS float64 `json:"stage1_ms"`
	Stage2MS float64 `json:"stage2_ms"`
	MergeMS  float64 `json:"merge_ms"`
	TotalMS  float64 `json:"total_ms"`
}

// SearchResponse is the outcome of one search call.
type SearchResponse struct {
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`
	Timing       Timing         `json:"timing"`
}

// Metadata holds optional item metadata.
type Metadata struct {
	Filename   string `json:"filename,omitempty"`
	SourcePath string `json:"source_path,omitempty"`
	CreatedAt  int64  `json:"created_at,omitempty"`
	Preview    string `json:"preview,omitempty"`
	WordCount  int    `json:"word_count,omitempty"`
}

// Item is one item to ingest: document identity, the token matrix (one row
// per token) and metadata.
type Item struct {
	DocID      string      `json:"doc_id"`
	Collection string      `json:"collection"` // "visual" or "text"
	Ordinal    int         `json:"ordinal"`
	Matrix     [][]float32 `json:"matrix"`
	Metadata   *Metadata   `json:"metadata,omitempty"`
}

type putItemResponse struct {
	ItemID string `json:"item_id"`
}

type batchPutRequest struct {
	Items []Item `json:"items"`
}

// BatchItemResult is the per-item outcome of a batch ingest.
type BatchItemResult struct {
	ID     string `json:"id"`
	Status string `json:"status"` // "ok" or "error"
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// BatchResult summarizes a batch ingest.
type BatchResult struct {
	Items     []BatchItemResult `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// DeleteResult reports per-collection deletion counts for one document.
type DeleteResult struct {
	DocID         string `json:"doc_id"`
	VisualDeleted int    `json:"visual_deleted"`
	TextDeleted   int    `json:"text_deleted"`
}

// Stats reports per-collection item counts.
type Stats struct {
	VisualCount int `json:"visual_count"`
	TextCount   int `json:"text_count"`
}

// HealthStatus is the aggregated system health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"`
}
