// Package chi exposes the search engine over HTTP with hand-written chi
// handlers. Domain sentinel errors map to status codes through an ordered
// errorHandler chain.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/multivec/internal/domain"
	dombatch "github.com/kailas-cloud/multivec/internal/domain/batch"
	"github.com/kailas-cloud/multivec/internal/domain/search/request"
	"github.com/kailas-cloud/multivec/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/multivec/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/multivec/internal/usecase/ingest"
)

// Searcher runs one validated search request.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) (*result.Response, error)
}

// Ingester writes and removes items.
type Ingester interface {
	Put(ctx context.Context, item *domain.StoredItem) (string, error)
	PutBatch(ctx context.Context, items []domain.StoredItem) []dombatch.Result
	DeleteDocument(ctx context.Context, docID string) (ingestuc.DeleteReport, error)
	Stats(ctx context.Context) (ingestuc.Stats, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API server.
type Server struct {
	search        Searcher
	ingest        Ingester
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, ingest Ingester, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		search: search,
		ingest: ingest,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		partialDeleteHandler,
		sentinelHandler(domain.ErrItemNotFound, http.StatusNotFound, CodeItemNotFound),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidEmbeddingShape, http.StatusBadRequest, CodeInvalidEmbeddingShape),
		sentinelHandler(domain.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, CodePayloadTooLarge),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, CodeEmbeddingProvider),
	}
	return s
}

// Routes registers all API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/v1/search", s.handleSearch)
	r.Put("/api/v1/items", s.handlePutItem)
	r.Post("/api/v1/items/batch", s.handlePutBatch)
	r.Delete("/api/v1/documents/{docID}", s.handleDeleteDocument)
	r.Get("/api/v1/stats", s.handleStats)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
}

// handleSearch handles POST /api/v1/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	domReq, err := searchRequestFromDTO(&req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp, err := s.search.Search(r.Context(), &domReq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponseToDTO(resp))
}

// handlePutItem handles PUT /api/v1/items.
func (s *Server) handlePutItem(w http.ResponseWriter, r *http.Request) {
	var req PutItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	item, err := itemFromDTO(&req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	id, err := s.ingest.Put(r.Context(), &item)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, PutItemResponse{ItemID: id})
}

// handlePutBatch handles POST /api/v1/items/batch.
func (s *Server) handlePutBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchPutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "items are required")
		return
	}

	items := make([]domain.StoredItem, 0, len(req.Items))
	for i := range req.Items {
		item, err := itemFromDTO(&req.Items[i])
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		items = append(items, item)
	}

	results := s.ingest.PutBatch(r.Context(), items)

	succeeded, failed := 0, 0
	out := make([]BatchResultItem, len(results))
	for i, res := range results {
		out[i] = batchResultToDTO(res)
		if res.Status() == dombatch.StatusOK {
			succeeded++
		} else {
			failed++
		}
	}

	writeJSON(w, http.StatusOK, BatchPutResponse{
		Items:     out,
		Succeeded: succeeded,
		Failed:    failed,
	})
}

// handleDeleteDocument handles DELETE /api/v1/documents/{docID}.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")

	report, err := s.ingest.DeleteDocument(r.Context(), docID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DeleteDocumentResponse{
		DocID:         docID,
		VisualDeleted: report.VisualDeleted,
		TextDeleted:   report.TextDeleted,
	})
}

// handleStats handles GET /api/v1/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ingest.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		VisualCount: stats.VisualCount,
		TextCount:   stats.TextCount,
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// handleMetrics handles GET /metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrItemNotFound,
		domain.ErrValidation,
		domain.ErrInvalidEmbeddingShape,
		domain.ErrPayloadTooLarge,
		domain.ErrEmbeddingProvider,
		domain.ErrPartialDelete,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// partialDeleteHandler reports an interrupted document deletion with the
// counts that did complete, so the caller can retry with full information.
func partialDeleteHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrPartialDelete) {
		return false
	}
	var pde *domain.PartialDeleteError
	if errors.As(err, &pde) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"code":           CodePartialDelete,
			"message":        msg,
			"visual_deleted": pde.VisualDeleted,
			"text_deleted":   pde.TextDeleted,
		})
		return true
	}
	writeError(w, http.StatusInternalServerError, CodePartialDelete, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func batchErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		return CodeItemNotFound
	case errors.Is(err, domain.ErrInvalidEmbeddingShape):
		return CodeInvalidEmbeddingShape
	case errors.Is(err, domain.ErrPayloadTooLarge):
		return CodePayloadTooLarge
	case errors.Is(err, domain.ErrValidation):
		return CodeValidationFailed
	default:
		return CodeInternalError
	}
}
