// Package httpapi exposes the index over HTTP with JSON bodies.
//
// The adapter is transport glue only: it decodes requests, calls the
// driving ports and maps domain errors onto the HTTP status taxonomy.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/bioindex/internal/core/domain"
	"github.com/custodia-labs/bioindex/internal/core/ports/driving"
	"github.com/custodia-labs/bioindex/internal/logger"
)

// Default values applied to absent request fields.
const (
	DefaultSearchK       = 5
	DefaultFilterResults = 10
)

// Config wires the server's dependencies.
type Config struct {
	Index    driving.IndexService
	Search   driving.SearchService
	Mutation driving.MutationService

	// RequestTimeout bounds each search request (0 disables).
	RequestTimeout time.Duration

	// RateLimit and RateBurst configure the global limiter (0 disables).
	RateLimit float64
	RateBurst int

	// Backend names the collection backend, echoed by the health check.
	Backend string
}

// Server handles the HTTP routes.
type Server struct {
	index    driving.IndexService
	search   driving.SearchService
	mutation driving.MutationService

	timeout time.Duration
	limiter *rate.Limiter
	backend string
}

// NewServer creates a Server from the given dependencies.
func NewServer(cfg Config) *Server {
	s := &Server{
		index:    cfg.Index,
		search:   cfg.Search,
		mutation: cfg.Mutation,
		timeout:  cfg.RequestTimeout,
		backend:  cfg.Backend,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = int(cfg.RateLimit)
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s
}

// Handler returns the routed HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /store", s.handleStore)
	mux.HandleFunc("POST /search", s.withTimeout(s.handleSearch))
	mux.HandleFunc("POST /filter", s.withTimeout(s.handleFilter))
	mux.HandleFunc("POST /search_with_filter", s.withTimeout(s.handleSearchWithFilter))
	mux.HandleFunc("POST /search_enhanced", s.withTimeout(s.handleSearchEnhanced))
	mux.HandleFunc("GET /documents/{id}", s.handleGetDocument)
	mux.HandleFunc("PUT /documents/{id}", s.handleUpdateDocument)
	mux.HandleFunc("DELETE /documents/{id}", s.handleDeleteDocument)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	return s.rateLimit(mux)
}

// ListenAndServe runs the server until ctx is cancelled, then shuts it
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("listening on %s", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// rateLimit applies the global request limiter. The health check is
// exempt so probes keep answering under load.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" && !s.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, errorBody("RATE_LIMITED", "too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withTimeout bounds a search handler's context. An expired deadline
// aborts both index queries and surfaces as an upstream failure.
func (s *Server) withTimeout(next http.HandlerFunc) http.HandlerFunc {
	if s.timeout <= 0 {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}

// handleHealthz reports service and backend status.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "bioindex",
		"backend": s.backend,
	})
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.index.Store(r.Context(), driving.StoreRequest{
		Summary:          req.Summary,
		DatasetTitle:     req.DatasetTitle,
		CID:              req.CID,
		FileType:         req.FileType,
		OwnerAddress:     req.OwnerAddress,
		Metadata:         req.Metadata,
		ExtractedContent: req.ExtractedContent,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, storeResponse{
		Message:       "Stored successfully",
		CID:           req.CID,
		DocID:         result.DocumentID,
		ContentChunks: result.ChunkCount,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("VALIDATION", "query is required"))
		return
	}

	hits, err := s.search.Search(r.Context(), req.Query, nil, DefaultSearchK)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultsResponse{Results: toHitDTOs(hits)})
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Filters) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("VALIDATION", "filters are required"))
		return
	}
	limit := req.NResults
	if limit <= 0 {
		limit = DefaultFilterResults
	}

	result, err := s.search.Filter(r.Context(), req.Filters, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, filterResponse{
		Results:    toHitDTOs(result.Hits),
		TotalFound: result.TotalFound,
	})
}

func (s *Server) handleSearchWithFilter(w http.ResponseWriter, r *http.Request) {
	var req searchWithFilterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("VALIDATION", "query is required"))
		return
	}
	k := req.NResults
	if k <= 0 {
		k = DefaultSearchK
	}

	hits, err := s.search.Search(r.Context(), req.Query, req.Filters, k)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultsResponse{Results: toHitDTOs(hits)})
}

func (s *Server) handleSearchEnhanced(w http.ResponseWriter, r *http.Request) {
	var req searchEnhancedRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("VALIDATION", "query is required"))
		return
	}

	k := req.NResults
	if k <= 0 {
		k = DefaultFilterResults
	}
	contentWeight := domain.DefaultContentWeight
	metadataWeight := domain.DefaultMetadataWeight
	if req.ContentWeight != nil {
		contentWeight = *req.ContentWeight
	}
	if req.MetadataWeight != nil {
		metadataWeight = *req.MetadataWeight
	}

	hits, err := s.search.SearchEnhanced(r.Context(), req.Query, req.Filters, k,
		contentWeight, metadataWeight)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, enhancedResponse{
		Results: toHitDTOs(hits),
		SearchConfig: domain.SearchConfig{
			ContentWeight:  contentWeight,
			MetadataWeight: metadataWeight,
			NResults:       k,
		},
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.index.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{
		ID:       doc.ID,
		CID:      doc.CID,
		Summary:  doc.Summary,
		Metadata: doc.Metadata,
	})
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.OwnerAddress == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("VALIDATION", "owner_address is required"))
		return
	}

	result, err := s.mutation.Update(r.Context(), r.PathValue("id"), driving.UpdateRequest{
		Summary:      req.Summary,
		DatasetTitle: req.DatasetTitle,
		Metadata:     req.Metadata,
		OwnerAddress: req.OwnerAddress,
		Signature:    req.Signature,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{
		Message: "Updated successfully",
		OldID:   result.OldID,
		NewID:   result.NewID,
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.OwnerAddress == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("VALIDATION", "owner_address is required"))
		return
	}

	id := r.PathValue("id")
	if err := s.mutation.Delete(r.Context(), id, req.OwnerAddress, req.Signature); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{
		Message:   "Deleted successfully",
		DeletedID: id,
	})
}
