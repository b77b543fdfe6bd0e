package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-labs/bioindex/internal/core/domain"
	"github.com/custodia-labs/bioindex/internal/logger"
)

type storeRequest struct {
	Summary          string         `json:"summary"`
	DatasetTitle     string         `json:"dataset_title"`
	CID              string         `json:"cid"`
	FileType         string         `json:"file_type,omitempty"`
	OwnerAddress     string         `json:"owner_address,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	ExtractedContent string         `json:"extracted_content,omitempty"`
}

type storeResponse struct {
	Message       string `json:"message"`
	CID           string `json:"cid"`
	DocID         string `json:"doc_id"`
	ContentChunks int    `json:"content_chunks"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type filterRequest struct {
	Filters  map[string]any `json:"filters"`
	NResults int            `json:"n_results,omitempty"`
}

type searchWithFilterRequest struct {
	Query    string         `json:"query"`
	Filters  map[string]any `json:"filters,omitempty"`
	NResults int            `json:"n_results,omitempty"`
}

// searchEnhancedRequest uses pointers for the weights so an explicit
// zero survives decoding; a zero content weight is a valid request.
type searchEnhancedRequest struct {
	Query          string         `json:"query"`
	ContentWeight  *float64       `json:"content_weight,omitempty"`
	MetadataWeight *float64       `json:"metadata_weight,omitempty"`
	NResults       int            `json:"n_results,omitempty"`
	Filters        map[string]any `json:"filters,omitempty"`
}

type hitDTO struct {
	ID            string         `json:"id"`
	CID           string         `json:"cid,omitempty"`
	Score         float64        `json:"score"`
	Summary       string         `json:"summary,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	ContentScore  float64        `json:"content_score,omitempty"`
	MetadataScore float64        `json:"metadata_score,omitempty"`
}

type resultsResponse struct {
	Results []hitDTO `json:"results"`
}

type filterResponse struct {
	Results    []hitDTO `json:"results"`
	TotalFound int      `json:"total_found"`
}

type enhancedResponse struct {
	Results      []hitDTO            `json:"results"`
	SearchConfig domain.SearchConfig `json:"search_config"`
}

type documentResponse struct {
	ID       string         `json:"id"`
	CID      string         `json:"cid"`
	Summary  string         `json:"summary"`
	Metadata map[string]any `json:"metadata"`
}

type updateRequest struct {
	Summary      string         `json:"summary,omitempty"`
	DatasetTitle string         `json:"dataset_title,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	OwnerAddress string         `json:"owner_address"`
	Signature    string         `json:"signature"`
}

type updateResponse struct {
	Message string `json:"message"`
	OldID   string `json:"old_id"`
	NewID   string `json:"new_id"`
}

type deleteRequest struct {
	OwnerAddress string `json:"owner_address"`
	Signature    string `json:"signature"`
}

type deleteResponse struct {
	Message   string `json:"message"`
	DeletedID string `json:"deleted_id"`
}

func toHitDTOs(hits []domain.SearchHit) []hitDTO {
	out := make([]hitDTO, len(hits))
	for i, h := range hits {
		out[i] = hitDTO{
			ID:            h.DocumentID,
			CID:           h.CID,
			Score:         h.Score,
			Summary:       h.Summary,
			Metadata:      h.Metadata,
			ContentScore:  h.ContentScore,
			MetadataScore: h.MetadataScore,
		}
	}
	return out
}

// decodeBody decodes the JSON request body into dst, writing a
// validation error and returning false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("VALIDATION", "invalid JSON body"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("encoding response: %v", err)
	}
}

func errorBody(code, message string) map[string]any {
	return map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	}
}

// writeError maps domain errors onto the HTTP status taxonomy. Details
// of unexpected errors are logged server-side and never returned to the
// caller; authorization error messages never contain the proof value.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody("VALIDATION", err.Error()))
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("NOT_FOUND", "document not found"))
	case errors.Is(err, domain.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorBody("UNAUTHENTICATED", "missing or rejected authorization proof"))
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody("FORBIDDEN", "caller does not own this document"))
	case errors.Is(err, domain.ErrCollectionUnavailable), errors.Is(err, domain.ErrEmbeddingUnavailable):
		logger.Warn("upstream unavailable: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, errorBody("UPSTREAM_UNAVAILABLE", "index backend unavailable"))
	default:
		logger.Error("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("INTERNAL", "internal server error"))
	}
}
