package driving

import (
	"context"

	"github.com/custodia-labs/bioindex/internal/core/domain"
)

// FilterResult is the outcome of an exact-match filter lookup.
type FilterResult struct {
	// Hits are the matching documents, unranked, truncated to the
	// requested limit.
	Hits []domain.SearchHit

	// TotalFound is the match count before truncation.
	TotalFound int
}

// SearchService answers filter, semantic and hybrid search requests.
type SearchService interface {
	// Search performs a semantic query against the metadata index only.
	// An empty filter means no restriction.
	Search(ctx context.Context, query string, filter map[string]any, k int) ([]domain.SearchHit, error)

	// Filter returns documents matching the given metadata equalities,
	// without ranking.
	Filter(ctx context.Context, filter map[string]any, limit int) (*FilterResult, error)

	// SearchEnhanced performs hybrid search: both indexes are queried and
	// the two result sets are merged by weighted rank fusion.
	SearchEnhanced(ctx context.Context, query string, filter map[string]any, k int,
		contentWeight, metadataWeight float64) ([]domain.SearchHit, error)
}
