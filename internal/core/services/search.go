package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/bioindex/internal/core/domain"
	"github.com/custodia-labs/bioindex/internal/core/ports/driven"
	"github.com/custodia-labs/bioindex/internal/core/ports/driving"
	"github.com/custodia-labs/bioindex/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// DefaultK is the result count when the caller does not specify one.
const DefaultK = 5

// fusedHit holds per-document scores while the union is assembled.
type fusedHit struct {
	docID         string
	contentScore  float64
	metadataScore float64
	summary       string
	metadata      map[string]any
}

// SearchService answers filter, semantic and hybrid search requests over
// the two index collections.
type SearchService struct {
	metadata driven.Collection
	content  driven.Collection
}

// NewSearchService creates a new search service.
func NewSearchService(metadata, content driven.Collection) *SearchService {
	return &SearchService{
		metadata: metadata,
		content:  content,
	}
}

// distanceScore converts a similarity distance into a score in (0,1].
func distanceScore(distance float64) float64 {
	return 1 / (1 + distance)
}

// BuildFilter drops falsy entries and lifts the remainder into a
// collection filter. A single-entry filter and the multi-entry AND path
// produce equivalent query semantics; empty means no restriction.
func BuildFilter(filter map[string]any) driven.Filter {
	if len(filter) == 0 {
		return nil
	}
	out := make(driven.Filter, len(filter))
	for k, v := range filter {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			if val == "" {
				continue
			}
		case bool:
			if !val {
				continue
			}
		case float64:
			if val == 0 {
				continue
			}
		case int:
			if val == 0 {
				continue
			}
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Search performs a semantic query against the metadata index only.
func (s *SearchService) Search(
	ctx context.Context, query string, filter map[string]any, k int,
) ([]domain.SearchHit, error) {
	if s.metadata == nil {
		return nil, domain.ErrCollectionUnavailable
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if k <= 0 {
		k = DefaultK
	}

	hits, err := s.metadata.Query(ctx, query, BuildFilter(filter), k)
	if err != nil {
		return nil, fmt.Errorf("metadata search: %w", err)
	}

	results := make([]domain.SearchHit, len(hits))
	for i, hit := range hits {
		score := distanceScore(hit.Distance)
		results[i] = domain.SearchHit{
			DocumentID:    hit.ID,
			CID:           cidOf(hit.Metadata),
			Score:         score,
			Summary:       hit.Text,
			Metadata:      hit.Metadata,
			MetadataScore: score,
		}
	}
	return results, nil
}

// Filter returns documents matching the given metadata equalities without
// ranking. TotalFound reports the match count before truncation.
func (s *SearchService) Filter(
	ctx context.Context, filter map[string]any, limit int,
) (*driving.FilterResult, error) {
	if s.metadata == nil {
		return nil, domain.ErrCollectionUnavailable
	}

	records, err := s.metadata.Find(ctx, BuildFilter(filter), 0)
	if err != nil {
		return nil, fmt.Errorf("metadata filter: %w", err)
	}

	total := len(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	hits := make([]domain.SearchHit, len(records))
	for i, rec := range records {
		hits[i] = domain.SearchHit{
			DocumentID: rec.ID,
			CID:        cidOf(rec.Metadata),
			Summary:    rec.Text,
			Metadata:   rec.Metadata,
		}
	}
	return &driving.FilterResult{Hits: hits, TotalFound: total}, nil
}

// SearchEnhanced performs hybrid search: the content and metadata indexes
// are queried in parallel and their result sets merged by weighted rank
// fusion. Content-index failure degrades to metadata-only ranking;
// metadata-index failure or a cancelled context fails the request.
func (s *SearchService) SearchEnhanced(
	ctx context.Context, query string, filter map[string]any, k int,
	contentWeight, metadataWeight float64,
) ([]domain.SearchHit, error) {
	if s.metadata == nil || s.content == nil {
		return nil, domain.ErrCollectionUnavailable
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if k <= 0 {
		k = DefaultK
	}

	sum := contentWeight + metadataWeight
	if sum <= 0 {
		return nil, fmt.Errorf("%w: content_weight and metadata_weight must sum to a positive value", domain.ErrInvalidInput)
	}
	wContent := contentWeight / sum
	wMetadata := 1 - wContent

	logger.Debug("hybrid search: query=%q k=%d w_content=%.3f w_metadata=%.3f", query, k, wContent, wMetadata)

	// The two index queries are independent; fan out in parallel.
	var contentHits, metadataHits []driven.Hit
	var contentErr, metadataErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		// Oversample 2k chunks: a document may surface several chunks.
		contentHits, contentErr = s.content.Query(ctx, query, nil, 2*k)
	}()
	go func() {
		defer wg.Done()
		metadataHits, metadataErr = s.metadata.Query(ctx, query, BuildFilter(filter), k)
	}()
	wg.Wait()

	// An aborted fan-out is a hard failure, not a degraded answer.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("hybrid search aborted: %w", err)
	}
	if metadataErr != nil {
		// Metadata search is the mandatory baseline capability.
		return nil, fmt.Errorf("metadata search: %w", metadataErr)
	}
	if contentErr != nil {
		logger.Warn("content search failed, degrading to metadata-only ranking: %v", contentErr)
		contentHits = nil
	}

	union := make(map[string]*fusedHit)
	var order []string

	// Group content hits by parent, keeping only the closest chunk.
	// Hits arrive closest first; ties resolve by return order.
	for _, hit := range contentHits {
		parentID, _ := hit.Metadata[domain.MetaParentDocID].(string)
		if parentID == "" {
			continue
		}
		if _, seen := union[parentID]; seen {
			continue
		}
		union[parentID] = &fusedHit{
			docID:        parentID,
			contentScore: distanceScore(hit.Distance),
			metadata:     hit.Metadata,
		}
		order = append(order, parentID)
	}

	for _, hit := range metadataHits {
		entry, seen := union[hit.ID]
		if !seen {
			entry = &fusedHit{docID: hit.ID}
			union[hit.ID] = entry
			order = append(order, hit.ID)
		}
		entry.metadataScore = distanceScore(hit.Distance)
		entry.summary = hit.Text
		entry.metadata = hit.Metadata
	}

	// Hydrate content-only hits with the parent document record.
	results := make([]domain.SearchHit, 0, len(order))
	for _, id := range order {
		entry := union[id]
		if entry.summary == "" {
			parent, err := s.metadata.Get(ctx, id)
			if err != nil {
				// Chunk references a parent absent from the metadata index.
				logger.Warn("content chunk references missing document %s: %v", id, err)
				continue
			}
			entry.summary = parent.Text
			entry.metadata = parent.Metadata
		}
		results = append(results, domain.SearchHit{
			DocumentID:    entry.docID,
			CID:           cidOf(entry.metadata),
			Score:         entry.contentScore*wContent + entry.metadataScore*wMetadata,
			Summary:       entry.summary,
			Metadata:      entry.metadata,
			ContentScore:  entry.contentScore,
			MetadataScore: entry.metadataScore,
		})
	}

	// Stable sort keeps union traversal order for equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}

	logger.Debug("hybrid search: %d fused results", len(results))
	return results, nil
}

func cidOf(metadata map[string]any) string {
	cid, _ := metadata[domain.MetaCID].(string)
	return cid
}
