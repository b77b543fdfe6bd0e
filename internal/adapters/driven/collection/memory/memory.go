// Package memory provides an in-process driven.Collection for tests and
// single-node deployments without persistence.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/bioindex/internal/adapters/driven/collection"
	"github.com/custodia-labs/bioindex/internal/core/domain"
	"github.com/custodia-labs/bioindex/internal/core/ports/driven"
)

// Ensure Collection implements the interface.
var _ driven.Collection = (*Collection)(nil)

// Collection is a mutex-guarded map of records with brute-force cosine
// ranking over embeddings.
type Collection struct {
	mu       sync.RWMutex
	embedder driven.EmbeddingService
	records  map[string]driven.Record
	vectors  map[string][]float32
	order    []string
}

// New creates an empty in-memory collection.
func New(embedder driven.EmbeddingService) *Collection {
	return &Collection{
		embedder: embedder,
		records:  make(map[string]driven.Record),
		vectors:  make(map[string][]float32),
	}
}

// Add inserts the given records as one batch, embedding their text.
func (c *Collection) Add(ctx context.Context, records []driven.Record) error {
	if len(records) == 0 {
		return nil
	}
	if c.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Text
	}
	vectors, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding batch: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, rec := range records {
		if _, exists := c.records[rec.ID]; !exists {
			c.order = append(c.order, rec.ID)
		}
		c.records[rec.ID] = rec
		c.vectors[rec.ID] = vectors[i]
	}
	return nil
}

// Get retrieves a record by identifier.
func (c *Collection) Get(_ context.Context, id string) (*driven.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// Find returns records matching the filter, in insertion order.
func (c *Collection) Find(_ context.Context, filter driven.Filter, limit int) ([]driven.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []driven.Record
	for _, id := range c.order {
		rec := c.records[id]
		if collection.MatchesFilter(rec.Metadata, filter) {
			out = append(out, rec)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// Query embeds the text and ranks matching records by cosine distance.
func (c *Collection) Query(ctx context.Context, text string, filter driven.Filter, k int) ([]driven.Hit, error) {
	if c.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	query, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	hits := make([]driven.Hit, 0, len(c.order))
	for _, id := range c.order {
		rec := c.records[id]
		if !collection.MatchesFilter(rec.Metadata, filter) {
			continue
		}
		hits = append(hits, driven.Hit{
			Record:   rec,
			Distance: collection.CosineDistance(query, c.vectors[id]),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Delete removes the records with the given identifiers.
func (c *Collection) Delete(_ context.Context, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if _, ok := c.records[id]; !ok {
			continue
		}
		delete(c.records, id)
		delete(c.vectors, id)
		for i, ordered := range c.order {
			if ordered == id {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Close releases resources.
func (c *Collection) Close() error {
	return nil
}
