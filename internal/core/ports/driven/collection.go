package driven

import "context"

// Record is one stored index entry: an identifier, the indexed text and a
// flat metadata mapping of string keys to scalar values.
type Record struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// Hit is a similarity search result. Distance is the engine's native
// similarity distance: non-negative, smaller means closer.
type Hit struct {
	Record
	Distance float64
}

// Filter is a conjunction of single-field equality conditions.
// A nil or empty filter means "no restriction".
type Filter map[string]any

// Collection is a key-value + vector-similarity store. The core treats
// each call as atomic; implementations handle their own locking and must
// support concurrent readers and writers.
type Collection interface {
	// Add inserts the given records as one batch.
	Add(ctx context.Context, records []Record) error

	// Get retrieves a record by identifier.
	// Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*Record, error)

	// Find returns records whose metadata matches every filter entry,
	// in insertion order. limit <= 0 means unlimited.
	Find(ctx context.Context, filter Filter, limit int) ([]Record, error)

	// Query returns up to k records nearest to the query text, closest
	// first, restricted to records matching the filter.
	Query(ctx context.Context, text string, filter Filter, k int) ([]Hit, error)

	// Delete removes the records with the given identifiers.
	// Unknown identifiers are ignored.
	Delete(ctx context.Context, ids []string) error

	// Close releases resources.
	Close() error
}
