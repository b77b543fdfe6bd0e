package driving

import (
	"context"

	"github.com/custodia-labs/bioindex/internal/core/domain"
)

// StoreRequest carries a new document to ingest.
type StoreRequest struct {
	// Summary is the human-authored dataset description (required).
	Summary string

	// DatasetTitle is the display title (required).
	DatasetTitle string

	// CID is the content identifier of the dataset payload (required).
	CID string

	// FileType describes the original file format (optional).
	FileType string

	// OwnerAddress is recorded on the document for mutation checks.
	OwnerAddress string

	// Metadata contains caller-supplied scalar key-value pairs.
	Metadata map[string]any

	// ExtractedContent is optional long-form text to chunk and index.
	ExtractedContent string
}

// StoreResult reports the outcome of an ingestion.
type StoreResult struct {
	// DocumentID is the freshly allocated document identifier.
	DocumentID string

	// ChunkCount is the number of content chunks written (0 if none).
	ChunkCount int
}

// IndexService ingests documents and retrieves them by identifier.
type IndexService interface {
	// Store writes a new document to the metadata index and, when
	// extracted content is present, its chunks to the content index.
	Store(ctx context.Context, req StoreRequest) (*StoreResult, error)

	// Get retrieves a stored document by identifier.
	// Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Document, error)
}
