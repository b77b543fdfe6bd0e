package driving

import "context"

// UpdateRequest carries the caller's partial changes to a document.
// Empty fields keep the stored values.
type UpdateRequest struct {
	Summary      string
	DatasetTitle string
	Metadata     map[string]any

	// OwnerAddress is the caller's claimed identity, compared
	// case-insensitively against the stored owner.
	OwnerAddress string

	// Signature is the caller's authorization proof.
	Signature string
}

// UpdateResult reports the identifiers involved in an update.
type UpdateResult struct {
	// OldID is the superseded document.
	OldID string

	// NewID is the replacement document.
	NewID string
}

// MutationService applies ownership-gated document mutations.
type MutationService interface {
	// Update replaces a document: the merged document is stored under a
	// fresh identifier and the superseded record and its chunks are
	// removed.
	Update(ctx context.Context, id string, req UpdateRequest) (*UpdateResult, error)

	// Delete removes a document and cascades to its content chunks.
	Delete(ctx context.Context, id, ownerAddress, signature string) error
}
