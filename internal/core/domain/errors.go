package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden indicates the caller does not own the document.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthenticated indicates the caller supplied no authorization proof.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrCollectionUnavailable indicates an index collection is not
	// configured or not reachable. Retryable once provisioned.
	ErrCollectionUnavailable = errors.New("collection unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Collections that embed locally cannot operate without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
