package driven

import "context"

// SignatureVerifier checks a caller's authorization proof against the
// address claiming ownership of a document.
//
// The mutation gate requires the proof to be present before calling
// Verify; implementations decide how much of the proof to check. The
// shipped implementation is presence-only; cryptographic recovery of
// the signer slots in behind this interface without touching the
// gate's control flow.
type SignatureVerifier interface {
	// Verify reports whether signature proves that address authorized
	// the given payload. An error indicates the check itself failed,
	// not that the proof was rejected.
	Verify(ctx context.Context, address, payload, signature string) (bool, error)
}
