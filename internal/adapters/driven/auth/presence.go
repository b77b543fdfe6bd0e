// Package auth provides signature verifier adapters for the mutation gate.
package auth

import (
	"context"
	"strings"

	"github.com/custodia-labs/bioindex/internal/core/ports/driven"
)

// Ensure PresenceVerifier implements the interface.
var _ driven.SignatureVerifier = (*PresenceVerifier)(nil)

// PresenceVerifier accepts any non-empty signature. It performs no
// cryptographic check; swapping in a recovering verifier (e.g. EIP-191
// personal_sign recovery against the claimed address) requires no change
// to the callers.
type PresenceVerifier struct{}

// NewPresenceVerifier creates a presence-only verifier.
func NewPresenceVerifier() *PresenceVerifier {
	return &PresenceVerifier{}
}

// Verify reports whether the signature is present.
func (v *PresenceVerifier) Verify(_ context.Context, _, _, signature string) (bool, error) {
	return strings.TrimSpace(signature) != "", nil
}
