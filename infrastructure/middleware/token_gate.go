package middleware

import (
	"crypto/sha256"
	"crypto/subtle"

	"github.com/ahrav/go-ballot/internal/ports"
)

var _ ports.AccessGate = (*TokenGate)(nil)

// TokenGate authorizes a credential by comparing it with a configured
// token in constant time. Both sides are hashed first so the comparison
// does not leak the token's length. A gate with an empty token denies
// everything.
type TokenGate struct {
	digest  [sha256.Size]byte
	enabled bool
}

// NewTokenGate creates a gate for token.
func NewTokenGate(token string) *TokenGate {
	if token == "" {
		return &TokenGate{}
	}
	return &TokenGate{digest: sha256.Sum256([]byte(token)), enabled: true}
}

// Authorize implements ports.AccessGate.
func (g *TokenGate) Authorize(credential string) bool {
	if g == nil || !g.enabled || credential == "" {
		return false
	}
	got := sha256.Sum256([]byte(credential))
	return subtle.ConstantTimeCompare(got[:], g.digest[:]) == 1
}
