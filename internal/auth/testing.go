package auth

import (
	"context"
	"crypto/rsa"
)

// TestKeyID is the kid NewTestJWKS registers its key under.
const TestKeyID = "test-key-id"

// ContextWithPrincipal adds a principal to the context for testing purposes
// This is exported to allow other packages to create test contexts
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// NewTestJWKS returns a key set holding only pub under TestKeyID. It never
// fetches or refreshes.
func NewTestJWKS(pub *rsa.PublicKey) *JWKS {
	return &JWKS{
		keys:   map[string]*rsa.PublicKey{TestKeyID: pub},
		static: true,
	}
}
