package testutil

import (
	"crypto/rsa"
	"testing"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/auth"
)

// CreateTestVerifier returns a verifier that trusts a fresh key pair, and
// the private key to sign tokens with.
func CreateTestVerifier(t *testing.T) (*auth.Verifier, *rsa.PrivateKey) {
	t.Helper()

	privateKey, publicKey := GenerateTestKeyPair(t)
	verifier := auth.NewVerifier(auth.Config{Issuer: TestIssuer}, auth.NewTestJWKS(publicKey))
	return verifier, privateKey
}
