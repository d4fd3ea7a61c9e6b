package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/auth"
	"github.com/golang-jwt/jwt/v4"
)

// TestIssuer is the issuer CreateTestVerifier accepts.
const TestIssuer = "https://test-keycloak.com/realms/test"

// GenerateTestKeyPair generates an RSA key pair for testing JWT tokens
func GenerateTestKeyPair(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	return privateKey, &privateKey.PublicKey
}

// GenerateTestJWT signs a token carrying the application user id, the
// patient or doctor profile id (0 to omit) and realm roles.
func GenerateTestJWT(t *testing.T, privateKey *rsa.PrivateKey, userID, profileID int64, roles []string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":     "kc-test-user",
		"iss":     TestIssuer,
		"exp":     time.Now().Add(1 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
		"user_id": userID,
		"realm_access": map[string]interface{}{
			"roles": interfaceSlice(roles),
		},
	}
	if profileID != 0 {
		claims["profile_id"] = profileID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = auth.TestKeyID

	tokenString, err := token.SignedString(privateKey)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return tokenString
}

func GeneratePatientToken(t *testing.T, privateKey *rsa.PrivateKey, userID, patientID int64) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, userID, patientID, []string{auth.RolePatient})
}

func GenerateDoctorToken(t *testing.T, privateKey *rsa.PrivateKey, userID, doctorID int64) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, userID, doctorID, []string{auth.RoleDoctor})
}

func GenerateAdminToken(t *testing.T, privateKey *rsa.PrivateKey, userID int64) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, userID, 0, []string{auth.RoleAdmin})
}

// interfaceSlice converts []string to []interface{} for JWT claims
func interfaceSlice(strings []string) []interface{} {
	result := make([]interface{}, len(strings))
	for i, s := range strings {
		result[i] = s
	}
	return result
}
