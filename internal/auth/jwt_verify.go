package auth

import (
	"crypto/rsa"
	"errors"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// Realm roles understood by this service.
const (
	RolePatient = "PATIENT"
	RoleDoctor  = "DOCTOR"
	RoleAdmin   = "ADMIN"
)

// Principal holds identity extracted from a validated token. AppUserID is
// the users.id row behind the token and ProfileID the patients.id or
// doctors.id it acts as.
type Principal struct {
	Subject   string
	Email     string
	Roles     []string
	AppUserID int64
	ProfileID int64
	Claims    jwt.MapClaims
}

var (
	ErrNoToken         = errors.New("no token provided")
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidIssuer   = errors.New("invalid issuer")
	ErrInvalidAudience = errors.New("invalid audience")
	ErrMissingSub      = errors.New("missing sub claim")
	ErrMissingUserID   = errors.New("missing user_id claim")
)

// KeySource resolves a signing key by kid. *JWKS implements it.
type KeySource interface {
	Get(kid string) (*rsa.PublicKey, error)
}

type Verifier struct {
	cfg  Config
	keys KeySource
}

// NewVerifier constructs a verifier with config and a key source.
func NewVerifier(cfg Config, keys KeySource) *Verifier {
	return &Verifier{cfg: cfg, keys: keys}
}

// ParseAndVerifyToken verifies a bearer token, validates issuer, audience
// and expiry, and returns the Principal.
func (v *Verifier) ParseAndVerifyToken(tokenString string) (*Principal, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrNoToken
	}
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrInvalidToken
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" || v.keys == nil {
			return nil, ErrInvalidToken
		}
		return v.keys.Get(kid)
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if iss, _ := claims["iss"].(string); iss != v.cfg.Issuer {
		return nil, ErrInvalidIssuer
	}
	if v.cfg.Audience != "" && !claims.VerifyAudience(v.cfg.Audience, true) {
		return nil, ErrInvalidAudience
	}
	if !claims.VerifyExpiresAt(jwt.TimeFunc().Unix(), true) {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrMissingSub
	}

	userID, ok := int64Claim(claims, "user_id")
	if !ok {
		return nil, ErrMissingUserID
	}
	profileID, _ := int64Claim(claims, "profile_id")

	var roles []string
	if ra, ok := claims["realm_access"].(map[string]interface{}); ok {
		if rr, ok := ra["roles"].([]interface{}); ok {
			for _, r := range rr {
				if s, ok := r.(string); ok {
					roles = append(roles, s)
				}
			}
		}
	}

	email, _ := claims["email"].(string)

	return &Principal{
		Subject:   sub,
		Email:     email,
		Roles:     roles,
		AppUserID: userID,
		ProfileID: profileID,
		Claims:    claims,
	}, nil
}

// int64Claim accepts numbers (decoded as float64) and numeric strings.
func int64Claim(claims jwt.MapClaims, name string) (int64, bool) {
	switch v := claims[name].(type) {
	case float64:
		if v <= 0 || v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// HasRole compares case-insensitively, so realm roles like "doctor" match.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}
