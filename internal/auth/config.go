package auth

import "errors"

// Config holds auth configuration
type Config struct {
	Issuer   string
	JWKSURL  string
	Audience string
}

// Validate requires an issuer and a key endpoint. Audience is optional.
func (c Config) Validate() error {
	if c.Issuer == "" {
		return errors.New("auth issuer is required")
	}
	if c.JWKSURL == "" {
		return errors.New("auth JWKS URL is required")
	}
	return nil
}
