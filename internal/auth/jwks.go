package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksJSON struct {
	Keys []jwkKey `json:"keys"`
}

var ErrKeyNotFound = errors.New("jwks: key not found")

// JWKS caches RSA public keys by kid.
type JWKS struct {
	url    string
	client *http.Client
	mu     sync.RWMutex
	keys   map[string]*rsa.PublicKey
	ticker *time.Ticker
	quit   chan struct{}
	static bool
}

var _ KeySource = (*JWKS)(nil)

// NewJWKS creates a JWKS instance and loads keys immediately. It also starts
// a background refresh every refreshInterval. Pass 0 to use default 15m.
func NewJWKS(url string, refreshInterval time.Duration) (*JWKS, error) {
	if refreshInterval <= 0 {
		refreshInterval = 15 * time.Minute
	}
	j := &JWKS{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		keys:   map[string]*rsa.PublicKey{},
		ticker: time.NewTicker(refreshInterval),
		quit:   make(chan struct{}),
	}
	if err := j.refresh(); err != nil {
		j.ticker.Stop()
		return nil, fmt.Errorf("failed to load JWKS from %s: %w", url, err)
	}
	go j.loop()
	return j, nil
}

func (j *JWKS) loop() {
	for {
		select {
		case <-j.ticker.C:
			if err := j.refresh(); err != nil {
				log.Warn().Err(err).Str("url", j.url).Msg("JWKS refresh failed, keeping cached keys")
			}
		case <-j.quit:
			return
		}
	}
}

// Close stops background refresh.
func (j *JWKS) Close() {
	if j.static {
		return
	}
	close(j.quit)
	j.ticker.Stop()
}

func (j *JWKS) refresh() error {
	resp, err := j.client.Get(j.url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks: unexpected status %d", resp.StatusCode)
	}

	var raw jwksJSON
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return err
	}
	newKeys, err := parseKeys(raw.Keys)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.keys = newKeys
	log.Debug().Int("keys", len(newKeys)).Msg("JWKS refreshed")
	return nil
}

func parseKeys(keys []jwkKey) (map[string]*rsa.PublicKey, error) {
	out := make(map[string]*rsa.PublicKey)
	for _, k := range keys {
		if k.Kty != "RSA" {
			continue
		}
		nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return nil, fmt.Errorf("jwks: bad modulus for %s: %w", k.Kid, err)
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return nil, fmt.Errorf("jwks: bad exponent for %s: %w", k.Kid, err)
		}
		out[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nBytes),
			E: bytesToInt(eBytes),
		}
	}
	return out, nil
}

func (j *JWKS) Get(kid string) (*rsa.PublicKey, error) {
	j.mu.RLock()
	p := j.keys[kid]
	j.mu.RUnlock()
	if p != nil {
		return p, nil
	}
	if j.static {
		return nil, ErrKeyNotFound
	}
	// try refresh once
	if err := j.refresh(); err != nil {
		return nil, err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	p = j.keys[kid]
	if p == nil {
		return nil, ErrKeyNotFound
	}
	return p, nil
}

func bytesToInt(b []byte) int {
	res := 0
	for _, v := range b {
		res = (res << 8) + int(v)
	}
	return res
}
