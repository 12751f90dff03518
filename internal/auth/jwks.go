package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultKeyTTL = time.Hour
	// minUnknownKidRefresh bounds how often an unrecognised key id may trigger a refetch.
	minUnknownKidRefresh = time.Minute
)

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS fetches RSA keys from a JWKS endpoint and caches them for ttl.
// An unknown key id triggers a refresh at most once per minUnknownKidRefresh so
// rotated keys are picked up without letting unverified tokens drive fetches.
type JWKS struct {
	url     string
	client  *http.Client
	ttl     time.Duration
	now     func() time.Time
	refresh *rate.Limiter
	flight  singleflight.Group

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewJWKS(url string, client *http.Client, ttl time.Duration) *JWKS {
	if client == nil {
		client = &http.Client{Timeout: 8 * time.Second}
	}
	if ttl <= 0 {
		ttl = defaultKeyTTL
	}
	return &JWKS{
		url:     url,
		client:  client,
		ttl:     ttl,
		now:     time.Now,
		refresh: rate.NewLimiter(rate.Every(minUnknownKidRefresh), 1),
	}
}

func (j *JWKS) Key(ctx context.Context, kid string) (any, error) {
	j.mu.Lock()
	now := j.now()
	stale := j.keys == nil || now.Sub(j.fetchedAt) > j.ttl
	if !stale {
		key, ok := j.lookup(kid)
		allowed := ok || j.refresh.AllowN(now, 1)
		j.mu.Unlock()
		if ok {
			return key, nil
		}
		if !allowed {
			return nil, unknownKid(kid)
		}
	} else {
		j.mu.Unlock()
	}

	if _, err, _ := j.flight.Do("jwks", func() (any, error) {
		keys, err := j.fetch(ctx)
		if err != nil {
			return nil, err
		}
		j.mu.Lock()
		defer j.mu.Unlock()
		j.keys = keys
		j.fetchedAt = j.now()
		j.refresh.AllowN(j.fetchedAt, 1)
		return nil, nil
	}); err != nil {
		return nil, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if key, ok := j.lookup(kid); ok {
		return key, nil
	}
	return nil, unknownKid(kid)
}

func unknownKid(kid string) error {
	if kid == "" {
		return fmt.Errorf("missing key id")
	}
	return fmt.Errorf("unknown key id: %s", kid)
}

func (j *JWKS) lookup(kid string) (*rsa.PublicKey, bool) {
	if kid == "" {
		if len(j.keys) == 1 {
			for _, key := range j.keys {
				return key, true
			}
		}
		return nil, false
	}
	key, ok := j.keys[kid]
	return key, ok
}

func (j *JWKS) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := j.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("jwks fetch failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey)
	for i, key := range doc.Keys {
		if !strings.EqualFold(strings.TrimSpace(key.Kty), "RSA") {
			continue
		}
		pub, err := rsaKey(key)
		if err != nil {
			return nil, err
		}
		kid := strings.TrimSpace(key.Kid)
		if kid == "" {
			kid = fmt.Sprintf("key-%d", i)
		}
		keys[kid] = pub
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no RSA keys found in jwks")
	}
	return keys, nil
}

func rsaKey(key jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(key.N))
	if err != nil {
		return nil, fmt.Errorf("decode jwks n: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(key.E))
	if err != nil {
		return nil, fmt.Errorf("decode jwks e: %w", err)
	}
	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() <= 1 {
		return nil, fmt.Errorf("invalid jwks exponent for key %s", key.Kid)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: int(e.Int64())}, nil
}
