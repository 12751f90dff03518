package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fr0stylo/adsync/internal/app/domain"
)

const leeway = 30 * time.Second

type Config struct {
	// Audiences is the allow-list for the aud claim. Empty rejects every token.
	Audiences []string
	// Issuers is optional; when set the iss claim must match one entry.
	Issuers []string
	// HMACSecret switches verification to HS256 with a shared secret.
	HMACSecret string
	Keys       KeySource
	// Bypass disables verification entirely. Only local configs may set it.
	Bypass bool
}

// KeySource resolves RS256 public keys by key id.
type KeySource interface {
	Key(ctx context.Context, kid string) (any, error)
}

// Claims is the verified caller identity.
type Claims struct {
	Subject  string
	Email    string
	Issuer   string
	Audience []string
	Bypassed bool
}

// Gate verifies bearer ID tokens on trigger requests.
type Gate struct {
	cfg Config
}

func NewGate(cfg Config) (*Gate, error) {
	if !cfg.Bypass && cfg.HMACSecret == "" && cfg.Keys == nil {
		return nil, fmt.Errorf("auth: a key source or hmac secret is required")
	}
	return &Gate{cfg: cfg}, nil
}

// Authenticate checks an Authorization header value. Errors are *domain.AuthError.
func (g *Gate) Authenticate(ctx context.Context, header string) (Claims, error) {
	if g.cfg.Bypass {
		return Claims{Subject: "local-dev", Bypassed: true}, nil
	}

	raw, ok := bearerToken(header)
	if !ok {
		return Claims{}, &domain.AuthError{Code: domain.AuthMissingToken}
	}
	if len(g.cfg.Audiences) == 0 {
		return Claims{}, invalid(errors.New("no audiences configured"))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, g.keyFunc(ctx),
		jwt.WithValidMethods(g.validMethods()),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(leeway),
	)
	if err != nil {
		return Claims{}, invalid(err)
	}

	aud, err := claims.GetAudience()
	if err != nil {
		return Claims{}, invalid(err)
	}
	if !slices.ContainsFunc(aud, func(a string) bool { return slices.Contains(g.cfg.Audiences, a) }) {
		return Claims{}, invalid(fmt.Errorf("audience %v not allowed", []string(aud)))
	}
	iss, _ := claims.GetIssuer()
	if len(g.cfg.Issuers) > 0 && !slices.Contains(g.cfg.Issuers, iss) {
		return Claims{}, invalid(fmt.Errorf("issuer %q not allowed", iss))
	}

	sub, _ := claims.GetSubject()
	email, _ := claims["email"].(string)
	return Claims{Subject: sub, Email: email, Issuer: iss, Audience: aud}, nil
}

func (g *Gate) validMethods() []string {
	if g.cfg.HMACSecret != "" {
		return []string{jwt.SigningMethodHS256.Alg()}
	}
	return []string{jwt.SigningMethodRS256.Alg()}
}

func (g *Gate) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if g.cfg.HMACSecret != "" {
			return []byte(g.cfg.HMACSecret), nil
		}
		kid, _ := token.Header["kid"].(string)
		return g.cfg.Keys.Key(ctx, strings.TrimSpace(kid))
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func invalid(err error) error {
	return &domain.AuthError{Code: domain.AuthInvalidToken, Err: err}
}
