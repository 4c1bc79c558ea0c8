// Package auth verifies bearer tokens against the identity provider's JWKS
// endpoint.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/trinitystore/backoffice/pkg/config"
)

// Verifier checks a raw bearer token and returns its parsed claims.
type Verifier interface {
	Verify(ctx context.Context, tokenString string) (jwt.Token, error)
}

// JWTVerifier validates tokens with keys fetched from a JWKS URL. The key set
// is cached and refreshed at most once per minInterval; a stale set is kept
// when the endpoint is temporarily unreachable.
type JWTVerifier struct {
	jwksURL  string
	issuer   string
	clientID string

	mu          sync.Mutex
	keys        jwk.Set
	fetchedAt   time.Time
	minInterval time.Duration
}

func NewJWTVerifier(ctx context.Context, cfg config.IdP) (*JWTVerifier, error) {
	v := &JWTVerifier{
		jwksURL:     cfg.JwksURL,
		issuer:      cfg.Issuer,
		clientID:    cfg.ClientID,
		minInterval: cfg.MinInterval,
	}
	if _, err := v.keySet(ctx); err != nil {
		return nil, fmt.Errorf("initial JWKS fetch failed: %w", err)
	}
	return v, nil
}

func (v *JWTVerifier) keySet(ctx context.Context) (jwk.Set, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.keys != nil && time.Since(v.fetchedAt) < v.minInterval {
		return v.keys, nil
	}

	set, err := jwk.Fetch(ctx, v.jwksURL)
	if err != nil {
		if v.keys != nil {
			return v.keys, nil
		}
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", v.jwksURL, err)
	}
	v.keys = set
	v.fetchedAt = time.Now()
	return v.keys, nil
}

// Verify parses and validates the token: signature against the JWKS keys,
// standard time claims, issuer, and the authorized party (azp) claim.
func (v *JWTVerifier) Verify(ctx context.Context, tokenString string) (jwt.Token, error) {
	set, err := v.keySet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get keyset for verification: %w", err)
	}

	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
		jwt.WithClaimValue("azp", v.clientID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	return token, nil
}
