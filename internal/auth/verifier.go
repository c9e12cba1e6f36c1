// Package auth verifies bearer tokens issued by an external identity
// provider against its published JWKS.
//
// The key set is fetched lazily from the configured URL and cached with a
// bounded TTL. A token carrying an unknown key id triggers a refetch, so
// provider-side key rotation needs no redeploy.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"golang.org/x/sync/singleflight"
)

// Roles recognized by the role guard. Any other claim value is passed
// through verbatim and simply never matches an allowed set.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// jwksFetchTimeout bounds a single JWKS fetch independently of the
// caller's deadline; singleflight reuses the first caller's context, so a
// canceled caller must not poison the shared fetch.
const jwksFetchTimeout = 10 * time.Second

// User is the authenticated principal attached to a request.
type User struct {
	ID    string
	Email string
	Role  string
}

// Claims extends jwt.RegisteredClaims with the identity-provider fields the
// API consumes. Cognito-style pools deliver the role either as a flat claim,
// a namespaced custom attribute, or group membership.
type Claims struct {
	jwt.RegisteredClaims
	Email         string   `json:"email,omitempty"`
	Role          string   `json:"role,omitempty"`
	CustomRole    string   `json:"custom:role,omitempty"`
	CognitoGroups []string `json:"cognito:groups,omitempty"`
}

// ResolvedRole picks the effective role: role, then custom:role, then the
// first cognito group, defaulting to RoleUser.
func (c *Claims) ResolvedRole() string {
	switch {
	case c.Role != "":
		return c.Role
	case c.CustomRole != "":
		return c.CustomRole
	case len(c.CognitoGroups) > 0:
		return c.CognitoGroups[0]
	default:
		return RoleUser
	}
}

// Verifier validates JWT signatures against a cached JWKS and enforces the
// issuer, audience and lifetime claims.
type Verifier struct {
	jwksURL  string
	issuer   string
	audience string
	cacheTTL time.Duration

	mu        sync.RWMutex
	keys      jwk.Set
	fetchedAt time.Time

	fetchGroup singleflight.Group
}

// NewVerifier creates a Verifier for tokens from the given issuer. The key
// set is not fetched until the first Verify call.
func NewVerifier(issuer, clientID, jwksURL string, cacheTTL time.Duration) *Verifier {
	return &Verifier{
		jwksURL:  jwksURL,
		issuer:   issuer,
		audience: clientID,
		cacheTTL: cacheTTL,
	}
}

// Verify parses and validates a bearer token, returning the authenticated
// user. The exp claim is required; nbf is honored when present.
//
// JWKS fetches run on their own timeout rather than ctx: singleflight
// shares one fetch between concurrent requests, and the first caller's
// cancellation must not fail the others.
func (v *Verifier) Verify(ctx context.Context, tokenStr string) (User, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			switch token.Method.(type) {
			case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA, *jwt.SigningMethodEd25519:
			default:
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			kid, ok := token.Header["kid"].(string)
			if !ok || kid == "" {
				return nil, fmt.Errorf("auth: token missing kid header")
			}
			return v.keyFor(kid)
		},
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return User{}, fmt.Errorf("auth: validate token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return User{}, fmt.Errorf("auth: invalid token claims")
	}
	if claims.Subject == "" {
		return User{}, fmt.Errorf("auth: token missing sub claim")
	}

	return User{ID: claims.Subject, Email: claims.Email, Role: claims.ResolvedRole()}, nil
}

// keyFor resolves the raw public key for kid, refetching the JWKS when the
// cache is stale or does not know the kid.
func (v *Verifier) keyFor(kid string) (any, error) {
	v.mu.RLock()
	keys, fetchedAt := v.keys, v.fetchedAt
	v.mu.RUnlock()

	if keys != nil && time.Since(fetchedAt) < v.cacheTTL {
		if raw, err := lookupKey(keys, kid); err == nil {
			return raw, nil
		}
	}

	if err := v.refresh(); err != nil {
		// A stale set that still knows the kid beats failing the request
		// outright while the provider endpoint is down.
		if keys != nil {
			if raw, lookupErr := lookupKey(keys, kid); lookupErr == nil {
				return raw, nil
			}
		}
		return nil, err
	}

	v.mu.RLock()
	keys = v.keys
	v.mu.RUnlock()
	return lookupKey(keys, kid)
}

// refresh fetches the JWKS and replaces the cached set. Concurrent callers
// share a single fetch.
func (v *Verifier) refresh() error {
	_, err, _ := v.fetchGroup.Do("jwks", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.Background(), jwksFetchTimeout)
		defer cancel()

		set, err := jwk.Fetch(fetchCtx, v.jwksURL)
		if err != nil {
			return nil, fmt.Errorf("auth: fetch jwks from %s: %w", v.jwksURL, err)
		}

		v.mu.Lock()
		v.keys = set
		v.fetchedAt = time.Now()
		v.mu.Unlock()
		return nil, nil
	})
	return err
}

// lookupKey finds kid in the set and materializes the raw public key for
// the jwt library.
func lookupKey(set jwk.Set, kid string) (any, error) {
	if set == nil {
		return nil, fmt.Errorf("auth: jwks not initialized")
	}
	key, ok := set.LookupKeyID(kid)
	if !ok {
		return nil, fmt.Errorf("auth: key %q not found in jwks", kid)
	}
	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("auth: materialize key %q: %w", kid, err)
	}
	return raw, nil
}
