package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlorgames/parlor/internal/auth"
)

const (
	testIssuer   = "https://issuer.example.test/pool"
	testClientID = "parlor-client"
)

// jwksServer serves a mutable key set and counts fetches so cache behavior
// is observable.
type jwksServer struct {
	*httptest.Server
	mu      sync.Mutex
	set     jwk.Set
	fetches atomic.Int32
}

func newJWKSServer(t *testing.T) *jwksServer {
	t.Helper()
	s := &jwksServer{set: jwk.NewSet()}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.fetches.Add(1)
		s.mu.Lock()
		defer s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(s.set))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *jwksServer) setKeys(t *testing.T, keys map[string]*rsa.PrivateKey) {
	t.Helper()
	set := jwk.NewSet()
	for kid, priv := range keys {
		key, err := jwk.Import(priv.Public())
		require.NoError(t, err)
		require.NoError(t, key.Set(jwk.KeyIDKey, kid))
		require.NoError(t, set.AddKey(key))
	}
	s.mu.Lock()
	s.set = set
	s.mu.Unlock()
}

func newRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return priv
}

func signToken(t *testing.T, priv *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(priv)
	require.NoError(t, err)
	return signed
}

func baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "user-1",
		"iss": testIssuer,
		"aud": testClientID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
}

func TestVerifier_ValidToken(t *testing.T) {
	priv := newRSAKey(t)
	srv := newJWKSServer(t)
	srv.setKeys(t, map[string]*rsa.PrivateKey{"kid-1": priv})
	v := auth.NewVerifier(testIssuer, testClientID, srv.URL, 10*time.Minute)

	claims := baseClaims()
	claims["email"] = "alice@example.test"
	claims["role"] = "admin"

	user, err := v.Verify(context.Background(), signToken(t, priv, "kid-1", claims))
	require.NoError(t, err)
	assert.Equal(t, auth.User{ID: "user-1", Email: "alice@example.test", Role: "admin"}, user)
}

func TestVerifier_RoleResolution(t *testing.T) {
	priv := newRSAKey(t)
	srv := newJWKSServer(t)
	srv.setKeys(t, map[string]*rsa.PrivateKey{"kid-1": priv})
	v := auth.NewVerifier(testIssuer, testClientID, srv.URL, 10*time.Minute)

	tests := []struct {
		name  string
		extra jwt.MapClaims
		want  string
	}{
		{"role claim wins", jwt.MapClaims{"role": "admin", "custom:role": "x", "cognito:groups": []string{"y"}}, "admin"},
		{"custom role second", jwt.MapClaims{"custom:role": "admin", "cognito:groups": []string{"y"}}, "admin"},
		{"first group third", jwt.MapClaims{"cognito:groups": []string{"admin", "user"}}, "admin"},
		{"defaults to user", jwt.MapClaims{}, "user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := baseClaims()
			for k, val := range tt.extra {
				claims[k] = val
			}
			user, err := v.Verify(context.Background(), signToken(t, priv, "kid-1", claims))
			require.NoError(t, err)
			assert.Equal(t, tt.want, user.Role)
		})
	}
}

func TestVerifier_RejectsBadTokens(t *testing.T) {
	priv := newRSAKey(t)
	srv := newJWKSServer(t)
	srv.setKeys(t, map[string]*rsa.PrivateKey{"kid-1": priv})
	v := auth.NewVerifier(testIssuer, testClientID, srv.URL, 10*time.Minute)

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"expired", func(t *testing.T) string {
			claims := baseClaims()
			claims["exp"] = time.Now().Add(-time.Minute).Unix()
			return signToken(t, priv, "kid-1", claims)
		}},
		{"missing exp", func(t *testing.T) string {
			claims := baseClaims()
			delete(claims, "exp")
			return signToken(t, priv, "kid-1", claims)
		}},
		{"not yet valid", func(t *testing.T) string {
			claims := baseClaims()
			claims["nbf"] = time.Now().Add(time.Hour).Unix()
			return signToken(t, priv, "kid-1", claims)
		}},
		{"wrong audience", func(t *testing.T) string {
			claims := baseClaims()
			claims["aud"] = "someone-else"
			return signToken(t, priv, "kid-1", claims)
		}},
		{"wrong issuer", func(t *testing.T) string {
			claims := baseClaims()
			claims["iss"] = "https://evil.example.test"
			return signToken(t, priv, "kid-1", claims)
		}},
		{"missing sub", func(t *testing.T) string {
			claims := baseClaims()
			delete(claims, "sub")
			return signToken(t, priv, "kid-1", claims)
		}},
		{"missing kid", func(t *testing.T) string {
			token := jwt.NewWithClaims(jwt.SigningMethodRS256, baseClaims())
			signed, err := token.SignedString(priv)
			require.NoError(t, err)
			return signed
		}},
		{"signed by unknown key", func(t *testing.T) string {
			return signToken(t, newRSAKey(t), "kid-1", baseClaims())
		}},
		{"unsigned", func(t *testing.T) string {
			token := jwt.NewWithClaims(jwt.SigningMethodNone, baseClaims())
			token.Header["kid"] = "kid-1"
			signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
			require.NoError(t, err)
			return signed
		}},
		{"garbage", func(t *testing.T) string { return "not.a.token" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token(t))
			assert.Error(t, err)
		})
	}
}

func TestVerifier_CachesKeySet(t *testing.T) {
	priv := newRSAKey(t)
	srv := newJWKSServer(t)
	srv.setKeys(t, map[string]*rsa.PrivateKey{"kid-1": priv})
	v := auth.NewVerifier(testIssuer, testClientID, srv.URL, 10*time.Minute)

	for range 3 {
		_, err := v.Verify(context.Background(), signToken(t, priv, "kid-1", baseClaims()))
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, srv.fetches.Load(), "fresh cache must serve repeat verifications")
}

func TestVerifier_RefetchesOnUnknownKid(t *testing.T) {
	oldKey := newRSAKey(t)
	srv := newJWKSServer(t)
	srv.setKeys(t, map[string]*rsa.PrivateKey{"kid-old": oldKey})
	v := auth.NewVerifier(testIssuer, testClientID, srv.URL, 10*time.Minute)

	_, err := v.Verify(context.Background(), signToken(t, oldKey, "kid-old", baseClaims()))
	require.NoError(t, err)

	// Provider rotates its signing key.
	newKey := newRSAKey(t)
	srv.setKeys(t, map[string]*rsa.PrivateKey{"kid-new": newKey})

	_, err = v.Verify(context.Background(), signToken(t, newKey, "kid-new", baseClaims()))
	require.NoError(t, err)
	assert.EqualValues(t, 2, srv.fetches.Load())
}

func TestVerifier_ServesStaleSetWhenEndpointDown(t *testing.T) {
	priv := newRSAKey(t)
	srv := newJWKSServer(t)
	srv.setKeys(t, map[string]*rsa.PrivateKey{"kid-1": priv})

	// TTL of zero forces a refetch attempt on every call.
	v := auth.NewVerifier(testIssuer, testClientID, srv.URL, 0)

	_, err := v.Verify(context.Background(), signToken(t, priv, "kid-1", baseClaims()))
	require.NoError(t, err)

	srv.Close()

	_, err = v.Verify(context.Background(), signToken(t, priv, "kid-1", baseClaims()))
	require.NoError(t, err, "cached keys should outlive a temporarily unreachable endpoint")
}
