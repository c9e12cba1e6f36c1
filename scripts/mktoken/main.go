// mktoken generates a local RSA signing key, writes the matching JWKS, and
// prints a signed bearer token for development without a real user pool.
//
// Usage (run from the repo root):
//
//	go run scripts/mktoken/main.go -role admin -sub admin-1
//
// Writes:
//
//	data/jwks.json
//
// Serve the data/ directory at the issuer host and point the server at it:
//
//	PARLOR_USER_POOL_ISSUER=http://localhost:9000
//	PARLOR_JWKS_URL=http://localhost:9000/jwks.json
//	PARLOR_CLIENT_ID=parlor-local
//
// Each run replaces the key set, invalidating previously printed tokens.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

func main() {
	issuer := flag.String("issuer", "http://localhost:9000", "iss claim the server trusts (PARLOR_USER_POOL_ISSUER)")
	client := flag.String("client", "parlor-local", "aud claim (PARLOR_CLIENT_ID)")
	sub := flag.String("sub", "admin-1", "sub claim (user id)")
	email := flag.String("email", "admin@example.test", "email claim")
	role := flag.String("role", "admin", "role claim (admin or user)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	out := flag.String("out", filepath.Join("data", "jwks.json"), "JWKS output path")
	flag.Parse()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: generate key: %v\n", err)
		os.Exit(1)
	}
	kid := uuid.New().String()

	key, err := jwk.Import(priv.Public())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: import public key: %v\n", err)
		os.Exit(1)
	}
	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		fmt.Fprintf(os.Stderr, "error: set kid: %v\n", err)
		os.Exit(1)
	}
	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		fmt.Fprintf(os.Stderr, "error: add key to set: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0700); err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot create %s: %v\n", filepath.Dir(*out), err)
		os.Exit(1)
	}
	encoded, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: marshal jwks: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, encoded, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "error: write %s: %v\n", *out, err)
		os.Exit(1)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   *issuer,
		"aud":   *client,
		"sub":   *sub,
		"email": *email,
		"role":  *role,
		"iat":   now.Unix(),
		"exp":   now.Add(*ttl).Unix(),
	})
	token.Header["kid"] = kid
	signed, err := token.SignedString(priv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %s\n", *out)
	fmt.Printf("bearer token (role %s, expires %s):\n%s\n", *role, now.Add(*ttl).UTC().Format(time.RFC3339), signed)
}
