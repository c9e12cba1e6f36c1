package parlor

import "context"

// Roles recognized by the role guard. The internal surface requires
// RoleAdmin; /apiv2/external/me accepts any authenticated role.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is the authenticated principal as seen by custom verifiers.
// Uses plain strings so external consumers do not depend on internal types;
// New() wraps the verifier in an adapter for internal use.
type User struct {
	ID    string
	Email string
	Role  string
}

// TokenVerifier validates a bearer token and returns the authenticated user.
// When provided via WithVerifier, replaces the JWKS-backed verifier; use it
// to plug in a different identity provider or a static test issuer.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (User, error)
}
