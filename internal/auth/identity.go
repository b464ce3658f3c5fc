// Package auth provides bearer-token authentication for the gateway.
package auth

import (
	"context"
	"errors"
)

// Role values carried in token claims.
const (
	RoleAdmin  = "admin"
	RoleSenior = "senior"
	RoleViewer = "viewer"
)

// Identity is an authenticated user derived exclusively from verified token
// claims. It is never populated from headers or query parameters.
type Identity struct {
	// ID is the subject claim (user id).
	ID string `json:"id"`

	// Email is the email claim.
	Email string `json:"email,omitempty"`

	// Role is the role claim, verbatim.
	Role string `json:"role,omitempty"`

	// RawToken is the bearer token the identity was derived from, kept so
	// downstream calls can forward the same credentials.
	RawToken string `json:"-"`
}

// IsAdmin reports whether the identity carries an administrative role.
func (i *Identity) IsAdmin() bool {
	return i.Role == RoleAdmin || i.Role == RoleSenior
}

type identityContextKey struct{}

// ContextWithIdentity attaches an identity to the context. This is the single
// mutation the request context undergoes after creation.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext extracts the identity from the context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*Identity)
	return identity, ok && identity != nil
}

// ErrIdentityNotFound is returned when no identity is present in the context.
var ErrIdentityNotFound = errors.New("identity not found in context")

// IdentityFromContextOrError extracts the identity or reports its absence.
func IdentityFromContextOrError(ctx context.Context) (*Identity, error) {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return nil, ErrIdentityNotFound
	}
	return identity, nil
}
