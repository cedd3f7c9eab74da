// Package auth resolves callers to stable user ids.
//
// Two upstream variants exist and both are supported behind one interface:
// a flat registry that assigns sequential ids, and a remote identity
// provider that issues opaque session tokens validated per request. The
// turn pipeline only ever consumes the resolved Identity.ID.
package auth

import (
	"context"
	"errors"
)

// Identity is the resolved caller.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

var (
	// ErrNotFound reports an unknown user id.
	ErrNotFound = errors.New("user not found")

	// ErrInvalidSession reports a missing, expired, or malformed session
	// token.
	ErrInvalidSession = errors.New("invalid session")
)

// Authenticator is the identity resolution capability.
type Authenticator interface {
	// Login exchanges credentials for an opaque session token.
	Login(ctx context.Context, identifier, secret string) (string, error)

	// Register creates a new user and returns its identity.
	Register(ctx context.Context, name, email, secret string) (Identity, error)

	// Validate resolves a session token to an identity.
	Validate(ctx context.Context, token string) (Identity, error)

	// Logout invalidates a session token.
	Logout(ctx context.Context, token string) error
}
