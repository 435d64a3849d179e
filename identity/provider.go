// Package identity defines the boundary to the external identity provider.
// The provider is the source of truth for who a user is and whether they carry
// the admin claim.
package identity

import (
	"context"
	"errors"

	"github.com/teteocan/aurora-admin/models"
)

var (
	// ErrTokenInvalid is returned when a token is malformed or fails signature checks
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenExpired is returned when a well-formed token is past its expiry
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked is returned when the token was issued before the user's sessions were revoked
	ErrTokenRevoked = errors.New("token revoked")

	// ErrIdentityNotFound is returned when no user exists for a UID or email
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrEmailExists is returned by CreateUser when the email is taken
	ErrEmailExists = errors.New("email already exists")
)

// Provider is the set of identity provider operations the admin workflow consumes.
// Implementations surface context.DeadlineExceeded unchanged so callers can tell a
// timeout from a rejection.
type Provider interface {
	// VerifyToken checks signature, expiry and revocation of a bearer token
	VerifyToken(ctx context.Context, token string) (*models.VerifiedToken, error)

	GetUser(ctx context.Context, uid string) (*models.Identity, error)
	GetUserByEmail(ctx context.Context, email string) (*models.Identity, error)

	// SetClaims replaces the custom claim map of uid. Callers merge first.
	SetClaims(ctx context.Context, uid string, claims map[string]interface{}) error

	// RevokeSessions invalidates every token issued to uid before this call
	RevokeSessions(ctx context.Context, uid string) error

	CreateUser(ctx context.Context, email, password string) (*models.Identity, error)
}
