package services

import (
	"context"
	"errors"

	"github.com/teteocan/aurora-admin/identity"
)

// FromIdentityError classifies an identity provider error. Timeouts become
// ErrUpstreamTimeout; unrecognised failures become ErrUpstream.
func FromIdentityError(err error) error {
	if err == nil {
		return nil
	}

	var domainErr *DomainError
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return ErrUpstreamTimeout.Wrap(err)
	case errors.Is(err, identity.ErrTokenExpired):
		return ErrTokenExpired.Wrap(err)
	case errors.Is(err, identity.ErrTokenRevoked):
		return ErrTokenRevoked.Wrap(err)
	case errors.Is(err, identity.ErrTokenInvalid):
		return ErrInvalidToken.Wrap(err)
	case errors.Is(err, identity.ErrIdentityNotFound):
		return ErrIdentityNotFound.Wrap(err)
	case errors.Is(err, identity.ErrEmailExists):
		return ErrDuplicateEmail.Wrap(err)
	default:
		return ErrUpstream.Wrap(err)
	}
}
