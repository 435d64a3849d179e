// Package authz holds the access decision functions. They are pure: the outcome
// depends only on the verified token's subject and the resource owner.
package authz

import (
	"github.com/teteocan/aurora-admin/models"
	"github.com/teteocan/aurora-admin/services"
)

const (
	ReasonRequiresAdminOrOwner = "requires admin or resource owner"
	ReasonRequiresAdmin        = "requires administrator privileges"
)

// Subject is the authenticated caller as described by a verified token
type Subject struct {
	UID         string
	Email       string
	IsAdmin     bool
	TokenClaims models.Claims
}

// SubjectFromToken builds a Subject from verified token claims only
func SubjectFromToken(vt *models.VerifiedToken) Subject {
	return Subject{
		UID:         vt.UID,
		Email:       vt.Email,
		IsAdmin:     vt.Claims.IsAdmin(),
		TokenClaims: vt.Claims,
	}
}

// Decision is the result of an access check
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Err returns nil for an allowed decision, otherwise a forbidden error carrying the reason
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == ReasonRequiresAdmin {
		return services.ErrNotAdmin.WithMessage(d.Reason)
	}
	return services.ErrAccessDenied.WithMessage(d.Reason)
}

// DecideSelfOrAdmin allows administrators and the owner of the resource.
// An empty owner UID never matches.
func DecideSelfOrAdmin(subject Subject, ownerUID string) Decision {
	if subject.IsAdmin {
		return allow()
	}
	if ownerUID != "" && subject.UID == ownerUID {
		return allow()
	}
	return deny(ReasonRequiresAdminOrOwner)
}

// DecideAdminOnly allows administrators
func DecideAdminOnly(subject Subject) Decision {
	if subject.IsAdmin {
		return allow()
	}
	return deny(ReasonRequiresAdmin)
}
