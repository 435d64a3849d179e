package models

import "time"

// Identity is a user as reported by the identity provider.
type Identity struct {
	UID      string `json:"uid"`
	Email    string `json:"email"`
	Claims   Claims `json:"-"`
	Disabled bool   `json:"disabled"`
}

// VerifiedToken is the decoded content of a bearer token that passed signature,
// expiry and revocation checks.
type VerifiedToken struct {
	UID       string
	Email     string
	Claims    Claims
	IssuedAt  time.Time
	ExpiresAt time.Time
}
