package domain

import "time"

type VerificationPurpose string

const (
	PurposeEmailVerification VerificationPurpose = "email-verification"
	PurposeResetPassword     VerificationPurpose = "reset-password"
)

// Verification is a single-use, time-bounded token sent by email. Only the
// SHA-256 of the token is stored.
type Verification struct {
	ID         string
	UserID     string
	Identifier string
	Purpose    VerificationPurpose
	TokenHash  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

func (v *Verification) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}
