package domain

import "time"

// TokenType distinguishes the single-use verification token flows.
type TokenType string

const (
	TokenTypeEmailVerification TokenType = "email_verification"
	TokenTypePasswordReset     TokenType = "password_reset"
)

// VerificationToken is a single-use proof of possession of an email address.
type VerificationToken struct {
	ID        string
	UserID    string
	TokenHash string
	Type      TokenType
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// IsExpired reports whether the token can still be redeemed.
func (t VerificationToken) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}
