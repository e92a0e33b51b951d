package domain

import "time"

// UnknownLocation is recorded when the enricher cannot resolve an address.
const UnknownLocation = "Unknown Location"

// Session represents a persisted login session. The raw bearer token is only
// available at creation time; the table stores its hash.
type Session struct {
	ID         string
	UserID     string
	TokenHash  string
	CSRFSecret string
	IPAddress  *string
	UserAgent  *string
	DeviceType *string
	Location   *string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// IsExpired reports whether the session has elapsed its validity window.
func (s Session) IsExpired(at time.Time) bool {
	return !s.ExpiresAt.After(at)
}

// ClientMetadata carries request-scoped client attributes captured at login.
type ClientMetadata struct {
	IPAddress  string
	UserAgent  string
	DeviceType string
	Location   string
}
