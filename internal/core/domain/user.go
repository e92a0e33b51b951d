package domain

import (
	"strings"
	"time"
)

// Role names known to the platform.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// User mirrors the persisted representation in the users table.
type User struct {
	ID            string
	Username      string
	Email         string
	PasswordHash  string
	DisplayName   string
	FullName      *string
	Bio           *string
	Location      *string
	Roles         []string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NormalizeIdentifier lower-cases and trims a username or email so equality
// checks and uniqueness constraints see one canonical form.
func NormalizeIdentifier(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// HasRole reports whether the user holds the named role.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AddRole appends the role if absent. Returns true when the set changed.
func (u *User) AddRole(role string) bool {
	if u.HasRole(role) {
		return false
	}
	u.Roles = append(u.Roles, role)
	return true
}

// RemoveRole drops the role if present. Returns true when the set changed.
func (u *User) RemoveRole(role string) bool {
	for i, r := range u.Roles {
		if r == role {
			u.Roles = append(u.Roles[:i], u.Roles[i+1:]...)
			return true
		}
	}
	return false
}
