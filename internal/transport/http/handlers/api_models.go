package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserPayload describes the public view of an account. The password hash is
// never part of this structure.
type UserPayload struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"display_name"`
	FullName      *string   `json:"full_name,omitempty"`
	Bio           *string   `json:"bio,omitempty"`
	Location      *string   `json:"location,omitempty"`
	Roles         []string  `json:"roles"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func newUserPayload(user domain.User) UserPayload {
	roles := user.Roles
	if roles == nil {
		roles = []string{}
	}

	return UserPayload{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		FullName:      user.FullName,
		Bio:           user.Bio,
		Location:      user.Location,
		Roles:         roles,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

// RegisterRequest defines the account registration payload.
type RegisterRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name"`
}

// RegisterResponse contains registration results and next steps.
type RegisterResponse struct {
	User    UserPayload `json:"user"`
	Message string      `json:"message"`
}

// LoginRequest defines the payload for the login endpoint. The identifier is
// either a username or an email address.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	Token     string      `json:"token"`
	TokenType string      `json:"token_type"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      UserPayload `json:"user"`
}

// VerifyEmailRequest holds the single-use verification token.
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// ResendVerificationRequest asks for a fresh verification email.
type ResendVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// UpdateProfileRequest carries partial profile changes; nil fields are left
// untouched.
type UpdateProfileRequest struct {
	Username    *string `json:"username,omitempty" binding:"omitempty,max=50"`
	DisplayName *string `json:"display_name,omitempty" binding:"omitempty,max=100"`
	FullName    *string `json:"full_name,omitempty" binding:"omitempty,max=100"`
	Bio         *string `json:"bio,omitempty" binding:"omitempty,max=500"`
	Location    *string `json:"location,omitempty" binding:"omitempty,max=100"`
}

// DeleteAccountRequest confirms account removal with the current password.
type DeleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}

// RoleRequest names a role for assignment or revocation.
type RoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ChangePasswordRequest carries a password rotation for a logged-in user.
// KeepCurrentSession defaults to true when omitted; setting it to false
// revokes every session including the caller's.
type ChangePasswordRequest struct {
	CurrentPassword    string `json:"current_password" binding:"required"`
	NewPassword        string `json:"new_password" binding:"required,min=8"`
	KeepCurrentSession *bool  `json:"keep_current_session,omitempty"`
}

// ResetRequestRequest starts the forgotten-password flow.
type ResetRequestRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetConfirmRequest redeems a reset token for a new password.
type ResetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// SessionPayload describes a session view in API responses.
type SessionPayload struct {
	ID         string    `json:"id"`
	IPAddress  *string   `json:"ip_address,omitempty"`
	UserAgent  *string   `json:"user_agent,omitempty"`
	DeviceType *string   `json:"device_type,omitempty"`
	Location   *string   `json:"location,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	IsCurrent  bool      `json:"is_current,omitempty"`
}

func newSessionPayload(session domain.Session) SessionPayload {
	return SessionPayload{
		ID:         session.ID,
		IPAddress:  session.IPAddress,
		UserAgent:  session.UserAgent,
		DeviceType: session.DeviceType,
		Location:   session.Location,
		CreatedAt:  session.CreatedAt,
		ExpiresAt:  session.ExpiresAt,
	}
}

// SessionListResponse wraps the active sessions of a user.
type SessionListResponse struct {
	Sessions []SessionPayload `json:"sessions"`
	Total    int              `json:"total"`
}

// SessionsRevokedResponse reports how many sessions were removed.
type SessionsRevokedResponse struct {
	Revoked int `json:"revoked"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
