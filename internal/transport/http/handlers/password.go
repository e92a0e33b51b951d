package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Simon-Fontaine/bookworm-backend/internal/transport/http/middleware"
	"github.com/Simon-Fontaine/bookworm-backend/internal/usecase"
)

// PasswordHandler exposes password rotation and reset endpoints.
type PasswordHandler struct {
	passwords *usecase.PasswordService
}

// NewPasswordHandler constructs a password handler.
func NewPasswordHandler(passwords *usecase.PasswordService) *PasswordHandler {
	return &PasswordHandler{passwords: passwords}
}

// RegisterRoutes binds password routes. Change requires a session; the reset
// flow is anonymous by nature.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup, requireSession gin.HandlerFunc) {
	r.POST("/change", requireSession, h.ChangePassword)
	r.POST("/reset/request", h.RequestReset)
	r.POST("/reset/confirm", h.ConfirmReset)
}

// ChangePassword rotates the password for the authenticated user. Every other
// session is revoked; the one making the call survives.
func (h *PasswordHandler) ChangePassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "current and new passwords are required"))
		return
	}

	currentSessionID := ""
	if session, ok := middleware.CurrentSession(c); ok {
		currentSessionID = session.ID
	}

	keepCurrent := true
	if req.KeepCurrentSession != nil {
		keepCurrent = *req.KeepCurrentSession
	}

	err := h.passwords.ChangePassword(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword, keepCurrent, currentSessionID)
	if err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrInvalidPassword, Status: http.StatusForbidden, Message: "current password is incorrect"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "new password does not meet the strength requirements"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "password change failed")
		return
	}

	message := "password changed; other sessions were signed out"
	if !keepCurrent {
		message = "password changed; all sessions were signed out"
	}
	c.JSON(http.StatusOK, MessageResponse{Message: message})
}

// RequestReset starts the forgotten-password flow. The response is identical
// for known and unknown addresses.
func (h *PasswordHandler) RequestReset(c *gin.Context) {
	var req ResetRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "a valid email address is required"))
		return
	}

	if err := h.passwords.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "could not process the reset request"))
		return
	}

	c.JSON(http.StatusAccepted, MessageResponse{
		Message: "if the address is registered, a reset email is on its way",
	})
}

// ConfirmReset redeems a reset token for a new password and revokes every
// session of the account.
func (h *PasswordHandler) ConfirmReset(c *gin.Context) {
	var req ResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "token and new password are required"))
		return
	}

	if err := h.passwords.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrTokenNotFound, Status: http.StatusNotFound, Message: "reset token not found"},
			{Err: usecase.ErrTokenAlreadyUsed, Status: http.StatusConflict, Message: "reset token already used"},
			{Err: usecase.ErrTokenExpired, Status: http.StatusGone, Message: "reset token expired"},
			{Err: usecase.ErrTokenTypeMismatch, Status: http.StatusBadRequest, Message: "token is not a reset token"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "new password does not meet the strength requirements"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "password reset failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password reset; sign in with the new password"})
}
