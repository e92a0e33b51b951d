package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/domain"
	"github.com/Simon-Fontaine/bookworm-backend/internal/core/port"
	"github.com/Simon-Fontaine/bookworm-backend/internal/transport/http/middleware"
	"github.com/Simon-Fontaine/bookworm-backend/internal/usecase"
)

// AccountHandler exposes profile and account lifecycle endpoints. All routes
// require an authenticated session.
type AccountHandler struct {
	accounts *usecase.AccountService
}

// NewAccountHandler constructs an account handler.
func NewAccountHandler(accounts *usecase.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// RegisterRoutes binds account routes. Role mutations additionally require
// the admin role.
func (h *AccountHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/me", h.Me)
	r.PATCH("/me", h.UpdateProfile)
	r.DELETE("/me", h.DeleteAccount)

	admin := r.Group("/users", middleware.RequireRole(domain.RoleAdmin))
	admin.POST("/:user_id/roles", h.AssignRole)
	admin.DELETE("/:user_id/roles/:role", h.RevokeRole)
}

// Me returns the authenticated user's profile.
func (h *AccountHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	c.JSON(http.StatusOK, newUserPayload(*user))
}

// UpdateProfile applies a partial update to the authenticated user's profile.
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid profile payload"))
		return
	}

	updated, err := h.accounts.UpdateProfile(c.Request.Context(), user.ID, port.ProfileUpdate{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		FullName:    req.FullName,
		Bio:         req.Bio,
		Location:    req.Location,
	})
	if err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrUsernameExists, Status: http.StatusConflict, Message: "username already taken"},
			{Err: usecase.ErrProfileInvalid, Status: http.StatusBadRequest, Message: "invalid profile field"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "profile update failed")
		return
	}

	c.JSON(http.StatusOK, newUserPayload(updated))
}

// DeleteAccount removes the account after re-checking the password. Every
// session and pending token goes with it.
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req DeleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "password confirmation is required"))
		return
	}

	if err := h.accounts.DeleteAccount(c.Request.Context(), user.ID, req.Password); err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrInvalidPassword, Status: http.StatusForbidden, Message: "password confirmation failed"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "account deletion failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account deleted"})
}

// AssignRole grants a role to the target user.
func (h *AccountHandler) AssignRole(c *gin.Context) {
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "role is required"))
		return
	}

	updated, err := h.accounts.AssignRole(c.Request.Context(), c.Param("user_id"), req.Role)
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "role assignment failed")
		return
	}

	c.JSON(http.StatusOK, newUserPayload(updated))
}

// RevokeRole removes a role from the target user.
func (h *AccountHandler) RevokeRole(c *gin.Context) {
	updated, err := h.accounts.RevokeRole(c.Request.Context(), c.Param("user_id"), c.Param("role"))
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "role revocation failed")
		return
	}

	c.JSON(http.StatusOK, newUserPayload(updated))
}

var roleErrorCases = []ErrorCase{
	{Err: usecase.ErrUnknownRole, Status: http.StatusBadRequest, Message: "unknown role"},
	{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "account not found"},
}
