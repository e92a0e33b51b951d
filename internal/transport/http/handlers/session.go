package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Simon-Fontaine/bookworm-backend/internal/transport/http/middleware"
	"github.com/Simon-Fontaine/bookworm-backend/internal/usecase"
)

// SessionHandler exposes endpoints for managing the caller's own sessions.
type SessionHandler struct {
	sessions *usecase.SessionService
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(sessions *usecase.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// RegisterRoutes binds session management routes to the provided group. The
// group is expected to carry the session middleware already.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.ListSessions)
	r.DELETE("/others", h.RevokeOtherSessions)
	r.DELETE("/:session_id", h.RevokeSession)
}

// ListSessions returns the caller's active sessions, newest first.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	sessions, err := h.sessions.ListActive(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list sessions"))
		return
	}

	currentSessionID := ""
	if current, ok := middleware.CurrentSession(c); ok {
		currentSessionID = current.ID
	}

	response := make([]SessionPayload, 0, len(sessions))
	for _, session := range sessions {
		payload := newSessionPayload(session)
		if currentSessionID != "" && session.ID == currentSessionID {
			payload.IsCurrent = true
		}
		response = append(response, payload)
	}

	c.JSON(http.StatusOK, SessionListResponse{Sessions: response, Total: len(response)})
}

// RevokeSession terminates one of the caller's sessions by ID.
func (h *SessionHandler) RevokeSession(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	err := h.sessions.RevokeOne(c.Request.Context(), user.ID, c.Param("session_id"))
	if err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrSessionNotFound, Status: http.StatusNotFound, Message: "session not found"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to revoke session")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "session revoked"})
}

// RevokeOtherSessions terminates every session except the current one.
func (h *SessionHandler) RevokeOtherSessions(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	currentSessionID := ""
	if current, ok := middleware.CurrentSession(c); ok {
		currentSessionID = current.ID
	}

	revoked, err := h.sessions.RevokeAll(c.Request.Context(), user.ID, currentSessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to revoke sessions"))
		return
	}

	c.JSON(http.StatusOK, SessionsRevokedResponse{Revoked: revoked})
}
