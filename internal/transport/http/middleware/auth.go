package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/domain"
	"github.com/Simon-Fontaine/bookworm-backend/internal/usecase"
)

const (
	// SessionKey is the gin context key for the validated session.
	SessionKey = "session"
	// CurrentUserKey is the gin context key for the session owner.
	CurrentUserKey = "current_user"
)

// SessionValidator resolves a raw bearer token to a live session and its owner.
type SessionValidator interface {
	Validate(ctx context.Context, rawToken string) (*domain.Session, *domain.User, error)
}

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// RequireSession authenticates the request from the session cookie or the
// Authorization header and stores the session and its owner in the context.
func RequireSession(sessions SessionValidator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractSessionToken(c, cookieName)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		session, user, err := sessions.Validate(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, usecase.ErrSessionNotFound):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid or expired session"))
			case errors.Is(err, usecase.ErrEmailNotVerified):
				c.AbortWithStatusJSON(http.StatusForbidden,
					newErrorResponse(c, "email address not verified"))
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
			}
			return
		}

		attachIdentity(c, session, user)
		c.Next()
	}
}

// OptionalSession resolves the session when credentials are present but never
// rejects the request. Handlers decide what anonymous callers may see.
func OptionalSession(sessions SessionValidator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractSessionToken(c, cookieName)
		if token == "" {
			c.Next()
			return
		}

		session, user, err := sessions.Validate(c.Request.Context(), token)
		if err == nil {
			attachIdentity(c, session, user)
		}

		c.Next()
	}
}

// RequireRole checks if the authenticated user has any of the specified roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		if !hasAnyRole(user.Roles, roles) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "insufficient permissions"))
			return
		}

		c.Next()
	}
}

// CurrentUser retrieves the authenticated user stored by RequireSession.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	val, exists := c.Get(CurrentUserKey)
	if !exists {
		return nil, false
	}
	user, ok := val.(*domain.User)
	return user, ok
}

// CurrentSession retrieves the validated session stored by RequireSession.
func CurrentSession(c *gin.Context) (*domain.Session, bool) {
	val, exists := c.Get(SessionKey)
	if !exists {
		return nil, false
	}
	session, ok := val.(*domain.Session)
	return session, ok
}

func attachIdentity(c *gin.Context, session *domain.Session, user *domain.User) {
	c.Set(UserIDKey, user.ID)
	c.Set(SessionKey, session)
	c.Set(CurrentUserKey, user)

	if reqCtx := GetRequestContext(c); reqCtx != nil {
		reqCtx.UserID = user.ID
	}
}

// extractSessionToken prefers the session cookie and falls back to a Bearer
// token so API clients without a cookie jar can authenticate too.
func extractSessionToken(c *gin.Context, cookieName string) string {
	if cookieName != "" {
		if cookie, err := c.Cookie(cookieName); err == nil {
			if token := strings.TrimSpace(cookie); token != "" {
				return token
			}
		}
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// hasAnyRole checks if the user has any of the required roles
func hasAnyRole(userRoles []string, requiredRoles []string) bool {
	roleMap := make(map[string]bool, len(userRoles))
	for _, role := range userRoles {
		roleMap[role] = true
	}

	for _, required := range requiredRoles {
		if roleMap[required] {
			return true
		}
	}

	return false
}
