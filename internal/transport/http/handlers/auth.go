package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/domain"
	"github.com/Simon-Fontaine/bookworm-backend/internal/transport/http/middleware"
	"github.com/Simon-Fontaine/bookworm-backend/internal/usecase"
)

// AuthHandler exposes registration, login, and email verification endpoints.
type AuthHandler struct {
	accounts *usecase.AccountService
	auth     *usecase.AuthService

	cookieName   string
	cookieSecure bool
}

// AuthHandlerOption configures optional AuthHandler behaviour.
type AuthHandlerOption func(*AuthHandler)

// WithSessionCookie makes the handler mirror the bearer token into a cookie
// so browser clients authenticate without storing the token themselves.
func WithSessionCookie(name string, secure bool) AuthHandlerOption {
	return func(h *AuthHandler) {
		h.cookieName = name
		h.cookieSecure = secure
	}
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(accounts *usecase.AccountService, auth *usecase.AuthService, opts ...AuthHandlerOption) *AuthHandler {
	handler := &AuthHandler{accounts: accounts, auth: auth}

	for _, opt := range opts {
		if opt != nil {
			opt(handler)
		}
	}

	return handler
}

// RegisterRoutes binds authentication routes to the provided group. The
// session middleware guards logout only; everything else is anonymous.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, requireSession gin.HandlerFunc) {
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/verify-email", h.VerifyEmail)
	r.POST("/resend-verification", h.ResendVerification)
	r.POST("/logout", requireSession, h.Logout)
}

// Register creates an account and dispatches the verification email.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), usecase.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrEmailExists, Status: http.StatusConflict, Message: "email address already registered"},
			{Err: usecase.ErrUsernameExists, Status: http.StatusConflict, Message: "username already taken"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet the strength requirements"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "registration failed")
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{
		User:    newUserPayload(user),
		Message: "account created; check your inbox to verify the email address",
	})
}

// Login authenticates an identifier/password pair and opens a session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "identifier and password are required"))
		return
	}

	meta := domain.ClientMetadata{
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
		DeviceType: deviceTypeFromUserAgent(c.Request.UserAgent()),
	}

	result, err := h.auth.Login(c.Request.Context(), req.Identifier, req.Password, meta)
	if err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
			{Err: usecase.ErrEmailNotVerified, Status: http.StatusForbidden, Message: "email address not verified"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "login failed")
		return
	}

	if h.cookieName != "" {
		maxAge := int(result.Session.ExpiresAt.Sub(result.Session.CreatedAt).Seconds())
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.cookieName, result.Token, maxAge, "/", "", h.cookieSecure, true)
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     result.Token,
		TokenType: "Bearer",
		ExpiresAt: result.Session.ExpiresAt,
		User:      newUserPayload(result.User),
	})
}

// Logout terminates the current session and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.auth.Logout(c.Request.Context(), session.ID); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "logout failed"))
		return
	}

	if h.cookieName != "" {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.cookieName, "", -1, "/", "", h.cookieSecure, true)
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// VerifyEmail redeems a single-use verification token.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "token is required"))
		return
	}

	user, err := h.accounts.VerifyEmail(c.Request.Context(), req.Token)
	if err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrTokenNotFound, Status: http.StatusNotFound, Message: "verification token not found"},
			{Err: usecase.ErrTokenAlreadyUsed, Status: http.StatusConflict, Message: "verification token already used"},
			{Err: usecase.ErrTokenExpired, Status: http.StatusGone, Message: "verification token expired"},
			{Err: usecase.ErrTokenTypeMismatch, Status: http.StatusBadRequest, Message: "token is not a verification token"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "verification failed")
		return
	}

	c.JSON(http.StatusOK, RegisterResponse{
		User:    newUserPayload(user),
		Message: "email address verified",
	})
}

// ResendVerification issues a fresh verification token. The response never
// reveals whether the address exists.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req ResendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "a valid email address is required"))
		return
	}

	if err := h.accounts.ResendVerification(c.Request.Context(), req.Email); err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrDispatchThrottled, Status: http.StatusTooManyRequests, Message: "too many verification emails requested; try again later"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "could not resend verification email")
		return
	}

	c.JSON(http.StatusAccepted, MessageResponse{
		Message: "if the address is registered, a verification email is on its way",
	})
}

// deviceTypeFromUserAgent makes a coarse guess good enough for the session
// overview page.
func deviceTypeFromUserAgent(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case ua == "":
		return ""
	case strings.Contains(ua, "mobile"), strings.Contains(ua, "android"), strings.Contains(ua, "iphone"):
		return "mobile"
	case strings.Contains(ua, "ipad"), strings.Contains(ua, "tablet"):
		return "tablet"
	default:
		return "desktop"
	}
}
