package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/domain"
	"github.com/Simon-Fontaine/bookworm-backend/internal/usecase"
)

type stubValidator struct {
	token   string
	session *domain.Session
	user    *domain.User
	err     error
}

func (s *stubValidator) Validate(_ context.Context, rawToken string) (*domain.Session, *domain.User, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	if rawToken != s.token {
		return nil, nil, usecase.ErrSessionNotFound
	}
	return s.session, s.user, nil
}

func newAuthRouter(validator *stubValidator, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	chain := append([]gin.HandlerFunc{RequireSession(validator, "bookworm_session")}, extra...)
	chain = append(chain, func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.String(http.StatusOK, user.Username)
	})
	router.GET("/me", chain...)
	return router
}

func TestRequireSessionWithCookie(t *testing.T) {
	validator := &stubValidator{
		token:   "raw-token",
		session: &domain.Session{ID: "sess-1", UserID: "user-1"},
		user:    &domain.User{ID: "user-1", Username: "reader", Roles: []string{domain.RoleUser}},
	}
	router := newAuthRouter(validator)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "bookworm_session", Value: "raw-token"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "reader" {
		t.Fatalf("unexpected body: %q", rr.Body.String())
	}
}

func TestRequireSessionWithBearerHeader(t *testing.T) {
	validator := &stubValidator{
		token:   "raw-token",
		session: &domain.Session{ID: "sess-1", UserID: "user-1"},
		user:    &domain.User{ID: "user-1", Username: "reader"},
	}
	router := newAuthRouter(validator)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer raw-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestRequireSessionMissingCredentials(t *testing.T) {
	router := newAuthRouter(&stubValidator{})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestRequireSessionExpired(t *testing.T) {
	router := newAuthRouter(&stubValidator{err: usecase.ErrSessionNotFound})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer stale-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestRequireSessionUnverifiedOwner(t *testing.T) {
	router := newAuthRouter(&stubValidator{err: usecase.ErrEmailNotVerified})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer raw-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
}

func TestRequireRole(t *testing.T) {
	validator := &stubValidator{
		token:   "raw-token",
		session: &domain.Session{ID: "sess-1", UserID: "user-1"},
		user:    &domain.User{ID: "user-1", Username: "reader", Roles: []string{domain.RoleUser}},
	}

	router := newAuthRouter(validator, RequireRole(domain.RoleAdmin))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer raw-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for missing role, got %d", rr.Code)
	}

	validator.user.Roles = []string{domain.RoleUser, domain.RoleAdmin}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 with admin role, got %d", rr.Code)
	}
}

func TestOptionalSessionAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/feed", OptionalSession(&stubValidator{}, "bookworm_session"), func(c *gin.Context) {
		if _, ok := CurrentUser(c); ok {
			c.String(http.StatusOK, "authenticated")
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "anonymous" {
		t.Fatalf("unexpected body: %q", rr.Body.String())
	}
}
