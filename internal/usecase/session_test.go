package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/domain"
)

func TestValidateExpiredSessionIsRemoved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := registerVerifiedUser(t, env, "reader", "reader@example.com")

	result, err := env.auth.Login(ctx, "reader@example.com", testPassword, domain.ClientMetadata{})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	// Move the clock past the session expiry.
	env.session.WithClock(func() time.Time {
		return result.Session.ExpiresAt.Add(time.Minute)
	})

	if _, _, err := env.session.Validate(ctx, result.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	if _, ok := env.sessions.sessions[result.Session.ID]; ok {
		t.Fatal("expired session should be removed on validation")
	}

	_ = user
}

func TestValidateRejectsUnverifiedOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := registerVerifiedUser(t, env, "reader", "reader@example.com")

	result, err := env.auth.Login(ctx, "reader@example.com", testPassword, domain.ClientMetadata{})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	// Flip the verification flag back, as an email change would.
	stored := env.users.users[user.ID]
	stored.EmailVerified = false
	env.users.users[user.ID] = stored

	if _, _, err := env.session.Validate(ctx, result.Token); !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}

	if _, ok := env.sessions.sessions[result.Session.ID]; !ok {
		t.Fatal("session should survive a verification downgrade")
	}
}

func TestRevokeOneRequiresOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registerVerifiedUser(t, env, "reader", "reader@example.com")
	other := registerVerifiedUser(t, env, "other", "other@example.com")

	result, err := env.auth.Login(ctx, "reader@example.com", testPassword, domain.ClientMetadata{})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if err := env.session.RevokeOne(ctx, other.ID, result.Session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for foreign session, got %v", err)
	}

	if err := env.session.RevokeOne(ctx, result.User.ID, result.Session.ID); err != nil {
		t.Fatalf("RevokeOne returned error: %v", err)
	}
}

func TestRevokeAllSparesCurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := registerVerifiedUser(t, env, "reader", "reader@example.com")

	first, err := env.auth.Login(ctx, "reader@example.com", testPassword, domain.ClientMetadata{})
	if err != nil {
		t.Fatalf("first login returned error: %v", err)
	}
	second, err := env.auth.Login(ctx, "reader@example.com", testPassword, domain.ClientMetadata{})
	if err != nil {
		t.Fatalf("second login returned error: %v", err)
	}

	removed, err := env.session.RevokeAll(ctx, user.ID, second.Session.ID)
	if err != nil {
		t.Fatalf("RevokeAll returned error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 session removed, got %d", removed)
	}

	if _, _, err := env.session.Validate(ctx, first.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected first session revoked, got %v", err)
	}
	if _, _, err := env.session.Validate(ctx, second.Token); err != nil {
		t.Fatalf("current session should survive, got %v", err)
	}
}

func TestListActiveNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := registerVerifiedUser(t, env, "reader", "reader@example.com")

	base := time.Now().UTC()
	env.auth.WithClock(func() time.Time { return base })
	if _, err := env.auth.Login(ctx, "reader@example.com", testPassword, domain.ClientMetadata{}); err != nil {
		t.Fatalf("first login returned error: %v", err)
	}

	env.auth.WithClock(func() time.Time { return base.Add(time.Minute) })
	newest, err := env.auth.Login(ctx, "reader@example.com", testPassword, domain.ClientMetadata{})
	if err != nil {
		t.Fatalf("second login returned error: %v", err)
	}

	active, err := env.session.ListActive(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListActive returned error: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active sessions, got %d", len(active))
	}
	if active[0].ID != newest.Session.ID {
		t.Fatalf("expected newest session first, got %s", active[0].ID)
	}
}
