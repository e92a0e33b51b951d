package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/domain"
)

const newTestPassword = "quiet-lighthouse-91-tide"

func TestChangePasswordKeepsCurrentSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := registerVerifiedUser(t, env, "reader", "reader@example.com")

	current, err := env.auth.Login(ctx, "reader@example.com", testPassword, domain.ClientMetadata{})
	if err != nil {
		t.Fatalf("first login returned error: %v", err)
	}
	other, err := env.auth.Login(ctx, "reader@example.com", testPassword, domain.ClientMetadata{})
	if err != nil {
		t.Fatalf("second login returned error: %v", err)
	}

	if err := env.password.ChangePassword(ctx, user.ID, testPassword, newTestPassword, true, current.Session.ID); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}

	if _, _, err := env.session.Validate(ctx, current.Token); err != nil {
		t.Fatalf("current session should survive, got %v", err)
	}
	if _, _, err := env.session.Validate(ctx, other.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("other session should be revoked, got %v", err)
	}

	if _, err := env.auth.Login(ctx, "reader@example.com", testPassword, domain.ClientMetadata{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password should be rejected, got %v", err)
	}
	if _, err := env.auth.Login(ctx, "reader@example.com", newTestPassword, domain.ClientMetadata{}); err != nil {
		t.Fatalf("new password should work, got %v", err)
	}
}

func TestChangePasswordRevokesEverySession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := registerVerifiedUser(t, env, "reader", "reader@example.com")

	current, err := env.auth.Login(ctx, "reader@example.com", testPassword, domain.ClientMetadata{})
	if err != nil {
		t.Fatalf("first login returned error: %v", err)
	}
	other, err := env.auth.Login(ctx, "reader@example.com", testPassword, domain.ClientMetadata{})
	if err != nil {
		t.Fatalf("second login returned error: %v", err)
	}

	if err := env.password.ChangePassword(ctx, user.ID, testPassword, newTestPassword, false, current.Session.ID); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}

	// Declining to keep the current session leaves none behind.
	if _, _, err := env.session.Validate(ctx, current.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("current session should be revoked, got %v", err)
	}
	if _, _, err := env.session.Validate(ctx, other.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("other session should be revoked, got %v", err)
	}

	active, err := env.session.ListActive(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListActive returned error: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected zero sessions, got %d", len(active))
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := registerVerifiedUser(t, env, "reader", "reader@example.com")

	err := env.password.ChangePassword(ctx, user.ID, "not-the-password", newTestPassword, true, "")
	if !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestChangePasswordPolicy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := registerVerifiedUser(t, env, "reader", "reader@example.com")

	err := env.password.ChangePassword(ctx, user.ID, testPassword, "short", true, "")
	if !errors.Is(err, ErrPasswordPolicyViolation) {
		t.Fatalf("expected ErrPasswordPolicyViolation, got %v", err)
	}
}

func TestResetPasswordFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registerVerifiedUser(t, env, "reader", "reader@example.com")

	session, err := env.auth.Login(ctx, "reader@example.com", testPassword, domain.ClientMetadata{})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if err := env.password.RequestPasswordReset(ctx, "reader@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset returned error: %v", err)
	}

	mail, ok := env.notifier.lastOfKind("password_reset")
	if !ok {
		t.Fatal("no reset email dispatched")
	}

	if err := env.password.ResetPassword(ctx, mail.token, newTestPassword); err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}

	// Reset revokes every session.
	if _, _, err := env.session.Validate(ctx, session.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected all sessions revoked, got %v", err)
	}

	if _, err := env.auth.Login(ctx, "reader@example.com", newTestPassword, domain.ClientMetadata{}); err != nil {
		t.Fatalf("new password should work, got %v", err)
	}

	// The reset token is single-use.
	if err := env.password.ResetPassword(ctx, mail.token, "another-Pass-42-word"); !errors.Is(err, ErrTokenAlreadyUsed) {
		t.Fatalf("expected ErrTokenAlreadyUsed, got %v", err)
	}
}

func TestResetTokenRejectedForVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registerVerifiedUser(t, env, "reader", "reader@example.com")

	if err := env.password.RequestPasswordReset(ctx, "reader@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset returned error: %v", err)
	}

	mail, _ := env.notifier.lastOfKind("password_reset")

	if _, err := env.account.VerifyEmail(ctx, mail.token); !errors.Is(err, ErrTokenTypeMismatch) {
		t.Fatalf("expected ErrTokenTypeMismatch, got %v", err)
	}
}

func TestRequestResetUnknownEmailIsSilent(t *testing.T) {
	env := newTestEnv(t)

	if err := env.password.RequestPasswordReset(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}

	if _, ok := env.notifier.lastOfKind("password_reset"); ok {
		t.Fatal("no email should be dispatched for unknown addresses")
	}
}
