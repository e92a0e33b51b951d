package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/domain"
)

func TestIssueTokenInvalidatesPrior(t *testing.T) {
	tokens := newFakeTokenRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	first, err := issueToken(ctx, tokens, "user-1", domain.TokenTypeEmailVerification, time.Hour, now)
	if err != nil {
		t.Fatalf("first issue returned error: %v", err)
	}

	second, err := issueToken(ctx, tokens, "user-1", domain.TokenTypeEmailVerification, time.Hour, now)
	if err != nil {
		t.Fatalf("second issue returned error: %v", err)
	}

	if _, err := claimToken(ctx, tokens, first, domain.TokenTypeEmailVerification, now); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("superseded token should be gone, got %v", err)
	}

	if _, err := claimToken(ctx, tokens, second, domain.TokenTypeEmailVerification, now); err != nil {
		t.Fatalf("fresh token should claim, got %v", err)
	}
}

func TestIssueTokenPreservesOtherTypes(t *testing.T) {
	tokens := newFakeTokenRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	reset, err := issueToken(ctx, tokens, "user-1", domain.TokenTypePasswordReset, time.Hour, now)
	if err != nil {
		t.Fatalf("issue reset returned error: %v", err)
	}

	if _, err := issueToken(ctx, tokens, "user-1", domain.TokenTypeEmailVerification, time.Hour, now); err != nil {
		t.Fatalf("issue verification returned error: %v", err)
	}

	if _, err := claimToken(ctx, tokens, reset, domain.TokenTypePasswordReset, now); err != nil {
		t.Fatalf("reset token should survive a verification reissue, got %v", err)
	}
}

func TestClaimTokenExpired(t *testing.T) {
	tokens := newFakeTokenRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	raw, err := issueToken(ctx, tokens, "user-1", domain.TokenTypeEmailVerification, time.Hour, now)
	if err != nil {
		t.Fatalf("issue returned error: %v", err)
	}

	_, err = claimToken(ctx, tokens, raw, domain.TokenTypeEmailVerification, now.Add(2*time.Hour))
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestClaimTokenEmpty(t *testing.T) {
	tokens := newFakeTokenRepo()

	_, err := claimToken(context.Background(), tokens, "  ", domain.TokenTypeEmailVerification, time.Now().UTC())
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestDispatchGateDegradesOpen(t *testing.T) {
	gate := NewDispatchGate(nil, time.Minute, 1, nil)

	if !gate.Allow(context.Background(), "reader@example.com", time.Now().UTC()) {
		t.Fatal("gate without a store must allow")
	}
}

func TestDispatchGateWindowSlides(t *testing.T) {
	store := newMemoryThrottle()
	gate := NewDispatchGate(store, time.Minute, 1, nil)
	ctx := context.Background()
	base := time.Now().UTC()

	if !gate.Allow(ctx, "reader@example.com", base) {
		t.Fatal("first attempt should pass")
	}
	if gate.Allow(ctx, "reader@example.com", base.Add(time.Second)) {
		t.Fatal("second attempt inside the window should be throttled")
	}
	if !gate.Allow(ctx, "reader@example.com", base.Add(2*time.Minute)) {
		t.Fatal("attempt after the window should pass")
	}
}
