package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/domain"
	"github.com/Simon-Fontaine/bookworm-backend/internal/repository"
)

func TestTokenRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	createdAt := time.Now().UTC()
	token := domain.VerificationToken{
		ID:        "token-1",
		UserID:    "user-1",
		TokenHash: "hash-1",
		Type:      domain.TokenTypeEmailVerification,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(24 * time.Hour),
	}

	mock.ExpectExec(`INSERT INTO identity\.verification_tokens`).
		WithArgs(
			token.ID,
			token.UserID,
			token.TokenHash,
			token.Type,
			token.CreatedAt,
			token.ExpiresAt,
			token.UsedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), token); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_ClaimUnused(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	now := time.Now().UTC()
	createdAt := now.Add(-time.Hour)
	expiresAt := now.Add(time.Hour)

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "token_hash", "token_type", "created_at", "expires_at", "used_at",
	}).AddRow(
		"token-1", "user-1", "hash-1", string(domain.TokenTypeEmailVerification), createdAt, expiresAt, now,
	)

	mock.ExpectQuery(`UPDATE identity\.verification_tokens`).
		WithArgs(now, "hash-1", domain.TokenTypeEmailVerification).
		WillReturnRows(rows)

	token, err := repo.ClaimUnused(context.Background(), "hash-1", domain.TokenTypeEmailVerification, now)
	if err != nil {
		t.Fatalf("ClaimUnused returned error: %v", err)
	}

	if token.UserID != "user-1" {
		t.Fatalf("unexpected user id: %s", token.UserID)
	}
	if token.Type != domain.TokenTypeEmailVerification {
		t.Fatalf("unexpected token type: %s", token.Type)
	}
	if token.UsedAt == nil || !token.UsedAt.Equal(now) {
		t.Fatalf("expected used_at %v, got %v", now, token.UsedAt)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_ClaimUnusedNoRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	now := time.Now().UTC()

	mock.ExpectQuery(`UPDATE identity\.verification_tokens`).
		WithArgs(now, "hash-1", domain.TokenTypePasswordReset).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "token_hash", "token_type", "created_at", "expires_at", "used_at",
		}))

	_, err = repo.ClaimUnused(context.Background(), "hash-1", domain.TokenTypePasswordReset, now)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_DeleteUnused(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	mock.ExpectExec(`DELETE FROM identity\.verification_tokens`).
		WithArgs("user-1", domain.TokenTypeEmailVerification).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	removed, err := repo.DeleteUnused(context.Background(), "user-1", domain.TokenTypeEmailVerification)
	if err != nil {
		t.Fatalf("DeleteUnused returned error: %v", err)
	}

	if removed != 2 {
		t.Fatalf("expected 2 rows removed, got %d", removed)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
