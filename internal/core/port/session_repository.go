package port

import (
	"context"
	"time"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/domain"
)

// SessionRepository persists login sessions keyed by hashed bearer token.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	Delete(ctx context.Context, sessionID string) error
	// DeleteOwned removes the session only when it belongs to userID.
	DeleteOwned(ctx context.Context, sessionID, userID string) error
	// DeleteAllForUser removes every session for the user, optionally sparing
	// one session identifier. Returns the number of rows removed.
	DeleteAllForUser(ctx context.Context, userID string, exceptSessionID string) (int, error)
	// ListActiveByUser returns non-expired sessions ordered newest-first.
	ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]domain.Session, error)
	// DeleteExpired sweeps sessions past their expiry. Advisory cleanup.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
