package port

import (
	"context"
	"time"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/domain"
)

// TokenRepository persists single-use verification and reset tokens.
type TokenRepository interface {
	Create(ctx context.Context, token domain.VerificationToken) error
	GetByHash(ctx context.Context, tokenHash string) (*domain.VerificationToken, error)
	// DeleteUnused removes all unconsumed tokens of the given type for the
	// user, enforcing the at-most-one-unused invariant before a fresh issue.
	DeleteUnused(ctx context.Context, userID string, tokenType domain.TokenType) (int, error)
	// ClaimUnused atomically marks the matching unused, unexpired token of the
	// expected type as used and returns it. A single conditional UPDATE: two
	// concurrent claims of the same token cannot both succeed. Returns
	// repository.ErrNotFound when no row qualifies.
	ClaimUnused(ctx context.Context, tokenHash string, tokenType domain.TokenType, at time.Time) (*domain.VerificationToken, error)
	// DeleteForUser removes every token owned by the user.
	DeleteForUser(ctx context.Context, userID string) error
	// DeleteExpired sweeps expired unused tokens. Advisory cleanup.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
