package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/domain"
	"github.com/Simon-Fontaine/bookworm-backend/internal/core/port"
	"github.com/Simon-Fontaine/bookworm-backend/internal/infra/security"
	"github.com/Simon-Fontaine/bookworm-backend/internal/repository"
)

const tokenByteLength = 32

// issueToken invalidates prior unused tokens of the same type and stores a
// fresh one. Only the returned raw value ever leaves the process; the row
// keeps its hash.
func issueToken(ctx context.Context, tokens port.TokenRepository, userID string, tokenType domain.TokenType, ttl time.Duration, at time.Time) (string, error) {
	if _, err := tokens.DeleteUnused(ctx, userID, tokenType); err != nil {
		return "", fmt.Errorf("invalidate prior tokens: %w", err)
	}

	raw, err := security.GenerateSecureToken(tokenByteLength)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	token := domain.VerificationToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: security.HashToken(raw),
		Type:      tokenType,
		CreatedAt: at,
		ExpiresAt: at.Add(ttl),
	}

	if err := tokens.Create(ctx, token); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}

	return raw, nil
}

// claimToken consumes the matching unused, unexpired token of the expected
// type. The claim itself is a single conditional update; the follow-up lookup
// only classifies why a claim found no row.
func claimToken(ctx context.Context, tokens port.TokenRepository, raw string, tokenType domain.TokenType, at time.Time) (*domain.VerificationToken, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrTokenNotFound
	}

	hash := security.HashToken(raw)

	token, err := tokens.ClaimUnused(ctx, hash, tokenType, at)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("claim token: %w", err)
	}

	existing, lookupErr := tokens.GetByHash(ctx, hash)
	if lookupErr != nil {
		if errors.Is(lookupErr, repository.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("lookup token: %w", lookupErr)
	}

	switch {
	case existing.Type != tokenType:
		return nil, ErrTokenTypeMismatch
	case existing.UsedAt != nil:
		return nil, ErrTokenAlreadyUsed
	case existing.IsExpired(at):
		return nil, ErrTokenExpired
	default:
		return nil, ErrTokenNotFound
	}
}

// DispatchGate bounds how often account emails may be sent per address inside
// a sliding window. The gate degrades open: a broken counter store only costs
// an extra email, never a blocked signup.
type DispatchGate struct {
	store  port.ThrottleStore
	window time.Duration
	max    int
	logger *zap.Logger
}

// NewDispatchGate constructs a gate over the provided counter store.
func NewDispatchGate(store port.ThrottleStore, window time.Duration, max int, logger *zap.Logger) *DispatchGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispatchGate{store: store, window: window, max: max, logger: logger}
}

// Allow reports whether another email may be dispatched for the key, and
// records the attempt when it may.
func (g *DispatchGate) Allow(ctx context.Context, key string, at time.Time) bool {
	if g == nil || g.store == nil || g.max <= 0 {
		return true
	}

	if err := g.store.TrimWindow(ctx, key, g.window, at); err != nil {
		g.logger.Warn("trim dispatch window failed", zap.Error(err))
		return true
	}

	count, err := g.store.CountAttempts(ctx, key, g.window, at)
	if err != nil {
		g.logger.Warn("count dispatch attempts failed", zap.Error(err))
		return true
	}

	if count >= g.max {
		return false
	}

	if err := g.store.RecordAttempt(ctx, key, at); err != nil {
		g.logger.Warn("record dispatch attempt failed", zap.Error(err))
	}

	return true
}
