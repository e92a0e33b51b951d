package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/domain"
	"github.com/Simon-Fontaine/bookworm-backend/internal/core/port"
	"github.com/Simon-Fontaine/bookworm-backend/internal/infra/security"
	"github.com/Simon-Fontaine/bookworm-backend/internal/repository"
)

// SessionService validates bearer tokens and manages active sessions.
type SessionService struct {
	sessions port.SessionRepository
	users    port.UserRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewSessionService constructs a session service.
func NewSessionService(sessions port.SessionRepository, users port.UserRepository, log *zap.Logger) *SessionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionService{
		sessions: sessions,
		users:    users,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Test hook.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

// Validate resolves a raw bearer token to its session and owner. Expired
// sessions are removed on sight; a session whose owner lost email
// verification is rejected without being deleted.
func (s *SessionService) Validate(ctx context.Context, rawToken string) (*domain.Session, *domain.User, error) {
	if rawToken == "" {
		return nil, nil, ErrSessionNotFound
	}

	session, err := s.sessions.GetByTokenHash(ctx, security.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("lookup session: %w", err)
	}

	now := s.now()
	if session.IsExpired(now) {
		if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("delete expired session failed",
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
		}
		return nil, nil, ErrSessionNotFound
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Orphaned row, the owner is gone.
			if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn("delete orphaned session failed",
					zap.String("session_id", session.ID),
					zap.Error(err),
				)
			}
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("lookup session owner: %w", err)
	}

	if !user.EmailVerified {
		return nil, nil, ErrEmailNotVerified
	}

	return session, user, nil
}

// ListActive returns the user's non-expired sessions, newest first.
func (s *SessionService) ListActive(ctx context.Context, userID string) ([]domain.Session, error) {
	sessions, err := s.sessions.ListActiveByUser(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// RevokeOne removes a single session owned by the user.
func (s *SessionService) RevokeOne(ctx context.Context, userID, sessionID string) error {
	if err := s.sessions.DeleteOwned(ctx, sessionID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// RevokeAll removes every session for the user, optionally sparing the
// current one. Returns the number of sessions removed.
func (s *SessionService) RevokeAll(ctx context.Context, userID, exceptSessionID string) (int, error) {
	removed, err := s.sessions.DeleteAllForUser(ctx, userID, exceptSessionID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}

	s.logger.Info("sessions revoked",
		zap.String("user_id", userID),
		zap.Int("count", removed),
	)

	return removed, nil
}
