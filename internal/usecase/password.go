package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/domain"
	"github.com/Simon-Fontaine/bookworm-backend/internal/core/port"
	"github.com/Simon-Fontaine/bookworm-backend/internal/infra/logger"
	"github.com/Simon-Fontaine/bookworm-backend/internal/infra/security"
	"github.com/Simon-Fontaine/bookworm-backend/internal/repository"
)

// PasswordService handles credential rotation and the reset-by-email flow.
type PasswordService struct {
	users             port.UserRepository
	tokens            port.TokenRepository
	uow               port.UnitOfWork
	notifier          port.Notifier
	gate              *DispatchGate
	passwordValidator *security.PasswordValidator
	logger            *zap.Logger
	resetTTL          time.Duration
	now               func() time.Time
}

// NewPasswordService constructs a password service.
func NewPasswordService(
	users port.UserRepository,
	tokens port.TokenRepository,
	uow port.UnitOfWork,
	notifier port.Notifier,
	gate *DispatchGate,
	validator *security.PasswordValidator,
	resetTTL time.Duration,
	log *zap.Logger,
) *PasswordService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PasswordService{
		users:             users,
		tokens:            tokens,
		uow:               uow,
		notifier:          notifier,
		gate:              gate,
		passwordValidator: validator,
		logger:            log,
		resetTTL:          resetTTL,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Test hook.
func (s *PasswordService) WithClock(now func() time.Time) *PasswordService {
	s.now = now
	return s
}

// ChangePassword rotates the password after re-authenticating with the
// current one. Every other session is revoked; the session performing the
// change survives only when keepCurrentSession is set.
func (s *PasswordService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string, keepCurrentSession bool, currentSessionID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if !security.VerifyPassword(currentPassword, user.PasswordHash) {
		return ErrInvalidPassword
	}

	if err := s.passwordValidator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	exceptSessionID := ""
	if keepCurrentSession {
		exceptSessionID = currentSessionID
	}

	err = s.uow.Do(ctx, func(tx port.RepositorySet) error {
		if err := tx.Users.UpdatePassword(ctx, userID, passwordHash, s.now()); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if _, err := tx.Sessions.DeleteAllForUser(ctx, userID, exceptSessionID); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("password changed",
		zap.String("user_id", userID),
		zap.Bool("kept_current_session", keepCurrentSession),
	)

	return nil
}

// RequestPasswordReset issues a reset token for the address and emails it.
// The response is identical whether or not the address is registered.
func (s *PasswordService) RequestPasswordReset(ctx context.Context, email string) error {
	email = domain.NormalizeIdentifier(email)
	if email == "" {
		return nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup email: %w", err)
	}

	now := s.now()
	if !s.gate.Allow(ctx, email, now) {
		s.logger.Warn("password reset dispatch throttled",
			zap.String("email", logger.MaskEmail(email)),
		)
		return nil
	}

	raw, err := issueToken(ctx, s.tokens, user.ID, domain.TokenTypePasswordReset, s.resetTTL, now)
	if err != nil {
		s.logger.Error("issue reset token failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return nil
	}

	if s.notifier != nil {
		if err := s.notifier.SendPasswordResetEmail(ctx, user.Email, user.DisplayName, raw); err != nil {
			s.logger.Error("send reset email failed",
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// ResetPassword redeems a reset token, replaces the password, and revokes
// every session for the account. All three commit atomically.
func (s *PasswordService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if err := s.passwordValidator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	var userID string
	err = s.uow.Do(ctx, func(tx port.RepositorySet) error {
		token, err := claimToken(ctx, tx.Tokens, rawToken, domain.TokenTypePasswordReset, s.now())
		if err != nil {
			return err
		}
		userID = token.UserID

		if err := tx.Users.UpdatePassword(ctx, token.UserID, passwordHash, s.now()); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrTokenNotFound
			}
			return fmt.Errorf("update password: %w", err)
		}

		if _, err := tx.Sessions.DeleteAllForUser(ctx, token.UserID, ""); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("password reset completed", zap.String("user_id", userID))

	return nil
}
