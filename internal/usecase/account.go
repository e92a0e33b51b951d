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
	"github.com/Simon-Fontaine/bookworm-backend/internal/infra/logger"
	"github.com/Simon-Fontaine/bookworm-backend/internal/infra/security"
	"github.com/Simon-Fontaine/bookworm-backend/internal/repository"
)

// AccountService handles registration, email verification, profile and role
// management, and account removal.
type AccountService struct {
	users             port.UserRepository
	tokens            port.TokenRepository
	uow               port.UnitOfWork
	notifier          port.Notifier
	gate              *DispatchGate
	passwordValidator *security.PasswordValidator
	logger            *zap.Logger
	verificationTTL   time.Duration
	now               func() time.Time
}

// NewAccountService constructs an account service.
func NewAccountService(
	users port.UserRepository,
	tokens port.TokenRepository,
	uow port.UnitOfWork,
	notifier port.Notifier,
	gate *DispatchGate,
	validator *security.PasswordValidator,
	verificationTTL time.Duration,
	log *zap.Logger,
) *AccountService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{
		users:             users,
		tokens:            tokens,
		uow:               uow,
		notifier:          notifier,
		gate:              gate,
		passwordValidator: validator,
		logger:            log,
		verificationTTL:   verificationTTL,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Test hook.
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	s.now = now
	return s
}

// RegisterInput carries the fields required to open an account.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// Register creates an unverified account and dispatches the verification email.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	username := domain.NormalizeIdentifier(input.Username)
	email := domain.NormalizeIdentifier(input.Email)

	if username == "" {
		return domain.User{}, fmt.Errorf("username is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, fmt.Errorf("a valid email is required")
	}
	if err := s.passwordValidator.Validate(input.Password); err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return domain.User{}, ErrEmailExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, fmt.Errorf("lookup email: %w", err)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return domain.User{}, ErrUsernameExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, fmt.Errorf("lookup username: %w", err)
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = username
	}

	now := s.now()
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		Roles:        []string{domain.RoleUser},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return domain.User{}, ErrEmailExists
		case errors.Is(err, repository.ErrDuplicateUsername):
			return domain.User{}, ErrUsernameExists
		default:
			return domain.User{}, fmt.Errorf("create user: %w", err)
		}
	}

	s.dispatchVerification(ctx, user)

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
	)

	return user, nil
}

// dispatchVerification issues a fresh verification token and emails it.
// Dispatch failures never fail the surrounding operation.
func (s *AccountService) dispatchVerification(ctx context.Context, user domain.User) {
	now := s.now()

	raw, err := issueToken(ctx, s.tokens, user.ID, domain.TokenTypeEmailVerification, s.verificationTTL, now)
	if err != nil {
		s.logger.Error("issue verification token failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return
	}

	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendVerificationEmail(ctx, user.Email, user.DisplayName, raw); err != nil {
		s.logger.Error("send verification email failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}
}

// VerifyEmail redeems a verification token and marks the owner's email as
// confirmed. The claim and the flag flip commit atomically.
func (s *AccountService) VerifyEmail(ctx context.Context, rawToken string) (domain.User, error) {
	var user *domain.User

	err := s.uow.Do(ctx, func(tx port.RepositorySet) error {
		token, err := claimToken(ctx, tx.Tokens, rawToken, domain.TokenTypeEmailVerification, s.now())
		if err != nil {
			return err
		}

		if err := tx.Users.SetEmailVerified(ctx, token.UserID, s.now()); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrTokenNotFound
			}
			return fmt.Errorf("set email verified: %w", err)
		}

		user, err = tx.Users.GetByID(ctx, token.UserID)
		if err != nil {
			return fmt.Errorf("lookup user: %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.User{}, err
	}

	if s.notifier != nil {
		if err := s.notifier.SendWelcomeEmail(ctx, user.Email, user.DisplayName); err != nil {
			s.logger.Error("send welcome email failed",
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
		}
	}

	return *user, nil
}

// ResendVerification issues a fresh verification token for an unverified
// account. Unknown addresses are not distinguishable from successful sends.
func (s *AccountService) ResendVerification(ctx context.Context, email string) error {
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

	if user.EmailVerified {
		return nil
	}

	if !s.gate.Allow(ctx, email, s.now()) {
		return ErrDispatchThrottled
	}

	s.dispatchVerification(ctx, *user)

	return nil
}

// Profile field bounds. The columns are TEXT; these are the product limits.
const (
	maxBioLength      = 500
	maxLocationLength = 100
)

// UpdateProfile applies a partial profile mutation and returns the fresh
// record. Every string field is trimmed; bio and location are length-bounded.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, update port.ProfileUpdate) (domain.User, error) {
	if update.Username != nil {
		username := domain.NormalizeIdentifier(*update.Username)
		if username == "" {
			return domain.User{}, fmt.Errorf("%w: username cannot be empty", ErrProfileInvalid)
		}

		if existing, err := s.users.GetByUsername(ctx, username); err == nil && existing.ID != userID {
			return domain.User{}, ErrUsernameExists
		} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, fmt.Errorf("lookup username: %w", err)
		}

		update.Username = &username
	}

	if update.DisplayName != nil {
		displayName := strings.TrimSpace(*update.DisplayName)
		if displayName == "" {
			return domain.User{}, fmt.Errorf("%w: display name cannot be empty", ErrProfileInvalid)
		}
		update.DisplayName = &displayName
	}

	if update.FullName != nil {
		fullName := strings.TrimSpace(*update.FullName)
		update.FullName = &fullName
	}

	if update.Bio != nil {
		bio := strings.TrimSpace(*update.Bio)
		if len(bio) > maxBioLength {
			return domain.User{}, fmt.Errorf("%w: bio exceeds %d characters", ErrProfileInvalid, maxBioLength)
		}
		update.Bio = &bio
	}

	if update.Location != nil {
		location := strings.TrimSpace(*update.Location)
		if len(location) > maxLocationLength {
			return domain.User{}, fmt.Errorf("%w: location exceeds %d characters", ErrProfileInvalid, maxLocationLength)
		}
		update.Location = &location
	}

	if err := s.users.UpdateProfile(ctx, userID, update, s.now()); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return domain.User{}, ErrUserNotFound
		case errors.Is(err, repository.ErrDuplicateUsername):
			return domain.User{}, ErrUsernameExists
		default:
			return domain.User{}, fmt.Errorf("update profile: %w", err)
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}

	return *user, nil
}

// DeleteAccount removes the account after re-authenticating with the current
// password. Sessions and tokens are removed in the same transaction.
func (s *AccountService) DeleteAccount(ctx context.Context, userID, password string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if !security.VerifyPassword(password, user.PasswordHash) {
		return ErrInvalidPassword
	}

	err = s.uow.Do(ctx, func(tx port.RepositorySet) error {
		if err := tx.Tokens.DeleteForUser(ctx, userID); err != nil {
			return fmt.Errorf("delete tokens: %w", err)
		}
		if _, err := tx.Sessions.DeleteAllForUser(ctx, userID, ""); err != nil {
			return fmt.Errorf("delete sessions: %w", err)
		}
		if err := tx.Users.Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("account deleted", zap.String("user_id", userID))

	return nil
}

var knownRoles = map[string]struct{}{
	domain.RoleUser:      {},
	domain.RoleModerator: {},
	domain.RoleAdmin:     {},
}

// AssignRole grants the named role to the user. Idempotent.
func (s *AccountService) AssignRole(ctx context.Context, userID, role string) (domain.User, error) {
	return s.mutateRoles(ctx, userID, role, func(u *domain.User) bool { return u.AddRole(role) })
}

// RevokeRole removes the named role from the user. Idempotent.
func (s *AccountService) RevokeRole(ctx context.Context, userID, role string) (domain.User, error) {
	return s.mutateRoles(ctx, userID, role, func(u *domain.User) bool { return u.RemoveRole(role) })
}

func (s *AccountService) mutateRoles(ctx context.Context, userID, role string, mutate func(*domain.User) bool) (domain.User, error) {
	if _, ok := knownRoles[role]; !ok {
		return domain.User{}, ErrUnknownRole
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if !mutate(user) {
		return *user, nil
	}

	if err := s.users.UpdateRoles(ctx, userID, user.Roles, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("update roles: %w", err)
	}

	return *user, nil
}
