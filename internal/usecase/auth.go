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

// AuthService authenticates credentials and issues bearer sessions.
type AuthService struct {
	users      port.UserRepository
	sessions   port.SessionRepository
	geolocator port.GeoLocator
	logger     *zap.Logger
	sessionTTL time.Duration
	now        func() time.Time
}

// NewAuthService constructs an authentication service.
func NewAuthService(
	users port.UserRepository,
	sessions port.SessionRepository,
	geolocator port.GeoLocator,
	sessionTTL time.Duration,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		users:      users,
		sessions:   sessions,
		geolocator: geolocator,
		logger:     log,
		sessionTTL: sessionTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Test hook.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// LoginResult carries the session and the raw bearer token issued for it.
// The raw token exists only in this value; the store keeps its hash.
type LoginResult struct {
	User    domain.User
	Session domain.Session
	Token   string
}

// Login verifies the identifier/password pair and opens a session. The
// password check runs before the verification gate so an unverified response
// never confirms a credential guess.
func (s *AuthService) Login(ctx context.Context, identifier, password string, meta domain.ClientMetadata) (*LoginResult, error) {
	identifier = domain.NormalizeIdentifier(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var (
		user *domain.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.users.GetByEmail(ctx, identifier)
	} else {
		user, err = s.users.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !security.VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	now := s.now()
	rawToken, err := security.GenerateSecureToken(tokenByteLength)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	csrfSecret, err := security.GenerateSecureToken(tokenByteLength)
	if err != nil {
		return nil, fmt.Errorf("generate csrf secret: %w", err)
	}

	session := domain.Session{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		TokenHash:  security.HashToken(rawToken),
		CSRFSecret: csrfSecret,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.sessionTTL),
	}

	if meta.IPAddress != "" {
		ip := meta.IPAddress
		session.IPAddress = &ip
	}
	if meta.UserAgent != "" {
		ua := meta.UserAgent
		session.UserAgent = &ua
	}
	if meta.DeviceType != "" {
		device := meta.DeviceType
		session.DeviceType = &device
	}

	location := s.resolveLocation(ctx, meta.IPAddress)
	session.Location = &location

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("login succeeded",
		zap.String("user_id", user.ID),
		zap.String("session_id", session.ID),
		zap.String("ip", logger.MaskIP(meta.IPAddress)),
		zap.String("location", location),
	)

	return &LoginResult{User: *user, Session: session, Token: rawToken}, nil
}

// resolveLocation enriches the session with a coarse location. Any failure
// degrades to the unknown marker; login never blocks on the provider.
func (s *AuthService) resolveLocation(ctx context.Context, ipAddress string) string {
	if s.geolocator == nil || ipAddress == "" {
		return domain.UnknownLocation
	}

	loc, err := s.geolocator.Lookup(ctx, ipAddress)
	if err != nil {
		s.logger.Debug("location lookup failed",
			zap.String("ip", logger.MaskIP(ipAddress)),
			zap.Error(err),
		)
		return domain.UnknownLocation
	}

	if label := loc.Label(); label != "" {
		return label
	}
	return domain.UnknownLocation
}

// Logout removes the session. Missing sessions are treated as success.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
