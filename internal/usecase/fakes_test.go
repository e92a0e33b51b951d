package usecase

import (
	"context"
	"time"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/domain"
	"github.com/Simon-Fontaine/bookworm-backend/internal/core/port"
	"github.com/Simon-Fontaine/bookworm-backend/internal/repository"
)

type fakeUserRepo struct {
	users map[string]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user domain.User) error {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
		if existing.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			found := user
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			found := user
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, id string, update port.ProfileUpdate, at time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if update.Username != nil {
		user.Username = *update.Username
	}
	if update.DisplayName != nil {
		user.DisplayName = *update.DisplayName
	}
	if update.FullName != nil {
		user.FullName = update.FullName
	}
	if update.Bio != nil {
		user.Bio = update.Bio
	}
	if update.Location != nil {
		user.Location = update.Location
	}
	user.UpdatedAt = at
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id string, passwordHash string, at time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = at
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) SetEmailVerified(_ context.Context, id string, at time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.EmailVerified = true
	user.UpdatedAt = at
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) UpdateRoles(_ context.Context, id string, roles []string, at time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Roles = roles
	user.UpdatedAt = at
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

type fakeSessionRepo struct {
	sessions map[string]domain.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]domain.Session)}
}

func (r *fakeSessionRepo) Create(_ context.Context, session domain.Session) error {
	r.sessions[session.ID] = session
	return nil
}

func (r *fakeSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*domain.Session, error) {
	for _, session := range r.sessions {
		if session.TokenHash == tokenHash {
			found := session
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSessionRepo) Delete(_ context.Context, sessionID string) error {
	if _, ok := r.sessions[sessionID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.sessions, sessionID)
	return nil
}

func (r *fakeSessionRepo) DeleteOwned(_ context.Context, sessionID, userID string) error {
	session, ok := r.sessions[sessionID]
	if !ok || session.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.sessions, sessionID)
	return nil
}

func (r *fakeSessionRepo) DeleteAllForUser(_ context.Context, userID string, exceptSessionID string) (int, error) {
	removed := 0
	for id, session := range r.sessions {
		if session.UserID != userID || id == exceptSessionID {
			continue
		}
		delete(r.sessions, id)
		removed++
	}
	return removed, nil
}

func (r *fakeSessionRepo) ListActiveByUser(_ context.Context, userID string, now time.Time) ([]domain.Session, error) {
	active := make([]domain.Session, 0)
	for _, session := range r.sessions {
		if session.UserID == userID && !session.IsExpired(now) {
			active = append(active, session)
		}
	}
	for i := 1; i < len(active); i++ {
		for j := i; j > 0 && active[j].CreatedAt.After(active[j-1].CreatedAt); j-- {
			active[j], active[j-1] = active[j-1], active[j]
		}
	}
	return active, nil
}

func (r *fakeSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	removed := 0
	for id, session := range r.sessions {
		if session.IsExpired(now) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}

type fakeTokenRepo struct {
	tokens map[string]domain.VerificationToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]domain.VerificationToken)}
}

func (r *fakeTokenRepo) Create(_ context.Context, token domain.VerificationToken) error {
	r.tokens[token.ID] = token
	return nil
}

func (r *fakeTokenRepo) GetByHash(_ context.Context, tokenHash string) (*domain.VerificationToken, error) {
	for _, token := range r.tokens {
		if token.TokenHash == tokenHash {
			found := token
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeTokenRepo) DeleteUnused(_ context.Context, userID string, tokenType domain.TokenType) (int, error) {
	removed := 0
	for id, token := range r.tokens {
		if token.UserID == userID && token.Type == tokenType && token.UsedAt == nil {
			delete(r.tokens, id)
			removed++
		}
	}
	return removed, nil
}

func (r *fakeTokenRepo) ClaimUnused(_ context.Context, tokenHash string, tokenType domain.TokenType, at time.Time) (*domain.VerificationToken, error) {
	for id, token := range r.tokens {
		if token.TokenHash != tokenHash || token.Type != tokenType {
			continue
		}
		if token.UsedAt != nil || token.IsExpired(at) {
			continue
		}
		used := at
		token.UsedAt = &used
		r.tokens[id] = token
		claimed := token
		return &claimed, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeTokenRepo) DeleteForUser(_ context.Context, userID string) error {
	for id, token := range r.tokens {
		if token.UserID == userID {
			delete(r.tokens, id)
		}
	}
	return nil
}

func (r *fakeTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	removed := 0
	for id, token := range r.tokens {
		if token.UsedAt == nil && token.IsExpired(now) {
			delete(r.tokens, id)
			removed++
		}
	}
	return removed, nil
}

// stubUnitOfWork runs fn against the shared fakes without transaction
// semantics. Unit tests only exercise the call ordering.
type stubUnitOfWork struct {
	set port.RepositorySet
}

func (u *stubUnitOfWork) Do(_ context.Context, fn func(tx port.RepositorySet) error) error {
	return fn(u.set)
}

type sentEmail struct {
	kind        string
	email       string
	displayName string
	token       string
}

type fakeNotifier struct {
	sent []sentEmail
}

func (n *fakeNotifier) SendVerificationEmail(_ context.Context, email, displayName, token string) error {
	n.sent = append(n.sent, sentEmail{kind: "verification", email: email, displayName: displayName, token: token})
	return nil
}

func (n *fakeNotifier) SendPasswordResetEmail(_ context.Context, email, displayName, token string) error {
	n.sent = append(n.sent, sentEmail{kind: "password_reset", email: email, displayName: displayName, token: token})
	return nil
}

func (n *fakeNotifier) SendWelcomeEmail(_ context.Context, email, displayName string) error {
	n.sent = append(n.sent, sentEmail{kind: "welcome", email: email, displayName: displayName})
	return nil
}

func (n *fakeNotifier) lastOfKind(kind string) (sentEmail, bool) {
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].kind == kind {
			return n.sent[i], true
		}
	}
	return sentEmail{}, false
}

type memoryThrottle struct {
	attempts map[string][]time.Time
}

func newMemoryThrottle() *memoryThrottle {
	return &memoryThrottle{attempts: make(map[string][]time.Time)}
}

func (t *memoryThrottle) RecordAttempt(_ context.Context, key string, at time.Time) error {
	t.attempts[key] = append(t.attempts[key], at)
	return nil
}

func (t *memoryThrottle) CountAttempts(_ context.Context, key string, window time.Duration, reference time.Time) (int, error) {
	count := 0
	for _, at := range t.attempts[key] {
		if !at.Before(reference.Add(-window)) && !at.After(reference) {
			count++
		}
	}
	return count, nil
}

func (t *memoryThrottle) TrimWindow(_ context.Context, key string, window time.Duration, reference time.Time) error {
	kept := t.attempts[key][:0]
	for _, at := range t.attempts[key] {
		if !at.Before(reference.Add(-window)) {
			kept = append(kept, at)
		}
	}
	t.attempts[key] = kept
	return nil
}

type fakeGeolocator struct {
	location *port.GeoLocation
	err      error
}

func (g *fakeGeolocator) Lookup(_ context.Context, _ string) (*port.GeoLocation, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.location, nil
}
