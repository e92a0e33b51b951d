package port

import (
	"context"
	"time"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/domain"
)

// ProfileUpdate carries a partial profile mutation. Nil fields are untouched.
type ProfileUpdate struct {
	Username    *string
	DisplayName *string
	FullName    *string
	Bio         *string
	Location    *string
}

// UserRepository persists user identity records.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate, at time.Time) error
	UpdatePassword(ctx context.Context, id string, passwordHash string, at time.Time) error
	SetEmailVerified(ctx context.Context, id string, at time.Time) error
	UpdateRoles(ctx context.Context, id string, roles []string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
