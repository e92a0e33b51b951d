package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/domain"
	"github.com/Simon-Fontaine/bookworm-backend/internal/core/port"
	"github.com/Simon-Fontaine/bookworm-backend/internal/repository"
)

var tokenColumns = []string{
	"id",
	"user_id",
	"token_hash",
	"token_type",
	"created_at",
	"expires_at",
	"used_at",
}

// TokenRepository implements port.TokenRepository using PostgreSQL.
type TokenRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTokenRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewTokenRepository(exec pgExecutor) *TokenRepository {
	repo := &TokenRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance executing within the provided transaction.
func (r *TokenRepository) WithTx(tx pgx.Tx) *TokenRepository {
	if tx == nil {
		return r
	}
	return &TokenRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new verification token row.
func (r *TokenRepository) Create(ctx context.Context, token domain.VerificationToken) error {
	stmt, args, err := r.builder.Insert("identity.verification_tokens").
		Columns(tokenColumns...).
		Values(
			token.ID,
			token.UserID,
			token.TokenHash,
			token.Type,
			token.CreatedAt,
			token.ExpiresAt,
			token.UsedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}

	return nil
}

// GetByHash retrieves a token by its hashed value.
func (r *TokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.VerificationToken, error) {
	stmt, args, err := r.builder.Select(tokenColumns...).
		From("identity.verification_tokens").
		Where(squirrel.Eq{"token_hash": tokenHash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select token sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	token, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan token: %w", err)
	}

	return token, nil
}

// DeleteUnused removes all unconsumed tokens of the given type for the user.
func (r *TokenRepository) DeleteUnused(ctx context.Context, userID string, tokenType domain.TokenType) (int, error) {
	stmt, args, err := r.builder.Delete("identity.verification_tokens").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Eq{"token_type": tokenType}).
		Where("used_at IS NULL").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete unused tokens sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete unused tokens: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

// ClaimUnused atomically consumes the matching unused, unexpired token of the
// expected type. The conditional UPDATE guarantees two concurrent claims of
// the same token cannot both succeed.
func (r *TokenRepository) ClaimUnused(ctx context.Context, tokenHash string, tokenType domain.TokenType, at time.Time) (*domain.VerificationToken, error) {
	stmt := `
		UPDATE identity.verification_tokens
		   SET used_at = $1
		 WHERE token_hash = $2
		   AND token_type = $3
		   AND used_at IS NULL
		   AND expires_at > $1
		 RETURNING id, user_id, token_hash, token_type, created_at, expires_at, used_at
	`

	row := r.exec.QueryRow(ctx, stmt, at.UTC(), tokenHash, tokenType)

	token, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("claim token: %w", err)
	}

	return token, nil
}

// DeleteForUser removes every token owned by the user.
func (r *TokenRepository) DeleteForUser(ctx context.Context, userID string) error {
	stmt, args, err := r.builder.Delete("identity.verification_tokens").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete user tokens sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete user tokens: %w", err)
	}

	return nil
}

// DeleteExpired sweeps expired unused tokens.
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	stmt, args, err := r.builder.Delete("identity.verification_tokens").
		Where(squirrel.LtOrEq{"expires_at": now.UTC()}).
		Where("used_at IS NULL").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete expired tokens sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

func scanToken(row pgx.Row) (*domain.VerificationToken, error) {
	var (
		token     domain.VerificationToken
		tokenType string
		usedAt    sql.NullTime
	)

	// token_type scans through a plain string; domain.TokenType is a defined
	// type some row implementations refuse as a destination.
	if err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&tokenType,
		&token.CreatedAt,
		&token.ExpiresAt,
		&usedAt,
	); err != nil {
		return nil, err
	}

	token.Type = domain.TokenType(tokenType)
	token.UsedAt = nullableTimePtr(usedAt)

	return &token, nil
}

var _ port.TokenRepository = (*TokenRepository)(nil)
