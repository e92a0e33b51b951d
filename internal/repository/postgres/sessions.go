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

var sessionColumns = []string{
	"id",
	"user_id",
	"token_hash",
	"csrf_secret",
	"ip_address",
	"user_agent",
	"device_type",
	"location",
	"created_at",
	"expires_at",
}

// SessionRepository implements port.SessionRepository backed by PostgreSQL.
type SessionRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSessionRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewSessionRepository(exec pgExecutor) *SessionRepository {
	repo := &SessionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *SessionRepository) WithTx(tx pgx.Tx) *SessionRepository {
	if tx == nil {
		return r
	}
	return &SessionRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create persists a new session row.
func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	stmt, args, err := r.builder.Insert("identity.sessions").
		Columns(sessionColumns...).
		Values(
			session.ID,
			session.UserID,
			session.TokenHash,
			session.CSRFSecret,
			optionalString(session.IPAddress),
			optionalString(session.UserAgent),
			optionalString(session.DeviceType),
			optionalString(session.Location),
			session.CreatedAt,
			session.ExpiresAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetByTokenHash fetches a session by its hashed bearer token.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	stmt, args, err := r.builder.Select(sessionColumns...).
		From("identity.sessions").
		Where(squirrel.Eq{"token_hash": tokenHash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return session, nil
}

// Delete removes a session by identifier.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	stmt, args, err := r.builder.Delete("identity.sessions").
		Where(squirrel.Eq{"id": sessionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete session sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeleteOwned removes the session only when it belongs to the given user.
func (r *SessionRepository) DeleteOwned(ctx context.Context, sessionID, userID string) error {
	stmt, args, err := r.builder.Delete("identity.sessions").
		Where(squirrel.Eq{"id": sessionID}).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete owned session sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete owned session: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeleteAllForUser removes every session for the user, optionally sparing one.
func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID string, exceptSessionID string) (int, error) {
	query := r.builder.Delete("identity.sessions").
		Where(squirrel.Eq{"user_id": userID})

	if exceptSessionID != "" {
		query = query.Where(squirrel.NotEq{"id": exceptSessionID})
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete user sessions sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

// ListActiveByUser returns non-expired sessions ordered newest-first.
func (r *SessionRepository) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]domain.Session, error) {
	stmt, args, err := r.builder.Select(sessionColumns...).
		From("identity.sessions").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Gt{"expires_at": now.UTC()}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// DeleteExpired sweeps sessions past their expiry.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	stmt, args, err := r.builder.Delete("identity.sessions").
		Where(squirrel.LtOrEq{"expires_at": now.UTC()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete expired sessions sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		session    domain.Session
		ipAddress  sql.NullString
		userAgent  sql.NullString
		deviceType sql.NullString
		location   sql.NullString
	)

	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.CSRFSecret,
		&ipAddress,
		&userAgent,
		&deviceType,
		&location,
		&session.CreatedAt,
		&session.ExpiresAt,
	); err != nil {
		return nil, err
	}

	session.IPAddress = nullableStringPtr(ipAddress)
	session.UserAgent = nullableStringPtr(userAgent)
	session.DeviceType = nullableStringPtr(deviceType)
	session.Location = nullableStringPtr(location)

	return &session, nil
}

var _ port.SessionRepository = (*SessionRepository)(nil)
