package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/port"
)

// UnitOfWork runs repository operations inside a single PostgreSQL transaction.
type UnitOfWork struct {
	pool  *pgxpool.Pool
	repos *Repositories
}

// NewUnitOfWork constructs a transaction runner over the shared repositories.
func NewUnitOfWork(pool *pgxpool.Pool, repos *Repositories) *UnitOfWork {
	return &UnitOfWork{pool: pool, repos: repos}
}

// Do begins a transaction, binds the repositories to it, and invokes fn.
// The transaction commits when fn returns nil and rolls back otherwise.
func (u *UnitOfWork) Do(ctx context.Context, fn func(tx port.RepositorySet) error) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	set := port.RepositorySet{
		Users:    u.repos.Users.WithTx(tx),
		Sessions: u.repos.Sessions.WithTx(tx),
		Tokens:   u.repos.Tokens.WithTx(tx),
	}

	if err := fn(set); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if err == pgx.ErrTxClosed {
			return nil
		}
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

var _ port.UnitOfWork = (*UnitOfWork)(nil)
