package port

import "context"

// RepositorySet groups the repositories participating in a transaction.
type RepositorySet struct {
	Users    UserRepository
	Sessions SessionRepository
	Tokens   TokenRepository
}

// UnitOfWork runs fn against a repository set bound to one transaction.
// Every statement issued through the set commits or rolls back atomically.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx RepositorySet) error) error
}
