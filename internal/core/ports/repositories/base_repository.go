package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TransactionManager defines methods for transaction management
type TransactionManager interface {
	// Begin starts a new database transaction
	Begin(ctx context.Context) (pgx.Tx, error)

	// Commit commits a transaction
	Commit(ctx context.Context, tx pgx.Tx) error

	// Rollback rolls back a transaction
	Rollback(ctx context.Context, tx pgx.Tx) error
}

// AggregateLocker serializes writers of one aggregate across processes.
type AggregateLocker interface {
	// Acquire blocks until the lock for key is held or ctx/timeout ends.
	// The returned release function must be called once the critical section is done.
	Acquire(ctx context.Context, key string) (release func(context.Context) error, err error)
}

// RepositoryProvider holds all repository interfaces needed by services.
type RepositoryProvider struct {
	UserRepo     UserRepositoryFacade
	TenantRepo   TenantRepositoryFacade
	QuoteRepo    QuoteRepositoryFacade
	APITokenRepo APITokenRepository
}
