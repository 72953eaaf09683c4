package pgsql

import (
	portsrepo "github.com/SscSPs/insurance_platform/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		UserRepo:     newPgxUserRepository(dbPool),
		TenantRepo:   newPgxTenantRepository(dbPool),
		QuoteRepo:    newPgxQuoteRepository(dbPool),
		APITokenRepo: newPgxAPITokenRepository(dbPool),
	}
}
