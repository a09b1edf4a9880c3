package repomanager

import (
	"context"

	"github.com/dmitrijs2005/elnafo/internal/server/repositories/users"
)

// RepositoryManager owns the schema and vends repositories bound to one
// connection pool.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Users() users.Repository
}
