// Package repomanager wires repository constructors to a SQL dialect and
// owns that dialect's schema migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"strings"

	"github.com/mpetrov/cardkeeper/internal/dbx"
	"github.com/mpetrov/cardkeeper/internal/repositories/cards"
	"github.com/mpetrov/cardkeeper/internal/repositories/sessions"
)

// RepositoryManager vends repository implementations bound to a DBTX, so
// services can run the same code against *sql.DB or an open transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Cards(db dbx.DBTX) cards.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}

// ForDSN picks the manager and database/sql driver name for a DSN.
// postgres:// and postgresql:// URLs select PostgreSQL; anything else is
// treated as a SQLite path.
func ForDSN(dsn string) (RepositoryManager, string) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPostgresRepositoryManager(), "pgx"
	}
	return NewSQLiteRepositoryManager(), "sqlite"
}
