package sessionstorage

import (
	"github.com/cccteam/accessgate/sessionstorage/internal/postgres"
)

// Postgres is the session mirror implementation for PostgreSQL.
type Postgres struct {
	dbMirror
}

// NewPostgres creates a new Postgres mirror.
func NewPostgres(conn postgres.Queryer) *Postgres {
	return &Postgres{
		dbMirror: dbMirror{db: postgres.NewMirrorDriver(conn)},
	}
}
