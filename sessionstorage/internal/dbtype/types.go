// Package dbtype contains types used by the database driver packages for session storage.
package dbtype

import (
	"time"

	"github.com/cccteam/ccc"
)

// MirrorRow is the persisted copy of one session's key/value mirror. Entries holds a
// JSON object of key to value.
type MirrorRow struct {
	Namespace ccc.UUID  `spanner:"Namespace" db:"Namespace"`
	Entries   string    `spanner:"Entries"   db:"Entries"`
	UpdatedAt time.Time `spanner:"UpdatedAt" db:"UpdatedAt"`
}
