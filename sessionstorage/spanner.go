package sessionstorage

import (
	cloudspanner "cloud.google.com/go/spanner"
	"github.com/cccteam/accessgate/sessionstorage/internal/spanner"
)

// Spanner is the session mirror implementation for Spanner.
type Spanner struct {
	dbMirror
}

// NewSpanner creates a new Spanner mirror.
func NewSpanner(client *cloudspanner.Client) *Spanner {
	return &Spanner{
		dbMirror: dbMirror{db: spanner.NewMirrorDriver(client)},
	}
}
