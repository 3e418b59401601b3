// Package sessionstorage holds the current session in memory and mirrors it to durable
// key/value storage so it survives a reload. Mirrors can be kept in a cookie, in process
// memory, in PostgreSQL or in Spanner.
package sessionstorage

import (
	"context"
	"time"

	"github.com/cccteam/accessgate/sessioninfo"
	"github.com/cccteam/ccc"
)

var (
	_ Store = (*Mirrored)(nil)

	_ Mirror = (*Memory)(nil)
	_ Mirror = (*Postgres)(nil)
	_ Mirror = (*Spanner)(nil)

	_ KV = (*scoped)(nil)
	_ KV = (*CookieKV)(nil)
)

// Store provides get/set/clear access to the current session. Get returns a nil Session
// and a nil error when there is none. Reload is Get after discarding anything cached, for
// callers that must observe writes made through another Store.
type Store interface {
	Get(ctx context.Context) (*sessioninfo.Session, error)
	Reload(ctx context.Context) (*sessioninfo.Session, error)
	Set(ctx context.Context, sess *sessioninfo.Session) error
	Clear(ctx context.Context) error
}

// KV is durable client key/value storage. Save and Delete must apply all keys atomically.
type KV interface {
	Load(ctx context.Context, keys ...string) (map[string]string, error)
	Save(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// Mirror is server side key/value storage partitioned by session ID.
type Mirror interface {
	Load(ctx context.Context, sessionID ccc.UUID, keys ...string) (map[string]string, error)
	Save(ctx context.Context, sessionID ccc.UUID, values map[string]string) error
	Delete(ctx context.Context, sessionID ccc.UUID, keys ...string) error
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
