package sessionstorage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cccteam/accessgate/sessionstorage/internal/dbtype"
	"github.com/cccteam/ccc"
	"github.com/cccteam/httpio"
	"github.com/go-playground/errors/v5"
)

// Scoped returns the KV view of m for one session.
func Scoped(m Mirror, sessionID ccc.UUID) KV {
	return &scoped{mirror: m, sessionID: sessionID}
}

type scoped struct {
	mirror    Mirror
	sessionID ccc.UUID
}

func (s *scoped) Load(ctx context.Context, keys ...string) (map[string]string, error) {
	return s.mirror.Load(ctx, s.sessionID, keys...)
}

func (s *scoped) Save(ctx context.Context, values map[string]string) error {
	return s.mirror.Save(ctx, s.sessionID, values)
}

func (s *scoped) Delete(ctx context.Context, keys ...string) error {
	return s.mirror.Delete(ctx, s.sessionID, keys...)
}

// dbMirror adapts a database driver to the Mirror interface.
type dbMirror struct {
	db db
}

func (d *dbMirror) Load(ctx context.Context, sessionID ccc.UUID, keys ...string) (map[string]string, error) {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	row, err := d.db.Mirror(ctx, sessionID)
	if err != nil {
		if httpio.HasNotFound(err) {
			return map[string]string{}, nil
		}

		return nil, errors.Wrap(err, "db.Mirror()")
	}

	entries := make(map[string]string)
	if err := json.Unmarshal([]byte(row.Entries), &entries); err != nil {
		return nil, errors.Wrap(err, "json.Unmarshal()")
	}

	return pick(entries, keys), nil
}

func (d *dbMirror) Save(ctx context.Context, sessionID ccc.UUID, values map[string]string) error {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	if err := d.db.MergeEntries(ctx, sessionID, values); err != nil {
		return errors.Wrap(err, "db.MergeEntries()")
	}

	return nil
}

func (d *dbMirror) Delete(ctx context.Context, sessionID ccc.UUID, keys ...string) error {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	if err := d.db.DeleteEntries(ctx, sessionID, keys); err != nil {
		return errors.Wrap(err, "db.DeleteEntries()")
	}

	return nil
}

func (d *dbMirror) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := d.db.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "db.PurgeBefore()")
	}

	return n, nil
}

func pick(entries map[string]string, keys []string) map[string]string {
	if len(keys) == 0 {
		return entries
	}

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := entries[k]; ok {
			out[k] = v
		}
	}

	return out
}

// db is implemented by the database drivers.
type db interface {
	Mirror(ctx context.Context, namespace ccc.UUID) (*dbtype.MirrorRow, error)
	MergeEntries(ctx context.Context, namespace ccc.UUID, values map[string]string) error
	DeleteEntries(ctx context.Context, namespace ccc.UUID, keys []string) error
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
