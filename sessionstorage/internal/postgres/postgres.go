// Package postgres implements the session mirror storage driver for PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cccteam/accessgate/sessionstorage/internal/dbtype"
	"github.com/cccteam/ccc"
	"github.com/cccteam/httpio"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/go-playground/errors/v5"
	"github.com/jackc/pgx/v5"
)

// MirrorDriver stores session mirrors in PostgreSQL. Each namespace is one row holding a
// JSONB object, so every write and delete is a single atomic statement.
type MirrorDriver struct {
	conn      Queryer
	tableName string
}

// NewMirrorDriver creates a new MirrorDriver
func NewMirrorDriver(conn Queryer) *MirrorDriver {
	return &MirrorDriver{
		conn:      conn,
		tableName: "SessionMirror",
	}
}

// SetTableName sets the name of the mirror table.
func (d *MirrorDriver) SetTableName(name string) {
	d.tableName = name
}

// Mirror returns the stored row for namespace.
func (d *MirrorDriver) Mirror(ctx context.Context, namespace ccc.UUID) (*dbtype.MirrorRow, error) {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	query := fmt.Sprintf(`
		SELECT
			"Namespace", "Entries"::text AS "Entries", "UpdatedAt"
		FROM "%s"
		WHERE "Namespace" = $1
	`, d.tableName)

	row := &dbtype.MirrorRow{}
	if err := pgxscan.Get(ctx, d.conn, row, query, namespace); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpio.NewNotFoundMessagef("session mirror %s not found", namespace)
		}

		return nil, errors.Wrapf(err, "failed to scan row for session mirror %s", namespace)
	}

	return row, nil
}

// MergeEntries upserts values into the namespace's entries.
func (d *MirrorDriver) MergeEntries(ctx context.Context, namespace ccc.UUID, values map[string]string) error {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	entries, err := json.Marshal(values)
	if err != nil {
		return errors.Wrap(err, "json.Marshal()")
	}

	query := fmt.Sprintf(`
		INSERT INTO "%[1]s"
			("Namespace", "Entries", "UpdatedAt")
		VALUES
			($1, $2::jsonb, $3)
		ON CONFLICT ("Namespace") DO UPDATE
		SET "Entries" = "%[1]s"."Entries" || EXCLUDED."Entries", "UpdatedAt" = EXCLUDED."UpdatedAt"
	`, d.tableName)

	if _, err := d.conn.Exec(ctx, query, namespace, string(entries), time.Now()); err != nil {
		return errors.Wrapf(err, "failed to upsert session mirror %s", namespace)
	}

	return nil
}

// DeleteEntries removes keys from the namespace's entries. The row is removed once it is empty.
func (d *MirrorDriver) DeleteEntries(ctx context.Context, namespace ccc.UUID, keys []string) (err error) {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	tx, err := d.conn.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "Queryer.Begin()")
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(ctx); rerr != nil && !errors.Is(rerr, pgx.ErrTxClosed) {
				err = errors.Wrapf(err, "rollback failed: %s", rerr)
			}
		}
	}()

	update := fmt.Sprintf(`
		UPDATE "%s" SET "Entries" = "Entries" - $2::text[], "UpdatedAt" = $3
		WHERE "Namespace" = $1
	`, d.tableName)

	if _, err := tx.Exec(ctx, update, namespace, keys, time.Now()); err != nil {
		return errors.Wrapf(err, "failed to delete entries from session mirror %s", namespace)
	}

	remove := fmt.Sprintf(`DELETE FROM "%s" WHERE "Namespace" = $1 AND "Entries" = '{}'::jsonb`, d.tableName)

	if _, err := tx.Exec(ctx, remove, namespace); err != nil {
		return errors.Wrapf(err, "failed to remove empty session mirror %s", namespace)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "pgx.Tx.Commit()")
	}

	return nil
}

// PurgeBefore removes mirrors that have not been written since cutoff.
func (d *MirrorDriver) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	query := fmt.Sprintf(`DELETE FROM "%s" WHERE "UpdatedAt" < $1`, d.tableName)

	res, err := d.conn.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to purge session mirrors")
	}

	return res.RowsAffected(), nil
}
