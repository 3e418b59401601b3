// Package spanner provides the session mirror storage driver for Spanner.
package spanner

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"cloud.google.com/go/spanner"
	"github.com/cccteam/accessgate/sessionstorage/internal/dbtype"
	"github.com/cccteam/ccc"
	"github.com/cccteam/httpio"
	"github.com/cccteam/spxscan"
	"github.com/go-playground/errors/v5"
	"google.golang.org/grpc/codes"
)

// MirrorDriver stores session mirrors in Spanner. Each namespace is one row and every
// change is applied in a single read-write transaction.
type MirrorDriver struct {
	spanner   *spanner.Client
	tableName string
}

// NewMirrorDriver creates a new MirrorDriver
func NewMirrorDriver(client *spanner.Client) *MirrorDriver {
	return &MirrorDriver{
		spanner:   client,
		tableName: "SessionMirror",
	}
}

// SetTableName sets the name of the mirror table.
func (s *MirrorDriver) SetTableName(name string) {
	s.tableName = name
}

// Mirror returns the stored row for namespace.
func (s *MirrorDriver) Mirror(ctx context.Context, namespace ccc.UUID) (*dbtype.MirrorRow, error) {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	stmt := spanner.NewStatement(fmt.Sprintf(`
		SELECT
			Namespace,
			Entries,
			UpdatedAt
		FROM %s
		WHERE Namespace = @namespace
	`, s.tableName))
	stmt.Params["namespace"] = namespace.String()

	row := &dbtype.MirrorRow{}
	if err := spxscan.Get(ctx, s.spanner.Single(), row, stmt); err != nil {
		if errors.Is(err, spxscan.ErrNotFound) {
			return nil, httpio.NewNotFoundMessagef("session mirror %q not found", namespace)
		}

		return nil, errors.Wrapf(err, "failed to scan row for session mirror %q", namespace)
	}

	return row, nil
}

// MergeEntries upserts values into the namespace's entries.
func (s *MirrorDriver) MergeEntries(ctx context.Context, namespace ccc.UUID, values map[string]string) error {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	_, err := s.spanner.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		entries, found, err := s.readEntries(ctx, txn, namespace)
		if err != nil {
			return err
		}
		if !found {
			entries = make(map[string]string, len(values))
		}
		maps.Copy(entries, values)

		return s.writeEntries(txn, namespace, entries)
	})
	if err != nil {
		return errors.Wrapf(err, "failed to upsert session mirror %q", namespace)
	}

	return nil
}

// DeleteEntries removes keys from the namespace's entries. The row is removed once it is empty.
func (s *MirrorDriver) DeleteEntries(ctx context.Context, namespace ccc.UUID, keys []string) error {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	_, err := s.spanner.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		entries, found, err := s.readEntries(ctx, txn, namespace)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		for _, k := range keys {
			delete(entries, k)
		}

		if len(entries) == 0 {
			return txn.BufferWrite([]*spanner.Mutation{spanner.Delete(s.tableName, spanner.Key{namespace.String()})})
		}

		return s.writeEntries(txn, namespace, entries)
	})
	if err != nil {
		return errors.Wrapf(err, "failed to delete entries from session mirror %q", namespace)
	}

	return nil
}

// PurgeBefore removes mirrors that have not been written since cutoff.
func (s *MirrorDriver) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	stmt := spanner.NewStatement(fmt.Sprintf(`DELETE FROM %s WHERE UpdatedAt < @cutoff`, s.tableName))
	stmt.Params["cutoff"] = cutoff

	var n int64
	_, err := s.spanner.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		var err error
		n, err = txn.Update(ctx, stmt)

		return err
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to purge session mirrors")
	}

	return n, nil
}

func (s *MirrorDriver) readEntries(ctx context.Context, txn *spanner.ReadWriteTransaction, namespace ccc.UUID) (map[string]string, bool, error) {
	row, err := txn.ReadRow(ctx, s.tableName, spanner.Key{namespace.String()}, []string{"Entries"})
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return nil, false, nil
		}

		return nil, false, errors.Wrap(err, "spanner.ReadWriteTransaction.ReadRow()")
	}

	var raw string
	if err := row.Columns(&raw); err != nil {
		return nil, false, errors.Wrap(err, "spanner.Row.Columns()")
	}

	entries := make(map[string]string)
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, false, errors.Wrap(err, "json.Unmarshal()")
	}

	return entries, true, nil
}

func (s *MirrorDriver) writeEntries(txn *spanner.ReadWriteTransaction, namespace ccc.UUID, entries map[string]string) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "json.Marshal()")
	}

	m := spanner.InsertOrUpdateMap(s.tableName, map[string]any{
		"Namespace": namespace.String(),
		"Entries":   string(raw),
		"UpdatedAt": spanner.CommitTimestamp,
	})

	if err := txn.BufferWrite([]*spanner.Mutation{m}); err != nil {
		return errors.Wrap(err, "spanner.ReadWriteTransaction.BufferWrite()")
	}

	return nil
}
