package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const defaultSnapshotTable = "form_snapshots"

// PostgresStore persists snapshots as JSON rows keyed by storage key.
//
// Expected table shape:
//
//	CREATE TABLE form_snapshots (
//	    key         TEXT PRIMARY KEY,
//	    snapshot    JSONB NOT NULL,
//	    snapshot_id TEXT NOT NULL DEFAULT '',
//	    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresStore[T any] struct {
	db    *sql.DB
	table string
}

// PostgresOption configures the store.
type PostgresOption[T any] func(*PostgresStore[T])

// PostgresWithTable overrides the snapshot table name.
func PostgresWithTable[T any](table string) PostgresOption[T] {
	return func(s *PostgresStore[T]) {
		if table != "" {
			s.table = table
		}
	}
}

// NewPostgresStore builds a store over an open connection pool. The caller
// owns the pool lifecycle.
func NewPostgresStore[T any](db *sql.DB, opts ...PostgresOption[T]) (*PostgresStore[T], error) {
	if db == nil {
		return nil, fmt.Errorf("store: postgres db handle is required")
	}
	s := &PostgresStore[T]{
		db:    db,
		table: defaultSnapshotTable,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *PostgresStore[T]) Load(ctx context.Context, key string) (T, Meta, bool, error) {
	var zero T
	if key == "" {
		return zero, Meta{}, false, ErrKeyRequired
	}

	query := fmt.Sprintf(
		"SELECT snapshot, snapshot_id, updated_at FROM %s WHERE key = $1",
		pq.QuoteIdentifier(s.table),
	)
	var (
		payload    []byte
		snapshotID string
		updatedAt  time.Time
	)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&payload, &snapshotID, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, Meta{}, false, nil
	}
	if err != nil {
		return zero, Meta{}, false, err
	}

	var snapshot T
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return zero, Meta{}, false, fmt.Errorf("%w: %s: %v", ErrDecode, key, err)
	}
	return snapshot, Meta{SnapshotID: snapshotID, UpdatedAt: updatedAt}, true, nil
}

func (s *PostgresStore[T]) Save(ctx context.Context, key string, snapshot T, meta Meta) (Meta, error) {
	if key == "" {
		return Meta{}, ErrKeyRequired
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return Meta{}, err
	}
	updatedAt := meta.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (key, snapshot, snapshot_id, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key) DO UPDATE SET
		   snapshot = EXCLUDED.snapshot,
		   snapshot_id = EXCLUDED.snapshot_id,
		   updated_at = EXCLUDED.updated_at`,
		pq.QuoteIdentifier(s.table),
	)
	if _, err := s.db.ExecContext(ctx, query, key, payload, meta.SnapshotID, updatedAt); err != nil {
		return Meta{}, err
	}
	out := cloneMeta(meta)
	out.UpdatedAt = updatedAt
	return out, nil
}

func (s *PostgresStore[T]) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE key = $1", pq.QuoteIdentifier(s.table))
	_, err := s.db.ExecContext(ctx, query, key)
	return err
}
