// Package metadata persists small key/value records in the client's sqlite
// database. The session layer keeps the AuthToken and the serialized
// UserProfile here so a cold start can resume in the locked state.
package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rayyanshah04/flexpay/internal/dbx"
)

// ErrNotFound is returned when a key has no row.
var ErrNotFound = errors.New("metadata: not found")

// kv reads and writes single rows of the metadata table through a DB or a
// transaction.
type kv struct {
	db dbx.DBTX
}

func (s kv) get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return value, nil
}

func (s kv) put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// remove deletes key. A missing row is not an error.
func (s kv) remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
