package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/myrjola/fitfocus/internal/sqlite"
)

// sqliteStorage implements Storage on the device_storage table.
type sqliteStorage struct {
	db *sqlite.Database
}

// NewSQLiteStorage returns a Storage backed by db.
func NewSQLiteStorage(db *sqlite.Database) Storage {
	return &sqliteStorage{db: db}
}

func (r *sqliteStorage) Get(ctx context.Context, deviceID string, keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return values, nil
	}
	args := make([]any, 0, len(keys)+1)
	args = append(args, deviceID)
	for _, k := range keys {
		args = append(args, k)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT key, value
		FROM device_storage
		WHERE device_id = ? AND key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query device storage: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var key, value string
		if err = rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan device storage: %w", err)
		}
		values[key] = value
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate device storage: %w", err)
	}
	return values, nil
}

func (r *sqliteStorage) Put(ctx context.Context, deviceID string, values map[string]string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for key, value := range values {
			if err := upsert(ctx, tx, deviceID, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *sqliteStorage) Update(
	ctx context.Context,
	deviceID, key string,
	fn func(current string, found bool) (string, error),
) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var current string
		found := true
		err := tx.QueryRowContext(ctx, `
			SELECT value
			FROM device_storage
			WHERE device_id = ? AND key = ?`, deviceID, key).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			found = false
		} else if err != nil {
			return fmt.Errorf("query %s: %w", key, err)
		}

		var next string
		if next, err = fn(current, found); err != nil {
			return err
		}
		return upsert(ctx, tx, deviceID, key, next)
	})
}

func (r *sqliteStorage) Delete(ctx context.Context, deviceID string, keys ...string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, key := range keys {
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM device_storage
				WHERE device_id = ? AND key = ?`, deviceID, key); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}
		return nil
	})
}

func upsert(ctx context.Context, tx *sql.Tx, deviceID, key, value string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO device_storage (device_id, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT (device_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ')`, deviceID, key, value); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}
