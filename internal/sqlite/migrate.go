package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type migration struct {
	version int
	name    string
	sql     string
}

// loadMigrations reads the numbered migration files. File names must start with the version, e.g. 0001_name.sql.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	migrations := make([]migration, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		prefix, _, ok := strings.Cut(name, "_")
		if !ok || path.Ext(name) != ".sql" {
			return nil, fmt.Errorf("invalid migration file name %s", name)
		}
		var version int
		if version, err = strconv.Atoi(prefix); err != nil {
			return nil, fmt.Errorf("parse migration version %s: %w", name, err)
		}
		var content []byte
		if content, err = fs.ReadFile(fsys, path.Join("migrations", name)); err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		migrations = append(migrations, migration{version: version, name: name, sql: string(content)})
	}
	slices.SortFunc(migrations, func(a, b migration) int { return a.version - b.version })
	for i, m := range migrations {
		if m.version != i+1 {
			return nil, fmt.Errorf("migration %s out of sequence, want version %d", m.name, i+1)
		}
	}
	return migrations, nil
}

// migrate applies the migrations newer than the database's user_version, each in its own transaction.
func (db *Database) migrate(ctx context.Context, migrations []migration) error {
	var current int
	if err := db.ReadWrite.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("query user_version: %w", err)
	}
	if current > len(migrations) {
		return fmt.Errorf("database version %d is newer than the application's %d", current, len(migrations))
	}

	for _, m := range migrations[current:] {
		start := time.Now()
		if err := db.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("apply %s: %w", m.name, err)
		}
		db.logger.LogAttrs(ctx, slog.LevelInfo, "applied migration",
			slog.String("name", m.name), slog.Duration("duration", time.Since(start)))
	}
	return nil
}

func (db *Database) applyMigration(ctx context.Context, m migration) (err error) {
	var tx *sql.Tx
	if tx, err = db.ReadWrite.BeginTx(ctx, nil); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback transaction: %w", rollbackErr))
		}
	}()

	if _, err = tx.ExecContext(ctx, m.sql); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	// PRAGMA does not support bound parameters.
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return fmt.Errorf("bump user_version: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
