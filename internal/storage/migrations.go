package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS _migrations (
		name       TEXT PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`

// Migrate applies the embedded schema files that have not run yet and returns
// how many it applied. Files run in name order, each in its own transaction.
func (db *DB) Migrate(ctx context.Context) (int, error) {
	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return 0, fmt.Errorf("creating migrations table: %w", err)
	}

	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return 0, err
	}
	sort.Strings(names)

	count := 0
	for _, name := range names {
		done, err := db.migrated(ctx, name)
		if err != nil {
			return count, err
		}
		if done {
			continue
		}

		body, err := migrationsFS.ReadFile(name)
		if err != nil {
			return count, fmt.Errorf("reading %s: %w", name, err)
		}

		err = db.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, string(body)); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, "INSERT INTO _migrations (name) VALUES (?)", name)
			return err
		})
		if err != nil {
			return count, fmt.Errorf("applying %s: %w", name, err)
		}
		log.Printf("Applied migration %s", name)
		count++
	}

	return count, nil
}

func (db *DB) migrated(ctx context.Context, name string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM _migrations WHERE name = ?", name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking migration %s: %w", name, err)
	}
	return n > 0, nil
}
