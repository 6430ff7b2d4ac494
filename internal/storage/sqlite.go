// Package storage provides the booking store contract, its SQLite
// implementation, and a read-through cache for any store.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DBFileName is the SQLite file created inside the data directory.
const DBFileName = "bookings.db"

// sqliteParams are appended to every DSN. A busy timeout queues concurrent
// booking writers instead of failing them with SQLITE_BUSY.
const sqliteParams = "_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"

// DB is an open bookings database.
type DB struct {
	*sql.DB
	path string
}

// Open opens the bookings database inside dataDir, creating the directory
// when missing.
func Open(dataDir string) (*DB, error) {
	return OpenFile(filepath.Join(dataDir, DBFileName))
}

// OpenFile opens the SQLite file at path.
func OpenFile(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", path+"?"+sqliteParams)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("connecting to %s: %w", path, err)
	}

	// One writer at a time under WAL; a small pool is enough for readers.
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)

	return &DB{DB: sqlDB, path: path}, nil
}

// Path is the database file location.
func (db *DB) Path() string {
	return db.path
}

// inTx runs fn in a transaction, committing when it returns nil.
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
