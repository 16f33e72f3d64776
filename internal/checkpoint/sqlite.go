package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteFile = "checkpoint.db"

// SQLiteStorage keeps the checkpoint in a single-row table
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// OpenSQLite opens or creates the checkpoint database in dir
func OpenSQLite(dir string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	dbPath := filepath.Join(dir, sqliteFile)

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS checkpoints (
		slot INTEGER PRIMARY KEY CHECK (slot = 1),
		updated_at DATETIME NOT NULL,
		document BLOB NOT NULL
	);`
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteStorage{db: db, dbPath: dbPath}, nil
}

// Path returns the database file location
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Write upserts the checkpoint row inside a transaction
func (s *SQLiteStorage) Write(ctx context.Context, data []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO checkpoints (slot, updated_at, document) VALUES (1, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET updated_at = excluded.updated_at, document = excluded.document`,
		time.Now().UTC(), data)
	if err != nil {
		return fmt.Errorf("failed to store checkpoint: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	return nil
}

// ReadLatest returns the stored document or ErrNoCheckpoint
func (s *SQLiteStorage) ReadLatest(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT document FROM checkpoints WHERE slot = 1").Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoCheckpoint
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoint: %w", err)
	}
	return data, nil
}

// Clear deletes the stored checkpoint
func (s *SQLiteStorage) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM checkpoints"); err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
