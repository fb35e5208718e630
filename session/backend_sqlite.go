package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS credential_slots (
	namespace  TEXT    NOT NULL,
	slot       TEXT    NOT NULL,
	value      BLOB    NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (namespace, slot)
)`

const sqliteUpsert = `
INSERT INTO credential_slots (namespace, slot, value, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (namespace, slot) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// SQLiteBackend keeps slots in a single table keyed by namespace and slot.
type SQLiteBackend struct {
	db        *sql.DB
	namespace string
}

// OpenSQLiteBackend opens (creating if needed) the database at path and ensures the schema.
func OpenSQLiteBackend(ctx context.Context, path, namespace string) (*SQLiteBackend, error) {
	if namespace == "" {
		return nil, errors.New("namespace empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create credential table: %w", err)
	}
	return &SQLiteBackend{db: db, namespace: namespace}, nil
}

func (s *SQLiteBackend) Get(ctx context.Context, slot Slot) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM credential_slots WHERE namespace = ? AND slot = ?`,
		s.namespace, string(slot),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential slot: %w", err)
	}
	return value, nil
}

func (s *SQLiteBackend) Set(ctx context.Context, slot Slot, value []byte) error {
	if _, err := s.db.ExecContext(ctx, sqliteUpsert, s.namespace, string(slot), value, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to write credential slot: %w", err)
	}
	return nil
}

// SetAll writes every value in one transaction.
func (s *SQLiteBackend) SetAll(ctx context.Context, values []SlotValue) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().Unix()
	for _, v := range values {
		if _, err := tx.ExecContext(ctx, sqliteUpsert, s.namespace, string(v.Slot), v.Value, now); err != nil {
			return fmt.Errorf("failed to write credential slot %s: %w", v.Slot, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credential slots: %w", err)
	}
	return nil
}

func (s *SQLiteBackend) Delete(ctx context.Context, slots ...Slot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, slot := range slots {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM credential_slots WHERE namespace = ? AND slot = ?`,
			s.namespace, string(slot),
		); err != nil {
			return fmt.Errorf("failed to delete credential slot %s: %w", slot, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credential delete: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
