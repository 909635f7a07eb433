package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var version int
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version < 1 {
		if err := migrateV1(ctx, tx); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}

	return tx.Commit()
}

func migrateV1(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id             TEXT PRIMARY KEY,
			popup_id       TEXT NOT NULL DEFAULT '',
			asset          TEXT NOT NULL,
			currency       TEXT NOT NULL,
			country        TEXT NOT NULL DEFAULT '',
			input_type     TEXT NOT NULL CHECK (input_type IN ('fiat','crypto')),
			fiat_amount    TEXT NOT NULL DEFAULT '',
			crypto_amount  TEXT NOT NULL DEFAULT '',
			payment_method TEXT NOT NULL DEFAULT '',
			outcome        TEXT NOT NULL DEFAULT 'pending' CHECK (outcome IN ('pending','success','error','exit')),
			error          TEXT NOT NULL DEFAULT '',
			started_at     TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			finished_at    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_started ON attempts(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_popup ON attempts(popup_id)`,

		// Trigger: a finished attempt is immutable
		`CREATE TRIGGER IF NOT EXISTS trg_immutable_attempts
		BEFORE UPDATE ON attempts
		WHEN OLD.finished_at IS NOT NULL
		BEGIN
			SELECT RAISE(ABORT, 'attempt already finished');
		END`,

		`INSERT INTO schema_version (version) VALUES (1)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(stmt string) string {
	for i, r := range stmt {
		if r == '\n' {
			return stmt[:i]
		}
	}
	return stmt
}
