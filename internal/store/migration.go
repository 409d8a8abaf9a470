package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// applyMigrations adds any columns the core schema.sql didn't
// already create (for databases built by an older version of this
// schema) and backfills is_subagent/parent_id by inspecting
// file_path for a "subagents" path segment. Idempotent: re-running
// against an up-to-date schema is a no-op.
func applyMigrations(w *sql.DB) error {
	if err := ensureColumn(w, "sessions", "is_subagent", "INTEGER NOT NULL DEFAULT 0"); err != nil {
		return err
	}
	if err := ensureColumn(w, "sessions", "parent_id", "TEXT"); err != nil {
		return err
	}
	if err := ensureColumn(w, "sessions", "cwd", "TEXT"); err != nil {
		return err
	}
	if err := ensureColumn(w, "sessions", "first_user_message", "TEXT"); err != nil {
		return err
	}

	if _, err := w.Exec(
		`CREATE INDEX IF NOT EXISTS idx_sessions_parent_id ON sessions(parent_id)`,
	); err != nil {
		return fmt.Errorf("creating parent_id index: %w", err)
	}
	if _, err := w.Exec(
		`CREATE INDEX IF NOT EXISTS idx_sessions_is_subagent ON sessions(is_subagent)`,
	); err != nil {
		return fmt.Errorf("creating is_subagent index: %w", err)
	}

	return backfillSubagents(w)
}

func hasColumn(w *sql.DB, table, column string) (bool, error) {
	var count int
	err := w.QueryRow(
		`SELECT count(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("probing %s.%s: %w", table, column, err)
	}
	return count > 0, nil
}

func ensureColumn(w *sql.DB, table, column, definition string) error {
	has, err := hasColumn(w, table, column)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = w.Exec(fmt.Sprintf(
		"ALTER TABLE %s ADD COLUMN %s %s", table, column, definition,
	))
	if err != nil {
		return fmt.Errorf("adding column %s.%s: %w", table, column, err)
	}
	return nil
}

// backfillSubagents sets is_subagent/parent_id for any row whose
// file_path contains a "subagents" path segment but hasn't been
// classified yet.
func backfillSubagents(w *sql.DB) error {
	rows, err := w.Query(
		`SELECT id, file_path FROM sessions WHERE is_subagent = 0 AND parent_id IS NULL`,
	)
	if err != nil {
		return fmt.Errorf("scanning sessions for backfill: %w", err)
	}

	type fix struct{ id, parentID string }
	var fixes []fix
	for rows.Next() {
		var id, path string
		if err := rows.Scan(&id, &path); err != nil {
			rows.Close()
			return fmt.Errorf("scanning backfill row: %w", err)
		}
		if parentID, ok := subagentParent(path); ok {
			fixes = append(fixes, fix{id, parentID})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, f := range fixes {
		if _, err := w.Exec(
			`UPDATE sessions SET is_subagent = 1, parent_id = ? WHERE id = ?`,
			f.parentID, f.id,
		); err != nil {
			return fmt.Errorf("backfilling session %s: %w", f.id, err)
		}
	}
	return nil
}

func subagentParent(path string) (string, bool) {
	segments := strings.Split(strings.ReplaceAll(path, "\\", "/"), "/")
	for i, seg := range segments {
		if seg == "subagents" && i > 0 {
			return segments[i-1], true
		}
	}
	return "", false
}
