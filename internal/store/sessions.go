package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// Session is the unit of indexing: one row per log file (or, for a
// subagent, one row per file beneath a parent's "subagents/" dir).
type Session struct {
	ID               string
	FilePath         string
	Filename         string
	Project          string
	Cwd              string
	MessageCount     int
	FileSize         int64
	LastModified     int64
	Created          int64
	IndexedAt        int64
	TokensTotal      int64
	TokensInput      int64
	TokensOutput     int64
	PrimaryModel     string
	IsSubagent       bool
	ParentID         string
	FirstUserMessage string
}

// ToolCount is one row of a session's per-tool call counts.
type ToolCount struct {
	Name  string
	Count int
}

const sessionCols = `id, file_path, filename, project, cwd,
	message_count, file_size, last_modified, created, indexed_at,
	tokens_total, tokens_input, tokens_output, primary_model,
	is_subagent, parent_id, first_user_message`

func scanSession(row interface{ Scan(...any) error }) (Session, error) {
	var s Session
	var project, cwd, primaryModel, parentID, firstUserMessage sql.NullString
	var isSubagent int
	err := row.Scan(
		&s.ID, &s.FilePath, &s.Filename, &project, &cwd,
		&s.MessageCount, &s.FileSize, &s.LastModified, &s.Created, &s.IndexedAt,
		&s.TokensTotal, &s.TokensInput, &s.TokensOutput, &primaryModel,
		&isSubagent, &parentID, &firstUserMessage,
	)
	if err != nil {
		return Session{}, err
	}
	s.Project = project.String
	s.Cwd = cwd.String
	s.PrimaryModel = primaryModel.String
	s.IsSubagent = isSubagent != 0
	s.ParentID = parentID.String
	s.FirstUserMessage = firstUserMessage.String
	return s, nil
}

// NeedsIndexing reports whether path must be (re)parsed: true when
// there is no tracking row for it, or the tracked (mtime, size)
// tuple differs from what's given.
func (s *Store) NeedsIndexing(path string, mtime, size int64) (bool, error) {
	var trackedMtime, trackedSize int64
	err := s.getReader().QueryRow(
		`SELECT mtime, size FROM file_tracking WHERE file_path = ?`, path,
	).Scan(&trackedMtime, &trackedSize)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking tracking row for %s: %w", path, err)
	}
	return trackedMtime != mtime || trackedSize != size, nil
}

// UpsertSession atomically replaces a session's row, tool-usage
// rows, FTS row, and file-tracking row. If searchableText is empty
// or whitespace-only, no FTS row is written (any prior one is still
// removed).
func (s *Store) UpsertSession(rec Session, searchableText string, tools map[string]int) error {
	return s.Update(func(tx *sql.Tx) error {
		return upsertSessionTx(tx, rec, searchableText, tools)
	})
}

func upsertSessionTx(tx *sql.Tx, rec Session, searchableText string, tools map[string]int) error {
	_, err := tx.Exec(`
		INSERT INTO sessions (
			id, file_path, filename, project, cwd,
			message_count, file_size, last_modified, created, indexed_at,
			tokens_total, tokens_input, tokens_output, primary_model,
			is_subagent, parent_id, first_user_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_path = excluded.file_path,
			filename = excluded.filename,
			project = excluded.project,
			cwd = excluded.cwd,
			message_count = excluded.message_count,
			file_size = excluded.file_size,
			last_modified = excluded.last_modified,
			created = excluded.created,
			indexed_at = excluded.indexed_at,
			tokens_total = excluded.tokens_total,
			tokens_input = excluded.tokens_input,
			tokens_output = excluded.tokens_output,
			primary_model = excluded.primary_model,
			is_subagent = excluded.is_subagent,
			parent_id = excluded.parent_id,
			first_user_message = excluded.first_user_message`,
		rec.ID, rec.FilePath, rec.Filename, nullable(rec.Project), nullable(rec.Cwd),
		rec.MessageCount, rec.FileSize, rec.LastModified, rec.Created, rec.IndexedAt,
		rec.TokensTotal, rec.TokensInput, rec.TokensOutput, nullable(rec.PrimaryModel),
		rec.IsSubagent, nullable(rec.ParentID), nullable(rec.FirstUserMessage),
	)
	if err != nil {
		return fmt.Errorf("upserting session %s: %w", rec.ID, err)
	}

	if _, err := tx.Exec(`DELETE FROM tool_usage WHERE session_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("clearing tool usage for %s: %w", rec.ID, err)
	}
	for name, count := range tools {
		if _, err := tx.Exec(
			`INSERT INTO tool_usage (session_id, tool_name, call_count) VALUES (?, ?, ?)`,
			rec.ID, name, count,
		); err != nil {
			return fmt.Errorf("inserting tool usage for %s: %w", rec.ID, err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM fts_sessions WHERE session_id = ?`, rec.ID); err != nil {
		if !ftsMissing(err) {
			return fmt.Errorf("clearing fts row for %s: %w", rec.ID, err)
		}
	} else if hasContent(searchableText) {
		if _, err := tx.Exec(
			`INSERT INTO fts_sessions (session_id, content, project) VALUES (?, ?, ?)`,
			rec.ID, searchableText, rec.Project,
		); err != nil && !ftsMissing(err) {
			return fmt.Errorf("inserting fts row for %s: %w", rec.ID, err)
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO file_tracking (file_path, mtime, size, indexed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			mtime = excluded.mtime, size = excluded.size, indexed_at = excluded.indexed_at`,
		rec.FilePath, rec.LastModified, rec.FileSize, rec.IndexedAt,
	); err != nil {
		return fmt.Errorf("tracking file %s: %w", rec.FilePath, err)
	}

	return nil
}

func ftsMissing(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "no such table") || strings.Contains(err.Error(), "no such module"))
}

func hasContent(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// RemoveSession deletes a session's row, tool-usage rows, and FTS
// row. It does not touch file tracking.
func (s *Store) RemoveSession(id string) error {
	return s.Update(func(tx *sql.Tx) error {
		return removeSessionTx(tx, id)
	})
}

func removeSessionTx(tx *sql.Tx, id string) error {
	if _, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM tool_usage WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("deleting tool usage for %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM fts_sessions WHERE session_id = ?`, id); err != nil && !ftsMissing(err) {
		return fmt.Errorf("deleting fts row for %s: %w", id, err)
	}
	return nil
}

// RemoveFile removes the session at path (if any), clears
// parent_id on any session that referenced it, and deletes its
// file-tracking row — all in one transaction.
func (s *Store) RemoveFile(path string) error {
	return s.Update(func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRow(`SELECT id FROM sessions WHERE file_path = ?`, path).Scan(&id)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("looking up session for %s: %w", path, err)
		}
		if err == nil {
			if _, err := tx.Exec(
				`UPDATE sessions SET parent_id = NULL WHERE parent_id = ?`, id,
			); err != nil {
				return fmt.Errorf("clearing children of %s: %w", id, err)
			}
			if err := removeSessionTx(tx, id); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(`DELETE FROM file_tracking WHERE file_path = ?`, path); err != nil {
			return fmt.Errorf("untracking %s: %w", path, err)
		}
		return nil
	})
}

// GetSession returns a session by id, or nil if it doesn't exist.
func (s *Store) GetSession(id string) (*Session, error) {
	row := s.getReader().QueryRow(`SELECT `+sessionCols+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	return &sess, nil
}

// sortWhitelist maps accepted sort_by values to their column name.
var sortWhitelist = map[string]string{
	"last_modified": "last_modified",
	"created":       "created",
	"tokens_total":  "tokens_total",
	"message_count": "message_count",
	"file_size":     "file_size",
}

// ListFilter specifies how to page through sessions.
type ListFilter struct {
	Limit            int
	Offset           int
	SortBy           string
	Order            string
	Project          string
	IncludeSubagents bool
}

// ListSessions returns a page of sessions matching f. Unknown
// sort_by/order values are silently normalized to safe defaults.
func (s *Store) ListSessions(f ListFilter) ([]Session, error) {
	col, ok := sortWhitelist[f.SortBy]
	if !ok {
		col = "last_modified"
	}
	order := "DESC"
	if strings.EqualFold(f.Order, "ASC") {
		order = "ASC"
	}

	where := []string{}
	args := []any{}
	if !f.IncludeSubagents {
		where = append(where, "(is_subagent = 0 OR is_subagent IS NULL)")
	}
	if f.Project != "" {
		where = append(where, "project = ?")
		args = append(args, f.Project)
	}

	query := "SELECT " + sessionCols + " FROM sessions"
	if len(where) > 0 {
		query += " WHERE " + joinAnd(where)
	}
	query += fmt.Sprintf(" ORDER BY %s %s LIMIT ? OFFSET ?", col, order)
	args = append(args, f.Limit, f.Offset)

	rows, err := s.getReader().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func joinAnd(clauses []string) string {
	out := clauses[0]
	for _, c := range clauses[1:] {
		out += " AND " + c
	}
	return out
}

// CountSessions returns the number of non-subagent sessions,
// optionally filtered by project.
func (s *Store) CountSessions(project string) (int, error) {
	query := "SELECT COUNT(*) FROM sessions WHERE (is_subagent = 0 OR is_subagent IS NULL)"
	args := []any{}
	if project != "" {
		query += " AND project = ?"
		args = append(args, project)
	}
	var n int
	if err := s.getReader().QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting sessions: %w", err)
	}
	return n, nil
}

// ListProjects returns sorted distinct non-null project names.
func (s *Store) ListProjects() ([]string, error) {
	rows, err := s.getReader().Query(
		`SELECT DISTINCT project FROM sessions WHERE project IS NOT NULL ORDER BY project`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ToolStats returns per-tool aggregates sorted by total calls desc.
func (s *Store) ToolStats() ([]ToolStat, error) {
	rows, err := s.getReader().Query(`
		SELECT tool_name, SUM(call_count) AS total_calls,
			COUNT(DISTINCT session_id) AS distinct_sessions
		FROM tool_usage
		GROUP BY tool_name
		ORDER BY total_calls DESC`)
	if err != nil {
		return nil, fmt.Errorf("aggregating tool stats: %w", err)
	}
	defer rows.Close()

	var out []ToolStat
	for rows.Next() {
		var t ToolStat
		if err := rows.Scan(&t.Name, &t.TotalCalls, &t.DistinctSessions); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ToolStat is one row of Store.ToolStats.
type ToolStat struct {
	Name             string
	TotalCalls       int
	DistinctSessions int
}

// Summary holds store-wide totals.
type Summary struct {
	Sessions      int
	Messages      int
	TokensTotal   int64
	Bytes         int64
	Projects      int
	ActiveLast24h int
}

// Summary computes store-wide totals.
func (s *Store) Summary() (Summary, error) {
	var sum Summary
	err := s.getReader().QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(message_count), 0),
			COALESCE(SUM(tokens_total), 0), COALESCE(SUM(file_size), 0),
			COUNT(DISTINCT project)
		FROM sessions WHERE (is_subagent = 0 OR is_subagent IS NULL)`,
	).Scan(&sum.Sessions, &sum.Messages, &sum.TokensTotal, &sum.Bytes, &sum.Projects)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing: %w", err)
	}

	const dayMs = 24 * 60 * 60 * 1000
	err = s.getReader().QueryRow(`
		SELECT COUNT(*) FROM sessions
		WHERE (is_subagent = 0 OR is_subagent IS NULL)
		AND last_modified >= (unixepoch() * 1000 - ?)`, dayMs,
	).Scan(&sum.ActiveLast24h)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing recent activity: %w", err)
	}
	return sum, nil
}

// IndexedPaths returns the set of currently tracked file paths.
func (s *Store) IndexedPaths() (map[string]struct{}, error) {
	rows, err := s.getReader().Query(`SELECT file_path FROM file_tracking`)
	if err != nil {
		return nil, fmt.Errorf("listing indexed paths: %w", err)
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}
