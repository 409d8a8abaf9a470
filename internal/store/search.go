package store

import (
	"fmt"
	"regexp"
	"strings"
)

// wildcardSentinel is substituted for a query that sanitizes down to
// nothing. FTS5 has no literal "match everything" syntax, so Search
// special-cases this value and bypasses MATCH entirely.
const wildcardSentinel = "*"

var (
	ftsSpecialChars = regexp.MustCompile(`[":()^*\-+]`)
	ftsOperators    = regexp.MustCompile(`(?i)^(AND|OR|NOT|NEAR)$`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// SanitizeQuery strips FTS5 operator syntax from a free-text query,
// leaving a safe bag of terms. An input that sanitizes to nothing
// becomes the wildcard sentinel.
func SanitizeQuery(q string) string {
	q = ftsSpecialChars.ReplaceAllString(q, " ")

	var kept []string
	for _, tok := range strings.Fields(q) {
		if ftsOperators.MatchString(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	q = strings.TrimSpace(whitespaceRun.ReplaceAllString(strings.Join(kept, " "), " "))
	if q == "" {
		return wildcardSentinel
	}
	return q
}

const snippetTokens = 20

// SearchResult is one ranked match.
type SearchResult struct {
	Session   Session
	Snippet   string
	Relevance float64
}

// SearchFilter specifies the parameters of a ranked search.
type SearchFilter struct {
	Query            string
	Project          string
	Limit            int
	Offset           int
	IncludeSubagents bool
}

// Search runs a sanitized FTS query and returns ranked results with
// snippets. If the FTS index is unavailable or errors, it falls
// back to an unranked listing (no snippet/relevance).
func (s *Store) Search(f SearchFilter) ([]SearchResult, error) {
	sanitized := SanitizeQuery(f.Query)

	if sanitized == wildcardSentinel {
		sessions, err := s.ListSessions(ListFilter{
			Limit: f.Limit, Offset: f.Offset,
			Project: f.Project, IncludeSubagents: f.IncludeSubagents,
		})
		if err != nil {
			return nil, err
		}
		return toUnrankedResults(sessions), nil
	}

	results, err := s.searchFTS(sanitized, f)
	if err != nil {
		sessions, listErr := s.ListSessions(ListFilter{
			Limit: f.Limit, Offset: f.Offset,
			Project: f.Project, IncludeSubagents: f.IncludeSubagents,
		})
		if listErr != nil {
			return nil, fmt.Errorf("search failed (%v), fallback listing also failed: %w", err, listErr)
		}
		return toUnrankedResults(sessions), nil
	}
	return results, nil
}

func toUnrankedResults(sessions []Session) []SearchResult {
	out := make([]SearchResult, len(sessions))
	for i, sess := range sessions {
		out[i] = SearchResult{Session: sess}
	}
	return out
}

func (s *Store) searchFTS(query string, f SearchFilter) ([]SearchResult, error) {
	where := []string{"fts_sessions MATCH ?"}
	args := []any{query}

	if f.Project != "" {
		where = append(where, "sessions.project = ?")
		args = append(args, f.Project)
	}
	if !f.IncludeSubagents {
		where = append(where, "(sessions.is_subagent = 0 OR sessions.is_subagent IS NULL)")
	}

	sqlQuery := fmt.Sprintf(`
		SELECT %s,
			snippet(fts_sessions, 1, '{{MATCH}}', '{{/MATCH}}', '...', %d) AS snippet,
			rank
		FROM fts_sessions
		JOIN sessions ON sessions.id = fts_sessions.session_id
		WHERE %s
		ORDER BY rank
		LIMIT ? OFFSET ?`,
		prefixed("sessions.", sessionCols), snippetTokens, strings.Join(where, " AND "))
	args = append(args, f.Limit, f.Offset)

	rows, err := s.getReader().Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		scanner := &searchRowScanner{rows: rows}
		sess, err := scanSession(scanner)
		if err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		out = append(out, SearchResult{
			Session: sess, Snippet: scanner.snippet, Relevance: scanner.rank,
		})
	}
	return out, rows.Err()
}

// searchRowScanner adapts sql.Rows so scanSession (which only knows
// about session columns) can be reused against a query that appends
// snippet/rank columns afterward.
type searchRowScanner struct {
	rows    interface{ Scan(...any) error }
	snippet string
	rank    float64
}

func (sc *searchRowScanner) Scan(dest ...any) error {
	dest = append(dest, &sc.snippet, &sc.rank)
	return sc.rows.Scan(dest...)
}

func prefixed(prefix, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
