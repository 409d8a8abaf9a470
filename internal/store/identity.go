package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ResolveIdentitiesResult summarizes a resolve_project_names pass.
type ResolveIdentitiesResult struct {
	GroupsResolved  int
	SessionsUpdated int
}

// ResolveProjectNames normalizes the project field across sessions
// that share the same on-disk encoded folder. Within each group the
// canonical name is the basename of the shortest recorded cwd; the
// implementation does not require that candidate to be a true
// prefix of the others unless strictPrefix is set.
func (s *Store) ResolveProjectNames(root string, strictPrefix bool) (ResolveIdentitiesResult, error) {
	var result ResolveIdentitiesResult
	err := s.Update(func(tx *sql.Tx) error {
		rows, err := tx.Query(`SELECT id, file_path, cwd, project FROM sessions`)
		if err != nil {
			return fmt.Errorf("scanning sessions for identity resolution: %w", err)
		}

		type row struct{ id, filePath, cwd, project string }
		var all []row
		for rows.Next() {
			var id, filePath string
			var cwd, project sql.NullString
			if err := rows.Scan(&id, &filePath, &cwd, &project); err != nil {
				rows.Close()
				return fmt.Errorf("scanning identity row: %w", err)
			}
			all = append(all, row{id, filePath, cwd.String, project.String})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		groups := map[string][]row{}
		for _, r := range all {
			folder := encodedFolder(root, r.filePath)
			if folder == "" {
				continue
			}
			groups[folder] = append(groups[folder], r)
		}

		for _, members := range groups {
			var cwds []string
			for _, m := range members {
				if m.cwd != "" {
					cwds = append(cwds, m.cwd)
				}
			}
			if len(cwds) == 0 {
				continue
			}
			sort.Slice(cwds, func(i, j int) bool { return len(cwds[i]) < len(cwds[j]) })
			candidate := cwds[0]

			if strictPrefix && !allHavePrefix(cwds, candidate) {
				continue
			}

			canonical := filepath.Base(candidate)
			if canonical == "" || canonical == "." || canonical == string(filepath.Separator) {
				continue
			}

			resolvedGroup := false
			for _, m := range members {
				if m.project == canonical {
					continue
				}
				if _, err := tx.Exec(
					`UPDATE sessions SET project = ? WHERE id = ?`, canonical, m.id,
				); err != nil {
					return fmt.Errorf("updating project for %s: %w", m.id, err)
				}
				if _, err := tx.Exec(
					`UPDATE fts_sessions SET project = ? WHERE session_id = ?`, canonical, m.id,
				); err != nil && !ftsMissing(err) {
					return fmt.Errorf("updating fts project for %s: %w", m.id, err)
				}
				result.SessionsUpdated++
				resolvedGroup = true
			}
			if resolvedGroup {
				result.GroupsResolved++
			}
		}
		return nil
	})
	return result, err
}

// encodedFolder returns the path segment immediately under root for
// filePath, i.e. the encoded project directory name.
func encodedFolder(root, filePath string) string {
	rel, err := filepath.Rel(root, filePath)
	if err != nil {
		return ""
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "../") {
		return ""
	}
	parts := strings.SplitN(rel, "/", 2)
	return parts[0]
}

func allHavePrefix(cwds []string, prefix string) bool {
	dir := strings.TrimSuffix(prefix, "/") + "/"
	for _, c := range cwds {
		if c != prefix && !strings.HasPrefix(c, dir) {
			return false
		}
	}
	return true
}
