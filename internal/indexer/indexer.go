// Package indexer drives a full indexing pass over a tree of JSONL
// session log files: discovery, incremental change detection,
// per-file parse-and-upsert, deletion reconciliation, and
// project-identity resolution.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sessionindex/sessionindex/internal/logging"
	"github.com/sessionindex/sessionindex/internal/parser"
	"github.com/sessionindex/sessionindex/internal/store"
)

// progressBatchSize is how often the progress callback fires during
// the index phase.
const progressBatchSize = 50

// Stats summarizes the outcome of a full pass or single-file index.
type Stats struct {
	Scanned              int
	Indexed              int
	Skipped              int
	Removed              int
	Errors               int
	ProjectNamesResolved int
}

// ProgressFunc is invoked every progressBatchSize files during the
// index phase, never mid-file.
type ProgressFunc func(done, total int)

// Indexer orchestrates a full pass over root against st.
type Indexer struct {
	st   *store.Store
	root string
}

// New builds an Indexer rooted at the given projects directory.
func New(st *store.Store, root string) *Indexer {
	return &Indexer{st: st, root: root}
}

// Run performs discovery, incremental indexing, deletion
// reconciliation, and identity resolution in one pass. Cancellation
// is observed between files, never mid-file; all completed work
// remains durable.
func (ix *Indexer) Run(ctx context.Context, progress ProgressFunc) (Stats, error) {
	var stats Stats

	discovered, err := ix.discover()
	if err != nil {
		return stats, fmt.Errorf("discovering session files: %w", err)
	}
	stats.Scanned = len(discovered)

	tracked, err := ix.st.IndexedPaths()
	if err != nil {
		return stats, fmt.Errorf("loading tracked paths: %w", err)
	}

	for i, path := range discovered {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		if progress != nil && i > 0 && i%progressBatchSize == 0 {
			progress(i, len(discovered))
		}

		delete(tracked, path)

		info, err := os.Stat(path)
		if err != nil {
			stats.Errors++
			logging.Warn("stat failed during indexing", "path", path, "error", err)
			continue
		}

		needs, err := ix.st.NeedsIndexing(path, info.ModTime().UnixMilli(), info.Size())
		if err != nil {
			stats.Errors++
			logging.Warn("needs_indexing check failed", "path", path, "error", err)
			continue
		}
		if !needs {
			stats.Skipped++
			continue
		}

		if err := ix.indexFile(path, info); err != nil {
			stats.Errors++
			logging.Warn("indexing failed", "path", path, "error", err)
			continue
		}
		stats.Indexed++
	}
	if progress != nil {
		progress(len(discovered), len(discovered))
	}

	for path := range tracked {
		if err := ix.st.RemoveFile(path); err != nil {
			stats.Errors++
			logging.Warn("removing stale file failed", "path", path, "error", err)
			continue
		}
		stats.Removed++
	}

	resolved, err := ix.st.ResolveProjectNames(ix.root, false)
	if err != nil {
		return stats, fmt.Errorf("resolving project identities: %w", err)
	}
	stats.ProjectNamesResolved = resolved.SessionsUpdated

	return stats, nil
}

// IndexFile re-indexes a single file, for use by an external
// watcher. It runs the identical pipeline as a full pass's per-file
// step, without touching deletion reconciliation or identity
// resolution.
func (ix *Indexer) IndexFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return ix.indexFile(path, info)
}

// RemoveFile reconciles the removal of a single file, for use by an
// external watcher.
func (ix *Indexer) RemoveFile(path string) error {
	return ix.st.RemoveFile(path)
}

func (ix *Indexer) discover() ([]string, error) {
	var files []string
	err := filepath.WalkDir(ix.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				logging.Warn("skipping unreadable entry", "path", path, "error", err)
				return nil
			}
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (ix *Indexer) indexFile(path string, info os.FileInfo) error {
	identity := parser.ClassifyPath(path, func(msg string) {
		logging.Warn(msg, "path", path)
	})

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	id := stem
	if identity.IsSubagent {
		id = identity.ParentID + "_" + stem
	}

	result, err := parser.ParseFile(path)
	if err != nil {
		return err
	}

	project := determineProject(ix.root, path, result.Cwd)

	now := time.Now().UnixMilli()
	rec := store.Session{
		ID:               id,
		FilePath:         path,
		Filename:         filepath.Base(path),
		Project:          project,
		Cwd:              result.Cwd,
		MessageCount:     result.MessageCount,
		FileSize:         info.Size(),
		LastModified:     info.ModTime().UnixMilli(),
		Created:          info.ModTime().UnixMilli(),
		IndexedAt:        now,
		TokensTotal:      result.Tokens.Total,
		TokensInput:      result.Tokens.Input,
		TokensOutput:     result.Tokens.Output,
		PrimaryModel:     result.Model.Primary,
		IsSubagent:       identity.IsSubagent,
		ParentID:         identity.ParentID,
		FirstUserMessage: result.FirstUserMessage,
	}

	return ix.st.UpsertSession(rec, result.SearchableText, result.Tools.PerName)
}

// determineProject picks a session's project name: the basename of
// its parsed cwd when available, otherwise the first path segment
// under root with a single leading dash stripped, otherwise
// "Unknown".
func determineProject(root, path, cwd string) string {
	if cwd != "" {
		base := filepath.Base(cwd)
		if base != "" && base != "." && base != string(filepath.Separator) {
			return base
		}
	}

	rel, err := filepath.Rel(root, path)
	if err == nil && !strings.HasPrefix(rel, "..") {
		rel = filepath.ToSlash(rel)
		first := strings.SplitN(rel, "/", 2)[0]
		first = strings.TrimPrefix(first, "-")
		if first != "" {
			return first
		}
	}
	return "Unknown"
}
