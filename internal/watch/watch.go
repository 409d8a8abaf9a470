// Package watch provides a thin fsnotify adapter that keeps a Store
// in sync with a live tree of session log files between indexing
// passes. It deliberately does not debounce or batch events: every
// write is forwarded to the indexer immediately, trading a few extra
// reparses of an actively-growing file for a dramatically simpler
// event loop.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/sessionindex/sessionindex/internal/logging"
)

// Indexer is the subset of *indexer.Indexer the watcher drives.
type Indexer interface {
	IndexFile(path string) error
	RemoveFile(path string) error
}

// Watcher translates filesystem events under a root directory into
// IndexFile/RemoveFile calls against an Indexer.
type Watcher struct {
	ix   Indexer
	root string
	fsw  *fsnotify.Watcher
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// New creates a Watcher rooted at root, recursively registering every
// subdirectory that exists at construction time.
func New(ix Indexer, root string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	w := &Watcher{
		ix:   ix,
		root: root,
		fsw:  fsw,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	watched, unwatched, err := w.watchRecursive(root)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	logging.Info("watch started", "root", root, "dirs_watched", watched, "dirs_unwatched", unwatched)

	return w, nil
}

// watchRecursive adds root and every subdirectory beneath it to the
// underlying fsnotify watch list.
func (w *Watcher) watchRecursive(root string) (watched, unwatched int, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil // skip inaccessible entries
		}
		if !d.IsDir() {
			return nil
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			unwatched++
		} else {
			watched++
		}
		return nil
	})
	return watched, unwatched, err
}

// Start begins processing events in a background goroutine. Call
// Stop to shut it down.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop halts event processing and closes the underlying watcher.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.stop)
		<-w.done
		w.fsw.Close()
	})
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	switch {
	case event.Op&fsnotify.Create != 0:
		w.watchIfDir(event.Name)
		if w.isSessionFile(event.Name) {
			w.index(event.Name)
		}

	case event.Op&fsnotify.Write != 0:
		if w.isSessionFile(event.Name) {
			w.index(event.Name)
		}

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if w.isSessionFile(event.Name) {
			w.remove(event.Name)
		}
	}
}

func (w *Watcher) watchIfDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	_ = w.fsw.Add(path)
}

func (w *Watcher) isSessionFile(path string) bool {
	return strings.HasSuffix(path, ".jsonl")
}

func (w *Watcher) index(path string) {
	if err := w.ix.IndexFile(path); err != nil {
		logging.Warn("watch: indexing changed file failed", "path", path, "error", err)
	}
}

func (w *Watcher) remove(path string) {
	if err := w.ix.RemoveFile(path); err != nil {
		logging.Warn("watch: removing deleted file failed", "path", path, "error", err)
	}
}
