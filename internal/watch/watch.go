// Package watch reindexes projects whose files change on disk outside the
// API, e.g. a manual edit or a git command run against the checkout.
package watch

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"plotline/internal/debounce"
)

// Watcher observes the store root and each project directory. Events for a
// project are coalesced and reindex is called once they settle. Coverage is
// best effort: fsnotify does not recurse, so edits deep inside a project can
// go unnoticed until the next API write touches it.
type Watcher struct {
	root     string
	watcher  *fsnotify.Watcher
	debounce *debounce.Keyed
	done     chan struct{}
}

func New(root string, delay time.Duration, reindex func(projectID string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("start watcher: %w", err)
	}

	w := &Watcher{
		root:     filepath.Clean(root),
		watcher:  fsw,
		debounce: debounce.NewKeyed(delay, reindex),
		done:     make(chan struct{}),
	}

	if err := fsw.Add(w.root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.root, err)
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("list %s: %w", w.root, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := fsw.Add(filepath.Join(w.root, entry.Name())); err != nil {
			log.Printf("watch: add %s: %v", entry.Name(), err)
		}
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watch: %v", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	projectID, ok := w.projectFor(ev.Name)
	if !ok {
		return
	}

	// A directory created directly under the root is a new project.
	if ev.Op&fsnotify.Create != 0 && filepath.Dir(ev.Name) == w.root {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(ev.Name); err != nil {
				log.Printf("watch: add %s: %v", projectID, err)
			}
		}
	}

	if ignored(ev.Name) {
		return
	}
	w.debounce.Trigger(projectID)
}

// projectFor maps an event path to the project directory it falls under.
func (w *Watcher) projectFor(name string) (string, bool) {
	rel, err := filepath.Rel(w.root, name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	head, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	return head, head != ""
}

// ignored filters git bookkeeping, which churns on every commit.
func ignored(name string) bool {
	base := filepath.Base(name)
	if base == ".git" || strings.HasSuffix(base, ".lock") {
		return true
	}
	return strings.Contains(filepath.ToSlash(name), "/.git/")
}

// Close stops the event loop and drops any pending reindex timers.
func (w *Watcher) Close() error {
	close(w.done)
	w.debounce.Stop()
	return w.watcher.Close()
}
