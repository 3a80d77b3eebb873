package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codestorm-dev/codestorm/internal/logger"
	"github.com/codestorm-dev/codestorm/internal/workspace"
)

// fileStamp is what the snapshot remembers about one file.
type fileStamp struct {
	modTime time.Time
	size    int64
}

// Watcher is the background change detector. It keeps a per-workspace
// snapshot of {relative path -> (mtime, size)} and diffs it on every cycle,
// emitting create/update/delete events through the notifier. OS filesystem
// events (fsnotify) trigger an early rescan of the owning workspace; the
// polling diff keeps running underneath as the portability fallback, so
// detection converges even when the OS watcher misses a mutation (for example
// one made by a shell command in a directory not yet watched).
type Watcher struct {
	store     *workspace.Store
	notifier  workspace.Notifier
	interval  time.Duration
	snapshots map[string]map[string]fileStamp
	fsw       *fsnotify.Watcher
	kick      chan string
	quit      chan struct{}
	done      chan struct{}
}

// New creates a watcher over all workspaces known to store. The fsnotify
// layer is optional: when the OS watcher cannot be created the watcher runs
// on polling alone.
func New(store *workspace.Store, notifier workspace.Notifier, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("watcher: OS file watcher unavailable, polling only: %v", err)
		fsw = nil
	}

	return &Watcher{
		store:     store,
		notifier:  notifier,
		interval:  interval,
		snapshots: make(map[string]map[string]fileStamp),
		fsw:       fsw,
		kick:      make(chan string, 64),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run is the watcher loop. It blocks until Stop is called.
func (w *Watcher) Run() {
	logger.Info("watcher: started (interval=%s, os_events=%v)", w.interval, w.fsw != nil)
	defer close(w.done)
	defer logger.Info("watcher: stopped")

	if w.fsw != nil {
		go w.pumpOSEvents()
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.scanAll()

		case id := <-w.kick:
			w.scanOne(id)

		case <-w.quit:
			return
		}
	}
}

// Stop terminates the loop and the OS watcher.
func (w *Watcher) Stop() {
	close(w.quit)
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
	<-w.done
}

// pumpOSEvents maps fsnotify events back to workspace ids and requests an
// early scan. The diff pass stays the single source of truth for what
// actually changed.
func (w *Watcher) pumpOSEvents() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if id := w.workspaceFor(event.Name); id != "" {
				select {
				case w.kick <- id:
				default:
					// A scan is already pending; the ticker catches up.
				}
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Error("watcher: OS watcher error: %v", err)
		}
	}
}

func (w *Watcher) workspaceFor(path string) string {
	for _, ws := range w.store.Known() {
		if path == ws.Path || strings.HasPrefix(path, ws.Path+string(filepath.Separator)) {
			return ws.ID
		}
	}
	return ""
}

func (w *Watcher) scanAll() {
	for _, ws := range w.store.Known() {
		w.scan(ws)
	}
}

func (w *Watcher) scanOne(id string) {
	for _, ws := range w.store.Known() {
		if ws.ID == id {
			w.scan(ws)
			return
		}
	}
}

// scan enumerates one workspace and emits the diff against the previous
// snapshot. The first scan of a workspace only seeds the snapshot so
// pre-existing files do not produce a flood of synthetic create events.
// Errors are logged and skipped; one broken workspace must not stop
// monitoring of the others.
func (w *Watcher) scan(ws *workspace.Workspace) {
	current, err := w.snapshot(ws)
	if err != nil {
		logger.Warn("watcher: failed to scan workspace %s: %v", ws.ID, err)
		return
	}

	previous, seeded := w.snapshots[ws.ID]
	w.snapshots[ws.ID] = current

	if !seeded {
		logger.Debug("watcher: seeded snapshot for %s (%d files)", ws.ID, len(current))
		return
	}

	now := time.Now()
	for path, stamp := range current {
		prev, existed := previous[path]
		switch {
		case !existed:
			w.emit(ws.ID, path, workspace.ChangeCreate, stamp.size, now)
		case prev.modTime != stamp.modTime || prev.size != stamp.size:
			w.emit(ws.ID, path, workspace.ChangeUpdate, stamp.size, now)
		}
	}
	for path := range previous {
		if _, still := current[path]; !still {
			w.emit(ws.ID, path, workspace.ChangeDelete, 0, now)
		}
	}
}

// snapshot records every non-hidden regular file in the workspace, keyed by
// slash separated relative path. Directories containing files show up through
// their contents; hidden files and directories are skipped entirely.
func (w *Watcher) snapshot(ws *workspace.Workspace) (map[string]fileStamp, error) {
	result := make(map[string]fileStamp)

	err := filepath.WalkDir(ws.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		name := d.Name()
		if path != ws.Path && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			w.watchDir(path)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			// File vanished between enumeration and stat.
			return nil
		}

		rel, err := workspace.Rel(ws.Path, path)
		if err != nil {
			return nil
		}

		result[rel] = fileStamp{modTime: info.ModTime(), size: info.Size()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (w *Watcher) watchDir(path string) {
	if w.fsw == nil {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		logger.Debug("watcher: failed to watch %s: %v", path, err)
	}
}

func (w *Watcher) emit(workspaceID, path, kind string, size int64, ts time.Time) {
	logger.Debug("watcher: %s %s in workspace %s", kind, path, workspaceID)
	w.notifier.NotifyChange(workspace.ChangeEvent{
		WorkspaceID: workspaceID,
		Path:        path,
		Kind:        kind,
		Timestamp:   ts,
		Size:        size,
	})
}
