package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/codestorm-dev/codestorm/internal/workspace"
)

type collectingNotifier struct {
	mu     sync.Mutex
	events []workspace.ChangeEvent
}

func (c *collectingNotifier) NotifyChange(event workspace.ChangeEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *collectingNotifier) find(kind, path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ev := range c.events {
		if ev.Kind == kind && ev.Path == path {
			return true
		}
	}
	return false
}

func (c *collectingNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newTestWatcher(t *testing.T) (*workspace.Store, *Watcher, *collectingNotifier) {
	t.Helper()

	store, err := workspace.NewStore(filepath.Join(t.TempDir(), "workspaces"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	notifier := &collectingNotifier{}
	w := New(store, notifier, 50*time.Millisecond)
	go w.Run()
	t.Cleanup(w.Stop)

	return store, w, notifier
}

func TestFirstScanSeedsWithoutEvents(t *testing.T) {
	store, _, notifier := newTestWatcher(t)

	ws, err := store.GetOrCreate("alice")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	// README marker pre-exists the first scan; it must not produce a
	// synthetic create event.
	if _, err := os.Stat(filepath.Join(ws.Path, "README.md")); err != nil {
		t.Fatalf("expected marker file: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if notifier.find(workspace.ChangeCreate, "README.md") {
		t.Error("first scan emitted a create for a pre-existing file")
	}
}

func TestDetectsCreateUpdateDelete(t *testing.T) {
	store, _, notifier := newTestWatcher(t)

	ws, err := store.GetOrCreate("alice")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	// Let the first scan seed.
	time.Sleep(150 * time.Millisecond)

	target := filepath.Join(ws.Path, "notes.txt")
	if err := os.WriteFile(target, []byte("v1"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	waitFor(t, 3*time.Second, func() bool {
		return notifier.find(workspace.ChangeCreate, "notes.txt")
	})

	// Size change guarantees the diff sees the update even with coarse
	// mtime resolution.
	if err := os.WriteFile(target, []byte("version two"), 0644); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	waitFor(t, 3*time.Second, func() bool {
		return notifier.find(workspace.ChangeUpdate, "notes.txt")
	})

	if err := os.Remove(target); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	waitFor(t, 3*time.Second, func() bool {
		return notifier.find(workspace.ChangeDelete, "notes.txt")
	})
}

func TestDetectsNestedAndSkipsHidden(t *testing.T) {
	store, _, notifier := newTestWatcher(t)

	ws, err := store.GetOrCreate("alice")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	time.Sleep(150 * time.Millisecond)

	if err := os.MkdirAll(filepath.Join(ws.Path, "src", "util"), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(ws.Path, "src", "util", "a.go"), []byte("package util"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(ws.Path, ".hidden"), []byte("x"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool {
		return notifier.find(workspace.ChangeCreate, "src/util/a.go")
	})
	if notifier.find(workspace.ChangeCreate, ".hidden") {
		t.Error("hidden file produced an event")
	}
}

func TestBrokenWorkspaceDoesNotHaltOthers(t *testing.T) {
	store, _, notifier := newTestWatcher(t)

	doomed, err := store.GetOrCreate("doomed")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	alice, err := store.GetOrCreate("alice")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	time.Sleep(150 * time.Millisecond)

	// Externally remove one workspace directory entirely.
	if err := os.RemoveAll(doomed.Path); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(alice.Path, "alive.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	waitFor(t, 3*time.Second, func() bool {
		return notifier.find(workspace.ChangeCreate, "alive.txt")
	})
}

func TestExternalMutationConverges(t *testing.T) {
	// A mutation made outside FileOps (direct write, as a shell command
	// would do) must still reach subscribers within a cycle.
	store, _, notifier := newTestWatcher(t)

	ws, err := store.GetOrCreate("alice")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	time.Sleep(150 * time.Millisecond)

	before := notifier.count()
	if err := os.WriteFile(filepath.Join(ws.Path, "external.txt"), []byte("written outside fileops"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool {
		return notifier.count() > before && notifier.find(workspace.ChangeCreate, "external.txt")
	})
}
