package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestGetOrCreateWritesMarkerOnce(t *testing.T) {
	t.Parallel()

	store, err := NewStore(filepath.Join(t.TempDir(), "workspaces"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	ws, err := store.GetOrCreate("alice")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	markerPath := filepath.Join(ws.Path, "README.md")
	if _, err := os.Stat(markerPath); err != nil {
		t.Fatalf("expected welcome marker at %s: %v", markerPath, err)
	}

	// Replace the marker, then re-access: content must survive.
	if err := os.WriteFile(markerPath, []byte("edited"), 0644); err != nil {
		t.Fatalf("failed to edit marker: %v", err)
	}

	again, err := store.GetOrCreate("alice")
	if err != nil {
		t.Fatalf("second GetOrCreate failed: %v", err)
	}
	if again.Path != ws.Path {
		t.Errorf("expected same path, got %q and %q", ws.Path, again.Path)
	}

	data, err := os.ReadFile(markerPath)
	if err != nil {
		t.Fatalf("failed to read marker: %v", err)
	}
	if string(data) != "edited" {
		t.Errorf("marker was rewritten on re-access: %q", data)
	}
}

func TestGetOrCreateDefaultsEmptyUser(t *testing.T) {
	t.Parallel()

	store, err := NewStore(filepath.Join(t.TempDir(), "workspaces"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	ws, err := store.GetOrCreate("")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if ws.ID != "default" {
		t.Errorf("expected default workspace, got %q", ws.ID)
	}
}

func TestGetOrCreateRejectsTraversalIDs(t *testing.T) {
	t.Parallel()

	store, err := NewStore(filepath.Join(t.TempDir(), "workspaces"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	for _, id := range []string{"../evil", "a/b", "..", ".", "x y"} {
		if _, err := store.GetOrCreate(id); !errors.Is(err, ErrInvalidUserID) {
			t.Errorf("GetOrCreate(%q) = %v, want ErrInvalidUserID", id, err)
		}
	}
}

func TestWorkspacesIsolated(t *testing.T) {
	t.Parallel()

	store, err := NewStore(filepath.Join(t.TempDir(), "workspaces"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	alice, err := store.GetOrCreate("alice")
	if err != nil {
		t.Fatalf("GetOrCreate(alice) failed: %v", err)
	}
	bob, err := store.GetOrCreate("bob")
	if err != nil {
		t.Fatalf("GetOrCreate(bob) failed: %v", err)
	}

	if alice.Path == bob.Path {
		t.Fatal("alice and bob share a workspace path")
	}

	// No path alice can supply resolves into bob's workspace.
	for _, p := range []string{"../bob", "../bob/secret.txt", "/../bob"} {
		abs, err := Resolve(alice.Path, p)
		if err != nil {
			continue
		}
		if Contains(bob.Path, abs) {
			t.Errorf("path %q resolved into bob's workspace: %q", p, abs)
		}
	}
}

func TestKnownListsWorkspaces(t *testing.T) {
	t.Parallel()

	store, err := NewStore(filepath.Join(t.TempDir(), "workspaces"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	for _, id := range []string{"a", "b", "c"} {
		if _, err := store.GetOrCreate(id); err != nil {
			t.Fatalf("GetOrCreate(%q) failed: %v", id, err)
		}
	}

	if got := len(store.Known()); got != 3 {
		t.Errorf("expected 3 known workspaces, got %d", got)
	}
}
