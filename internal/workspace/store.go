package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/codestorm-dev/codestorm/internal/logger"
)

const defaultUserID = "default"

const welcomeMarker = `# Workspace

This is your collaborative workspace. Use shell commands or natural language
instructions to create and modify files.

Examples:
- "create a folder called projects"
- "mkdir projects"
- "touch notes.txt"
`

// Workspace is one user's sandbox directory.
type Workspace struct {
	ID         string
	Path       string
	CreatedAt  time.Time
	LastAccess time.Time
}

// Store lazily creates and hands out workspace directories under a single
// root. All access goes through the mutex guarded registry; handlers receive
// the store by injection rather than touching package state.
type Store struct {
	mu      sync.RWMutex
	root    string
	entries map[string]*Workspace
}

// NewStore creates the workspace root directory if needed and returns a
// registry rooted there.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace root: %w", err)
	}

	canonical, err := canonicalize(root)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize workspace root: %w", err)
	}

	return &Store{
		root:    canonical,
		entries: make(map[string]*Workspace),
	}, nil
}

// Root returns the canonical workspace root directory.
func (s *Store) Root() string {
	return s.root
}

// GetOrCreate returns the workspace for userID, creating the directory and a
// README marker on first access. It is an upsert: an existing workspace is
// never an error. An empty userID maps to "default".
func (s *Store) GetOrCreate(userID string) (*Workspace, error) {
	id, err := sanitizeUserID(userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ws, ok := s.entries[id]; ok {
		ws.LastAccess = time.Now()
		return ws, nil
	}

	path := filepath.Join(s.root, id)
	created := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		created = true
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace for %s: %w", id, err)
	}

	if created {
		if empty, err := isEmptyDir(path); err == nil && empty {
			markerPath := filepath.Join(path, "README.md")
			if err := os.WriteFile(markerPath, []byte(welcomeMarker), 0644); err != nil {
				logger.Warn("workspace: failed to write welcome marker for %s: %v", id, err)
			}
		}
		logger.Info("workspace: created workspace for %s at %s", id, path)
	}

	now := time.Now()
	ws := &Workspace{
		ID:         id,
		Path:       path,
		CreatedAt:  now,
		LastAccess: now,
	}
	s.entries[id] = ws
	return ws, nil
}

// Resolve combines GetOrCreate with path containment for userID's workspace.
func (s *Store) Resolve(userID, rel string) (*Workspace, string, error) {
	ws, err := s.GetOrCreate(userID)
	if err != nil {
		return nil, "", err
	}
	abs, err := Resolve(ws.Path, rel)
	if err != nil {
		return nil, "", err
	}
	return ws, abs, nil
}

// Known returns a snapshot of all workspaces seen so far, for the change
// watcher to iterate.
func (s *Store) Known() []*Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Workspace, 0, len(s.entries))
	for _, ws := range s.entries {
		result = append(result, ws)
	}
	return result
}

// sanitizeUserID reduces a user identifier to a single safe path segment.
func sanitizeUserID(userID string) (string, error) {
	id := strings.TrimSpace(userID)
	if id == "" {
		return defaultUserID, nil
	}

	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidUserID, userID)
		}
	}

	// "." and ".." would leave the root even after the character check.
	if strings.Trim(id, ".") == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidUserID, userID)
	}

	return id, nil
}

func isEmptyDir(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}
