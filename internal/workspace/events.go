package workspace

import "time"

// Change kinds for filesystem mutation events.
const (
	ChangeCreate = "create"
	ChangeUpdate = "update"
	ChangeDelete = "delete"
	ChangeMove   = "move"
)

// ChangeEvent describes one filesystem mutation inside a workspace. Path is
// always workspace relative, slash separated, never absolute and never
// containing ".." segments.
type ChangeEvent struct {
	WorkspaceID string    `json:"workspace_id"`
	Path        string    `json:"path"`
	OldPath     string    `json:"old_path,omitempty"` // previous path for ChangeMove
	Kind        string    `json:"kind"`
	Timestamp   time.Time `json:"timestamp"`
	Size        int64     `json:"size,omitempty"`
}

// Notifier receives change events for fan-out to subscribers. Delivery is
// best effort: implementations must not block the caller.
type Notifier interface {
	NotifyChange(event ChangeEvent)
}
