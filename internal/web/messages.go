package web

import "time"

// Message types
const (
	// Inbound
	MessageTypeJoinWorkspace  = "join_workspace"
	MessageTypeBashCommand    = "bash_command"
	MessageTypeNaturalCommand = "natural_command"
	MessageTypeListDirectory  = "list_directory"

	// Outbound
	MessageTypeWorkspaceJoined   = "workspace_joined"
	MessageTypeCommandResult     = "command_result"
	MessageTypeDirectoryContents = "directory_contents"
	MessageTypeFileChange        = "file_change"
	MessageTypeError             = "error"
)

// WebMessage represents a message sent over WebSocket
type WebMessage struct {
	Type        string      `json:"type"`
	WorkspaceID string      `json:"workspace_id,omitempty"`
	UserID      string      `json:"user_id,omitempty"`
	Command     string      `json:"command,omitempty"`
	Text        string      `json:"text,omitempty"`
	Path        string      `json:"path,omitempty"`
	Directory   string      `json:"directory,omitempty"`
	TerminalID  string      `json:"terminal_id,omitempty"`
	Success     *bool       `json:"success,omitempty"` // pointer to distinguish false from not set
	Output      string      `json:"output,omitempty"`
	Stdout      string      `json:"stdout,omitempty"`
	Stderr      string      `json:"stderr,omitempty"`
	ExitCode    *int        `json:"exit_code,omitempty"`
	Error       string      `json:"error,omitempty"`
	File        *FileRef    `json:"file,omitempty"`
	ChangeType  string      `json:"change_type,omitempty"`
	Contents    interface{} `json:"contents,omitempty"`
	Timestamp   time.Time   `json:"timestamp,omitempty"`
}

// FileRef points at one file inside a workspace, always workspace relative.
// OldPath is set only on move events.
type FileRef struct {
	Path    string `json:"path"`
	OldPath string `json:"old_path,omitempty"`
	Size    int64  `json:"size,omitempty"`
}

func boolPtr(b bool) *bool {
	return &b
}

func intPtr(i int) *int {
	return &i
}
