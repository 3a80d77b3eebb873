package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/codestorm-dev/codestorm/internal/logger"
)

// Entry is one row of a directory listing.
type Entry struct {
	Name      string `json:"name"`
	Type      string `json:"type"` // "file" or "directory"
	Size      int64  `json:"size"`
	Modified  int64  `json:"modified_timestamp"`
	Extension string `json:"extension,omitempty"`
}

// Files performs file operations inside user workspaces. Every path goes
// through Resolve before any disk access. Successful mutations are reported
// to the notifier; the change watcher independently converges on the same
// state, so subscribers may see duplicates.
type Files struct {
	store       *Store
	notifier    Notifier
	maxFileSize int64
}

// NewFiles creates a file operation service. notifier may be nil, in which
// case only the watcher reports changes. maxFileSize <= 0 disables the size
// bound.
func NewFiles(store *Store, notifier Notifier, maxFileSize int64) *Files {
	return &Files{
		store:       store,
		notifier:    notifier,
		maxFileSize: maxFileSize,
	}
}

// Read returns the content of a text file. Binary files are refused with
// ErrBinaryFile; use ReadRaw for a byte download instead.
func (f *Files) Read(userID, rel string) ([]byte, error) {
	data, abs, err := f.readFile(userID, rel)
	if err != nil {
		return nil, err
	}
	if isLikelyBinaryFile(abs, data) {
		return nil, fmt.Errorf("%w: %s", ErrBinaryFile, rel)
	}
	return data, nil
}

// ReadRaw returns file bytes without the binary refusal, for download style
// access.
func (f *Files) ReadRaw(userID, rel string) ([]byte, error) {
	data, _, err := f.readFile(userID, rel)
	return data, err
}

func (f *Files) readFile(userID, rel string) ([]byte, string, error) {
	_, abs, err := f.store.Resolve(userID, rel)
	if err != nil {
		return nil, "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return nil, "", fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return nil, "", fmt.Errorf("%w: %s", ErrIsDirectory, rel)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return data, abs, nil
}

// Create writes a new file or directory. It never overwrites: an existing
// target fails with ErrExists. Parent directories are created transparently.
func (f *Files) Create(userID, rel string, content []byte, isDir bool) error {
	ws, abs, err := f.store.Resolve(userID, rel)
	if err != nil {
		return err
	}

	if _, err := os.Stat(abs); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, rel)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", rel, err)
	}

	if !isDir && f.maxFileSize > 0 && int64(len(content)) > f.maxFileSize {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(content))
	}

	if isDir {
		if err := os.MkdirAll(abs, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", rel, err)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
			return fmt.Errorf("failed to create parent directories for %s: %w", rel, err)
		}
		if err := os.WriteFile(abs, content, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", rel, err)
		}
	}

	logger.Info("fileops: created %s in workspace %s (%d bytes, dir=%v)", rel, ws.ID, len(content), isDir)
	f.emit(ws, abs, ChangeCreate, int64(len(content)))
	return nil
}

// Save overwrites an existing regular file. Unlike Create it requires the
// target to exist already, preserving create-vs-edit semantics for clients.
func (f *Files) Save(userID, rel string, content []byte) error {
	ws, abs, err := f.store.Resolve(userID, rel)
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrIsDirectory, rel)
	}

	if f.maxFileSize > 0 && int64(len(content)) > f.maxFileSize {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(content))
	}

	if err := os.WriteFile(abs, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}

	logger.Info("fileops: saved %s in workspace %s (%d bytes)", rel, ws.ID, len(content))
	f.emit(ws, abs, ChangeUpdate, int64(len(content)))
	return nil
}

// Move renames a file or directory within the same workspace. The source
// must exist and the target must not; parents of the target are created
// transparently. Emits a single ChangeMove event carrying both paths.
func (f *Files) Move(userID, fromRel, toRel string) error {
	ws, from, err := f.store.Resolve(userID, fromRel)
	if err != nil {
		return err
	}
	_, to, err := f.store.Resolve(userID, toRel)
	if err != nil {
		return err
	}

	if from == ws.Path || to == ws.Path {
		return fmt.Errorf("%w: cannot move the workspace root", ErrPathEscape)
	}

	info, err := os.Stat(from)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, fromRel)
		}
		return fmt.Errorf("failed to stat %s: %w", fromRel, err)
	}
	if _, err := os.Stat(to); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, toRel)
	}

	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return fmt.Errorf("failed to create parent directories for %s: %w", toRel, err)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", fromRel, toRel, err)
	}

	logger.Info("fileops: moved %s to %s in workspace %s", fromRel, toRel, ws.ID)
	f.emitMove(ws, from, to, info.Size())
	return nil
}

// Delete removes a file, or a directory recursively. Irreversible.
func (f *Files) Delete(userID, rel string) error {
	ws, abs, err := f.store.Resolve(userID, rel)
	if err != nil {
		return err
	}

	// Refuse to remove the workspace root itself.
	if abs == ws.Path {
		return fmt.Errorf("%w: cannot delete workspace root", ErrPathEscape)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return fmt.Errorf("failed to stat %s: %w", rel, err)
	}

	if info.IsDir() {
		err = os.RemoveAll(abs)
	} else {
		err = os.Remove(abs)
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", rel, err)
	}

	logger.Info("fileops: deleted %s in workspace %s", rel, ws.ID)
	f.emit(ws, abs, ChangeDelete, 0)
	return nil
}

// List returns the entries of a workspace directory, directories first and
// then case-insensitive alphabetical. Hidden entries are skipped.
func (f *Files) List(userID, rel string) ([]Entry, error) {
	_, abs, err := f.store.Resolve(userID, rel)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, rel)
	}

	dirEntries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", rel, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if strings.HasPrefix(de.Name(), ".") {
			continue
		}
		fi, err := de.Info()
		if err != nil {
			continue
		}

		entry := Entry{
			Name:     de.Name(),
			Size:     fi.Size(),
			Modified: fi.ModTime().Unix(),
		}
		if de.IsDir() {
			entry.Type = "directory"
			entry.Size = 0
		} else {
			entry.Type = "file"
			if ext := filepath.Ext(de.Name()); ext != "" {
				entry.Extension = strings.TrimPrefix(ext, ".")
			}
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Type != entries[j].Type {
			return entries[i].Type == "directory"
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})

	return entries, nil
}

func (f *Files) emit(ws *Workspace, abs, kind string, size int64) {
	if f.notifier == nil {
		return
	}

	rel, err := Rel(ws.Path, abs)
	if err != nil {
		logger.Warn("fileops: failed to relativize %s: %v", abs, err)
		return
	}

	f.notifier.NotifyChange(ChangeEvent{
		WorkspaceID: ws.ID,
		Path:        rel,
		Kind:        kind,
		Timestamp:   time.Now(),
		Size:        size,
	})
}

func (f *Files) emitMove(ws *Workspace, fromAbs, toAbs string, size int64) {
	if f.notifier == nil {
		return
	}

	fromRel, err := Rel(ws.Path, fromAbs)
	if err != nil {
		logger.Warn("fileops: failed to relativize %s: %v", fromAbs, err)
		return
	}
	toRel, err := Rel(ws.Path, toAbs)
	if err != nil {
		logger.Warn("fileops: failed to relativize %s: %v", toAbs, err)
		return
	}

	f.notifier.NotifyChange(ChangeEvent{
		WorkspaceID: ws.ID,
		Path:        toRel,
		OldPath:     fromRel,
		Kind:        ChangeMove,
		Timestamp:   time.Now(),
		Size:        size,
	})
}
