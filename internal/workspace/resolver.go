package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolve maps a user supplied relative path onto an absolute path inside
// root. The input is first stripped of literal ".." sequences, a leading
// separator is dropped (absolute looking paths are treated as workspace
// relative), then the joined path is canonicalized and checked against the
// canonical root. Any result outside root fails with ErrPathEscape before any
// filesystem access happens. An empty path resolves to the root itself.
func Resolve(root, rel string) (string, error) {
	canonicalRoot, err := canonicalize(root)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize workspace root: %w", err)
	}

	rel = strings.ReplaceAll(rel, "..", "")
	rel = strings.TrimLeft(rel, "/\\")

	if rel == "" || rel == "." {
		return canonicalRoot, nil
	}

	joined := filepath.Join(canonicalRoot, filepath.FromSlash(rel))
	abs, err := canonicalize(joined)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize path: %w", err)
	}

	if !Contains(canonicalRoot, abs) {
		return "", ErrPathEscape
	}

	return abs, nil
}

// Contains reports whether abs is root itself or a descendant of root. Both
// arguments must already be canonical.
func Contains(root, abs string) bool {
	if abs == root {
		return true
	}
	return strings.HasPrefix(abs, root+string(filepath.Separator))
}

// Rel converts an absolute path under root back into a slash separated
// workspace relative path.
func Rel(root, abs string) (string, error) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", nil
	}
	if strings.HasPrefix(rel, "..") {
		return "", ErrPathEscape
	}
	return filepath.ToSlash(rel), nil
}

// canonicalize resolves symlinks and dot segments. The target may not exist
// yet: symlinks are evaluated on the deepest existing ancestor and the
// remaining components are joined back on.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	remainder := ""
	current := abs
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Join(resolved, remainder), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}

		parent := filepath.Dir(current)
		if parent == current {
			// Hit the filesystem root without finding anything.
			return abs, nil
		}
		remainder = filepath.Join(filepath.Base(current), remainder)
		current = parent
	}
}
