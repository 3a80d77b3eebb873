package workspace

import "errors"

var (
	// ErrPathEscape means a supplied path would resolve outside its
	// workspace root. Nothing on disk is touched when this is returned.
	ErrPathEscape = errors.New("path escapes workspace root")

	// ErrNotFound means the target file or directory does not exist.
	ErrNotFound = errors.New("file or directory not found")

	// ErrExists means create was asked to overwrite an existing target.
	ErrExists = errors.New("file or directory already exists")

	// ErrIsDirectory means the operation requires a regular file.
	ErrIsDirectory = errors.New("target is a directory")

	// ErrNotDirectory means the operation requires a directory.
	ErrNotDirectory = errors.New("target is not a directory")

	// ErrBinaryFile means the file cannot be returned as text; callers
	// should use the raw download accessor instead.
	ErrBinaryFile = errors.New("binary file cannot be read as text")

	// ErrTooLarge means the content exceeds the configured file size bound.
	ErrTooLarge = errors.New("content exceeds maximum file size")

	// ErrInvalidUserID means the user identifier cannot be mapped to a
	// workspace directory name.
	ErrInvalidUserID = errors.New("invalid user id")
)
