package vfs

import (
	"errors"
	"fmt"
)

// Sentinel errors. Messages are shown to scripts.
var (
	ErrNotFound     = errors.New("No such file")
	ErrNotDir       = errors.New("Not a directory")
	ErrIsDir        = errors.New("Is a directory")
	ErrExists       = errors.New("File exists")
	ErrAccessDenied = errors.New("Access denied")
	ErrReadOnly     = errors.New("Read only filesystem")
	ErrOutOfSpace   = errors.New("Out of space")
	ErrTooManyFiles = errors.New("Too many files already open")
	ErrClosed       = errors.New("Filesystem closed")
)

func pathError(path string, err error) error {
	return fmt.Errorf("/%s: %w", path, err)
}
