package vfs

import (
	"fmt"
	"path/filepath"
)

// Opener turns a host path into a mount.
type Opener interface {
	Open(hostPath string, capacity int64) (WritableMount, error)
}

// DirOpener opens host directories as FileMounts. When Roots is non-empty
// only directories at or beneath one of the roots may be opened.
type DirOpener struct {
	Roots []string
}

func (o DirOpener) Open(hostPath string, capacity int64) (WritableMount, error) {
	if len(o.Roots) > 0 {
		resolved, err := evalPath(hostPath)
		if err != nil {
			return nil, err
		}
		allowed := false
		for _, root := range o.Roots {
			r, err := evalPath(root)
			if err != nil {
				continue
			}
			if within(r, resolved) {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", hostPath, ErrAccessDenied)
		}
	}
	return NewFileMount(hostPath, capacity)
}

func evalPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	return resolved, nil
}
