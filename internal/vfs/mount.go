package vfs

import "io"

// Mount is a read-only file tree. Paths are canonical and relative to the
// mount root.
type Mount interface {
	Root() string
	Exists(path string) bool
	IsDir(path string) bool
	List(path string) ([]string, error)
	Size(path string) (int64, error)
	OpenRead(path string) (io.ReadCloser, error)
}

// WritableMount is a Mount that also accepts writes within a byte budget.
type WritableMount interface {
	Mount
	MakeDir(path string) error
	Delete(path string) error
	OpenWrite(path string, append bool) (io.WriteCloser, error)
	// RemainingSpace is the unspent budget in bytes.
	RemainingSpace() int64
	// Capacity is the total budget; 0 means unlimited.
	Capacity() int64
}

type readOnly struct {
	m Mount
}

// ReadOnly hides the write side of m.
func ReadOnly(m Mount) Mount {
	if ro, ok := m.(readOnly); ok {
		return ro
	}
	return readOnly{m: m}
}

func (r readOnly) Root() string { return r.m.Root() }
func (r readOnly) Exists(path string) bool { return r.m.Exists(path) }
func (r readOnly) IsDir(path string) bool { return r.m.IsDir(path) }
func (r readOnly) List(path string) ([]string, error) { return r.m.List(path) }
func (r readOnly) Size(path string) (int64, error) { return r.m.Size(path) }
func (r readOnly) OpenRead(path string) (io.ReadCloser, error) { return r.m.OpenRead(path) }
