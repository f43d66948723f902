package vfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
)

// MinimumEntrySize is the smallest amount of budget any file or directory
// consumes.
const MinimumEntrySize = 500

// FileMount exposes a host directory. It is safe for concurrent use.
type FileMount struct {
	root     string
	capacity int64

	mu   sync.Mutex
	used int64
}

var _ WritableMount = (*FileMount)(nil)

// NewFileMount opens the existing directory root with the given byte
// budget. A capacity of 0 disables the budget.
func NewFileMount(root string, capacity int64) (*FileMount, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve mount root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", root, ErrNotFound)
		}
		return nil, fmt.Errorf("resolve mount root: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("stat mount root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, ErrNotDir)
	}
	if capacity < 0 {
		capacity = 0
	}

	used, err := measure(resolved)
	if err != nil {
		return nil, fmt.Errorf("measure mount root: %w", err)
	}
	return &FileMount{root: resolved, capacity: capacity, used: used}, nil
}

// measure sums the cost of everything beneath root, excluding root itself.
// fastwalk invokes the callback from several goroutines.
func measure(root string) (int64, error) {
	var used atomic.Int64
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || p == root {
			return nil
		}
		var size int64
		if !d.IsDir() {
			if info, err := d.Info(); err == nil {
				size = info.Size()
			}
		}
		used.Add(cost(size))
		return nil
	})
	return used.Load(), err
}

func cost(size int64) int64 {
	if size < MinimumEntrySize {
		return MinimumEntrySize
	}
	return size
}

// Root returns the resolved host directory.
func (m *FileMount) Root() string {
	return m.root
}

func (m *FileMount) Capacity() int64 {
	return m.capacity
}

// Used returns the bytes currently charged against the budget.
func (m *FileMount) Used() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}

func (m *FileMount) RemainingSpace() int64 {
	if m.capacity == 0 {
		return math.MaxInt64
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.used >= m.capacity {
		return 0
	}
	return m.capacity - m.used
}

// reserve charges n bytes, failing if the budget would be exceeded.
func (m *FileMount) reserve(n int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > 0 && m.capacity > 0 && m.used+n > m.capacity {
		return ErrOutOfSpace
	}
	m.used += n
	return nil
}

func (m *FileMount) release(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.used -= n
	if m.used < 0 {
		m.used = 0
	}
}

// resolve maps a mount path to a host path and rejects anything that would
// land outside the root, including through symlinks.
func (m *FileMount) resolve(p string) (string, string, error) {
	rel, err := Canonical(p)
	if err != nil {
		return "", "", err
	}
	host := filepath.Join(m.root, filepath.FromSlash(rel))

	probe := host
	for {
		resolved, err := filepath.EvalSymlinks(probe)
		if err == nil {
			if !within(m.root, resolved) {
				return "", "", pathError(rel, ErrAccessDenied)
			}
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", "", fmt.Errorf("resolve /%s: %w", rel, err)
		}
		// A dangling link would let a later create escape the root.
		if info, lerr := os.Lstat(probe); lerr == nil && info.Mode()&fs.ModeSymlink != 0 {
			return "", "", pathError(rel, ErrAccessDenied)
		}
		next := filepath.Dir(probe)
		if next == probe {
			break
		}
		probe = next
	}
	return host, rel, nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (m *FileMount) Exists(p string) bool {
	host, _, err := m.resolve(p)
	if err != nil {
		return false
	}
	_, err = os.Stat(host)
	return err == nil
}

func (m *FileMount) IsDir(p string) bool {
	host, _, err := m.resolve(p)
	if err != nil {
		return false
	}
	info, err := os.Stat(host)
	return err == nil && info.IsDir()
}

// List returns the sorted entry names of a directory.
func (m *FileMount) List(p string) ([]string, error) {
	host, rel, err := m.resolve(p)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(host)
	if err != nil {
		return nil, pathError(rel, ErrNotFound)
	}
	if !info.IsDir() {
		return nil, pathError(rel, ErrNotDir)
	}
	entries, err := os.ReadDir(host)
	if err != nil {
		return nil, fmt.Errorf("list /%s: %w", rel, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// Size returns a file's length; directories report 0.
func (m *FileMount) Size(p string) (int64, error) {
	host, rel, err := m.resolve(p)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(host)
	if err != nil {
		return 0, pathError(rel, ErrNotFound)
	}
	if info.IsDir() {
		return 0, nil
	}
	return info.Size(), nil
}

func (m *FileMount) OpenRead(p string) (io.ReadCloser, error) {
	host, rel, err := m.resolve(p)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(host)
	if err != nil {
		return nil, pathError(rel, ErrNotFound)
	}
	if info.IsDir() {
		return nil, pathError(rel, ErrIsDir)
	}
	return os.Open(host)
}

// MakeDir creates a directory and any missing parents, charging each new
// directory against the budget.
func (m *FileMount) MakeDir(p string) error {
	host, rel, err := m.resolve(p)
	if err != nil {
		return err
	}
	if info, err := os.Stat(host); err == nil {
		if info.IsDir() {
			return nil
		}
		return pathError(rel, ErrExists)
	}

	var missing int64
	for dir := host; dir != m.root; dir = filepath.Dir(dir) {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return pathError(rel, ErrExists)
			}
			break
		}
		missing++
	}
	if err := m.reserve(missing * MinimumEntrySize); err != nil {
		return pathError(rel, err)
	}
	if err := os.MkdirAll(host, 0o755); err != nil {
		m.release(missing * MinimumEntrySize)
		return fmt.Errorf("mkdir /%s: %w", rel, err)
	}
	return nil
}

// Delete removes a file or directory tree and refunds its cost. The mount
// root itself cannot be deleted.
func (m *FileMount) Delete(p string) error {
	host, rel, err := m.resolve(p)
	if err != nil {
		return err
	}
	if rel == "" {
		return pathError(rel, ErrAccessDenied)
	}
	info, err := os.Lstat(host)
	if err != nil {
		return nil
	}

	refund := cost(info.Size())
	if info.IsDir() {
		refund = MinimumEntrySize
		inner, err := measure(host)
		if err != nil {
			return fmt.Errorf("delete /%s: %w", rel, err)
		}
		refund += inner
	}
	if err := os.RemoveAll(host); err != nil {
		return fmt.Errorf("delete /%s: %w", rel, err)
	}
	m.release(refund)
	return nil
}

// OpenWrite opens a file for writing, creating parent directories as
// needed. Without append the file is truncated.
func (m *FileMount) OpenWrite(p string, appendMode bool) (io.WriteCloser, error) {
	host, rel, err := m.resolve(p)
	if err != nil {
		return nil, err
	}
	if rel == "" {
		return nil, pathError(rel, ErrIsDir)
	}

	var size int64
	info, err := os.Stat(host)
	switch {
	case err == nil && info.IsDir():
		return nil, pathError(rel, ErrIsDir)
	case err == nil:
		size = info.Size()
		if !appendMode {
			m.release(cost(size) - MinimumEntrySize)
			size = 0
		}
	default:
		dir, _ := parent(rel)
		if dir != "" {
			if err := m.MakeDir(dir); err != nil {
				return nil, err
			}
		}
		if err := m.reserve(MinimumEntrySize); err != nil {
			return nil, pathError(rel, err)
		}
	}

	flags := os.O_WRONLY | os.O_CREATE
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(host, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open /%s: %w", rel, err)
	}
	return &fileWriter{f: f, m: m, rel: rel, size: size}, nil
}

// fileWriter charges the budget for every byte that grows the file past its
// minimum cost.
type fileWriter struct {
	f    *os.File
	m    *FileMount
	rel  string
	size int64
}

func (w *fileWriter) Write(b []byte) (int, error) {
	grown := w.size + int64(len(b))
	if err := w.m.reserve(cost(grown) - cost(w.size)); err != nil {
		return 0, pathError(w.rel, err)
	}
	n, err := w.f.Write(b)
	if n < len(b) {
		w.m.release(cost(grown) - cost(w.size+int64(n)))
	}
	w.size += int64(n)
	return n, err
}

func (w *fileWriter) Close() error {
	return w.f.Close()
}
