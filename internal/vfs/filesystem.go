package vfs

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// MountInfo describes one entry of the mount table.
type MountInfo struct {
	Label    string `json:"label"`
	Location string `json:"location"`
	ReadOnly bool   `json:"read_only"`
}

type mountEntry struct {
	label    string
	location string
	mount    Mount
	writable WritableMount
}

// maxFindDepth bounds Find's descent; symlinked directories can form cycles.
const maxFindDepth = 64

// FileSystem is a sandbox's mount table. Every path resolves to the mount
// with the longest matching location. It is safe for concurrent use.
type FileSystem struct {
	mu     sync.RWMutex
	mounts map[string]*mountEntry
	closed bool

	maxOpen int
	openMu  sync.Mutex
	open    int
}

// NewFileSystem creates an empty mount table. maxOpen caps concurrently open
// handles; 0 disables the cap.
func NewFileSystem(maxOpen int) *FileSystem {
	return &FileSystem{mounts: make(map[string]*mountEntry), maxOpen: maxOpen}
}

// Mount attaches m read-only at location.
func (fs *FileSystem) Mount(label, location string, m Mount) error {
	return fs.add(&mountEntry{label: label, mount: ReadOnly(m)}, location)
}

// MountWritable attaches m read-write at location.
func (fs *FileSystem) MountWritable(label, location string, m WritableMount) error {
	return fs.add(&mountEntry{label: label, mount: m, writable: m}, location)
}

func (fs *FileSystem) add(e *mountEntry, location string) error {
	loc, err := Canonical(location)
	if err != nil {
		return err
	}
	e.location = loc

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.closed {
		return ErrClosed
	}
	if _, ok := fs.mounts[loc]; ok {
		return fmt.Errorf("/%s: %w", loc, ErrExists)
	}
	fs.mounts[loc] = e
	return nil
}

// Unmount detaches whatever is mounted at location.
func (fs *FileSystem) Unmount(location string) bool {
	loc, err := Canonical(location)
	if err != nil {
		return false
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.mounts[loc]; !ok {
		return false
	}
	delete(fs.mounts, loc)
	return true
}

// Mounts lists the mount table sorted by location.
func (fs *FileSystem) Mounts() []MountInfo {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	infos := make([]MountInfo, 0, len(fs.mounts))
	for _, e := range fs.mounts {
		infos = append(infos, MountInfo{Label: e.label, Location: "/" + e.location, ReadOnly: e.writable == nil})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Location < infos[j].Location })
	return infos
}

// Close unmounts everything. Later operations fail with ErrClosed.
func (fs *FileSystem) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.closed = true
	fs.mounts = make(map[string]*mountEntry)
	return nil
}

// resolve returns the mount owning p and p relative to it.
func (fs *FileSystem) resolve(p string) (*mountEntry, string, string, error) {
	canon, err := Canonical(p)
	if err != nil {
		return nil, "", "", fmt.Errorf("/%s: %w", strings.TrimPrefix(p, "/"), err)
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if fs.closed {
		return nil, "", "", ErrClosed
	}
	var best *mountEntry
	for loc, e := range fs.mounts {
		if !under(canon, loc) {
			continue
		}
		if best == nil || len(loc) > len(best.location) {
			best = e
		}
	}
	if best == nil {
		return nil, "", "", pathError(canon, ErrNotFound)
	}
	return best, canon, relativeTo(canon, best.location), nil
}

func (fs *FileSystem) resolveWritable(p string) (WritableMount, string, string, error) {
	e, canon, rel, err := fs.resolve(p)
	if err != nil {
		return nil, "", "", err
	}
	if e.writable == nil {
		return nil, "", "", pathError(canon, ErrReadOnly)
	}
	return e.writable, canon, rel, nil
}

// childMounts returns the names of mount points directly beneath dir.
func (fs *FileSystem) childMounts(dir string) []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	var names []string
	for loc := range fs.mounts {
		if loc == "" {
			continue
		}
		if p, name := parent(loc); p == dir {
			names = append(names, name)
		}
	}
	return names
}

func (fs *FileSystem) isMountPoint(canon string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, ok := fs.mounts[canon]
	return ok
}

// List returns the sorted entries of a directory, including mount points
// that sit directly inside it.
func (fs *FileSystem) List(p string) ([]string, error) {
	e, canon, rel, err := fs.resolve(p)
	if err != nil {
		return nil, err
	}
	names, err := e.mount.List(rel)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		seen[n] = struct{}{}
	}
	for _, n := range fs.childMounts(canon) {
		if _, ok := seen[n]; !ok {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (fs *FileSystem) Exists(p string) (bool, error) {
	e, _, rel, err := fs.resolve(p)
	if err != nil {
		return false, err
	}
	return e.mount.Exists(rel), nil
}

func (fs *FileSystem) IsDir(p string) (bool, error) {
	e, _, rel, err := fs.resolve(p)
	if err != nil {
		return false, err
	}
	return e.mount.IsDir(rel), nil
}

// IsReadOnly reports whether p lives on a read-only mount.
func (fs *FileSystem) IsReadOnly(p string) (bool, error) {
	e, _, _, err := fs.resolve(p)
	if err != nil {
		return false, err
	}
	return e.writable == nil, nil
}

func (fs *FileSystem) Size(p string) (int64, error) {
	e, _, rel, err := fs.resolve(p)
	if err != nil {
		return 0, err
	}
	return e.mount.Size(rel)
}

// FreeSpace returns the remaining budget of the mount owning p. Read-only
// mounts report 0.
func (fs *FileSystem) FreeSpace(p string) (int64, error) {
	e, _, _, err := fs.resolve(p)
	if err != nil {
		return 0, err
	}
	if e.writable == nil {
		return 0, nil
	}
	return e.writable.RemainingSpace(), nil
}

// Drive returns the label of the mount owning p.
func (fs *FileSystem) Drive(p string) (string, error) {
	e, _, _, err := fs.resolve(p)
	if err != nil {
		return "", err
	}
	return e.label, nil
}

func (fs *FileSystem) MakeDir(p string) error {
	m, _, rel, err := fs.resolveWritable(p)
	if err != nil {
		return err
	}
	return m.MakeDir(rel)
}

// Delete removes p. Mount points cannot be deleted.
func (fs *FileSystem) Delete(p string) error {
	canon, err := Canonical(p)
	if err != nil {
		return err
	}
	if fs.isMountPoint(canon) {
		return pathError(canon, ErrAccessDenied)
	}
	m, _, rel, err := fs.resolveWritable(canon)
	if err != nil {
		return err
	}
	return m.Delete(rel)
}

// acquire takes one open-handle slot.
func (fs *FileSystem) acquire() error {
	fs.openMu.Lock()
	defer fs.openMu.Unlock()
	if fs.maxOpen > 0 && fs.open >= fs.maxOpen {
		return ErrTooManyFiles
	}
	fs.open++
	return nil
}

func (fs *FileSystem) releaseHandle() {
	fs.openMu.Lock()
	defer fs.openMu.Unlock()
	if fs.open > 0 {
		fs.open--
	}
}

// OpenFiles returns the number of handles currently open.
func (fs *FileSystem) OpenFiles() int {
	fs.openMu.Lock()
	defer fs.openMu.Unlock()
	return fs.open
}

type handle struct {
	fs   *FileSystem
	once sync.Once
}

func (h *handle) done() {
	h.once.Do(h.fs.releaseHandle)
}

type readHandle struct {
	io.ReadCloser
	handle
}

func (h *readHandle) Close() error {
	defer h.done()
	return h.ReadCloser.Close()
}

type writeHandle struct {
	io.WriteCloser
	handle
}

func (h *writeHandle) Close() error {
	defer h.done()
	return h.WriteCloser.Close()
}

// OpenRead opens p for reading. The handle counts against the open limit
// until closed.
func (fs *FileSystem) OpenRead(p string) (io.ReadCloser, error) {
	e, _, rel, err := fs.resolve(p)
	if err != nil {
		return nil, err
	}
	if err := fs.acquire(); err != nil {
		return nil, err
	}
	r, err := e.mount.OpenRead(rel)
	if err != nil {
		fs.releaseHandle()
		return nil, err
	}
	return &readHandle{ReadCloser: r, handle: handle{fs: fs}}, nil
}

// OpenWrite opens p for writing. The handle counts against the open limit
// until closed.
func (fs *FileSystem) OpenWrite(p string, appendMode bool) (io.WriteCloser, error) {
	m, _, rel, err := fs.resolveWritable(p)
	if err != nil {
		return nil, err
	}
	if err := fs.acquire(); err != nil {
		return nil, err
	}
	w, err := m.OpenWrite(rel, appendMode)
	if err != nil {
		fs.releaseHandle()
		return nil, err
	}
	return &writeHandle{WriteCloser: w, handle: handle{fs: fs}}, nil
}

// ReadAll returns the full contents of p.
func (fs *FileSystem) ReadAll(p string) ([]byte, error) {
	r, err := fs.OpenRead(p)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Write stores data at p, replacing or appending to existing content.
func (fs *FileSystem) Write(p string, data []byte, appendMode bool) error {
	w, err := fs.OpenWrite(p, appendMode)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// Find returns sandbox paths matching a doublestar pattern such as
// "rom/**/*.lua", sorted.
func (fs *FileSystem) Find(pattern string) ([]string, error) {
	canon, err := Canonical(pattern)
	if err != nil {
		return nil, err
	}
	if !doublestar.ValidatePattern(canon) {
		return nil, fmt.Errorf("%s: %w", pattern, doublestar.ErrBadPattern)
	}

	base, _ := doublestar.SplitPattern(canon)
	if base == "." {
		base = ""
	}
	if ok, _ := fs.IsDir(base); !ok {
		return []string{}, nil
	}

	matches := []string{}
	var walk func(dir string, depth int) error
	walk = func(dir string, depth int) error {
		if depth > maxFindDepth {
			return nil
		}
		names, err := fs.List(dir)
		if err != nil {
			return err
		}
		for _, name := range names {
			p := Join(dir, name)
			if ok, _ := doublestar.Match(canon, p); ok {
				matches = append(matches, p)
			}
			if isDir, _ := fs.IsDir(p); isDir {
				if err := walk(p, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(base, 0); err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
