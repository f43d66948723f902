package mounter

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/GriffinCanCode/periphery/internal/vfs"
	"go.uber.org/zap"
)

// DefaultCapacity is the byte budget of a new mount.
const DefaultCapacity int64 = 1_000_000_000

var (
	ErrInvalidName    = errors.New("invalid mount name")
	ErrAlreadyMounted = errors.New("already mounted")
	ErrNotMounted     = errors.New("not mounted")
)

// Entry describes an active mount.
type Entry struct {
	Name     string `json:"name"`
	HostPath string `json:"host_path"`
	Capacity int64  `json:"capacity"`
	ReadOnly bool   `json:"read_only"`
}

// Location is the sandbox path of the mount.
func (e Entry) Location() string {
	return "/" + e.Name
}

// Gauge tracks the number of active mounts.
type Gauge interface {
	Inc()
	Dec()
}

// Registry records the mounts one session created. Mutations are exclusive
// with reads.
type Registry struct {
	fs       *vfs.FileSystem
	opener   vfs.Opener
	capacity int64
	logger   *zap.Logger
	gauge    Gauge

	mu      sync.RWMutex
	entries map[string]Entry
	closed  bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithCapacity sets the budget given to new mounts.
func WithCapacity(capacity int64) Option {
	return func(r *Registry) {
		r.capacity = capacity
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithGauge(g Gauge) Option {
	return func(r *Registry) {
		r.gauge = g
	}
}

// NewRegistry creates a registry that mounts into fs using opener.
func NewRegistry(fs *vfs.FileSystem, opener vfs.Opener, opts ...Option) *Registry {
	r := &Registry{
		fs:       fs,
		opener:   opener,
		capacity: DefaultCapacity,
		logger:   zap.NewNop(),
		entries:  make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FileSystem returns the mount table the registry writes to.
func (r *Registry) FileSystem() *vfs.FileSystem {
	return r.fs
}

func validName(name string) bool {
	if name == "" || strings.ContainsAny(name, "/\\") {
		return false
	}
	canon, err := vfs.Canonical(name)
	return err == nil && canon == name
}

// Mount opens hostPath and makes it visible at /name. It fails with
// vfs.ErrClosed once Shutdown has run.
func (r *Registry) Mount(name, hostPath string, writable bool) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("mount %s: %w", name, vfs.ErrClosed)
	}
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrAlreadyMounted)
	}

	m, err := r.opener.Open(hostPath, r.capacity)
	if err != nil {
		return err
	}
	entry := Entry{Name: name, HostPath: m.Root(), Capacity: r.capacity, ReadOnly: !writable}
	if writable {
		err = r.fs.MountWritable(name, entry.Location(), m)
	} else {
		err = r.fs.Mount(name, entry.Location(), m)
	}
	if err != nil {
		return err
	}
	r.entries[name] = entry
	if r.gauge != nil {
		r.gauge.Inc()
	}
	r.logger.Info("mounted",
		zap.String("name", name),
		zap.String("host_path", entry.HostPath),
		zap.Bool("read_only", entry.ReadOnly))
	return nil
}

// Unmount removes the mount called name.
func (r *Registry) Unmount(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; !ok {
		return fmt.Errorf("%s: %w", name, ErrNotMounted)
	}
	r.removeLocked(name)
	return nil
}

func (r *Registry) removeLocked(name string) {
	r.fs.Unmount("/" + name)
	delete(r.entries, name)
	if r.gauge != nil {
		r.gauge.Dec()
	}
	r.logger.Info("unmounted", zap.String("name", name))
}

// List maps every mount name to its host path.
func (r *Registry) List() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.entries))
	for name, e := range r.entries {
		out[name] = e.HostPath
	}
	return out
}

// IsReadOnly returns the stored flag and whether name is mounted.
func (r *Registry) IsReadOnly(name string) (bool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.ReadOnly, ok
}

// Entries returns every mount sorted by name.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of active mounts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Shutdown unmounts everything this registry created and refuses further
// mounts. Safe to repeat.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for name := range r.entries {
		r.removeLocked(name)
	}
}
