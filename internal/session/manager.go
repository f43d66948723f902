package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/periphery/internal/capability"
	"github.com/GriffinCanCode/periphery/internal/providers/mounter"
	"github.com/GriffinCanCode/periphery/internal/script"
	"github.com/GriffinCanCode/periphery/internal/script/js"
	"github.com/GriffinCanCode/periphery/internal/script/lua"
	"github.com/GriffinCanCode/periphery/internal/shared/id"
	"github.com/GriffinCanCode/periphery/internal/vfs"
	"go.uber.org/zap"
)

const (
	DefaultQueueSize    = 256
	DefaultMaxOpenFiles = 128
)

// Metrics receives session telemetry.
type Metrics interface {
	SetSessionsActive(count int)
	RecordScriptRun(language, status string)
}

// Options configures a Manager. Zero values select defaults.
type Options struct {
	Opener          vfs.Opener
	MountCapacity   int64
	MaxOpenFiles    int
	QueueSize       int
	Timeout         time.Duration
	DefaultLanguage script.Language
	Runners         map[script.Language]script.Runner

	// DataDir, when set, gives every session a writable scratch disk at "/"
	// of ComputerSpace bytes, removed when the session closes.
	DataDir       string
	ComputerSpace int64

	Logger     *zap.Logger
	MountGauge mounter.Gauge
	Metrics    Metrics
}

func (o *Options) applyDefaults() {
	if o.Opener == nil {
		o.Opener = vfs.DirOpener{}
	}
	if o.MountCapacity == 0 {
		o.MountCapacity = mounter.DefaultCapacity
	}
	if o.MaxOpenFiles <= 0 {
		o.MaxOpenFiles = DefaultMaxOpenFiles
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	if o.DefaultLanguage == "" {
		o.DefaultLanguage = script.Lua
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Runners == nil {
		o.Runners = map[script.Language]script.Runner{
			script.Lua: lua.NewRunner(lua.WithLogger(o.Logger)),
			script.JS:  js.NewRunner(js.WithLogger(o.Logger)),
		}
	}
}

// Manager owns every open session.
type Manager struct {
	peripherals *capability.Registry
	apis        *capability.Registry
	opts        Options

	sessions sync.Map
	count    atomic.Int64
	closed   atomic.Bool
}

// NewManager creates a manager. peripherals are attached to every session;
// apis are published to scripts as global tables.
func NewManager(peripherals, apis *capability.Registry, opts Options) *Manager {
	opts.applyDefaults()
	if peripherals == nil {
		peripherals = capability.NewRegistry()
	}
	if apis == nil {
		apis = capability.NewRegistry()
	}
	return &Manager{peripherals: peripherals, apis: apis, opts: opts}
}

// Create opens a session and attaches every registered peripheral to it.
func (m *Manager) Create(label string) (*Session, error) {
	if m.closed.Load() {
		return nil, fmt.Errorf("manager: %w", ErrClosed)
	}

	sid := id.NewSessionID()
	logger := m.opts.Logger.With(zap.String("session", sid.String()))
	fileSystem := vfs.NewFileSystem(m.opts.MaxOpenFiles)

	var dataDir string
	if m.opts.DataDir != "" {
		dataDir = filepath.Join(m.opts.DataDir, sid.String())
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create session disk: %w", err)
		}
		disk, err := vfs.NewFileMount(dataDir, m.opts.ComputerSpace)
		if err == nil {
			err = fileSystem.MountWritable("hdd", "/", disk)
		}
		if err != nil {
			_ = os.RemoveAll(dataDir)
			return nil, fmt.Errorf("failed to mount session disk: %w", err)
		}
	}

	s := &Session{
		id:      sid,
		label:   label,
		created: time.Now(),
		events:  make(chan Event, m.opts.QueueSize),
		done:    make(chan struct{}),
		fs:      fileSystem,
		mounts: mounter.NewRegistry(fileSystem, m.opts.Opener,
			mounter.WithCapacity(m.opts.MountCapacity),
			mounter.WithLogger(logger),
			mounter.WithGauge(m.opts.MountGauge)),
		dataDir: dataDir,
		mgr:     m,
		logger:  logger,
	}

	m.sessions.Store(s.ID(), s)
	m.updateGauge(m.count.Add(1))
	m.peripherals.AttachAll(s)

	// CloseAll may have started ranging before the store above
	if m.closed.Load() {
		_ = m.Close(s.ID())
		return nil, fmt.Errorf("manager: %w", ErrClosed)
	}
	logger.Info("session created", zap.String("label", label))
	return s, nil
}

// Get retrieves an open session.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	val, ok := m.sessions.Load(sessionID)
	if !ok {
		return nil, false
	}
	return val.(*Session), true
}

// List returns open sessions in creation order.
func (m *Manager) List() []*Session {
	var out []*Session
	m.sessions.Range(func(_, val any) bool {
		out = append(out, val.(*Session))
		return true
	})
	// ULIDs sort by creation time
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Close closes and forgets one session.
func (m *Manager) Close(sessionID string) error {
	val, ok := m.sessions.LoadAndDelete(sessionID)
	if !ok {
		return fmt.Errorf("%s: %w", sessionID, ErrNotFound)
	}
	val.(*Session).Close()
	m.updateGauge(m.count.Add(-1))
	return nil
}

// CloseAll closes every session and refuses new ones. Safe to repeat.
func (m *Manager) CloseAll() {
	m.closed.Store(true)
	m.sessions.Range(func(key, _ any) bool {
		_ = m.Close(key.(string))
		return true
	})
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	return int(m.count.Load())
}

func (m *Manager) updateGauge(n int64) {
	if m.opts.Metrics != nil {
		m.opts.Metrics.SetSessionsActive(int(n))
	}
}

// Peripherals returns the registry attached to every session.
func (m *Manager) Peripherals() *capability.Registry {
	return m.peripherals
}

// APIs returns the registry published to scripts as globals.
func (m *Manager) APIs() *capability.Registry {
	return m.apis
}
