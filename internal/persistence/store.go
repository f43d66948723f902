// Package persistence stores monitor snapshots on disk.
//
// Each record is encoded as JSON with sonic, compressed with zstd and written
// atomically (temp file then rename) as <name>.snap.zst.
package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/GriffinCanCode/periphery/internal/providers/monitor"
	"github.com/GriffinCanCode/periphery/internal/terminal"
	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

const ext = ".snap.zst"

var (
	ErrNotFound    = errors.New("snapshot not found")
	ErrInvalidName = errors.New("invalid snapshot name")
)

// Record is one persisted monitor.
type Record struct {
	Name      string            `json:"name"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	TextScale int               `json:"text_scale"`
	Snapshot  terminal.Snapshot `json:"snapshot"`
	SavedAt   time.Time         `json:"saved_at"`
}

// Counter counts store traffic.
type Counter interface {
	IncSnapshotsSaved()
	IncSnapshotsLoaded()
}

// Store is a directory of records. It is safe for concurrent use; concurrent
// saves of one name race, and the last rename wins.
type Store struct {
	dir     string
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	logger  *zap.Logger
	counter Counter
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithCounter(c Counter) Option {
	return func(s *Store) {
		s.counter = c
	}
}

// NewStore opens dir, creating it if needed.
func NewStore(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	s := &Store{dir: dir, enc: enc, dec: dec, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.':
		default:
			return false
		}
	}
	return true
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+ext)
}

// Save writes rec, replacing any record with the same name.
func (s *Store) Save(rec Record) error {
	if !validName(rec.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, rec.Name)
	}
	if rec.SavedAt.IsZero() {
		rec.SavedAt = time.Now().UTC()
	}

	data, err := sonic.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	compressed := s.enc.EncodeAll(data, make([]byte, 0, len(data)/4))

	tmp, err := os.CreateTemp(s.dir, rec.Name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}
	if _, err := tmp.Write(compressed); err != nil {
		cleanup()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path(rec.Name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	if s.counter != nil {
		s.counter.IncSnapshotsSaved()
	}
	s.logger.Debug("snapshot saved",
		zap.String("name", rec.Name),
		zap.Int("raw_bytes", len(data)),
		zap.Int("stored_bytes", len(compressed)))
	return nil
}

// Load reads the record called name.
func (s *Store) Load(name string) (Record, error) {
	if !validName(name) {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	compressed, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return Record{}, err
	}
	data, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return Record{}, fmt.Errorf("failed to decompress snapshot %s: %w", name, err)
	}
	var rec Record
	if err := sonic.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to decode snapshot %s: %w", name, err)
	}
	if s.counter != nil {
		s.counter.IncSnapshotsLoaded()
	}
	return rec, nil
}

// List returns stored record names, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ext))
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the record called name.
func (s *Store) Delete(name string) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	err := os.Remove(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return err
}

// Close releases the codecs.
func (s *Store) Close() error {
	s.dec.Close()
	return s.enc.Close()
}

// Capture builds a record from a monitor. It fails when the monitor's
// terminal is detached.
func Capture(m *monitor.Monitor) (Record, bool) {
	term := m.Terminal()
	if term == nil {
		return Record{}, false
	}
	w, h := term.Size()
	return Record{
		Name:      m.Name(),
		Width:     w,
		Height:    h,
		TextScale: m.TextScale(),
		Snapshot:  term.Serialize(),
	}, true
}

// Restore loads rec into m. The terminal is resized to the recorded size
// first so every stored row lands.
func Restore(m *monitor.Monitor, rec Record) bool {
	term := m.Terminal()
	if term == nil {
		return false
	}
	if rec.Width > 0 && rec.Height > 0 {
		term.Resize(rec.Width, rec.Height)
	}
	if rec.TextScale >= monitor.MinTextScale && rec.TextScale <= monitor.MaxTextScale {
		m.SetTextScale(rec.TextScale)
	}
	term.Deserialize(rec.Snapshot)
	return true
}
