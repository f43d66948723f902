package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/periphery/internal/capability"
	"github.com/GriffinCanCode/periphery/internal/providers/mounter"
	"github.com/GriffinCanCode/periphery/internal/script"
	"github.com/GriffinCanCode/periphery/internal/shared/id"
	"github.com/GriffinCanCode/periphery/internal/vfs"
	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrClosed   = errors.New("session closed")
	ErrBusy     = errors.New("session is already running a script")
)

// Event is a queued notification for the session's scripts.
type Event struct {
	Name string    `json:"name"`
	Args []any     `json:"args"`
	At   time.Time `json:"at"`
}

// Result is the outcome of one script run.
type Result struct {
	RunID    id.RunID        `json:"run_id"`
	Language script.Language `json:"language"`
	Results  []any           `json:"results"`
	Output   string          `json:"output"`
	Duration time.Duration   `json:"duration"`
}

// Info is a point-in-time description of a session.
type Info struct {
	ID            string    `json:"id"`
	Label         string    `json:"label"`
	CreatedAt     time.Time `json:"created_at"`
	Mounts        int       `json:"mounts"`
	PendingEvents int       `json:"pending_events"`
	DroppedEvents uint64    `json:"dropped_events"`
	Running       bool      `json:"running"`
}

// Session is one computer. It implements capability.Computer, mounter.Owner
// and fs.Owner.
type Session struct {
	id      id.SessionID
	label   string
	created time.Time

	events  chan Event
	dropped atomic.Uint64
	running atomic.Bool

	done      chan struct{}
	closeOnce sync.Once

	fs      *vfs.FileSystem
	mounts  *mounter.Registry
	dataDir string

	mgr    *Manager
	logger *zap.Logger
}

var _ capability.Computer = (*Session)(nil)

func (s *Session) ID() string {
	return string(s.id)
}

func (s *Session) Label() string {
	return s.label
}

// Mounts returns the session's mount registry.
func (s *Session) Mounts() *mounter.Registry {
	return s.mounts
}

// FileSystem returns the session's mount table.
func (s *Session) FileSystem() *vfs.FileSystem {
	return s.fs
}

// QueueEvent enqueues an event without blocking. Events are dropped when the
// queue is full or the session is closed.
func (s *Session) QueueEvent(name string, args ...any) {
	if s.Closed() {
		return
	}
	ev := Event{Name: name, Args: args, At: time.Now()}
	select {
	case s.events <- ev:
	default:
		s.dropped.Add(1)
		s.logger.Debug("event queue full, dropping", zap.String("event", name))
	}
}

// PollEvent waits for the next event.
func (s *Session) PollEvent(ctx context.Context) (Event, error) {
	select {
	case ev := <-s.events:
		return ev, nil
	case <-s.done:
		return Event{}, ErrClosed
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Events drains every queued event without blocking.
func (s *Session) Events() []Event {
	var out []Event
	for {
		select {
		case ev := <-s.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Run executes source in language, or the manager's default language when
// language is empty. Only one script runs per session at a time; the run is
// cancelled when ctx ends, the timeout passes, or the session closes.
func (s *Session) Run(ctx context.Context, language, source string) (*Result, error) {
	if s.Closed() {
		return nil, ErrClosed
	}
	lang, err := script.ParseLanguage(language, s.mgr.opts.DefaultLanguage)
	if err != nil {
		return nil, err
	}
	runner, ok := s.mgr.opts.Runners[lang]
	if !ok {
		return nil, fmt.Errorf("no runner for %s", lang)
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.running.Store(false)

	if s.mgr.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.mgr.opts.Timeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	runID := id.NewRunID()
	var out bytes.Buffer
	start := time.Now()
	results, err := runner.Run(ctx, script.Env{
		Computer:    s,
		Peripherals: s.mgr.peripherals,
		APIs:        s.mgr.apis,
		Output:      &out,
	}, source)
	elapsed := time.Since(start)

	status := runStatus(err)
	if s.mgr.opts.Metrics != nil {
		s.mgr.opts.Metrics.RecordScriptRun(string(lang), status)
	}
	s.logger.Debug("script finished",
		zap.String("run_id", runID.String()),
		zap.String("language", string(lang)),
		zap.String("status", status),
		zap.Duration("duration", elapsed))

	if err != nil {
		return nil, err
	}
	return &Result{
		RunID:    runID,
		Language: lang,
		Results:  results,
		Output:   out.String(),
		Duration: elapsed,
	}, nil
}

func runStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "error"
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Close detaches every peripheral, unmounts everything the session mounted
// and releases its scratch disk. Safe to repeat.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.mgr.peripherals.DetachAll(s)
		s.mounts.Shutdown()
		if err := s.fs.Close(); err != nil {
			s.logger.Warn("closing file system", zap.Error(err))
		}
		if s.dataDir != "" {
			if err := os.RemoveAll(s.dataDir); err != nil {
				s.logger.Warn("removing session disk", zap.String("dir", s.dataDir), zap.Error(err))
			}
		}
		s.logger.Info("session closed")
	})
}

// Info describes the session.
func (s *Session) Info() Info {
	return Info{
		ID:            s.ID(),
		Label:         s.label,
		CreatedAt:     s.created,
		Mounts:        s.mounts.Len(),
		PendingEvents: len(s.events),
		DroppedEvents: s.dropped.Load(),
		Running:       s.running.Load(),
	}
}
