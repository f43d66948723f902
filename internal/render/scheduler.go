// Package render schedules host-side redraws of terminal-backed devices.
//
// Terminals report mutations through their change callback; the callback
// calls Notify, which never blocks. Run coalesces notifications, throttles
// them with a token bucket, and captures a Frame of every changed target.
package render

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/periphery/internal/terminal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultRate is the redraw ceiling when none is configured.
const DefaultRate = 20

// Target is a device whose terminal is redrawn. *monitor.Monitor satisfies it.
type Target interface {
	Name() string
	Terminal() *terminal.Terminal
}

// Frame is the captured state of one target. Pixels holds the sub-cell
// rows as base-16 digits; Palette is the encoded 16-entry colour table.
type Frame struct {
	Name     string    `json:"name"`
	Seq      uint64    `json:"seq"`
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	CursorX  int       `json:"cursor_x"`
	CursorY  int       `json:"cursor_y"`
	Blink    bool      `json:"cursor_blink"`
	Graphics bool      `json:"graphics_mode"`
	Text     []string  `json:"text"`
	Fg       []string  `json:"fg"`
	Bg       []string  `json:"bg"`
	Pixels   []string  `json:"pixels"`
	Palette  string    `json:"palette"`
	At       time.Time `json:"at"`
}

// Counter counts redraws.
type Counter interface {
	IncRedraws()
}

// Scheduler coalesces change notifications into throttled redraws.
type Scheduler struct {
	limiter *rate.Limiter
	notify  chan struct{}
	sink    func(Frame)
	counter Counter
	logger  *zap.Logger

	mu      sync.RWMutex
	targets map[string]Target
	frames  map[string]Frame
	seq     uint64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSink receives every captured frame on the Run goroutine.
func WithSink(sink func(Frame)) Option {
	return func(s *Scheduler) {
		s.sink = sink
	}
}

func WithCounter(c Counter) Option {
	return func(s *Scheduler) {
		s.counter = c
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler allows at most perSecond redraw passes per second.
func NewScheduler(perSecond float64, opts ...Option) *Scheduler {
	if perSecond <= 0 {
		perSecond = DefaultRate
	}
	s := &Scheduler{
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		notify:  make(chan struct{}, 1),
		logger:  zap.NewNop(),
		targets: make(map[string]Target),
		frames:  make(map[string]Frame),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add starts redrawing t. A target with the same name is replaced.
func (s *Scheduler) Add(t Target) {
	s.mu.Lock()
	s.targets[t.Name()] = t
	s.mu.Unlock()
	s.Notify()
}

// Remove stops redrawing name and forgets its last frame.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.targets, name)
	delete(s.frames, name)
}

// Notify requests a redraw pass. It never blocks and may be called while a
// terminal lock is held.
func (s *Scheduler) Notify() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Run redraws until ctx ends.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.notify:
		}
		if err := s.limiter.Wait(ctx); err != nil {
			// the next token lies past the deadline
			<-ctx.Done()
			return ctx.Err()
		}
		s.Flush()
	}
}

// Flush redraws every changed target now and returns how many were drawn.
func (s *Scheduler) Flush() int {
	s.mu.RLock()
	targets := make([]Target, 0, len(s.targets))
	for _, t := range s.targets {
		targets = append(targets, t)
	}
	s.mu.RUnlock()
	sort.Slice(targets, func(i, j int) bool { return targets[i].Name() < targets[j].Name() })

	drawn := 0
	for _, t := range targets {
		term := t.Terminal()
		if term == nil || !term.Changed() {
			continue
		}
		// Clear before capturing so a concurrent write marks it dirty again.
		term.ClearChanged()
		frame := capture(t.Name(), term)

		s.mu.Lock()
		if _, ok := s.targets[frame.Name]; !ok {
			s.mu.Unlock()
			continue
		}
		s.seq++
		frame.Seq = s.seq
		s.frames[frame.Name] = frame
		s.mu.Unlock()

		drawn++
		if s.counter != nil {
			s.counter.IncRedraws()
		}
		if s.sink != nil {
			s.sink(frame)
		}
	}
	if drawn > 0 {
		s.logger.Debug("redraw", zap.Int("targets", drawn))
	}
	return drawn
}

// Frame returns the last frame captured for name.
func (s *Scheduler) Frame(name string) (Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.frames[name]
	return f, ok
}

func capture(name string, term *terminal.Terminal) Frame {
	snap := term.Serialize()
	f := Frame{
		Name:     name,
		CursorX:  snap.Int(terminal.KeyCursorX, 0),
		CursorY:  snap.Int(terminal.KeyCursorY, 0),
		Blink:    snap.Bool(terminal.KeyCursorBlink, false),
		Graphics: snap.Bool(terminal.KeyGraphicsMode, false),
		Palette:  snap[terminal.KeyPalette],
		At:       time.Now(),
	}
	for n := 0; ; n++ {
		text, ok := snap[terminal.TextKey(n)]
		if !ok {
			break
		}
		f.Text = append(f.Text, text)
		f.Fg = append(f.Fg, snap[terminal.TextColourKey(n)])
		f.Bg = append(f.Bg, snap[terminal.BackgroundColourKey(n)])
	}
	for m := 0; ; m++ {
		p, ok := snap[terminal.PixelKey(m)]
		if !ok {
			break
		}
		f.Pixels = append(f.Pixels, p)
	}
	f.Height = len(f.Text)
	if f.Height > 0 {
		f.Width = len([]rune(f.Text[0]))
	}
	return f
}
