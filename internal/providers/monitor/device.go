package monitor

import (
	"sync"

	"github.com/GriffinCanCode/periphery/internal/capability"
	"github.com/GriffinCanCode/periphery/internal/terminal"
)

// Text scale bounds, in half units.
const (
	MinTextScale     = 1
	MaxTextScale     = 10
	DefaultTextScale = 2
)

// Event names delivered to attached computers.
const (
	EventResize = "monitor_resize"
	EventTouch  = "monitor_touch"
)

// Monitor is a display device. It is safe for concurrent use.
type Monitor struct {
	name      string
	colour    bool
	onChanged func()

	mu        sync.Mutex
	term      *terminal.Terminal
	textScale int
	computers map[string]capability.Computer
}

// New creates a monitor with an attached terminal. onChanged is passed to
// the terminal and may be nil.
func New(name string, width, height int, colour bool, onChanged func()) *Monitor {
	return &Monitor{
		name:      name,
		colour:    colour,
		onChanged: onChanged,
		term:      terminal.New(width, height, onChanged),
		textScale: DefaultTextScale,
		computers: make(map[string]capability.Computer),
	}
}

// Name returns the peripheral name the monitor is registered under.
func (m *Monitor) Name() string {
	return m.name
}

// IsColour reports whether the device can show colours other than black
// and white.
func (m *Monitor) IsColour() bool {
	return m.colour
}

// Terminal returns the current terminal, or nil when detached.
func (m *Monitor) Terminal() *terminal.Terminal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.term
}

// DetachTerminal drops the terminal. Calls in flight keep the reference
// they already resolved.
func (m *Monitor) DetachTerminal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.term = nil
}

// AttachTerminal creates a fresh terminal if none is attached.
func (m *Monitor) AttachTerminal(width, height int) *terminal.Terminal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.term == nil {
		m.term = terminal.New(width, height, m.onChanged)
	}
	return m.term
}

// TextScale returns the scale in half units.
func (m *Monitor) TextScale() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.textScale
}

// SetTextScale stores a scale in half units. Callers validate the range.
func (m *Monitor) SetTextScale(scale int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textScale = scale
}

// AddComputer registers interest from computer. Repeats are ignored.
func (m *Monitor) AddComputer(computer capability.Computer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.computers[computer.ID()] = computer
}

// RemoveComputer drops computer. Unknown computers are ignored.
func (m *Monitor) RemoveComputer(computer capability.Computer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.computers, computer.ID())
}

// Computers returns the number of attached computers.
func (m *Monitor) Computers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.computers)
}

// Resize changes the terminal size and notifies attached computers.
func (m *Monitor) Resize(width, height int) {
	term := m.Terminal()
	if term == nil {
		return
	}
	width, height = terminal.ClampSize(width, height)
	if w, h := term.Size(); w == width && h == height {
		return
	}
	term.Resize(width, height)
	m.queue(EventResize, m.name)
}

// Touch reports a touch at the one-based cell (x, y).
func (m *Monitor) Touch(x, y int) {
	m.queue(EventTouch, m.name, x, y)
}

// queue delivers an event outside the device lock.
func (m *Monitor) queue(event string, args ...any) {
	m.mu.Lock()
	targets := make([]capability.Computer, 0, len(m.computers))
	for _, c := range m.computers {
		targets = append(targets, c)
	}
	m.mu.Unlock()

	for _, c := range targets {
		c.QueueEvent(event, args...)
	}
}
