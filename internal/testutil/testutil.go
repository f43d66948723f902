// Package testutil provides test doubles shared across package tests.
package testutil

import (
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockComputer is a testify mock of capability.Computer.
type MockComputer struct {
	mock.Mock
	Name string
}

// NewMockComputer creates a mock computer with the given id.
func NewMockComputer(id string) *MockComputer {
	return &MockComputer{Name: id}
}

// ID returns the configured id without recording a call.
func (m *MockComputer) ID() string {
	return m.Name
}

// QueueEvent mocks event delivery. Expectations list the event name
// followed by its arguments.
func (m *MockComputer) QueueEvent(name string, args ...any) {
	m.Called(append([]any{name}, args...)...)
}

// Event is one queued event captured by RecordingComputer.
type Event struct {
	Name string
	Args []any
}

// RecordingComputer stores every queued event for later inspection.
type RecordingComputer struct {
	Name string

	mu     sync.Mutex
	events []Event
}

// NewRecordingComputer creates a recorder with the given id.
func NewRecordingComputer(id string) *RecordingComputer {
	return &RecordingComputer{Name: id}
}

func (r *RecordingComputer) ID() string {
	return r.Name
}

func (r *RecordingComputer) QueueEvent(name string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Name: name, Args: args})
}

// Events returns a copy of the queued events.
func (r *RecordingComputer) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
