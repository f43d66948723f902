package capability

import (
	"context"
	"errors"
	"fmt"

	"github.com/GriffinCanCode/periphery/internal/vfs"
)

// Kind classifies a fault.
type Kind int

const (
	KindArgument Kind = iota + 1
	KindState
	KindCapacity
)

func (k Kind) String() string {
	switch k {
	case KindArgument:
		return "argument"
	case KindState:
		return "state"
	case KindCapacity:
		return "capacity"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching on fault kind.
var (
	ErrArgument = errors.New("argument fault")
	ErrState    = errors.New("state fault")
	ErrCapacity = errors.New("capacity fault")
)

// Fault is an error surfaced to the calling script. Message is shown to the
// script verbatim.
type Fault struct {
	Kind    Kind
	Message string
	Err     error
}

func (f *Fault) Error() string {
	return f.Message
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Is matches the kind sentinels.
func (f *Fault) Is(target error) bool {
	switch target {
	case ErrArgument:
		return f.Kind == KindArgument
	case ErrState:
		return f.Kind == KindState
	case ErrCapacity:
		return f.Kind == KindCapacity
	}
	return false
}

// Argumentf builds an argument fault.
func Argumentf(format string, args ...any) *Fault {
	return &Fault{Kind: KindArgument, Message: fmt.Sprintf(format, args...)}
}

// Statef builds a state fault.
func Statef(format string, args ...any) *Fault {
	return &Fault{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

// Capacityf builds a capacity fault.
func Capacityf(format string, args ...any) *Fault {
	return &Fault{Kind: KindCapacity, Message: fmt.Sprintf(format, args...)}
}

// BadArgument reports that argument index i (zero-based) had the wrong type.
func BadArgument(i int, expected string, got any) *Fault {
	return Argumentf("bad argument #%d (%s expected, got %s)", i+1, expected, TypeName(got))
}

// KindOf returns the fault kind carried by err, or 0 if err is not a fault.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return 0
}

// Classify converts err into a Fault. Faults pass through; filesystem
// exhaustion becomes a capacity fault with its message intact; anything else
// is a state fault.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	switch {
	case errors.Is(err, vfs.ErrOutOfSpace), errors.Is(err, vfs.ErrTooManyFiles):
		return &Fault{Kind: KindCapacity, Message: err.Error(), Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Fault{Kind: KindState, Message: "Terminated", Err: err}
	}
	return &Fault{Kind: KindState, Message: err.Error(), Err: err}
}
