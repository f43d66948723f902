package capability

import "context"

// Computer is the script host a capability is attached to. Capabilities use
// it to deliver asynchronous events.
type Computer interface {
	ID() string
	QueueEvent(name string, args ...any)
}

// Capability is a host object callable from scripts by method index.
type Capability interface {
	// Type is the script-visible kind of the capability, e.g. "monitor".
	Type() string
	// MethodNames lists methods in call order. The order is part of the
	// script contract and must not change once published.
	MethodNames() []string
	// Call runs method index method with args.
	Call(ctx context.Context, computer Computer, method int, args Arguments) ([]any, error)
}

// Attachable capabilities are told when a computer starts or stops using
// them. Both calls must tolerate repeats.
type Attachable interface {
	Attach(computer Computer)
	Detach(computer Computer)
}

// Definition describes a registered capability.
type Definition struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Methods []string `json:"methods"`
}
