package capability

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Recorder receives call telemetry.
type Recorder interface {
	RecordCall(capType, method, status string, duration time.Duration)
	RecordFault(kind string)
}

// Registry holds the named capabilities visible to scripts.
type Registry struct {
	caps     sync.Map
	logger   *zap.Logger
	recorder Recorder
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithRecorder sets the telemetry sink.
func WithRecorder(rec Recorder) Option {
	return func(r *Registry) {
		r.recorder = rec
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a capability under name.
func (r *Registry) Register(name string, c Capability) error {
	if name == "" {
		return fmt.Errorf("capability name cannot be empty")
	}
	if c == nil {
		return fmt.Errorf("capability %q is nil", name)
	}
	if _, loaded := r.caps.LoadOrStore(name, c); loaded {
		return fmt.Errorf("capability %q already registered", name)
	}
	r.logger.Debug("capability registered", zap.String("name", name), zap.String("type", c.Type()))
	return nil
}

// Unregister removes name and returns what was registered under it.
func (r *Registry) Unregister(name string) (Capability, bool) {
	val, ok := r.caps.LoadAndDelete(name)
	if !ok {
		return nil, false
	}
	return val.(Capability), true
}

// Get retrieves a capability by name.
func (r *Registry) Get(name string) (Capability, bool) {
	val, ok := r.caps.Load(name)
	if !ok {
		return nil, false
	}
	return val.(Capability), true
}

// Names returns registered names in sorted order.
func (r *Registry) Names() []string {
	var names []string
	r.caps.Range(func(key, _ any) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)
	return names
}

// Definitions describes every registered capability, sorted by name.
func (r *Registry) Definitions() []Definition {
	names := r.Names()
	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		c, ok := r.Get(name)
		if !ok {
			continue
		}
		defs = append(defs, Definition{Name: name, Type: c.Type(), Methods: c.MethodNames()})
	}
	return defs
}

// Call invokes method index method on the capability registered as name.
// Errors returned are always faults.
func (r *Registry) Call(ctx context.Context, computer Computer, name string, method int, args Arguments) ([]any, error) {
	c, ok := r.Get(name)
	if !ok {
		return nil, Statef("No such peripheral: %s", name)
	}

	methodName := "unknown"
	if names := c.MethodNames(); method >= 0 && method < len(names) {
		methodName = names[method]
	}

	start := time.Now()
	results, err := c.Call(ctx, computer, method, args)
	err = Classify(err)

	status := "ok"
	if err != nil {
		kind := KindOf(err)
		status = kind.String()
		r.logger.Debug("capability fault",
			zap.String("name", name),
			zap.String("method", methodName),
			zap.String("kind", status),
			zap.Error(err))
		if r.recorder != nil {
			r.recorder.RecordFault(status)
		}
	}
	if r.recorder != nil {
		r.recorder.RecordCall(c.Type(), methodName, status, time.Since(start))
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Invoke calls a method by name rather than index.
func (r *Registry) Invoke(ctx context.Context, computer Computer, name, method string, args Arguments) ([]any, error) {
	c, ok := r.Get(name)
	if !ok {
		return nil, Statef("No such peripheral: %s", name)
	}
	idx := indexOf(c.MethodNames(), method)
	if idx < 0 {
		return nil, Argumentf("No such method %s", method)
	}
	return r.Call(ctx, computer, name, idx, args)
}

// AttachAll tells every attachable capability that computer is using it.
func (r *Registry) AttachAll(computer Computer) {
	r.caps.Range(func(_, val any) bool {
		if a, ok := val.(Attachable); ok {
			a.Attach(computer)
		}
		return true
	})
}

// DetachAll reverses AttachAll. Safe to repeat.
func (r *Registry) DetachAll(computer Computer) {
	r.caps.Range(func(_, val any) bool {
		if a, ok := val.(Attachable); ok {
			a.Detach(computer)
		}
		return true
	})
}

// Stats returns registry statistics.
func (r *Registry) Stats() map[string]interface{} {
	var total, totalMethods int
	types := make(map[string]int)

	r.caps.Range(func(_, val any) bool {
		c := val.(Capability)
		total++
		totalMethods += len(c.MethodNames())
		types[c.Type()]++
		return true
	})

	return map[string]interface{}{
		"total_capabilities": total,
		"total_methods":      totalMethods,
		"types":              types,
	}
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
