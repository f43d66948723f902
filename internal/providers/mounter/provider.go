package mounter

import (
	"context"
	"errors"

	"github.com/GriffinCanCode/periphery/internal/capability"
)

// Name is the global the API is published under.
const Name = "mounter"

// Owner is implemented by computers that carry their own mount registry.
type Owner interface {
	Mounts() *Registry
}

// Resolver finds the registry serving a computer.
type Resolver func(computer capability.Computer) (*Registry, error)

// Static serves every computer from reg.
func Static(reg *Registry) Resolver {
	return func(capability.Computer) (*Registry, error) {
		return reg, nil
	}
}

// FromComputer serves each computer from its own registry.
func FromComputer(computer capability.Computer) (*Registry, error) {
	if o, ok := computer.(Owner); ok && o.Mounts() != nil {
		return o.Mounts(), nil
	}
	return nil, capability.Statef("File system not initialized")
}

// Provider is the "mounter" capability.
type Provider struct {
	resolve         Resolver
	exposeHostPaths bool
	table           capability.Table
}

var _ capability.Capability = (*Provider)(nil)

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithExposeHostPaths controls whether list() reveals host paths. When off,
// names map to their sandbox locations instead.
func WithExposeHostPaths(expose bool) ProviderOption {
	return func(p *Provider) {
		p.exposeHostPaths = expose
	}
}

// NewProvider creates the capability.
func NewProvider(resolve Resolver, opts ...ProviderOption) *Provider {
	p := &Provider{resolve: resolve}
	for _, opt := range opts {
		opt(p)
	}
	p.table = capability.Table{
		{Name: "mount", Handler: p.mount},
		{Name: "unmount", Handler: p.unmount},
		{Name: "list", Handler: p.list},
		{Name: "isReadOnly", Handler: p.isReadOnly},
	}
	return p
}

func (p *Provider) Type() string {
	return Name
}

func (p *Provider) MethodNames() []string {
	return p.table.Names()
}

func (p *Provider) Call(ctx context.Context, computer capability.Computer, method int, args capability.Arguments) ([]any, error) {
	return p.table.Dispatch(ctx, computer, method, args)
}

func (p *Provider) mount(_ context.Context, computer capability.Computer, args capability.Arguments) ([]any, error) {
	if args.Len() < 2 {
		return nil, capability.Argumentf("Expected at least 2 arguments, got %d", args.Len())
	}
	name, err := args.String(0)
	if err != nil {
		return nil, err
	}
	hostPath, err := args.String(1)
	if err != nil {
		return nil, err
	}
	writable, err := args.OptBool(2, true)
	if err != nil {
		return nil, err
	}
	reg, err := p.resolve(computer)
	if err != nil {
		return nil, err
	}

	if err := reg.Mount(name, hostPath, writable); err != nil {
		switch {
		case errors.Is(err, ErrInvalidName):
			return nil, capability.Argumentf("Invalid mount name %q", name)
		case errors.Is(err, ErrAlreadyMounted):
			return nil, capability.Statef("Mount %s already exists", name)
		case writable:
			return nil, capability.Statef("Could not mount drive read-write: %s", err)
		default:
			return nil, capability.Statef("Could not mount drive: %s", err)
		}
	}
	return nil, nil
}

func (p *Provider) unmount(_ context.Context, computer capability.Computer, args capability.Arguments) ([]any, error) {
	if args.Len() != 1 {
		return nil, capability.Argumentf("Expected 1 argument, got %d", args.Len())
	}
	name, err := args.String(0)
	if err != nil {
		return nil, err
	}
	reg, err := p.resolve(computer)
	if err != nil {
		return nil, err
	}
	if err := reg.Unmount(name); err != nil {
		return nil, capability.Statef("Could not find mount %s", name)
	}
	return nil, nil
}

func (p *Provider) list(_ context.Context, computer capability.Computer, _ capability.Arguments) ([]any, error) {
	reg, err := p.resolve(computer)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	for _, e := range reg.Entries() {
		if p.exposeHostPaths {
			out[e.Name] = e.HostPath
		} else {
			out[e.Name] = e.Location()
		}
	}
	return capability.Results(out), nil
}

func (p *Provider) isReadOnly(_ context.Context, computer capability.Computer, args capability.Arguments) ([]any, error) {
	name, err := args.String(0)
	if err != nil {
		return nil, err
	}
	reg, err := p.resolve(computer)
	if err != nil {
		return nil, err
	}
	ro, ok := reg.IsReadOnly(name)
	if !ok {
		return capability.Results(nil), nil
	}
	return capability.Results(ro), nil
}
