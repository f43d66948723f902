package fs

import (
	"context"

	"github.com/GriffinCanCode/periphery/internal/capability"
	"github.com/GriffinCanCode/periphery/internal/vfs"
)

// Name is the global the API is published under.
const Name = "fs"

// Owner is implemented by computers that carry their own mount table.
type Owner interface {
	FileSystem() *vfs.FileSystem
}

// Resolver finds the mount table serving a computer.
type Resolver func(computer capability.Computer) (*vfs.FileSystem, error)

// Static serves every computer from fs.
func Static(fs *vfs.FileSystem) Resolver {
	return func(capability.Computer) (*vfs.FileSystem, error) {
		return fs, nil
	}
}

// FromComputer serves each computer from its own mount table.
func FromComputer(computer capability.Computer) (*vfs.FileSystem, error) {
	if o, ok := computer.(Owner); ok && o.FileSystem() != nil {
		return o.FileSystem(), nil
	}
	return nil, capability.Statef("File system not initialized")
}

// Provider is the "fs" capability.
type Provider struct {
	resolve Resolver
	table   capability.Table
}

var _ capability.Capability = (*Provider)(nil)

// NewProvider creates the capability.
func NewProvider(resolve Resolver) *Provider {
	p := &Provider{resolve: resolve}
	p.table = capability.Table{
		{Name: "list", Handler: p.list},
		{Name: "exists", Handler: p.exists},
		{Name: "isDir", Handler: p.isDir},
		{Name: "isReadOnly", Handler: p.isReadOnly},
		{Name: "getSize", Handler: p.getSize},
		{Name: "getFreeSpace", Handler: p.getFreeSpace},
		{Name: "makeDir", Handler: p.makeDir},
		{Name: "delete", Handler: p.delete},
		{Name: "readAll", Handler: p.readAll},
		{Name: "write", Handler: p.write},
		{Name: "append", Handler: p.append},
		{Name: "find", Handler: p.find},
		{Name: "getDrive", Handler: p.getDrive},
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

// target coerces the path argument and resolves the mount table.
func (p *Provider) target(computer capability.Computer, args capability.Arguments) (*vfs.FileSystem, string, error) {
	path, err := args.String(0)
	if err != nil {
		return nil, "", err
	}
	fs, err := p.resolve(computer)
	if err != nil {
		return nil, "", err
	}
	return fs, path, nil
}

func toList(names []string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}
