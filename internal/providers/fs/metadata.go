package fs

import (
	"context"

	"github.com/GriffinCanCode/periphery/internal/capability"
)

func (p *Provider) isReadOnly(_ context.Context, computer capability.Computer, args capability.Arguments) ([]any, error) {
	fs, path, err := p.target(computer, args)
	if err != nil {
		return nil, err
	}
	ro, err := fs.IsReadOnly(path)
	if err != nil {
		return nil, capability.Classify(err)
	}
	return capability.Results(ro), nil
}

func (p *Provider) getSize(_ context.Context, computer capability.Computer, args capability.Arguments) ([]any, error) {
	fs, path, err := p.target(computer, args)
	if err != nil {
		return nil, err
	}
	size, err := fs.Size(path)
	if err != nil {
		return nil, capability.Classify(err)
	}
	return capability.Results(size), nil
}

func (p *Provider) getFreeSpace(_ context.Context, computer capability.Computer, args capability.Arguments) ([]any, error) {
	fs, path, err := p.target(computer, args)
	if err != nil {
		return nil, err
	}
	free, err := fs.FreeSpace(path)
	if err != nil {
		return nil, capability.Classify(err)
	}
	return capability.Results(free), nil
}

// getDrive returns nil for paths outside every mount.
func (p *Provider) getDrive(_ context.Context, computer capability.Computer, args capability.Arguments) ([]any, error) {
	fs, path, err := p.target(computer, args)
	if err != nil {
		return nil, err
	}
	if ok, _ := fs.Exists(path); !ok {
		return capability.Results(nil), nil
	}
	label, err := fs.Drive(path)
	if err != nil {
		return capability.Results(nil), nil
	}
	return capability.Results(label), nil
}
