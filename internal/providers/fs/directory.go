package fs

import (
	"context"

	"github.com/GriffinCanCode/periphery/internal/capability"
)

func (p *Provider) list(_ context.Context, computer capability.Computer, args capability.Arguments) ([]any, error) {
	fs, path, err := p.target(computer, args)
	if err != nil {
		return nil, err
	}
	names, err := fs.List(path)
	if err != nil {
		return nil, capability.Classify(err)
	}
	return capability.Results(toList(names)), nil
}

// exists reports false for unreachable paths rather than faulting.
func (p *Provider) exists(_ context.Context, computer capability.Computer, args capability.Arguments) ([]any, error) {
	fs, path, err := p.target(computer, args)
	if err != nil {
		return nil, err
	}
	ok, err := fs.Exists(path)
	return capability.Results(err == nil && ok), nil
}

func (p *Provider) isDir(_ context.Context, computer capability.Computer, args capability.Arguments) ([]any, error) {
	fs, path, err := p.target(computer, args)
	if err != nil {
		return nil, err
	}
	ok, err := fs.IsDir(path)
	return capability.Results(err == nil && ok), nil
}

func (p *Provider) makeDir(_ context.Context, computer capability.Computer, args capability.Arguments) ([]any, error) {
	fs, path, err := p.target(computer, args)
	if err != nil {
		return nil, err
	}
	if err := fs.MakeDir(path); err != nil {
		return nil, capability.Classify(err)
	}
	return nil, nil
}

func (p *Provider) delete(_ context.Context, computer capability.Computer, args capability.Arguments) ([]any, error) {
	fs, path, err := p.target(computer, args)
	if err != nil {
		return nil, err
	}
	if err := fs.Delete(path); err != nil {
		return nil, capability.Classify(err)
	}
	return nil, nil
}
