package fs

import (
	"context"

	"github.com/GriffinCanCode/periphery/internal/capability"
)

func (p *Provider) readAll(_ context.Context, computer capability.Computer, args capability.Arguments) ([]any, error) {
	fs, path, err := p.target(computer, args)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadAll(path)
	if err != nil {
		return nil, capability.Classify(err)
	}
	return capability.Results(string(data)), nil
}

func (p *Provider) write(_ context.Context, computer capability.Computer, args capability.Arguments) ([]any, error) {
	return p.store(computer, args, false)
}

func (p *Provider) append(_ context.Context, computer capability.Computer, args capability.Arguments) ([]any, error) {
	return p.store(computer, args, true)
}

func (p *Provider) store(computer capability.Computer, args capability.Arguments, appendMode bool) ([]any, error) {
	data, err := args.String(1)
	if err != nil {
		return nil, err
	}
	fs, path, err := p.target(computer, args)
	if err != nil {
		return nil, err
	}
	if err := fs.Write(path, []byte(data), appendMode); err != nil {
		return nil, capability.Classify(err)
	}
	return nil, nil
}
