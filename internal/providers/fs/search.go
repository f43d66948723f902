package fs

import (
	"context"
	"errors"

	"github.com/GriffinCanCode/periphery/internal/capability"
	"github.com/bmatcuk/doublestar/v4"
)

func (p *Provider) find(_ context.Context, computer capability.Computer, args capability.Arguments) ([]any, error) {
	fs, pattern, err := p.target(computer, args)
	if err != nil {
		return nil, err
	}
	matches, err := fs.Find(pattern)
	if errors.Is(err, doublestar.ErrBadPattern) {
		return nil, capability.Argumentf("bad argument #1 (invalid pattern %q)", pattern)
	}
	if err != nil {
		return nil, capability.Classify(err)
	}
	return capability.Results(toList(matches)), nil
}
