// Package script defines what the language bindings share: the environment a
// script runs in, the runner contract, and script-level errors.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/GriffinCanCode/periphery/internal/capability"
)

// Language names a script binding.
type Language string

const (
	Lua Language = "lua"
	JS  Language = "js"
)

// ErrUnsupportedLanguage is returned for a language with no binding.
var ErrUnsupportedLanguage = errors.New("unsupported script language")

// ParseLanguage maps user input to a Language. Empty input yields def.
func ParseLanguage(s string, def Language) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case "lua":
		return Lua, nil
	case "js", "javascript":
		return JS, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnsupportedLanguage, s)
}

// Env is everything a running script can reach. Peripherals back the
// "peripheral" global; each capability in APIs becomes a global table of the
// same name.
type Env struct {
	Computer    capability.Computer
	Peripherals *capability.Registry
	APIs        *capability.Registry
	Output      io.Writer
}

// Runner executes source in env and returns the script's result values.
// Cancelling ctx stops the script and Run returns ctx.Err().
type Runner interface {
	Run(ctx context.Context, env Env, source string) ([]any, error)
}

// Error reports a script that failed to compile or raised an uncaught error.
type Error struct {
	Language Language
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Language, e.Message)
}

// Writer returns env.Output, or io.Discard when unset.
func (e Env) Writer() io.Writer {
	if e.Output == nil {
		return io.Discard
	}
	return e.Output
}

// Registries returns the peripheral and API registries, substituting empty
// ones for nil.
func (e Env) Registries() (*capability.Registry, *capability.Registry) {
	p, a := e.Peripherals, e.APIs
	if p == nil {
		p = capability.NewRegistry()
	}
	if a == nil {
		a = capability.NewRegistry()
	}
	return p, a
}
