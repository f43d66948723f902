package js

import (
	"context"
	"errors"
	"strings"

	"github.com/GriffinCanCode/periphery/internal/capability"
	"github.com/GriffinCanCode/periphery/internal/script"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// DefaultCallStackSize bounds recursion depth inside a script.
const DefaultCallStackSize = 1024

// Runner executes JavaScript. Every Run gets a fresh VM.
type Runner struct {
	logger        *zap.Logger
	callStackSize int
}

var _ script.Runner = (*Runner)(nil)

// Option configures a Runner.
type Option func(*Runner)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithCallStackSize(n int) Option {
	return func(r *Runner) {
		r.callStackSize = n
	}
}

// NewRunner creates a JavaScript runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{logger: zap.NewNop(), callStackSize: DefaultCallStackSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes source. The completion value of the script, when defined, is
// the single result.
func (r *Runner) Run(ctx context.Context, env script.Env, source string) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vm := goja.New()
	vm.SetMaxCallStackSize(r.callStackSize)
	newBinding(ctx, vm, env).install()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := vm.RunString(source)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Debug("js script failed", zap.Error(err))
		return nil, &script.Error{Language: script.JS, Message: errorMessage(err)}
	}
	if val == nil || goja.IsUndefined(val) {
		return []any{}, nil
	}
	return []any{val.Export()}, nil
}

func errorMessage(err error) string {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		if obj, ok := ex.Value().(*goja.Object); ok {
			if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
				return msg.String()
			}
		}
		return ex.Value().String()
	}
	return err.Error()
}

type binding struct {
	ctx         context.Context
	vm          *goja.Runtime
	env         script.Env
	peripherals *capability.Registry
	apis        *capability.Registry
}

func newBinding(ctx context.Context, vm *goja.Runtime, env script.Env) *binding {
	p, a := env.Registries()
	return &binding{ctx: ctx, vm: vm, env: env, peripherals: p, apis: a}
}

func (b *binding) install() {
	_ = b.vm.Set("print", b.print)
	console := b.vm.NewObject()
	_ = console.Set("log", b.print)
	_ = b.vm.Set("console", console)

	peripheral := b.vm.NewObject()
	_ = peripheral.Set("getNames", b.getNames)
	_ = peripheral.Set("isPresent", b.isPresent)
	_ = peripheral.Set("getType", b.getType)
	_ = peripheral.Set("getMethods", b.getMethods)
	_ = peripheral.Set("call", b.call)
	_ = peripheral.Set("wrap", b.wrap)
	_ = b.vm.Set("peripheral", peripheral)

	for _, name := range b.apis.Names() {
		if c, ok := b.apis.Get(name); ok {
			_ = b.vm.Set(name, b.methodObject(b.apis, name, c))
		}
	}
}

// throw raises err as a catchable JavaScript error.
func (b *binding) throw(err error) {
	panic(b.vm.NewGoError(err))
}

func (b *binding) methodObject(reg *capability.Registry, name string, c capability.Capability) *goja.Object {
	obj := b.vm.NewObject()
	for i, method := range c.MethodNames() {
		idx := i
		_ = obj.Set(method, func(call goja.FunctionCall) goja.Value {
			return b.dispatch(reg, name, idx, exportAll(call.Arguments))
		})
	}
	return obj
}

func (b *binding) dispatch(reg *capability.Registry, name string, method int, args capability.Arguments) goja.Value {
	return b.result(reg.Call(b.ctx, b.env.Computer, name, method, args))
}

// result maps call results to one value: undefined, the value itself, or an
// array when there are several.
func (b *binding) result(results []any, err error) goja.Value {
	if err != nil {
		b.throw(err)
	}
	switch len(results) {
	case 0:
		return goja.Undefined()
	case 1:
		return b.vm.ToValue(results[0])
	}
	return b.vm.ToValue(results)
}

func exportAll(values []goja.Value) capability.Arguments {
	args := make(capability.Arguments, len(values))
	for i, v := range values {
		if v != nil {
			args[i] = v.Export()
		}
	}
	return args
}

// name coerces argument i of a peripheral lookup to a string.
func (b *binding) name(call goja.FunctionCall, i int) string {
	s, err := exportAll(call.Arguments).String(i)
	if err != nil {
		b.throw(err)
	}
	return s
}

func (b *binding) print(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, arg := range call.Arguments {
		parts[i] = arg.String()
	}
	_, _ = b.env.Writer().Write([]byte(strings.Join(parts, " ") + "\n"))
	return goja.Undefined()
}

func (b *binding) getNames(goja.FunctionCall) goja.Value {
	names := b.peripherals.Names()
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return b.vm.ToValue(out)
}

func (b *binding) isPresent(call goja.FunctionCall) goja.Value {
	_, ok := b.peripherals.Get(b.name(call, 0))
	return b.vm.ToValue(ok)
}

func (b *binding) getType(call goja.FunctionCall) goja.Value {
	c, ok := b.peripherals.Get(b.name(call, 0))
	if !ok {
		return goja.Null()
	}
	return b.vm.ToValue(c.Type())
}

func (b *binding) getMethods(call goja.FunctionCall) goja.Value {
	c, ok := b.peripherals.Get(b.name(call, 0))
	if !ok {
		return goja.Null()
	}
	methods := c.MethodNames()
	out := make([]any, len(methods))
	for i, m := range methods {
		out[i] = m
	}
	return b.vm.ToValue(out)
}

func (b *binding) call(call goja.FunctionCall) goja.Value {
	args := exportAll(call.Arguments)
	name, err := args.String(0)
	if err != nil {
		b.throw(err)
	}
	method, err := args.String(1)
	if err != nil {
		b.throw(err)
	}
	rest := capability.Arguments{}
	if len(args) > 2 {
		rest = args[2:]
	}
	return b.result(b.peripherals.Invoke(b.ctx, b.env.Computer, name, method, rest))
}

func (b *binding) wrap(call goja.FunctionCall) goja.Value {
	name := b.name(call, 0)
	c, ok := b.peripherals.Get(name)
	if !ok {
		return goja.Null()
	}
	return b.methodObject(b.peripherals, name, c)
}
