package lua

import (
	"context"
	"errors"
	"strings"

	"github.com/GriffinCanCode/periphery/internal/capability"
	"github.com/GriffinCanCode/periphery/internal/script"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// DefaultCallStackSize bounds recursion depth inside a script.
const DefaultCallStackSize = 256

// Runner executes Lua scripts. It is stateless between runs and safe for
// concurrent use; every Run owns its own Lua state.
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

// NewRunner creates a Lua runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{logger: zap.NewNop(), callStackSize: DefaultCallStackSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes source and returns the values the chunk returns.
func (r *Runner) Run(ctx context.Context, env script.Env, source string) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: r.callStackSize,
	})
	defer L.Close()

	openSafeLibraries(L)
	newBinding(ctx, env).install(L)
	L.SetContext(ctx)

	fn, err := L.LoadString(source)
	if err != nil {
		return nil, &script.Error{Language: script.Lua, Message: err.Error()}
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Debug("lua script failed", zap.Error(err))
		return nil, &script.Error{Language: script.Lua, Message: errorMessage(err)}
	}

	top := L.GetTop()
	results := make([]any, 0, top)
	for i := 1; i <= top; i++ {
		results = append(results, toGo(L.Get(i)))
	}
	return results, nil
}

// openSafeLibraries opens base, table, string and math, then strips the
// functions that reach the host filesystem or module loader.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	// the openers leave their module tables on the stack
	L.SetTop(0)
}

func errorMessage(err error) string {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		return apiErr.Object.String()
	}
	return err.Error()
}

// binding publishes the registries into one Lua state.
type binding struct {
	ctx         context.Context
	env         script.Env
	peripherals *capability.Registry
	apis        *capability.Registry
}

func newBinding(ctx context.Context, env script.Env) *binding {
	p, a := env.Registries()
	return &binding{ctx: ctx, env: env, peripherals: p, apis: a}
}

func (b *binding) install(L *lua.LState) {
	L.SetGlobal("print", L.NewFunction(b.print))

	peripheral := L.NewTable()
	L.SetFuncs(peripheral, map[string]lua.LGFunction{
		"getNames":   b.getNames,
		"isPresent":  b.isPresent,
		"getType":    b.getType,
		"getMethods": b.getMethods,
		"call":       b.call,
		"wrap":       b.wrap,
	})
	L.SetGlobal("peripheral", peripheral)

	for _, name := range b.apis.Names() {
		if c, ok := b.apis.Get(name); ok {
			L.SetGlobal(name, b.methodTable(L, b.apis, name, c))
		}
	}
}

// methodTable builds a table whose fields call each method of c by index.
func (b *binding) methodTable(L *lua.LState, reg *capability.Registry, name string, c capability.Capability) *lua.LTable {
	names := c.MethodNames()
	t := L.CreateTable(0, len(names))
	for i, method := range names {
		idx := i
		t.RawSetString(method, L.NewFunction(func(L *lua.LState) int {
			return b.dispatch(L, reg, name, idx, 1)
		}))
	}
	return t
}

// dispatch calls method index method with stack values from first onward
// and pushes the results.
func (b *binding) dispatch(L *lua.LState, reg *capability.Registry, name string, method, first int) int {
	results, err := reg.Call(b.ctx, b.env.Computer, name, method, collect(L, first))
	if err != nil {
		L.Error(lua.LString(err.Error()), 0)
		return 0
	}
	for _, v := range results {
		L.Push(toLua(L, v))
	}
	return len(results)
}

func collect(L *lua.LState, first int) capability.Arguments {
	top := L.GetTop()
	if top < first {
		return capability.Arguments{}
	}
	args := make(capability.Arguments, 0, top-first+1)
	for i := first; i <= top; i++ {
		args = append(args, toGo(L.Get(i)))
	}
	return args
}

func (b *binding) print(L *lua.LState) int {
	top := L.GetTop()
	parts := make([]string, top)
	for i := 1; i <= top; i++ {
		parts[i-1] = L.ToStringMeta(L.Get(i)).String()
	}
	_, _ = b.env.Writer().Write([]byte(strings.Join(parts, "\t") + "\n"))
	return 0
}

func (b *binding) getNames(L *lua.LState) int {
	L.Push(toLua(L, b.peripherals.Names()))
	return 1
}

func (b *binding) isPresent(L *lua.LState) int {
	_, ok := b.peripherals.Get(L.CheckString(1))
	L.Push(lua.LBool(ok))
	return 1
}

func (b *binding) getType(L *lua.LState) int {
	c, ok := b.peripherals.Get(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(c.Type()))
	return 1
}

func (b *binding) getMethods(L *lua.LState) int {
	c, ok := b.peripherals.Get(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(toLua(L, c.MethodNames()))
	return 1
}

func (b *binding) call(L *lua.LState) int {
	name := L.CheckString(1)
	method := L.CheckString(2)
	c, ok := b.peripherals.Get(name)
	if !ok {
		L.Error(lua.LString(capability.Statef("No such peripheral: %s", name).Error()), 0)
		return 0
	}
	for i, m := range c.MethodNames() {
		if m == method {
			return b.dispatch(L, b.peripherals, name, i, 3)
		}
	}
	L.Error(lua.LString(capability.Argumentf("No such method %s", method).Error()), 0)
	return 0
}

func (b *binding) wrap(L *lua.LState) int {
	name := L.CheckString(1)
	c, ok := b.peripherals.Get(name)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(b.methodTable(L, b.peripherals, name, c))
	return 1
}
