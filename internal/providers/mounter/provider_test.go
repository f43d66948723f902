package mounter

import (
	"context"
	"testing"

	"github.com/GriffinCanCode/periphery/internal/capability"
	"github.com/GriffinCanCode/periphery/internal/testutil"
	"github.com/GriffinCanCode/periphery/internal/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ownedComputer struct {
	*testutil.RecordingComputer
	reg *Registry
}

func (o ownedComputer) Mounts() *Registry { return o.reg }

func call(t *testing.T, p *Provider, comp capability.Computer, method string, args ...any) ([]any, error) {
	t.Helper()
	idx, ok := p.table.Index(method)
	require.True(t, ok)
	return p.Call(context.Background(), comp, idx, capability.Arguments(args))
}

func TestProviderMethods(t *testing.T) {
	reg, _ := newRegistry(t)
	p := NewProvider(Static(reg), WithExposeHostPaths(true))
	assert.Equal(t, "mounter", p.Type())
	assert.Equal(t, []string{"mount", "unmount", "list", "isReadOnly"}, p.MethodNames())
}

func TestProviderMountFlow(t *testing.T) {
	reg, _ := newRegistry(t)
	p := NewProvider(Static(reg), WithExposeHostPaths(true))
	comp := testutil.NewRecordingComputer("c")
	dir := hostDir(t)

	_, err := call(t, p, comp, "mount", "disk", dir, false)
	require.NoError(t, err)

	res, err := call(t, p, comp, "isReadOnly", "disk")
	require.NoError(t, err)
	assert.Equal(t, []any{true}, res)

	res, err = call(t, p, comp, "list")
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"disk": dir}}, res)

	_, err = call(t, p, comp, "mount", "disk", dir)
	assert.ErrorIs(t, err, capability.ErrState)
	assert.EqualError(t, err, "Mount disk already exists")

	_, err = call(t, p, comp, "unmount", "disk")
	require.NoError(t, err)

	res, err = call(t, p, comp, "list")
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{}}, res)

	res, err = call(t, p, comp, "isReadOnly", "disk")
	require.NoError(t, err)
	assert.Equal(t, []any{nil}, res)
}

func TestProviderWritableDefault(t *testing.T) {
	reg, _ := newRegistry(t)
	p := NewProvider(Static(reg))
	_, err := call(t, p, nil, "mount", "rw", hostDir(t))
	require.NoError(t, err)
	res, err := call(t, p, nil, "isReadOnly", "rw")
	require.NoError(t, err)
	assert.Equal(t, []any{false}, res)
}

func TestProviderArgumentFaults(t *testing.T) {
	reg, _ := newRegistry(t)
	p := NewProvider(Static(reg))

	_, err := call(t, p, nil, "mount", "only")
	assert.EqualError(t, err, "Expected at least 2 arguments, got 1")
	assert.ErrorIs(t, err, capability.ErrArgument)

	_, err = call(t, p, nil, "mount", 1, "/tmp")
	assert.EqualError(t, err, "bad argument #1 (string expected, got number)")

	_, err = call(t, p, nil, "mount", "x", "/tmp", "yes")
	assert.EqualError(t, err, "bad argument #3 (boolean expected, got string)")

	_, err = call(t, p, nil, "mount", "../x", "/tmp")
	assert.ErrorIs(t, err, capability.ErrArgument)

	_, err = call(t, p, nil, "unmount")
	assert.EqualError(t, err, "Expected 1 argument, got 0")

	_, err = call(t, p, nil, "unmount", "ghost")
	assert.EqualError(t, err, "Could not find mount ghost")
	assert.ErrorIs(t, err, capability.ErrState)

	_, err = call(t, p, nil, "mount", "gone", "/definitely/not/here", false)
	assert.ErrorIs(t, err, capability.ErrState)
	assert.Contains(t, err.Error(), "Could not mount drive:")
	assert.Zero(t, reg.Len())
}

func TestProviderHidesHostPaths(t *testing.T) {
	reg, _ := newRegistry(t)
	p := NewProvider(Static(reg))
	_, err := call(t, p, nil, "mount", "disk", hostDir(t))
	require.NoError(t, err)

	res, err := call(t, p, nil, "list")
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"disk": "/disk"}}, res)
}

func TestProviderPerComputerRegistry(t *testing.T) {
	p := NewProvider(FromComputer, WithExposeHostPaths(true))
	regA := NewRegistry(vfs.NewFileSystem(0), vfs.DirOpener{})
	regB := NewRegistry(vfs.NewFileSystem(0), vfs.DirOpener{})
	a := ownedComputer{testutil.NewRecordingComputer("a"), regA}
	b := ownedComputer{testutil.NewRecordingComputer("b"), regB}

	_, err := call(t, p, a, "mount", "disk", hostDir(t))
	require.NoError(t, err)
	assert.Equal(t, 1, regA.Len())
	assert.Zero(t, regB.Len())

	_, err = call(t, p, b, "unmount", "disk")
	assert.ErrorIs(t, err, capability.ErrState)

	_, err = call(t, p, testutil.NewRecordingComputer("bare"), "list")
	assert.EqualError(t, err, "File system not initialized")
}
