package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/periphery/internal/capability"
	"github.com/GriffinCanCode/periphery/internal/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, capacity int64, maxOpen int) *Provider {
	t.Helper()
	romDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(romDir, "programs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(romDir, "programs", "ls.lua"), []byte("print()"), 0o644))

	rom, err := vfs.NewFileMount(romDir, 0)
	require.NoError(t, err)
	hdd, err := vfs.NewFileMount(t.TempDir(), capacity)
	require.NoError(t, err)

	table := vfs.NewFileSystem(maxOpen)
	require.NoError(t, table.MountWritable("hdd", "/", hdd))
	require.NoError(t, table.Mount("rom", "/rom", rom))
	return NewProvider(Static(table))
}

func call(t *testing.T, p *Provider, method string, args ...any) ([]any, error) {
	t.Helper()
	idx, ok := p.table.Index(method)
	require.True(t, ok, method)
	return p.Call(context.Background(), nil, idx, capability.Arguments(args))
}

func must(t *testing.T, p *Provider, method string, args ...any) []any {
	t.Helper()
	res, err := call(t, p, method, args...)
	require.NoError(t, err, method)
	return res
}

func TestMethodNames(t *testing.T) {
	p := NewProvider(Static(vfs.NewFileSystem(0)))
	assert.Equal(t, "fs", p.Type())
	assert.Equal(t, []string{
		"list", "exists", "isDir", "isReadOnly", "getSize", "getFreeSpace",
		"makeDir", "delete", "readAll", "write", "append", "find", "getDrive",
	}, p.MethodNames())
}

func TestReadWrite(t *testing.T) {
	p := setup(t, 0, 0)

	must(t, p, "write", "notes/todo.txt", "one")
	must(t, p, "append", "notes/todo.txt", " two")
	assert.Equal(t, []any{"one two"}, must(t, p, "readAll", "/notes/todo.txt"))
	assert.Equal(t, []any{int64(7)}, must(t, p, "getSize", "notes/todo.txt"))

	assert.Equal(t, []any{true}, must(t, p, "exists", "notes"))
	assert.Equal(t, []any{true}, must(t, p, "isDir", "notes"))
	assert.Equal(t, []any{false}, must(t, p, "isDir", "notes/todo.txt"))

	must(t, p, "delete", "notes")
	assert.Equal(t, []any{false}, must(t, p, "exists", "notes"))
}

func TestListIncludesMounts(t *testing.T) {
	p := setup(t, 0, 0)
	must(t, p, "makeDir", "home")
	assert.Equal(t, []any{[]any{"home", "rom"}}, must(t, p, "list", "/"))
	assert.Equal(t, []any{[]any{"ls.lua"}}, must(t, p, "list", "rom/programs"))

	_, err := call(t, p, "list", "missing")
	assert.ErrorIs(t, err, capability.ErrState)
	assert.EqualError(t, err, "/missing: No such file")
}

func TestReadOnlyMount(t *testing.T) {
	p := setup(t, 0, 0)
	assert.Equal(t, []any{true}, must(t, p, "isReadOnly", "rom/programs"))
	assert.Equal(t, []any{false}, must(t, p, "isReadOnly", "/"))
	assert.Equal(t, []any{"rom"}, must(t, p, "getDrive", "rom/programs/ls.lua"))
	assert.Equal(t, []any{"hdd"}, must(t, p, "getDrive", "/"))
	assert.Equal(t, []any{nil}, must(t, p, "getDrive", "nothing/here"))

	_, err := call(t, p, "write", "rom/x", "data")
	assert.ErrorIs(t, err, capability.ErrState)
	_, err = call(t, p, "delete", "rom")
	assert.ErrorIs(t, err, capability.ErrState)
	assert.Equal(t, []any{int64(0)}, must(t, p, "getFreeSpace", "rom"))
}

func TestCapacityFaults(t *testing.T) {
	p := setup(t, 1200, 0)
	must(t, p, "write", "a", "x")
	must(t, p, "write", "b", "x")

	_, err := call(t, p, "write", "c", "x")
	assert.ErrorIs(t, err, capability.ErrCapacity)
	assert.Contains(t, err.Error(), "Out of space")
	assert.Equal(t, []any{int64(200)}, must(t, p, "getFreeSpace", "/"))
}

func TestEscapeIsDenied(t *testing.T) {
	p := setup(t, 0, 0)
	_, err := call(t, p, "readAll", "../../etc/passwd")
	assert.ErrorIs(t, err, capability.ErrState)
	assert.Contains(t, err.Error(), "Access denied")
	assert.Equal(t, []any{false}, must(t, p, "exists", "../outside"))
}

func TestFind(t *testing.T) {
	p := setup(t, 0, 0)
	must(t, p, "write", "startup.lua", "")
	assert.Equal(t, []any{[]any{"rom/programs/ls.lua", "startup.lua"}}, must(t, p, "find", "**/*.lua"))

	_, err := call(t, p, "find", "[")
	assert.ErrorIs(t, err, capability.ErrArgument)
}

func TestArgumentFaults(t *testing.T) {
	p := setup(t, 0, 0)
	_, err := call(t, p, "readAll")
	assert.EqualError(t, err, "bad argument #1 (string expected, got no value)")
	_, err = call(t, p, "write", "x")
	assert.EqualError(t, err, "bad argument #2 (string expected, got no value)")
}

func TestUnresolvedComputer(t *testing.T) {
	p := NewProvider(FromComputer)
	_, err := call(t, p, "list", "/")
	assert.EqualError(t, err, "File system not initialized")
}
