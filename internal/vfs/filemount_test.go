package vfs

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHostFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func TestNewFileMountRequiresDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	writeHostFile(t, file, 1)

	_, err := NewFileMount(file, 0)
	assert.ErrorIs(t, err, ErrNotDir)

	_, err = NewFileMount(filepath.Join(dir, "missing"), 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileMountMeasuresExistingContent(t *testing.T) {
	dir := t.TempDir()
	writeHostFile(t, filepath.Join(dir, "small"), 10)
	writeHostFile(t, filepath.Join(dir, "sub", "big"), 2000)

	m, err := NewFileMount(dir, 10000)
	require.NoError(t, err)
	// small (500) + sub (500) + big (2000)
	assert.Equal(t, int64(3000), m.Used())
	assert.Equal(t, int64(7000), m.RemainingSpace())
	assert.Equal(t, int64(10000), m.Capacity())
}

func TestFileMountReadOps(t *testing.T) {
	dir := t.TempDir()
	writeHostFile(t, filepath.Join(dir, "a.txt"), 3)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d"), 0o755))

	m, err := NewFileMount(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), m.RemainingSpace())

	assert.True(t, m.Exists("a.txt"))
	assert.False(t, m.Exists("nope"))
	assert.True(t, m.IsDir("d"))
	assert.True(t, m.IsDir(""))
	assert.False(t, m.IsDir("a.txt"))

	names, err := m.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "d"}, names)

	_, err = m.List("a.txt")
	assert.ErrorIs(t, err, ErrNotDir)
	_, err = m.List("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	size, err := m.Size("a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(3), size)
	size, err = m.Size("d")
	require.NoError(t, err)
	assert.Zero(t, size)

	_, err = m.OpenRead("d")
	assert.ErrorIs(t, err, ErrIsDir)
	_, err = m.OpenRead("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileMountContainment(t *testing.T) {
	outside := t.TempDir()
	writeHostFile(t, filepath.Join(outside, "secret"), 5)
	dir := t.TempDir()

	m, err := NewFileMount(dir, 0)
	require.NoError(t, err)

	_, err = m.OpenRead("../" + filepath.Base(outside) + "/secret")
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.False(t, m.Exists(".."))

	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "link")))
	_, err = m.OpenRead("link/secret")
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, err = m.OpenWrite("link/new", false)
	assert.ErrorIs(t, err, ErrAccessDenied)

	require.NoError(t, os.Symlink(filepath.Join(outside, "absent"), filepath.Join(dir, "dangling")))
	_, err = m.OpenWrite("dangling", false)
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, err = os.Stat(filepath.Join(outside, "absent"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileMountWriteCharging(t *testing.T) {
	dir := t.TempDir()
	m, err := NewFileMount(dir, 2000)
	require.NoError(t, err)

	w, err := m.OpenWrite("sub/file", false)
	require.NoError(t, err)
	// sub (500) + file (500)
	assert.Equal(t, int64(1000), m.Used())

	_, err = w.Write(make([]byte, 400))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), m.Used(), "first 500 bytes are prepaid")

	_, err = w.Write(make([]byte, 1000))
	require.NoError(t, err)
	assert.Equal(t, int64(1900), m.Used())

	_, err = w.Write(make([]byte, 200))
	assert.ErrorIs(t, err, ErrOutOfSpace)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(filepath.Join(dir, "sub", "file"))
	require.NoError(t, err)
	assert.Len(t, data, 1400)

	w, err = m.OpenWrite("sub/file", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), m.Used(), "truncation refunds the excess")
	require.NoError(t, w.Close())
}

func TestFileMountAppend(t *testing.T) {
	dir := t.TempDir()
	m, err := NewFileMount(dir, 0)
	require.NoError(t, err)

	for _, chunk := range []string{"ab", "cd"} {
		w, err := m.OpenWrite("log", true)
		require.NoError(t, err)
		_, err = io.WriteString(w, chunk)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}
	data, err := os.ReadFile(filepath.Join(dir, "log"))
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(data))
}

func TestFileMountMakeDirAndDelete(t *testing.T) {
	dir := t.TempDir()
	m, err := NewFileMount(dir, 5000)
	require.NoError(t, err)

	require.NoError(t, m.MakeDir("a/b/c"))
	assert.Equal(t, int64(1500), m.Used())
	require.NoError(t, m.MakeDir("a/b"), "existing directory is fine")

	writeHostFile(t, filepath.Join(dir, "a", "b", "f"), 700)
	assert.ErrorIs(t, m.MakeDir("a/b/f"), ErrExists)

	require.NoError(t, m.Delete("a/b/f"))
	assert.Equal(t, int64(800), m.Used(), "host-side files are refunded on delete")

	require.NoError(t, m.Delete("a"))
	assert.False(t, m.Exists("a"))
	assert.Zero(t, m.Used())

	require.NoError(t, m.Delete("missing"))
	assert.ErrorIs(t, m.Delete(""), ErrAccessDenied)
}

func TestFileMountMakeDirOutOfSpace(t *testing.T) {
	dir := t.TempDir()
	m, err := NewFileMount(dir, 1000)
	require.NoError(t, err)
	assert.ErrorIs(t, m.MakeDir("x/y/z"), ErrOutOfSpace)
	assert.False(t, m.Exists("x"))
}

func TestDirOpenerRoots(t *testing.T) {
	allowed := t.TempDir()
	other := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(allowed, "disk"), 0o755))

	o := DirOpener{Roots: []string{allowed}}
	m, err := o.Open(filepath.Join(allowed, "disk"), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), m.Capacity())

	_, err = o.Open(other, 100)
	assert.ErrorIs(t, err, ErrAccessDenied)

	m, err = DirOpener{}.Open(other, 0)
	require.NoError(t, err)
	assert.NotNil(t, m)
}
