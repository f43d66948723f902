package vfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFS(t *testing.T, maxOpen int) (*FileSystem, string, string) {
	t.Helper()
	rootDir := t.TempDir()
	diskDir := t.TempDir()
	writeHostFile(t, filepath.Join(rootDir, "startup.lua"), 4)
	writeHostFile(t, filepath.Join(rootDir, "rom", "apis", "gps.lua"), 4)
	writeHostFile(t, filepath.Join(rootDir, "rom", "help.txt"), 4)

	root, err := NewFileMount(rootDir, 0)
	require.NoError(t, err)
	disk, err := NewFileMount(diskDir, 10000)
	require.NoError(t, err)

	fs := NewFileSystem(maxOpen)
	require.NoError(t, fs.Mount("hdd", "/", root))
	require.NoError(t, fs.MountWritable("disk", "disk", disk))
	return fs, rootDir, diskDir
}

func TestFileSystemMountTable(t *testing.T) {
	fs, _, _ := newTestFS(t, 0)

	assert.Equal(t, []MountInfo{
		{Label: "hdd", Location: "/", ReadOnly: true},
		{Label: "disk", Location: "/disk", ReadOnly: false},
	}, fs.Mounts())

	assert.ErrorIs(t, fs.Mount("again", "/disk/", nil), ErrExists)

	assert.True(t, fs.Unmount("/disk"))
	assert.False(t, fs.Unmount("/disk"))
	assert.Len(t, fs.Mounts(), 1)
}

func TestFileSystemLongestPrefix(t *testing.T) {
	fs, _, _ := newTestFS(t, 0)

	drive, err := fs.Drive("/disk/x")
	require.NoError(t, err)
	assert.Equal(t, "disk", drive)

	drive, err = fs.Drive("/diskette")
	require.NoError(t, err)
	assert.Equal(t, "hdd", drive)

	ro, err := fs.IsReadOnly("rom")
	require.NoError(t, err)
	assert.True(t, ro)
	ro, err = fs.IsReadOnly("disk")
	require.NoError(t, err)
	assert.False(t, ro)

	names, err := fs.List("/")
	require.NoError(t, err)
	assert.Equal(t, []string{"disk", "rom", "startup.lua"}, names)

	isDir, err := fs.IsDir("disk")
	require.NoError(t, err)
	assert.True(t, isDir)
}

func TestFileSystemReadOnlyMount(t *testing.T) {
	fs, _, _ := newTestFS(t, 0)

	assert.ErrorIs(t, fs.Write("new.txt", []byte("x"), false), ErrReadOnly)
	assert.ErrorIs(t, fs.MakeDir("dir"), ErrReadOnly)
	assert.ErrorIs(t, fs.Delete("startup.lua"), ErrReadOnly)

	free, err := fs.FreeSpace("/")
	require.NoError(t, err)
	assert.Zero(t, free)
}

func TestFileSystemWriteRead(t *testing.T) {
	fs, _, diskDir := newTestFS(t, 0)

	require.NoError(t, fs.Write("disk/notes/a.txt", []byte("hello"), false))
	require.NoError(t, fs.Write("disk/notes/a.txt", []byte(" world"), true))

	data, err := fs.ReadAll("/disk/notes/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	onHost, err := os.ReadFile(filepath.Join(diskDir, "notes", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(onHost))

	size, err := fs.Size("disk/notes/a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(11), size)

	free, err := fs.FreeSpace("disk")
	require.NoError(t, err)
	assert.Equal(t, int64(10000-1000), free)

	assert.ErrorIs(t, fs.Delete("disk"), ErrAccessDenied)
	require.NoError(t, fs.Delete("disk/notes"))
	exists, err := fs.Exists("disk/notes")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileSystemEscape(t *testing.T) {
	fs, _, _ := newTestFS(t, 0)
	_, err := fs.ReadAll("/disk/../../etc/passwd")
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, err = fs.List("..")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestFileSystemNoMount(t *testing.T) {
	fs := NewFileSystem(0)
	_, err := fs.List("/")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileSystemOpenLimit(t *testing.T) {
	fs, _, _ := newTestFS(t, 2)

	r1, err := fs.OpenRead("startup.lua")
	require.NoError(t, err)
	w1, err := fs.OpenWrite("disk/x", false)
	require.NoError(t, err)
	assert.Equal(t, 2, fs.OpenFiles())

	_, err = fs.OpenRead("rom/help.txt")
	assert.ErrorIs(t, err, ErrTooManyFiles)

	require.NoError(t, r1.Close())
	assert.Equal(t, 1, fs.OpenFiles())

	_, err = fs.OpenRead("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, fs.OpenFiles(), "failed opens release their slot")

	require.NoError(t, w1.Close())
	assert.Zero(t, fs.OpenFiles())
}

func TestFileSystemFind(t *testing.T) {
	fs, _, _ := newTestFS(t, 0)
	require.NoError(t, fs.Write("disk/prog.lua", []byte("x"), false))

	matches, err := fs.Find("**/*.lua")
	require.NoError(t, err)
	assert.Equal(t, []string{"disk/prog.lua", "rom/apis/gps.lua", "startup.lua"}, matches)

	matches, err = fs.Find("/rom/*")
	require.NoError(t, err)
	assert.Equal(t, []string{"rom/apis", "rom/help.txt"}, matches)

	matches, err = fs.Find("nowhere/*")
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = fs.Find("rom/[")
	assert.Error(t, err)
}

func TestFileSystemClose(t *testing.T) {
	fs, _, _ := newTestFS(t, 0)
	require.NoError(t, fs.Close())
	_, err := fs.List("/")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, fs.Mount("x", "x", nil), ErrClosed)
}
