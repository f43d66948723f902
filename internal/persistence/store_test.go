package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/periphery/internal/providers/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct{ saved, loaded int }

func (c *counter) IncSnapshotsSaved() { c.saved++ }
func (c *counter) IncSnapshotsLoaded() { c.loaded++ }

func newStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "snapshots")
	s, err := NewStore(dir, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, dir
}

func TestSaveLoadMonitor(t *testing.T) {
	c := &counter{}
	store, dir := newStore(t, WithCounter(c))

	src := monitor.New("left", 6, 2, true, nil)
	term := src.Terminal()
	term.SetTextColour(3)
	term.Write("hello")
	term.SetCursorPos(2, 1)
	term.SetPixel(5, 5, 9)
	term.SetPaletteColour(0, 1, 0, 0)
	src.SetTextScale(4)

	rec, ok := Capture(src)
	require.True(t, ok)
	require.NoError(t, store.Save(rec))
	assert.FileExists(t, filepath.Join(dir, "left.snap.zst"))

	loaded, err := store.Load("left")
	require.NoError(t, err)
	assert.Equal(t, 6, loaded.Width)
	assert.Equal(t, 2, loaded.Height)
	assert.False(t, loaded.SavedAt.IsZero())

	dst := monitor.New("left", 3, 3, true, nil)
	require.True(t, Restore(dst, loaded))

	w, h := dst.Terminal().Size()
	assert.Equal(t, 6, w)
	assert.Equal(t, 2, h)
	assert.Equal(t, 4, dst.TextScale())
	text, fg, _, _ := dst.Terminal().Line(0)
	assert.Equal(t, "hello ", text)
	assert.Equal(t, "333330", fg)
	x, y := dst.Terminal().CursorPos()
	assert.Equal(t, 2, x)
	assert.Equal(t, 1, y)
	pix, _ := dst.Terminal().Pixel(5, 5)
	assert.Equal(t, 9, pix)
	rgb, _ := dst.Terminal().PaletteColour(0)
	assert.Equal(t, [3]float64{1, 0, 0}, rgb)

	assert.Equal(t, 1, c.saved)
	assert.Equal(t, 1, c.loaded)
}

func TestSaveReplacesAtomically(t *testing.T) {
	store, dir := newStore(t)

	require.NoError(t, store.Save(Record{Name: "m", Width: 1, Height: 1}))
	require.NoError(t, store.Save(Record{Name: "m", Width: 2, Height: 1}))

	rec, err := store.Load("m")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Width)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestListAndDelete(t *testing.T) {
	store, dir := newStore(t)
	for _, name := range []string{"b", "a", "c"} {
		require.NoError(t, store.Save(Record{Name: name}))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.txt"), nil, 0o644))

	names, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names)

	require.NoError(t, store.Delete("b"))
	assert.ErrorIs(t, store.Delete("b"), ErrNotFound)
	names, _ = store.List()
	assert.Equal(t, []string{"a", "c"}, names)
}

func TestErrors(t *testing.T) {
	store, dir := newStore(t)

	_, err := store.Load("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, name := range []string{"", "..", "a/b", `a\b`, "sp ace"} {
		assert.ErrorIs(t, store.Save(Record{Name: name}), ErrInvalidName, name)
		_, err := store.Load(name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.snap.zst"), []byte("not zstd"), 0o644))
	_, err = store.Load("junk")
	assert.ErrorContains(t, err, "decompress")
}

func TestDetachedMonitor(t *testing.T) {
	m := monitor.New("gone", 2, 2, false, nil)
	m.DetachTerminal()

	_, ok := Capture(m)
	assert.False(t, ok)
	assert.False(t, Restore(m, Record{Name: "gone"}))
}
