package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/periphery/internal/capability"
	"github.com/GriffinCanCode/periphery/internal/providers/fs"
	"github.com/GriffinCanCode/periphery/internal/providers/monitor"
	"github.com/GriffinCanCode/periphery/internal/providers/mounter"
	"github.com/GriffinCanCode/periphery/internal/script"
	"github.com/GriffinCanCode/periphery/internal/shared/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMetrics struct {
	mu     sync.Mutex
	active []int
	runs   map[string]int
}

func (f *fakeMetrics) SetSessionsActive(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = append(f.active, n)
}

func (f *fakeMetrics) RecordScriptRun(language, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runs == nil {
		f.runs = make(map[string]int)
	}
	f.runs[language+"/"+status]++
}

type harness struct {
	mgr     *Manager
	monitor *monitor.Monitor
	metrics *fakeMetrics
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	mon := monitor.New("top", 5, 3, true, nil)
	peripherals := capability.NewRegistry()
	require.NoError(t, peripherals.Register("top", monitor.NewPeripheral(mon)))

	apis := capability.NewRegistry()
	require.NoError(t, apis.Register(mounter.Name, mounter.NewProvider(mounter.FromComputer)))
	require.NoError(t, apis.Register(fs.Name, fs.NewProvider(fs.FromComputer)))

	metrics := &fakeMetrics{}
	opts.Metrics = metrics
	mgr := NewManager(peripherals, apis, opts)
	t.Cleanup(mgr.CloseAll)
	return &harness{mgr: mgr, monitor: mon, metrics: metrics}
}

func TestCreateAttachesPeripherals(t *testing.T) {
	h := newHarness(t, Options{})

	s, err := h.mgr.Create("shell")
	require.NoError(t, err)
	assert.True(t, id.Valid(s.ID(), id.SessionPrefix))
	assert.Equal(t, "shell", s.Label())
	assert.Equal(t, 1, h.monitor.Computers())

	got, ok := h.mgr.Get(s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)

	require.NoError(t, h.mgr.Close(s.ID()))
	assert.Equal(t, 0, h.monitor.Computers())
	assert.True(t, s.Closed())
	s.Close()

	_, ok = h.mgr.Get(s.ID())
	assert.False(t, ok)
	assert.ErrorIs(t, h.mgr.Close(s.ID()), ErrNotFound)
}

func TestListAndCloseAll(t *testing.T) {
	h := newHarness(t, Options{})

	var ids []string
	for i := 0; i < 3; i++ {
		s, err := h.mgr.Create("")
		require.NoError(t, err)
		ids = append(ids, s.ID())
	}

	listed := h.mgr.List()
	require.Len(t, listed, 3)
	for i, s := range listed {
		assert.Equal(t, ids[i], s.ID())
	}
	assert.Equal(t, 3, h.mgr.Len())
	assert.Equal(t, 3, h.monitor.Computers())

	h.mgr.CloseAll()
	h.mgr.CloseAll()
	assert.Equal(t, 0, h.mgr.Len())
	assert.Equal(t, 0, h.monitor.Computers())
	assert.Equal(t, []int{1, 2, 3, 2, 1, 0}, h.metrics.active)

	_, err := h.mgr.Create("late")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCreateRacingCloseAllLeavesNothingOpen(t *testing.T) {
	h := newHarness(t, Options{DataDir: t.TempDir(), ComputerSpace: 10_000})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created []*Session
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 8; j++ {
				s, err := h.mgr.Create("")
				if err != nil {
					assert.ErrorIs(t, err, ErrClosed)
					return
				}
				mu.Lock()
				created = append(created, s)
				mu.Unlock()
			}
		}()
	}
	h.mgr.CloseAll()
	wg.Wait()

	assert.Equal(t, 0, h.mgr.Len())
	assert.Empty(t, h.mgr.List())
	assert.Equal(t, 0, h.monitor.Computers())
	for _, s := range created {
		assert.True(t, s.Closed(), "session %s left open", s.ID())
		assert.NoDirExists(t, filepath.Join(h.mgr.opts.DataDir, s.ID()))
	}
}

func TestEventQueue(t *testing.T) {
	h := newHarness(t, Options{QueueSize: 2})
	s, err := h.mgr.Create("")
	require.NoError(t, err)

	s.QueueEvent("a", 1)
	s.QueueEvent("b")
	s.QueueEvent("c")
	assert.Equal(t, uint64(1), s.Info().DroppedEvents)
	assert.Equal(t, 2, s.Info().PendingEvents)

	ev, err := s.PollEvent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", ev.Name)
	assert.Equal(t, []any{1}, ev.Args)

	rest := s.Events()
	require.Len(t, rest, 1)
	assert.Equal(t, "b", rest[0].Name)
	assert.Empty(t, s.Events())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.PollEvent(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	s.Close()
	_, err = s.PollEvent(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	s.QueueEvent("ignored")
	assert.Equal(t, 0, s.Info().PendingEvents)
}

func TestMonitorEventsReachSession(t *testing.T) {
	h := newHarness(t, Options{})
	s, err := h.mgr.Create("")
	require.NoError(t, err)

	h.monitor.Touch(2, 3)
	h.monitor.Resize(6, 4)

	events := s.Events()
	require.Len(t, events, 2)
	assert.Equal(t, monitor.EventTouch, events[0].Name)
	assert.Equal(t, []any{"top", 2, 3}, events[0].Args)
	assert.Equal(t, monitor.EventResize, events[1].Name)
}

func TestRunDefaultsToLua(t *testing.T) {
	h := newHarness(t, Options{})
	s, err := h.mgr.Create("")
	require.NoError(t, err)

	res, err := s.Run(context.Background(), "", `print("hi") return peripheral.getNames()[1]`)
	require.NoError(t, err)
	assert.Equal(t, script.Lua, res.Language)
	assert.Equal(t, []any{"top"}, res.Results)
	assert.Equal(t, "hi\n", res.Output)
	assert.True(t, id.Valid(res.RunID.String(), id.RunPrefix))
	assert.Equal(t, 1, h.metrics.runs["lua/ok"])
}

func TestRunJS(t *testing.T) {
	h := newHarness(t, Options{})
	s, err := h.mgr.Create("")
	require.NoError(t, err)

	res, err := s.Run(context.Background(), "javascript", `peripheral.getType("top")`)
	require.NoError(t, err)
	assert.Equal(t, script.JS, res.Language)
	assert.Equal(t, []any{"monitor"}, res.Results)

	_, err = s.Run(context.Background(), "cobol", `x`)
	assert.Error(t, err)
}

func TestRunTimeout(t *testing.T) {
	h := newHarness(t, Options{Timeout: 50 * time.Millisecond})
	s, err := h.mgr.Create("")
	require.NoError(t, err)

	_, err = s.Run(context.Background(), "lua", `while true do end`)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, h.metrics.runs["lua/timeout"])
	assert.False(t, s.Info().Running)
}

func TestOneRunAtATimeAndCloseCancels(t *testing.T) {
	h := newHarness(t, Options{})
	s, err := h.mgr.Create("")
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background(), "lua", `while true do end`)
		errc <- err
	}()
	require.Eventually(t, func() bool { return s.Info().Running }, time.Second, time.Millisecond)

	_, err = s.Run(context.Background(), "lua", `return 1`)
	assert.ErrorIs(t, err, ErrBusy)

	require.NoError(t, h.mgr.Close(s.ID()))
	select {
	case err := <-errc:
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after close")
	}

	_, err = s.Run(context.Background(), "lua", `return 1`)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestScriptMountsAreSessionScoped(t *testing.T) {
	h := newHarness(t, Options{})
	a, err := h.mgr.Create("a")
	require.NoError(t, err)
	b, err := h.mgr.Create("b")
	require.NoError(t, err)

	host := t.TempDir()
	_, err = a.Run(context.Background(), "lua", `
		mounter.mount("disk", "`+filepath.ToSlash(host)+`")
		fs.write("/disk/hello.txt", "hi")
	`)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(host, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))

	res, err := b.Run(context.Background(), "lua", `return mounter.isReadOnly("disk"), fs.exists("/disk/hello.txt")`)
	require.NoError(t, err)
	assert.Equal(t, []any{nil, false}, res.Results)

	assert.Equal(t, 1, a.Mounts().Len())
	require.NoError(t, h.mgr.Close(a.ID()))
	assert.Equal(t, 0, a.Mounts().Len())
	assert.Empty(t, a.FileSystem().Mounts())
}

func TestScratchDisk(t *testing.T) {
	dataDir := t.TempDir()
	h := newHarness(t, Options{DataDir: dataDir, ComputerSpace: 10_000})
	s, err := h.mgr.Create("")
	require.NoError(t, err)

	_, err = s.Run(context.Background(), "lua", `fs.write("/startup.lua", "print(1)")`)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dataDir, s.ID(), "startup.lua"))

	res, err := s.Run(context.Background(), "lua", `
		local ok, e = pcall(fs.write, "/big.bin", string.rep("x", 20000))
		return ok, e
	`)
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.Equal(t, false, res.Results[0])
	assert.Contains(t, res.Results[1], "Out of space")

	s.Close()
	assert.NoDirExists(t, filepath.Join(dataDir, s.ID()))
}
