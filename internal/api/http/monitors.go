package http

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/periphery/internal/persistence"
	"github.com/GriffinCanCode/periphery/internal/providers/monitor"
)

// TouchRequest is the body of Touch. Coordinates are one-based cells.
type TouchRequest struct {
	X int `json:"x" binding:"required,min=1"`
	Y int `json:"y" binding:"required,min=1"`
}

// ResizeRequest is the body of Resize.
type ResizeRequest struct {
	Width  int `json:"width" binding:"required,min=1,max=512"`
	Height int `json:"height" binding:"required,min=1,max=512"`
}

// Line is one text row with its colour digits.
type Line struct {
	Text string `json:"text"`
	Fg   string `json:"fg"`
	Bg   string `json:"bg"`
}

// MonitorState is the host view of a display device. The cursor is
// one-based, matching what scripts see. FrameSeq is the sequence number of
// the last redraw, 0 if none.
type MonitorState struct {
	Name        string `json:"name"`
	Colour      bool   `json:"colour"`
	Attached    bool   `json:"attached"`
	Computers   int    `json:"computers"`
	TextScale   int    `json:"text_scale"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	CursorX     int    `json:"cursor_x"`
	CursorY     int    `json:"cursor_y"`
	CursorBlink bool   `json:"cursor_blink"`
	Graphics    bool   `json:"graphics_mode"`
	Lines       []Line `json:"lines,omitempty"`
	FrameSeq    uint64 `json:"frame_seq"`
}

func (h *Handlers) monitors() []*monitor.Monitor {
	reg := h.sessions.Peripherals()
	var out []*monitor.Monitor
	for _, name := range reg.Names() {
		if c, ok := reg.Get(name); ok {
			if p, ok := c.(*monitor.Peripheral); ok {
				out = append(out, p.Monitor())
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// findMonitor resolves the :name parameter, writing the error response itself.
func (h *Handlers) findMonitor(c *gin.Context) (*monitor.Monitor, bool) {
	name := c.Param("name")
	if found, ok := h.sessions.Peripherals().Get(name); ok {
		if p, ok := found.(*monitor.Peripheral); ok {
			return p.Monitor(), true
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "no such monitor: " + name})
	return nil, false
}

func (h *Handlers) state(m *monitor.Monitor, withLines bool) MonitorState {
	st := MonitorState{
		Name:      m.Name(),
		Colour:    m.IsColour(),
		Computers: m.Computers(),
		TextScale: m.TextScale(),
	}
	if f, ok := h.scheduler.Frame(m.Name()); ok {
		st.FrameSeq = f.Seq
	}
	term := m.Terminal()
	if term == nil {
		return st
	}
	st.Attached = true
	st.Width, st.Height = term.Size()
	x, y := term.CursorPos()
	st.CursorX, st.CursorY = x+1, y+1
	st.CursorBlink = term.CursorBlink()
	st.Graphics = term.GraphicsMode()
	if withLines {
		st.Lines = make([]Line, 0, st.Height)
		for row := 0; row < st.Height; row++ {
			text, fg, bg, ok := term.Line(row)
			if !ok {
				break
			}
			st.Lines = append(st.Lines, Line{Text: text, Fg: fg, Bg: bg})
		}
	}
	return st
}

// ListMonitors summarises every monitor without its contents.
func (h *Handlers) ListMonitors(c *gin.Context) {
	mons := h.monitors()
	states := make([]MonitorState, 0, len(mons))
	for _, m := range mons {
		states = append(states, h.state(m, false))
	}
	c.JSON(http.StatusOK, gin.H{"monitors": states})
}

// GetMonitor returns a monitor's size, scale, cursor and lines.
func (h *Handlers) GetMonitor(c *gin.Context) {
	m, ok := h.findMonitor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.state(m, true))
}

// GetFrame returns the last redrawn frame, including colour rows.
func (h *Handlers) GetFrame(c *gin.Context) {
	m, ok := h.findMonitor(c)
	if !ok {
		return
	}
	f, ok := h.scheduler.Frame(m.Name())
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no frame drawn yet"})
		return
	}
	c.JSON(http.StatusOK, f)
}

// Touch delivers a monitor_touch event to every attached session.
func (h *Handlers) Touch(c *gin.Context) {
	m, ok := h.findMonitor(c)
	if !ok {
		return
	}
	var req TouchRequest
	if !bindJSON(c, &req) {
		return
	}
	m.Touch(req.X, req.Y)
	c.JSON(http.StatusAccepted, gin.H{
		"monitor":   m.Name(),
		"computers": m.Computers(),
	})
}

// Resize changes the monitor's size, as when the physical display grows.
// Attached sessions receive monitor_resize.
func (h *Handlers) Resize(c *gin.Context) {
	m, ok := h.findMonitor(c)
	if !ok {
		return
	}
	var req ResizeRequest
	if !bindJSON(c, &req) {
		return
	}
	if m.Terminal() == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Monitor has been detached"})
		return
	}
	m.Resize(req.Width, req.Height)
	c.JSON(http.StatusOK, h.state(m, false))
}

// SaveMonitor persists the monitor's terminal.
func (h *Handlers) SaveMonitor(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence disabled"})
		return
	}
	m, ok := h.findMonitor(c)
	if !ok {
		return
	}
	rec, ok := persistence.Capture(m)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "Monitor has been detached"})
		return
	}
	rec.SavedAt = time.Now().UTC()
	if err := h.store.Save(rec); err != nil {
		h.logger.Error("saving monitor", zap.String("monitor", m.Name()), zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"monitor":  rec.Name,
		"saved_at": rec.SavedAt,
	})
}

// RestoreMonitor loads the monitor's last saved terminal.
func (h *Handlers) RestoreMonitor(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence disabled"})
		return
	}
	m, ok := h.findMonitor(c)
	if !ok {
		return
	}
	rec, err := h.store.Load(m.Name())
	if err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			h.logger.Error("loading monitor", zap.String("monitor", m.Name()), zap.Error(err))
		}
		writeError(c, err)
		return
	}
	if !persistence.Restore(m, rec) {
		c.JSON(http.StatusConflict, gin.H{"error": "Monitor has been detached"})
		return
	}
	c.JSON(http.StatusOK, h.state(m, false))
}
