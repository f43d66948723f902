package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/periphery/internal/capability"
	"github.com/GriffinCanCode/periphery/internal/session"
	"github.com/GriffinCanCode/periphery/internal/shared/id"
)

const maxLabelLength = 64

// CreateSessionRequest is the optional body of CreateSession.
type CreateSessionRequest struct {
	Label string `json:"label"`
}

// RunRequest is the body of RunScript.
type RunRequest struct {
	Language string `json:"language"`
	Source   string `json:"source" binding:"required"`
}

// CallRequest is the body of Call. Method is a method name.
type CallRequest struct {
	Method string `json:"method" binding:"required"`
	Args   []any  `json:"args"`
}

// QueueEventRequest is the body of QueueEvent.
type QueueEventRequest struct {
	Name string `json:"name" binding:"required"`
	Args []any  `json:"args"`
}

// lookup resolves the :id parameter, writing the error response itself.
func (h *Handlers) lookup(c *gin.Context) (*session.Session, bool) {
	sid := c.Param("id")
	if !id.Valid(sid, id.SessionPrefix) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return nil, false
	}
	s, ok := h.sessions.Get(sid)
	if !ok {
		writeError(c, fmt.Errorf("%s: %w", sid, session.ErrNotFound))
		return nil, false
	}
	return s, true
}

// CreateSession opens a computer with every peripheral attached.
func (h *Handlers) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	req.Label = strings.TrimSpace(req.Label)
	if len(req.Label) > maxLabelLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("label exceeds %d characters", maxLabelLength)})
		return
	}

	s, err := h.sessions.Create(req.Label)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.Info())
}

// ListSessions lists open sessions, oldest first.
func (h *Handlers) ListSessions(c *gin.Context) {
	list := h.sessions.List()
	infos := make([]session.Info, 0, len(list))
	for _, s := range list {
		infos = append(infos, s.Info())
	}
	c.JSON(http.StatusOK, gin.H{
		"sessions": infos,
		"count":    len(infos),
	})
}

// GetSession describes one session and its mounts.
func (h *Handlers) GetSession(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session": s.Info(),
		"mounts":  s.Mounts().Entries(),
	})
}

// DeleteSession closes a session, detaching its peripherals and unmounting
// everything it mounted.
func (h *Handlers) DeleteSession(c *gin.Context) {
	sid := c.Param("id")
	if err := h.sessions.Close(sid); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": sid,
	})
}

// RunScript runs a script to completion in the session.
func (h *Handlers) RunScript(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	var req RunRequest
	if !bindJSON(c, &req) {
		return
	}
	if len(req.Source) > MaxSourceSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("source exceeds %d bytes", MaxSourceSize)})
		return
	}

	result, err := s.Run(c.Request.Context(), req.Language, req.Source)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Call invokes one capability method on behalf of the session. Peripherals
// are searched before APIs.
func (h *Handlers) Call(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	var req CallRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := validateDepth(req.Args, MaxArgDepth); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := c.Param("name")
	reg := h.sessions.Peripherals()
	if _, found := reg.Get(name); !found {
		if _, found := h.sessions.APIs().Get(name); found {
			reg = h.sessions.APIs()
		}
	}

	results, err := reg.Invoke(c.Request.Context(), s, name, req.Method, capability.Arguments(req.Args))
	if err != nil {
		writeFault(c, err)
		return
	}
	if results == nil {
		results = []any{}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// Events drains the session's event queue.
func (h *Handlers) Events(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	events := s.Events()
	if events == nil {
		events = []session.Event{}
	}
	c.JSON(http.StatusOK, gin.H{
		"events":  events,
		"dropped": s.Info().DroppedEvents,
	})
}

// QueueEvent posts a user event to the session.
func (h *Handlers) QueueEvent(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	var req QueueEventRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := validateDepth(req.Args, MaxArgDepth); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.QueueEvent(req.Name, req.Args...)
	c.JSON(http.StatusAccepted, gin.H{"queued": req.Name})
}
