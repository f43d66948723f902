package http

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the host API on router.
func RegisterRoutes(router gin.IRouter, h *Handlers) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	api := router.Group("/api")
	api.GET("/capabilities", h.Capabilities)
	api.GET("/stats", h.Stats)

	sessions := api.Group("/sessions")
	sessions.POST("", h.CreateSession)
	sessions.GET("", h.ListSessions)
	sessions.GET("/:id", h.GetSession)
	sessions.DELETE("/:id", h.DeleteSession)
	sessions.POST("/:id/run", h.RunScript)
	sessions.POST("/:id/call/:name", h.Call)
	sessions.GET("/:id/events", h.Events)
	sessions.POST("/:id/events", h.QueueEvent)

	monitors := api.Group("/monitors")
	monitors.GET("", h.ListMonitors)
	monitors.GET("/:name", h.GetMonitor)
	monitors.GET("/:name/frame", h.GetFrame)
	monitors.POST("/:name/touch", h.Touch)
	monitors.POST("/:name/resize", h.Resize)
	monitors.POST("/:name/save", h.SaveMonitor)
	monitors.POST("/:name/restore", h.RestoreMonitor)
}
