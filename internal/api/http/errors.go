package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/periphery/internal/capability"
	"github.com/GriffinCanCode/periphery/internal/persistence"
	"github.com/GriffinCanCode/periphery/internal/script"
	"github.com/GriffinCanCode/periphery/internal/session"
)

// faultStatus maps a fault kind onto an HTTP status.
func faultStatus(kind capability.Kind) int {
	switch kind {
	case capability.KindArgument:
		return http.StatusBadRequest
	case capability.KindCapacity:
		return http.StatusInsufficientStorage
	default:
		return http.StatusConflict
	}
}

// writeFault reports a capability call failure. Faults carry their kind so
// callers can tell a bad argument from a full disk.
func writeFault(c *gin.Context, err error) {
	err = capability.Classify(err)
	kind := capability.KindOf(err)
	c.JSON(faultStatus(kind), gin.H{
		"error": err.Error(),
		"kind":  kind.String(),
	})
}

// writeError maps domain errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var scriptErr *script.Error
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, session.ErrClosed):
		status = http.StatusGone
	case errors.Is(err, script.ErrUnsupportedLanguage), errors.Is(err, persistence.ErrInvalidName):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.As(err, &scriptErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    scriptErr.Message,
			"language": scriptErr.Language,
		})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
