package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tintypelabs/tintype/pkg/camera"
	"github.com/tintypelabs/tintype/pkg/printer"
	"github.com/tintypelabs/tintype/pkg/storage"
)

type StatusHandler struct {
	Ctrl       *camera.Controller
	Detector   Detector
	Dispatcher printer.Dispatcher
	Root       *storage.Root
}

// Health reports the controller state and whether the peripherals answer.
// It always returns 200 so the kiosk supervisor can distinguish "process
// down" from "camera unhappy".
func (h *StatusHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	state := h.Ctrl.State()
	body := gin.H{
		"ok":      true,
		"state":   state,
		"viewers": h.Ctrl.Subscribers(),
	}
	if err := h.Ctrl.LastError(); err != nil {
		body["last_error"] = err.Error()
	}

	// Probing the bus steals the camera from a live pipeline, so only ask
	// while nothing is running.
	if state == camera.StateStopped || state == camera.StateFailed {
		if err := h.Detector.Detect(ctx); err != nil {
			body["camera_detected"] = false
		} else {
			body["camera_detected"] = true
		}
	}

	if target, err := h.Dispatcher.Available(ctx); err != nil {
		body["printer"] = gin.H{"available": false, "error": err.Error()}
	} else {
		body["printer"] = gin.H{"available": true, "target": target}
	}

	c.JSON(http.StatusOK, body)
}

// Image serves a stored file, refusing anything outside the image root.
func (h *StatusHandler) Image(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("filepath"), "/")
	path, err := h.Root.Resolve(name)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	c.File(path)
}
