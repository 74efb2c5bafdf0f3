package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/tintypelabs/tintype/pkg/camera"
	"github.com/tintypelabs/tintype/pkg/session"
	"github.com/tintypelabs/tintype/pkg/sound"
	"github.com/tintypelabs/tintype/pkg/storage"
)

var (
	capturesCounter metric.Int64Counter
	resetsCounter   metric.Int64Counter
)

func init() {
	var err error
	meter := otel.Meter("github.com/tintypelabs/tintype/cmd/booth")
	capturesCounter, err = meter.Int64Counter("booth.captures",
		metric.WithDescription("Total number of still captures attempted"),
		metric.WithUnit("{captures}"),
	)
	if err != nil {
		slog.Error("Failed to create capture metrics", "error", err)
	}
	resetsCounter, err = meter.Int64Counter("booth.resets",
		metric.WithDescription("Total number of camera resets"),
		metric.WithUnit("{resets}"),
	)
	if err != nil {
		slog.Error("Failed to create reset metrics", "error", err)
	}
}

// Detector reports whether a camera body answers on the bus.
type Detector interface {
	Detect(ctx context.Context) error
}

type CameraHandler struct {
	Ctrl     *camera.Controller
	Detector Detector
	Store    *session.Store
	Root     *storage.Root
	Shutter  *sound.Player
}

// Stream serves the live preview as an MJPEG multipart stream.
func (h *CameraHandler) Stream(c *gin.Context) {
	if h.Ctrl.State() != camera.StateStreaming {
		c.String(http.StatusServiceUnavailable, "Camera not streaming")
		return
	}

	c.Header("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")

	w := c.Writer
	flusher, ok := w.(http.Flusher)
	if !ok {
		c.String(http.StatusInternalServerError, "Streaming not supported")
		return
	}

	frames, cancel := h.Ctrl.Subscribe()
	defer cancel()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case frame, open := <-frames:
			if !open {
				return
			}
			fmt.Fprintf(w, "--frame\r\n")
			fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
			fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(frame.Payload))
			w.Write(frame.Payload)
			fmt.Fprintf(w, "\r\n")
			flusher.Flush()
		}
	}
}

func (h *CameraHandler) Start(c *gin.Context) {
	if err := h.Ctrl.StartPreview(c.Request.Context()); err != nil {
		respondFailure(c, err)
		return
	}
	respondOK(c, gin.H{"state": h.Ctrl.State()})
}

func (h *CameraHandler) Stop(c *gin.Context) {
	if err := h.Ctrl.StopPreview(); err != nil {
		respondFailure(c, err)
		return
	}
	respondOK(c, gin.H{"state": h.Ctrl.State()})
}

type captureRequest struct {
	SessionID string `json:"session_id"`
}

// Capture takes a still, stores it under the image root and records it on
// the bound session when one is known. A resume failure after a good capture
// is reported alongside the photo, not instead of it.
func (h *CameraHandler) Capture(c *gin.Context) {
	var req captureRequest
	c.ShouldBindJSON(&req)
	sessionID := h.boundSession(c, req.SessionID)

	name, resumeErr, err := h.CaptureToStorage(c.Request.Context(), sessionID)
	if err != nil {
		respondFailure(c, err)
		return
	}

	body := gin.H{"photo": name, "url": "/images/" + name}
	if resumeErr != nil {
		body["warning"] = resumeErr.Error()
	}
	respondOK(c, body)
}

// CaptureToStorage is the capture path shared by the HTTP route and the
// physical button. It returns the stored file name and, separately, a
// preview resume failure for a capture that itself succeeded.
func (h *CameraHandler) CaptureToStorage(ctx context.Context, sessionID string) (name string, resumeErr, err error) {
	capturesCounter.Add(ctx, 1)

	name = fmt.Sprintf("cap_%d.jpg", time.Now().Unix())
	path, err := h.Root.Resolve(name)
	if err != nil {
		return "", nil, err
	}

	go h.Shutter.Play()

	err = h.Ctrl.Capture(ctx, path)
	if errors.Is(err, camera.ErrResumeFailed) {
		resumeErr, err = err, nil
	}
	if err != nil {
		return "", nil, err
	}

	if sessionID != "" {
		if err := h.Store.RecordCapture(ctx, sessionID, path); err != nil {
			slog.Error("failed to record capture on session", "session", sessionID, "error", err)
			return "", resumeErr, err
		}
	}
	slog.Info("captured still", "file", name, "session", sessionID)
	return name, resumeErr, nil
}

func (h *CameraHandler) Reset(c *gin.Context) {
	resetsCounter.Add(c.Request.Context(), 1)
	if err := h.Ctrl.Reset(c.Request.Context()); err != nil {
		respondFailure(c, err)
		return
	}
	respondOK(c, gin.H{"state": h.Ctrl.State()})
}

// boundSession prefers an explicit id over the kiosk cookie.
func (h *CameraHandler) boundSession(c *gin.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if id, ok := sessions.Default(c).Get(sessionKey).(string); ok {
		return id
	}
	return ""
}
