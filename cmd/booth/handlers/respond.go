package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tintypelabs/tintype/pkg/camera"
	"github.com/tintypelabs/tintype/pkg/printer"
	"github.com/tintypelabs/tintype/pkg/session"
	"github.com/tintypelabs/tintype/pkg/storage"
)

func respondOK(c *gin.Context, data gin.H) {
	body := gin.H{"ok": true}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

func respondError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"ok": false, "error": err.Error()})
}

// statusFor maps domain errors onto HTTP statuses. Busy hardware is 503 so
// the frontend can retry; busy state machine and set-once violations are
// conflicts; everything that reached the hardware and broke is a 502.
func statusFor(err error) int {
	switch {
	case errors.Is(err, camera.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, session.ErrPhotoAlreadySet):
		return http.StatusConflict
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrMissingField):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrPathTraversal):
		return http.StatusBadRequest
	case camera.IsKind(err, camera.KindDeviceBusy):
		return http.StatusServiceUnavailable
	}

	var perr *printer.Error
	if errors.As(err, &perr) {
		return http.StatusBadGateway
	}
	var cerr *camera.Error
	if errors.As(err, &cerr) {
		return http.StatusBadGateway
	}
	if errors.Is(err, camera.ErrFailedState) || errors.Is(err, camera.ErrResumeFailed) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondFailure(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "2")
	}
	respondError(c, status, err)
}
