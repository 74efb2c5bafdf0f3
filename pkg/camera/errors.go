package camera

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBusy signals that the controller is mid-transition and cannot accept
// another request right now. Callers decide whether to wait and resubmit.
var ErrBusy = errors.New("camera busy with another operation")

// ErrResumeFailed wraps a preview restart failure after a successful still
// capture. The captured image exists; only the live view is down.
var ErrResumeFailed = errors.New("preview resume failed")

// Kind classifies camera failures.
type Kind int

const (
	KindNotDetected Kind = iota
	KindDeviceBusy
	KindProcessSpawnFailed
	KindTimeout
	KindDisconnected
)

func (k Kind) String() string {
	switch k {
	case KindNotDetected:
		return "not_detected"
	case KindDeviceBusy:
		return "device_busy"
	case KindProcessSpawnFailed:
		return "process_spawn_failed"
	case KindTimeout:
		return "timeout"
	case KindDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Error is a classified camera failure. Detail carries the diagnostic text
// from the capture tool so an operator sees more than an exit code.
type Error struct {
	Kind   Kind
	Op     string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("camera %s: %s", e.Op, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is expected to clear on its own.
// Only a busy device is worth retrying; everything else needs intervention.
func (e *Error) Retryable() bool {
	return e.Kind == KindDeviceBusy
}

// IsKind reports whether err is a camera Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == kind
}

// gphoto2 reports a held PTP handle in several ways depending on the camera
// model and how recently the preview pipeline released it.
var busyPatterns = []string{
	"device busy",
	"ptp device busy",
	"i/o in progress",
	"could not claim",
}

var notDetectedPatterns = []string{
	"no camera found",
	"not detected",
	"could not detect",
}

// classify maps diagnostic output from a capture command to an error Kind.
func classify(op, stderr string, cause error) *Error {
	lower := strings.ToLower(stderr)
	kind := KindProcessSpawnFailed
	for _, p := range busyPatterns {
		if strings.Contains(lower, p) {
			kind = KindDeviceBusy
			break
		}
	}
	if kind == KindProcessSpawnFailed {
		for _, p := range notDetectedPatterns {
			if strings.Contains(lower, p) {
				kind = KindNotDetected
				break
			}
		}
	}
	return &Error{Kind: kind, Op: op, Detail: strings.TrimSpace(stderr), Err: cause}
}
