package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrFailedState is returned for requests arriving while the controller is
// in Failed. Reset clears it.
var ErrFailedState = errors.New("camera in failed state, reset required")

// State is the controller's position in the streaming/capturing lifecycle.
type State string

const (
	StateStopped   State = "stopped"
	StateStarting  State = "starting"
	StateStreaming State = "streaming"
	StateStopping  State = "stopping"
	StateCapturing State = "capturing"
	StateResuming  State = "resuming"
	StateFailed    State = "failed"
)

// ControllerConfig carries the camera-model-dependent timing knobs.
type ControllerConfig struct {
	// SettleDelay is the minimum wait between stopping the preview
	// pipeline and issuing a still-capture command. Too short and the
	// camera still holds its PTP handle in movie mode.
	SettleDelay    time.Duration
	CaptureTimeout time.Duration
	Retry          RetryPolicy
	// BroadcastBuffer is the per-viewer frame buffer depth.
	BroadcastBuffer int
}

// Controller owns the camera. It arbitrates between continuous live preview
// and one-shot still capture, which are mutually exclusive because the
// physical camera cannot serve both at once. Exactly one Controller exists
// per process and all camera operations go through it.
type Controller struct {
	backend     Backend
	source      FrameSource
	broadcaster *Broadcaster
	cfg         ControllerConfig

	mu              sync.Mutex
	state           State
	lastErr         error
	lastPreviewStop time.Time
	readerCancel    context.CancelFunc
	readerDone      chan struct{}
}

// NewController wires the state machine to its process backend and frame
// source. The controller starts in Stopped.
func NewController(backend Backend, source FrameSource, cfg ControllerConfig) *Controller {
	if cfg.CaptureTimeout <= 0 {
		cfg.CaptureTimeout = 30 * time.Second
	}
	return &Controller{
		backend:     backend,
		source:      source,
		broadcaster: NewBroadcaster(cfg.BroadcastBuffer),
		cfg:         cfg,
		state:       StateStopped,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the error that put the controller into Failed, if any.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Subscribe attaches a preview viewer to the frame fan-out.
func (c *Controller) Subscribe() (<-chan Frame, func()) {
	return c.broadcaster.Subscribe()
}

// Subscribers reports the current preview viewer count.
func (c *Controller) Subscribers() int {
	return c.broadcaster.Subscribers()
}

// StartPreview transitions Stopped -> Starting -> Streaming. Already
// streaming is a no-op; any in-flight transition is rejected with ErrBusy.
func (c *Controller) StartPreview(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateStreaming:
		c.mu.Unlock()
		return nil
	case StateStopped:
	case StateFailed:
		c.mu.Unlock()
		return ErrFailedState
	default:
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = StateStarting
	c.mu.Unlock()

	if err := c.backend.StartPreview(ctx); err != nil {
		c.fail(err)
		return err
	}

	c.mu.Lock()
	c.startReaderLocked()
	c.state = StateStreaming
	c.mu.Unlock()
	return nil
}

// StopPreview transitions Streaming -> Stopping -> Stopped. The frame reader
// is fully joined before the pipeline is torn down.
func (c *Controller) StopPreview() error {
	c.mu.Lock()
	switch c.state {
	case StateStopped:
		c.mu.Unlock()
		return nil
	case StateStreaming:
	case StateFailed:
		c.mu.Unlock()
		return ErrFailedState
	default:
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = StateStopping
	cancel, done := c.takeReaderLocked()
	c.mu.Unlock()

	joinReader(cancel, done)
	err := c.backend.StopPreview()

	c.mu.Lock()
	c.lastPreviewStop = time.Now()
	c.state = StateStopped
	c.mu.Unlock()
	return err
}

// Capture performs a one-shot still capture into outputPath. From Streaming
// it stops the preview, waits the settle delay, captures with bounded busy
// retries, then resumes the preview. From Stopped it captures directly.
// Requests during any other state are rejected immediately with ErrBusy.
// If the capture succeeded but the preview restart failed, the returned
// error wraps ErrResumeFailed and the image at outputPath is valid.
func (c *Controller) Capture(ctx context.Context, outputPath string) error {
	c.mu.Lock()
	var wasStreaming bool
	switch c.state {
	case StateStreaming:
		wasStreaming = true
		c.state = StateStopping
	case StateStopped:
		c.state = StateCapturing
	case StateFailed:
		c.mu.Unlock()
		return ErrFailedState
	default:
		c.mu.Unlock()
		return ErrBusy
	}
	cancel, done := c.takeReaderLocked()
	c.mu.Unlock()

	if wasStreaming {
		joinReader(cancel, done)
		if err := c.backend.StopPreview(); err != nil {
			c.fail(err)
			return err
		}
		c.mu.Lock()
		c.lastPreviewStop = time.Now()
		c.mu.Unlock()
	}

	if err := c.waitSettle(ctx); err != nil {
		c.fail(err)
		return err
	}
	c.setState(StateCapturing)

	err := c.cfg.Retry.Run(ctx, func() error {
		attemptCtx, cancelAttempt := context.WithTimeout(ctx, c.cfg.CaptureTimeout)
		defer cancelAttempt()
		return c.backend.CaptureStill(attemptCtx, outputPath)
	})
	if err != nil {
		c.fail(err)
		return err
	}

	if !wasStreaming {
		c.setState(StateStopped)
		return nil
	}

	c.setState(StateResuming)
	if err := c.backend.StartPreview(ctx); err != nil {
		// The still image is already on disk; only the live view is lost.
		c.fail(err)
		return fmt.Errorf("%w: %w", ErrResumeFailed, err)
	}
	c.mu.Lock()
	c.startReaderLocked()
	c.state = StateStreaming
	c.mu.Unlock()
	return nil
}

// Reset force-kills any tracked processes, resets the camera connection and
// returns the controller to Stopped. It is the recovery path out of Failed
// and is also accepted from Stopped and Streaming. While a transition is in
// flight the reset is rejected with ErrBusy; the camera takes exactly one
// command sequence at a time, recovery included.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateStopped, StateStreaming, StateFailed:
	default:
		c.mu.Unlock()
		return ErrBusy
	}
	cancel, done := c.takeReaderLocked()
	c.state = StateStopping
	c.mu.Unlock()

	joinReader(cancel, done)
	if err := c.backend.StopPreview(); err != nil {
		slog.Warn("stop preview during reset", "error", err)
	}
	if err := c.backend.ResetDevice(ctx); err != nil {
		slog.Warn("device reset", "error", err)
	}

	c.mu.Lock()
	c.state = StateStopped
	c.lastErr = nil
	c.lastPreviewStop = time.Now()
	c.mu.Unlock()
	return nil
}

// waitSettle blocks until the settle delay since the last preview stop has
// fully elapsed.
func (c *Controller) waitSettle(ctx context.Context) error {
	c.mu.Lock()
	last := c.lastPreviewStop
	c.mu.Unlock()
	if last.IsZero() {
		return nil
	}
	remaining := c.cfg.SettleDelay - time.Since(last)
	if remaining <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(remaining):
		return nil
	}
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) fail(err error) {
	c.mu.Lock()
	c.state = StateFailed
	c.lastErr = err
	c.mu.Unlock()
	slog.Error("camera entered failed state", "error", err)
}

// startReaderLocked launches the single device reader loop. Caller holds mu.
func (c *Controller) startReaderLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.readerCancel = cancel
	c.readerDone = done
	go c.runReader(ctx, done)
}

// takeReaderLocked detaches the reader handles so the caller can join the
// loop outside the lock. Caller holds mu.
func (c *Controller) takeReaderLocked() (context.CancelFunc, chan struct{}) {
	cancel, done := c.readerCancel, c.readerDone
	c.readerCancel = nil
	c.readerDone = nil
	return cancel, done
}

func joinReader(cancel context.CancelFunc, done chan struct{}) {
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// runReader is the only goroutine that reads the device while streaming.
// Viewers get copies through the broadcaster, never device reads of their
// own.
func (c *Controller) runReader(ctx context.Context, done chan struct{}) {
	defer close(done)

	reader, err := c.source.Open(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("open frame source", "error", err)
		}
		return
	}
	defer reader.Close()

	for {
		if ctx.Err() != nil {
			return
		}
		frame, err := reader.ReadFrame()
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("frame reader stopped", "error", err)
				c.reportReaderFailure(done, err)
			}
			return
		}
		c.broadcaster.Publish(frame)
	}
}

// reportReaderFailure marks the controller Failed when the reader loop dies
// underneath an active stream, so health reporting shows a disconnect rather
// than a silently frozen preview. A loop that was already superseded by a
// deliberate transition changes nothing.
func (c *Controller) reportReaderFailure(done chan struct{}, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readerDone != done {
		return
	}
	c.readerCancel = nil
	c.readerDone = nil
	c.state = StateFailed
	if !IsKind(err, KindDisconnected) {
		err = &Error{Kind: KindDisconnected, Op: "stream", Err: err}
	}
	c.lastErr = err
}
