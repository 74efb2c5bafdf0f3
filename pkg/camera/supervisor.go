package camera

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Backend is the process-level camera interface the controller drives.
type Backend interface {
	StartPreview(ctx context.Context) error
	StopPreview() error
	CaptureStill(ctx context.Context, outputPath string) error
	ResetDevice(ctx context.Context) error
}

// ProcessSupervisor runs the external camera tooling. The live view is a
// gphoto2 movie stream piped into an ffmpeg transcode that feeds the virtual
// video device; a still capture is a separate one-shot gphoto2 invocation.
// Every spawned pipeline gets its own process group so teardown can kill the
// shell and both children in one signal, on every exit path.
type ProcessSupervisor struct {
	Device         string
	StartupTimeout time.Duration
	StopGrace      time.Duration

	// FirstFrame confirms the preview pipeline is writing frames to the
	// virtual device. Wired to V4L2Source.Probe in production; nil skips
	// the check.
	FirstFrame func(ctx context.Context) error

	// Command overrides, used by tests to substitute shell stubs.
	PreviewCommand []string
	CaptureCommand func(outputPath string) []string
	DetectCommand  []string
	ResetCommand   []string

	mu       sync.Mutex
	pipeline *pipeline
}

// NewProcessSupervisor returns a supervisor for the given virtual device.
func NewProcessSupervisor(device string, startupTimeout time.Duration) *ProcessSupervisor {
	return &ProcessSupervisor{
		Device:         device,
		StartupTimeout: startupTimeout,
		StopGrace:      2 * time.Second,
	}
}

// pipeline tracks one spawned preview process group.
type pipeline struct {
	cmd    *exec.Cmd
	pgid   int
	done   chan struct{}
	stderr *bytes.Buffer
}

func (p *pipeline) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (s *ProcessSupervisor) previewCommand() []string {
	if len(s.PreviewCommand) > 0 {
		return s.PreviewCommand
	}
	pipe := fmt.Sprintf(
		"gphoto2 --stdout --capture-movie | ffmpeg -i - -vcodec rawvideo -pix_fmt yuv420p -threads 0 -f v4l2 %s",
		s.Device,
	)
	return []string{"sh", "-c", pipe}
}

func (s *ProcessSupervisor) captureCommand(outputPath string) []string {
	if s.CaptureCommand != nil {
		return s.CaptureCommand(outputPath)
	}
	return []string{
		"gphoto2",
		"--capture-image-and-download",
		"--filename", outputPath,
		"--force-overwrite",
	}
}

func (s *ProcessSupervisor) detectCommand() []string {
	if len(s.DetectCommand) > 0 {
		return s.DetectCommand
	}
	return []string{"gphoto2", "--auto-detect"}
}

func (s *ProcessSupervisor) resetCommand() []string {
	if len(s.ResetCommand) > 0 {
		return s.ResetCommand
	}
	return []string{"gphoto2", "--reset"}
}

// StartPreview spawns the live-view pipeline and waits for the first frame
// to appear on the virtual device. On any failure both processes are dead
// before the error is returned.
func (s *ProcessSupervisor) StartPreview(ctx context.Context) error {
	s.mu.Lock()
	if s.pipeline != nil && !s.pipeline.exited() {
		s.mu.Unlock()
		return nil
	}
	s.pipeline = nil
	s.mu.Unlock()

	argv := s.previewCommand()
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return &Error{Kind: KindProcessSpawnFailed, Op: "start preview", Err: err}
	}

	p := &pipeline{
		cmd:    cmd,
		pgid:   cmd.Process.Pid,
		done:   make(chan struct{}),
		stderr: stderr,
	}
	go func() {
		_ = cmd.Wait()
		close(p.done)
	}()

	s.mu.Lock()
	s.pipeline = p
	s.mu.Unlock()

	if err := s.awaitFirstFrame(ctx, p); err != nil {
		s.terminate(p)
		s.mu.Lock()
		if s.pipeline == p {
			s.pipeline = nil
		}
		s.mu.Unlock()
		return err
	}

	slog.Info("preview pipeline running", "pgid", p.pgid, "device", s.Device)
	return nil
}

func (s *ProcessSupervisor) awaitFirstFrame(ctx context.Context, p *pipeline) error {
	probeCtx, cancel := context.WithTimeout(ctx, s.StartupTimeout)
	defer cancel()

	probe := make(chan error, 1)
	go func() {
		if s.FirstFrame == nil {
			probe <- nil
			return
		}
		probe <- s.FirstFrame(probeCtx)
	}()

	select {
	case <-p.done:
		// The pipeline died before producing anything; its stderr says why.
		return classify("start preview", p.stderr.String(), fmt.Errorf("pipeline exited during startup"))
	case err := <-probe:
		if err == nil {
			return nil
		}
		if probeCtx.Err() != nil {
			return &Error{Kind: KindTimeout, Op: "start preview", Detail: "no frame within startup timeout", Err: err}
		}
		return fmt.Errorf("probe first frame: %w", err)
	}
}

// StopPreview terminates the live-view process group: graceful signal first,
// force kill after the grace period. Safe to call when nothing is running.
func (s *ProcessSupervisor) StopPreview() error {
	s.mu.Lock()
	p := s.pipeline
	s.pipeline = nil
	s.mu.Unlock()

	if p == nil {
		return nil
	}
	s.terminate(p)
	return nil
}

func (s *ProcessSupervisor) terminate(p *pipeline) {
	if p.exited() {
		return
	}
	_ = syscall.Kill(-p.pgid, syscall.SIGTERM)
	select {
	case <-p.done:
		return
	case <-time.After(s.StopGrace):
	}
	_ = syscall.Kill(-p.pgid, syscall.SIGKILL)
	<-p.done
	slog.Warn("preview pipeline required SIGKILL", "pgid", p.pgid)
}

// CaptureStill triggers the shutter and downloads the image to outputPath.
// The context bounds the attempt; on expiry the process group is killed
// before the timeout error is returned.
func (s *ProcessSupervisor) CaptureStill(ctx context.Context, outputPath string) error {
	argv := s.captureCommand(outputPath)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return &Error{Kind: KindProcessSpawnFailed, Op: "capture still", Err: err}
	}
	pgid := cmd.Process.Pid
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		<-done
		return &Error{Kind: KindTimeout, Op: "capture still", Detail: stderr.String(), Err: ctx.Err()}
	case err := <-done:
		if err != nil {
			return classify("capture still", stderr.String(), err)
		}
		return nil
	}
}

// Detect checks whether a camera is attached over USB.
func (s *ProcessSupervisor) Detect(ctx context.Context) error {
	argv := s.detectCommand()
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return &Error{Kind: KindNotDetected, Op: "detect", Detail: string(out), Err: err}
	}
	if !strings.Contains(string(out), "usb:") {
		return &Error{Kind: KindNotDetected, Op: "detect", Detail: strings.TrimSpace(string(out))}
	}
	return nil
}

// ResetDevice asks the camera to drop and re-enumerate its USB connection.
// Used by the failure-recovery path when the PTP handle is wedged.
func (s *ProcessSupervisor) ResetDevice(ctx context.Context) error {
	argv := s.resetCommand()
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return classify("reset device", string(out), err)
	}
	return nil
}
