package camera

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		stderr string
		want   Kind
	}{
		{"ptp busy", "*** Error: PTP Device Busy ***", KindDeviceBusy},
		{"plain busy", "Error: Device Busy", KindDeviceBusy},
		{"io in progress", "An error occurred: I/O in progress", KindDeviceBusy},
		{"claim", "Could not claim the USB device", KindDeviceBusy},
		{"no camera", "*** Error: No camera found. ***", KindNotDetected},
		{"not detected", "Camera not detected", KindNotDetected},
		{"other", "segmentation fault", KindProcessSpawnFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classify("capture still", tc.stderr, nil)
			if err.Kind != tc.want {
				t.Errorf("classify(%q).Kind = %s, want %s", tc.stderr, err.Kind, tc.want)
			}
			if tc.want == KindDeviceBusy && !err.Retryable() {
				t.Error("busy error not retryable")
			}
		})
	}
}

func TestCaptureStillClassifiesBusy(t *testing.T) {
	s := NewProcessSupervisor("/dev/video9", time.Second)
	s.CaptureCommand = func(string) []string {
		return []string{"sh", "-c", "echo 'PTP Device Busy' >&2; exit 1"}
	}

	err := s.CaptureStill(context.Background(), "/tmp/ignored.jpg")
	if !IsKind(err, KindDeviceBusy) {
		t.Fatalf("CaptureStill = %v, want device busy", err)
	}
}

func TestCaptureStillWritesOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "cap.jpg")
	s := NewProcessSupervisor("/dev/video9", time.Second)
	s.CaptureCommand = func(path string) []string {
		return []string{"sh", "-c", "printf jpegdata > " + path}
	}

	if err := s.CaptureStill(context.Background(), out); err != nil {
		t.Fatalf("CaptureStill: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output file: %v", err)
	}
	if string(data) != "jpegdata" {
		t.Errorf("output = %q", data)
	}
}

func TestCaptureStillTimeoutKillsProcess(t *testing.T) {
	s := NewProcessSupervisor("/dev/video9", time.Second)
	s.CaptureCommand = func(string) []string {
		return []string{"sleep", "10"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := s.CaptureStill(ctx, "/tmp/ignored.jpg")
	if !IsKind(err, KindTimeout) {
		t.Fatalf("CaptureStill = %v, want timeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %s, process was not killed promptly", elapsed)
	}
}

func TestStartPreviewClassifiesEarlyExit(t *testing.T) {
	s := NewProcessSupervisor("/dev/video9", 2*time.Second)
	s.PreviewCommand = []string{"sh", "-c", "echo 'Could not claim the USB device' >&2; exit 1"}
	s.FirstFrame = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	err := s.StartPreview(context.Background())
	if !IsKind(err, KindDeviceBusy) {
		t.Fatalf("StartPreview = %v, want device busy", err)
	}
}

func TestStartPreviewTimesOutWithoutFrames(t *testing.T) {
	s := NewProcessSupervisor("/dev/video9", 100*time.Millisecond)
	s.StopGrace = 100 * time.Millisecond
	s.PreviewCommand = []string{"sleep", "10"}
	s.FirstFrame = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	err := s.StartPreview(context.Background())
	if !IsKind(err, KindTimeout) {
		t.Fatalf("StartPreview = %v, want timeout", err)
	}
	// The pipeline must already be dead; a stop is a no-op.
	if err := s.StopPreview(); err != nil {
		t.Errorf("StopPreview after failed start: %v", err)
	}
}

func TestStopPreviewTerminatesPipeline(t *testing.T) {
	s := NewProcessSupervisor("/dev/video9", time.Second)
	s.StopGrace = 500 * time.Millisecond
	s.PreviewCommand = []string{"sleep", "10"}

	if err := s.StartPreview(context.Background()); err != nil {
		t.Fatalf("StartPreview: %v", err)
	}
	start := time.Now()
	if err := s.StopPreview(); err != nil {
		t.Fatalf("StopPreview: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("stop took %s", elapsed)
	}
	if err := s.StopPreview(); err != nil {
		t.Errorf("second StopPreview: %v", err)
	}
}

func TestDetect(t *testing.T) {
	s := NewProcessSupervisor("/dev/video9", time.Second)

	s.DetectCommand = []string{"sh", "-c", "echo 'Model: Canon EOS 2000D   usb:001,004'"}
	if err := s.Detect(context.Background()); err != nil {
		t.Errorf("Detect with camera = %v, want nil", err)
	}

	s.DetectCommand = []string{"sh", "-c", "echo 'Model  Port'"}
	if err := s.Detect(context.Background()); !IsKind(err, KindNotDetected) {
		t.Errorf("Detect without camera = %v, want not detected", err)
	}
}
