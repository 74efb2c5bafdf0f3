package camera

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync/atomic"
)

// Frame is one decoded preview image. The payload is owned by the receiver;
// it is fully copied out of the read buffer before the buffer is reused.
type Frame struct {
	Width   int
	Height  int
	PixFmt  string
	Seq     uint64
	Payload []byte
}

// FrameReader yields frames from an open device stream.
type FrameReader interface {
	// ReadFrame blocks until the next full frame is available.
	ReadFrame() (Frame, error)
	Close() error
}

// FrameSource opens a frame stream against the virtual video device.
type FrameSource interface {
	Open(ctx context.Context) (FrameReader, error)
}

// V4L2Source reads MJPEG frames from the virtual video device through an
// ffmpeg transcode to image2pipe. One Open corresponds to one reader process.
type V4L2Source struct {
	Device string
	Width  int
	Height int

	// Command overrides the reader invocation, used by tests.
	Command []string
}

func (s *V4L2Source) command() []string {
	if len(s.Command) > 0 {
		return s.Command
	}
	return []string{
		"ffmpeg",
		"-loglevel", "error",
		"-f", "v4l2",
		"-i", s.Device,
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-",
	}
}

// Open spawns the reader process. The process dies with the context.
func (s *V4L2Source) Open(ctx context.Context) (FrameReader, error) {
	argv := s.command()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &Error{Kind: KindProcessSpawnFailed, Op: "open frame source", Err: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &Error{Kind: KindProcessSpawnFailed, Op: "open frame source", Detail: stderr.String(), Err: err}
	}
	return &v4l2Reader{
		cmd:    cmd,
		scan:   &frameScanner{r: stdout},
		width:  s.Width,
		height: s.Height,
	}, nil
}

// Probe opens the stream, waits for a single frame and closes again. The
// supervisor uses it to confirm the preview pipeline is actually producing
// frames on the virtual device.
func (s *V4L2Source) Probe(ctx context.Context) error {
	r, err := s.Open(ctx)
	if err != nil {
		return err
	}
	defer r.Close()
	if _, err := r.ReadFrame(); err != nil {
		return err
	}
	return nil
}

type v4l2Reader struct {
	cmd    *exec.Cmd
	scan   *frameScanner
	width  int
	height int
	seq    atomic.Uint64
}

func (r *v4l2Reader) ReadFrame() (Frame, error) {
	payload, err := r.scan.next()
	if err != nil {
		if err == io.EOF {
			return Frame{}, &Error{Kind: KindDisconnected, Op: "read frame", Err: err}
		}
		return Frame{}, fmt.Errorf("read frame: %w", err)
	}
	return Frame{
		Width:   r.width,
		Height:  r.height,
		PixFmt:  "mjpeg",
		Seq:     r.seq.Add(1),
		Payload: payload,
	}, nil
}

func (r *v4l2Reader) Close() error {
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
	_ = r.cmd.Wait()
	return nil
}

// JPEG markers
var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// maxFrameBuffer guards against a stream that never produces an end marker.
const maxFrameBuffer = 10 * 1024 * 1024

// frameScanner extracts complete JPEG images from a concatenated MJPEG byte
// stream by scanning for start/end-of-image markers.
type frameScanner struct {
	r       io.Reader
	pending []byte
}

// next returns the payload of the next complete frame. The returned slice is
// a fresh copy; pending bytes after the end marker are kept for the frame
// that follows.
func (s *frameScanner) next() ([]byte, error) {
	buf := make([]byte, 4096)
	for {
		if frame := s.extract(); frame != nil {
			return frame, nil
		}
		if len(s.pending) > maxFrameBuffer {
			s.pending = nil
			return nil, fmt.Errorf("frame exceeds %d bytes without end marker", maxFrameBuffer)
		}
		n, err := s.r.Read(buf)
		if n > 0 {
			s.pending = append(s.pending, buf[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				// A final complete frame may sit in the buffer.
				if frame := s.extract(); frame != nil {
					return frame, nil
				}
			}
			return nil, err
		}
	}
}

func (s *frameScanner) extract() []byte {
	start := bytes.Index(s.pending, jpegSOI)
	if start < 0 {
		// Nothing useful buffered, avoid unbounded growth on garbage input.
		if len(s.pending) > len(jpegSOI) {
			s.pending = s.pending[len(s.pending)-1:]
		}
		return nil
	}
	end := bytes.Index(s.pending[start+len(jpegSOI):], jpegEOI)
	if end < 0 {
		return nil
	}
	end += start + len(jpegSOI) + len(jpegEOI)
	frame := make([]byte, end-start)
	copy(frame, s.pending[start:end])
	rest := s.pending[end:]
	s.pending = append(s.pending[:0:0], rest...)
	return frame
}
