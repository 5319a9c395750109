// Package camera captures JPEG frames from a video device through ffmpeg.
package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Source states reported by Status.
const (
	StateStopped  = "stopped"
	StateStarting = "starting"
	StateRunning  = "running"
	StateError    = "error"
)

// Frame is one captured JPEG image.
type Frame struct {
	Seq        uint64
	CapturedAt time.Time
	JPEG       []byte
}

// Config selects the capture device or a full command override.
type Config struct {
	Device    string
	Width     int
	Height    int
	Framerate int
	// Argv replaces the generated ffmpeg command when set. It must write an
	// MJPEG stream to stdout.
	Argv []string
}

// DefaultConfig captures 640x480 at 10fps from the first V4L2 device.
func DefaultConfig() Config {
	return Config{Device: "/dev/video0", Width: 640, Height: 480, Framerate: 10}
}

// Command returns the argv used to start capture.
func (c Config) Command() []string {
	if len(c.Argv) > 0 {
		return append([]string(nil), c.Argv...)
	}
	def := DefaultConfig()
	device := strings.TrimSpace(c.Device)
	if device == "" {
		device = def.Device
	}
	width, height, fps := c.Width, c.Height, c.Framerate
	if width <= 0 || height <= 0 {
		width, height = def.Width, def.Height
	}
	if fps <= 0 {
		fps = def.Framerate
	}
	return []string{
		"ffmpeg",
		"-nostdin",
		"-hide_banner", "-loglevel", "error",
		"-f", "v4l2",
		"-framerate", strconv.Itoa(fps),
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-i", device,
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "5",
		"pipe:1",
	}
}

// Status is a snapshot of capture health.
type Status struct {
	State     string
	Frames    int64
	Dropped   int64
	LastError string
}

// Source runs the capture process and publishes frames latest-wins: a frame
// nobody has picked up yet is replaced by the next one.
type Source struct {
	cfg    Config
	logger *slog.Logger
	frames chan Frame

	mu        sync.Mutex
	state     string
	lastError string

	seq     uint64
	read    atomic.Int64
	dropped atomic.Int64
}

// NewSource prepares a source. Call Run to start capturing.
func NewSource(cfg Config, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{
		cfg:    cfg,
		logger: logger,
		frames: make(chan Frame, 1),
		state:  StateStopped,
	}
}

// Frames delivers captured frames. It is never closed.
func (s *Source) Frames() <-chan Frame {
	return s.frames
}

// Run captures until ctx is cancelled or the capture process fails.
func (s *Source) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateRunning || s.state == StateStarting {
		s.mu.Unlock()
		return errors.New("camera already running")
	}
	s.state = StateStarting
	s.lastError = ""
	s.mu.Unlock()

	argv := s.cfg.Command()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.setError(fmt.Sprintf("stdout pipe: %v", err))
		return fmt.Errorf("camera stdout pipe: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		s.setError(fmt.Sprintf("start %s: %v", argv[0], err))
		return fmt.Errorf("start camera %s: %w", argv[0], err)
	}
	s.setState(StateRunning)
	s.logger.Info("camera started", "command", strings.Join(argv, " "))

	readErr := s.consume(stdout)
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		s.setState(StateStopped)
		s.logger.Info("camera stopped", "frames", s.read.Load(), "dropped", s.dropped.Load())
		return nil
	}

	switch {
	case readErr != nil:
		err = readErr
	case waitErr != nil:
		err = fmt.Errorf("%w: %s", waitErr, strings.TrimSpace(stderr.String()))
	default:
		err = errors.New("capture ended unexpectedly")
	}
	s.setError(err.Error())
	s.logger.Error("camera failed", "error", err.Error())
	return fmt.Errorf("camera capture: %w", err)
}

// consume splits r into frames and offers each one.
func (s *Source) consume(r io.Reader) error {
	return SplitJPEG(r, func(jpeg []byte) {
		s.seq++
		s.read.Add(1)
		s.offer(Frame{Seq: s.seq, CapturedAt: time.Now(), JPEG: jpeg})
	})
}

// offer never blocks: a stale pending frame is dropped in favour of f.
func (s *Source) offer(f Frame) {
	for {
		select {
		case s.frames <- f:
			return
		default:
		}
		select {
		case <-s.frames:
			s.dropped.Add(1)
		default:
		}
	}
}

// Status returns a snapshot of capture state and counters.
func (s *Source) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:     s.state,
		Frames:    s.read.Load(),
		Dropped:   s.dropped.Load(),
		LastError: s.lastError,
	}
}

func (s *Source) setState(state string) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Source) setError(msg string) {
	s.mu.Lock()
	s.state = StateError
	s.lastError = msg
	s.mu.Unlock()
}
