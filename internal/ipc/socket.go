package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// ErrAlreadyRunning is returned by Acquire when a live session owns the socket.
var ErrAlreadyRunning = errors.New("baserah session already running")

// RuntimeSocketPath returns $XDG_RUNTIME_DIR/baserah.sock.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, "baserah.sock"), nil
}

// AcquireOptions tunes stale-socket recovery.
type AcquireOptions struct {
	ProbeTimeout time.Duration
	Retries      int
	Logger       *slog.Logger
}

// Lease is exclusive ownership of the session socket.
type Lease struct {
	Listener net.Listener
	Path     string
}

// Release closes the listener and unlinks the socket file.
func (l *Lease) Release() {
	if l == nil {
		return
	}
	_ = l.Listener.Close()
	_ = os.Remove(l.Path)
}

// Acquire binds path as the session socket. A socket left behind by a dead
// session is unlinked and the bind retried; a responsive one yields
// ErrAlreadyRunning. Sockets whose liveness cannot be determined are left alone.
func Acquire(ctx context.Context, path string, opts AcquireOptions) (*Lease, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 200 * time.Millisecond
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := 0; ; attempt++ {
		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return &Lease{Listener: listener, Path: path}, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}
		alive, probeErr := Probe(ctx, path, opts.ProbeTimeout)
		if alive {
			return nil, ErrAlreadyRunning
		}
		if probeErr != nil {
			return nil, fmt.Errorf("probe existing socket %s: %w", path, probeErr)
		}

		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
		}
		logger.Warn("removed stale session socket", "path", path, "attempt", attempt+1)
		if attempt >= opts.Retries {
			return nil, fmt.Errorf("acquire socket %s: still in use after %d retries", path, opts.Retries)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(25*(attempt+1)) * time.Millisecond):
		}
	}
}
