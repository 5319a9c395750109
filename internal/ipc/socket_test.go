package ipc

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireRecoversStaleSocket(t *testing.T) {
	t.Parallel()

	socketPath := filepath.Join(t.TempDir(), "baserah.sock")
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o600))

	var logs bytes.Buffer
	lease, err := Acquire(context.Background(), socketPath, AcquireOptions{
		ProbeTimeout: 50 * time.Millisecond,
		Retries:      2,
		Logger:       slog.New(slog.NewJSONHandler(&logs, nil)),
	})
	require.NoError(t, err)
	require.Contains(t, logs.String(), "removed stale session socket")

	info, err := os.Stat(socketPath)
	require.NoError(t, err)
	require.Equal(t, os.ModeSocket, info.Mode().Type())
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	lease.Release()
	_, err = os.Stat(socketPath)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestAcquireGivesUpWithoutRetries(t *testing.T) {
	t.Parallel()

	socketPath := filepath.Join(t.TempDir(), "baserah.sock")
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o600))

	_, err := Acquire(context.Background(), socketPath, AcquireOptions{ProbeTimeout: 50 * time.Millisecond})
	require.Error(t, err)
	require.Contains(t, err.Error(), "still in use after 0 retries")
}

func TestAcquireReturnsAlreadyRunningWhenSocketResponsive(t *testing.T) {
	t.Parallel()

	socketPath := filepath.Join(t.TempDir(), "baserah.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	defer listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- Serve(ctx, listener, HandlerFunc(func(context.Context, Request) Response {
			return Response{OK: true, State: "reported"}
		}))
	}()

	_, err = Acquire(context.Background(), socketPath, AcquireOptions{ProbeTimeout: 80 * time.Millisecond, Retries: 1})
	require.ErrorIs(t, err, ErrAlreadyRunning)

	cancel()
	require.NoError(t, <-serverDone)
}

func TestAcquireDoesNotUnlinkWhenProbeInconclusive(t *testing.T) {
	t.Parallel()

	socketPath := filepath.Join(t.TempDir(), "baserah.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		for {
			conn, acceptErr := listener.Accept()
			if acceptErr != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				time.Sleep(250 * time.Millisecond)
			}(conn)
		}
	}()

	_, err = Acquire(context.Background(), socketPath, AcquireOptions{ProbeTimeout: 30 * time.Millisecond})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrAlreadyRunning)
	require.Contains(t, err.Error(), "probe existing socket")

	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
	require.NoError(t, listener.Close())
	<-acceptDone
}

func TestReleaseNilLeaseIsNoop(t *testing.T) {
	var lease *Lease
	require.NotPanics(t, lease.Release)
}

func TestRuntimeSocketPathRequiresXDG(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	_, err := RuntimeSocketPath()
	require.Error(t, err)
}

func TestRuntimeSocketPathUsesXDG(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	path, err := RuntimeSocketPath()
	require.NoError(t, err)
	require.Equal(t, "/run/user/1000/baserah.sock", path)
}
