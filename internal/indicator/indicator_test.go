package indicator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newFakeNotifier(cfg Config) (*Notifier, *recorder) {
	rec := &recorder{}
	n := New(cfg, nil)
	n.messages = indicatorMessages(localeEnglish)
	var nextID uint32
	n.notify = func(_ context.Context, appName string, replaceID uint32, summary, body string, timeoutMS int) (uint32, error) {
		nextID++
		rec.add(strings.Join([]string{"notify", appName, itoa(replaceID), summary, body, itoa(uint32(timeoutMS))}, " "))
		return nextID, nil
	}
	n.dismiss = func(_ context.Context, id uint32) error {
		rec.add("dismiss " + itoa(id))
		return nil
	}
	n.cue = func(_ context.Context, kind cueKind) error {
		rec.add("cue " + itoa(uint32(kind)))
		return nil
	}
	return n, rec
}

func itoa(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}

func runNotifier(t *testing.T, n *Notifier) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = n.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestNotifierShowsReplacesAndDismissesLabel(t *testing.T) {
	n, rec := newFakeNotifier(Config{Enable: true, AppName: "baserah-test"})
	runNotifier(t, n)

	n.Reported("سيارة")
	n.Reported("قطة")
	n.Cleared()

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 3 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{
		"notify baserah-test 0 Detected سيارة 0",
		"notify baserah-test 1 Detected قطة 0",
		"dismiss 2",
	}, rec.snapshot())
}

func TestNotifierPlaysCuesWhenSoundEnabled(t *testing.T) {
	n, rec := newFakeNotifier(Config{SoundEnable: true})
	runNotifier(t, n)

	n.Reported("car")
	n.Cleared()

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"cue 1", "cue 2"}, rec.snapshot())
}

func TestNotifierDisabledDropsUpdates(t *testing.T) {
	n, rec := newFakeNotifier(Config{})
	n.Reported("car")
	n.Cleared()
	require.Empty(t, n.updates)
	require.Empty(t, rec.snapshot())
}

func TestNotifierDismissesOnShutdown(t *testing.T) {
	n, rec := newFakeNotifier(Config{Enable: true})
	cancel := runNotifier(t, n)

	n.Reported("car")
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	require.Equal(t, "dismiss 1", rec.snapshot()[1])
}

func TestNotifierKeepsRunningAfterDispatchFailure(t *testing.T) {
	n, rec := newFakeNotifier(Config{Enable: true})
	n.notify = func(context.Context, string, uint32, string, string, int) (uint32, error) {
		rec.add("notify failed")
		return 0, errors.New("no notification daemon")
	}
	runNotifier(t, n)

	n.Reported("car")
	n.Cleared()

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, []string{"notify failed"}, rec.snapshot())
}

func TestDesktopNotifyAndDismissUseBusctl(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
if [ "$6" = "Notify" ]; then
  echo "u 17"
fi
`)

	id, err := desktopNotify(context.Background(), "baserah", 0, "Detected", "car", 0)
	require.NoError(t, err)
	require.Equal(t, uint32(17), id)
	require.NoError(t, desktopDismiss(context.Background(), id))

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "Notify susssasa{sv}i baserah 0  Detected car 0 0 0")
	require.Contains(t, lines[1], "CloseNotification u 17")
}

func TestDesktopNotifyRejectsUnexpectedReply(t *testing.T) {
	installBusctlStub(t, `echo "s nope"`)
	_, err := desktopNotify(context.Background(), "baserah", 0, "Detected", "car", 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid response")
}

func TestResolveLocale(t *testing.T) {
	require.Equal(t, localeArabic, resolveLocale("ar_SA.UTF-8"))
	require.Equal(t, localeEnglish, resolveLocale("en_US.UTF-8"))
	require.Equal(t, localeEnglish, resolveLocale(""))
	require.NotEqual(t, indicatorMessages(localeArabic).detected, indicatorMessages(localeEnglish).detected)
}

func installBusctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "busctl")
	script := "#!/usr/bin/env sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
