package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	notifyDest  = "org.freedesktop.Notifications"
	notifyPath  = "/org/freedesktop/Notifications"
	notifyIface = "org.freedesktop.Notifications"
)

// desktopNotify sends or replaces a freedesktop notification and returns the
// ID the server assigned to it.
func desktopNotify(ctx context.Context, appName string, replaceID uint32, summary, body string, timeoutMS int) (uint32, error) {
	out, err := callNotifications(ctx, "Notify", "susssasa{sv}i",
		appName,
		strconv.FormatUint(uint64(replaceID), 10),
		"", // icon
		summary,
		body,
		"0", // actions
		"0", // hints
		strconv.Itoa(timeoutMS),
	)
	if err != nil {
		return 0, fmt.Errorf("desktop notify: %w", err)
	}

	// busctl prints the reply as "u <id>".
	fields := strings.Fields(out)
	if len(fields) != 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", out)
	}
	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], err)
	}
	return uint32(id), nil
}

// desktopDismiss closes a notification by ID.
func desktopDismiss(ctx context.Context, id uint32) error {
	if _, err := callNotifications(ctx, "CloseNotification", "u", strconv.FormatUint(uint64(id), 10)); err != nil {
		return fmt.Errorf("desktop dismiss: %w", err)
	}
	return nil
}

func callNotifications(ctx context.Context, method, signature string, args ...string) (string, error) {
	argv := append([]string{"--user", "call", notifyDest, notifyPath, notifyIface, method, signature}, args...)
	out, err := exec.CommandContext(ctx, "busctl", argv...).CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed == "" {
			return "", err
		}
		return "", fmt.Errorf("%w (%s)", err, trimmed)
	}
	return trimmed, nil
}
