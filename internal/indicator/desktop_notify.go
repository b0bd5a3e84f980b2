package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

var notificationsObject = []string{
	"org.freedesktop.Notifications",
	"/org/freedesktop/Notifications",
	"org.freedesktop.Notifications",
}

// desktopNotify sends a freedesktop notification through busctl and returns
// the server-assigned ID. A non-zero replaceID updates that notification in place.
func desktopNotify(ctx context.Context, appName string, replaceID uint32, summary string, timeoutMS int) (uint32, error) {
	out, err := busctl(ctx, "Notify",
		"susssasa{sv}i",
		appName,
		strconv.FormatUint(uint64(replaceID), 10),
		"",
		summary,
		"",
		"0", // actions
		"0", // hints
		strconv.Itoa(timeoutMS),
	)
	if err != nil {
		return 0, fmt.Errorf("desktop notify failed: %w", err)
	}

	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", out)
	}
	value, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], err)
	}
	return uint32(value), nil
}

func desktopDismiss(ctx context.Context, id uint32) error {
	if _, err := busctl(ctx, "CloseNotification", "u", strconv.FormatUint(uint64(id), 10)); err != nil {
		return fmt.Errorf("desktop dismiss failed: %w", err)
	}
	return nil
}

func busctl(ctx context.Context, method string, args ...string) (string, error) {
	argv := append([]string{"--user", "call"}, notificationsObject...)
	argv = append(argv, method)
	argv = append(argv, args...)

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
