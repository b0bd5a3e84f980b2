// Package hypr wraps the hyprctl calls used for on-screen feedback.
package hypr

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Notification icons understood by `hyprctl dispatch notify`.
const (
	IconWarning = 0
	IconInfo    = 1
	IconHint    = 2
	IconError   = 3
	IconOK      = 5
)

// DefaultColor is used when Notify receives an empty color.
const DefaultColor = "rgb(89b4fa)"

// Version is the subset of `hyprctl -j version` reported by doctor.
type Version struct {
	Tag    string `json:"tag"`
	Commit string `json:"commit"`
}

// Notify shows a Hyprland notification.
func Notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.TrimSpace(color) == "" {
		color = DefaultColor
	}
	return runHyprctl(
		ctx,
		"--quiet",
		"dispatch",
		"notify",
		strconv.Itoa(icon),
		strconv.Itoa(timeoutMS),
		color,
		text,
	)
}

// DismissNotify dismisses active Hyprland notifications.
func DismissNotify(ctx context.Context) error {
	return runHyprctl(ctx, "--quiet", "dispatch", "dismissnotify")
}

// QueryVersion asks the running compositor for its version.
func QueryVersion(ctx context.Context) (Version, error) {
	output, err := runHyprctlOutput(ctx, "-j", "version")
	if err != nil {
		return Version{}, err
	}

	var version Version
	if err := json.Unmarshal(output, &version); err != nil {
		return Version{}, fmt.Errorf("decode hyprctl version json: %w", err)
	}
	version.Tag = strings.TrimSpace(version.Tag)
	version.Commit = strings.TrimSpace(version.Commit)
	if version.Tag == "" && version.Commit == "" {
		return Version{}, fmt.Errorf("hyprctl version returned no tag or commit")
	}
	return version, nil
}

func runHyprctl(ctx context.Context, args ...string) error {
	_, err := runHyprctlOutput(ctx, args...)
	return err
}

func runHyprctlOutput(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "hyprctl", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return nil, fmt.Errorf("hyprctl %v failed: %w", args, err)
		}
		return nil, fmt.Errorf("hyprctl %v failed: %w (%s)", args, err, trimmed)
	}
	return out, nil
}
