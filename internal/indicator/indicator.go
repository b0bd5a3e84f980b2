// Package indicator shows wake-window notices and plays audio cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/aurora/internal/config"
	"github.com/rbright/aurora/internal/hypr"
)

// Controller is the listener-facing indicator contract.
type Controller interface {
	ShowArmed(context.Context)
	ShowCommand(context.Context, string)
	ShowTimeout(context.Context)
	ShowError(context.Context, string)
	Hide(context.Context)
}

const (
	colorArmed   = "rgb(89b4fa)"
	colorCommand = "rgb(a6e3a1)"
	colorTimeout = "rgb(f9e2af)"
	colorError   = "rgb(f38ba8)"

	commandTimeoutMS = 1500
	timeoutNoticeMS  = 1600
)

// Notifier routes notices through Hyprland or desktop DBus based on config backend.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages
	window   time.Duration

	mu                    sync.Mutex
	desktopNotificationID uint32
	soundMu               sync.Mutex
	cues                  sync.WaitGroup
}

// NewNotifier creates an indicator for one wake window length.
// language selects the built-in notice texts; config texts override them.
func NewNotifier(cfg config.IndicatorConfig, language string, window time.Duration, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: indicatorMessages(resolveLocale(language)).override(cfg),
		window:   window,
	}
}

// ShowArmed signals an open command window for its full length.
func (n *Notifier) ShowArmed(ctx context.Context) {
	n.playCue(cueWake)
	if !n.cfg.Enable {
		return
	}
	timeout := int(n.window / time.Millisecond)
	if timeout <= 0 {
		timeout = timeoutNoticeMS
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, hypr.IconInfo, timeout, colorArmed, n.messages.armed)
	})
}

// ShowCommand signals that a classified command is being dispatched.
func (n *Notifier) ShowCommand(ctx context.Context, description string) {
	n.playCue(cueDispatch)
	if !n.cfg.Enable {
		return
	}
	text := n.messages.command
	if description = strings.TrimSpace(description); description != "" {
		text = text + ": " + description
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, hypr.IconOK, commandTimeoutMS, colorCommand, text)
	})
}

// ShowTimeout signals that the command window closed without a command.
func (n *Notifier) ShowTimeout(ctx context.Context) {
	n.playCue(cueTimeout)
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, hypr.IconWarning, timeoutNoticeMS, colorTimeout, n.messages.timeout)
	})
}

// ShowError displays an error notice. Empty text uses the configured error message.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	n.playCue(cueError)
	if !n.cfg.Enable {
		return
	}
	if strings.TrimSpace(text) == "" {
		text = n.messages.errorText
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, hypr.IconError, timeout, colorError, text)
	})
}

// Hide dismisses the active notice.
func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, n.dismiss)
}

// Wait blocks until queued cues have finished playing.
func (n *Notifier) Wait() {
	n.cues.Wait()
}

func (n *Notifier) notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop") {
		return n.notifyDesktop(ctx, timeoutMS, text)
	}
	return hypr.Notify(ctx, icon, timeoutMS, color, text)
}

func (n *Notifier) dismiss(ctx context.Context) error {
	if strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop") {
		return n.dismissDesktop(ctx)
	}
	return hypr.DismissNotify(ctx)
}

// notifyDesktop replaces the previous desktop notice so only one is visible.
func (n *Notifier) notifyDesktop(ctx context.Context, timeoutMS int, text string) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "aurora-indicator"
	}

	id, err := desktopNotify(ctx, appName, replaceID, text, timeoutMS)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes one notice with a bounded timeout so the listener never stalls on it.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes playback and emits audio asynchronously.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	n.cues.Add(1)
	go func() {
		defer n.cues.Done()
		n.soundMu.Lock()
		defer n.soundMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		if err := emitCue(ctx, kind, n.cfg); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}

// Nop is a Controller that does nothing.
type Nop struct{}

func (Nop) ShowArmed(context.Context)           {}
func (Nop) ShowCommand(context.Context, string) {}
func (Nop) ShowTimeout(context.Context)         {}
func (Nop) ShowError(context.Context, string)   {}
func (Nop) Hide(context.Context)                {}
