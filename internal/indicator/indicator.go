// Package indicator mirrors the reported label into a replaceable desktop
// notification and plays short audio cues on detection and reset.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Config controls which indicator surfaces are active.
type Config struct {
	Enable      bool
	SoundEnable bool
	AppName     string
	TimeoutMS   int
}

type update struct {
	label string
	cue   cueKind
}

// Notifier serializes indicator updates on its own goroutine so callers on
// the detection path never wait on DBus or the sound server.
type Notifier struct {
	cfg      Config
	logger   *slog.Logger
	messages messages

	notify  func(ctx context.Context, appName string, replaceID uint32, summary, body string, timeoutMS int) (uint32, error)
	dismiss func(ctx context.Context, id uint32) error
	cue     func(ctx context.Context, kind cueKind) error

	updates chan update

	mu             sync.Mutex
	notificationID uint32
}

// New creates a notifier. Run must be started for updates to be applied.
func New(cfg Config, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: messagesFromEnv(),
		notify:   desktopNotify,
		dismiss:  desktopDismiss,
		cue:      emitCue,
		updates:  make(chan update, 8),
	}
}

// Reported shows label and plays the detection cue.
func (n *Notifier) Reported(label string) {
	n.enqueue(update{label: label, cue: cueDetected})
}

// Cleared dismisses the label and plays the reset cue.
func (n *Notifier) Cleared() {
	n.enqueue(update{cue: cueReset})
}

func (n *Notifier) enqueue(u update) {
	if !n.cfg.Enable && !n.cfg.SoundEnable {
		return
	}
	select {
	case n.updates <- u:
	default:
		n.logger.Debug("indicator update dropped", "label", u.label)
	}
}

// Run applies queued updates until ctx is cancelled, then dismisses any
// notification still on screen.
func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			n.run(context.Background(), n.dismissCurrent)
			return nil
		case u := <-n.updates:
			n.apply(ctx, u)
		}
	}
}

func (n *Notifier) apply(ctx context.Context, u update) {
	if n.cfg.SoundEnable {
		if err := n.cue(ctx, u.cue); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}
	if !n.cfg.Enable {
		return
	}
	if u.label == "" {
		n.run(ctx, n.dismissCurrent)
		return
	}
	n.run(ctx, func(ctx context.Context) error { return n.show(ctx, u.label) })
}

func (n *Notifier) show(ctx context.Context, label string) error {
	n.mu.Lock()
	replaceID := n.notificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.AppName)
	if appName == "" {
		appName = "baserah"
	}

	id, err := n.notify(ctx, appName, replaceID, n.messages.detected, label, n.cfg.TimeoutMS)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.notificationID = id
	n.mu.Unlock()
	return nil
}

func (n *Notifier) dismissCurrent(ctx context.Context) error {
	n.mu.Lock()
	id := n.notificationID
	n.notificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return n.dismiss(ctx, id)
}

// run executes one indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

func (n *Notifier) log(message string, err error) {
	if err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
