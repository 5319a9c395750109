// Package session coordinates the detection loop: sampled frames flow through
// the classifier and the lock into announcements, while voice configuration
// changes flow into the resolver, all on one coordination goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/baserah/internal/bus"
	"github.com/rbright/baserah/internal/camera"
	"github.com/rbright/baserah/internal/classifier"
	"github.com/rbright/baserah/internal/detection"
	"github.com/rbright/baserah/internal/fsm"
	"github.com/rbright/baserah/internal/ipc"
	"github.com/rbright/baserah/internal/metrics"
	"github.com/rbright/baserah/internal/translate"
	"github.com/rbright/baserah/internal/voice"
)

// SentinelLabel is shown while nothing has been reported.
const SentinelLabel = "Detecting..."

// ErrNotRunning is returned for requests that need the coordination loop
// after it has stopped.
var ErrNotRunning = errors.New("detection session is not running")

// Announcer speaks labels and voice previews.
type Announcer interface {
	Announce(text string, profile voice.Profile)
	Preview(profile voice.Profile)
}

// LabelDisplay mirrors the reported label outside the process.
type LabelDisplay interface {
	Reported(label string)
	Cleared()
}

// FrameDumper persists sampled frames for debugging.
type FrameDumper interface {
	Dump(camera.Frame) (string, error)
}

// Deps wires a controller to its collaborators.
type Deps struct {
	Classifier    classifier.Classifier
	Announcer     Announcer
	Translator    *translate.Translator
	Resolver      *voice.Resolver
	Changes       *bus.Bus[voice.LocalChange]
	Limiter       *detection.Limiter
	MinConfidence float32
	Dumper        FrameDumper
	Display       LabelDisplay
	Now           func() time.Time
}

// Status is the read-only snapshot served to IPC and HTTP clients.
type Status struct {
	State  fsm.State
	Label  string
	Locked bool
	Voice  ipc.VoiceState
}

// Controller owns DetectionState, the Lock and the Resolver. Only Run's
// goroutine touches them; everything else talks to it through events.
type Controller struct {
	logger     *slog.Logger
	classifier classifier.Classifier
	announcer  Announcer
	translator *translate.Translator
	resolver   *voice.Resolver
	changes    *bus.Bus[voice.LocalChange]
	limiter    *detection.Limiter
	minConf    float32
	dumper     FrameDumper
	display    LabelDisplay
	now        func() time.Time

	events chan event
	done   chan struct{}

	// coordination goroutine only
	lock  detection.Lock
	state fsm.State
	label string

	mu       sync.RWMutex
	snapshot Status
}

// NewController validates deps and returns a controller ready to Run.
func NewController(logger *slog.Logger, deps Deps) (*Controller, error) {
	if deps.Classifier == nil {
		return nil, errors.New("session requires a classifier")
	}
	if deps.Announcer == nil {
		return nil, errors.New("session requires an announcer")
	}
	if deps.Resolver == nil {
		return nil, errors.New("session requires a voice resolver")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if deps.Translator == nil {
		deps.Translator = translate.New(nil)
	}
	if deps.Limiter == nil {
		deps.Limiter = detection.NewLimiter(detection.DefaultInterval)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	c := &Controller{
		logger:     logger,
		classifier: deps.Classifier,
		announcer:  deps.Announcer,
		translator: deps.Translator,
		resolver:   deps.Resolver,
		changes:    deps.Changes,
		limiter:    deps.Limiter,
		minConf:    deps.MinConfidence,
		dumper:     deps.Dumper,
		display:    deps.Display,
		now:        deps.Now,
		events:     make(chan event, 64),
		done:       make(chan struct{}),
		state:      fsm.StateScanning,
		label:      SentinelLabel,
	}
	c.publishSnapshot()
	return c, nil
}

// Status returns the latest published snapshot.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Run processes events until ctx is cancelled. It must be called once.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)

	c.resolver.Subscribe(func(active voice.Profile, source voice.Source) {
		c.logger.Info("active voice changed", "voice", active.Name, "language", active.Language, "source", string(source))
	})
	if c.changes != nil {
		unsubscribe := c.changes.Subscribe(func(change voice.LocalChange) {
			_ = c.submit(ctx, event{kind: eventLocalChange, profile: change.Profile})
		})
		defer unsubscribe()
	}

	c.logger.Info("detection loop started", "sample_interval_ms", c.limiter.Interval().Milliseconds())
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("detection loop stopped")
			return nil
		case ev := <-c.events:
			c.dispatch(ev)
		}
	}
}

// Capture samples frames until ctx is cancelled. It runs on its own goroutine
// so inference never blocks the coordination loop.
func (c *Controller) Capture(ctx context.Context, frames <-chan camera.Frame) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-frames:
			c.processFrame(ctx, frame)
		}
	}
}

// processFrame applies the rate limiter, runs the classifier and hands the
// result to the coordination loop.
func (c *Controller) processFrame(ctx context.Context, frame camera.Frame) {
	if !c.limiter.ShouldSample(c.now()) {
		return
	}
	metrics.FramesSampledTotal.Inc()

	if c.dumper != nil {
		if path, err := c.dumper.Dump(frame); err != nil {
			c.logger.Warn("frame dump failed", "error", err.Error())
		} else {
			c.logger.Debug("frame dumped", "path", path)
		}
	}

	started := time.Now()
	result, err := c.classifier.Classify(ctx, frame)
	metrics.ClassifyDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.ClassificationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		c.logger.Warn("classification failed", "seq", frame.Seq, "error", err.Error())
		return
	}
	if c.minConf > 0 && result.Confidence != nil && *result.Confidence < c.minConf {
		metrics.ClassificationsTotal.WithLabelValues(metrics.OutcomeBelowFloor).Inc()
		c.logger.Debug("classification below confidence floor", "label", result.Label, "confidence", *result.Confidence)
		return
	}
	metrics.ClassificationsTotal.WithLabelValues(metrics.OutcomeOK).Inc()

	_ = c.submit(ctx, event{kind: eventClassified, result: result})
}

// Reset clears the lock and label and waits until the loop has applied it.
func (c *Controller) Reset(ctx context.Context) (Status, error) {
	return c.request(ctx, event{kind: eventReset})
}

// RemoteDefaultPushed forwards a remote push into the loop.
func (c *Controller) RemoteDefaultPushed(ctx context.Context, p voice.Profile) {
	_ = c.submit(ctx, event{kind: eventRemotePush, profile: &p})
}

// Preview speaks the sample phrase with p, or with the active profile when p is nil.
func (c *Controller) Preview(ctx context.Context, p *voice.Profile) (Status, error) {
	return c.request(ctx, event{kind: eventPreview, profile: p})
}

// SetVoice persists a local override, then previews it once the loop has
// observed the change.
func (c *Controller) SetVoice(ctx context.Context, p voice.Profile) (Status, error) {
	if err := c.resolver.SetLocalOverride(p); err != nil {
		return c.Status(), err
	}
	saved := p.Normalize()
	return c.request(ctx, event{kind: eventPreview, profile: &saved})
}

// ClearVoice removes the local override and waits until the loop observed it.
func (c *Controller) ClearVoice(ctx context.Context) (Status, error) {
	if err := c.resolver.ClearLocalOverride(); err != nil {
		return c.Status(), err
	}
	return c.Sync(ctx)
}

// Sync waits until every event queued before the call has been processed.
func (c *Controller) Sync(ctx context.Context) (Status, error) {
	return c.request(ctx, event{kind: eventSync})
}

func (c *Controller) request(ctx context.Context, ev event) (Status, error) {
	ev.reply = make(chan Status, 1)
	if err := c.submit(ctx, ev); err != nil {
		return c.Status(), err
	}
	select {
	case st := <-ev.reply:
		return st, nil
	case <-ctx.Done():
		return c.Status(), ctx.Err()
	case <-c.done:
		return c.Status(), ErrNotRunning
	}
}

func (c *Controller) submit(ctx context.Context, ev event) error {
	select {
	case c.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrNotRunning
	}
}

// dispatch runs on the coordination goroutine.
func (c *Controller) dispatch(ev event) {
	switch ev.kind {
	case eventClassified:
		c.onClassified(ev.result)
	case eventReset:
		c.onReset()
	case eventLocalChange:
		c.resolver.OnLocalOverrideChanged(ev.profile)
		metrics.VoiceChangesTotal.WithLabelValues(string(voice.SourceLocal)).Inc()
	case eventRemotePush:
		if ev.profile != nil {
			c.resolver.OnRemoteDefaultPushed(*ev.profile)
			metrics.VoiceChangesTotal.WithLabelValues(string(voice.SourceRemote)).Inc()
		}
	case eventPreview:
		profile := c.resolver.Active()
		if ev.profile != nil {
			profile = ev.profile.Normalize()
		}
		c.announcer.Preview(profile)
	case eventSync:
	default:
		c.logger.Error("unknown session event", "kind", fmt.Sprint(ev.kind))
	}

	c.publishSnapshot()
	if ev.reply != nil {
		ev.reply <- c.Status()
	}
}

func (c *Controller) onClassified(result classifier.Result) {
	next, err := fsm.Transition(c.state, fsm.EventAdmit)
	if err != nil {
		c.logger.Error("detection transition failed", "error", err.Error())
		return
	}
	if !c.lock.Admit() {
		metrics.DetectionsTotal.WithLabelValues(metrics.ResultSuppressed).Inc()
		c.logger.Debug("detection suppressed while locked", "label", result.Label)
		return
	}

	c.state = next
	c.label = c.translator.Translate(result.Label)
	metrics.DetectionsTotal.WithLabelValues(metrics.ResultAdmitted).Inc()
	metrics.SetBool(metrics.DetectionLocked, true)

	active := c.resolver.Active()
	c.logger.Info("detection reported", "raw_label", result.Label, "label", c.label, "voice", active.Name)
	c.announcer.Announce(c.label, active)
	if c.display != nil {
		c.display.Reported(c.label)
	}
}

func (c *Controller) onReset() {
	next, err := fsm.Transition(c.state, fsm.EventReset)
	if err != nil {
		c.logger.Error("reset transition failed", "error", err.Error())
		return
	}
	c.lock.Reset()
	c.limiter.Rearm()
	c.state = next
	c.label = SentinelLabel
	metrics.ResetsTotal.Inc()
	metrics.SetBool(metrics.DetectionLocked, false)
	if c.display != nil {
		c.display.Cleared()
	}
	c.logger.Info("detection reset")
}

func (c *Controller) publishSnapshot() {
	st := Status{
		State:  c.state,
		Label:  c.label,
		Locked: c.lock.Locked(),
		Voice: ipc.VoiceState{
			Active: c.resolver.Active(),
			Source: string(c.resolver.ActiveSource()),
			Remote: c.resolver.Remote(),
		},
	}
	if local, ok := c.resolver.Local(); ok {
		st.Voice.Local = &local
	}

	c.mu.Lock()
	c.snapshot = st
	c.mu.Unlock()
}
