package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/baserah/internal/bus"
	"github.com/rbright/baserah/internal/camera"
	"github.com/rbright/baserah/internal/classifier"
	"github.com/rbright/baserah/internal/fsm"
	"github.com/rbright/baserah/internal/store"
	"github.com/rbright/baserah/internal/voice"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fakeClassifier struct {
	mu      sync.Mutex
	results []classifier.Result
	errs    []error
	calls   int
}

func (f *fakeClassifier) queue(label string) {
	f.mu.Lock()
	f.results = append(f.results, classifier.Result{Label: label})
	f.errs = append(f.errs, nil)
	f.mu.Unlock()
}

func (f *fakeClassifier) queueResult(res classifier.Result, err error) {
	f.mu.Lock()
	f.results = append(f.results, res)
	f.errs = append(f.errs, err)
	f.mu.Unlock()
}

func (f *fakeClassifier) Classify(context.Context, camera.Frame) (classifier.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.results) == 0 {
		return classifier.Result{}, errors.New("no result queued")
	}
	res, err := f.results[0], f.errs[0]
	f.results, f.errs = f.results[1:], f.errs[1:]
	return res, err
}

func (f *fakeClassifier) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type announcement struct {
	text    string
	profile voice.Profile
}

type fakeAnnouncer struct {
	mu        sync.Mutex
	announced []announcement
	previews  []voice.Profile
}

func (f *fakeAnnouncer) Announce(text string, profile voice.Profile) {
	f.mu.Lock()
	f.announced = append(f.announced, announcement{text: text, profile: profile})
	f.mu.Unlock()
}

func (f *fakeAnnouncer) Preview(profile voice.Profile) {
	f.mu.Lock()
	f.previews = append(f.previews, profile)
	f.mu.Unlock()
}

func (f *fakeAnnouncer) Announced() []announcement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]announcement(nil), f.announced...)
}

func (f *fakeAnnouncer) Previews() []voice.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]voice.Profile(nil), f.previews...)
}

type fakeDumper struct {
	mu   sync.Mutex
	seqs []uint64
}

func (f *fakeDumper) Dump(frame camera.Frame) (string, error) {
	f.mu.Lock()
	f.seqs = append(f.seqs, frame.Seq)
	f.mu.Unlock()
	return "/tmp/frame.jpg", nil
}

type fakeDisplay struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeDisplay) Reported(label string) {
	f.mu.Lock()
	f.events = append(f.events, "show "+label)
	f.mu.Unlock()
}

func (f *fakeDisplay) Cleared() {
	f.mu.Lock()
	f.events = append(f.events, "clear")
	f.mu.Unlock()
}

func (f *fakeDisplay) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

type harness struct {
	ctrl       *Controller
	clock      *fakeClock
	classifier *fakeClassifier
	announcer  *fakeAnnouncer
	resolver   *voice.Resolver
	store      *store.FileStore
	ctx        context.Context
	cancel     context.CancelFunc
	runDone    chan error
}

func newHarness(t *testing.T, mutate func(*Deps)) *harness {
	t.Helper()

	h := &harness{
		clock:      &fakeClock{now: time.Unix(1_700_000_000, 0)},
		classifier: &fakeClassifier{},
		announcer:  &fakeAnnouncer{},
		store:      store.New(filepath.Join(t.TempDir(), "voice.yaml")),
		runDone:    make(chan error, 1),
	}
	changes := bus.New[voice.LocalChange]()
	h.resolver = voice.NewResolver(h.store, changes)

	deps := Deps{
		Classifier: h.classifier,
		Announcer:  h.announcer,
		Resolver:   h.resolver,
		Changes:    changes,
		Now:        h.clock.Now,
	}
	if mutate != nil {
		mutate(&deps)
	}

	ctrl, err := NewController(nil, deps)
	require.NoError(t, err)
	h.ctrl = ctrl

	h.ctx, h.cancel = context.WithCancel(context.Background())
	go func() { h.runDone <- ctrl.Run(h.ctx) }()
	_, err = ctrl.Sync(h.ctx)
	require.NoError(t, err)

	t.Cleanup(func() {
		h.cancel()
		select {
		case <-h.runDone:
		case <-time.After(2 * time.Second):
			t.Error("controller did not stop")
		}
	})
	return h
}

// frameAt samples one frame at the given offset and waits for the loop.
func (h *harness) frameAt(t *testing.T, offset time.Duration) Status {
	t.Helper()
	h.clock.Set(time.Unix(1_700_000_000, 0).Add(offset))
	h.ctrl.processFrame(h.ctx, camera.Frame{Seq: uint64(offset / time.Millisecond)})
	st, err := h.ctrl.Sync(h.ctx)
	require.NoError(t, err)
	return st
}

func TestEndToEndDetectionScenario(t *testing.T) {
	h := newHarness(t, nil)

	// t=0: sampled and admitted
	h.classifier.queue("car")
	st := h.frameAt(t, 0)
	require.Equal(t, fsm.StateReported, st.State)
	require.True(t, st.Locked)
	require.Equal(t, "سياره", st.Label)
	require.Equal(t, []announcement{{text: "سياره", profile: voice.Default()}}, h.announcer.Announced())
	require.Equal(t, 1, h.classifier.Calls())

	// t=0.5: inside the interval, classifier not called
	h.frameAt(t, 500*time.Millisecond)
	require.Equal(t, 1, h.classifier.Calls())

	// t=1.2: classified but suppressed by the lock
	h.classifier.queue("car")
	st = h.frameAt(t, 1200*time.Millisecond)
	require.Equal(t, 2, h.classifier.Calls())
	require.Equal(t, fsm.StateReported, st.State)
	require.Len(t, h.announcer.Announced(), 1)

	// t=2: external reset, nothing spoken
	h.clock.Set(time.Unix(1_700_000_000, 0).Add(2 * time.Second))
	st, err := h.ctrl.Reset(h.ctx)
	require.NoError(t, err)
	require.Equal(t, fsm.StateScanning, st.State)
	require.False(t, st.Locked)
	require.Equal(t, SentinelLabel, st.Label)
	require.Len(t, h.announcer.Announced(), 1)

	// t=2.1: admitted again
	h.classifier.queue("apple")
	st = h.frameAt(t, 2100*time.Millisecond)
	require.Equal(t, 3, h.classifier.Calls())
	require.Equal(t, "تفاح", st.Label)
	announced := h.announcer.Announced()
	require.Len(t, announced, 2)
	require.Equal(t, "تفاح", announced[1].text)
}

func TestClassifierErrorLeavesStateUntouched(t *testing.T) {
	h := newHarness(t, nil)

	h.classifier.queueResult(classifier.Result{}, errors.New("inference failed"))
	st := h.frameAt(t, 0)
	require.Equal(t, fsm.StateScanning, st.State)
	require.False(t, st.Locked)
	require.Equal(t, SentinelLabel, st.Label)
	require.Empty(t, h.announcer.Announced())

	h.classifier.queue("banana")
	st = h.frameAt(t, time.Second)
	require.Equal(t, "موز", st.Label)
}

func TestUnknownLabelIsAnnouncedVerbatim(t *testing.T) {
	h := newHarness(t, nil)

	h.classifier.queue("zebra")
	st := h.frameAt(t, 0)
	require.Equal(t, "zebra", st.Label)
	require.Equal(t, "zebra", h.announcer.Announced()[0].text)
}

func TestConfidenceFloorDiscardsWeakResults(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.MinConfidence = 0.5 })

	weak := float32(0.2)
	h.classifier.queueResult(classifier.Result{Label: "car", Confidence: &weak}, nil)
	st := h.frameAt(t, 0)
	require.False(t, st.Locked)
	require.Empty(t, h.announcer.Announced())

	strong := float32(0.9)
	h.classifier.queueResult(classifier.Result{Label: "car", Confidence: &strong}, nil)
	st = h.frameAt(t, time.Second)
	require.True(t, st.Locked)
	require.Len(t, h.announcer.Announced(), 1)
}

func TestDumperReceivesSampledFramesOnly(t *testing.T) {
	dumper := &fakeDumper{}
	h := newHarness(t, func(d *Deps) { d.Dumper = dumper })

	h.classifier.queue("car")
	h.frameAt(t, 0)
	h.frameAt(t, 300*time.Millisecond)
	h.classifier.queue("car")
	h.frameAt(t, time.Second)

	dumper.mu.Lock()
	defer dumper.mu.Unlock()
	require.Equal(t, []uint64{0, 1000}, dumper.seqs)
}

func TestDisplayMirrorsReportedLabelAndReset(t *testing.T) {
	display := &fakeDisplay{}
	h := newHarness(t, func(d *Deps) { d.Display = display })

	h.classifier.queue("car")
	h.frameAt(t, 0)
	h.classifier.queue("car")
	h.frameAt(t, time.Second)

	_, err := h.ctrl.Reset(h.ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"show سياره", "clear"}, display.Events())
}

func TestAnnouncementUsesActiveVoice(t *testing.T) {
	h := newHarness(t, nil)

	remote := voice.Profile{Name: "Salma", Volume: 0.3, Rate: 0.6, Pitch: 1.1, Language: "ar-SA"}
	h.ctrl.RemoteDefaultPushed(h.ctx, remote)

	h.classifier.queue("car")
	h.frameAt(t, 0)
	require.Equal(t, remote, h.announcer.Announced()[0].profile)

	local := voice.Profile{Name: "Omar", Volume: 0.9, Rate: 0.2, Pitch: 0.8, Language: "en-US"}
	st, err := h.ctrl.SetVoice(h.ctx, local)
	require.NoError(t, err)
	require.Equal(t, local, st.Voice.Active)
	require.Equal(t, "local", st.Voice.Source)

	_, err = h.ctrl.Reset(h.ctx)
	require.NoError(t, err)
	h.classifier.queue("apple")
	h.frameAt(t, 2*time.Second)
	require.Equal(t, local, h.announcer.Announced()[1].profile)
}

func TestRemotePushWhileOverriddenKeepsLocal(t *testing.T) {
	h := newHarness(t, nil)

	local := voice.Profile{Name: "Omar", Volume: 0.9, Rate: 0.2, Pitch: 0.8, Language: "en-US"}
	_, err := h.ctrl.SetVoice(h.ctx, local)
	require.NoError(t, err)

	first := voice.Profile{Name: "Salma", Volume: 0.3, Rate: 0.6, Pitch: 1.1, Language: "ar-SA"}
	second := voice.Profile{Name: "Noor", Volume: 0.4, Rate: 0.5, Pitch: 1.0, Language: "ar-SA"}
	h.ctrl.RemoteDefaultPushed(h.ctx, first)
	h.ctrl.RemoteDefaultPushed(h.ctx, second)
	st, err := h.ctrl.Sync(h.ctx)
	require.NoError(t, err)

	require.Equal(t, local, st.Voice.Active)
	require.Equal(t, second, st.Voice.Remote)
	require.NotNil(t, st.Voice.Local)

	st, err = h.ctrl.ClearVoice(h.ctx)
	require.NoError(t, err)
	require.Equal(t, second, st.Voice.Active)
	require.Equal(t, "remote", st.Voice.Source)
	require.Nil(t, st.Voice.Local)

	persisted, err := voice.LoadOverride(h.store)
	require.NoError(t, err)
	require.Nil(t, persisted)
}

func TestPreviewUsesActiveOrGivenProfile(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.ctrl.Preview(h.ctx, nil)
	require.NoError(t, err)

	given := voice.Profile{Name: "Layla", Volume: 5, Rate: 0.4, Pitch: 1.0, Language: "en-US"}
	_, err = h.ctrl.Preview(h.ctx, &given)
	require.NoError(t, err)

	previews := h.announcer.Previews()
	require.Len(t, previews, 2)
	require.Equal(t, voice.Default(), previews[0])
	require.Equal(t, "Layla", previews[1].Name)
	require.Equal(t, 1.0, previews[1].Volume)
	require.Empty(t, h.announcer.Announced())
}

func TestCaptureSamplesFramesUntilCancelled(t *testing.T) {
	h := newHarness(t, nil)
	h.classifier.queue("car")

	frames := make(chan camera.Frame, 1)
	ctx, cancel := context.WithCancel(h.ctx)
	done := make(chan error, 1)
	go func() { done <- h.ctrl.Capture(ctx, frames) }()

	frames <- camera.Frame{Seq: 1}
	require.Eventually(t, func() bool { return h.ctrl.Status().Locked }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("capture did not stop")
	}
}

func TestRequestsFailAfterRunStops(t *testing.T) {
	h := newHarness(t, nil)
	h.cancel()
	require.NoError(t, <-h.runDone)
	h.runDone <- nil

	_, err := h.ctrl.Reset(context.Background())
	require.ErrorIs(t, err, ErrNotRunning)
}

func TestNewControllerValidatesDeps(t *testing.T) {
	resolver := voice.NewResolver(nil, nil)

	_, err := NewController(nil, Deps{Announcer: &fakeAnnouncer{}, Resolver: resolver})
	require.ErrorContains(t, err, "classifier")

	_, err = NewController(nil, Deps{Classifier: &fakeClassifier{}, Resolver: resolver})
	require.ErrorContains(t, err, "announcer")

	_, err = NewController(nil, Deps{Classifier: &fakeClassifier{}, Announcer: &fakeAnnouncer{}})
	require.ErrorContains(t, err, "resolver")

	ctrl, err := NewController(nil, Deps{Classifier: &fakeClassifier{}, Announcer: &fakeAnnouncer{}, Resolver: resolver})
	require.NoError(t, err)
	st := ctrl.Status()
	require.Equal(t, fsm.StateScanning, st.State)
	require.Equal(t, SentinelLabel, st.Label)
	require.Equal(t, voice.Default(), st.Voice.Active)
}
