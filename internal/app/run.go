package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rbright/baserah/internal/audio"
	"github.com/rbright/baserah/internal/bus"
	"github.com/rbright/baserah/internal/camera"
	"github.com/rbright/baserah/internal/classifier"
	"github.com/rbright/baserah/internal/config"
	"github.com/rbright/baserah/internal/detection"
	"github.com/rbright/baserah/internal/httpapi"
	"github.com/rbright/baserah/internal/indicator"
	"github.com/rbright/baserah/internal/ipc"
	"github.com/rbright/baserah/internal/metrics"
	"github.com/rbright/baserah/internal/remote"
	"github.com/rbright/baserah/internal/session"
	"github.com/rbright/baserah/internal/speech"
	"github.com/rbright/baserah/internal/store"
	"github.com/rbright/baserah/internal/translate"
	"github.com/rbright/baserah/internal/voice"
)

// classifierFactory is replaced in tests so run can be exercised without a model.
var classifierFactory = func(cfg config.ClassifierConfig) (classifier.Classifier, func(), error) {
	c, err := classifier.NewONNX(classifier.ONNXConfig{
		ModelPath:   cfg.Model,
		LabelsPath:  cfg.Labels,
		LibraryPath: cfg.Library,
		InputName:   cfg.InputName,
		OutputName:  cfg.OutputName,
	})
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	lease, err := ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{
		ProbeTimeout: 180 * time.Millisecond,
		Retries:      8,
		Logger:       logger,
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer lease.Release()

	logger = logger.With("session_id", uuid.NewString())
	started := time.Now()
	if err := runSession(ctx, cfg, logger, lease.Listener); err != nil {
		logger.Error("session failed", "error", err.Error(), "duration_ms", time.Since(started).Milliseconds())
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	logger.Info("session complete", "duration_ms", time.Since(started).Milliseconds())
	return 0
}

// runSession wires every collaborator around one controller and runs them
// until ctx is cancelled or one of them fails.
func runSession(ctx context.Context, cfg config.Config, logger *slog.Logger, listener net.Listener) error {
	path, err := storePath(cfg)
	if err != nil {
		return err
	}
	st := store.New(path)

	changes := bus.New[voice.LocalChange]()
	resolver := voice.NewResolver(st, changes)

	// Baseline before the initial read: an edit between the two must still
	// count as a change.
	watcher := store.NewWatcher(path, time.Duration(cfg.Store.PollIntervalMS)*time.Millisecond,
		logger.With("component", "store"), reloadOverride(st, changes, logger))
	local, err := voice.LoadOverride(st)
	if err != nil {
		logger.Warn("ignoring unreadable voice override", "path", path, "error", err.Error())
	} else {
		resolver.OnLocalOverrideChanged(local)
	}

	cls, closeClassifier, err := classifierFactory(cfg.Classifier)
	if err != nil {
		return fmt.Errorf("load classifier: %w", err)
	}
	defer closeClassifier()

	sink := ""
	if sel, err := audio.SelectDevice(ctx, cfg.Audio.Output, cfg.Audio.Fallback); err != nil {
		logger.Warn("output sink selection failed; using server default", "error", err.Error())
	} else {
		sink = sel.Device.ID
		if sel.Warning != "" {
			logger.Warn("output sink fallback", "warning", sel.Warning)
		}
	}

	engine := speech.NewESpeak(speech.ESpeakConfig{Argv: cfg.Speech.Command.Argv, Sink: sink}, logger.With("component", "speech"))
	defer engine.Close()

	translator := translate.New(cfg.Translations)
	dispatcher := speech.NewDispatcher(engine, translator, speech.Languages{
		Localized: cfg.Speech.LocalizedLanguage,
		Fallback:  cfg.Speech.FallbackLanguage,
	}, logger.With("component", "speech"))
	dispatcher.OnSpoken(func(language string) {
		metrics.AnnouncementsTotal.WithLabelValues(language).Inc()
	})

	notifier := indicator.New(indicator.Config{
		Enable:      cfg.Indicator.Enable,
		SoundEnable: cfg.Indicator.SoundEnable,
		AppName:     cfg.Indicator.AppName,
		TimeoutMS:   cfg.Indicator.TimeoutMS,
	}, logger.With("component", "indicator"))

	deps := session.Deps{
		Classifier:    cls,
		Announcer:     dispatcher,
		Translator:    translator,
		Resolver:      resolver,
		Changes:       changes,
		Limiter:       detection.NewLimiter(time.Duration(cfg.Detection.SampleIntervalMS) * time.Millisecond),
		MinConfidence: float32(cfg.Classifier.MinConfidence),
		Display:       notifier,
	}
	if cfg.Debug.FrameDump {
		dumper, err := camera.NewDumper()
		if err != nil {
			return fmt.Errorf("frame dump: %w", err)
		}
		logger.Info("frame dump enabled", "dir", dumper.Dir())
		deps.Dumper = dumper
	}

	controller, err := session.NewController(logger.With("component", "session"), deps)
	if err != nil {
		return err
	}

	source := camera.NewSource(camera.Config{
		Device:    cfg.Camera.Device,
		Width:     cfg.Camera.Width,
		Height:    cfg.Camera.Height,
		Framerate: cfg.Camera.Framerate,
		Argv:      cfg.Camera.Command.Argv,
	}, logger.With("component", "camera"))

	var sub *remote.Subscriber
	if url := strings.TrimSpace(cfg.Remote.URL); url != "" {
		sub, err = remote.New(remote.Config{
			URL:          url,
			ReconnectMax: time.Duration(cfg.Remote.ReconnectMaxMS) * time.Millisecond,
		}, logger.With("component", "remote"), func(p voice.Profile) {
			controller.RemoteDefaultPushed(ctx, p)
		})
		if err != nil {
			return err
		}
		sub.OnConnectionChange(func(connected bool) {
			metrics.SetBool(metrics.RemoteConnected, connected)
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return controller.Run(gctx) })
	g.Go(func() error { return controller.Capture(gctx, source.Frames()) })
	g.Go(func() error { return source.Run(gctx) })
	g.Go(func() error { return ipc.Serve(gctx, listener, controller) })
	g.Go(func() error { return notifier.Run(gctx) })

	g.Go(func() error { return watcher.Run(gctx) })

	if sub != nil {
		g.Go(func() error { return sub.Run(gctx) })
	}

	if listen := strings.TrimSpace(cfg.Metrics.Listen); listen != "" {
		router := httpapi.NewRouter(controller, logger.With("component", "http"))
		g.Go(func() error { return httpapi.Serve(gctx, listen, router, logger.With("component", "http")) })
	}

	logger.Info("session started",
		"store", path,
		"sink", sink,
		"remote", cfg.Remote.URL,
		"metrics", cfg.Metrics.Listen,
	)

	err = g.Wait()
	dispatcher.Stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// reloadOverride returns the store watcher callback. It republishes the
// override read from disk; an unreadable file is logged and the last good
// override stays active.
func reloadOverride(st voice.Store, changes *bus.Bus[voice.LocalChange], logger *slog.Logger) func() {
	return func() {
		p, err := voice.LoadOverride(st)
		if err != nil {
			logger.Warn("voice override reload failed", "error", err.Error())
			return
		}
		changes.Publish(voice.LocalChange{Profile: p})
	}
}
