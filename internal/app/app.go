// Package app dispatches parsed CLI commands to the running session or to
// local fallbacks.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/baserah/internal/audio"
	"github.com/rbright/baserah/internal/cli"
	"github.com/rbright/baserah/internal/config"
	"github.com/rbright/baserah/internal/doctor"
	"github.com/rbright/baserah/internal/ipc"
	"github.com/rbright/baserah/internal/logging"
	"github.com/rbright/baserah/internal/store"
	"github.com/rbright/baserah/internal/version"
	"github.com/rbright/baserah/internal/voice"
)

const forwardTimeout = time.Second

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("baserah"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("baserah"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Log.Level)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandReset:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandReset})
	case cli.CommandVoice:
		return r.commandVoice(ctx, cfgLoaded.Config, parsed)
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no output sinks found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus})
	if !handled {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.State == "" {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	fmt.Fprintln(r.Stdout, resp.State)
	if resp.Label != "" {
		fmt.Fprintf(r.Stdout, "label: %s\n", resp.Label)
	}
	if resp.Voice != nil {
		fmt.Fprintf(r.Stdout, "voice: %s [%s]\n", resp.Voice.Active, resp.Voice.Source)
	}
	return 0
}

func (r Runner) commandVoice(ctx context.Context, cfg config.Config, parsed cli.Parsed) int {
	req := ipc.Request{}
	switch parsed.VoiceAction {
	case cli.VoiceSet:
		p := parsed.Voice.Profile()
		req = ipc.Request{Command: ipc.CommandVoiceSet, Profile: &p}
	case cli.VoiceClear:
		req.Command = ipc.CommandVoiceClear
	case cli.VoicePreview:
		req.Command = ipc.CommandVoicePreview
	default:
		req.Command = ipc.CommandVoiceShow
	}

	if socketPath, err := ipc.RuntimeSocketPath(); err == nil {
		resp, handled, err := tryForward(ctx, socketPath, req)
		if handled {
			if err != nil {
				fmt.Fprintf(r.Stderr, "error: %v\n", err)
				return 1
			}
			if req.Command == ipc.CommandVoiceShow {
				r.printVoiceState(resp.Voice)
			} else if resp.Message != "" {
				fmt.Fprintln(r.Stdout, resp.Message)
			}
			return 0
		}
	}

	if req.Command == ipc.CommandVoicePreview {
		fmt.Fprintln(r.Stderr, "error: no active baserah session")
		return 1
	}
	return r.voiceOffline(cfg, req)
}

// voiceOffline serves voice commands straight from the store when no session
// is running. The next session picks the change up at startup.
func (r Runner) voiceOffline(cfg config.Config, req ipc.Request) int {
	path, err := storePath(cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	st := store.New(path)

	switch req.Command {
	case ipc.CommandVoiceSet:
		if err := voice.SaveOverride(st, *req.Profile); err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Fprintln(r.Stdout, "voice override saved")
	case ipc.CommandVoiceClear:
		if err := voice.DeleteOverride(st); err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Fprintln(r.Stdout, "voice override cleared")
	default:
		local, err := voice.LoadOverride(st)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		state := ipc.VoiceState{Active: voice.Default(), Source: string(voice.SourceRemote), Local: local, Remote: voice.Default()}
		if local != nil {
			state.Active = *local
			state.Source = string(voice.SourceLocal)
		}
		r.printVoiceState(&state)
	}
	return 0
}

func (r Runner) printVoiceState(state *ipc.VoiceState) {
	if state == nil {
		fmt.Fprintln(r.Stdout, "active: unknown")
		return
	}
	fmt.Fprintf(r.Stdout, "active: %s [%s]\n", state.Active, state.Source)
	if state.Local != nil {
		fmt.Fprintf(r.Stdout, "local:  %s\n", *state.Local)
	} else {
		fmt.Fprintln(r.Stdout, "local:  none")
	}
	fmt.Fprintf(r.Stdout, "remote: %s\n", state.Remote)
}

func (r Runner) forwardOrFail(ctx context.Context, req ipc.Request) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active baserah session\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func storePath(cfg config.Config) (string, error) {
	if p := strings.TrimSpace(cfg.Store.Path); p != "" {
		return p, nil
	}
	return store.DefaultPath()
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.IsNoSession(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}
