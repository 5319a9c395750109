// Package doctor runs runtime readiness diagnostics for config, tools, camera, model, audio, and the remote voice service.
package doctor

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/rbright/baserah/internal/audio"
	"github.com/rbright/baserah/internal/classifier"
	"github.com/rbright/baserah/internal/config"
	"github.com/rbright/baserah/internal/store"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "runtime dir available for the control socket", "XDG_RUNTIME_DIR is empty"))

	cam := cfg.Config.Camera
	if len(cam.Command.Argv) > 0 {
		checks = append(checks, checkCommand(cam.Command.Argv, "camera.command"))
	} else {
		checks = append(checks, checkBinary("ffmpeg", "camera capture requires ffmpeg"))
		checks = append(checks, checkFile("camera.device", cam.Device))
	}

	checks = append(checks, checkCommand(cfg.Config.Speech.Command.Argv, "speech.command"))
	checks = append(checks, checkFile("classifier.model", cfg.Config.Classifier.Model))
	checks = append(checks, checkLabels(cfg.Config.Classifier.Labels))
	if lib := strings.TrimSpace(cfg.Config.Classifier.Library); lib != "" {
		checks = append(checks, checkFile("classifier.library", lib))
	}

	checks = append(checks, checkStore(cfg.Config.Store.Path))
	checks = append(checks, checkAudioSelection(cfg.Config))
	checks = append(checks, checkRemote(cfg.Config.Remote.URL))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkFile(name, path string) Check {
	if strings.TrimSpace(path) == "" {
		return Check{Name: name, Pass: false, Message: "path is empty"}
	}
	if _, err := os.Stat(path); err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("found %s", path)}
}

func checkLabels(path string) Check {
	labels, err := classifier.LoadLabels(path)
	if err != nil {
		return Check{Name: "classifier.labels", Pass: false, Message: err.Error()}
	}
	if len(labels) == 0 {
		return Check{Name: "classifier.labels", Pass: false, Message: fmt.Sprintf("%s has no labels", path)}
	}
	return Check{Name: "classifier.labels", Pass: true, Message: fmt.Sprintf("%d labels in %s", len(labels), path)}
}

// checkStore verifies the override store resolves and, when present, parses.
func checkStore(path string) Check {
	if strings.TrimSpace(path) == "" {
		resolved, err := store.DefaultPath()
		if err != nil {
			return Check{Name: "store", Pass: false, Message: err.Error()}
		}
		path = resolved
	}
	s := store.New(path)
	if _, err := s.All(); err != nil {
		return Check{Name: "store", Pass: false, Message: err.Error()}
	}
	if _, err := os.Stat(path); err != nil {
		return Check{Name: "store", Pass: true, Message: fmt.Sprintf("%s not created yet (directory %s)", path, filepath.Dir(path))}
	}
	return Check{Name: "store", Pass: true, Message: fmt.Sprintf("readable at %s", path)}
}

// checkAudioSelection runs live sink selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := audio.SelectDevice(context.Background(), cfg.Audio.Output, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkRemote completes a websocket handshake, or a TCP connect for grpc URLs.
// An unset URL passes because the built-in default voice is used.
func checkRemote(raw string) Check {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Check{Name: "remote", Pass: true, Message: "not configured; using the built-in default voice"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Check{Name: "remote", Pass: false, Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	switch u.Scheme {
	case "ws", "wss":
		conn, _, err := websocket.Dial(ctx, raw, nil)
		if err != nil {
			return Check{Name: "remote", Pass: false, Message: fmt.Sprintf("websocket handshake failed: %v", err)}
		}
		_ = conn.Close(websocket.StatusNormalClosure, "doctor probe")
		return Check{Name: "remote", Pass: true, Message: fmt.Sprintf("websocket reachable at %s", raw)}
	case "grpc":
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", u.Host)
		if err != nil {
			return Check{Name: "remote", Pass: false, Message: fmt.Sprintf("connect failed: %v", err)}
		}
		_ = conn.Close()
		return Check{Name: "remote", Pass: true, Message: fmt.Sprintf("grpc endpoint reachable at %s", u.Host)}
	default:
		return Check{Name: "remote", Pass: false, Message: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
}
