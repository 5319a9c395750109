package config

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"

	"github.com/rbright/baserah/internal/speech"
)

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if len(cfg.Camera.Command.Argv) == 0 {
		if strings.TrimSpace(cfg.Camera.Device) == "" {
			return nil, fmt.Errorf("camera.device must not be empty when camera.command is unset")
		}
		if cfg.Camera.Width <= 0 || cfg.Camera.Height <= 0 {
			return nil, fmt.Errorf("camera.width and camera.height must be > 0")
		}
		if cfg.Camera.Framerate <= 0 {
			return nil, fmt.Errorf("camera.framerate must be > 0")
		}
	} else if strings.TrimSpace(cfg.Camera.Command.Raw) != "" && cfg.Camera.Device != "" {
		warnings = append(warnings, Warning{Message: "camera.command is set; camera.device and size settings are ignored"})
	}

	if strings.TrimSpace(cfg.Classifier.Model) == "" {
		return nil, fmt.Errorf("classifier.model must not be empty")
	}
	if strings.TrimSpace(cfg.Classifier.Labels) == "" {
		return nil, fmt.Errorf("classifier.labels must not be empty")
	}
	if cfg.Classifier.MinConfidence < 0 || cfg.Classifier.MinConfidence > 1 {
		return nil, fmt.Errorf("classifier.min_confidence must be within [0, 1]")
	}
	if cfg.Detection.SampleIntervalMS <= 0 {
		return nil, fmt.Errorf("detection.sample_interval_ms must be > 0")
	}

	if len(cfg.Speech.Command.Argv) == 0 {
		return nil, fmt.Errorf("speech.command must not be empty")
	}
	for key, lang := range map[string]string{
		"speech.localized_language": cfg.Speech.LocalizedLanguage,
		"speech.fallback_language":  cfg.Speech.FallbackLanguage,
	} {
		if _, err := speech.VoiceFor(lang); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}

	if raw := strings.TrimSpace(cfg.Remote.URL); raw == "" {
		warnings = append(warnings, Warning{Message: "remote.url is not set; the default voice stays at the built-in profile"})
	} else {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("remote.url: %w", err)
		}
		switch u.Scheme {
		case "ws", "wss", "grpc":
		default:
			return nil, fmt.Errorf("remote.url scheme must be one of: ws, wss, grpc")
		}
		if u.Host == "" {
			return nil, fmt.Errorf("remote.url must include a host")
		}
	}
	if cfg.Remote.ReconnectMaxMS < 1000 {
		return nil, fmt.Errorf("remote.reconnect_max_ms must be >= 1000")
	}

	if cfg.Store.PollIntervalMS <= 0 {
		return nil, fmt.Errorf("store.poll_interval_ms must be > 0")
	}
	if listen := strings.TrimSpace(cfg.Metrics.Listen); listen != "" {
		if _, _, err := net.SplitHostPort(listen); err != nil {
			return nil, fmt.Errorf("metrics.listen: %w", err)
		}
	}
	if cfg.Indicator.TimeoutMS < -1 {
		return nil, fmt.Errorf("indicator.timeout_ms must be >= -1")
	}
	if !logLevels[cfg.Log.Level] {
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	warnings = append(warnings, translationWarnings(cfg.Translations)...)
	return warnings, nil
}

func translationWarnings(table map[string]string) []Warning {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var warnings []Warning
	for _, k := range keys {
		switch {
		case k == "":
			warnings = append(warnings, Warning{Message: "translations entry with empty label is ignored"})
		case table[k] == "":
			warnings = append(warnings, Warning{Message: fmt.Sprintf("translations entry %q has an empty value and is ignored", k)})
		}
	}
	return warnings
}
