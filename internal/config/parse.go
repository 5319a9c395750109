package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	Camera       *fileCamera       `yaml:"camera"`
	Classifier   *fileClassifier   `yaml:"classifier"`
	Detection    *fileDetection    `yaml:"detection"`
	Speech       *fileSpeech       `yaml:"speech"`
	Audio        *fileAudio        `yaml:"audio"`
	Remote       *fileRemote       `yaml:"remote"`
	Store        *fileStore        `yaml:"store"`
	Metrics      *fileMetrics      `yaml:"metrics"`
	Indicator    *fileIndicator    `yaml:"indicator"`
	Translations map[string]string `yaml:"translations"`
	Log          *fileLog          `yaml:"log"`
	Debug        *fileDebug        `yaml:"debug"`
}

type fileCamera struct {
	Device    *string `yaml:"device"`
	Width     *int    `yaml:"width"`
	Height    *int    `yaml:"height"`
	Framerate *int    `yaml:"framerate"`
	Command   *string `yaml:"command"`
}

type fileClassifier struct {
	Model         *string  `yaml:"model"`
	Labels        *string  `yaml:"labels"`
	Library       *string  `yaml:"library"`
	InputName     *string  `yaml:"input_name"`
	OutputName    *string  `yaml:"output_name"`
	MinConfidence *float64 `yaml:"min_confidence"`
}

type fileDetection struct {
	SampleIntervalMS *int `yaml:"sample_interval_ms"`
}

type fileSpeech struct {
	Command           *string `yaml:"command"`
	LocalizedLanguage *string `yaml:"localized_language"`
	FallbackLanguage  *string `yaml:"fallback_language"`
}

type fileAudio struct {
	Output   *string `yaml:"output"`
	Fallback *string `yaml:"fallback"`
}

type fileRemote struct {
	URL            *string `yaml:"url"`
	ReconnectMaxMS *int    `yaml:"reconnect_max_ms"`
}

type fileStore struct {
	Path           *string `yaml:"path"`
	PollIntervalMS *int    `yaml:"poll_interval_ms"`
}

type fileMetrics struct {
	Listen *string `yaml:"listen"`
}

type fileIndicator struct {
	Enable      *bool   `yaml:"enable"`
	SoundEnable *bool   `yaml:"sound_enable"`
	AppName     *string `yaml:"app_name"`
	TimeoutMS   *int    `yaml:"timeout_ms"`
}

type fileLog struct {
	Level *string `yaml:"level"`
}

type fileDebug struct {
	FrameDump *bool `yaml:"frame_dump"`
}

// Parse overlays YAML content onto base and validates the result.
// Unknown keys are rejected.
func Parse(content string, base Config) (Config, []Warning, error) {
	var raw fileConfig
	dec := yaml.NewDecoder(bytes.NewReader([]byte(content)))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, nil, fmt.Errorf("invalid yaml: %w", err)
	}

	cfg, err := raw.apply(cloneConfig(base))
	if err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (f fileConfig) apply(cfg Config) (Config, error) {
	if c := f.Camera; c != nil {
		setString(&cfg.Camera.Device, c.Device)
		setInt(&cfg.Camera.Width, c.Width)
		setInt(&cfg.Camera.Height, c.Height)
		setInt(&cfg.Camera.Framerate, c.Framerate)
		if c.Command != nil {
			cmd, err := parseCommand("camera.command", *c.Command)
			if err != nil {
				return Config{}, err
			}
			cfg.Camera.Command = cmd
		}
	}
	if c := f.Classifier; c != nil {
		setString(&cfg.Classifier.Model, c.Model)
		setString(&cfg.Classifier.Labels, c.Labels)
		setString(&cfg.Classifier.Library, c.Library)
		setString(&cfg.Classifier.InputName, c.InputName)
		setString(&cfg.Classifier.OutputName, c.OutputName)
		if c.MinConfidence != nil {
			cfg.Classifier.MinConfidence = *c.MinConfidence
		}
	}
	if d := f.Detection; d != nil {
		setInt(&cfg.Detection.SampleIntervalMS, d.SampleIntervalMS)
	}
	if s := f.Speech; s != nil {
		if s.Command != nil {
			cmd, err := parseCommand("speech.command", *s.Command)
			if err != nil {
				return Config{}, err
			}
			cfg.Speech.Command = cmd
		}
		setString(&cfg.Speech.LocalizedLanguage, s.LocalizedLanguage)
		setString(&cfg.Speech.FallbackLanguage, s.FallbackLanguage)
	}
	if a := f.Audio; a != nil {
		setString(&cfg.Audio.Output, a.Output)
		setString(&cfg.Audio.Fallback, a.Fallback)
	}
	if r := f.Remote; r != nil {
		setString(&cfg.Remote.URL, r.URL)
		setInt(&cfg.Remote.ReconnectMaxMS, r.ReconnectMaxMS)
	}
	if s := f.Store; s != nil {
		setString(&cfg.Store.Path, s.Path)
		setInt(&cfg.Store.PollIntervalMS, s.PollIntervalMS)
	}
	if m := f.Metrics; m != nil {
		setString(&cfg.Metrics.Listen, m.Listen)
	}
	if i := f.Indicator; i != nil {
		setBool(&cfg.Indicator.Enable, i.Enable)
		setBool(&cfg.Indicator.SoundEnable, i.SoundEnable)
		setString(&cfg.Indicator.AppName, i.AppName)
		setInt(&cfg.Indicator.TimeoutMS, i.TimeoutMS)
	}
	for k, v := range f.Translations {
		cfg.Translations[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if l := f.Log; l != nil && l.Level != nil {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(*l.Level))
	}
	if d := f.Debug; d != nil && d.FrameDump != nil {
		cfg.Debug.FrameDump = *d.FrameDump
	}
	return cfg, nil
}

func parseCommand(key, raw string) (CommandConfig, error) {
	argv, err := splitCommand(key, raw)
	if err != nil {
		return CommandConfig{}, err
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Translations = make(map[string]string, len(cfg.Translations))
	for k, v := range cfg.Translations {
		out.Translations[k] = v
	}
	out.Camera.Command.Argv = append([]string(nil), cfg.Camera.Command.Argv...)
	out.Speech.Command.Argv = append([]string(nil), cfg.Speech.Command.Argv...)
	return out
}
