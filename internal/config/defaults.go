package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	espeak := "espeak-ng"
	dataDir := defaultDataDir()

	return Config{
		Camera: CameraConfig{
			Device:    "/dev/video0",
			Width:     640,
			Height:    480,
			Framerate: 10,
		},
		Classifier: ClassifierConfig{
			Model:      filepath.Join(dataDir, "mobilenetv2.onnx"),
			Labels:     filepath.Join(dataDir, "imagenet_labels.txt"),
			InputName:  "input",
			OutputName: "output",
		},
		Detection: DetectionConfig{SampleIntervalMS: 1000},
		Speech: SpeechConfig{
			Command:           CommandConfig{Raw: espeak, Argv: mustSplitCommand("speech.command", espeak)},
			LocalizedLanguage: "ar-SA",
			FallbackLanguage:  "en-US",
		},
		Audio: AudioConfig{
			Output:   "default",
			Fallback: "default",
		},
		Remote:       RemoteConfig{ReconnectMaxMS: 30000},
		Store:        StoreConfig{PollIntervalMS: 1000},
		Indicator:    IndicatorConfig{AppName: "baserah"},
		Translations: map[string]string{},
		Log:          LogConfig{Level: "info"},
	}
}

// defaultDataDir selects XDG_DATA_HOME when available, otherwise ~/.local/share.
func defaultDataDir() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, "baserah")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/usr/share", "baserah")
	}
	return filepath.Join(home, ".local", "share", "baserah")
}
