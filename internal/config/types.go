// Package config resolves, parses, validates, and defaults baserah configuration.
package config

// Config is the fully materialized runtime configuration used by baserah.
type Config struct {
	Camera       CameraConfig
	Classifier   ClassifierConfig
	Detection    DetectionConfig
	Speech       SpeechConfig
	Audio        AudioConfig
	Remote       RemoteConfig
	Store        StoreConfig
	Metrics      MetricsConfig
	Indicator    IndicatorConfig
	Translations map[string]string
	Log          LogConfig
	Debug        DebugConfig
}

// CameraConfig selects the capture device or a full capture command.
type CameraConfig struct {
	Device    string
	Width     int
	Height    int
	Framerate int
	Command   CommandConfig
}

// ClassifierConfig locates the image model and its label list.
type ClassifierConfig struct {
	Model         string
	Labels        string
	Library       string
	InputName     string
	OutputName    string
	MinConfidence float64
}

// DetectionConfig controls frame sampling.
type DetectionConfig struct {
	SampleIntervalMS int
}

// SpeechConfig controls the synthesizer and announcement languages.
type SpeechConfig struct {
	Command           CommandConfig
	LocalizedLanguage string
	FallbackLanguage  string
}

// AudioConfig controls preferred and fallback output-sink selection.
type AudioConfig struct {
	Output   string
	Fallback string
}

// RemoteConfig points at the streaming default-voice service.
type RemoteConfig struct {
	URL            string
	ReconnectMaxMS int
}

// StoreConfig locates the local override store.
type StoreConfig struct {
	Path           string
	PollIntervalMS int
}

// MetricsConfig enables the HTTP surface when Listen is set.
type MetricsConfig struct {
	Listen string
}

// IndicatorConfig controls the desktop label notification and audio cues.
type IndicatorConfig struct {
	Enable      bool
	SoundEnable bool
	AppName     string
	TimeoutMS   int
}

// LogConfig controls the JSONL log level.
type LogConfig struct {
	Level string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	FrameDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
