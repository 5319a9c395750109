package ipc

import "github.com/rbright/baserah/internal/voice"

// Commands understood by a running session.
const (
	CommandStatus       = "status"
	CommandReset        = "reset"
	CommandVoiceShow    = "voice.show"
	CommandVoiceSet     = "voice.set"
	CommandVoiceClear   = "voice.clear"
	CommandVoicePreview = "voice.preview"
)

type Request struct {
	Command string         `json:"command"`
	Profile *voice.Profile `json:"profile,omitempty"`
}

// VoiceState reports the resolver's inputs and derived profile.
type VoiceState struct {
	Active voice.Profile  `json:"active"`
	Source string         `json:"source"`
	Local  *voice.Profile `json:"local,omitempty"`
	Remote voice.Profile  `json:"remote"`
}

type Response struct {
	OK      bool        `json:"ok"`
	State   string      `json:"state,omitempty"`
	Label   string      `json:"label,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Voice   *VoiceState `json:"voice,omitempty"`
}
