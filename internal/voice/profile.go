// Package voice models speakable voice profiles and resolves the active one
// from a per-device override and a remotely pushed default.
package voice

import (
	"fmt"
	"math"
	"strings"
)

const (
	MinVolume = 0.0
	MaxVolume = 1.0
	MinRate   = 0.0
	MaxRate   = 1.0
	MinPitch  = 0.5
	MaxPitch  = 2.0

	DefaultLanguage = "ar-SA"
)

// Profile is one speakable voice configuration.
type Profile struct {
	Name     string  `json:"name" yaml:"name"`
	Volume   float64 `json:"volume" yaml:"volume"`
	Rate     float64 `json:"rate" yaml:"rate"`
	Pitch    float64 `json:"pitch" yaml:"pitch"`
	Language string  `json:"language" yaml:"language"`
}

// Default is the hard-coded profile used before any remote push arrives.
func Default() Profile {
	return Profile{
		Name:     "Default",
		Volume:   0.5,
		Rate:     0.5,
		Pitch:    1.0,
		Language: DefaultLanguage,
	}
}

// Normalize clamps numeric fields into range and fills empty text fields
// from Default. NaN values take the default.
func (p Profile) Normalize() Profile {
	def := Default()
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		p.Name = def.Name
	}
	p.Language = strings.TrimSpace(p.Language)
	if p.Language == "" {
		p.Language = def.Language
	}
	p.Volume = clamp(p.Volume, MinVolume, MaxVolume, def.Volume)
	p.Rate = clamp(p.Rate, MinRate, MaxRate, def.Rate)
	p.Pitch = clamp(p.Pitch, MinPitch, MaxPitch, def.Pitch)
	return p
}

// String renders a compact single-line description.
func (p Profile) String() string {
	return fmt.Sprintf("%s (language=%s volume=%.2f rate=%.2f pitch=%.2f)", p.Name, p.Language, p.Volume, p.Rate, p.Pitch)
}

// Payload is the wire shape of a pushed profile. Absent fields fall back to
// Default field by field.
type Payload struct {
	Name     *string  `json:"name"`
	Volume   *float64 `json:"volume"`
	Rate     *float64 `json:"rate"`
	Pitch    *float64 `json:"pitch"`
	Language *string  `json:"language"`
}

// Profile materializes the payload into a normalized profile.
func (p Payload) Profile() Profile {
	out := Default()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Volume != nil {
		out.Volume = *p.Volume
	}
	if p.Rate != nil {
		out.Rate = *p.Rate
	}
	if p.Pitch != nil {
		out.Pitch = *p.Pitch
	}
	if p.Language != nil {
		out.Language = *p.Language
	}
	return out.Normalize()
}

func clamp(v, lo, hi, fallback float64) float64 {
	if math.IsNaN(v) {
		return fallback
	}
	return math.Min(math.Max(v, lo), hi)
}
