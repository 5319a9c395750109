package voice

import (
	"fmt"
	"strconv"
	"strings"
)

// Store keys backing the local override. An override is present iff KeyName is set.
const (
	KeyName     = "defaultVoiceName"
	KeyVolume   = "defaultVoiceVolume"
	KeyRate     = "defaultVoiceRate"
	KeyPitch    = "defaultVoicePitch"
	KeyLanguage = "defaultVoiceLanguage"
)

var overrideKeys = []string{KeyName, KeyVolume, KeyRate, KeyPitch, KeyLanguage}

// Store is the persistent key-value store holding the local override.
type Store interface {
	Get(key string) (string, bool, error)
	SetMany(values map[string]string) error
	Delete(keys ...string) error
}

// LoadOverride reads the local override. It returns nil when no name is stored.
func LoadOverride(s Store) (*Profile, error) {
	name, ok, err := s.Get(KeyName)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", KeyName, err)
	}
	if !ok || strings.TrimSpace(name) == "" {
		return nil, nil
	}

	p := Default()
	p.Name = name

	floats := []struct {
		key string
		dst *float64
	}{
		{KeyVolume, &p.Volume},
		{KeyRate, &p.Rate},
		{KeyPitch, &p.Pitch},
	}
	for _, f := range floats {
		raw, ok, err := s.Get(f.key)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.key, err)
		}
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", f.key, raw, err)
		}
		*f.dst = v
	}

	lang, ok, err := s.Get(KeyLanguage)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", KeyLanguage, err)
	}
	if ok {
		p.Language = lang
	}

	p = p.Normalize()
	return &p, nil
}

// SaveOverride writes every override field in one store update.
func SaveOverride(s Store, p Profile) error {
	p = p.Normalize()
	return s.SetMany(map[string]string{
		KeyName:     p.Name,
		KeyVolume:   formatFloat(p.Volume),
		KeyRate:     formatFloat(p.Rate),
		KeyPitch:    formatFloat(p.Pitch),
		KeyLanguage: p.Language,
	})
}

// DeleteOverride removes every override key so the override reads as absent.
func DeleteOverride(s Store) error {
	return s.Delete(overrideKeys...)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
