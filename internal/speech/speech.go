// Package speech turns announcement text into audible speech.
package speech

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/rbright/baserah/internal/translate"
	"github.com/rbright/baserah/internal/voice"
)

// PreviewPhrase is spoken when a user auditions a voice profile.
const PreviewPhrase = "مرحباً! هذا هو الصوت المختار."

// ErrUnsupportedLanguage is returned when no synthesizer voice serves a language tag.
var ErrUnsupportedLanguage = errors.New("unsupported speech language")

// Utterance is one request to the speech engine.
type Utterance struct {
	Text     string
	Language string
	Volume   float64
	Rate     float64
	Pitch    float64
}

// Engine speaks utterances. Speak returns without waiting for playback and
// Stop silences whatever is playing right away.
type Engine interface {
	Speak(u Utterance) error
	Stop()
}

// Languages selects the spoken language for announcements.
type Languages struct {
	Localized string
	Fallback  string
}

// DefaultLanguages speaks translated labels in Arabic and everything else in English.
func DefaultLanguages() Languages {
	return Languages{Localized: "ar-SA", Fallback: "en-US"}
}

// Dispatcher issues announcements, preempting any speech still in flight.
type Dispatcher struct {
	engine     Engine
	translator *translate.Translator
	languages  Languages
	logger     *slog.Logger
	onSpoken   func(language string)
}

// NewDispatcher wires an engine to the translator used for language choice.
func NewDispatcher(engine Engine, translator *translate.Translator, languages Languages, logger *slog.Logger) *Dispatcher {
	def := DefaultLanguages()
	if strings.TrimSpace(languages.Localized) == "" {
		languages.Localized = def.Localized
	}
	if strings.TrimSpace(languages.Fallback) == "" {
		languages.Fallback = def.Fallback
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		engine:     engine,
		translator: translator,
		languages:  languages,
		logger:     logger,
	}
}

// OnSpoken registers fn to observe every utterance handed to the engine.
func (d *Dispatcher) OnSpoken(fn func(language string)) {
	d.onSpoken = fn
}

// LanguageFor returns the localized language for translated labels and the
// fallback language for anything else.
func (d *Dispatcher) LanguageFor(text string) string {
	if d.translator.IsTranslation(text) {
		return d.languages.Localized
	}
	return d.languages.Fallback
}

// Announce stops current speech and speaks text with profile's parameters.
// Engine failures are logged only.
func (d *Dispatcher) Announce(text string, profile voice.Profile) {
	d.say(text, d.LanguageFor(text), profile)
}

// Preview stops current speech and speaks the sample phrase in the profile's
// own language.
func (d *Dispatcher) Preview(profile voice.Profile) {
	profile = profile.Normalize()
	d.say(PreviewPhrase, profile.Language, profile)
}

// Stop silences the engine.
func (d *Dispatcher) Stop() {
	d.engine.Stop()
}

func (d *Dispatcher) say(text, language string, profile voice.Profile) {
	d.engine.Stop()

	u := Utterance{
		Text:     text,
		Language: language,
		Volume:   profile.Volume,
		Rate:     profile.Rate,
		Pitch:    profile.Pitch,
	}
	if err := d.engine.Speak(u); err != nil {
		d.logger.Error("speech failed",
			"text", text,
			"language", language,
			"voice", profile.Name,
			"error", err.Error(),
		)
		return
	}
	d.logger.Debug("speech started", "text", text, "language", language, "voice", profile.Name)
	if d.onSpoken != nil {
		d.onSpoken(language)
	}
}
