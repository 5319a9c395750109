package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/go-audio/wav"

	"github.com/rbright/baserah/internal/audio"
)

// espeakVoices maps lower-cased BCP-47 tags to espeak-ng voice names.
var espeakVoices = map[string]string{
	"ar":    "ar",
	"ar-sa": "ar",
	"en":    "en",
	"en-us": "en-us",
	"en-gb": "en-gb",
}

// VoiceFor resolves a language tag to an espeak-ng voice.
func VoiceFor(language string) (string, error) {
	tag := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(language, "_", "-")))
	if v, ok := espeakVoices[tag]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
}

// Player plays decoded PCM until done or cancelled.
type Player interface {
	Play(ctx context.Context, pcm audio.PCM) error
}

// ESpeakConfig configures the espeak-ng engine.
type ESpeakConfig struct {
	// Argv is the synthesizer command prefix; empty means ["espeak-ng"].
	Argv []string
	Sink string
}

// ESpeak synthesizes with espeak-ng into a WAV file and plays it on Pulse.
// Each Speak supersedes the previous utterance.
type ESpeak struct {
	argv   []string
	player Player
	logger *slog.Logger

	synth func(ctx context.Context, argv []string, text string) (audio.PCM, error)

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewESpeak builds an engine playing through the Pulse sink in cfg.
func NewESpeak(cfg ESpeakConfig, logger *slog.Logger) *ESpeak {
	argv := cfg.Argv
	if len(argv) == 0 {
		argv = []string{"espeak-ng"}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ESpeak{
		argv:   argv,
		player: audio.Player{SinkID: cfg.Sink, MediaName: "baserah announcement"},
		logger: logger,
		synth:  synthesizeWAV,
	}
}

// Speak starts u in the background. Only language resolution fails synchronously.
func (e *ESpeak) Speak(u Utterance) error {
	args, err := espeakArgs(u)
	if err != nil {
		return err
	}
	argv := append(append([]string(nil), e.argv...), args...)

	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.cancel = cancel
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		defer cancel()
		if err := e.render(ctx, argv, u.Text); err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Error("speech playback failed", "language", u.Language, "error", err.Error())
		}
	}()
	return nil
}

// Stop cancels synthesis and playback of the current utterance.
func (e *ESpeak) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// Close stops speech and waits for background work to exit.
func (e *ESpeak) Close() {
	e.Stop()
	e.wg.Wait()
}

func (e *ESpeak) render(ctx context.Context, argv []string, text string) error {
	pcm, err := e.synth(ctx, argv, text)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.player.Play(ctx, pcm)
}

// espeakArgs maps normalized profile parameters onto espeak-ng flags:
// amplitude 0..200, words per minute 80..450, pitch 0..99.
func espeakArgs(u Utterance) ([]string, error) {
	v, err := VoiceFor(u.Language)
	if err != nil {
		return nil, err
	}
	amplitude := int(math.Round(clampUnit(u.Volume) * 200))
	speed := int(math.Round(80 + clampUnit(u.Rate)*370))
	pitch := int(math.Round(math.Min(math.Max(50*u.Pitch, 0), 99)))
	return []string{
		"-v", v,
		"-a", strconv.Itoa(amplitude),
		"-s", strconv.Itoa(speed),
		"-p", strconv.Itoa(pitch),
	}, nil
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	return math.Min(math.Max(v, 0), 1)
}

// synthesizeWAV runs espeak-ng with text on stdin and decodes the WAV it writes.
func synthesizeWAV(ctx context.Context, argv []string, text string) (audio.PCM, error) {
	dir, err := os.MkdirTemp("", "baserah-speech-*")
	if err != nil {
		return audio.PCM{}, fmt.Errorf("create speech temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	out := filepath.Join(dir, "utterance.wav")
	args := append(append([]string(nil), argv[1:]...), "-w", out, "--stdin")

	cmd := exec.CommandContext(ctx, argv[0], args...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return audio.PCM{}, ctx.Err()
		}
		return audio.PCM{}, fmt.Errorf("run %s: %w (%s)", argv[0], err, strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("read synthesized wav: %w", err)
	}
	return decodeWAV(data)
}

// decodeWAV converts a PCM WAV file into signed 16-bit samples.
func decodeWAV(data []byte) (audio.PCM, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return audio.PCM{}, errors.New("synthesized audio is not a valid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return audio.PCM{}, fmt.Errorf("decode wav: %w", err)
	}

	shift := int(dec.BitDepth) - 16
	samples := make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		switch {
		case dec.BitDepth == 8:
			s = (s - 128) << 8
		case shift > 0:
			s >>= shift
		case shift < 0:
			s <<= -shift
		}
		samples[i] = int16(s)
	}
	return audio.PCM{
		Samples:    samples,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
	}, nil
}
