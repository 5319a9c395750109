package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
)

// PCM is interleaved signed 16-bit audio.
type PCM struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Player writes PCM buffers to one Pulse sink. An empty sink ID plays on the
// server default.
type Player struct {
	SinkID    string
	MediaName string
}

// Play blocks until pcm has drained or ctx is cancelled. Cancellation ends the
// stream at the next buffer request and returns ctx.Err().
func (p Player) Play(ctx context.Context, pcm PCM) error {
	if len(pcm.Samples) == 0 {
		return nil
	}
	if pcm.SampleRate <= 0 {
		return errors.New("pcm sample rate must be positive")
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	opts := []pulse.PlaybackOption{
		pulse.PlaybackSampleRate(pcm.SampleRate),
		pulse.PlaybackLatency(0.05),
		pulse.PlaybackMediaName(p.mediaName()),
	}
	if pcm.Channels == 2 {
		opts = append(opts, pulse.PlaybackStereo)
	} else {
		opts = append(opts, pulse.PlaybackMono)
	}
	if id := strings.TrimSpace(p.SinkID); id != "" && id != "default" {
		sink, err := client.SinkByID(id)
		if err != nil {
			return fmt.Errorf("resolve sink %q: %w", id, err)
		}
		opts = append(opts, pulse.PlaybackSink(sink))
	}

	stream, err := client.NewPlayback(pulse.Int16Reader(newSampleReader(ctx, pcm.Samples)), opts...)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play pcm stream: %w", err)
	}
	return nil
}

func (p Player) mediaName() string {
	if name := strings.TrimSpace(p.MediaName); name != "" {
		return name
	}
	return appName + " speech"
}

// newSampleReader feeds samples to Pulse and ends early once ctx is done.
func newSampleReader(ctx context.Context, samples []int16) func([]int16) (int, error) {
	cursor := 0
	return func(buf []int16) (int, error) {
		if ctx.Err() != nil || cursor >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	}
}
