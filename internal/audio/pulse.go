// Package audio handles output sink discovery, selection, and PCM playback.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const appName = "baserah"

// Device describes one Pulse output sink surfaced to baserah.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selection is the resolved playback sink plus optional fallback warning context.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

func newClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(appName),
		pulse.ClientApplicationIconName("audio-speakers"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListDevices returns Pulse output sinks with default/availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSink, err := client.DefaultSink()
	if err != nil {
		return nil, fmt.Errorf("read default sink: %w", err)
	}
	defaultID := defaultSink.ID()

	var sinkInfos pulseproto.GetSinkInfoListReply
	if err := client.RawRequest(&pulseproto.GetSinkInfoList{}, &sinkInfos); err != nil {
		return nil, fmt.Errorf("list sinks: %w", err)
	}

	devices := make([]Device, 0, len(sinkInfos))
	for _, sink := range sinkInfos {
		if sink == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          sink.SinkName,
			Description: sink.Device,
			State:       stateString(sink.State),
			Available:   sinkAvailable(sink),
			Muted:       sink.Mute,
			Default:     sink.SinkName == defaultID,
		})
	}
	return devices, nil
}

// SelectDevice resolves speech.sink/speech.sink_fallback preferences against live sinks.
func SelectDevice(ctx context.Context, output string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, output, fallback)
}

// selectDeviceFromList applies selection policy to a pre-fetched sink list.
func selectDeviceFromList(devices []Device, output string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio output sinks found")
	}

	var (
		defaultDevice *Device
		byOutput      *Device
		byFallback    *Device
	)

	output = strings.TrimSpace(strings.ToLower(output))
	fallback = strings.TrimSpace(strings.ToLower(fallback))

	for i := range devices {
		dev := &devices[i]
		if dev.Default {
			defaultDevice = dev
		}
		if byOutput == nil && isNamed(output) && deviceMatches(*dev, output) {
			byOutput = dev
		}
		if byFallback == nil && isNamed(fallback) && deviceMatches(*dev, fallback) {
			byFallback = dev
		}
	}

	chooseDefault := func() (*Device, error) {
		if defaultDevice == nil {
			return nil, errors.New("default audio sink is unavailable")
		}
		return defaultDevice, nil
	}

	var primary *Device
	switch {
	case !isNamed(output):
		d, err := chooseDefault()
		if err != nil {
			return Selection{}, err
		}
		primary = d
	case byOutput != nil:
		primary = byOutput
	default:
		return Selection{}, fmt.Errorf("speech.sink %q did not match any sink", output)
	}

	if primary.Available && !primary.Muted {
		return Selection{Device: *primary}, nil
	}

	reason := "unavailable"
	if primary.Muted {
		reason = "muted"
	}

	var alt *Device
	if isNamed(fallback) {
		if byFallback == nil {
			return Selection{}, fmt.Errorf("sink %q is %s and fallback %q not found", primary.ID, reason, fallback)
		}
		alt = byFallback
	} else {
		d, err := chooseDefault()
		if err != nil {
			return Selection{}, fmt.Errorf("sink %q is %s and no usable fallback: %w", primary.ID, reason, err)
		}
		alt = d
	}

	if !alt.Available {
		return Selection{}, fmt.Errorf("fallback sink %q is not available", alt.ID)
	}
	if alt.Muted {
		return Selection{}, fmt.Errorf("fallback sink %q is muted", alt.ID)
	}

	return Selection{
		Device:   *alt,
		Warning:  fmt.Sprintf("speech.sink %q is %s; falling back to %q", primary.ID, reason, alt.ID),
		Fallback: primary.ID != alt.ID,
	}, nil
}

func isNamed(term string) bool {
	return term != "" && term != "default"
}

// deviceMatches reports whether a search term matches a sink id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(device.ID)
	desc := strings.ToLower(device.Description)
	return strings.Contains(id, term) || strings.Contains(desc, term)
}

// stateString maps Pulse sink state constants to human-readable values.
func stateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sinkAvailable maps Pulse port availability to a simple boolean.
func sinkAvailable(sink *pulseproto.GetSinkInfoReply) bool {
	if sink == nil {
		return false
	}
	if len(sink.Ports) == 0 {
		return true
	}
	for _, port := range sink.Ports {
		if port.Name != sink.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}
