// Package remote subscribes to the streaming default-voice service and hands
// every pushed profile to a callback.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"

	"github.com/rbright/baserah/internal/voice"
)

const (
	defaultReconnectMin = time.Second
	defaultReconnectMax = 30 * time.Second
	defaultDialTimeout  = 5 * time.Second
)

var errStreamClosed = errors.New("remote stream closed by server")

// Config controls one subscriber.
type Config struct {
	URL          string
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	DialTimeout  time.Duration
}

// PushFunc receives every successfully decoded push.
type PushFunc func(voice.Profile)

// Subscriber keeps a connection to the config service open, reconnecting with
// exponential backoff. The last delivered profile survives disconnects.
type Subscriber struct {
	cfg       Config
	transport string
	target    string
	onPush    PushFunc
	onConnect func(bool)
	logger    *slog.Logger

	grpcDialOptions []grpc.DialOption

	mu       sync.Mutex
	last     voice.Profile
	haveLast bool
}

// New validates cfg.URL and selects a transport from its scheme.
func New(cfg Config, logger *slog.Logger, onPush PushFunc) (*Subscriber, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return nil, errors.New("remote url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse remote url %q: %w", raw, err)
	}

	s := &Subscriber{cfg: cfg, onPush: onPush, logger: logger}
	switch u.Scheme {
	case "ws", "wss":
		s.transport = "websocket"
		s.target = raw
	case "grpc":
		if u.Host == "" {
			return nil, fmt.Errorf("remote url %q has no host", raw)
		}
		s.transport = "grpc"
		s.target = "passthrough:///" + u.Host
	default:
		return nil, fmt.Errorf("unsupported remote url scheme %q (want ws, wss or grpc)", u.Scheme)
	}

	if s.cfg.ReconnectMin <= 0 {
		s.cfg.ReconnectMin = defaultReconnectMin
	}
	if s.cfg.ReconnectMax <= 0 {
		s.cfg.ReconnectMax = defaultReconnectMax
	}
	if s.cfg.ReconnectMax < s.cfg.ReconnectMin {
		s.cfg.ReconnectMax = s.cfg.ReconnectMin
	}
	if s.cfg.DialTimeout <= 0 {
		s.cfg.DialTimeout = defaultDialTimeout
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s, nil
}

// Transport names the selected transport ("websocket" or "grpc").
func (s *Subscriber) Transport() string {
	return s.transport
}

// OnConnectionChange registers fn to observe connect/disconnect transitions.
func (s *Subscriber) OnConnectionChange(fn func(connected bool)) {
	s.onConnect = fn
}

// Last returns the most recently delivered profile.
func (s *Subscriber) Last() (voice.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.haveLast
}

// Run streams until ctx is cancelled. Stream failures are logged and retried;
// Run itself only returns nil.
func (s *Subscriber) Run(ctx context.Context) error {
	backoff := s.cfg.ReconnectMin
	for {
		delivered, err := s.streamOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if delivered {
			backoff = s.cfg.ReconnectMin
		}
		s.logger.Warn("remote stream disconnected",
			"transport", s.transport,
			"error", errString(err),
			"retry_in_ms", backoff.Milliseconds(),
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		backoff = min(backoff*2, s.cfg.ReconnectMax)
	}
}

func (s *Subscriber) streamOnce(ctx context.Context) (bool, error) {
	delivered := false
	deliver := func(raw []byte) {
		profile, err := decodePayload(raw)
		if err != nil {
			s.logger.Warn("remote payload rejected", "transport", s.transport, "error", err.Error())
			return
		}
		delivered = true
		s.mu.Lock()
		s.last = profile
		s.haveLast = true
		s.mu.Unlock()

		s.logger.Debug("remote default pushed", "voice", profile.Name, "language", profile.Language)
		if s.onPush != nil {
			s.onPush(profile)
		}
	}
	connected := func() {
		s.logger.Info("remote stream connected", "transport", s.transport)
		if s.onConnect != nil {
			s.onConnect(true)
		}
	}

	var err error
	switch s.transport {
	case "websocket":
		err = s.streamWebSocket(ctx, connected, deliver)
	case "grpc":
		err = s.streamGRPC(ctx, connected, deliver)
	default:
		err = fmt.Errorf("unknown transport %q", s.transport)
	}
	if s.onConnect != nil {
		s.onConnect(false)
	}
	return delivered, err
}

// decodePayload parses one pushed JSON object into a normalized profile.
// Absent fields take the default profile's values. Anything other than an
// object, null included, is rejected so the last known remote value stays.
func decodePayload(raw []byte) (voice.Profile, error) {
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '{' {
		return voice.Profile{}, fmt.Errorf("decode voice payload: expected a JSON object, got %.32q", trimmed)
	}
	var payload voice.Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return voice.Profile{}, fmt.Errorf("decode voice payload: %w", err)
	}
	return payload.Profile(), nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
