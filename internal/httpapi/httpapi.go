// Package httpapi serves health, metrics, and session control over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rbright/baserah/internal/ipc"
	"github.com/rbright/baserah/internal/voice"
)

// NewRouter maps HTTP routes onto the IPC command handler.
func NewRouter(handler ipc.Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &handlers{ipc: handler}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/status", h.command(ipc.CommandStatus))
	r.Post("/reset", h.command(ipc.CommandReset))

	r.Route("/voice", func(r chi.Router) {
		r.Get("/", h.command(ipc.CommandVoiceShow))
		r.Put("/", h.setVoice)
		r.Delete("/", h.command(ipc.CommandVoiceClear))
		r.Post("/preview", h.command(ipc.CommandVoicePreview))
	})
	return r
}

type handlers struct {
	ipc ipc.Handler
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) command(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.respond(w, h.ipc.Handle(r.Context(), ipc.Request{Command: name}))
	}
}

func (h *handlers) setVoice(w http.ResponseWriter, r *http.Request) {
	var payload voice.Payload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, ipc.Response{OK: false, Error: fmt.Sprintf("decode voice profile: %v", err)})
		return
	}
	if payload.Name == nil {
		writeJSON(w, http.StatusBadRequest, ipc.Response{OK: false, Error: "voice profile requires a name"})
		return
	}
	profile := payload.Profile()
	h.respond(w, h.ipc.Handle(r.Context(), ipc.Request{Command: ipc.CommandVoiceSet, Profile: &profile}))
}

func (h *handlers) respond(w http.ResponseWriter, resp ipc.Response) {
	status := http.StatusOK
	if !resp.OK {
		status = http.StatusConflict
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen http %s: %w", addr, err)
	}
	return ServeListener(ctx, listener, handler, logger)
}

// ServeListener is Serve on an existing listener.
func ServeListener(ctx context.Context, listener net.Listener, handler http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", listener.Addr().String())
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}
