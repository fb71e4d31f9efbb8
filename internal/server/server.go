package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpanzer-aviatrix/speedtest/internal/client"
	"github.com/rpanzer-aviatrix/speedtest/internal/config"
	"github.com/rpanzer-aviatrix/speedtest/internal/session"
)

// Server exposes the speed-test API: a server-sent-events stream per test and
// a read-only listing of the configured files.
type Server struct {
	cfg        *config.Config
	clientCfg  client.Config
	httpServer *http.Server
	log        zerolog.Logger
}

func New(addr string, cfg *config.Config, clientCfg client.Config) *Server {
	s := &Server{
		cfg:       cfg,
		clientCfg: clientCfg,
		log:       log.With().Str("component", "server").Logger(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/speedtest", s.handleSpeedtest)
	mux.HandleFunc("GET /api/files", s.handleFiles)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: the SSE response lives as long as the transfer.
	}
	return s
}

// Handler returns the route table, mainly so tests can mount it on an
// httptest server.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting new sessions and waits for in-flight ones up to
// the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleSpeedtest starts one session and streams its events as SSE frames.
// The request succeeds as soon as the channel is established; all outcome
// information, including failures, travels through the event stream. Only an
// invalid selector is rejected up front, before any streaming resource is
// allocated.
func (s *Server) handleSpeedtest(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("file")
	spec, ok := s.cfg.Lookup(key)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid file selection %q", key))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sess := session.New(spec, s.clientCfg)
	s.log.Info().Str("id", sess.ID.String()).Str("file", key).Msg("session started")
	err := sess.Run(r.Context(), &sseSink{w: w, flusher: flusher})
	if err != nil {
		// Subscriber gone or write failed; the session already aborted the
		// transfer, nothing to deliver the error to.
		s.log.Debug().Str("id", sess.ID.String()).Err(err).Msg("session ended early")
	}
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Files())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sseSink frames each event as "data: <json>\n\n" and flushes it immediately,
// keeping a one-to-one correspondence between chunks received and frames on
// the wire.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) Send(ev session.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", b); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Str("component", "server").Err(err).Msg("writing response failed")
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
