// Package api provides HTTP handlers and the main API server logic for FocusLoop.
//
// It exposes RESTful endpoints for planning conversations, work block
// management, emotional state detection, session scheduling, companion chat,
// and voice sessions. The API integrates with the engine, detector, session,
// chat, voice, and store modules.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/FocusLoopHQ/FocusLoop/internal/chat"
	"github.com/FocusLoopHQ/FocusLoop/internal/detector"
	"github.com/FocusLoopHQ/FocusLoop/internal/engine"
	"github.com/FocusLoopHQ/FocusLoop/internal/genai"
	"github.com/FocusLoopHQ/FocusLoop/internal/models"
	"github.com/FocusLoopHQ/FocusLoop/internal/session"
	"github.com/FocusLoopHQ/FocusLoop/internal/store"
	"github.com/FocusLoopHQ/FocusLoop/internal/voice"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = ":8080"

// DefaultReadHeaderTimeout bounds how long a client may take to send
// request headers.
const DefaultReadHeaderTimeout = 10 * time.Second

// Version is the running build's version string, stamped at build time via
// -ldflags. It is reported by GET /version.
var Version = "dev"

// Server holds the wired services behind the HTTP surface.
type Server struct {
	engine   *engine.Engine
	detector *detector.Detector
	sessions *session.Service
	chat     *chat.Service
	voice    *voice.Service
	voiceWS  *voice.WSHandler
	st       store.Store
	gen      genai.ClientInterface
	addr     string
}

// Opts holds configuration options for the API server.
type Opts struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// NewServer wires the services into an HTTP server. The voice WebSocket
// handler is built internally from the voice service and gateway.
func NewServer(eng *engine.Engine, det *detector.Detector, sess *session.Service, ch *chat.Service, vs *voice.Service, st store.Store, gen genai.ClientInterface, opts ...Option) *Server {
	var o Opts
	for _, opt := range opts {
		opt(&o)
	}
	if o.Addr == "" {
		o.Addr = DefaultAddr
	}
	return &Server{
		engine:   eng,
		detector: det,
		sessions: sess,
		chat:     ch,
		voice:    vs,
		voiceWS:  voice.NewWSHandler(vs, gen),
		st:       st,
		gen:      gen,
		addr:     o.Addr,
	}
}

// routes registers every endpoint on a fresh mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/planning/start", s.planningStartHandler)
	mux.HandleFunc("/planning/continue", s.planningContinueHandler)
	mux.HandleFunc("/workblocks/start", s.workBlockStartHandler)
	mux.HandleFunc("/workblocks/confirm", s.workBlockConfirmHandler)
	mux.HandleFunc("/workblocks/check", s.workBlockCheckHandler)
	mux.HandleFunc("/workblocks/break", s.workBlockBreakHandler)
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/emotions/detect", s.emotionDetectHandler)
	mux.HandleFunc("/emotions/recent", s.emotionsRecentHandler)
	mux.HandleFunc("/sessions/morning", s.morningSessionHandler)
	mux.HandleFunc("/sessions/stats", s.sessionStatsHandler)
	mux.HandleFunc("/sessions", s.sessionsHandler)
	mux.HandleFunc("/sessions/", s.sessionStatusUpdateHandler)
	mux.HandleFunc("/chat", s.chatHandler)
	mux.HandleFunc("/chat/history", s.chatHistoryHandler)
	mux.HandleFunc("/voice/ws", s.voiceWebSocketHandler)
	mux.HandleFunc("/voice/voices", s.voiceCatalogHandler)
	mux.HandleFunc("/users", s.createUserHandler)
	mux.HandleFunc("/users/", s.getUserHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/version", s.versionHandler)
	return mux
}

// Run starts the HTTP server and blocks until the context is canceled, then
// shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Server.Run: shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// errorStatusCode maps domain errors onto HTTP status codes. Unknown errors
// map to 500.
func errorStatusCode(err error) int {
	switch {
	case errors.Is(err, models.ErrConversationNotFound),
		errors.Is(err, models.ErrTimerNotFound),
		errors.Is(err, models.ErrWorkBlockNotFound),
		errors.Is(err, models.ErrSessionNotFound),
		errors.Is(err, models.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrNoPendingWorkBlock),
		errors.Is(err, models.ErrInvalidDurationChoice),
		errors.Is(err, models.ErrInvalidSessionAction),
		errors.Is(err, models.ErrRatingOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// healthHandler reports service health (GET /health). The status degrades
// when the store or the model gateway is not configured.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	health := map[string]interface{}{
		"status":    "ok",
		"store":     s.st != nil,
		"gateway":   s.gen != nil,
		"timestamp": time.Now().UTC(),
	}
	if s.st == nil || s.gen == nil {
		health["status"] = "degraded"
	}
	writeJSONResponse(w, http.StatusOK, models.Success(health))
}

// versionHandler reports the build version (GET /version).
func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"version": Version}))
}
