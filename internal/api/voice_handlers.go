// Package api provides voice session handlers for FocusLoop endpoints.
package api

import (
	"log/slog"
	"net/http"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
	"github.com/FocusLoopHQ/FocusLoop/internal/voice"
)

// voiceWebSocketHandler upgrades the connection into a voice session
// (GET /voice/ws).
func (s *Server) voiceWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.voiceWebSocketHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.voiceWebSocketHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.gen == nil {
		slog.Warn("Server.voiceWebSocketHandler: gateway not configured")
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Voice sessions require a configured model gateway"))
		return
	}
	s.voiceWS.ServeHTTP(w, r)
}

// voiceCatalogHandler lists synthesizable voices (GET /voice/voices).
func (s *Server) voiceCatalogHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.voiceCatalogHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.voiceCatalogHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(voice.AvailableVoices()))
}
