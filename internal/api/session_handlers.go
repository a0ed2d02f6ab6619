// Package api provides emotional state and session handlers for FocusLoop endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/FocusLoopHQ/FocusLoop/internal/interpreter"
	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

// Defaults for the durable emotion log query.
const (
	defaultEmotionWindow = 24 * time.Hour
	defaultEmotionLimit  = 50
)

// emotionDetectionResult pairs a detection with its intervention
// recommendation and how the detection was obtained.
type emotionDetectionResult struct {
	Detection      models.EmotionalStateDetection     `json:"detection"`
	Source         interpreter.Source                 `json:"detection_source"`
	Recommendation *models.InterventionRecommendation `json:"recommendation,omitempty"`
}

// emotionDetectHandler classifies a piece of text (POST /emotions/detect).
func (s *Server) emotionDetectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.emotionDetectHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.emotionDetectHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.EmotionDetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.emotionDetectHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.emotionDetectHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	detection, src := s.detector.Detect(r.Context(), req.UserID, req.Text, nil)
	result := emotionDetectionResult{Detection: detection, Source: src}
	if detection.InterventionNeeded {
		rec := s.detector.Recommend(req.UserID, detection.State, detection.Intensity, req.Text)
		result.Recommendation = &rec
	}

	slog.Info("Server.emotionDetectHandler: text classified", "userID", req.UserID, "state", detection.State, "source", src)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// emotionsRecentHandler returns the recent durable emotion log
// (GET /emotions/recent?user_id=).
func (s *Server) emotionsRecentHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.emotionsRecentHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.emotionsRecentHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		slog.Warn("Server.emotionsRecentHandler: missing user_id")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required parameter: user_id"))
		return
	}

	since := time.Now().UTC().Add(-defaultEmotionWindow)
	if hours := r.URL.Query().Get("hours"); hours != "" {
		h, err := strconv.Atoi(hours)
		if err != nil || h <= 0 {
			slog.Warn("Server.emotionsRecentHandler: invalid hours parameter", "hours", hours)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid parameter: hours"))
			return
		}
		since = time.Now().UTC().Add(-time.Duration(h) * time.Hour)
	}

	entries, err := s.st.QueryRecentEmotionalStates(userID, since, defaultEmotionLimit)
	if err != nil {
		slog.Error("Server.emotionsRecentHandler: failed to query emotion log", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch emotional states"))
		return
	}
	slog.Debug("Server.emotionsRecentHandler: entries fetched", "userID", userID, "count", len(entries))
	writeJSONResponse(w, http.StatusOK, models.Success(entries))
}

// morningSessionHandler analyzes a morning planning transcript and
// materializes the day's schedule (POST /sessions/morning).
func (s *Server) morningSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.morningSessionHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.morningSessionHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.MorningSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.morningSessionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.morningSessionHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	result, err := s.sessions.ProcessMorningPlanning(r.Context(), req.UserID, req.Transcript)
	if err != nil {
		slog.Error("Server.morningSessionHandler: failed to process morning planning", "error", err, "userID", req.UserID)
		writeJSONResponse(w, errorStatusCode(err), models.Error("Failed to process morning session"))
		return
	}

	slog.Info("Server.morningSessionHandler: morning plan materialized", "userID", req.UserID, "scheduleItems", len(result.Schedule), "scheduledSessions", len(result.ScheduledSessions))
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// sessionsHandler lists today's sessions for a user (GET /sessions?user_id=).
func (s *Server) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.sessionsHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.sessionsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		slog.Warn("Server.sessionsHandler: missing user_id")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required parameter: user_id"))
		return
	}

	var (
		sessions []models.Session
		err      error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		sessions, err = s.sessions.UserSessions(userID, models.SessionStatus(status), models.SessionType(r.URL.Query().Get("type")), 0)
	} else {
		sessions, err = s.sessions.TodaysSessions(userID)
	}
	if err != nil {
		slog.Error("Server.sessionsHandler: failed to list sessions", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch sessions"))
		return
	}
	slog.Debug("Server.sessionsHandler: sessions fetched", "userID", userID, "count", len(sessions))
	writeJSONResponse(w, http.StatusOK, models.Success(sessions))
}

// sessionStatusUpdateHandler transitions a session's lifecycle state
// (POST /sessions/{id}/status).
func (s *Server) sessionStatusUpdateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.sessionStatusUpdateHandler: processing request", "method", r.Method, "path", r.URL.Path)

	// Path shape: /sessions/{id}/status
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "status" {
		slog.Warn("Server.sessionStatusUpdateHandler: invalid path", "path", r.URL.Path)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Not found"))
		return
	}
	sessionID := parts[0]

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.sessionStatusUpdateHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.SessionStatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.sessionStatusUpdateHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.sessionStatusUpdateHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	var (
		sess *models.Session
		err  error
	)
	switch req.Action {
	case models.SessionActionStart:
		sess, err = s.sessions.StartSession(sessionID)
	case models.SessionActionComplete:
		sess, err = s.sessions.CompleteSession(sessionID, req.Summary, req.EffectivenessRating)
	case models.SessionActionSkip:
		sess, err = s.sessions.SkipSession(sessionID, req.Reason)
	}
	if err != nil {
		slog.Warn("Server.sessionStatusUpdateHandler: transition failed", "error", err, "sessionID", sessionID, "action", req.Action)
		writeJSONResponse(w, errorStatusCode(err), models.Error(err.Error()))
		return
	}

	slog.Info("Server.sessionStatusUpdateHandler: session transitioned", "sessionID", sessionID, "action", req.Action, "status", sess.Status)
	writeJSONResponse(w, http.StatusOK, models.Success(sess))
}

// sessionStatsHandler summarizes session outcomes (GET /sessions/stats?user_id=).
func (s *Server) sessionStatsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.sessionStatsHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.sessionStatsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		slog.Warn("Server.sessionStatsHandler: missing user_id")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required parameter: user_id"))
		return
	}

	days := 0
	if d := r.URL.Query().Get("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed <= 0 {
			slog.Warn("Server.sessionStatsHandler: invalid days parameter", "days", d)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid parameter: days"))
			return
		}
		days = parsed
	}

	stats, err := s.sessions.Statistics(userID, days)
	if err != nil {
		slog.Error("Server.sessionStatsHandler: failed to compute statistics", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to compute session statistics"))
		return
	}
	slog.Debug("Server.sessionStatsHandler: statistics computed", "userID", userID, "total", stats.TotalSessions)
	writeJSONResponse(w, http.StatusOK, models.Success(stats))
}
