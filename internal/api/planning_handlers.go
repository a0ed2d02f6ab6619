// Package api provides planning conversation and work block handlers for FocusLoop endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

// planningStartHandler opens a planning conversation (POST /planning/start).
func (s *Server) planningStartHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.planningStartHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.planningStartHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.PlanningStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.planningStartHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.planningStartHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	start, err := s.engine.StartPlanningConversation(r.Context(), req.UserID)
	if err != nil {
		slog.Error("Server.planningStartHandler: failed to start conversation", "error", err, "userID", req.UserID)
		writeJSONResponse(w, errorStatusCode(err), models.Error("Failed to start planning conversation"))
		return
	}

	slog.Info("Server.planningStartHandler: conversation started", "userID", req.UserID, "conversationID", start.ConversationID)
	writeJSONResponse(w, http.StatusOK, models.Success(start))
}

// planningContinueHandler advances a planning conversation (POST /planning/continue).
func (s *Server) planningContinueHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.planningContinueHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.planningContinueHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.PlanningContinueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.planningContinueHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.planningContinueHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	turn, err := s.engine.ContinuePlanningConversation(r.Context(), req.UserID, req.Message)
	if err != nil {
		slog.Warn("Server.planningContinueHandler: failed to continue conversation", "error", err, "userID", req.UserID)
		writeJSONResponse(w, errorStatusCode(err), models.Error(err.Error()))
		return
	}

	slog.Info("Server.planningContinueHandler: conversation advanced", "userID", req.UserID, "stage", turn.Stage, "source", turn.Source)
	writeJSONResponse(w, http.StatusOK, models.Success(turn))
}

// workBlockStartHandler proposes work block durations (POST /workblocks/start).
func (s *Server) workBlockStartHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.workBlockStartHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.workBlockStartHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.WorkBlockStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.workBlockStartHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.workBlockStartHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	offer := s.engine.StartWorkBlock(r.Context(), req.UserID, req.TaskDescription)
	slog.Info("Server.workBlockStartHandler: duration offer made", "userID", req.UserID, "options", offer.DurationOptions, "source", offer.Source)
	writeJSONResponse(w, http.StatusOK, models.Success(offer))
}

// workBlockConfirmHandler starts the timer for a chosen duration (POST /workblocks/confirm).
func (s *Server) workBlockConfirmHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.workBlockConfirmHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.workBlockConfirmHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.ConfirmDurationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.workBlockConfirmHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.workBlockConfirmHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	started, err := s.engine.ConfirmDuration(r.Context(), req.UserID, req.DurationMinutes)
	if err != nil {
		slog.Warn("Server.workBlockConfirmHandler: failed to confirm duration", "error", err, "userID", req.UserID, "minutes", req.DurationMinutes)
		writeJSONResponse(w, errorStatusCode(err), models.Error(err.Error()))
		return
	}

	slog.Info("Server.workBlockConfirmHandler: work block started", "userID", req.UserID, "workBlockID", started.WorkBlockID, "minutes", started.DurationMinutes)
	writeJSONResponse(w, http.StatusOK, models.Success(started))
}

// workBlockCheckHandler runs a dynamic state check (POST /workblocks/check).
func (s *Server) workBlockCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.workBlockCheckHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.workBlockCheckHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.StateCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.workBlockCheckHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.workBlockCheckHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	result := s.engine.DynamicStateCheck(r.Context(), req.UserID, req.Message)
	slog.Info("Server.workBlockCheckHandler: state check complete", "userID", req.UserID, "action", result.SuggestedAction, "executed", result.AdaptationExecuted, "source", result.Source)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// workBlockBreakHandler requests break options after a work block (POST /workblocks/break).
func (s *Server) workBlockBreakHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.workBlockBreakHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.workBlockBreakHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.BreakDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.workBlockBreakHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.workBlockBreakHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	offer, err := s.engine.DynamicBreakDecision(r.Context(), req.UserID, req.WorkBlockID)
	if err != nil {
		slog.Warn("Server.workBlockBreakHandler: failed to decide break", "error", err, "userID", req.UserID, "workBlockID", req.WorkBlockID)
		writeJSONResponse(w, errorStatusCode(err), models.Error(err.Error()))
		return
	}

	slog.Info("Server.workBlockBreakHandler: break options offered", "userID", req.UserID, "options", offer.BreakOptions, "source", offer.Source)
	writeJSONResponse(w, http.StatusOK, models.Success(offer))
}

// statusHandler reports the user's conversation stage and timers (GET /status?user_id=).
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.statusHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.statusHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		slog.Warn("Server.statusHandler: missing user_id")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required parameter: user_id"))
		return
	}

	status := s.engine.GetStatus(userID)
	slog.Debug("Server.statusHandler: status fetched", "userID", userID, "activeBlocks", len(status.ActiveWorkBlocks))
	writeJSONResponse(w, http.StatusOK, models.Success(status))
}
