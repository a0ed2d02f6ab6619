// Package api provides companion chat and user management handlers for FocusLoop endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

// defaultHistoryLimit caps chat history responses when the client does not
// ask for a specific count.
const defaultHistoryLimit = 20

// chatHandler answers a companion chat message (POST /chat).
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.chatHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.chatHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.chatHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.chatHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	reply := s.chat.SendMessage(r.Context(), req.UserID, req.Message)
	slog.Info("Server.chatHandler: reply produced", "userID", req.UserID, "fallback", reply.Fallback)
	writeJSONResponse(w, http.StatusOK, models.Success(reply))
}

// chatHistoryHandler returns recent chat exchanges, newest first
// (GET /chat/history?user_id=).
func (s *Server) chatHistoryHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.chatHistoryHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.chatHistoryHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		slog.Warn("Server.chatHistoryHandler: missing user_id")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required parameter: user_id"))
		return
	}

	limit := defaultHistoryLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			slog.Warn("Server.chatHistoryHandler: invalid limit parameter", "limit", l)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid parameter: limit"))
			return
		}
		limit = parsed
	}

	history, err := s.chat.History(userID, limit)
	if err != nil {
		slog.Error("Server.chatHistoryHandler: failed to fetch history", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch chat history"))
		return
	}
	slog.Debug("Server.chatHistoryHandler: history fetched", "userID", userID, "count", len(history))
	writeJSONResponse(w, http.StatusOK, models.Success(history))
}

// createUserHandler registers or updates a user (POST /users).
func (s *Server) createUserHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.createUserHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.createUserHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var u models.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		slog.Warn("Server.createUserHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if err := u.Validate(); err != nil {
		slog.Warn("Server.createUserHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	if err := s.st.UpsertUser(u); err != nil {
		slog.Error("Server.createUserHandler: failed to save user", "error", err, "userID", u.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save user"))
		return
	}
	slog.Info("Server.createUserHandler: user saved", "userID", u.ID)
	writeJSONResponse(w, http.StatusCreated, models.Success(u))
}

// getUserHandler fetches a user by ID (GET /users/{id}).
func (s *Server) getUserHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.getUserHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.getUserHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := strings.TrimPrefix(r.URL.Path, "/users/")
	if userID == "" || strings.Contains(userID, "/") {
		slog.Warn("Server.getUserHandler: invalid path", "path", r.URL.Path)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Not found"))
		return
	}

	u, err := s.st.GetUser(userID)
	if err != nil {
		slog.Error("Server.getUserHandler: failed to fetch user", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch user"))
		return
	}
	if u == nil {
		slog.Warn("Server.getUserHandler: user not found", "userID", userID)
		writeJSONResponse(w, http.StatusNotFound, models.Error(models.ErrUserNotFound.Error()))
		return
	}
	slog.Debug("Server.getUserHandler: user fetched", "userID", userID)
	writeJSONResponse(w, http.StatusOK, models.Success(u))
}
