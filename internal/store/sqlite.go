// Package store provides storage backends for FocusLoop.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	slog.Debug("SQLite database directory verified/created", "dir", dir)

	slog.Debug("Opening SQLite database connection")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	slog.Debug("SQLite database opened")

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLite ping successful")

	// Run migrations to ensure tables exist
	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// SaveWorkBlock inserts a work block, or replaces it when the ID already exists.
func (s *SQLiteStore) SaveWorkBlock(wb models.WorkBlock) error {
	query := `
		INSERT OR REPLACE INTO work_blocks (` + workBlockColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		wb.ID, wb.UserID, nilIfEmpty(wb.TaskDescription), nilIfEmpty(wb.TaskComplexity),
		wb.PlannedDurationMinutes, wb.OriginalPlannedMinutes, wb.ActualDurationMinutes,
		wb.StartedAt, wb.CompletedAt, wb.Completed, wb.CompletionPercentage,
		wb.WasAdapted, wb.AdaptationCount, nilIfEmpty(wb.EnergyLevelBefore), nilIfEmpty(wb.EnergyLevelAfter),
		wb.HyperfocusOccurred, wb.InterruptionsCount, wb.ProductivityRating, nilIfEmpty(wb.FocusQuality))
	if err != nil {
		slog.Error("SQLiteStore SaveWorkBlock failed", "error", err, "workBlockID", wb.ID, "userID", wb.UserID)
		return fmt.Errorf("failed to save work block %s: %w", wb.ID, err)
	}
	slog.Debug("SQLiteStore SaveWorkBlock succeeded", "workBlockID", wb.ID, "userID", wb.UserID)
	return nil
}

// GetWorkBlock retrieves a work block by ID. Returns (nil, nil) when not found.
func (s *SQLiteStore) GetWorkBlock(id string) (*models.WorkBlock, error) {
	query := `SELECT ` + workBlockColumns + ` FROM work_blocks WHERE id = ?`

	wb, err := scanWorkBlock(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("SQLiteStore GetWorkBlock not found", "workBlockID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetWorkBlock failed", "error", err, "workBlockID", id)
		return nil, fmt.Errorf("failed to get work block %s: %w", id, err)
	}
	return &wb, nil
}

// CompleteWorkBlock marks a work block as finished, recording the actual time
// spent and the completion percentage.
func (s *SQLiteStore) CompleteWorkBlock(id string, completedAt time.Time, actualMinutes float64, completionPct float64) error {
	query := `
		UPDATE work_blocks
		SET completed_at = ?, actual_duration_minutes = ?, completed = 1, completion_percentage = ?
		WHERE id = ?`

	_, err := s.db.Exec(query, completedAt, actualMinutes, completionPct, id)
	if err != nil {
		slog.Error("SQLiteStore CompleteWorkBlock failed", "error", err, "workBlockID", id)
		return fmt.Errorf("failed to complete work block %s: %w", id, err)
	}
	slog.Debug("SQLiteStore CompleteWorkBlock succeeded", "workBlockID", id, "actualMinutes", actualMinutes)
	return nil
}

// RecordWorkBlockAdaptation updates the planned duration after a mid-block
// adaptation and increments the adaptation counter.
func (s *SQLiteStore) RecordWorkBlockAdaptation(id string, plannedMinutes int) error {
	query := `
		UPDATE work_blocks
		SET planned_duration_minutes = ?, was_adapted = 1, adaptation_count = adaptation_count + 1
		WHERE id = ?`

	_, err := s.db.Exec(query, plannedMinutes, id)
	if err != nil {
		slog.Error("SQLiteStore RecordWorkBlockAdaptation failed", "error", err, "workBlockID", id)
		return fmt.Errorf("failed to record adaptation for work block %s: %w", id, err)
	}
	slog.Debug("SQLiteStore RecordWorkBlockAdaptation succeeded", "workBlockID", id, "plannedMinutes", plannedMinutes)
	return nil
}

// QueryRecentWorkBlocks returns up to limit work blocks for a user started at
// or after since, newest first.
func (s *SQLiteStore) QueryRecentWorkBlocks(userID string, since time.Time, limit int) ([]models.WorkBlock, error) {
	query := `SELECT ` + workBlockColumns + `
		FROM work_blocks WHERE user_id = ? AND started_at >= ?
		ORDER BY started_at DESC LIMIT ?`

	rows, err := s.db.Query(query, userID, since, limit)
	if err != nil {
		slog.Error("SQLiteStore QueryRecentWorkBlocks query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query work blocks: %w", err)
	}
	defer rows.Close()

	var blocks []models.WorkBlock
	for rows.Next() {
		wb, err := scanWorkBlock(rows)
		if err != nil {
			slog.Error("SQLiteStore QueryRecentWorkBlocks scan failed", "error", err, "userID", userID)
			return nil, err
		}
		blocks = append(blocks, wb)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore QueryRecentWorkBlocks rows iteration failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to iterate work block rows: %w", err)
	}
	slog.Debug("SQLiteStore QueryRecentWorkBlocks succeeded", "userID", userID, "count", len(blocks))
	return blocks, nil
}

// ListRunningWorkBlocks returns all work blocks that have not been completed,
// oldest first. Used to recover in-memory timers after a restart.
func (s *SQLiteStore) ListRunningWorkBlocks() ([]models.WorkBlock, error) {
	query := `SELECT ` + workBlockColumns + `
		FROM work_blocks WHERE completed = 0
		ORDER BY started_at ASC`

	rows, err := s.db.Query(query)
	if err != nil {
		slog.Error("SQLiteStore ListRunningWorkBlocks query failed", "error", err)
		return nil, fmt.Errorf("failed to query running work blocks: %w", err)
	}
	defer rows.Close()

	var blocks []models.WorkBlock
	for rows.Next() {
		wb, err := scanWorkBlock(rows)
		if err != nil {
			slog.Error("SQLiteStore ListRunningWorkBlocks scan failed", "error", err)
			return nil, err
		}
		blocks = append(blocks, wb)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListRunningWorkBlocks rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate running work block rows: %w", err)
	}
	slog.Debug("SQLiteStore ListRunningWorkBlocks succeeded", "count", len(blocks))
	return blocks, nil
}

// LogEmotionalState appends an emotional state observation for a user.
func (s *SQLiteStore) LogEmotionalState(entry models.EmotionalStateLog) error {
	query := `
		INSERT INTO emotional_states (user_id, state, intensity, trigger_message, intervention_needed, intervention_tier, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query, entry.UserID, entry.State, entry.Intensity,
		nilIfEmpty(entry.Trigger), entry.InterventionNeeded, entry.InterventionTier, entry.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore LogEmotionalState failed", "error", err, "userID", entry.UserID, "state", entry.State)
		return fmt.Errorf("failed to log emotional state for %s: %w", entry.UserID, err)
	}
	slog.Debug("SQLiteStore LogEmotionalState succeeded", "userID", entry.UserID, "state", entry.State)
	return nil
}

// QueryRecentEmotionalStates returns up to limit emotional state entries for a
// user recorded at or after since, newest first.
func (s *SQLiteStore) QueryRecentEmotionalStates(userID string, since time.Time, limit int) ([]models.EmotionalStateLog, error) {
	query := `SELECT id, user_id, state, intensity, trigger_message, intervention_needed, intervention_tier, created_at
		FROM emotional_states WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.Query(query, userID, since, limit)
	if err != nil {
		slog.Error("SQLiteStore QueryRecentEmotionalStates query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query emotional states: %w", err)
	}
	defer rows.Close()

	var entries []models.EmotionalStateLog
	for rows.Next() {
		entry, err := scanEmotionalState(rows)
		if err != nil {
			slog.Error("SQLiteStore QueryRecentEmotionalStates scan failed", "error", err, "userID", userID)
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore QueryRecentEmotionalStates rows iteration failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to iterate emotional state rows: %w", err)
	}
	slog.Debug("SQLiteStore QueryRecentEmotionalStates succeeded", "userID", userID, "count", len(entries))
	return entries, nil
}

// LogIntervention appends an intervention record for a user.
func (s *SQLiteStore) LogIntervention(entry models.InterventionLog) error {
	query := `
		INSERT INTO intervention_logs (user_id, intervention_type, urgency, trigger_message, outcome, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query, entry.UserID, entry.Type, entry.Urgency,
		nilIfEmpty(entry.Trigger), nilIfEmpty(entry.Outcome), entry.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore LogIntervention failed", "error", err, "userID", entry.UserID, "type", entry.Type)
		return fmt.Errorf("failed to log intervention for %s: %w", entry.UserID, err)
	}
	slog.Debug("SQLiteStore LogIntervention succeeded", "userID", entry.UserID, "type", entry.Type)
	return nil
}

// QueryRecentInterventions returns up to limit intervention entries for a user
// recorded at or after since, newest first.
func (s *SQLiteStore) QueryRecentInterventions(userID string, since time.Time, limit int) ([]models.InterventionLog, error) {
	query := `SELECT id, user_id, intervention_type, urgency, trigger_message, outcome, created_at
		FROM intervention_logs WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.Query(query, userID, since, limit)
	if err != nil {
		slog.Error("SQLiteStore QueryRecentInterventions query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query interventions: %w", err)
	}
	defer rows.Close()

	var entries []models.InterventionLog
	for rows.Next() {
		entry, err := scanIntervention(rows)
		if err != nil {
			slog.Error("SQLiteStore QueryRecentInterventions scan failed", "error", err, "userID", userID)
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore QueryRecentInterventions rows iteration failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to iterate intervention rows: %w", err)
	}
	slog.Debug("SQLiteStore QueryRecentInterventions succeeded", "userID", userID, "count", len(entries))
	return entries, nil
}

// SaveSession inserts a session, or replaces it when the ID already exists.
func (s *SQLiteStore) SaveSession(sess models.Session) error {
	query := `
		INSERT OR REPLACE INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		sess.ID, sess.UserID, sess.Type, sess.Status, sess.ScheduledTime, sess.StartedAt, sess.CompletedAt,
		sess.PlannedDurationMinutes, sess.ActualDurationMinutes, sess.WasAdapted, nilIfEmpty(sess.AdaptationReason),
		nilIfEmpty(sess.StarterPrompt), nilIfEmpty(sess.Summary), sess.EffectivenessRating)
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "sessionID", sess.ID, "userID", sess.UserID)
		return fmt.Errorf("failed to save session %s: %w", sess.ID, err)
	}
	slog.Debug("SQLiteStore SaveSession succeeded", "sessionID", sess.ID, "type", sess.Type, "status", sess.Status)
	return nil
}

// GetSession retrieves a session by ID. Returns (nil, nil) when not found.
func (s *SQLiteStore) GetSession(id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`

	sess, err := scanSession(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("SQLiteStore GetSession not found", "sessionID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSession failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return &sess, nil
}

// QuerySessionsByUser returns all sessions for a user scheduled at or after
// since, oldest first.
func (s *SQLiteStore) QuerySessionsByUser(userID string, since time.Time) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions WHERE user_id = ? AND scheduled_time >= ?
		ORDER BY scheduled_time ASC`

	rows, err := s.db.Query(query, userID, since)
	if err != nil {
		slog.Error("SQLiteStore QuerySessionsByUser query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			slog.Error("SQLiteStore QuerySessionsByUser scan failed", "error", err, "userID", userID)
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore QuerySessionsByUser rows iteration failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	slog.Debug("SQLiteStore QuerySessionsByUser succeeded", "userID", userID, "count", len(sessions))
	return sessions, nil
}

// SaveMorningAnalysis stores or updates the morning analysis for a user.
func (s *SQLiteStore) SaveMorningAnalysis(analysis models.MorningAnalysis) error {
	planJSON, err := json.Marshal(analysis.Plan)
	if err != nil {
		slog.Error("SQLiteStore SaveMorningAnalysis plan marshal failed", "error", err, "userID", analysis.UserID)
		return fmt.Errorf("failed to marshal day plan: %w", err)
	}

	var scheduleJSON string
	if len(analysis.Schedule) > 0 {
		scheduleBytes, err := json.Marshal(analysis.Schedule)
		if err != nil {
			slog.Error("SQLiteStore SaveMorningAnalysis schedule marshal failed", "error", err, "userID", analysis.UserID)
			return fmt.Errorf("failed to marshal schedule: %w", err)
		}
		scheduleJSON = string(scheduleBytes)
	}

	query := `
		INSERT OR REPLACE INTO morning_analyses (id, user_id, analysis_date, plan_json, transcript, schedule_json)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err = s.db.Exec(query, analysis.ID, analysis.UserID, analysis.AnalysisDate,
		string(planJSON), nilIfEmpty(analysis.Transcript), nilIfEmpty(scheduleJSON))
	if err != nil {
		slog.Error("SQLiteStore SaveMorningAnalysis failed", "error", err, "userID", analysis.UserID)
		return fmt.Errorf("failed to save morning analysis for %s: %w", analysis.UserID, err)
	}
	slog.Debug("SQLiteStore SaveMorningAnalysis succeeded", "userID", analysis.UserID, "analysisID", analysis.ID)
	return nil
}

// GetLatestMorningAnalysis retrieves the most recent morning analysis for a
// user. Returns (nil, nil) when the user has none.
func (s *SQLiteStore) GetLatestMorningAnalysis(userID string) (*models.MorningAnalysis, error) {
	query := `SELECT id, user_id, analysis_date, plan_json, transcript, schedule_json
		FROM morning_analyses WHERE user_id = ?
		ORDER BY analysis_date DESC LIMIT 1`

	var analysis models.MorningAnalysis
	var planJSON string
	var transcript, scheduleJSON sql.NullString

	err := s.db.QueryRow(query, userID).Scan(
		&analysis.ID, &analysis.UserID, &analysis.AnalysisDate, &planJSON, &transcript, &scheduleJSON)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("SQLiteStore GetLatestMorningAnalysis not found", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetLatestMorningAnalysis failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to get morning analysis for %s: %w", userID, err)
	}

	analysis.Transcript = transcript.String
	if err := json.Unmarshal([]byte(planJSON), &analysis.Plan); err != nil {
		slog.Error("SQLiteStore GetLatestMorningAnalysis plan unmarshal failed", "error", err, "userID", userID)
		// Continue with the default plan rather than failing
		analysis.Plan = models.DefaultDayPlan()
	}
	if scheduleJSON.Valid && scheduleJSON.String != "" {
		if err := json.Unmarshal([]byte(scheduleJSON.String), &analysis.Schedule); err != nil {
			slog.Error("SQLiteStore GetLatestMorningAnalysis schedule unmarshal failed", "error", err, "userID", userID)
			analysis.Schedule = nil
		}
	}

	slog.Debug("SQLiteStore GetLatestMorningAnalysis found", "userID", userID, "analysisID", analysis.ID)
	return &analysis, nil
}

// SaveChatInteraction appends a chat exchange for a user.
func (s *SQLiteStore) SaveChatInteraction(entry models.ChatInteraction) error {
	query := `
		INSERT INTO chat_interactions (user_id, user_message, reply, created_at)
		VALUES (?, ?, ?, ?)`

	_, err := s.db.Exec(query, entry.UserID, entry.UserMessage, entry.Reply, entry.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveChatInteraction failed", "error", err, "userID", entry.UserID)
		return fmt.Errorf("failed to save chat interaction for %s: %w", entry.UserID, err)
	}
	slog.Debug("SQLiteStore SaveChatInteraction succeeded", "userID", entry.UserID)
	return nil
}

// QueryRecentChatInteractions returns up to limit chat exchanges for a user,
// newest first.
func (s *SQLiteStore) QueryRecentChatInteractions(userID string, limit int) ([]models.ChatInteraction, error) {
	query := `SELECT id, user_id, user_message, reply, created_at
		FROM chat_interactions WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.Query(query, userID, limit)
	if err != nil {
		slog.Error("SQLiteStore QueryRecentChatInteractions query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query chat interactions: %w", err)
	}
	defer rows.Close()

	var entries []models.ChatInteraction
	for rows.Next() {
		entry, err := scanChatInteraction(rows)
		if err != nil {
			slog.Error("SQLiteStore QueryRecentChatInteractions scan failed", "error", err, "userID", userID)
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore QueryRecentChatInteractions rows iteration failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to iterate chat interaction rows: %w", err)
	}
	slog.Debug("SQLiteStore QueryRecentChatInteractions succeeded", "userID", userID, "count", len(entries))
	return entries, nil
}

// UpsertUser inserts a user or updates the mutable fields of an existing one.
// The original created_at is preserved on update.
func (s *SQLiteStore) UpsertUser(u models.User) error {
	query := `
		INSERT INTO users (id, name, phone_number, timezone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone_number = excluded.phone_number,
			timezone = excluded.timezone,
			updated_at = excluded.updated_at`

	_, err := s.db.Exec(query, u.ID, nilIfEmpty(u.Name), nilIfEmpty(u.PhoneNumber),
		nilIfEmpty(u.Timezone), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore UpsertUser failed", "error", err, "userID", u.ID)
		return fmt.Errorf("failed to upsert user %s: %w", u.ID, err)
	}
	slog.Debug("SQLiteStore UpsertUser succeeded", "userID", u.ID)
	return nil
}

// GetUser retrieves a user by ID. Returns (nil, nil) when not found.
func (s *SQLiteStore) GetUser(id string) (*models.User, error) {
	query := `SELECT id, name, phone_number, timezone, created_at, updated_at FROM users WHERE id = ?`

	u, err := scanUser(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("SQLiteStore GetUser not found", "userID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetUser failed", "error", err, "userID", id)
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return &u, nil
}

// GetUserByPhone retrieves a user by phone number. Returns (nil, nil) when
// no user carries that number.
func (s *SQLiteStore) GetUserByPhone(phone string) (*models.User, error) {
	query := `SELECT id, name, phone_number, timezone, created_at, updated_at FROM users WHERE phone_number = ?`

	u, err := scanUser(s.db.QueryRow(query, phone))
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("SQLiteStore GetUserByPhone not found", "phone", phone)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetUserByPhone failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}
	return &u, nil
}

// ListUsers returns every enrolled user, oldest first.
func (s *SQLiteStore) ListUsers() ([]models.User, error) {
	query := `SELECT id, name, phone_number, timezone, created_at, updated_at FROM users ORDER BY created_at`

	rows, err := s.db.Query(query)
	if err != nil {
		slog.Error("SQLiteStore ListUsers failed", "error", err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// JobRepo returns the store's durable job repository.
func (s *SQLiteStore) JobRepo() JobRepo { return s }

// OutboxRepo returns the store's outgoing nudge repository.
func (s *SQLiteStore) OutboxRepo() OutboxRepo { return s }

// DedupRepo returns the store's inbound deduplication repository.
func (s *SQLiteStore) DedupRepo() DedupRepo { return s }

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	} else {
		slog.Debug("SQLite database connection closed successfully")
	}
	return err
}
