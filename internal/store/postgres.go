// Package store provides storage backends for FocusLoop.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	slog.Debug("Opening Postgres database connection")
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	slog.Debug("Postgres database opened")

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	slog.Debug("Postgres ping successful")

	// Run migrations to ensure tables exist
	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// SaveWorkBlock inserts a work block, or updates it when the ID already exists.
func (s *PostgresStore) SaveWorkBlock(wb models.WorkBlock) error {
	query := `
		INSERT INTO work_blocks (` + workBlockColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO UPDATE SET
			task_description = EXCLUDED.task_description,
			task_complexity = EXCLUDED.task_complexity,
			planned_duration_minutes = EXCLUDED.planned_duration_minutes,
			actual_duration_minutes = EXCLUDED.actual_duration_minutes,
			completed_at = EXCLUDED.completed_at,
			completed = EXCLUDED.completed,
			completion_percentage = EXCLUDED.completion_percentage,
			was_adapted = EXCLUDED.was_adapted,
			adaptation_count = EXCLUDED.adaptation_count,
			energy_level_before = EXCLUDED.energy_level_before,
			energy_level_after = EXCLUDED.energy_level_after,
			hyperfocus_occurred = EXCLUDED.hyperfocus_occurred,
			interruptions_count = EXCLUDED.interruptions_count,
			productivity_rating = EXCLUDED.productivity_rating,
			focus_quality = EXCLUDED.focus_quality`

	_, err := s.db.Exec(query,
		wb.ID, wb.UserID, nilIfEmpty(wb.TaskDescription), nilIfEmpty(wb.TaskComplexity),
		wb.PlannedDurationMinutes, wb.OriginalPlannedMinutes, wb.ActualDurationMinutes,
		wb.StartedAt, wb.CompletedAt, wb.Completed, wb.CompletionPercentage,
		wb.WasAdapted, wb.AdaptationCount, nilIfEmpty(wb.EnergyLevelBefore), nilIfEmpty(wb.EnergyLevelAfter),
		wb.HyperfocusOccurred, wb.InterruptionsCount, wb.ProductivityRating, nilIfEmpty(wb.FocusQuality))
	if err != nil {
		slog.Error("PostgresStore SaveWorkBlock failed", "error", err, "workBlockID", wb.ID, "userID", wb.UserID)
		return fmt.Errorf("failed to save work block %s: %w", wb.ID, err)
	}
	slog.Debug("PostgresStore SaveWorkBlock succeeded", "workBlockID", wb.ID, "userID", wb.UserID)
	return nil
}

// GetWorkBlock retrieves a work block by ID. Returns (nil, nil) when not found.
func (s *PostgresStore) GetWorkBlock(id string) (*models.WorkBlock, error) {
	query := `SELECT ` + workBlockColumns + ` FROM work_blocks WHERE id = $1`

	wb, err := scanWorkBlock(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("PostgresStore GetWorkBlock not found", "workBlockID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetWorkBlock failed", "error", err, "workBlockID", id)
		return nil, fmt.Errorf("failed to get work block %s: %w", id, err)
	}
	return &wb, nil
}

// CompleteWorkBlock marks a work block as finished, recording the actual time
// spent and the completion percentage.
func (s *PostgresStore) CompleteWorkBlock(id string, completedAt time.Time, actualMinutes float64, completionPct float64) error {
	query := `
		UPDATE work_blocks
		SET completed_at = $1, actual_duration_minutes = $2, completed = TRUE, completion_percentage = $3
		WHERE id = $4`

	_, err := s.db.Exec(query, completedAt, actualMinutes, completionPct, id)
	if err != nil {
		slog.Error("PostgresStore CompleteWorkBlock failed", "error", err, "workBlockID", id)
		return fmt.Errorf("failed to complete work block %s: %w", id, err)
	}
	slog.Debug("PostgresStore CompleteWorkBlock succeeded", "workBlockID", id, "actualMinutes", actualMinutes)
	return nil
}

// RecordWorkBlockAdaptation updates the planned duration after a mid-block
// adaptation and increments the adaptation counter.
func (s *PostgresStore) RecordWorkBlockAdaptation(id string, plannedMinutes int) error {
	query := `
		UPDATE work_blocks
		SET planned_duration_minutes = $1, was_adapted = TRUE, adaptation_count = adaptation_count + 1
		WHERE id = $2`

	_, err := s.db.Exec(query, plannedMinutes, id)
	if err != nil {
		slog.Error("PostgresStore RecordWorkBlockAdaptation failed", "error", err, "workBlockID", id)
		return fmt.Errorf("failed to record adaptation for work block %s: %w", id, err)
	}
	slog.Debug("PostgresStore RecordWorkBlockAdaptation succeeded", "workBlockID", id, "plannedMinutes", plannedMinutes)
	return nil
}

// QueryRecentWorkBlocks returns up to limit work blocks for a user started at
// or after since, newest first.
func (s *PostgresStore) QueryRecentWorkBlocks(userID string, since time.Time, limit int) ([]models.WorkBlock, error) {
	query := `SELECT ` + workBlockColumns + `
		FROM work_blocks WHERE user_id = $1 AND started_at >= $2
		ORDER BY started_at DESC LIMIT $3`

	rows, err := s.db.Query(query, userID, since, limit)
	if err != nil {
		slog.Error("PostgresStore QueryRecentWorkBlocks query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query work blocks: %w", err)
	}
	defer rows.Close()

	var blocks []models.WorkBlock
	for rows.Next() {
		wb, err := scanWorkBlock(rows)
		if err != nil {
			slog.Error("PostgresStore QueryRecentWorkBlocks scan failed", "error", err, "userID", userID)
			return nil, err
		}
		blocks = append(blocks, wb)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore QueryRecentWorkBlocks rows iteration failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to iterate work block rows: %w", err)
	}
	slog.Debug("PostgresStore QueryRecentWorkBlocks succeeded", "userID", userID, "count", len(blocks))
	return blocks, nil
}

// ListRunningWorkBlocks returns all work blocks that have not been completed,
// oldest first. Used to recover in-memory timers after a restart.
func (s *PostgresStore) ListRunningWorkBlocks() ([]models.WorkBlock, error) {
	query := `SELECT ` + workBlockColumns + `
		FROM work_blocks WHERE completed = FALSE
		ORDER BY started_at ASC`

	rows, err := s.db.Query(query)
	if err != nil {
		slog.Error("PostgresStore ListRunningWorkBlocks query failed", "error", err)
		return nil, fmt.Errorf("failed to query running work blocks: %w", err)
	}
	defer rows.Close()

	var blocks []models.WorkBlock
	for rows.Next() {
		wb, err := scanWorkBlock(rows)
		if err != nil {
			slog.Error("PostgresStore ListRunningWorkBlocks scan failed", "error", err)
			return nil, err
		}
		blocks = append(blocks, wb)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListRunningWorkBlocks rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate running work block rows: %w", err)
	}
	slog.Debug("PostgresStore ListRunningWorkBlocks succeeded", "count", len(blocks))
	return blocks, nil
}

// LogEmotionalState appends an emotional state observation for a user.
func (s *PostgresStore) LogEmotionalState(entry models.EmotionalStateLog) error {
	query := `
		INSERT INTO emotional_states (user_id, state, intensity, trigger_message, intervention_needed, intervention_tier, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.Exec(query, entry.UserID, entry.State, entry.Intensity,
		nilIfEmpty(entry.Trigger), entry.InterventionNeeded, entry.InterventionTier, entry.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore LogEmotionalState failed", "error", err, "userID", entry.UserID, "state", entry.State)
		return fmt.Errorf("failed to log emotional state for %s: %w", entry.UserID, err)
	}
	slog.Debug("PostgresStore LogEmotionalState succeeded", "userID", entry.UserID, "state", entry.State)
	return nil
}

// QueryRecentEmotionalStates returns up to limit emotional state entries for a
// user recorded at or after since, newest first.
func (s *PostgresStore) QueryRecentEmotionalStates(userID string, since time.Time, limit int) ([]models.EmotionalStateLog, error) {
	query := `SELECT id, user_id, state, intensity, trigger_message, intervention_needed, intervention_tier, created_at
		FROM emotional_states WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC LIMIT $3`

	rows, err := s.db.Query(query, userID, since, limit)
	if err != nil {
		slog.Error("PostgresStore QueryRecentEmotionalStates query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query emotional states: %w", err)
	}
	defer rows.Close()

	var entries []models.EmotionalStateLog
	for rows.Next() {
		entry, err := scanEmotionalState(rows)
		if err != nil {
			slog.Error("PostgresStore QueryRecentEmotionalStates scan failed", "error", err, "userID", userID)
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore QueryRecentEmotionalStates rows iteration failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to iterate emotional state rows: %w", err)
	}
	slog.Debug("PostgresStore QueryRecentEmotionalStates succeeded", "userID", userID, "count", len(entries))
	return entries, nil
}

// LogIntervention appends an intervention record for a user.
func (s *PostgresStore) LogIntervention(entry models.InterventionLog) error {
	query := `
		INSERT INTO intervention_logs (user_id, intervention_type, urgency, trigger_message, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.Exec(query, entry.UserID, entry.Type, entry.Urgency,
		nilIfEmpty(entry.Trigger), nilIfEmpty(entry.Outcome), entry.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore LogIntervention failed", "error", err, "userID", entry.UserID, "type", entry.Type)
		return fmt.Errorf("failed to log intervention for %s: %w", entry.UserID, err)
	}
	slog.Debug("PostgresStore LogIntervention succeeded", "userID", entry.UserID, "type", entry.Type)
	return nil
}

// QueryRecentInterventions returns up to limit intervention entries for a user
// recorded at or after since, newest first.
func (s *PostgresStore) QueryRecentInterventions(userID string, since time.Time, limit int) ([]models.InterventionLog, error) {
	query := `SELECT id, user_id, intervention_type, urgency, trigger_message, outcome, created_at
		FROM intervention_logs WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC LIMIT $3`

	rows, err := s.db.Query(query, userID, since, limit)
	if err != nil {
		slog.Error("PostgresStore QueryRecentInterventions query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query interventions: %w", err)
	}
	defer rows.Close()

	var entries []models.InterventionLog
	for rows.Next() {
		entry, err := scanIntervention(rows)
		if err != nil {
			slog.Error("PostgresStore QueryRecentInterventions scan failed", "error", err, "userID", userID)
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore QueryRecentInterventions rows iteration failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to iterate intervention rows: %w", err)
	}
	slog.Debug("PostgresStore QueryRecentInterventions succeeded", "userID", userID, "count", len(entries))
	return entries, nil
}

// SaveSession inserts a session, or updates it when the ID already exists.
func (s *PostgresStore) SaveSession(sess models.Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			session_type = EXCLUDED.session_type,
			status = EXCLUDED.status,
			scheduled_time = EXCLUDED.scheduled_time,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			planned_duration_minutes = EXCLUDED.planned_duration_minutes,
			actual_duration_minutes = EXCLUDED.actual_duration_minutes,
			was_adapted = EXCLUDED.was_adapted,
			adaptation_reason = EXCLUDED.adaptation_reason,
			starter_prompt = EXCLUDED.starter_prompt,
			summary = EXCLUDED.summary,
			effectiveness_rating = EXCLUDED.effectiveness_rating`

	_, err := s.db.Exec(query,
		sess.ID, sess.UserID, sess.Type, sess.Status, sess.ScheduledTime, sess.StartedAt, sess.CompletedAt,
		sess.PlannedDurationMinutes, sess.ActualDurationMinutes, sess.WasAdapted, nilIfEmpty(sess.AdaptationReason),
		nilIfEmpty(sess.StarterPrompt), nilIfEmpty(sess.Summary), sess.EffectivenessRating)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "sessionID", sess.ID, "userID", sess.UserID)
		return fmt.Errorf("failed to save session %s: %w", sess.ID, err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "sessionID", sess.ID, "type", sess.Type, "status", sess.Status)
	return nil
}

// GetSession retrieves a session by ID. Returns (nil, nil) when not found.
func (s *PostgresStore) GetSession(id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	sess, err := scanSession(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("PostgresStore GetSession not found", "sessionID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return &sess, nil
}

// QuerySessionsByUser returns all sessions for a user scheduled at or after
// since, oldest first.
func (s *PostgresStore) QuerySessionsByUser(userID string, since time.Time) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions WHERE user_id = $1 AND scheduled_time >= $2
		ORDER BY scheduled_time ASC`

	rows, err := s.db.Query(query, userID, since)
	if err != nil {
		slog.Error("PostgresStore QuerySessionsByUser query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			slog.Error("PostgresStore QuerySessionsByUser scan failed", "error", err, "userID", userID)
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore QuerySessionsByUser rows iteration failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	slog.Debug("PostgresStore QuerySessionsByUser succeeded", "userID", userID, "count", len(sessions))
	return sessions, nil
}

// SaveMorningAnalysis stores or updates the morning analysis for a user.
func (s *PostgresStore) SaveMorningAnalysis(analysis models.MorningAnalysis) error {
	planJSON, err := json.Marshal(analysis.Plan)
	if err != nil {
		slog.Error("PostgresStore SaveMorningAnalysis plan marshal failed", "error", err, "userID", analysis.UserID)
		return fmt.Errorf("failed to marshal day plan: %w", err)
	}

	var scheduleJSON string
	if len(analysis.Schedule) > 0 {
		scheduleBytes, err := json.Marshal(analysis.Schedule)
		if err != nil {
			slog.Error("PostgresStore SaveMorningAnalysis schedule marshal failed", "error", err, "userID", analysis.UserID)
			return fmt.Errorf("failed to marshal schedule: %w", err)
		}
		scheduleJSON = string(scheduleBytes)
	}

	query := `
		INSERT INTO morning_analyses (id, user_id, analysis_date, plan_json, transcript, schedule_json)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			analysis_date = EXCLUDED.analysis_date,
			plan_json = EXCLUDED.plan_json,
			transcript = EXCLUDED.transcript,
			schedule_json = EXCLUDED.schedule_json`

	_, err = s.db.Exec(query, analysis.ID, analysis.UserID, analysis.AnalysisDate,
		string(planJSON), nilIfEmpty(analysis.Transcript), nilIfEmpty(scheduleJSON))
	if err != nil {
		slog.Error("PostgresStore SaveMorningAnalysis failed", "error", err, "userID", analysis.UserID)
		return fmt.Errorf("failed to save morning analysis for %s: %w", analysis.UserID, err)
	}
	slog.Debug("PostgresStore SaveMorningAnalysis succeeded", "userID", analysis.UserID, "analysisID", analysis.ID)
	return nil
}

// GetLatestMorningAnalysis retrieves the most recent morning analysis for a
// user. Returns (nil, nil) when the user has none.
func (s *PostgresStore) GetLatestMorningAnalysis(userID string) (*models.MorningAnalysis, error) {
	query := `SELECT id, user_id, analysis_date, plan_json, transcript, schedule_json
		FROM morning_analyses WHERE user_id = $1
		ORDER BY analysis_date DESC LIMIT 1`

	var analysis models.MorningAnalysis
	var planJSON string
	var transcript, scheduleJSON sql.NullString

	err := s.db.QueryRow(query, userID).Scan(
		&analysis.ID, &analysis.UserID, &analysis.AnalysisDate, &planJSON, &transcript, &scheduleJSON)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("PostgresStore GetLatestMorningAnalysis not found", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetLatestMorningAnalysis failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to get morning analysis for %s: %w", userID, err)
	}

	analysis.Transcript = transcript.String
	if err := json.Unmarshal([]byte(planJSON), &analysis.Plan); err != nil {
		slog.Error("PostgresStore GetLatestMorningAnalysis plan unmarshal failed", "error", err, "userID", userID)
		// Continue with the default plan rather than failing
		analysis.Plan = models.DefaultDayPlan()
	}
	if scheduleJSON.Valid && scheduleJSON.String != "" {
		if err := json.Unmarshal([]byte(scheduleJSON.String), &analysis.Schedule); err != nil {
			slog.Error("PostgresStore GetLatestMorningAnalysis schedule unmarshal failed", "error", err, "userID", userID)
			analysis.Schedule = nil
		}
	}

	slog.Debug("PostgresStore GetLatestMorningAnalysis found", "userID", userID, "analysisID", analysis.ID)
	return &analysis, nil
}

// SaveChatInteraction appends a chat exchange for a user.
func (s *PostgresStore) SaveChatInteraction(entry models.ChatInteraction) error {
	query := `
		INSERT INTO chat_interactions (user_id, user_message, reply, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := s.db.Exec(query, entry.UserID, entry.UserMessage, entry.Reply, entry.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveChatInteraction failed", "error", err, "userID", entry.UserID)
		return fmt.Errorf("failed to save chat interaction for %s: %w", entry.UserID, err)
	}
	slog.Debug("PostgresStore SaveChatInteraction succeeded", "userID", entry.UserID)
	return nil
}

// QueryRecentChatInteractions returns up to limit chat exchanges for a user,
// newest first.
func (s *PostgresStore) QueryRecentChatInteractions(userID string, limit int) ([]models.ChatInteraction, error) {
	query := `SELECT id, user_id, user_message, reply, created_at
		FROM chat_interactions WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`

	rows, err := s.db.Query(query, userID, limit)
	if err != nil {
		slog.Error("PostgresStore QueryRecentChatInteractions query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query chat interactions: %w", err)
	}
	defer rows.Close()

	var entries []models.ChatInteraction
	for rows.Next() {
		entry, err := scanChatInteraction(rows)
		if err != nil {
			slog.Error("PostgresStore QueryRecentChatInteractions scan failed", "error", err, "userID", userID)
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore QueryRecentChatInteractions rows iteration failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to iterate chat interaction rows: %w", err)
	}
	slog.Debug("PostgresStore QueryRecentChatInteractions succeeded", "userID", userID, "count", len(entries))
	return entries, nil
}

// UpsertUser inserts a user or updates the mutable fields of an existing one.
// The original created_at is preserved on update.
func (s *PostgresStore) UpsertUser(u models.User) error {
	query := `
		INSERT INTO users (id, name, phone_number, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			phone_number = EXCLUDED.phone_number,
			timezone = EXCLUDED.timezone,
			updated_at = EXCLUDED.updated_at`

	_, err := s.db.Exec(query, u.ID, nilIfEmpty(u.Name), nilIfEmpty(u.PhoneNumber),
		nilIfEmpty(u.Timezone), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore UpsertUser failed", "error", err, "userID", u.ID)
		return fmt.Errorf("failed to upsert user %s: %w", u.ID, err)
	}
	slog.Debug("PostgresStore UpsertUser succeeded", "userID", u.ID)
	return nil
}

// GetUser retrieves a user by ID. Returns (nil, nil) when not found.
func (s *PostgresStore) GetUser(id string) (*models.User, error) {
	query := `SELECT id, name, phone_number, timezone, created_at, updated_at FROM users WHERE id = $1`

	u, err := scanUser(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("PostgresStore GetUser not found", "userID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetUser failed", "error", err, "userID", id)
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return &u, nil
}

// GetUserByPhone retrieves a user by phone number. Returns (nil, nil) when
// no user carries that number.
func (s *PostgresStore) GetUserByPhone(phone string) (*models.User, error) {
	query := `SELECT id, name, phone_number, timezone, created_at, updated_at FROM users WHERE phone_number = $1`

	u, err := scanUser(s.db.QueryRow(query, phone))
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("PostgresStore GetUserByPhone not found", "phone", phone)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetUserByPhone failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}
	return &u, nil
}

// ListUsers returns every enrolled user, oldest first.
func (s *PostgresStore) ListUsers() ([]models.User, error) {
	query := `SELECT id, name, phone_number, timezone, created_at, updated_at FROM users ORDER BY created_at`

	rows, err := s.db.Query(query)
	if err != nil {
		slog.Error("PostgresStore ListUsers failed", "error", err)
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
func (s *PostgresStore) JobRepo() JobRepo { return s }

// OutboxRepo returns the store's outgoing nudge repository.
func (s *PostgresStore) OutboxRepo() OutboxRepo { return s }

// DedupRepo returns the store's inbound deduplication repository.
func (s *PostgresStore) DedupRepo() DedupRepo { return s }

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing PostgreSQL database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close PostgreSQL database", "error", err)
	} else {
		slog.Debug("PostgreSQL database connection closed successfully")
	}
	return err
}
