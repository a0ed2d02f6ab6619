// Package session manages the lifecycle of scheduled assistant sessions and
// turns morning planning conversations into a concrete day schedule.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/FocusLoopHQ/FocusLoop/internal/genai"
	"github.com/FocusLoopHQ/FocusLoop/internal/models"
	"github.com/FocusLoopHQ/FocusLoop/internal/store"
	"github.com/google/uuid"
)

// defaultSessionQueryLimit caps UserSessions results when no limit is given.
const defaultSessionQueryLimit = 50

// defaultStatisticsDays is the statistics window when none is given.
const defaultStatisticsDays = 30

// Service manages scheduled sessions and morning planning. Sessions are
// durable; the service holds no in-memory session state.
type Service struct {
	gen  genai.ClientInterface
	st   store.Store
	jobs store.JobRepo
}

// NewService creates a session service backed by the given gateway, store,
// and durable job queue.
func NewService(gen genai.ClientInterface, st store.Store, jobs store.JobRepo) *Service {
	return &Service{gen: gen, st: st, jobs: jobs}
}

// CreateSession persists a new scheduled session of the given type. A zero
// scheduledTime schedules the session for now. The starter message and the
// planned duration are derived from the session type, and a reminder job is
// enqueued so the session is announced when it comes due.
func (s *Service) CreateSession(userID string, sessionType models.SessionType, scheduledTime time.Time) (*models.Session, error) {
	return s.createSession(userID, sessionType, scheduledTime, 0)
}

// createSession builds and persists a scheduled session. A plannedMinutes of
// zero falls back to the type's default duration.
func (s *Service) createSession(userID string, sessionType models.SessionType, scheduledTime time.Time, plannedMinutes int) (*models.Session, error) {
	if scheduledTime.IsZero() {
		scheduledTime = time.Now().UTC()
	}
	if plannedMinutes <= 0 {
		plannedMinutes = models.DefaultSessionMinutes(sessionType)
	}

	sess := models.Session{
		ID:                     uuid.NewString(),
		UserID:                 userID,
		Type:                   sessionType,
		Status:                 models.SessionStatusScheduled,
		ScheduledTime:          scheduledTime,
		PlannedDurationMinutes: plannedMinutes,
		StarterPrompt:          Starter(sessionType, scheduledTime),
	}
	if err := s.st.SaveSession(sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	if err := s.enqueueReminder(sess); err != nil {
		slog.Warn("SessionService.CreateSession: failed to enqueue reminder", "sessionID", sess.ID, "error", err)
	}

	slog.Info("SessionService.CreateSession: session created",
		"userID", userID, "type", sessionType, "sessionID", sess.ID, "scheduledTime", scheduledTime)
	return &sess, nil
}

// StartSession marks a scheduled session active and records the start time.
func (s *Service) StartSession(sessionID string) (*models.Session, error) {
	sess, err := s.st.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return nil, models.ErrSessionNotFound
	}

	now := time.Now().UTC()
	sess.Status = models.SessionStatusActive
	sess.StartedAt = &now
	if err := s.st.SaveSession(*sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	slog.Info("SessionService.StartSession: session started", "sessionID", sessionID, "type", sess.Type)
	return sess, nil
}

// CompleteSession marks a session completed, recording an outcome summary, an
// optional 1-5 effectiveness rating, and the actual duration when the session
// was started.
func (s *Service) CompleteSession(sessionID, summary string, effectivenessRating *int) (*models.Session, error) {
	sess, err := s.st.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return nil, models.ErrSessionNotFound
	}

	now := time.Now().UTC()
	sess.Status = models.SessionStatusCompleted
	sess.CompletedAt = &now
	sess.Summary = summary
	sess.EffectivenessRating = effectivenessRating
	if sess.StartedAt != nil {
		actual := int(now.Sub(*sess.StartedAt).Minutes())
		sess.ActualDurationMinutes = &actual
	}
	if err := s.st.SaveSession(*sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	slog.Info("SessionService.CompleteSession: session completed", "sessionID", sessionID, "type", sess.Type)
	return sess, nil
}

// SkipSession marks a session skipped, keeping the reason in the summary.
func (s *Service) SkipSession(sessionID, reason string) (*models.Session, error) {
	sess, err := s.st.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return nil, models.ErrSessionNotFound
	}

	now := time.Now().UTC()
	sess.Status = models.SessionStatusSkipped
	sess.CompletedAt = &now
	sess.Summary = "Skipped: " + reason
	if err := s.st.SaveSession(*sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	slog.Info("SessionService.SkipSession: session skipped", "sessionID", sessionID, "reason", reason)
	return sess, nil
}

// ActiveSession returns the user's currently active session, or nil when no
// session is active. With several active sessions the most recently scheduled
// one wins.
func (s *Service) ActiveSession(userID string) (*models.Session, error) {
	sessions, err := s.st.QuerySessionsByUser(userID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	var active *models.Session
	for i := range sessions {
		if sessions[i].Status == models.SessionStatusActive {
			active = &sessions[i]
		}
	}
	return active, nil
}

// NextScheduledSession returns the user's earliest scheduled session that is
// still in the future, or nil when nothing is scheduled.
func (s *Service) NextScheduledSession(userID string) (*models.Session, error) {
	now := time.Now().UTC()
	sessions, err := s.st.QuerySessionsByUser(userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	for i := range sessions {
		if sessions[i].Status == models.SessionStatusScheduled && sessions[i].ScheduledTime.After(now) {
			return &sessions[i], nil
		}
	}
	return nil, nil
}

// TodaysSessions returns the user's sessions scheduled today (UTC), earliest
// first.
func (s *Service) TodaysSessions(userID string) ([]models.Session, error) {
	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	end := midnight.Add(24 * time.Hour)

	sessions, err := s.st.QuerySessionsByUser(userID, midnight)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	out := make([]models.Session, 0, len(sessions))
	for _, sess := range sessions {
		if sess.ScheduledTime.Before(end) {
			out = append(out, sess)
		}
	}
	return out, nil
}

// MorningKickoff schedules today's morning planning session for every
// enrolled user that does not already have one. CreateSession enqueues the
// reminder job, so the starter prompt reaches each user through the durable
// nudge pipeline. Returns how many sessions were created; per-user failures
// are logged and skipped so one bad row cannot stall the sweep.
func (s *Service) MorningKickoff(ctx context.Context) (int, error) {
	users, err := s.st.ListUsers()
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	created := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return created, ctx.Err()
		}
		todays, err := s.TodaysSessions(u.ID)
		if err != nil {
			slog.Warn("SessionService.MorningKickoff: failed to query sessions", "userID", u.ID, "error", err)
			continue
		}
		exists := false
		for _, sess := range todays {
			if sess.Type == models.SessionTypeMorningPlanning {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		if _, err := s.CreateSession(u.ID, models.SessionTypeMorningPlanning, time.Time{}); err != nil {
			slog.Warn("SessionService.MorningKickoff: failed to create session", "userID", u.ID, "error", err)
			continue
		}
		created++
	}
	slog.Info("SessionService.MorningKickoff: sweep finished", "users", len(users), "created", created)
	return created, nil
}

// UserSessions returns the user's sessions, newest first, optionally filtered
// by status and type. Empty filter values match everything; a non-positive
// limit applies the default of 50.
func (s *Service) UserSessions(userID string, status models.SessionStatus, sessionType models.SessionType, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = defaultSessionQueryLimit
	}
	sessions, err := s.st.QuerySessionsByUser(userID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}

	out := make([]models.Session, 0, len(sessions))
	for _, sess := range sessions {
		if status != "" && sess.Status != status {
			continue
		}
		if sessionType != "" && sess.Type != sessionType {
			continue
		}
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledTime.After(out[j].ScheduledTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Statistics summarizes the user's sessions over the trailing window. A
// non-positive days applies the default of 30.
func (s *Service) Statistics(userID string, days int) (*models.SessionStatistics, error) {
	if days <= 0 {
		days = defaultStatisticsDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	sessions, err := s.st.QuerySessionsByUser(userID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}

	stats := models.SessionStatistics{
		SessionTypeBreakdown: make(map[string]int),
		PeriodDays:           days,
	}
	var ratingSum, ratingCount int
	for _, sess := range sessions {
		stats.TotalSessions++
		stats.SessionTypeBreakdown[string(sess.Type)]++
		switch sess.Status {
		case models.SessionStatusCompleted:
			stats.CompletedSessions++
		case models.SessionStatusSkipped:
			stats.SkippedSessions++
		}
		if sess.EffectivenessRating != nil {
			ratingSum += *sess.EffectivenessRating
			ratingCount++
		}
	}
	if stats.TotalSessions > 0 {
		stats.CompletionRate = float64(stats.CompletedSessions) / float64(stats.TotalSessions) * 100
	}
	if ratingCount > 0 {
		stats.AverageEffectiveness = float64(ratingSum) / float64(ratingCount)
	}
	return &stats, nil
}
