package store

import (
	"database/sql"
	"fmt"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// workBlockColumns is the column list every work block query selects, in the
// order scanWorkBlock expects.
const workBlockColumns = `id, user_id, task_description, task_complexity, planned_duration_minutes,
	original_planned_minutes, actual_duration_minutes, started_at, completed_at, completed,
	completion_percentage, was_adapted, adaptation_count, energy_level_before, energy_level_after,
	hyperfocus_occurred, interruptions_count, productivity_rating, focus_quality`

// scanWorkBlock scans a WorkBlock from a row or rows cursor.
func scanWorkBlock(sc scanner) (models.WorkBlock, error) {
	var wb models.WorkBlock
	var taskDescription, taskComplexity, energyBefore, energyAfter, focusQuality sql.NullString
	var actualDuration, completionPct sql.NullFloat64
	var completedAt sql.NullTime
	var productivityRating sql.NullInt64

	err := sc.Scan(
		&wb.ID, &wb.UserID, &taskDescription, &taskComplexity, &wb.PlannedDurationMinutes,
		&wb.OriginalPlannedMinutes, &actualDuration, &wb.StartedAt, &completedAt, &wb.Completed,
		&completionPct, &wb.WasAdapted, &wb.AdaptationCount, &energyBefore, &energyAfter,
		&wb.HyperfocusOccurred, &wb.InterruptionsCount, &productivityRating, &focusQuality,
	)
	if err != nil {
		return wb, fmt.Errorf("scan work block failed: %w", err)
	}

	wb.TaskDescription = taskDescription.String
	wb.TaskComplexity = taskComplexity.String
	wb.EnergyLevelBefore = energyBefore.String
	wb.EnergyLevelAfter = energyAfter.String
	wb.FocusQuality = focusQuality.String
	if actualDuration.Valid {
		wb.ActualDurationMinutes = &actualDuration.Float64
	}
	if completedAt.Valid {
		wb.CompletedAt = &completedAt.Time
	}
	if completionPct.Valid {
		wb.CompletionPercentage = &completionPct.Float64
	}
	if productivityRating.Valid {
		rating := int(productivityRating.Int64)
		wb.ProductivityRating = &rating
	}
	return wb, nil
}

// sessionColumns is the column list every session query selects, in the
// order scanSession expects.
const sessionColumns = `id, user_id, session_type, status, scheduled_time, started_at, completed_at,
	planned_duration_minutes, actual_duration_minutes, was_adapted, adaptation_reason,
	starter_prompt, summary, effectiveness_rating`

// scanSession scans a Session from a row or rows cursor.
func scanSession(sc scanner) (models.Session, error) {
	var sess models.Session
	var startedAt, completedAt sql.NullTime
	var actualDuration, effectiveness sql.NullInt64
	var adaptationReason, starterPrompt, summary sql.NullString

	err := sc.Scan(
		&sess.ID, &sess.UserID, &sess.Type, &sess.Status, &sess.ScheduledTime, &startedAt, &completedAt,
		&sess.PlannedDurationMinutes, &actualDuration, &sess.WasAdapted, &adaptationReason,
		&starterPrompt, &summary, &effectiveness,
	)
	if err != nil {
		return sess, fmt.Errorf("scan session failed: %w", err)
	}

	sess.AdaptationReason = adaptationReason.String
	sess.StarterPrompt = starterPrompt.String
	sess.Summary = summary.String
	if startedAt.Valid {
		sess.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		sess.CompletedAt = &completedAt.Time
	}
	if actualDuration.Valid {
		minutes := int(actualDuration.Int64)
		sess.ActualDurationMinutes = &minutes
	}
	if effectiveness.Valid {
		rating := int(effectiveness.Int64)
		sess.EffectivenessRating = &rating
	}
	return sess, nil
}

// scanEmotionalState scans an EmotionalStateLog from a row or rows cursor.
func scanEmotionalState(sc scanner) (models.EmotionalStateLog, error) {
	var entry models.EmotionalStateLog
	var trigger sql.NullString

	err := sc.Scan(
		&entry.ID, &entry.UserID, &entry.State, &entry.Intensity, &trigger,
		&entry.InterventionNeeded, &entry.InterventionTier, &entry.CreatedAt,
	)
	if err != nil {
		return entry, fmt.Errorf("scan emotional state failed: %w", err)
	}
	entry.Trigger = trigger.String
	return entry, nil
}

// scanIntervention scans an InterventionLog from a row or rows cursor.
func scanIntervention(sc scanner) (models.InterventionLog, error) {
	var entry models.InterventionLog
	var trigger, outcome sql.NullString

	err := sc.Scan(
		&entry.ID, &entry.UserID, &entry.Type, &entry.Urgency, &trigger, &outcome, &entry.CreatedAt,
	)
	if err != nil {
		return entry, fmt.Errorf("scan intervention failed: %w", err)
	}
	entry.Trigger = trigger.String
	entry.Outcome = outcome.String
	return entry, nil
}

// scanChatInteraction scans a ChatInteraction from a row or rows cursor.
func scanChatInteraction(sc scanner) (models.ChatInteraction, error) {
	var entry models.ChatInteraction
	err := sc.Scan(&entry.ID, &entry.UserID, &entry.UserMessage, &entry.Reply, &entry.CreatedAt)
	if err != nil {
		return entry, fmt.Errorf("scan chat interaction failed: %w", err)
	}
	return entry, nil
}

// scanUser scans a User from a row or rows cursor.
func scanUser(sc scanner) (models.User, error) {
	var u models.User
	var name, phone, timezone sql.NullString

	err := sc.Scan(&u.ID, &name, &phone, &timezone, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, fmt.Errorf("scan user failed: %w", err)
	}
	u.Name = name.String
	u.PhoneNumber = phone.String
	u.Timezone = timezone.String
	return u, nil
}

// scanJob scans a Job from a row or rows cursor.
func scanJob(sc scanner) (Job, error) {
	var j Job
	var payloadJSON, lastError, dedupeKey sql.NullString
	var lockedAt sql.NullTime
	err := sc.Scan(
		&j.ID, &j.Kind, &j.RunAt, &payloadJSON, &j.Status, &j.Attempt, &j.MaxAttempts,
		&lastError, &lockedAt, &dedupeKey, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return j, fmt.Errorf("scan job failed: %w", err)
	}
	j.PayloadJSON = payloadJSON.String
	j.LastError = lastError.String
	j.DedupeKey = dedupeKey.String
	if lockedAt.Valid {
		j.LockedAt = &lockedAt.Time
	}
	return j, nil
}

// scanOutboxMessage scans an OutboxMessage from a row or rows cursor.
func scanOutboxMessage(sc scanner) (OutboxMessage, error) {
	var m OutboxMessage
	var payloadJSON, dedupeKey, lastError sql.NullString
	var nextAttemptAt, lockedAt sql.NullTime
	err := sc.Scan(
		&m.ID, &m.UserID, &m.Kind, &payloadJSON, &m.Status, &m.Attempts,
		&nextAttemptAt, &dedupeKey, &lockedAt, &lastError, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return m, fmt.Errorf("scan outbox message failed: %w", err)
	}
	m.PayloadJSON = payloadJSON.String
	m.DedupeKey = dedupeKey.String
	m.LastError = lastError.String
	if nextAttemptAt.Valid {
		m.NextAttemptAt = &nextAttemptAt.Time
	}
	if lockedAt.Valid {
		m.LockedAt = &lockedAt.Time
	}
	return m, nil
}
