package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
	"github.com/FocusLoopHQ/FocusLoop/internal/store"
)

// JobKindSessionReminder announces a scheduled session when it comes due.
const JobKindSessionReminder = "session_reminder"

// SessionReminderPayload is the JSON payload for session_reminder jobs.
type SessionReminderPayload struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// Notifier delivers a message to a user over whatever channel they are
// enrolled on. The notify service satisfies it.
type Notifier interface {
	NotifyUser(ctx context.Context, userID, message string) error
}

// RegisterJobHandlers registers the session job handlers with the given
// JobRunner.
func RegisterJobHandlers(runner *store.JobRunner, st store.Store, notifier Notifier) {
	runner.RegisterHandler(JobKindSessionReminder, makeSessionReminderHandler(st, notifier))
}

// enqueueReminder schedules the durable announcement job for a session. The
// reminder fires at the session's scheduled time; the handler re-checks the
// session status before delivering.
func (s *Service) enqueueReminder(sess models.Session) error {
	payload, err := json.Marshal(SessionReminderPayload{SessionID: sess.ID, UserID: sess.UserID})
	if err != nil {
		return fmt.Errorf("failed to encode reminder payload: %w", err)
	}
	dedupeKey := JobKindSessionReminder + ":" + sess.ID
	if _, err := s.jobs.EnqueueJob(JobKindSessionReminder, sess.ScheduledTime, string(payload), dedupeKey); err != nil {
		return fmt.Errorf("failed to enqueue reminder: %w", err)
	}
	return nil
}

func makeSessionReminderHandler(st store.Store, notifier Notifier) store.JobHandler {
	return func(ctx context.Context, payload string) error {
		var p SessionReminderPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return fmt.Errorf("invalid session_reminder payload: %w", err)
		}
		slog.Info("JobHandler.session_reminder: executing", "sessionID", p.SessionID, "userID", p.UserID)

		// Idempotency: a session that was started, completed, or skipped in
		// the meantime needs no announcement.
		sess, err := st.GetSession(p.SessionID)
		if err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}
		if sess == nil || sess.Status != models.SessionStatusScheduled {
			slog.Info("JobHandler.session_reminder: session no longer scheduled, skipping", "sessionID", p.SessionID)
			return nil
		}

		if err := notifier.NotifyUser(ctx, sess.UserID, sess.StarterPrompt); err != nil {
			return fmt.Errorf("failed to deliver session reminder: %w", err)
		}
		return nil
	}
}
