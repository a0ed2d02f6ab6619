package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
	"github.com/FocusLoopHQ/FocusLoop/internal/store"
)

// Notifier resolves user ids to delivery addresses and sends through the
// configured Service. It satisfies the session package's Notifier interface,
// so session reminder jobs deliver through it.
type Notifier struct {
	svc Service
	st  store.Store
}

// NewNotifier creates a store-backed Notifier over the given service.
func NewNotifier(svc Service, st store.Store) *Notifier {
	return &Notifier{svc: svc, st: st}
}

// NotifyUser delivers a message to the user's enrolled phone number. Users
// without a phone number cannot be nudged; that is an error so durable jobs
// surface it rather than silently dropping the reminder.
func (n *Notifier) NotifyUser(ctx context.Context, userID, message string) error {
	u, err := n.st.GetUser(userID)
	if err != nil {
		return fmt.Errorf("failed to look up user %s: %w", userID, err)
	}
	if u == nil {
		return fmt.Errorf("%w: %s", models.ErrUserNotFound, userID)
	}
	if u.PhoneNumber == "" {
		return fmt.Errorf("user %s has no phone number enrolled", userID)
	}

	if err := n.svc.SendMessage(ctx, u.PhoneNumber, message); err != nil {
		slog.Error("Notifier.NotifyUser: send failed", "userID", userID, "error", err)
		return fmt.Errorf("failed to notify user %s: %w", userID, err)
	}
	slog.Debug("Notifier.NotifyUser: message delivered", "userID", userID, "body_length", len(message))
	return nil
}
