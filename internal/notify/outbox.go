package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/FocusLoopHQ/FocusLoop/internal/store"
)

// OutboxKindNudge is the outbox message kind for user nudges.
const OutboxKindNudge = "nudge"

// NudgePayload is the JSON payload of a nudge outbox message.
type NudgePayload struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// OutboxNotifier stages nudges in the durable outbox instead of sending
// them inline. Delivery happens through the OutboxSender poll loop, which
// retries transient channel failures with backoff. It satisfies the session
// package's Notifier interface, so reminder jobs survive a crashed or
// temporarily disconnected channel.
type OutboxNotifier struct {
	outbox store.OutboxRepo
}

// NewOutboxNotifier creates a notifier that enqueues into the given outbox.
func NewOutboxNotifier(outbox store.OutboxRepo) *OutboxNotifier {
	return &OutboxNotifier{outbox: outbox}
}

// NotifyUser stages the message for delivery.
func (n *OutboxNotifier) NotifyUser(ctx context.Context, userID, message string) error {
	payload, err := json.Marshal(NudgePayload{UserID: userID, Message: message})
	if err != nil {
		return fmt.Errorf("failed to encode nudge payload: %w", err)
	}
	id, err := n.outbox.EnqueueOutboxMessage(userID, OutboxKindNudge, string(payload), "")
	if err != nil {
		return fmt.Errorf("failed to enqueue nudge: %w", err)
	}
	slog.Debug("OutboxNotifier.NotifyUser: nudge staged", "userID", userID, "outboxID", id)
	return nil
}

// NewOutboxSendFunc adapts a Notifier into the delivery callback the
// OutboxSender polls with.
func NewOutboxSendFunc(n *Notifier) store.OutboxSendFunc {
	return func(ctx context.Context, msg store.OutboxMessage) error {
		if msg.Kind != OutboxKindNudge {
			slog.Warn("OutboxSendFunc: unknown outbox kind, dropping", "kind", msg.Kind, "id", msg.ID)
			return nil
		}
		var p NudgePayload
		if err := json.Unmarshal([]byte(msg.PayloadJSON), &p); err != nil {
			return fmt.Errorf("invalid nudge payload: %w", err)
		}
		return n.NotifyUser(ctx, p.UserID, p.Message)
	}
}
