package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FocusLoopHQ/FocusLoop/internal/engine"
	"github.com/FocusLoopHQ/FocusLoop/internal/models"
	"github.com/FocusLoopHQ/FocusLoop/internal/store"
)

// StateChecker is the slice of the scheduling engine the router needs: a
// dynamic state check for users with a running block, and the status read
// that tells the router whether one exists.
type StateChecker interface {
	DynamicStateCheck(ctx context.Context, userID, message string) engine.StateCheckResult
	GetStatus(userID string) engine.Status
}

// ChatFunc answers a message for users without a running work block. It is
// a function rather than an interface so callers can close over the chat
// service without this package importing it.
type ChatFunc func(ctx context.Context, userID, message string) string

// ResponseRouter consumes inbound nudge replies and routes each one: users
// with a running work block get a dynamic state check (so "I'm exhausted"
// over WhatsApp adapts the block just like it would over the API), everyone
// else gets the companion chat. The resulting text is sent back over the
// same channel.
type ResponseRouter struct {
	svc     Service
	st      store.Store
	checker StateChecker
	chat    ChatFunc
	dedup   store.DedupRepo
}

// NewResponseRouter wires a router over the given service and handlers.
// A nil dedup disables inbound deduplication; channels that redeliver on
// reconnect (WhatsApp does) should pass the store's dedup repo.
func NewResponseRouter(svc Service, st store.Store, checker StateChecker, chat ChatFunc, dedup store.DedupRepo) *ResponseRouter {
	return &ResponseRouter{svc: svc, st: st, checker: checker, chat: chat, dedup: dedup}
}

// Run consumes the service's response channel until the context is cancelled
// or the channel closes.
func (r *ResponseRouter) Run(ctx context.Context) {
	slog.Info("ResponseRouter.Run: starting inbound response loop")
	for {
		select {
		case <-ctx.Done():
			slog.Info("ResponseRouter.Run: stopping")
			return
		case resp, ok := <-r.svc.Responses():
			if !ok {
				slog.Info("ResponseRouter.Run: responses channel closed")
				return
			}
			r.route(ctx, resp)
		}
	}
}

// route handles one inbound reply. Unknown senders are logged and dropped;
// reply delivery failures are logged but do not stop the loop.
func (r *ResponseRouter) route(ctx context.Context, resp models.Response) {
	canonical, err := canonicalizePhone(resp.From)
	if err != nil {
		slog.Warn("ResponseRouter.route: unparseable sender, dropping", "from", resp.From, "error", err)
		return
	}

	u, err := r.st.GetUserByPhone(canonical)
	if err != nil {
		slog.Error("ResponseRouter.route: user lookup failed", "from", canonical, "error", err)
		return
	}
	if u == nil {
		slog.Warn("ResponseRouter.route: no user enrolled for sender, dropping", "from", canonical)
		return
	}

	messageID := resp.MessageID
	if messageID == "" {
		messageID = fmt.Sprintf("%s:%d", canonical, resp.Time)
	}
	if r.dedup != nil {
		fresh, err := r.dedup.RecordInbound(messageID, u.ID)
		if err != nil {
			slog.Error("ResponseRouter.route: dedup check failed", "messageID", messageID, "error", err)
		} else if !fresh {
			slog.Debug("ResponseRouter.route: duplicate inbound message, dropping", "messageID", messageID)
			return
		}
	}

	reply := r.handle(ctx, u.ID, resp.Body)
	if r.dedup != nil {
		if err := r.dedup.MarkProcessed(messageID); err != nil {
			slog.Warn("ResponseRouter.route: failed to mark message processed", "messageID", messageID, "error", err)
		}
	}
	if reply == "" {
		return
	}
	if err := r.svc.SendMessage(ctx, canonical, reply); err != nil {
		slog.Error("ResponseRouter.route: reply delivery failed", "userID", u.ID, "error", err)
	}
}

// handle picks the handler for one message and returns the reply text. A
// running work block routes to the engine's state check; otherwise the
// message is ordinary chat.
func (r *ResponseRouter) handle(ctx context.Context, userID, body string) string {
	status := r.checker.GetStatus(userID)
	for _, t := range status.ActiveWorkBlocks {
		if t.State == models.TimerStateRunning {
			result := r.checker.DynamicStateCheck(ctx, userID, body)
			slog.Debug("ResponseRouter.handle: routed to state check",
				"userID", userID, "state", result.EmotionalState, "adapted", result.AdaptationExecuted)
			return result.Response
		}
	}

	return r.chat(ctx, userID, body)
}
