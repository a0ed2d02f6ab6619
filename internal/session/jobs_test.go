package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
	"github.com/FocusLoopHQ/FocusLoop/internal/store"
)

type notifyCall struct {
	userID  string
	message string
}

type mockNotifier struct {
	mu    sync.Mutex
	err   error
	calls []notifyCall
}

func (m *mockNotifier) NotifyUser(ctx context.Context, userID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, notifyCall{userID: userID, message: message})
	return m.err
}

func (m *mockNotifier) snapshot() []notifyCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]notifyCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func reminderPayload(t *testing.T, sessionID, userID string) string {
	t.Helper()
	b, err := json.Marshal(SessionReminderPayload{SessionID: sessionID, UserID: userID})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return string(b)
}

func TestSessionReminderHandler_DeliversStarter(t *testing.T) {
	st := store.NewInMemoryStore()
	notifier := &mockNotifier{}
	handler := makeSessionReminderHandler(st, notifier)

	seedSession(t, st, "s1", "u1", models.SessionTypeTransition, models.SessionStatusScheduled, time.Now().UTC())

	if err := handler(context.Background(), reminderPayload(t, "s1", "u1")); err != nil {
		t.Fatalf("handler: %v", err)
	}

	calls := notifier.snapshot()
	if len(calls) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(calls))
	}
	if calls[0].userID != "u1" {
		t.Errorf("expected delivery to u1, got %q", calls[0].userID)
	}
	sess, err := st.GetSession("s1")
	if err != nil || sess == nil {
		t.Fatalf("GetSession: %v, %v", sess, err)
	}
	if calls[0].message != sess.StarterPrompt {
		t.Errorf("expected starter prompt %q, got %q", sess.StarterPrompt, calls[0].message)
	}
}

func TestSessionReminderHandler_SkipsNonScheduled(t *testing.T) {
	st := store.NewInMemoryStore()
	notifier := &mockNotifier{}
	handler := makeSessionReminderHandler(st, notifier)

	seedSession(t, st, "s1", "u1", models.SessionTypeTransition, models.SessionStatusCompleted, time.Now().UTC())

	if err := handler(context.Background(), reminderPayload(t, "s1", "u1")); err != nil {
		t.Fatalf("completed session should be skipped, got %v", err)
	}
	if err := handler(context.Background(), reminderPayload(t, "missing", "u1")); err != nil {
		t.Fatalf("missing session should be skipped, got %v", err)
	}
	if calls := notifier.snapshot(); len(calls) != 0 {
		t.Errorf("expected no deliveries, got %d", len(calls))
	}
}

func TestSessionReminderHandler_InvalidPayload(t *testing.T) {
	st := store.NewInMemoryStore()
	handler := makeSessionReminderHandler(st, &mockNotifier{})

	if err := handler(context.Background(), "{not json"); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestSessionReminderHandler_DeliveryFailureSurfaced(t *testing.T) {
	st := store.NewInMemoryStore()
	sendErr := errors.New("channel offline")
	notifier := &mockNotifier{err: sendErr}
	handler := makeSessionReminderHandler(st, notifier)

	seedSession(t, st, "s1", "u1", models.SessionTypeTransition, models.SessionStatusScheduled, time.Now().UTC())

	err := handler(context.Background(), reminderPayload(t, "s1", "u1"))
	if !errors.Is(err, sendErr) {
		t.Fatalf("expected delivery error, got %v", err)
	}
}

func TestRegisterJobHandlers_RunnerExecutesReminder(t *testing.T) {
	gen := &mockGenAI{}
	svc, st := newTestService(gen)
	notifier := &mockNotifier{}

	sess, err := svc.CreateSession("u1", models.SessionTypePostWorkCheckin, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	runner := store.NewJobRunner(st.JobRepo(), store.WithJobPollInterval(5*time.Millisecond))
	RegisterJobHandlers(runner, st, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runner.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if len(notifier.snapshot()) >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("reminder was never delivered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	calls := notifier.snapshot()
	if calls[0].userID != "u1" {
		t.Errorf("expected delivery to u1, got %q", calls[0].userID)
	}
	if calls[0].message != sess.StarterPrompt {
		t.Errorf("expected starter prompt %q, got %q", sess.StarterPrompt, calls[0].message)
	}
}
