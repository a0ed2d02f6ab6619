package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/FocusLoopHQ/FocusLoop/internal/interpreter"
	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

func TestStartPlanningConversation_OpensConversation(t *testing.T) {
	gen := &mockGenAI{replies: []string{"Good morning! How are you feeling about today?"}}
	e, _ := newTestEngine(gen)

	start, err := e.StartPlanningConversation(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.ConversationID != "u1" {
		t.Errorf("expected conversation keyed by user, got %q", start.ConversationID)
	}
	if start.Question != "Good morning! How are you feeling about today?" {
		t.Errorf("unexpected opener: %q", start.Question)
	}
	if start.NextAction != "await_user_response" {
		t.Errorf("unexpected next action: %q", start.NextAction)
	}

	status := e.GetStatus("u1")
	if !status.HasActiveConversation || status.ConversationStage != models.StageInitialPlanning {
		t.Errorf("expected active INITIAL_PLANNING conversation, got %+v", status)
	}

	call := gen.lastCall(t)
	if call.temperature != 0.7 || call.maxTokens != 200 {
		t.Errorf("unexpected sampling params: temp=%f maxTokens=%d", call.temperature, call.maxTokens)
	}
	if !strings.Contains(call.system, "You are an ADHD executive function replacement assistant") {
		t.Errorf("system prompt missing role preamble: %q", call.system)
	}
	if !strings.Contains(call.system, "User Context (for reference only, don't assume):") {
		t.Errorf("system prompt missing user context section: %q", call.system)
	}
	if !strings.Contains(call.system, `"time_of_day"`) {
		t.Errorf("system prompt missing rendered context JSON: %q", call.system)
	}
}

func TestStartPlanningConversation_GatewayFailure(t *testing.T) {
	gen := &mockGenAI{err: errors.New("connection refused")}
	e, _ := newTestEngine(gen)

	_, err := e.StartPlanningConversation(context.Background(), "u1")
	if !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream unavailable, got %v", err)
	}
	if e.GetStatus("u1").HasActiveConversation {
		t.Error("expected no conversation after failed open")
	}
}

func TestStartPlanningConversation_OverwritesPrevious(t *testing.T) {
	gen := &mockGenAI{replies: []string{"First opener?", "Second opener?"}}
	e, _ := newTestEngine(gen)
	startPlanning(t, e, "u1")
	startPlanning(t, e, "u1")

	e.mu.Lock()
	conv := e.conversations["u1"]
	e.mu.Unlock()
	if len(conv.History) != 1 {
		t.Fatalf("expected fresh history after restart, got %d turns", len(conv.History))
	}
	if conv.History[0].Content != "Second opener?" {
		t.Errorf("expected second opener in history, got %q", conv.History[0].Content)
	}
}

func TestContinuePlanningConversation_NoConversation(t *testing.T) {
	e, _ := newTestEngine(&mockGenAI{})

	_, err := e.ContinuePlanningConversation(context.Background(), "ghost", "hello")
	if !errors.Is(err, models.ErrConversationNotFound) {
		t.Fatalf("expected conversation not found, got %v", err)
	}
}

func TestContinuePlanningConversation_QuestionTurn(t *testing.T) {
	gen := &mockGenAI{replies: []string{
		"How are you feeling today?",
		`{"type": "question", "content": "What's your energy like right now?", "needs_user_input": true}`,
	}}
	e, _ := newTestEngine(gen)
	startPlanning(t, e, "u1")

	turn, err := e.ContinuePlanningConversation(context.Background(), "u1", "A bit scattered honestly")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.Decision.Type != models.PlanningDecisionQuestion {
		t.Errorf("expected question decision, got %q", turn.Decision.Type)
	}
	if turn.Decision.Content != "What's your energy like right now?" {
		t.Errorf("unexpected content: %q", turn.Decision.Content)
	}
	if !turn.Decision.NeedsUserInput {
		t.Error("expected needs_user_input to be set")
	}
	if turn.Stage != models.StageInitialPlanning {
		t.Errorf("question should not advance the stage, got %q", turn.Stage)
	}
	if turn.Source != interpreter.SourceParsed {
		t.Errorf("expected parsed source, got %q", turn.Source)
	}

	e.mu.Lock()
	conv := e.conversations["u1"]
	e.mu.Unlock()
	if len(conv.History) != 3 {
		t.Fatalf("expected opener + user + assistant turns, got %d", len(conv.History))
	}
	if conv.History[1].Role != models.RoleUser || conv.History[1].Content != "A bit scattered honestly" {
		t.Errorf("unexpected user turn: %+v", conv.History[1])
	}
	if conv.History[2].Role != models.RoleAssistant {
		t.Errorf("unexpected assistant turn: %+v", conv.History[2])
	}
}

func TestContinuePlanningConversation_PromptCarriesTranscript(t *testing.T) {
	gen := &mockGenAI{replies: []string{
		"How are you feeling today?",
		`{"type": "question", "content": "Anything urgent on your plate?", "needs_user_input": true}`,
	}}
	e, _ := newTestEngine(gen)
	startPlanning(t, e, "u1")

	if _, err := e.ContinuePlanningConversation(context.Background(), "u1", "Pretty good actually"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	call := gen.lastCall(t)
	if call.temperature != 0.6 || call.maxTokens != 300 {
		t.Errorf("unexpected sampling params: temp=%f maxTokens=%d", call.temperature, call.maxTokens)
	}
	if !strings.Contains(call.user, "assistant: How are you feeling today?\nuser: Pretty good actually") {
		t.Errorf("prompt missing transcript: %q", call.user)
	}
	if !strings.Contains(call.user, "Current conversation state: INITIAL_PLANNING") {
		t.Errorf("prompt missing conversation state: %q", call.user)
	}
}

func TestContinuePlanningConversation_ScheduleAdvancesStage(t *testing.T) {
	gen := &mockGenAI{replies: []string{
		"How are you feeling today?",
		`{"type": "schedule", "content": "Here's your day!", "needs_user_input": false, "schedule": {"blocks": [{"task": "emails", "duration": 25}]}}`,
	}}
	e, _ := newTestEngine(gen)
	startPlanning(t, e, "u1")

	turn, err := e.ContinuePlanningConversation(context.Background(), "u1", "Let's lock it in")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.Decision.Type != models.PlanningDecisionSchedule {
		t.Fatalf("expected schedule decision, got %q", turn.Decision.Type)
	}
	if turn.Stage != models.StageWorkBlockDecision {
		t.Errorf("expected stage to advance to WORK_BLOCK_DECISION, got %q", turn.Stage)
	}
	if turn.Schedule == nil {
		t.Fatal("expected a materialized schedule")
	}
	if turn.Schedule.Type != models.ScheduleTypeDynamic || turn.Schedule.CreatedFrom != "ai_conversation" {
		t.Errorf("unexpected schedule envelope: %+v", turn.Schedule)
	}
	if turn.Schedule.UserID != "u1" || turn.Schedule.Data == nil {
		t.Errorf("unexpected schedule payload: %+v", turn.Schedule)
	}

	e.mu.Lock()
	conv := e.conversations["u1"]
	e.mu.Unlock()
	if conv.Stage != models.StageWorkBlockDecision {
		t.Errorf("expected stored stage WORK_BLOCK_DECISION, got %q", conv.Stage)
	}
	if _, ok := conv.ScheduleDecisions["schedule"]; !ok {
		t.Error("expected schedule sketch recorded on the conversation")
	}
}

func TestContinuePlanningConversation_ProseReplyBecomesQuestion(t *testing.T) {
	gen := &mockGenAI{replies: []string{
		"How are you feeling today?",
		"Let's take it one step at a time. What feels most urgent?",
	}}
	e, _ := newTestEngine(gen)
	startPlanning(t, e, "u1")

	turn, err := e.ContinuePlanningConversation(context.Background(), "u1", "I don't know where to start")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.Decision.Type != models.PlanningDecisionQuestion {
		t.Errorf("expected prose to fall back to a question, got %q", turn.Decision.Type)
	}
	if turn.Decision.Content != "Let's take it one step at a time. What feels most urgent?" {
		t.Errorf("expected raw reply as content, got %q", turn.Decision.Content)
	}
	if turn.Source != interpreter.SourceFallback {
		t.Errorf("expected fallback source, got %q", turn.Source)
	}
}

func TestContinuePlanningConversation_GatewayFailureLeavesHistoryIntact(t *testing.T) {
	gen := &mockGenAI{replies: []string{"How are you feeling today?"}}
	e, _ := newTestEngine(gen)
	startPlanning(t, e, "u1")

	gen.mu.Lock()
	gen.err = errors.New("read timeout")
	gen.mu.Unlock()

	_, err := e.ContinuePlanningConversation(context.Background(), "u1", "hello?")
	if !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream unavailable, got %v", err)
	}

	e.mu.Lock()
	conv := e.conversations["u1"]
	e.mu.Unlock()
	if len(conv.History) != 1 {
		t.Errorf("failed turn must not be committed, history has %d turns", len(conv.History))
	}
	if conv.Stage != models.StageInitialPlanning {
		t.Errorf("failed turn must not advance the stage, got %q", conv.Stage)
	}
}
