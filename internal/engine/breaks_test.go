package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/FocusLoopHQ/FocusLoop/internal/interpreter"
	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

func TestDynamicBreakDecision_RequiresTimer(t *testing.T) {
	gen := &mockGenAI{}
	e, _ := newTestEngine(gen)

	_, err := e.DynamicBreakDecision(context.Background(), "u1", "wb_missing")
	if !errors.Is(err, models.ErrTimerNotFound) {
		t.Fatalf("expected timer not found, got %v", err)
	}

	// Another user's block is not reachable either.
	blockID := startBlock(t, e, gen, "u1", 25)
	if _, err := e.DynamicBreakDecision(context.Background(), "u2", blockID); !errors.Is(err, models.ErrTimerNotFound) {
		t.Fatalf("expected timer not found for foreign block, got %v", err)
	}
}

func TestDynamicBreakDecision_ParsedOffer(t *testing.T) {
	gen := &mockGenAI{}
	e, _ := newTestEngine(gen)
	blockID := startBlock(t, e, gen, "u1", 30)
	backdateTimer(e, blockID, 28*time.Minute)

	gen.push(`{"check_in_question": "How did the report go?", "break_options": [5, 15, 25], "option_descriptions": ["Stretch", "Walk", "Proper rest"], "reasoning": "solid session"}`)
	offer, err := e.DynamicBreakDecision(context.Background(), "u1", blockID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if offer.CheckInQuestion != "How did the report go?" {
		t.Errorf("unexpected question: %q", offer.CheckInQuestion)
	}
	if len(offer.BreakOptions) != 3 || offer.BreakOptions[0] != 5 || offer.BreakOptions[2] != 25 {
		t.Errorf("unexpected options: %v", offer.BreakOptions)
	}
	if len(offer.OptionDescriptions) != 3 || offer.OptionDescriptions[1] != "Walk" {
		t.Errorf("unexpected descriptions: %v", offer.OptionDescriptions)
	}
	if offer.Source != interpreter.SourceParsed {
		t.Errorf("expected parsed source, got %q", offer.Source)
	}

	call := gen.lastCall(t)
	if call.temperature != 0.6 || call.maxTokens != 250 {
		t.Errorf("unexpected sampling params: temp=%f maxTokens=%d", call.temperature, call.maxTokens)
	}
	if !strings.Contains(call.user, "Planned duration: 30 minutes") {
		t.Errorf("prompt missing planned duration: %q", call.user)
	}
	if !strings.Contains(call.user, "Actual duration: 28 minutes") {
		t.Errorf("prompt missing actual duration: %q", call.user)
	}
	if !strings.Contains(call.user, "Task: write the report") {
		t.Errorf("prompt missing task: %q", call.user)
	}

	e.mu.Lock()
	conv := e.conversations["u1"]
	e.mu.Unlock()
	if conv == nil {
		t.Fatal("expected a break conversation")
	}
	if conv.Stage != models.StageBreakDecision {
		t.Errorf("expected BREAK_DECISION stage, got %q", conv.Stage)
	}
	if conv.CompletedWorkBlockID != blockID {
		t.Errorf("expected completed block recorded, got %q", conv.CompletedWorkBlockID)
	}
	if len(conv.BreakOptions) != 3 || conv.BreakOptions[0] != 5 {
		t.Errorf("expected offered options parked on conversation, got %v", conv.BreakOptions)
	}
	if len(conv.History) != 1 || conv.History[0].Content != "How did the report go?" {
		t.Errorf("expected check-in question in history, got %+v", conv.History)
	}
}

func TestDynamicBreakDecision_ProseReplyFallsBack(t *testing.T) {
	gen := &mockGenAI{}
	e, _ := newTestEngine(gen)
	blockID := startBlock(t, e, gen, "u1", 25)

	gen.push("Nice work! Maybe grab some water and stretch a bit?")
	offer, err := e.DynamicBreakDecision(context.Background(), "u1", blockID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if offer.Source != interpreter.SourceFallback {
		t.Errorf("expected fallback source, got %q", offer.Source)
	}
	if offer.CheckInQuestion != "How did that work session go? What kind of break feels right?" {
		t.Errorf("unexpected fallback question: %q", offer.CheckInQuestion)
	}
	if len(offer.BreakOptions) != 3 || offer.BreakOptions[0] != 10 || offer.BreakOptions[1] != 20 || offer.BreakOptions[2] != 30 {
		t.Errorf("unexpected fallback options: %v", offer.BreakOptions)
	}
}

func TestDynamicBreakDecision_GatewayFailureFallsBack(t *testing.T) {
	gen := &mockGenAI{}
	e, _ := newTestEngine(gen)
	blockID := startBlock(t, e, gen, "u1", 25)

	gen.mu.Lock()
	gen.err = errors.New("no route to host")
	gen.mu.Unlock()

	offer, err := e.DynamicBreakDecision(context.Background(), "u1", blockID)
	if err != nil {
		t.Fatalf("gateway failure must degrade, not error: %v", err)
	}
	if offer.Source != interpreter.SourceDefault {
		t.Errorf("expected default source, got %q", offer.Source)
	}
	if len(offer.BreakOptions) != 3 || offer.BreakOptions[0] != 10 || offer.BreakOptions[1] != 15 || offer.BreakOptions[2] != 20 {
		t.Errorf("unexpected default options: %v", offer.BreakOptions)
	}

	// The degraded offer is still parked on a conversation.
	status := e.GetStatus("u1")
	if !status.HasActiveConversation || status.ConversationStage != models.StageBreakDecision {
		t.Errorf("expected BREAK_DECISION conversation, got %+v", status)
	}
}
