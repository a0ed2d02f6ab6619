package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"

	"github.com/FocusLoopHQ/FocusLoop/internal/genai"
	"github.com/FocusLoopHQ/FocusLoop/internal/interpreter"
	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

const initialPlanningPromptFmt = `You are an ADHD executive function replacement assistant. Start a natural conversation to understand this user's current state and plan their day dynamically.

User Context (for reference only, don't assume): %s

Your job is to:
1. Ask how they're feeling RIGHT NOW
2. Understand their energy and focus level TODAY
3. Find out what they want to accomplish
4. Determine optimal work block duration through conversation
5. Decide break lengths based on their responses
6. Create a personalized schedule through dialogue

Start with a natural question about how they're feeling today. Be conversational, not clinical.
Don't mention any specific time durations yet - let their responses guide you.`

const continuePlanningPromptFmt = `Continue this ADHD planning conversation. Based on the user's latest response, decide what to do next:

Conversation so far:
%s

Current conversation state: %s
Information gathered so far: %s

Your options:
1. If you need more info about their current state - ask another question
2. If you have enough info about how they're feeling - suggest specific work block duration options
3. If they've agreed on work duration - ask about break preferences
4. If you have all needed info - create their personalized schedule

Guidelines:
- Ask specific questions: "Would you prefer 20, 30, or 45 minutes for your first work block?"
- Let THEM choose durations based on how they feel
- Adapt suggestions based on their energy/stress level
- If they seem overwhelmed, suggest shorter blocks
- If they're energized, offer longer options
- Always give them 2-3 specific choices

Respond with either:
- Another question to gather more info
- OR specific time options for them to choose from
- OR a complete schedule if you have all needed information

Format your response as JSON:
{"type": "question|options|schedule", "content": "your response text", "needs_user_input": true|false, "suggested_durations": [20, 30, 45] (if offering options), "schedule": {...} (if complete)}`

// PlanningStart is the result of opening a planning conversation.
type PlanningStart struct {
	ConversationID string `json:"conversation_id"`
	Question       string `json:"ai_question"`
	NextAction     string `json:"next_action"`
}

// PlanningTurn is the result of one continued planning exchange.
type PlanningTurn struct {
	Decision models.PlanningDecision  `json:"ai_response"`
	Stage    models.ConversationStage `json:"conversation_state"`
	Schedule *models.ProposedSchedule `json:"schedule,omitempty"`
	Source   interpreter.Source       `json:"decision_source"`
}

// StartPlanningConversation opens a fresh planning dialogue for the user,
// overwriting any previous conversation. The opener prompt carries the
// user's recent states and work patterns but explicitly forbids proposing
// durations this early. Gateway failure creates no conversation.
func (e *Engine) StartPlanningConversation(ctx context.Context, userID string) (PlanningStart, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()
	prompt := fmt.Sprintf(initialPlanningPromptFmt, e.userContext(userID, now).render())

	question, err := e.gen.GenerateWithMessages(ctx,
		[]openai.ChatCompletionMessageParamUnion{openai.SystemMessage(prompt)},
		genai.WithTemperature(planningStartTemperature),
		genai.WithMaxTokens(planningStartMaxTokens))
	if err != nil {
		slog.Error("Engine.StartPlanningConversation: gateway call failed", "userID", userID, "error", err)
		return PlanningStart{}, fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
	}

	now = time.Now().UTC()
	conv := &models.Conversation{
		UserID:            userID,
		Stage:             models.StageInitialPlanning,
		History:           []models.ConversationTurn{{Role: models.RoleAssistant, Content: question}},
		GatheredInfo:      map[string]any{},
		ScheduleDecisions: map[string]any{},
		StartedAt:         now,
		LastActivityAt:    now,
	}
	e.mu.Lock()
	e.conversations[userID] = conv
	e.mu.Unlock()

	slog.Info("Engine.StartPlanningConversation: conversation opened", "userID", userID)
	return PlanningStart{
		ConversationID: userID,
		Question:       question,
		NextAction:     nextActionAwaitUser,
	}, nil
}

// ContinuePlanningConversation feeds the user's reply into the active
// planning dialogue and interprets the model's next move: another question,
// duration options, or a complete schedule. A schedule advances the stage to
// WORK_BLOCK_DECISION and is materialized into the result. The user and
// assistant turns are committed to history together, after the gateway call
// succeeds; a gateway failure leaves the conversation exactly as it was.
func (e *Engine) ContinuePlanningConversation(ctx context.Context, userID, message string) (PlanningTurn, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	e.mu.Lock()
	conv, ok := e.conversations[userID]
	if !ok {
		e.mu.Unlock()
		return PlanningTurn{}, models.ErrConversationNotFound
	}
	history := conv.History
	stage := conv.Stage
	gathered := renderJSON(conv.GatheredInfo)
	e.mu.Unlock()

	transcript := renderTranscript(history, models.ConversationTurn{Role: models.RoleUser, Content: message})
	prompt := fmt.Sprintf(continuePlanningPromptFmt, transcript, stage, gathered)

	reply, err := e.gen.GenerateWithMessages(ctx,
		[]openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		genai.WithTemperature(planningTurnTemperature),
		genai.WithMaxTokens(planningTurnMaxTokens))
	if err != nil {
		slog.Error("Engine.ContinuePlanningConversation: gateway call failed", "userID", userID, "error", err)
		return PlanningTurn{}, fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
	}

	decision, source := interpreter.PlanningDecision(reply)
	now := time.Now().UTC()

	e.mu.Lock()
	conv.Append(models.RoleUser, message, now)
	conv.Append(models.RoleAssistant, reply, now)

	turn := PlanningTurn{Decision: decision, Stage: conv.Stage, Source: source}
	if decision.Type == models.PlanningDecisionSchedule {
		conv.Stage = models.StageWorkBlockDecision
		conv.ScheduleDecisions["schedule"] = decision.Schedule
		sched := materializeSchedule(userID, decision.Schedule, now)
		turn.Stage = conv.Stage
		turn.Schedule = &sched
	}
	e.mu.Unlock()

	slog.Debug("Engine.ContinuePlanningConversation: turn interpreted",
		"userID", userID, "type", decision.Type, "source", source, "stage", turn.Stage)
	return turn, nil
}

// renderTranscript flattens history plus any pending turns into the
// "role: content" lines the planning prompt embeds.
func renderTranscript(history []models.ConversationTurn, pending ...models.ConversationTurn) string {
	lines := make([]string, 0, len(history)+len(pending))
	for _, t := range history {
		lines = append(lines, t.Role+": "+t.Content)
	}
	for _, t := range pending {
		lines = append(lines, t.Role+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}

// materializeSchedule wraps the raw schedule sketch from a planning dialogue
// into the proposal shape handed back to callers.
func materializeSchedule(userID string, sketch map[string]any, now time.Time) models.ProposedSchedule {
	return models.ProposedSchedule{
		Type:        models.ScheduleTypeDynamic,
		UserID:      userID,
		CreatedFrom: "ai_conversation",
		Data:        sketch,
		CreatedAt:   now,
	}
}
