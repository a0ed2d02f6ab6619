package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"

	"github.com/FocusLoopHQ/FocusLoop/internal/genai"
	"github.com/FocusLoopHQ/FocusLoop/internal/interpreter"
	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

const breakPromptFmt = `A user with ADHD just finished a work block. Help determine their optimal break duration through conversation.

Work block details:
- Planned duration: %d minutes
- Actual duration: %d minutes
- Task: %s
- Time of day: %s

Ask them how the work block went and suggest 2-3 specific break duration options that make sense.

Consider:
- How they might be feeling after this work session
- What kind of break would be most restorative
- Time of day and energy patterns

Respond with JSON:
{"check_in_question": "How did that work block go? How are you feeling?", "break_options": [5, 15, 25], "option_descriptions": ["Quick breather", "Standard break", "Longer rest"], "reasoning": "why these options make sense"}`

// BreakOffer is the result of DynamicBreakDecision: break length options
// waiting on the user's choice.
type BreakOffer struct {
	CheckInQuestion    string             `json:"check_in_question"`
	BreakOptions       []int              `json:"break_options"`
	OptionDescriptions []string           `json:"option_descriptions,omitempty"`
	Reasoning          string             `json:"reasoning,omitempty"`
	Source             interpreter.Source `json:"decision_source"`
}

// DynamicBreakDecision asks the model for break options after a work block,
// conditioned on how the block actually went. The offered options are parked
// on the conversation at stage BREAK_DECISION, replacing whatever dialogue
// came before. Unusable replies and gateway failures degrade to the
// documented fallback options; only a missing timer is an error.
func (e *Engine) DynamicBreakDecision(ctx context.Context, userID, workBlockID string) (BreakOffer, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()
	e.mu.Lock()
	t, ok := e.timers[workBlockID]
	if !ok || t.UserID != userID {
		e.mu.Unlock()
		return BreakOffer{}, fmt.Errorf("%w: %s", models.ErrTimerNotFound, workBlockID)
	}
	planned := t.PlannedDurationMinutes
	elapsed := int(t.ElapsedMinutes(now))
	task := t.TaskDescription
	e.mu.Unlock()

	prompt := fmt.Sprintf(breakPromptFmt, planned, elapsed, task, now.Format("15:04"))

	var decision models.BreakDecision
	var source interpreter.Source
	reply, err := e.gen.GenerateWithMessages(ctx,
		[]openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		genai.WithTemperature(breakTemperature),
		genai.WithMaxTokens(breakMaxTokens))
	if err != nil {
		slog.Warn("Engine.DynamicBreakDecision: gateway call failed, offering default breaks",
			"userID", userID, "workBlockID", workBlockID, "error", err)
		decision, source = interpreter.DefaultBreakDecision(), interpreter.SourceDefault
	} else {
		decision, source = interpreter.BreakDecision(reply)
	}

	now = time.Now().UTC()
	conv := &models.Conversation{
		UserID: userID,
		Stage:  models.StageBreakDecision,
		History: []models.ConversationTurn{
			{Role: models.RoleAssistant, Content: decision.CheckInQuestion},
		},
		GatheredInfo:         map[string]any{},
		ScheduleDecisions:    map[string]any{},
		CompletedWorkBlockID: workBlockID,
		BreakOptions:         decision.BreakOptions,
		StartedAt:            now,
		LastActivityAt:       now,
	}
	e.mu.Lock()
	e.conversations[userID] = conv
	e.mu.Unlock()

	slog.Info("Engine.DynamicBreakDecision: break options offered",
		"userID", userID, "workBlockID", workBlockID, "options", decision.BreakOptions, "source", source)
	return BreakOffer{
		CheckInQuestion:    decision.CheckInQuestion,
		BreakOptions:       decision.BreakOptions,
		OptionDescriptions: decision.OptionDescriptions,
		Reasoning:          decision.Reasoning,
		Source:             source,
	}, nil
}
