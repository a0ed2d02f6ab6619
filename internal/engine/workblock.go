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
	"github.com/FocusLoopHQ/FocusLoop/internal/util"
)

const durationPromptFmt = `A user with ADHD wants to start a work block. Based on their context, what duration options should we offer them?

User context: %s
Recent performance: %s
Task description: %s
Current time: %s

Provide 3 specific duration options that make sense for their current state and ask them to choose.
Consider:
- Their energy level
- Time of day
- Recent work patterns
- Task complexity

Respond with JSON:
{"question": "conversational question to ask user", "duration_options": [15, 25, 35], "reasoning": "why these durations make sense"}`

// DurationOffer is the result of StartWorkBlock: candidate durations waiting
// on the user's choice. Source records whether the options came from the
// model or one of the documented fallbacks.
type DurationOffer struct {
	Question        string             `json:"ai_question"`
	DurationOptions []int              `json:"duration_options"`
	Reasoning       string             `json:"reasoning,omitempty"`
	AwaitingChoice  bool               `json:"awaiting_user_choice"`
	Source          interpreter.Source `json:"decision_source"`
}

// StartedBlock reports a confirmed, now-running work block.
type StartedBlock struct {
	WorkBlockID     string    `json:"work_block_id"`
	DurationMinutes int       `json:"duration"`
	StartTime       time.Time `json:"start_time"`
	Message         string    `json:"message"`
}

// StartWorkBlock asks the model for three candidate durations tailored to
// the user's context and today's performance, then parks them on the
// conversation as a pending work block awaiting ConfirmDuration. The offer
// always succeeds: an unusable reply or an unreachable gateway degrades to
// the documented fallback options, never to an error.
func (e *Engine) StartWorkBlock(ctx context.Context, userID, taskDescription string) DurationOffer {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()
	prompt := fmt.Sprintf(durationPromptFmt,
		e.userContext(userID, now).render(),
		renderJSON(e.recentPerformance(userID, now)),
		taskDescription,
		now.Format("15:04"))

	var proposal models.DurationProposal
	var source interpreter.Source
	reply, err := e.gen.GenerateWithMessages(ctx,
		[]openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		genai.WithTemperature(durationTemperature),
		genai.WithMaxTokens(durationMaxTokens))
	if err != nil {
		slog.Warn("Engine.StartWorkBlock: gateway call failed, offering default durations",
			"userID", userID, "error", err)
		proposal, source = interpreter.DefaultDurationProposal(), interpreter.SourceDefault
	} else {
		proposal, source = interpreter.DurationProposal(reply)
	}

	now = time.Now().UTC()
	conv := &models.Conversation{
		UserID: userID,
		Stage:  models.StageWorkBlockDecision,
		History: []models.ConversationTurn{
			{Role: models.RoleAssistant, Content: proposal.Question},
		},
		GatheredInfo:      map[string]any{},
		ScheduleDecisions: map[string]any{},
		PendingWorkBlock: &models.PendingWorkBlock{
			TaskDescription: taskDescription,
			DurationOptions: proposal.DurationOptions,
			CheckInQuestion: proposal.Question,
			OfferedAt:       now,
		},
		StartedAt:      now,
		LastActivityAt: now,
	}
	e.mu.Lock()
	e.conversations[userID] = conv
	e.mu.Unlock()

	slog.Info("Engine.StartWorkBlock: duration options offered",
		"userID", userID, "options", proposal.DurationOptions, "source", source)
	return DurationOffer{
		Question:        proposal.Question,
		DurationOptions: proposal.DurationOptions,
		Reasoning:       proposal.Reasoning,
		AwaitingChoice:  true,
		Source:          source,
	}
}

// ConfirmDuration starts the work block the user picked from a pending
// offer. The offered options are authoritative: a choice outside them is
// rejected. On success the durable record and the running timer are created
// and the conversation is cleared.
func (e *Engine) ConfirmDuration(ctx context.Context, userID string, chosenMinutes int) (StartedBlock, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	e.mu.Lock()
	conv, ok := e.conversations[userID]
	if !ok || conv.PendingWorkBlock == nil {
		e.mu.Unlock()
		return StartedBlock{}, models.ErrNoPendingWorkBlock
	}
	pending := conv.PendingWorkBlock
	if !pending.Offers(chosenMinutes) {
		e.mu.Unlock()
		return StartedBlock{}, fmt.Errorf("%w: %d is not among %v",
			models.ErrInvalidDurationChoice, chosenMinutes, pending.DurationOptions)
	}
	e.mu.Unlock()

	now := time.Now().UTC()
	blockID := util.GenerateRandomID("wb_", 12)
	wb := models.WorkBlock{
		ID:                     blockID,
		UserID:                 userID,
		TaskDescription:        pending.TaskDescription,
		PlannedDurationMinutes: chosenMinutes,
		OriginalPlannedMinutes: chosenMinutes,
		StartedAt:              now,
	}
	if err := e.st.SaveWorkBlock(wb); err != nil {
		slog.Error("Engine.ConfirmDuration: failed to save work block", "userID", userID, "error", err)
		return StartedBlock{}, fmt.Errorf("failed to save work block: %w", err)
	}

	e.mu.Lock()
	e.timers[blockID] = &models.WorkBlockTimer{
		WorkBlockID:            blockID,
		UserID:                 userID,
		StartedAt:              now,
		PlannedDurationMinutes: chosenMinutes,
		State:                  models.TimerStateRunning,
		TaskDescription:        pending.TaskDescription,
	}
	delete(e.conversations, userID)
	e.mu.Unlock()

	slog.Info("Engine.ConfirmDuration: work block started",
		"userID", userID, "workBlockID", blockID, "minutes", chosenMinutes)
	return StartedBlock{
		WorkBlockID:     blockID,
		DurationMinutes: chosenMinutes,
		StartTime:       now,
		Message:         fmt.Sprintf("Started %d-minute work block. I'll check in with you dynamically!", chosenMinutes),
	}, nil
}
