package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/openai/openai-go"

	"github.com/FocusLoopHQ/FocusLoop/internal/genai"
	"github.com/FocusLoopHQ/FocusLoop/internal/interpreter"
	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

const stateCheckPromptFmt = `A user with ADHD just sent this message during their work session: %q

Current work context: %s
Time of day: %s

Analyze their message for:
1. How they're feeling right now
2. Whether they need any support or changes
3. If their current work block should be modified
4. What kind of response would be most helpful

Based on their message, determine if any adaptations are needed and respond conversationally.

Respond with JSON:
{"emotional_state_detected": "energized|focused|neutral|distracted|frustrated|overwhelmed|exhausted|hyperfocusing|avoidance", "needs_adaptation": true|false, "suggested_action": "continue|pause|shorten_block|take_break|end_early|change_approach", "ai_response": "conversational response to user", "reasoning": "why this adaptation is suggested"}

Be natural and supportive in your response. Ask follow-up questions if needed.`

// StateCheckResult pairs the adaptation decision with the interpretation
// tier that produced it.
type StateCheckResult struct {
	models.AdaptationDecision
	Source interpreter.Source `json:"decision_source"`
}

// DynamicStateCheck analyzes a message the user sent mid-session and applies
// whatever adaptation the model suggests to their running work block. The
// embedded work context is snapshotted before any adaptation mutates the
// timer. The check always produces a usable decision: unusable replies and
// gateway failures degrade through the interpreter ladder instead of
// erroring, so the caller always has something to say back.
func (e *Engine) DynamicStateCheck(ctx context.Context, userID, message string) StateCheckResult {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()
	e.mu.Lock()
	var workCtx *models.WorkContext
	if t := e.runningTimerLocked(userID); t != nil {
		snap := t.Snapshot(now)
		workCtx = &snap
	}
	e.mu.Unlock()

	ctxJSON := "{}"
	if workCtx != nil {
		ctxJSON = renderJSON(workCtx)
	}
	prompt := fmt.Sprintf(stateCheckPromptFmt, message, ctxJSON, now.Format("15:04"))

	var decision models.StateCheckDecision
	var source interpreter.Source
	reply, err := e.gen.GenerateWithMessages(ctx,
		[]openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		genai.WithTemperature(stateCheckTemperature),
		genai.WithMaxTokens(stateCheckMaxTokens))
	if err != nil {
		slog.Warn("Engine.DynamicStateCheck: gateway call failed, using default response",
			"userID", userID, "error", err)
		decision, source = interpreter.DefaultStateCheck(), interpreter.SourceDefault
	} else {
		decision, source = interpreter.StateCheck(reply)
	}

	result := StateCheckResult{
		AdaptationDecision: models.AdaptationDecision{
			EmotionalState:  decision.EmotionalStateDetected,
			NeedsAdaptation: decision.NeedsAdaptation,
			SuggestedAction: decision.SuggestedAction,
			Response:        decision.AIResponse,
			Reasoning:       decision.Reasoning,
			Context:         workCtx,
		},
		Source: source,
	}

	if decision.NeedsAdaptation && workCtx != nil {
		if err := e.executeAdaptation(workCtx.WorkBlockID, decision.SuggestedAction, decision.Reasoning); err != nil {
			slog.Warn("Engine.DynamicStateCheck: adaptation failed",
				"userID", userID, "workBlockID", workCtx.WorkBlockID, "action", decision.SuggestedAction, "error", err)
		}
		result.AdaptationExecuted = true
	}

	// State checks grade the message, not its intensity; log at the midpoint.
	entry := models.EmotionalStateLog{
		UserID:           userID,
		State:            decision.EmotionalStateDetected,
		Intensity:        0.5,
		Trigger:          message,
		InterventionTier: models.InterventionTierNone,
		CreatedAt:        now,
	}
	if err := e.st.LogEmotionalState(entry); err != nil {
		slog.Warn("Engine.DynamicStateCheck: failed to log emotional state", "userID", userID, "error", err)
	}

	slog.Debug("Engine.DynamicStateCheck: decision ready", "userID", userID,
		"state", decision.EmotionalStateDetected, "action", decision.SuggestedAction,
		"adapted", result.AdaptationExecuted, "source", source)
	return result
}

// ExecuteAdaptation applies a suggested action to a work block timer. A
// missing timer is a logged no-op, so a second end_early for the same block
// does nothing. Unknown actions are also logged no-ops.
func (e *Engine) ExecuteAdaptation(workBlockID string, action models.SuggestedAction, reason string) error {
	e.mu.Lock()
	t, ok := e.timers[workBlockID]
	if !ok {
		e.mu.Unlock()
		slog.Debug("Engine.ExecuteAdaptation: no timer for work block, nothing to adapt",
			"workBlockID", workBlockID, "action", action)
		return nil
	}
	userID := t.UserID
	e.mu.Unlock()

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return e.executeAdaptation(workBlockID, action, reason)
}

// executeAdaptation is the adaptation body. Caller must hold the owning
// user's lock; the timer is re-read under the registry lock because it may
// have completed in between.
func (e *Engine) executeAdaptation(workBlockID string, action models.SuggestedAction, reason string) error {
	now := time.Now().UTC()

	e.mu.Lock()
	t, ok := e.timers[workBlockID]
	if !ok {
		e.mu.Unlock()
		slog.Debug("Engine.executeAdaptation: no timer for work block, nothing to adapt",
			"workBlockID", workBlockID, "action", action)
		return nil
	}

	switch action {
	case models.ActionPause:
		t.State = models.TimerStatePaused
		t.PauseCount++
		pauseCount := t.PauseCount
		e.mu.Unlock()
		slog.Info("Engine.executeAdaptation: paused work block",
			"workBlockID", workBlockID, "pauseCount", pauseCount, "reason", reason)
		return nil

	case models.ActionShortenBlock:
		shortened := int(t.ElapsedMinutes(now)) + shortenGraceMinutes
		t.PlannedDurationMinutes = shortened
		e.mu.Unlock()
		if err := e.st.RecordWorkBlockAdaptation(workBlockID, shortened); err != nil {
			slog.Warn("Engine.executeAdaptation: failed to record shortened duration",
				"workBlockID", workBlockID, "error", err)
		}
		slog.Info("Engine.executeAdaptation: shortened work block",
			"workBlockID", workBlockID, "plannedMinutes", shortened, "reason", reason)
		return nil

	case models.ActionEndEarly:
		actual := math.Trunc(t.ElapsedMinutes(now))
		t.State = models.TimerStateCompletedEarly
		delete(e.timers, workBlockID)
		e.mu.Unlock()
		if err := e.st.CompleteWorkBlock(workBlockID, now, actual, earlyCompletionPct); err != nil {
			slog.Error("Engine.executeAdaptation: failed to complete work block",
				"workBlockID", workBlockID, "error", err)
			return fmt.Errorf("failed to complete work block: %w", err)
		}
		slog.Info("Engine.executeAdaptation: ended work block early",
			"workBlockID", workBlockID, "actualMinutes", actual, "reason", reason)
		return nil

	default:
		e.mu.Unlock()
		slog.Info("Engine.executeAdaptation: action needs no timer change",
			"workBlockID", workBlockID, "action", action, "reason", reason)
		return nil
	}
}
