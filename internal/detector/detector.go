// Package detector classifies user messages into the emotional-state
// vocabulary and maps state/intensity pairs to intervention recommendations.
// Classification needs the LLM gateway; the recommendation policy is pure.
package detector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FocusLoopHQ/FocusLoop/internal/genai"
	"github.com/FocusLoopHQ/FocusLoop/internal/interpreter"
	"github.com/FocusLoopHQ/FocusLoop/internal/models"
	"github.com/FocusLoopHQ/FocusLoop/internal/store"
	"github.com/openai/openai-go"
)

// detectionTemperature keeps classification replies low-variance.
const detectionTemperature = 0.2

// Detector performs LLM-backed emotional state detection with durable
// logging of every detection.
type Detector struct {
	gen genai.ClientInterface
	st  store.Store
}

// NewDetector creates a Detector backed by the given gateway and store.
func NewDetector(gen genai.ClientInterface, st store.Store) *Detector {
	return &Detector{gen: gen, st: st}
}

// Detect classifies a user message. When the gateway is unreachable the
// message itself is scanned for distress keywords, so a usable detection
// always comes back. The detection is appended to the durable log best
// effort; log failures never block the caller.
func (d *Detector) Detect(ctx context.Context, userID, message string, workCtx *models.WorkContext) (models.EmotionalStateDetection, interpreter.Source) {
	prompt := buildDetectionPrompt(message, workCtx)
	reply, err := d.gen.GenerateWithMessages(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	}, genai.WithTemperature(detectionTemperature))

	var (
		detection models.EmotionalStateDetection
		src       interpreter.Source
	)
	if err != nil {
		slog.Warn("Detector.Detect: gateway unavailable, scanning message directly", "userID", userID, "error", err)
		detection, src = interpreter.Detection(message)
	} else {
		detection, src = interpreter.Detection(reply)
	}
	detection.Trigger = message

	entry := models.EmotionalStateLog{
		UserID:             userID,
		State:              detection.State,
		Intensity:          detection.Intensity,
		Trigger:            message,
		InterventionNeeded: detection.InterventionNeeded,
		InterventionTier:   detection.InterventionTier,
		CreatedAt:          time.Now().UTC(),
	}
	if logErr := d.st.LogEmotionalState(entry); logErr != nil {
		slog.Warn("Detector.Detect: failed to log emotional state", "userID", userID, "error", logErr)
	}

	slog.Debug("Detector.Detect: classified message",
		"userID", userID, "state", detection.State, "intensity", detection.Intensity,
		"tier", detection.InterventionTier, "source", src)
	return detection, src
}

// Recommend evaluates the intervention policy for a detection and records
// actionable recommendations (urgency above none) in the durable
// intervention log.
func (d *Detector) Recommend(userID string, state models.EmotionalState, intensity float64, trigger string) models.InterventionRecommendation {
	rec := RecommendIntervention(state, intensity)
	if rec.Urgency == models.InterventionTierNone {
		return rec
	}
	entry := models.InterventionLog{
		UserID:    userID,
		Type:      rec.Type,
		Urgency:   rec.Urgency,
		Trigger:   trigger,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.st.LogIntervention(entry); err != nil {
		slog.Warn("Detector.Recommend: failed to log intervention", "userID", userID, "type", rec.Type, "error", err)
	}
	slog.Info("Detector.Recommend: intervention recommended",
		"userID", userID, "state", state, "intensity", intensity, "type", rec.Type, "urgency", rec.Urgency)
	return rec
}

// RecommendIntervention maps a state and intensity to an intervention
// deterministically. Thresholds are strict: an intensity exactly at a
// boundary does not trigger that tier.
func RecommendIntervention(state models.EmotionalState, intensity float64) models.InterventionRecommendation {
	switch {
	case state == models.EmotionalStateHyperfocusing && intensity > 0.8:
		return models.InterventionRecommendation{
			Type:    "emergency_break",
			Urgency: models.InterventionTierEmergency,
			Message: "You've been hyperfocusing for too long. Mandatory break required immediately.",
			Actions: []string{"force_break", "schedule_check_in"},
		}
	case (state == models.EmotionalStateFrustrated || state == models.EmotionalStateOverwhelmed) && intensity > 0.6:
		return models.InterventionRecommendation{
			Type:    "immediate_support",
			Urgency: models.InterventionTierImmediate,
			Message: "I notice you're struggling. Let's adjust your approach right now.",
			Actions: []string{"reduce_task_complexity", "shorten_work_blocks", "schedule_check_in"},
		}
	case state == models.EmotionalStateExhausted && intensity > 0.7:
		return models.InterventionRecommendation{
			Type:    "rest_day",
			Urgency: models.InterventionTierImmediate,
			Message: "Your brain needs rest. Let's end the workday early today.",
			Actions: []string{"end_day_early", "schedule_reflection"},
		}
	case (state == models.EmotionalStateDistracted || state == models.EmotionalStateAvoidance) && intensity > 0.5:
		return models.InterventionRecommendation{
			Type:    "gentle_redirect",
			Urgency: models.InterventionTierGentle,
			Message: "I see you might need a different approach. Let's try something else.",
			Actions: []string{"task_simplification", "micro_break"},
		}
	default:
		return models.InterventionRecommendation{
			Type:    "monitoring",
			Urgency: models.InterventionTierNone,
			Message: "Everything looks good. I'm here if you need support.",
			Actions: []string{"continue_monitoring"},
		}
	}
}

func buildDetectionPrompt(message string, workCtx *models.WorkContext) string {
	var b strings.Builder
	b.WriteString("Analyze this message from someone with ADHD for emotional/mental state indicators:\n\n")
	fmt.Fprintf(&b, "Current message: %q\n\n", message)
	if workCtx != nil {
		fmt.Fprintf(&b, "Current work context: working on %q, %.0f of %d planned minutes elapsed.\n\n",
			workCtx.TaskDescription, workCtx.ElapsedMinutes, workCtx.PlannedDurationMinutes)
	}
	b.WriteString(`Look for signs of:
1. FRUSTRATION: "This is stupid", "I can't", anger words
2. OVERWHELM: "Too much", "I don't know where to start", scattered thoughts
3. EXHAUSTION: "Tired", "Can't focus", "Brain fog"
4. DISTRACTION: Topic jumping, mentioning other tasks, "Oh wait"
5. HYPERFOCUS: "Just a few more minutes", resistance to breaks, perfectionism
6. AVOIDANCE: Procrastination language, making excuses, task switching

Return JSON with:
- "emotional_state": one of energized, focused, neutral, distracted, frustrated, overwhelmed, exhausted, hyperfocusing, avoidance
- "intensity": how strong the state reads, 0.0 to 1.0
- "intervention_needed": one of none, gentle, immediate, emergency
- "suggested_response": brief guidance for what to do`)
	return b.String()
}
