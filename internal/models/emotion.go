package models

import "time"

// EmotionalState classifies how the user is doing during planning or work.
type EmotionalState string

const (
	EmotionalStateEnergized     EmotionalState = "energized"
	EmotionalStateFocused       EmotionalState = "focused"
	EmotionalStateNeutral       EmotionalState = "neutral"
	EmotionalStateDistracted    EmotionalState = "distracted"
	EmotionalStateFrustrated    EmotionalState = "frustrated"
	EmotionalStateOverwhelmed   EmotionalState = "overwhelmed"
	EmotionalStateExhausted     EmotionalState = "exhausted"
	EmotionalStateHyperfocusing EmotionalState = "hyperfocusing"
	EmotionalStateAvoidance     EmotionalState = "avoidance"
)

// IsValidEmotionalState checks if the given state is part of the detection vocabulary.
func IsValidEmotionalState(s EmotionalState) bool {
	switch s {
	case EmotionalStateEnergized, EmotionalStateFocused, EmotionalStateNeutral,
		EmotionalStateDistracted, EmotionalStateFrustrated, EmotionalStateOverwhelmed,
		EmotionalStateExhausted, EmotionalStateHyperfocusing, EmotionalStateAvoidance:
		return true
	default:
		return false
	}
}

// InterventionTier grades how urgently the assistant should step in.
type InterventionTier string

const (
	InterventionTierNone      InterventionTier = "none"
	InterventionTierGentle    InterventionTier = "gentle"
	InterventionTierImmediate InterventionTier = "immediate"
	InterventionTierEmergency InterventionTier = "emergency"
)

// IsValidInterventionTier checks if the given tier is one the policy knows.
func IsValidInterventionTier(t InterventionTier) bool {
	switch t {
	case InterventionTierNone, InterventionTierGentle, InterventionTierImmediate, InterventionTierEmergency:
		return true
	default:
		return false
	}
}

// SuggestedAction is the scheduling adaptation a state check proposes.
type SuggestedAction string

const (
	ActionContinue       SuggestedAction = "continue"
	ActionPause          SuggestedAction = "pause"
	ActionShortenBlock   SuggestedAction = "shorten_block"
	ActionTakeBreak      SuggestedAction = "take_break"
	ActionEndEarly       SuggestedAction = "end_early"
	ActionChangeApproach SuggestedAction = "change_approach"
)

// IsValidSuggestedAction checks if the given action is one the engine understands.
func IsValidSuggestedAction(a SuggestedAction) bool {
	switch a {
	case ActionContinue, ActionPause, ActionShortenBlock, ActionTakeBreak,
		ActionEndEarly, ActionChangeApproach:
		return true
	default:
		return false
	}
}

// EmotionalStateDetection is the result of classifying a user message.
type EmotionalStateDetection struct {
	State              EmotionalState   `json:"emotional_state"`
	Intensity          float64          `json:"intensity"` // 0.0 to 1.0
	InterventionNeeded bool             `json:"intervention_needed"`
	InterventionTier   InterventionTier `json:"intervention_tier"`
	SuggestedResponse  string           `json:"suggested_response,omitempty"`
	Trigger            string           `json:"trigger,omitempty"`
}

// EmotionalStateLog is the durable, append-only record of a detection.
type EmotionalStateLog struct {
	ID                 int64            `json:"id"`
	UserID             string           `json:"user_id"`
	State              EmotionalState   `json:"state"`
	Intensity          float64          `json:"intensity"`
	Trigger            string           `json:"trigger,omitempty"`
	InterventionNeeded bool             `json:"intervention_needed"`
	InterventionTier   InterventionTier `json:"intervention_tier"`
	CreatedAt          time.Time        `json:"created_at"`
}

// InterventionRecommendation is the deterministic policy output for a
// detected state and intensity.
type InterventionRecommendation struct {
	Type    string           `json:"intervention_type"`
	Urgency InterventionTier `json:"urgency"`
	Message string           `json:"message"`
	Actions []string         `json:"suggested_actions"`
}

// InterventionLog is the durable record of an executed or recommended intervention.
type InterventionLog struct {
	ID        int64            `json:"id"`
	UserID    string           `json:"user_id"`
	Type      string           `json:"intervention_type"`
	Urgency   InterventionTier `json:"urgency"`
	Trigger   string           `json:"trigger,omitempty"`
	Outcome   string           `json:"outcome,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// AdaptationDecision is the ephemeral outcome of a dynamic state check. It is
// returned to the caller and never persisted as a unit; the embedded Context
// snapshot is captured before any adaptation mutates the timer.
type AdaptationDecision struct {
	EmotionalState     EmotionalState  `json:"emotional_state_detected"`
	NeedsAdaptation    bool            `json:"needs_adaptation"`
	SuggestedAction    SuggestedAction `json:"suggested_action"`
	Response           string          `json:"ai_response"`
	Reasoning          string          `json:"reasoning,omitempty"`
	Context            *WorkContext    `json:"work_context,omitempty"`
	AdaptationExecuted bool            `json:"adaptation_executed"`
}
