package interpreter

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

// defaultIntensity is assumed when a reply omits the intensity field.
const defaultIntensity = 0.5

// detectionReply is the wire shape of an emotional classification reply.
// intervention_needed carries a tier name, not a boolean.
type detectionReply struct {
	EmotionalState     string   `json:"emotional_state"`
	Intensity          *float64 `json:"intensity"`
	InterventionNeeded string   `json:"intervention_needed"`
	SuggestedResponse  string   `json:"suggested_response"`
}

// Detection interprets an emotional classification reply. The parsed tier
// requires a state from the detection vocabulary; unknown labels fall through
// the ladder. The keyword tier also works directly on user messages, which
// lets callers classify without a model reply when the gateway is down.
func Detection(raw string) (models.EmotionalStateDetection, Source) {
	span, _, ok := objectSpan(raw)
	if ok {
		var reply detectionReply
		if json.Unmarshal([]byte(span), &reply) == nil {
			if d, usable := reply.toDetection(); usable {
				return d, SourceParsed
			}
		}
	}
	if d, matched := keywordDetection(raw); matched {
		return d, SourceFallback
	}
	return DefaultDetection(), SourceDefault
}

// DefaultDetection is the fixed neutral detection.
func DefaultDetection() models.EmotionalStateDetection {
	return models.EmotionalStateDetection{
		State:            models.EmotionalStateNeutral,
		Intensity:        defaultIntensity,
		InterventionTier: models.InterventionTierNone,
	}
}

func (r detectionReply) toDetection() (models.EmotionalStateDetection, bool) {
	state := models.EmotionalState(strings.ToLower(strings.TrimSpace(r.EmotionalState)))
	if !models.IsValidEmotionalState(state) {
		return models.EmotionalStateDetection{}, false
	}
	intensity := defaultIntensity
	if r.Intensity != nil {
		intensity = clampIntensity(*r.Intensity)
	}
	// Off-vocabulary tiers degrade to none rather than invalidating an
	// otherwise clean classification.
	tier := models.InterventionTier(strings.ToLower(strings.TrimSpace(r.InterventionNeeded)))
	if !models.IsValidInterventionTier(tier) {
		tier = models.InterventionTierNone
	}
	return models.EmotionalStateDetection{
		State:              state,
		Intensity:          intensity,
		InterventionNeeded: tier != models.InterventionTierNone,
		InterventionTier:   tier,
		SuggestedResponse:  r.SuggestedResponse,
	}, true
}

// keywordDetection scans text for distress markers. First match wins.
func keywordDetection(text string) (models.EmotionalStateDetection, bool) {
	lower := strings.ToLower(text)
	var (
		state models.EmotionalState
		tier  models.InterventionTier
	)
	switch {
	case strings.Contains(lower, "frustrat"):
		state, tier = models.EmotionalStateFrustrated, models.InterventionTierGentle
	case strings.Contains(lower, "overwhelm"):
		state, tier = models.EmotionalStateOverwhelmed, models.InterventionTierImmediate
	case strings.Contains(lower, "exhausted"):
		state, tier = models.EmotionalStateExhausted, models.InterventionTierGentle
	case strings.Contains(lower, "hyperfocus"):
		state, tier = models.EmotionalStateHyperfocusing, models.InterventionTierImmediate
	default:
		return models.EmotionalStateDetection{}, false
	}
	return models.EmotionalStateDetection{
		State:              state,
		Intensity:          defaultIntensity,
		InterventionNeeded: true,
		InterventionTier:   tier,
	}, true
}

func clampIntensity(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
