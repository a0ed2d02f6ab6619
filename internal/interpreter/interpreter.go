// Package interpreter extracts structured decisions from raw model text.
//
// Model replies are free text that usually embeds a JSON object. Every
// function in this package runs the same three-tier ladder: parse the first
// balanced {...} span (repairing almost-JSON before giving up), then apply
// decision-specific heuristics to the raw text, then fall back to a fixed
// default. The returned Source records which tier produced the decision.
// Nothing here returns an error; callers always get a usable decision.
package interpreter

import (
	"encoding/json"
	"strings"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
	"github.com/kaptinlin/jsonrepair"
)

// Source identifies which ladder tier produced a decision.
type Source string

const (
	// SourceParsed means the decision came from JSON embedded in the reply.
	SourceParsed Source = "parsed"
	// SourceFallback means heuristics over the raw text synthesized the decision.
	SourceFallback Source = "fallback"
	// SourceDefault means the fixed default for the decision type was used.
	SourceDefault Source = "default"
)

// ---- Decision interpreters ----

// PlanningDecision interprets a planning conversation turn. A reply without a
// usable JSON object is treated as a plain question back to the user, so the
// conversation keeps moving even when the model ignores the format.
func PlanningDecision(raw string) (models.PlanningDecision, Source) {
	span, _, ok := objectSpan(raw)
	if ok {
		var d models.PlanningDecision
		if json.Unmarshal([]byte(span), &d) == nil && (d.Type != "" || d.Content != "") {
			return d, SourceParsed
		}
	}
	if strings.TrimSpace(raw) != "" {
		return models.PlanningDecision{
			Type:           models.PlanningDecisionQuestion,
			Content:        raw,
			NeedsUserInput: true,
		}, SourceFallback
	}
	return DefaultPlanningDecision(), SourceDefault
}

// DefaultPlanningDecision is the fixed planning decision for an empty or
// unavailable reply.
func DefaultPlanningDecision() models.PlanningDecision {
	return models.PlanningDecision{
		Type:           models.PlanningDecisionQuestion,
		Content:        "Hi! I'm here to help. What's on your mind?",
		NeedsUserInput: true,
	}
}

// DurationProposal interprets a work block duration reply. The parsed tier
// requires both a question and at least one option. A reply with no JSON at
// all degrades to the flexible triple; a reply whose JSON cannot be used
// degrades all the way to the default triple.
func DurationProposal(raw string) (models.DurationProposal, Source) {
	span, found, ok := objectSpan(raw)
	if ok {
		var d models.DurationProposal
		if json.Unmarshal([]byte(span), &d) == nil && d.Question != "" && len(d.DurationOptions) > 0 {
			return d, SourceParsed
		}
	}
	if !found && strings.TrimSpace(raw) != "" {
		return models.DurationProposal{
			Question:        "How long would you like to work? Would you prefer 20, 30, or 40 minutes?",
			DurationOptions: []int{20, 30, 40},
			Reasoning:       "Offering flexible options based on your preferences",
		}, SourceFallback
	}
	return DefaultDurationProposal(), SourceDefault
}

// DefaultDurationProposal is the fixed duration proposal used when the model
// reply is unusable or the gateway is unreachable.
func DefaultDurationProposal() models.DurationProposal {
	return models.DurationProposal{
		Question:        "How long would you like to work right now? I can suggest 15, 25, or 35 minutes based on how you're feeling.",
		DurationOptions: []int{15, 25, 35},
		Reasoning:       "Adaptive options for current state",
	}
}

// StateCheck interprets a dynamic state check reply. A conversational reply
// with no JSON becomes the assistant response verbatim, with no adaptation.
// A reply whose JSON cannot be used is never surfaced to the user; it
// degrades to the default instead.
func StateCheck(raw string) (models.StateCheckDecision, Source) {
	span, found, ok := objectSpan(raw)
	if ok {
		var d models.StateCheckDecision
		if json.Unmarshal([]byte(span), &d) == nil && d.AIResponse != "" {
			return d, SourceParsed
		}
	}
	if !found && strings.TrimSpace(raw) != "" {
		return models.StateCheckDecision{
			EmotionalStateDetected: models.EmotionalStateNeutral,
			NeedsAdaptation:        false,
			SuggestedAction:        models.ActionContinue,
			AIResponse:             raw,
			Reasoning:              "Continuing with current approach",
		}, SourceFallback
	}
	return DefaultStateCheck(), SourceDefault
}

// DefaultStateCheck is the fixed state check decision used when the model
// reply is unusable or the gateway is unreachable.
func DefaultStateCheck() models.StateCheckDecision {
	return models.StateCheckDecision{
		EmotionalStateDetected: models.EmotionalStateNeutral,
		NeedsAdaptation:        false,
		SuggestedAction:        models.ActionContinue,
		AIResponse:             "I'm here to help! How are you feeling about your current work?",
		Reasoning:              "Standard supportive response",
	}
}

// BreakDecision interprets a break decision reply. The parsed tier requires
// both a check-in question and at least one break option.
func BreakDecision(raw string) (models.BreakDecision, Source) {
	span, found, ok := objectSpan(raw)
	if ok {
		var d models.BreakDecision
		if json.Unmarshal([]byte(span), &d) == nil && d.CheckInQuestion != "" && len(d.BreakOptions) > 0 {
			return d, SourceParsed
		}
	}
	if !found && strings.TrimSpace(raw) != "" {
		return models.BreakDecision{
			CheckInQuestion:    "How did that work session go? What kind of break feels right?",
			BreakOptions:       []int{10, 20, 30},
			OptionDescriptions: []string{"Quick break", "Standard break", "Longer break"},
			Reasoning:          "Flexible break options",
		}, SourceFallback
	}
	return DefaultBreakDecision(), SourceDefault
}

// DefaultBreakDecision is the fixed break decision used when the model reply
// is unusable or the gateway is unreachable.
func DefaultBreakDecision() models.BreakDecision {
	return models.BreakDecision{
		CheckInQuestion:    "How are you feeling after that work block?",
		BreakOptions:       []int{10, 15, 20},
		OptionDescriptions: []string{"Quick", "Medium", "Long"},
		Reasoning:          "Standard options",
	}
}

// DayPlan interprets a morning analysis reply. Parsed values overlay the
// default plan so that keys the model omits keep their moderate defaults.
// Without JSON, keyword heuristics adjust the default plan; without keywords
// the default plan itself is returned.
func DayPlan(raw string) (models.DayPlan, Source) {
	span, found, ok := objectSpan(raw)
	if ok {
		plan := models.DefaultDayPlan()
		if json.Unmarshal([]byte(span), &plan) == nil && hasDayPlanKey(span) {
			return plan, SourceParsed
		}
	}
	if !found {
		if plan, matched := keywordDayPlan(raw); matched {
			return plan, SourceFallback
		}
	}
	return models.DefaultDayPlan(), SourceDefault
}

// keywordDayPlan adjusts the default plan from keywords in the raw text.
// First match wins.
func keywordDayPlan(raw string) (models.DayPlan, bool) {
	plan := models.DefaultDayPlan()
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "overwhelmed") || strings.Contains(lower, "too much"):
		plan.EmotionalState = models.EmotionalStateOverwhelmed
		plan.RecommendedBlockLength = 25
		plan.MaxWorkBlocks = 3
	case strings.Contains(lower, "tired") || strings.Contains(lower, "exhausted"):
		plan.EmotionalState = models.EmotionalStateExhausted
		plan.RecommendedBlockLength = 35
		plan.MaxWorkBlocks = 3
	case strings.Contains(lower, "energized") || strings.Contains(lower, "motivated"):
		plan.EmotionalState = models.EmotionalStateEnergized
		plan.RecommendedBlockLength = 45
		plan.MaxWorkBlocks = 4
	default:
		return plan, false
	}
	return plan, true
}

// dayPlanKeys are the JSON keys a morning analysis object may carry. A span
// mentioning none of them decodes to an empty overlay and is not treated as
// a parse. Matching is case-insensitive: the analysis prompt names the keys
// in uppercase and models echo either form.
var dayPlanKeys = []string{
	"emotional_state",
	"energy_level",
	"task_count",
	"task_complexity",
	"stress_indicators",
	"hyperfocus_risk",
	"recommended_block_length",
	"recommended_break_length",
	"max_work_blocks",
	"intervention_sensitivity",
}

func hasDayPlanKey(span string) bool {
	var obj map[string]json.RawMessage
	if json.Unmarshal([]byte(span), &obj) != nil {
		return false
	}
	for key := range obj {
		for _, want := range dayPlanKeys {
			if strings.EqualFold(key, want) {
				return true
			}
		}
	}
	return false
}

// ---- Span extraction ----

// objectSpan locates the first balanced {...} span in raw and returns it as
// valid JSON, running it through jsonrepair when it is almost-JSON (single
// quotes, trailing commas, unquoted keys). found reports whether any span
// exists at all; ok whether the returned span is valid JSON.
func objectSpan(raw string) (span string, found, ok bool) {
	span, found = extractSpan(raw)
	if !found {
		return "", false, false
	}
	if json.Valid([]byte(span)) {
		return span, true, true
	}
	repaired, err := jsonrepair.JSONRepair(span)
	if err != nil || !json.Valid([]byte(repaired)) {
		return "", true, false
	}
	return repaired, true, true
}

// extractSpan scans raw for the first '{' and returns the substring through
// its matching '}'. Braces inside string literals do not count toward depth.
func extractSpan(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}
