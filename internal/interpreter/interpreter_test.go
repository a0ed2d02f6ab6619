package interpreter

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

func TestPlanningDecision_ParsedQuestion(t *testing.T) {
	raw := `Sure, let me ask one more thing.
{"type": "question", "content": "Which task feels most urgent?", "needs_user_input": true}`

	d, src := PlanningDecision(raw)
	if src != SourceParsed {
		t.Fatalf("expected parsed source, got %q", src)
	}
	if d.Type != models.PlanningDecisionQuestion {
		t.Errorf("expected question type, got %q", d.Type)
	}
	if d.Content != "Which task feels most urgent?" {
		t.Errorf("unexpected content: %q", d.Content)
	}
	if !d.NeedsUserInput {
		t.Error("expected needs_user_input true")
	}
}

func TestPlanningDecision_ParsedSchedule(t *testing.T) {
	raw := `{"type": "schedule", "content": "Here is your plan for today.", "needs_user_input": false, "schedule": {"blocks": 3}}`

	d, src := PlanningDecision(raw)
	if src != SourceParsed {
		t.Fatalf("expected parsed source, got %q", src)
	}
	if d.Type != models.PlanningDecisionSchedule {
		t.Errorf("expected schedule type, got %q", d.Type)
	}
	if d.NeedsUserInput {
		t.Error("expected needs_user_input false")
	}
	if d.Schedule["blocks"] != float64(3) {
		t.Errorf("expected schedule blocks 3, got %v", d.Schedule["blocks"])
	}
}

func TestPlanningDecision_RawTextBecomesQuestion(t *testing.T) {
	raw := "That sounds like a lot. What would feel like a good first step?"

	d, src := PlanningDecision(raw)
	if src != SourceFallback {
		t.Fatalf("expected fallback source, got %q", src)
	}
	if d.Type != models.PlanningDecisionQuestion {
		t.Errorf("expected question type, got %q", d.Type)
	}
	if d.Content != raw {
		t.Errorf("expected raw text as content, got %q", d.Content)
	}
	if !d.NeedsUserInput {
		t.Error("expected needs_user_input true")
	}
}

func TestPlanningDecision_UnusableJSONBecomesQuestion(t *testing.T) {
	// A parseable object with neither type nor content carries nothing to
	// act on; the whole reply is surfaced as a question instead.
	raw := `{"confidence": 0.4} Let me know what you think.`

	d, src := PlanningDecision(raw)
	if src != SourceFallback {
		t.Fatalf("expected fallback source, got %q", src)
	}
	if d.Content != raw {
		t.Errorf("expected raw text as content, got %q", d.Content)
	}
}

func TestPlanningDecision_RepairedJSON(t *testing.T) {
	raw := `{'type': 'question', 'content': 'What should we tackle first?', 'needs_user_input': true,}`

	d, src := PlanningDecision(raw)
	if src != SourceParsed {
		t.Fatalf("expected parsed source after repair, got %q", src)
	}
	if d.Content != "What should we tackle first?" {
		t.Errorf("unexpected content: %q", d.Content)
	}
}

func TestPlanningDecision_EmptyReplyDefault(t *testing.T) {
	d, src := PlanningDecision("")
	if src != SourceDefault {
		t.Fatalf("expected default source, got %q", src)
	}
	if !reflect.DeepEqual(d, DefaultPlanningDecision()) {
		t.Errorf("expected default planning decision, got %+v", d)
	}
}

func TestDurationProposal_Parsed(t *testing.T) {
	raw := `Here you go:
{"question": "Feeling fresh - want to go 25, 40, or 55 minutes?", "duration_options": [25, 40, 55], "reasoning": "High energy this morning"}`

	d, src := DurationProposal(raw)
	if src != SourceParsed {
		t.Fatalf("expected parsed source, got %q", src)
	}
	if !reflect.DeepEqual(d.DurationOptions, []int{25, 40, 55}) {
		t.Errorf("unexpected options: %v", d.DurationOptions)
	}
	if d.Question == "" || d.Reasoning == "" {
		t.Errorf("expected question and reasoning, got %+v", d)
	}
}

func TestDurationProposal_NoJSONFallback(t *testing.T) {
	d, src := DurationProposal("You could try a medium-length session today.")
	if src != SourceFallback {
		t.Fatalf("expected fallback source, got %q", src)
	}
	if !reflect.DeepEqual(d.DurationOptions, []int{20, 30, 40}) {
		t.Errorf("expected fallback triple, got %v", d.DurationOptions)
	}
	if d.Question != "How long would you like to work? Would you prefer 20, 30, or 40 minutes?" {
		t.Errorf("unexpected fallback question: %q", d.Question)
	}
}

func TestDurationProposal_UnusableJSONDefault(t *testing.T) {
	// JSON without options never reaches the user as-is.
	d, src := DurationProposal(`{"question": "How long?"}`)
	if src != SourceDefault {
		t.Fatalf("expected default source, got %q", src)
	}
	if !reflect.DeepEqual(d, DefaultDurationProposal()) {
		t.Errorf("expected default proposal, got %+v", d)
	}
}

func TestDurationProposal_EmptyReplyDefault(t *testing.T) {
	first, src := DurationProposal("")
	if src != SourceDefault {
		t.Fatalf("expected default source, got %q", src)
	}
	second, _ := DurationProposal("")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("default proposal not stable: %+v vs %+v", first, second)
	}
	if !reflect.DeepEqual(first.DurationOptions, []int{15, 25, 35}) {
		t.Errorf("expected default triple, got %v", first.DurationOptions)
	}
}

func TestStateCheck_Parsed(t *testing.T) {
	raw := `{"emotional_state_detected": "frustrated", "needs_adaptation": true, "suggested_action": "shorten_block", "ai_response": "Let's wrap this block up a little sooner.", "reasoning": "Frustration is building"}`

	d, src := StateCheck(raw)
	if src != SourceParsed {
		t.Fatalf("expected parsed source, got %q", src)
	}
	if d.EmotionalStateDetected != models.EmotionalStateFrustrated {
		t.Errorf("expected frustrated, got %q", d.EmotionalStateDetected)
	}
	if !d.NeedsAdaptation {
		t.Error("expected needs_adaptation true")
	}
	if d.SuggestedAction != models.ActionShortenBlock {
		t.Errorf("expected shorten_block, got %q", d.SuggestedAction)
	}
}

func TestStateCheck_ConversationalReplyFallback(t *testing.T) {
	raw := "You're doing great! Keep going, you've got this."

	d, src := StateCheck(raw)
	if src != SourceFallback {
		t.Fatalf("expected fallback source, got %q", src)
	}
	if d.AIResponse != raw {
		t.Errorf("expected raw reply as response, got %q", d.AIResponse)
	}
	if d.EmotionalStateDetected != models.EmotionalStateNeutral || d.SuggestedAction != models.ActionContinue {
		t.Errorf("expected neutral/continue, got %q/%q", d.EmotionalStateDetected, d.SuggestedAction)
	}
	if d.NeedsAdaptation {
		t.Error("expected needs_adaptation false")
	}
}

func TestStateCheck_BrokenJSONNeverSurfaced(t *testing.T) {
	// A reply that tried and failed to be JSON must not be echoed back at
	// the user as the assistant response.
	d, src := StateCheck(`{"emotional_state_detected": "frustrated", "ai_response": }`)
	if src != SourceDefault {
		t.Fatalf("expected default source, got %q", src)
	}
	if d.AIResponse != "I'm here to help! How are you feeling about your current work?" {
		t.Errorf("unexpected default response: %q", d.AIResponse)
	}
}

func TestStateCheck_RoundTrip(t *testing.T) {
	first, src := StateCheck(`{"emotional_state_detected": "overwhelmed", "needs_adaptation": true, "suggested_action": "end_early", "ai_response": "Let's call it here.", "reasoning": "Too much at once"}`)
	if src != SourceParsed {
		t.Fatalf("expected parsed source, got %q", src)
	}

	serialized, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("failed to marshal decision: %v", err)
	}
	second, src := StateCheck(string(serialized))
	if src != SourceParsed {
		t.Fatalf("expected parsed source on round trip, got %q", src)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("round trip changed decision: %+v vs %+v", first, second)
	}
}

func TestBreakDecision_Parsed(t *testing.T) {
	raw := `{"check_in_question": "How did that session feel?", "break_options": [5, 15, 25], "option_descriptions": ["Quick breather", "Standard break", "Longer rest"], "reasoning": "Long block, likely tired"}`

	d, src := BreakDecision(raw)
	if src != SourceParsed {
		t.Fatalf("expected parsed source, got %q", src)
	}
	if !reflect.DeepEqual(d.BreakOptions, []int{5, 15, 25}) {
		t.Errorf("unexpected options: %v", d.BreakOptions)
	}
	if len(d.OptionDescriptions) != 3 {
		t.Errorf("expected 3 descriptions, got %v", d.OptionDescriptions)
	}
}

func TestBreakDecision_NoJSONFallback(t *testing.T) {
	d, src := BreakDecision("Nice work on that block! A break sounds good.")
	if src != SourceFallback {
		t.Fatalf("expected fallback source, got %q", src)
	}
	if !reflect.DeepEqual(d.BreakOptions, []int{10, 20, 30}) {
		t.Errorf("expected fallback options, got %v", d.BreakOptions)
	}
	if d.CheckInQuestion != "How did that work session go? What kind of break feels right?" {
		t.Errorf("unexpected fallback question: %q", d.CheckInQuestion)
	}
}

func TestBreakDecision_EmptyReplyDefault(t *testing.T) {
	d, src := BreakDecision("")
	if src != SourceDefault {
		t.Fatalf("expected default source, got %q", src)
	}
	if !reflect.DeepEqual(d, DefaultBreakDecision()) {
		t.Errorf("expected default break decision, got %+v", d)
	}
	if !reflect.DeepEqual(d.BreakOptions, []int{10, 15, 20}) {
		t.Errorf("expected default options, got %v", d.BreakOptions)
	}
}

func TestDayPlan_ParsedOverlaysDefaults(t *testing.T) {
	raw := `Analysis: {"emotional_state": "energized", "recommended_block_length": 45, "max_work_blocks": 5}`

	plan, src := DayPlan(raw)
	if src != SourceParsed {
		t.Fatalf("expected parsed source, got %q", src)
	}
	if plan.EmotionalState != models.EmotionalStateEnergized {
		t.Errorf("expected energized, got %q", plan.EmotionalState)
	}
	if plan.RecommendedBlockLength != 45 || plan.MaxWorkBlocks != 5 {
		t.Errorf("expected 45/5, got %d/%d", plan.RecommendedBlockLength, plan.MaxWorkBlocks)
	}
	// Keys the model omitted keep their defaults.
	if plan.RecommendedBreakLength != 15 || plan.EnergyLevel != "medium" {
		t.Errorf("expected default break/energy, got %d/%q", plan.RecommendedBreakLength, plan.EnergyLevel)
	}
}

func TestDayPlan_UppercaseKeysParse(t *testing.T) {
	raw := `{"EMOTIONAL_STATE": "overwhelmed", "RECOMMENDED_BLOCK_LENGTH": 25, "MAX_WORK_BLOCKS": 3}`

	plan, src := DayPlan(raw)
	if src != SourceParsed {
		t.Fatalf("expected parsed source, got %q", src)
	}
	if plan.EmotionalState != models.EmotionalStateOverwhelmed {
		t.Errorf("expected overwhelmed, got %q", plan.EmotionalState)
	}
	if plan.RecommendedBlockLength != 25 || plan.MaxWorkBlocks != 3 {
		t.Errorf("expected 25/3, got %d/%d", plan.RecommendedBlockLength, plan.MaxWorkBlocks)
	}
}

func TestDayPlan_KeywordFallbacks(t *testing.T) {
	cases := []struct {
		name        string
		raw         string
		state       models.EmotionalState
		blockLength int
		maxBlocks   int
	}{
		{"overwhelmed", "Honestly it all feels like too much today.", models.EmotionalStateOverwhelmed, 25, 3},
		{"tired", "I'm pretty tired after a rough night.", models.EmotionalStateExhausted, 35, 3},
		{"energized", "Feeling really motivated to get going!", models.EmotionalStateEnergized, 45, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, src := DayPlan(tc.raw)
			if src != SourceFallback {
				t.Fatalf("expected fallback source, got %q", src)
			}
			if plan.EmotionalState != tc.state {
				t.Errorf("expected %q, got %q", tc.state, plan.EmotionalState)
			}
			if plan.RecommendedBlockLength != tc.blockLength || plan.MaxWorkBlocks != tc.maxBlocks {
				t.Errorf("expected %d/%d, got %d/%d", tc.blockLength, tc.maxBlocks, plan.RecommendedBlockLength, plan.MaxWorkBlocks)
			}
		})
	}
}

func TestDayPlan_OverwhelmedWinsOverEnergized(t *testing.T) {
	plan, src := DayPlan("I woke up energized but now it feels overwhelmed-levels of busy.")
	if src != SourceFallback {
		t.Fatalf("expected fallback source, got %q", src)
	}
	if plan.EmotionalState != models.EmotionalStateOverwhelmed {
		t.Errorf("expected overwhelmed to win, got %q", plan.EmotionalState)
	}
}

func TestDayPlan_GarbageIdempotentDefault(t *testing.T) {
	first, src := DayPlan("lorem ipsum, nothing structured here")
	if src != SourceDefault {
		t.Fatalf("expected default source, got %q", src)
	}
	second, _ := DayPlan("lorem ipsum, nothing structured here")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("default plan not stable: %+v vs %+v", first, second)
	}
	if !reflect.DeepEqual(first, models.DefaultDayPlan()) {
		t.Errorf("expected default day plan, got %+v", first)
	}
}

func TestDayPlan_UnknownKeysOnlyDefault(t *testing.T) {
	plan, src := DayPlan(`{"mood": "fine", "notes": "slept ok"}`)
	if src != SourceDefault {
		t.Fatalf("expected default source, got %q", src)
	}
	if !reflect.DeepEqual(plan, models.DefaultDayPlan()) {
		t.Errorf("expected default day plan, got %+v", plan)
	}
}

func TestExtractSpan(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		span  string
		found bool
	}{
		{"nested objects", `pre {"a": {"b": 1}, "c": 2} post`, `{"a": {"b": 1}, "c": 2}`, true},
		{"braces inside strings", `{"content": "use {curly} braces"}`, `{"content": "use {curly} braces"}`, true},
		{"escaped quote", `{"content": "she said \"hi\""}`, `{"content": "she said \"hi\""}`, true},
		{"first span wins", `{"a": 1} {"b": 2}`, `{"a": 1}`, true},
		{"no opening brace", "plain text", "", false},
		{"never closed", `{"a": 1`, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			span, found := extractSpan(tc.raw)
			if found != tc.found {
				t.Fatalf("expected found=%v, got %v", tc.found, found)
			}
			if span != tc.span {
				t.Errorf("expected span %q, got %q", tc.span, span)
			}
		})
	}
}
