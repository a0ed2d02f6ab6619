package interpreter

import (
	"reflect"
	"testing"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

func TestDetection_Parsed(t *testing.T) {
	raw := `{"emotional_state": "hyperfocusing", "intensity": 0.9, "intervention_needed": "immediate", "suggested_response": "Time for a real break."}`

	d, src := Detection(raw)
	if src != SourceParsed {
		t.Fatalf("expected parsed source, got %q", src)
	}
	if d.State != models.EmotionalStateHyperfocusing {
		t.Errorf("expected hyperfocusing, got %q", d.State)
	}
	if d.Intensity != 0.9 {
		t.Errorf("expected intensity 0.9, got %f", d.Intensity)
	}
	if d.InterventionTier != models.InterventionTierImmediate || !d.InterventionNeeded {
		t.Errorf("expected immediate intervention, got %q/%v", d.InterventionTier, d.InterventionNeeded)
	}
	if d.SuggestedResponse != "Time for a real break." {
		t.Errorf("unexpected suggested response: %q", d.SuggestedResponse)
	}
}

func TestDetection_IntensityDefaultsWhenOmitted(t *testing.T) {
	d, src := Detection(`{"emotional_state": "focused"}`)
	if src != SourceParsed {
		t.Fatalf("expected parsed source, got %q", src)
	}
	if d.Intensity != 0.5 {
		t.Errorf("expected default intensity 0.5, got %f", d.Intensity)
	}
	if d.InterventionNeeded || d.InterventionTier != models.InterventionTierNone {
		t.Errorf("expected no intervention, got %q/%v", d.InterventionTier, d.InterventionNeeded)
	}
}

func TestDetection_IntensityClamped(t *testing.T) {
	d, _ := Detection(`{"emotional_state": "frustrated", "intensity": 1.7, "intervention_needed": "gentle"}`)
	if d.Intensity != 1.0 {
		t.Errorf("expected intensity clamped to 1.0, got %f", d.Intensity)
	}
	d, _ = Detection(`{"emotional_state": "frustrated", "intensity": -0.3, "intervention_needed": "gentle"}`)
	if d.Intensity != 0.0 {
		t.Errorf("expected intensity clamped to 0.0, got %f", d.Intensity)
	}
}

func TestDetection_OffVocabularyTierDegradesToNone(t *testing.T) {
	d, src := Detection(`{"emotional_state": "distracted", "intervention_needed": "urgent"}`)
	if src != SourceParsed {
		t.Fatalf("expected parsed source, got %q", src)
	}
	if d.InterventionNeeded || d.InterventionTier != models.InterventionTierNone {
		t.Errorf("expected tier degraded to none, got %q/%v", d.InterventionTier, d.InterventionNeeded)
	}
}

func TestDetection_UnknownLabelFallsThrough(t *testing.T) {
	// "tired" is not in the vocabulary and matches no keyword.
	d, src := Detection(`{"emotional_state": "tired"}`)
	if src != SourceDefault {
		t.Fatalf("expected default source, got %q", src)
	}
	if d.State != models.EmotionalStateNeutral {
		t.Errorf("expected neutral, got %q", d.State)
	}
}

func TestDetection_KeywordTierOnProse(t *testing.T) {
	d, src := Detection("The user sounds quite frustrated with how this is going.")
	if src != SourceFallback {
		t.Fatalf("expected fallback source, got %q", src)
	}
	if d.State != models.EmotionalStateFrustrated || d.InterventionTier != models.InterventionTierGentle {
		t.Errorf("expected frustrated/gentle, got %q/%q", d.State, d.InterventionTier)
	}
	if !d.InterventionNeeded {
		t.Error("expected intervention needed")
	}
}

func TestDetection_KeywordTable(t *testing.T) {
	cases := []struct {
		text  string
		state models.EmotionalState
		tier  models.InterventionTier
	}{
		{"I'm so frustrated I could scream", models.EmotionalStateFrustrated, models.InterventionTierGentle},
		{"this is overwhelming, too many things", models.EmotionalStateOverwhelmed, models.InterventionTierImmediate},
		{"completely exhausted after lunch", models.EmotionalStateExhausted, models.InterventionTierGentle},
		{"I've been hyperfocusing for three hours", models.EmotionalStateHyperfocusing, models.InterventionTierImmediate},
	}
	for _, tc := range cases {
		d, src := Detection(tc.text)
		if src != SourceFallback {
			t.Errorf("%q: expected fallback source, got %q", tc.text, src)
			continue
		}
		if d.State != tc.state || d.InterventionTier != tc.tier {
			t.Errorf("%q: expected %s/%s, got %s/%s", tc.text, tc.state, tc.tier, d.State, d.InterventionTier)
		}
	}
}

func TestDetection_FrustratedWinsOverOverwhelmed(t *testing.T) {
	d, _ := Detection("frustrated and overwhelmed at the same time")
	if d.State != models.EmotionalStateFrustrated {
		t.Errorf("expected frustrated to win, got %q", d.State)
	}
}

func TestDetection_GarbageIdempotentDefault(t *testing.T) {
	first, src := Detection("nothing of note here")
	if src != SourceDefault {
		t.Fatalf("expected default source, got %q", src)
	}
	second, _ := Detection("nothing of note here")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("default detection not stable: %+v vs %+v", first, second)
	}
	if !reflect.DeepEqual(first, DefaultDetection()) {
		t.Errorf("expected default detection, got %+v", first)
	}
}
