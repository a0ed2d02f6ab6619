package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/openai/openai-go"

	"github.com/FocusLoopHQ/FocusLoop/internal/genai"
)

// stubGateway scripts gateway replies. A set err fails every call.
type stubGateway struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (g *stubGateway) next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *stubGateway) GeneratePrompt(systemPrompt, userPrompt string, opts ...genai.GenOption) (string, error) {
	return g.next()
}

func (g *stubGateway) GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string, opts ...genai.GenOption) (string, error) {
	return g.next()
}

func (g *stubGateway) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, opts ...genai.GenOption) (string, error) {
	return g.next()
}

func (g *stubGateway) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return g.next()
}

func (g *stubGateway) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	reply, err := g.next()
	if err != nil {
		return nil, err
	}
	return []byte(reply), nil
}

func TestOptimizeForVoice(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips markdown",
			in:   "Try a **25-minute** block on _your_ *report*",
			want: "Try a 25-minute block on your report.",
		},
		{
			name: "newlines become pauses",
			in:   "First step\nSecond step",
			want: "First step. Second step.",
		},
		{
			name: "expands abbreviations",
			in:   "Work on the report, e.g. the intro & the summary",
			want: "Work on the report, for example the intro and the summary.",
		},
		{
			name: "keeps terminal punctuation",
			in:   "Ready to start?",
			want: "Ready to start?",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := OptimizeForVoice(tc.in); got != tc.want {
				t.Errorf("OptimizeForVoice(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestOptimizeForVoice_ClampsLongReplies(t *testing.T) {
	long := strings.Repeat("This is a fairly long sentence about planning the day. ", 12)
	got := OptimizeForVoice(long)
	if n := strings.Count(got, "."); n > maxSpokenSentences {
		t.Errorf("expected at most %d sentences, got %d in %q", maxSpokenSentences, n, got)
	}
	if utf8.RuneCountInString(got) > maxSpokenChars {
		t.Errorf("expected at most %d chars, got %d", maxSpokenChars, utf8.RuneCountInString(got))
	}
}

func TestRespond_UsesGatewayReply(t *testing.T) {
	gw := &stubGateway{reply: "Let's start with a 25-minute block"}
	svc := NewService(gw)

	got := svc.Respond(context.Background(), "help me plan", nil)
	if got != "Let's start with a 25-minute block." {
		t.Errorf("unexpected reply: %q", got)
	}
}

func TestRespond_FallbackWhenGatewayDown(t *testing.T) {
	gw := &stubGateway{err: errors.New("connection refused")}
	svc := NewService(gw)

	got := svc.Respond(context.Background(), "I'm so overwhelmed right now", nil)
	if !strings.Contains(got, "one step at a time") {
		t.Errorf("expected overwhelmed fallback, got %q", got)
	}

	got = svc.Respond(context.Background(), "something else entirely", nil)
	if !strings.Contains(got, "tell me more") {
		t.Errorf("expected default fallback, got %q", got)
	}
}

func TestOpening(t *testing.T) {
	gw := &stubGateway{reply: "Welcome back! Ready for the next block?"}
	svc := NewService(gw)

	// Fresh sessions get the pre-written opener without a gateway call.
	got := svc.Opening(context.Background(), nil)
	if got != preWrittenOpening {
		t.Errorf("expected pre-written opening, got %q", got)
	}
	if gw.calls != 0 {
		t.Errorf("expected no gateway calls for a fresh session, got %d", gw.calls)
	}

	// Resumed sessions ask the model for a continuation.
	history := []Turn{{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "hello"}}
	got = svc.Opening(context.Background(), history)
	if got != "Welcome back! Ready for the next block?" {
		t.Errorf("unexpected continuation: %q", got)
	}

	// Gateway failure on a resumed session degrades to the canned line.
	gw.err = errors.New("connection refused")
	got = svc.Opening(context.Background(), history)
	if got != continuationFallback {
		t.Errorf("expected canned continuation, got %q", got)
	}
}

func TestVoiceCatalog(t *testing.T) {
	cat := AvailableVoices()
	if cat.Default != DefaultVoiceID {
		t.Errorf("expected default %s, got %s", DefaultVoiceID, cat.Default)
	}
	if len(cat.Voices[ModelPlayAI]) != 19 {
		t.Errorf("expected 19 English voices, got %d", len(cat.Voices[ModelPlayAI]))
	}
	if len(cat.Voices[ModelPlayAIArabic]) != 4 {
		t.Errorf("expected 4 Arabic voices, got %d", len(cat.Voices[ModelPlayAIArabic]))
	}

	if !IsKnownVoice(DefaultVoiceID) {
		t.Error("default voice should be in the catalog")
	}
	if IsKnownVoice("Nobody-PlayAI") {
		t.Error("unknown voice should not be in the catalog")
	}

	if got := RecommendVoice("energetic"); got != "Cheyenne-PlayAI" {
		t.Errorf("expected Cheyenne-PlayAI for energetic, got %s", got)
	}
	if got := RecommendVoice("unknown-preference"); got != DefaultVoiceID {
		t.Errorf("expected default for unknown preference, got %s", got)
	}
}
