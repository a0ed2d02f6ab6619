// Package voice implements spoken conversations: a voice-tuned reply
// service, speech-friendly text shaping, the synthesizable voice catalog,
// and the WebSocket session protocol that ties transcription, replies, and
// synthesis together.
package voice

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/FocusLoopHQ/FocusLoop/internal/genai"
	"github.com/openai/openai-go"
)

// Sampling parameters for voice replies. Responses stay short so synthesis
// and playback keep up with the conversation.
const (
	voiceTemperature = 0.7
	voiceMaxTokens   = 200
)

// historyMessages is how many trailing conversation messages are replayed
// into the model context.
const historyMessages = 6

// Spoken-reply clamps applied before synthesis.
const (
	maxSpokenChars     = 300
	maxSpokenSentences = 2
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// preWrittenOpening starts a fresh conversation without a gateway round
// trip, keeping time-to-first-word low.
const preWrittenOpening = "Hi there! I'm your AI assistant here to help you plan and organize your day. How are you feeling right now, and what's the most important thing on your mind?"

// continuationSignal asks the model for a contextual follow-up rather than
// an answer to new input.
const continuationSignal = "[CONTINUE_CONVERSATION]"

// continuationFallback greets a resumed conversation when the gateway is
// unreachable.
const continuationFallback = "What would you like to focus on next?"

const voiceSystemPrompt = `You are an AI executive function assistant for someone with ADHD.

VOICE MODE GUIDELINES:
- Keep responses under 50 words when possible
- Speak naturally and conversationally
- Use simple, clear language
- Ask ONE question at a time
- Be supportive and understanding
- Help with planning, focus, and emotional regulation
- If they seem overwhelmed, simplify your approach
- For work planning, suggest specific time blocks (25, 35, or 45 minutes)
- Always end with a clear next step or question

This is a voice conversation, so be concise but warm.`

// Turn is one message in a voice conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Service produces voice-tuned assistant replies.
type Service struct {
	gen genai.ClientInterface
}

// NewService creates a voice service backed by the given gateway.
func NewService(gen genai.ClientInterface) *Service {
	return &Service{gen: gen}
}

// Respond answers transcribed or typed input with the trailing conversation
// replayed as context, shaped for speech synthesis. When the gateway is
// unreachable a keyword fallback keeps the conversation moving.
func (s *Service) Respond(ctx context.Context, userInput string, history []Turn) string {
	raw, err := s.gen.GenerateWithMessages(ctx, buildMessages(userInput, history),
		genai.WithTemperature(voiceTemperature), genai.WithMaxTokens(voiceMaxTokens))
	if err != nil {
		slog.Warn("VoiceService.Respond: gateway unavailable, using fallback reply", "error", err)
		return fallbackVoiceReply(userInput)
	}
	return OptimizeForVoice(raw)
}

// Opening greets a session. Fresh conversations get the pre-written opener
// immediately; resumed ones ask the model for a contextual follow-up,
// degrading to a canned continuation when the gateway is down.
func (s *Service) Opening(ctx context.Context, history []Turn) string {
	if len(history) == 0 {
		return preWrittenOpening
	}
	raw, err := s.gen.GenerateWithMessages(ctx, buildMessages(continuationSignal, history),
		genai.WithTemperature(voiceTemperature), genai.WithMaxTokens(voiceMaxTokens))
	if err != nil {
		slog.Warn("VoiceService.Opening: gateway unavailable, using canned continuation", "error", err)
		return continuationFallback
	}
	return OptimizeForVoice(raw)
}

func buildMessages(userInput string, history []Turn) []openai.ChatCompletionMessageParamUnion {
	recent := history
	if len(recent) > historyMessages {
		recent = recent[len(recent)-historyMessages:]
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(recent)+2)
	messages = append(messages, openai.SystemMessage(voiceSystemPrompt))
	for _, turn := range recent {
		switch turn.Role {
		case RoleUser:
			messages = append(messages, openai.UserMessage(turn.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		}
	}
	return append(messages, openai.UserMessage(userInput))
}

// abbreviations expands shorthand the TTS models stumble over.
var abbreviations = strings.NewReplacer(
	"etc.", "and so on",
	"e.g.", "for example",
	"i.e.", "that is",
	"vs.", "versus",
	"&", "and",
)

// OptimizeForVoice shapes a reply for natural speech synthesis: markdown
// markers are stripped, newlines become pauses, abbreviations are spoken in
// full, and anything past two sentences of a long reply is dropped.
func OptimizeForVoice(text string) string {
	optimized := strings.ReplaceAll(text, "**", "")
	optimized = strings.ReplaceAll(optimized, "*", "")
	optimized = strings.ReplaceAll(optimized, "_", "")
	optimized = strings.ReplaceAll(optimized, "\n", ". ")
	optimized = abbreviations.Replace(optimized)

	if optimized != "" && !strings.HasSuffix(optimized, ".") && !strings.HasSuffix(optimized, "!") && !strings.HasSuffix(optimized, "?") {
		optimized += "."
	}

	if utf8.RuneCountInString(optimized) > maxSpokenChars {
		sentences := strings.Split(optimized, ". ")
		if len(sentences) > maxSpokenSentences {
			sentences = sentences[:maxSpokenSentences]
		}
		optimized = strings.Join(sentences, ". ") + "."
	}
	return strings.TrimSpace(optimized)
}

// fallbackVoiceReply answers from a keyword table when the gateway is down.
// The first matching group wins.
func fallbackVoiceReply(userInput string) string {
	lower := strings.ToLower(userInput)
	switch {
	case containsAny(lower, "help", "planning", "plan"):
		return "I'd love to help you plan your day. What's the most important thing you want to focus on right now?"
	case containsAny(lower, "overwhelmed", "stressed", "too much"):
		return "It sounds like you're feeling overwhelmed. Let's take this one step at a time. What's one small thing you could do right now?"
	case containsAny(lower, "tired", "exhausted", "low energy"):
		return "When you're feeling tired, shorter work blocks can be really helpful. Would you like to try a gentle 25-minute session?"
	case containsAny(lower, "focused", "ready", "good", "energized"):
		return "That's great to hear! When you're feeling focused, you might want to try a longer 45-minute work block. What would you like to work on?"
	case containsAny(lower, "break", "rest", "pause"):
		return "Taking breaks is so important for ADHD brains. What kind of break sounds good to you right now?"
	default:
		return "I hear you. Can you tell me more about what's on your mind or what you'd like to work on today?"
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
