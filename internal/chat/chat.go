// Package chat implements the lightweight companion chat: short, casual
// replies with a few recent exchanges replayed as context, a keyword
// fallback for gateway outages, and a durable exchange history.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/FocusLoopHQ/FocusLoop/internal/genai"
	"github.com/FocusLoopHQ/FocusLoop/internal/models"
	"github.com/FocusLoopHQ/FocusLoop/internal/store"
	"github.com/openai/openai-go"
)

// Sampling parameters for companion chat. The temperature runs higher than
// the planning calls so replies stay casual, and the token cap keeps them
// short.
const (
	chatTemperature = 0.9
	chatMaxTokens   = 150
)

// historyTurns is how many past exchanges are replayed into the model
// context.
const historyTurns = 6

// Display clamps applied to every reply.
const (
	maxReplyChars      = 800
	maxReplyParagraphs = 3
)

// defaultHistoryLimit caps History when the caller passes no limit.
const defaultHistoryLimit = 50

const chatSystemPrompt = `You are a helpful ADHD buddy chatting over coffee. Keep it super casual and short.

CHAT STYLE:
- Keep responses under 2-3 sentences max
- Talk like a supportive friend, not a formal assistant
- No bullet points or structured lists
- Be warm, understanding, but brief
- Ask ONE simple question to keep the conversation going
- Use casual language and contractions (you're, let's, I'd, etc.)
- If they need planning help, suggest ONE thing at a time

Remember: Short, friendly, conversational - like texting a good friend who gets ADHD.`

// Service answers companion chat messages and keeps the durable exchange
// history.
type Service struct {
	gen genai.ClientInterface
	st  store.Store
}

// NewService creates a chat service backed by the given gateway and store.
func NewService(gen genai.ClientInterface, st store.Store) *Service {
	return &Service{gen: gen, st: st}
}

// Reply is the outcome of one chat exchange. Fallback marks replies produced
// by the keyword table instead of the gateway.
type Reply struct {
	Text      string    `json:"reply"`
	Fallback  bool      `json:"fallback"`
	CreatedAt time.Time `json:"created_at"`
}

// SendMessage answers a chat message. The last few exchanges are replayed
// oldest first as conversation context; when the gateway is unreachable a
// keyword fallback keeps the conversation alive. The exchange is recorded
// either way, so a degraded reply still shows up in later context.
func (s *Service) SendMessage(ctx context.Context, userID, message string) *Reply {
	history, err := s.st.QueryRecentChatInteractions(userID, historyTurns)
	if err != nil {
		slog.Warn("ChatService.SendMessage: failed to load history", "userID", userID, "error", err)
		history = nil
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2*len(history)+2)
	messages = append(messages, openai.SystemMessage(chatSystemPrompt))
	for i := len(history) - 1; i >= 0; i-- {
		messages = append(messages, openai.UserMessage(history[i].UserMessage))
		messages = append(messages, openai.AssistantMessage(history[i].Reply))
	}
	messages = append(messages, openai.UserMessage(message))

	reply := &Reply{CreatedAt: time.Now().UTC()}
	raw, err := s.gen.GenerateWithMessages(ctx, messages,
		genai.WithTemperature(chatTemperature), genai.WithMaxTokens(chatMaxTokens))
	if err != nil {
		slog.Warn("ChatService.SendMessage: gateway unavailable, using fallback reply", "userID", userID, "error", err)
		reply.Text = fallbackReply(message)
		reply.Fallback = true
	} else {
		reply.Text = OptimizeForChat(raw)
	}

	entry := models.ChatInteraction{
		UserID:      userID,
		UserMessage: message,
		Reply:       reply.Text,
		CreatedAt:   reply.CreatedAt,
	}
	if err := s.st.SaveChatInteraction(entry); err != nil {
		slog.Warn("ChatService.SendMessage: failed to record exchange", "userID", userID, "error", err)
	}

	slog.Info("ChatService.SendMessage: replied", "userID", userID, "fallback", reply.Fallback)
	return reply
}

// History returns the user's most recent chat exchanges, newest first.
func (s *Service) History(userID string, limit int) ([]models.ChatInteraction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.st.QueryRecentChatInteractions(userID, limit)
}

// OptimizeForChat cleans up a model reply for text display: trims
// whitespace, collapses triple blank lines, and clamps long replies to the
// first few paragraphs with an ellipsis when the cut lands mid-thought.
func OptimizeForChat(text string) string {
	optimized := strings.TrimSpace(text)
	optimized = strings.ReplaceAll(optimized, "\n\n\n", "\n\n")

	if utf8.RuneCountInString(optimized) > maxReplyChars {
		paragraphs := strings.Split(optimized, "\n\n")
		if len(paragraphs) > maxReplyParagraphs {
			paragraphs = paragraphs[:maxReplyParagraphs]
		}
		optimized = strings.Join(paragraphs, "\n\n")
		if !strings.HasSuffix(optimized, ".") && !strings.HasSuffix(optimized, "!") && !strings.HasSuffix(optimized, "?") {
			optimized += "..."
		}
	}
	return strings.TrimSpace(optimized)
}

// fallbackReply answers from a keyword table when the gateway is down. The
// first matching group wins.
func fallbackReply(message string) string {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, "help", "planning", "plan", "schedule"):
		return "I'd love to help you plan! What's the main thing you want to tackle today?"
	case containsAny(lower, "overwhelmed", "stressed", "too much", "anxious"):
		return "That sounds really tough. Let's just pick one small thing to start with - what feels manageable right now?"
	case containsAny(lower, "tired", "exhausted", "low energy", "drained"):
		return "When you're feeling low energy, shorter chunks work better. Maybe try just 20-25 minutes on something easy?"
	case containsAny(lower, "focused", "ready", "good", "energized", "motivated"):
		return "Nice! Sounds like you're in a good headspace. What do you want to dive into?"
	case containsAny(lower, "break", "rest", "pause", "stop"):
		return "Good call on taking a break! What sounds good - a quick walk, some music, or just chill for a bit?"
	case containsAny(lower, "thanks", "thank you", "helpful"):
		return "You're welcome! How else can I help?"
	default:
		return "What's on your mind? I'm here to help with whatever you're working on."
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
