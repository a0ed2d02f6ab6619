// Package genai provides the LLM gateway used by the scheduling engine,
// the detector, and the chat and voice services.
//
// The client speaks the OpenAI chat completions protocol through the
// openai-go SDK and is pointed at Groq's OpenAI-compatible endpoint by
// default. Speech-to-text and text-to-speech ride the same gateway.
package genai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

// Defaults for the Groq gateway. Every one of them can be overridden with a
// client option.
const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.1-8b-instant"
	DefaultSTTModel    = "whisper-large-v3-turbo"
	DefaultTTSModel    = "playai-tts"
	DefaultTTSVoice    = "Calum-PlayAI"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 300

	defaultRequestTimeout = 30 * time.Second
)

// ErrNoChoicesReturned indicates the model returned an empty choice list.
var ErrNoChoicesReturned = errors.New("no choices returned")

// chatService defines minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// transcriptionService defines minimal interface for speech-to-text.
type transcriptionService interface {
	Create(ctx context.Context, params openai.AudioTranscriptionNewParams) (openai.Transcription, error)
}

// speechService defines minimal interface for text-to-speech. The SDK
// returns a raw HTTP response for speech; implementations hand back the
// audio body.
type speechService interface {
	Create(ctx context.Context, params openai.AudioSpeechNewParams) ([]byte, error)
}

// ClientInterface defines the gateway operations available to callers.
// Only generation parameters vary per call; model and credentials are fixed
// at construction.
type ClientInterface interface {
	GeneratePrompt(systemPrompt, userPrompt string, opts ...GenOption) (string, error)
	GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string, opts ...GenOption) (string, error)
	GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, opts ...GenOption) (string, error)
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// Client wraps the OpenAI-compatible gateway services.
type Client struct {
	chat          chatService
	transcription transcriptionService
	speech        speechService
	model         string
	sttModel      string
	ttsModel      string
	ttsVoice      string
	temperature   float64
	maxTokens     int64
	debugMode     bool
	stateDir      string
}

var _ ClientInterface = (*Client)(nil)

// Opts holds configuration options for the GenAI client.
type Opts struct {
	// APIKey is the gateway API key. Falls back to the GROQ_API_KEY
	// environment variable when unset.
	APIKey string
	// BaseURL is the OpenAI-compatible endpoint. Defaults to Groq.
	BaseURL string
	// Model is the chat completion model.
	Model string
	// STTModel is the speech-to-text model.
	STTModel string
	// TTSModel is the text-to-speech model.
	TTSModel string
	// TTSVoice is the default synthesis voice.
	TTSVoice string
	// Temperature is the default sampling temperature for calls that do not
	// override it.
	Temperature float64
	// MaxTokens is the default completion token cap for calls that do not
	// override it.
	MaxTokens int64
	// DebugMode enables persisting request/response pairs under StateDir.
	DebugMode bool
	// StateDir is where debug logs are written when DebugMode is on.
	StateDir string
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the gateway API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL sets the OpenAI-compatible endpoint base URL.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel sets the chat completion model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithSTTModel sets the speech-to-text model.
func WithSTTModel(model string) Option {
	return func(o *Opts) { o.STTModel = model }
}

// WithTTSModel sets the text-to-speech model.
func WithTTSModel(model string) Option {
	return func(o *Opts) { o.TTSModel = model }
}

// WithTTSVoice sets the default synthesis voice.
func WithTTSVoice(voice string) Option {
	return func(o *Opts) { o.TTSVoice = voice }
}

// WithDebugMode enables debug logging of API calls to the state directory.
func WithDebugMode(enabled bool, stateDir string) Option {
	return func(o *Opts) {
		o.DebugMode = enabled
		o.StateDir = stateDir
	}
}

// GenOpts carries per-call generation parameter overrides.
type GenOpts struct {
	Temperature float64
	MaxTokens   int64
}

// GenOption overrides a generation parameter for a single call.
type GenOption func(*GenOpts)

// WithTemperature sets the sampling temperature for one call.
func WithTemperature(t float64) GenOption {
	return func(o *GenOpts) { o.Temperature = t }
}

// WithMaxTokens sets the completion token cap for one call.
func WithMaxTokens(n int64) GenOption {
	return func(o *GenOpts) { o.MaxTokens = n }
}

// openaiChatService adapts the SDK chat completion service to chatService.
type openaiChatService struct {
	client openai.Client
}

func (s openaiChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// openaiTranscriptionService adapts the SDK transcription service.
type openaiTranscriptionService struct {
	client openai.Client
}

func (s openaiTranscriptionService) Create(ctx context.Context, params openai.AudioTranscriptionNewParams) (openai.Transcription, error) {
	resp, err := s.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return openai.Transcription{}, err
	}
	return *resp, nil
}

// openaiSpeechService adapts the SDK speech service, draining the audio body.
type openaiSpeechService struct {
	client openai.Client
}

func (s openaiSpeechService) Create(ctx context.Context, params openai.AudioSpeechNewParams) ([]byte, error) {
	res, err := s.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	return io.ReadAll(res.Body)
}

// NewClient initializes a GenAI client against the configured gateway.
// The API key is required, from options or the GROQ_API_KEY environment
// variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}
	if apiKey == "" {
		slog.Error("GenAI client API key not set")
		return nil, fmt.Errorf("GROQ_API_KEY not set")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	sttModel := cfg.STTModel
	if sttModel == "" {
		sttModel = DefaultSTTModel
	}
	ttsModel := cfg.TTSModel
	if ttsModel == "" {
		ttsModel = DefaultTTSModel
	}
	ttsVoice := cfg.TTSVoice
	if ttsVoice == "" {
		ttsVoice = DefaultTTSVoice
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	cli := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithRequestTimeout(defaultRequestTimeout),
	)

	slog.Info("GenAI client initialized", "baseURL", baseURL, "model", model, "debugMode", cfg.DebugMode)
	return &Client{
		chat:          openaiChatService{client: cli},
		transcription: openaiTranscriptionService{client: cli},
		speech:        openaiSpeechService{client: cli},
		model:         model,
		sttModel:      sttModel,
		ttsModel:      ttsModel,
		ttsVoice:      ttsVoice,
		temperature:   temperature,
		maxTokens:     maxTokens,
		debugMode:     cfg.DebugMode,
		stateDir:      cfg.StateDir,
	}, nil
}

// GeneratePrompt generates a response based on the provided system and user prompts.
func (c *Client) GeneratePrompt(systemPrompt, userPrompt string, opts ...GenOption) (string, error) {
	return c.GeneratePromptWithContext(context.Background(), systemPrompt, userPrompt, opts...)
}

// GeneratePromptWithContext generates a response based on the provided system
// and user prompts, honoring the caller's context.
func (c *Client) GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string, opts ...GenOption) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))
	return c.generate(ctx, "GeneratePromptWithContext", messages, opts...)
}

// GenerateWithMessages generates a response for a full conversation transcript.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, opts ...GenOption) (string, error) {
	return c.generate(ctx, "GenerateWithMessages", messages, opts...)
}

func (c *Client) generate(ctx context.Context, method string, messages []openai.ChatCompletionMessageParamUnion, opts ...GenOption) (string, error) {
	o := GenOpts{Temperature: c.temperature, MaxTokens: c.maxTokens}
	for _, opt := range opts {
		opt(&o)
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: param.NewOpt(o.Temperature),
		MaxTokens:   param.NewOpt(o.MaxTokens),
	}

	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		slog.Error("GenAI chat completion failed", "error", err, "method", method, "model", c.model)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	c.logDebug(method, params, resp)

	if len(resp.Choices) == 0 {
		slog.Error("GenAI chat completion returned no choices", "method", method, "model", c.model)
		return "", ErrNoChoicesReturned
	}

	content := resp.Choices[0].Message.Content
	slog.Debug("GenAI chat completion succeeded", "method", method, "model", c.model,
		"messageCount", len(messages), "responseLength", len(content))
	return content, nil
}
