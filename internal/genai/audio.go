package genai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
)

// Transcribe converts recorded audio to text through the gateway's Whisper
// model. Transcription runs at temperature 0 so the same recording always
// yields the same text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("no audio data provided")
	}
	if filename == "" {
		filename = "audio.wav"
	}

	params := openai.AudioTranscriptionNewParams{
		Model:       openai.AudioModel(c.sttModel),
		File:        openai.File(bytes.NewReader(audio), filename, audioContentType(filename)),
		Temperature: param.NewOpt(0.0),
	}

	resp, err := c.transcription.Create(ctx, params)
	if err != nil {
		slog.Error("GenAI transcription failed", "error", err, "model", c.sttModel, "bytes", len(audio))
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	slog.Debug("GenAI transcription succeeded", "model", c.sttModel, "bytes", len(audio), "textLength", len(text))
	return text, nil
}

// Synthesize converts text to speech through the gateway's TTS model and
// returns WAV audio. An empty voiceID uses the client's default voice.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text provided for synthesis")
	}
	if voiceID == "" {
		voiceID = c.ttsVoice
	}

	params := openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(c.ttsModel),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(voiceID),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatWAV,
	}

	audio, err := c.speech.Create(ctx, params)
	if err != nil {
		slog.Error("GenAI speech synthesis failed", "error", err, "model", c.ttsModel, "voice", voiceID)
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}

	slog.Debug("GenAI speech synthesis succeeded", "model", c.ttsModel, "voice", voiceID,
		"textLength", len(text), "audioBytes", len(audio))
	return audio, nil
}

// audioContentType maps an audio filename to its MIME type for the multipart
// upload.
func audioContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".webm":
		return "audio/webm"
	case ".flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}
