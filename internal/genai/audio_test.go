package genai

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
)

type mockTranscriptionService struct {
	resp       openai.Transcription
	err        error
	lastParams openai.AudioTranscriptionNewParams
}

func (m *mockTranscriptionService) Create(ctx context.Context, params openai.AudioTranscriptionNewParams) (openai.Transcription, error) {
	m.lastParams = params
	return m.resp, m.err
}

type mockSpeechService struct {
	audio      []byte
	err        error
	lastParams openai.AudioSpeechNewParams
}

func (m *mockSpeechService) Create(ctx context.Context, params openai.AudioSpeechNewParams) ([]byte, error) {
	m.lastParams = params
	return m.audio, m.err
}

func TestTranscribe_Success(t *testing.T) {
	mock := &mockTranscriptionService{resp: openai.Transcription{Text: "  I want to work on my report  "}}
	client := &Client{transcription: mock, sttModel: "whisper-large-v3-turbo"}

	text, err := client.Transcribe(context.Background(), []byte{0x52, 0x49, 0x46, 0x46}, "clip.wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "I want to work on my report" {
		t.Errorf("expected trimmed transcript, got %q", text)
	}
	if string(mock.lastParams.Model) != "whisper-large-v3-turbo" {
		t.Errorf("expected whisper model, got %q", mock.lastParams.Model)
	}
	if mock.lastParams.Temperature.Value != 0.0 {
		t.Errorf("expected transcription temperature 0.0, got %v", mock.lastParams.Temperature.Value)
	}
}

func TestTranscribe_EmptyAudio(t *testing.T) {
	client := &Client{transcription: &mockTranscriptionService{}}
	_, err := client.Transcribe(context.Background(), nil, "clip.wav")
	if err == nil {
		t.Error("expected error for empty audio, got nil")
	}
}

func TestTranscribe_ServiceError(t *testing.T) {
	mock := &mockTranscriptionService{err: errors.New("upstream down")}
	client := &Client{transcription: mock, sttModel: "whisper-large-v3-turbo"}
	_, err := client.Transcribe(context.Background(), []byte{1, 2, 3}, "clip.wav")
	if err == nil {
		t.Error("expected error from service failure, got nil")
	}
}

func TestSynthesize_Success(t *testing.T) {
	mock := &mockSpeechService{audio: []byte{0x52, 0x49, 0x46, 0x46}}
	client := &Client{speech: mock, ttsModel: "playai-tts", ttsVoice: "Calum-PlayAI"}

	audio, err := client.Synthesize(context.Background(), "Time for a break!", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(audio) != 4 {
		t.Errorf("expected 4 audio bytes, got %d", len(audio))
	}
	if string(mock.lastParams.Voice) != "Calum-PlayAI" {
		t.Errorf("expected default voice, got %q", mock.lastParams.Voice)
	}
	if mock.lastParams.Input != "Time for a break!" {
		t.Errorf("input not forwarded, got %q", mock.lastParams.Input)
	}
}

func TestSynthesize_VoiceOverride(t *testing.T) {
	mock := &mockSpeechService{audio: []byte{1}}
	client := &Client{speech: mock, ttsModel: "playai-tts", ttsVoice: "Calum-PlayAI"}

	_, err := client.Synthesize(context.Background(), "hello", "Celeste-PlayAI")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(mock.lastParams.Voice) != "Celeste-PlayAI" {
		t.Errorf("expected voice override, got %q", mock.lastParams.Voice)
	}
}

func TestSynthesize_EmptyText(t *testing.T) {
	client := &Client{speech: &mockSpeechService{}}
	_, err := client.Synthesize(context.Background(), "   ", "")
	if err == nil {
		t.Error("expected error for empty text, got nil")
	}
}

func TestAudioContentType(t *testing.T) {
	cases := []struct {
		filename string
		want     string
	}{
		{"clip.wav", "audio/wav"},
		{"clip.MP3", "audio/mpeg"},
		{"voice.ogg", "audio/ogg"},
		{"note.m4a", "audio/mp4"},
		{"chunk.webm", "audio/webm"},
		{"mystery.bin", "application/octet-stream"},
	}
	for _, c := range cases {
		if got := audioContentType(c.filename); got != c.want {
			t.Errorf("audioContentType(%q) = %q, want %q", c.filename, got, c.want)
		}
	}
}
