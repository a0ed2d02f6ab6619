// Package testutil provides common test utilities and helpers for FocusLoop tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/openai/openai-go"

	"github.com/FocusLoopHQ/FocusLoop/internal/api"
	"github.com/FocusLoopHQ/FocusLoop/internal/chat"
	"github.com/FocusLoopHQ/FocusLoop/internal/detector"
	"github.com/FocusLoopHQ/FocusLoop/internal/engine"
	"github.com/FocusLoopHQ/FocusLoop/internal/genai"
	"github.com/FocusLoopHQ/FocusLoop/internal/session"
	"github.com/FocusLoopHQ/FocusLoop/internal/store"
	"github.com/FocusLoopHQ/FocusLoop/internal/voice"
)

// MockGateway is a scripted genai.ClientInterface for tests. Queued replies
// are consumed in order; once the queue is empty the last reply repeats.
// When Err is set every call fails with it, which exercises the fallback
// paths.
type MockGateway struct {
	mu      sync.Mutex
	replies []string
	last    string
	Err     error
}

// Push queues replies for subsequent gateway calls.
func (m *MockGateway) Push(replies ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replies...)
}

func (m *MockGateway) next() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.replies) > 0 {
		m.last = m.replies[0]
		m.replies = m.replies[1:]
	}
	return m.last, nil
}

// GeneratePrompt implements genai.ClientInterface.
func (m *MockGateway) GeneratePrompt(systemPrompt, userPrompt string, opts ...genai.GenOption) (string, error) {
	return m.next()
}

// GeneratePromptWithContext implements genai.ClientInterface.
func (m *MockGateway) GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string, opts ...genai.GenOption) (string, error) {
	return m.next()
}

// GenerateWithMessages implements genai.ClientInterface.
func (m *MockGateway) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, opts ...genai.GenOption) (string, error) {
	return m.next()
}

// Transcribe implements genai.ClientInterface.
func (m *MockGateway) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return m.next()
}

// Synthesize implements genai.ClientInterface.
func (m *MockGateway) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	reply, err := m.next()
	if err != nil {
		return nil, err
	}
	return []byte(reply), nil
}

var _ genai.ClientInterface = (*MockGateway)(nil)

// NewTestServer creates a test API server with in-memory dependencies.
// This centralizes the test server creation logic used across multiple test files.
func NewTestServer() (*api.Server, *MockGateway, *store.InMemoryStore) {
	gw := &MockGateway{}
	st := store.NewInMemoryStore()

	eng := engine.NewEngine(gw, st)
	det := detector.NewDetector(gw, st)
	sess := session.NewService(gw, st, st.JobRepo())
	ch := chat.NewService(gw, st)
	vs := voice.NewService(gw)

	return api.NewServer(eng, det, sess, ch, vs, st, gw), gw, st
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t *testing.T, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
