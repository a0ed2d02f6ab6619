package testutil

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

func TestNewTestServer(t *testing.T) {
	server, gw, st := NewTestServer()
	if server == nil {
		t.Fatal("NewTestServer returned nil server")
	}
	if gw == nil || st == nil {
		t.Fatal("NewTestServer returned nil dependencies")
	}

	// The store is live: seeded rows are visible to the services.
	now := time.Now()
	if err := st.UpsertUser(models.User{ID: "u1", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	u, err := st.GetUser("u1")
	if err != nil || u == nil {
		t.Fatalf("expected seeded user, got %v, %v", u, err)
	}
}

func TestMockGatewayReplies(t *testing.T) {
	gw := &MockGateway{}
	gw.Push("first", "second")

	if reply, err := gw.GeneratePrompt("sys", "user"); err != nil || reply != "first" {
		t.Errorf("expected first queued reply, got %q, %v", reply, err)
	}
	if reply, err := gw.GeneratePromptWithContext(context.Background(), "sys", "user"); err != nil || reply != "second" {
		t.Errorf("expected second queued reply, got %q, %v", reply, err)
	}
	// Empty queue repeats the last reply.
	if reply, err := gw.GeneratePrompt("sys", "user"); err != nil || reply != "second" {
		t.Errorf("expected last reply to repeat, got %q, %v", reply, err)
	}
}

func TestMockGatewayErr(t *testing.T) {
	gw := &MockGateway{Err: errors.New("gateway down")}
	gw.Push("unused")

	if _, err := gw.GeneratePrompt("sys", "user"); err == nil {
		t.Error("expected error from failing gateway")
	}
	if _, err := gw.Synthesize(context.Background(), "text", "Calum-PlayAI"); err == nil {
		t.Error("expected error from failing synthesis")
	}
}

func TestAssertHTTPStatus(t *testing.T) {
	AssertHTTPStatus(t, 200, 200, "matching status")
}

func TestAssertJSONResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	rr.Body.WriteString(`{"status":"ok","result":{"key":"value"}}`)

	response := AssertJSONResponse(t, rr, "ok")
	if response["status"] != "ok" {
		t.Errorf("expected status ok, got %v", response["status"])
	}
}

func TestCreateHTTPRequest(t *testing.T) {
	req := CreateHTTPRequest(t, "POST", "/planning/start", map[string]string{"user_id": "u1"})
	if req.Method != "POST" {
		t.Errorf("expected POST, got %s", req.Method)
	}
	if req.URL.Path != "/planning/start" {
		t.Errorf("expected /planning/start, got %s", req.URL.Path)
	}

	empty := CreateHTTPRequest(t, "GET", "/status", nil)
	if empty.Method != "GET" {
		t.Errorf("expected GET, got %s", empty.Method)
	}
}

func TestMustMarshalRoundTrip(t *testing.T) {
	data := MustMarshalJSON(t, map[string]interface{}{"key": "value", "number": 123})
	if len(data) == 0 {
		t.Fatal("expected non-empty JSON data")
	}

	var target map[string]interface{}
	MustUnmarshalJSON(t, data, &target)
	if target["key"] != "value" {
		t.Errorf("expected key to be 'value', got %v", target["key"])
	}
	if target["number"].(float64) != 123 {
		t.Errorf("expected number to be 123, got %v", target["number"])
	}
}
