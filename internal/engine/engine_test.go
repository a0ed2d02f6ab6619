package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openai/openai-go"

	"github.com/FocusLoopHQ/FocusLoop/internal/genai"
	"github.com/FocusLoopHQ/FocusLoop/internal/models"
	"github.com/FocusLoopHQ/FocusLoop/internal/store"
)

// genCall records one gateway invocation.
type genCall struct {
	system      string
	user        string
	temperature float64
	maxTokens   int64
}

// mockGenAI scripts gateway replies for engine tests. Queued replies are
// consumed in order; once the queue is empty the most recent reply repeats.
type mockGenAI struct {
	mu      sync.Mutex
	replies []string
	last    string
	err     error
	calls   []genCall

	delay       time.Duration
	inFlight    int32
	maxInFlight int32
}

func (m *mockGenAI) GeneratePrompt(systemPrompt, userPrompt string, opts ...genai.GenOption) (string, error) {
	return "", errors.New("not implemented")
}

func (m *mockGenAI) GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string, opts ...genai.GenOption) (string, error) {
	return "", errors.New("not implemented")
}

func (m *mockGenAI) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, opts ...genai.GenOption) (string, error) {
	o := genai.GenOpts{Temperature: genai.DefaultTemperature, MaxTokens: genai.DefaultMaxTokens}
	for _, opt := range opts {
		opt(&o)
	}

	call := genCall{temperature: o.Temperature, maxTokens: o.MaxTokens}
	for _, msg := range messages {
		if msg.OfSystem != nil {
			call.system = msg.OfSystem.Content.OfString.Value
		}
		if msg.OfUser != nil {
			call.user = msg.OfUser.Content.OfString.Value
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	reply := m.last
	if len(m.replies) > 0 {
		reply = m.replies[0]
		m.replies = m.replies[1:]
		m.last = reply
	}
	err := m.err
	delay := m.delay
	m.mu.Unlock()

	cur := atomic.AddInt32(&m.inFlight, 1)
	for {
		seen := atomic.LoadInt32(&m.maxInFlight)
		if cur <= seen || atomic.CompareAndSwapInt32(&m.maxInFlight, seen, cur) {
			break
		}
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	atomic.AddInt32(&m.inFlight, -1)

	if err != nil {
		return "", err
	}
	return reply, nil
}

func (m *mockGenAI) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return "", errors.New("not implemented")
}

func (m *mockGenAI) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

// push queues replies behind whatever is already waiting.
func (m *mockGenAI) push(replies ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replies...)
}

// lastCall returns the most recent gateway invocation.
func (m *mockGenAI) lastCall(t *testing.T) genCall {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		t.Fatal("expected at least one gateway call")
	}
	return m.calls[len(m.calls)-1]
}

func (m *mockGenAI) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func newTestEngine(gen *mockGenAI, opts ...Option) (*Engine, *store.InMemoryStore) {
	st := store.NewInMemoryStore()
	return NewEngine(gen, st, opts...), st
}

// startPlanning opens a planning conversation or fails the test.
func startPlanning(t *testing.T, e *Engine, userID string) {
	t.Helper()
	if _, err := e.StartPlanningConversation(context.Background(), userID); err != nil {
		t.Fatalf("failed to start planning conversation: %v", err)
	}
}

// startBlock drives the offer and confirm flow and returns the new block id.
func startBlock(t *testing.T, e *Engine, gen *mockGenAI, userID string, minutes int) string {
	t.Helper()
	gen.push(fmt.Sprintf(
		`{"question": "Ready to dive in?", "duration_options": [%d, %d], "reasoning": "test options"}`,
		minutes, minutes+10))
	offer := e.StartWorkBlock(context.Background(), userID, "write the report")
	if len(offer.DurationOptions) == 0 {
		t.Fatalf("expected duration options, got %+v", offer)
	}
	started, err := e.ConfirmDuration(context.Background(), userID, minutes)
	if err != nil {
		t.Fatalf("failed to confirm duration: %v", err)
	}
	return started.WorkBlockID
}

// backdateTimer moves a timer's start into the past to simulate elapsed time.
func backdateTimer(e *Engine, workBlockID string, d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.timers[workBlockID]; ok {
		t.StartedAt = t.StartedAt.Add(-d)
	}
}

func TestGetStatus_EmptyUser(t *testing.T) {
	e, _ := newTestEngine(&mockGenAI{})

	status := e.GetStatus("nobody")
	if status.UserID != "nobody" {
		t.Errorf("expected user id echoed, got %q", status.UserID)
	}
	if status.HasActiveConversation {
		t.Error("expected no active conversation")
	}
	if status.ActiveWorkBlocks == nil || len(status.ActiveWorkBlocks) != 0 {
		t.Errorf("expected empty work block list, got %#v", status.ActiveWorkBlocks)
	}
}

func TestGetStatus_RemainingGoesNegativeOnOverrun(t *testing.T) {
	gen := &mockGenAI{}
	e, _ := newTestEngine(gen)
	blockID := startBlock(t, e, gen, "u1", 10)
	backdateTimer(e, blockID, 15*time.Minute)

	status := e.GetStatus("u1")
	if len(status.ActiveWorkBlocks) != 1 {
		t.Fatalf("expected 1 active work block, got %d", len(status.ActiveWorkBlocks))
	}
	blk := status.ActiveWorkBlocks[0]
	if blk.RemainingMinutes >= 0 {
		t.Errorf("expected negative remaining on overrun, got %f", blk.RemainingMinutes)
	}
	if blk.ElapsedMinutes < 14.5 || blk.ElapsedMinutes > 15.5 {
		t.Errorf("expected roughly 15 elapsed minutes, got %f", blk.ElapsedMinutes)
	}
	if diff := blk.RemainingMinutes - (float64(blk.PlannedDurationMinutes) - blk.ElapsedMinutes); diff > 0.01 || diff < -0.01 {
		t.Errorf("expected remaining = planned - elapsed, got %f vs %f", blk.RemainingMinutes, float64(blk.PlannedDurationMinutes)-blk.ElapsedMinutes)
	}
}

func TestSweepExpired_EvictsOnlyIdleConversations(t *testing.T) {
	gen := &mockGenAI{replies: []string{"How are you feeling today?"}}
	e, _ := newTestEngine(gen)
	startPlanning(t, e, "stale")
	startPlanning(t, e, "fresh")

	e.mu.Lock()
	e.conversations["stale"].LastActivityAt = time.Now().UTC().Add(-time.Hour)
	e.mu.Unlock()

	if n := e.sweepExpired(time.Now().UTC()); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if e.GetStatus("stale").HasActiveConversation {
		t.Error("expected stale conversation to be evicted")
	}
	if !e.GetStatus("fresh").HasActiveConversation {
		t.Error("expected fresh conversation to survive the sweep")
	}
}

func TestRun_EvictsIdleConversations(t *testing.T) {
	gen := &mockGenAI{replies: []string{"How are you feeling today?"}}
	e, _ := newTestEngine(gen,
		WithConversationTTL(time.Millisecond),
		WithSweepInterval(5*time.Millisecond))
	startPlanning(t, e, "u1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && e.GetStatus("u1").HasActiveConversation {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if e.GetStatus("u1").HasActiveConversation {
		t.Error("expected sweeper to evict the idle conversation")
	}
}

func TestSameUserOperationsSerialize(t *testing.T) {
	gen := &mockGenAI{replies: []string{"How are you feeling today?"}, delay: 20 * time.Millisecond}
	e, _ := newTestEngine(gen)
	startPlanning(t, e, "u1")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.ContinuePlanningConversation(context.Background(), "u1", "still thinking"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if seen := atomic.LoadInt32(&gen.maxInFlight); seen != 1 {
		t.Errorf("expected gateway calls for one user to serialize, saw %d in flight", seen)
	}
	if gen.callCount() != 5 {
		t.Errorf("expected 5 gateway calls, got %d", gen.callCount())
	}
}

func TestRecoverActiveBlocks_RestoresRunningTimers(t *testing.T) {
	st := store.NewInMemoryStore()
	started := time.Now().UTC().Add(-20 * time.Minute)
	if err := st.SaveWorkBlock(models.WorkBlock{
		ID: "wb_live", UserID: "u1", TaskDescription: "draft slides",
		PlannedDurationMinutes: 30, StartedAt: started,
	}); err != nil {
		t.Fatalf("failed to seed work block: %v", err)
	}
	completedAt := time.Now().UTC()
	if err := st.SaveWorkBlock(models.WorkBlock{
		ID: "wb_done", UserID: "u1", PlannedDurationMinutes: 25,
		StartedAt: started, Completed: true, CompletedAt: &completedAt,
	}); err != nil {
		t.Fatalf("failed to seed completed block: %v", err)
	}

	e := NewEngine(&mockGenAI{}, st)
	n, err := e.RecoverActiveBlocks()
	if err != nil {
		t.Fatalf("recovery failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 recovered timer, got %d", n)
	}

	status := e.GetStatus("u1")
	if len(status.ActiveWorkBlocks) != 1 {
		t.Fatalf("expected 1 active block after recovery, got %d", len(status.ActiveWorkBlocks))
	}
	blk := status.ActiveWorkBlocks[0]
	if blk.WorkBlockID != "wb_live" || blk.State != models.TimerStateRunning {
		t.Errorf("unexpected recovered timer: %+v", blk)
	}
	if blk.ElapsedMinutes < 19.5 || blk.ElapsedMinutes > 20.5 {
		t.Errorf("expected original start time preserved (~20 elapsed), got %f", blk.ElapsedMinutes)
	}

	n, err = e.RecoverActiveBlocks()
	if err != nil {
		t.Fatalf("second recovery failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected second recovery to restore nothing, got %d", n)
	}
}
