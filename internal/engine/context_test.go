package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

func TestUserContext_AssemblesRecentActivity(t *testing.T) {
	e, st := newTestEngine(&mockGenAI{})
	now := time.Now().UTC()

	if err := st.LogEmotionalState(models.EmotionalStateLog{
		UserID: "u1", State: models.EmotionalStateFocused, Intensity: 0.6,
		InterventionTier: models.InterventionTierNone, CreatedAt: now.Add(-2 * time.Hour),
	}); err != nil {
		t.Fatalf("failed to seed state log: %v", err)
	}
	actual := 22.5
	pct := 80.0
	if err := st.SaveWorkBlock(models.WorkBlock{
		ID: "wb_old", UserID: "u1", PlannedDurationMinutes: 30,
		StartedAt: now.Add(-3 * time.Hour),
	}); err != nil {
		t.Fatalf("failed to seed work block: %v", err)
	}
	if err := st.SaveWorkBlock(models.WorkBlock{
		ID: "wb_new", UserID: "u1", PlannedDurationMinutes: 25,
		ActualDurationMinutes: &actual, CompletionPercentage: &pct,
		FocusQuality: "deep", StartedAt: now.Add(-1 * time.Hour),
	}); err != nil {
		t.Fatalf("failed to seed work block: %v", err)
	}

	pc := e.userContext("u1", now)
	if pc.TimeOfDay != now.Format("15:04") {
		t.Errorf("unexpected time of day: %q", pc.TimeOfDay)
	}
	if pc.DayOfWeek != now.Weekday().String() {
		t.Errorf("unexpected day of week: %q", pc.DayOfWeek)
	}
	if len(pc.RecentEmotionalStates) != 1 || pc.RecentEmotionalStates[0].State != models.EmotionalStateFocused {
		t.Errorf("unexpected states: %+v", pc.RecentEmotionalStates)
	}
	if len(pc.RecentWorkPatterns) != 2 {
		t.Fatalf("expected 2 work patterns, got %d", len(pc.RecentWorkPatterns))
	}
	// Newest block first, actual duration preferred over planned.
	if pc.RecentWorkPatterns[0].Duration != 22.5 || pc.RecentWorkPatterns[0].FocusQuality != "deep" {
		t.Errorf("unexpected first pattern: %+v", pc.RecentWorkPatterns[0])
	}
	if pc.RecentWorkPatterns[1].Duration != 30.0 || pc.RecentWorkPatterns[1].Completion != nil {
		t.Errorf("unexpected second pattern: %+v", pc.RecentWorkPatterns[1])
	}

	rendered := pc.render()
	if !strings.Contains(rendered, `"time_of_day"`) || !strings.Contains(rendered, `"focused"`) {
		t.Errorf("unexpected rendering: %s", rendered)
	}
}

func TestUserContext_EmptyForNewUser(t *testing.T) {
	e, _ := newTestEngine(&mockGenAI{})
	pc := e.userContext("newcomer", time.Now().UTC())

	if len(pc.RecentEmotionalStates) != 0 || len(pc.RecentWorkPatterns) != 0 {
		t.Errorf("expected empty context, got %+v", pc)
	}
	// Empty slices render as [] rather than null so prompts stay well-formed.
	rendered := pc.render()
	if !strings.Contains(rendered, `"recent_emotional_states":[]`) {
		t.Errorf("unexpected rendering: %s", rendered)
	}
}

func TestRecentPerformance_NoBlocksToday(t *testing.T) {
	e, st := newTestEngine(&mockGenAI{})
	now := time.Now().UTC()

	// A block from yesterday does not count toward today.
	if err := st.SaveWorkBlock(models.WorkBlock{
		ID: "wb_yesterday", UserID: "u1", PlannedDurationMinutes: 30,
		StartedAt: now.Add(-26 * time.Hour),
	}); err != nil {
		t.Fatalf("failed to seed work block: %v", err)
	}

	perf := e.recentPerformance("u1", now)
	if msg, ok := perf["message"]; !ok || msg != "No work completed today yet" {
		t.Errorf("expected empty-day message, got %+v", perf)
	}
}

func TestRecentPerformance_SummarizesToday(t *testing.T) {
	e, st := newTestEngine(&mockGenAI{})
	now := time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC)

	actual := 25.0
	pct := 80.0
	completedAt := now.Add(-2 * time.Hour)
	if err := st.SaveWorkBlock(models.WorkBlock{
		ID: "wb_done", UserID: "u1", PlannedDurationMinutes: 30,
		ActualDurationMinutes: &actual, CompletionPercentage: &pct,
		StartedAt: now.Add(-3 * time.Hour), Completed: true, CompletedAt: &completedAt,
	}); err != nil {
		t.Fatalf("failed to seed work block: %v", err)
	}
	if err := st.SaveWorkBlock(models.WorkBlock{
		ID: "wb_running", UserID: "u1", PlannedDurationMinutes: 25,
		StartedAt: now.Add(-10 * time.Minute),
	}); err != nil {
		t.Fatalf("failed to seed work block: %v", err)
	}

	perf := e.recentPerformance("u1", now)
	if perf["time_worked_today"] != 25.0 {
		t.Errorf("expected 25 minutes worked, got %v", perf["time_worked_today"])
	}
	if perf["work_blocks_completed"] != 2 {
		t.Errorf("expected 2 blocks counted, got %v", perf["work_blocks_completed"])
	}
	if perf["average_completion_rate"] != 40.0 {
		t.Errorf("expected average over all blocks, got %v", perf["average_completion_rate"])
	}
	if _, ok := perf["last_break_time"]; !ok {
		t.Error("expected last break time from the completed block")
	}
}
