package engine

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

// planningContext is what the planning and duration prompts get to see about
// the user: a glance at recent emotional states and work patterns plus the
// clock. Rendered as compact JSON inside the prompt text.
type planningContext struct {
	RecentEmotionalStates []stateGlance `json:"recent_emotional_states"`
	RecentWorkPatterns    []workGlance  `json:"recent_work_patterns"`
	TimeOfDay             string        `json:"time_of_day"`
	DayOfWeek             string        `json:"day_of_week"`
}

type stateGlance struct {
	State models.EmotionalState `json:"state"`
	Time  string                `json:"time"`
}

type workGlance struct {
	Duration     float64  `json:"duration"`
	Completion   *float64 `json:"completion,omitempty"`
	FocusQuality string   `json:"focus_quality,omitempty"`
}

func (c planningContext) render() string {
	return renderJSON(c)
}

// userContext assembles the planning context from the durable store: the
// last 5 emotional states within 24 hours and the last 10 work blocks within
// 7 days. Store failures degrade to an empty context so planning can still
// start.
func (e *Engine) userContext(userID string, now time.Time) planningContext {
	pc := planningContext{
		RecentEmotionalStates: []stateGlance{},
		RecentWorkPatterns:    []workGlance{},
		TimeOfDay:             now.Format("15:04"),
		DayOfWeek:             now.Weekday().String(),
	}

	states, err := e.st.QueryRecentEmotionalStates(userID, now.Add(-24*time.Hour), 5)
	if err != nil {
		slog.Warn("Engine.userContext: emotional state query failed", "userID", userID, "error", err)
	}
	for _, s := range states {
		pc.RecentEmotionalStates = append(pc.RecentEmotionalStates, stateGlance{
			State: s.State,
			Time:  s.CreatedAt.Format("15:04"),
		})
	}

	blocks, err := e.st.QueryRecentWorkBlocks(userID, now.Add(-7*24*time.Hour), 10)
	if err != nil {
		slog.Warn("Engine.userContext: work block query failed", "userID", userID, "error", err)
	}
	for _, wb := range blocks {
		g := workGlance{
			Duration:     float64(wb.PlannedDurationMinutes),
			Completion:   wb.CompletionPercentage,
			FocusQuality: wb.FocusQuality,
		}
		if wb.ActualDurationMinutes != nil {
			g.Duration = *wb.ActualDurationMinutes
		}
		pc.RecentWorkPatterns = append(pc.RecentWorkPatterns, g)
	}

	return pc
}

// recentPerformance summarizes today's work for the duration prompt: total
// focused minutes, block count, average completion rate, and the time of the
// last completed block. Days with no blocks yet get a plain message instead
// of zeroed stats.
func (e *Engine) recentPerformance(userID string, now time.Time) map[string]any {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	blocks, err := e.st.QueryRecentWorkBlocks(userID, midnight, 0)
	if err != nil {
		slog.Warn("Engine.recentPerformance: work block query failed", "userID", userID, "error", err)
	}
	if len(blocks) == 0 {
		return map[string]any{"message": "No work completed today yet"}
	}

	var totalMinutes, pctSum float64
	var lastBreak time.Time
	for _, wb := range blocks {
		if wb.ActualDurationMinutes != nil {
			totalMinutes += *wb.ActualDurationMinutes
		}
		if wb.CompletionPercentage != nil {
			pctSum += *wb.CompletionPercentage
		}
		if wb.CompletedAt != nil && wb.CompletedAt.After(lastBreak) {
			lastBreak = *wb.CompletedAt
		}
	}

	perf := map[string]any{
		"time_worked_today":       totalMinutes,
		"work_blocks_completed":   len(blocks),
		"average_completion_rate": pctSum / float64(len(blocks)),
	}
	if !lastBreak.IsZero() {
		perf["last_break_time"] = lastBreak.Format(time.RFC3339)
	}
	return perf
}

// renderJSON marshals a value for embedding in prompt text. Unmarshalable
// values render as an empty object rather than breaking the prompt.
func renderJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
