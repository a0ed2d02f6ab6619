package models

import (
	"math"
	"time"
)

// TimerState represents the lifecycle state of a work block timer.
type TimerState string

const (
	// TimerStateRunning indicates the work block is actively running.
	TimerStateRunning TimerState = "running"
	// TimerStatePaused indicates the work block is paused by an adaptation.
	TimerStatePaused TimerState = "paused"
	// TimerStateCompleted indicates the work block ran to completion.
	TimerStateCompleted TimerState = "completed"
	// TimerStateCompletedEarly indicates the work block was ended early by an adaptation.
	TimerStateCompletedEarly TimerState = "completed_early"
)

// IsTerminal reports whether the state marks a finished block.
func (s TimerState) IsTerminal() bool {
	return s == TimerStateCompleted || s == TimerStateCompletedEarly
}

// WorkBlockTimer is the in-memory timer for an active work block. Elapsed and
// remaining minutes are always derived from StartedAt and the planned
// duration at read time; only the planned duration itself is stored, so
// adaptations that shorten a block simply rewrite PlannedDurationMinutes.
type WorkBlockTimer struct {
	WorkBlockID            string     `json:"work_block_id"`
	UserID                 string     `json:"user_id"`
	StartedAt              time.Time  `json:"started_at"`
	PlannedDurationMinutes int        `json:"planned_duration_minutes"`
	State                  TimerState `json:"state"`
	PauseCount             int        `json:"pause_count"`
	TaskDescription        string     `json:"task_description"`
}

// ElapsedMinutes returns the minutes elapsed since the block started, as of now.
func (t *WorkBlockTimer) ElapsedMinutes(now time.Time) float64 {
	return now.Sub(t.StartedAt).Minutes()
}

// RemainingMinutes returns planned minus elapsed minutes as of now. The result
// goes negative once the block overruns its planned duration.
func (t *WorkBlockTimer) RemainingMinutes(now time.Time) float64 {
	return float64(t.PlannedDurationMinutes) - t.ElapsedMinutes(now)
}

// Snapshot captures the timer's derived view at a point in time, rounded to
// one decimal place. Adaptation decisions embed this snapshot before any
// mutation is applied.
func (t *WorkBlockTimer) Snapshot(now time.Time) WorkContext {
	elapsed := roundTenth(t.ElapsedMinutes(now))
	return WorkContext{
		WorkBlockID:            t.WorkBlockID,
		PlannedDurationMinutes: t.PlannedDurationMinutes,
		ElapsedMinutes:         elapsed,
		RemainingMinutes:       roundTenth(float64(t.PlannedDurationMinutes) - elapsed),
		TaskDescription:        t.TaskDescription,
	}
}

// Status returns the read-only view of the timer at a point in time.
func (t *WorkBlockTimer) Status(now time.Time) TimerStatus {
	elapsed := roundTenth(t.ElapsedMinutes(now))
	return TimerStatus{
		WorkBlockID:            t.WorkBlockID,
		State:                  t.State,
		PlannedDurationMinutes: t.PlannedDurationMinutes,
		ElapsedMinutes:         elapsed,
		RemainingMinutes:       roundTenth(float64(t.PlannedDurationMinutes) - elapsed),
		PauseCount:             t.PauseCount,
		TaskDescription:        t.TaskDescription,
	}
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// WorkContext is the point-in-time view of a running work block that
// accompanies state checks and adaptation decisions.
type WorkContext struct {
	WorkBlockID            string  `json:"work_block_id"`
	PlannedDurationMinutes int     `json:"planned_duration"`
	ElapsedMinutes         float64 `json:"elapsed_minutes"`
	RemainingMinutes       float64 `json:"remaining_minutes"` // negative once the block overruns
	TaskDescription        string  `json:"task_description"`
}

// TimerStatus is the read-only timer view returned by status queries.
type TimerStatus struct {
	WorkBlockID            string     `json:"work_block_id"`
	State                  TimerState `json:"state"`
	PlannedDurationMinutes int        `json:"planned_duration_minutes"`
	ElapsedMinutes         float64    `json:"elapsed_minutes"`
	RemainingMinutes       float64    `json:"remaining_minutes"`
	PauseCount             int        `json:"pause_count"`
	TaskDescription        string     `json:"task_description"`
}

// PendingWorkBlock holds a duration proposal awaiting the user's choice.
type PendingWorkBlock struct {
	TaskDescription string    `json:"task_description"`
	DurationOptions []int     `json:"duration_options"`
	CheckInQuestion string    `json:"check_in_question,omitempty"`
	OfferedAt       time.Time `json:"offered_at"`
}

// Offers reports whether minutes is one of the offered duration options.
func (p *PendingWorkBlock) Offers(minutes int) bool {
	for _, opt := range p.DurationOptions {
		if opt == minutes {
			return true
		}
	}
	return false
}

// WorkBlock is the durable record of a work block. It outlives the in-memory
// timer and is completed in place when the block ends.
type WorkBlock struct {
	ID                     string     `json:"id"`
	UserID                 string     `json:"user_id"`
	TaskDescription        string     `json:"task_description"`
	TaskComplexity         string     `json:"task_complexity,omitempty"`
	PlannedDurationMinutes int        `json:"planned_duration_minutes"`
	OriginalPlannedMinutes int        `json:"original_planned_minutes"`
	ActualDurationMinutes  *float64   `json:"actual_duration_minutes,omitempty"`
	StartedAt              time.Time  `json:"started_at"`
	CompletedAt            *time.Time `json:"completed_at,omitempty"`
	Completed              bool       `json:"completed"`
	CompletionPercentage   *float64   `json:"completion_percentage,omitempty"`
	WasAdapted             bool       `json:"was_adapted"`
	AdaptationCount        int        `json:"adaptation_count"`
	EnergyLevelBefore      string     `json:"energy_level_before,omitempty"`
	EnergyLevelAfter       string     `json:"energy_level_after,omitempty"`
	HyperfocusOccurred     bool       `json:"hyperfocus_occurred"`
	InterruptionsCount     int        `json:"interruptions_count"`
	ProductivityRating     *int       `json:"productivity_rating,omitempty"`
	FocusQuality           string     `json:"focus_quality,omitempty"`
}
