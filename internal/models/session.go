package models

import "time"

// SessionType identifies the kind of scheduled session.
type SessionType string

const (
	SessionTypeMorningPlanning   SessionType = "morning_planning"
	SessionTypePostWorkCheckin   SessionType = "post_work_checkin"
	SessionTypeTransition        SessionType = "transition"
	SessionTypeBurnoutPrevention SessionType = "burnout_prevention"
	SessionTypeEveningReflection SessionType = "evening_reflection"
	SessionTypeWorkBlock         SessionType = "work_block"
	SessionTypeBreak             SessionType = "break"
)

// DefaultSessionMinutes returns the recommended duration for a session type.
// Work blocks and breaks take their duration from the day plan instead.
func DefaultSessionMinutes(t SessionType) int {
	switch t {
	case SessionTypeMorningPlanning:
		return 10 // enough time to plan, not so long it delays starting
	case SessionTypePostWorkCheckin:
		return 5 // quick emotional regulation
	case SessionTypeTransition:
		return 3 // brief re-engagement
	case SessionTypeBurnoutPrevention:
		return 15 // longer to ensure real rest
	case SessionTypeEveningReflection:
		return 8 // meaningful reflection without overthinking
	default:
		return 5
	}
}

// SessionStatus tracks the lifecycle of a scheduled session.
type SessionStatus string

const (
	// SessionStatusScheduled means the session is planned but not started.
	SessionStatusScheduled SessionStatus = "scheduled"
	// SessionStatusActive means the user is currently in the session.
	SessionStatusActive SessionStatus = "active"
	// SessionStatusCompleted means the session finished successfully.
	SessionStatusCompleted SessionStatus = "completed"
	// SessionStatusSkipped means the user skipped the session.
	SessionStatusSkipped SessionStatus = "skipped"
	// SessionStatusAdapted means the session was modified due to emotional state.
	SessionStatusAdapted SessionStatus = "adapted"
)

// IsValidSessionStatus checks if the given status is a known lifecycle state.
func IsValidSessionStatus(s SessionStatus) bool {
	switch s {
	case SessionStatusScheduled, SessionStatusActive, SessionStatusCompleted,
		SessionStatusSkipped, SessionStatusAdapted:
		return true
	default:
		return false
	}
}

// Session is the durable record of a scheduled assistant session.
type Session struct {
	ID                     string        `json:"id"`
	UserID                 string        `json:"user_id"`
	Type                   SessionType   `json:"session_type"`
	Status                 SessionStatus `json:"status"`
	ScheduledTime          time.Time     `json:"scheduled_time"`
	StartedAt              *time.Time    `json:"started_at,omitempty"`
	CompletedAt            *time.Time    `json:"completed_at,omitempty"`
	PlannedDurationMinutes int           `json:"planned_duration_minutes"`
	ActualDurationMinutes  *int          `json:"actual_duration_minutes,omitempty"`
	WasAdapted             bool          `json:"was_adapted"`
	AdaptationReason       string        `json:"adaptation_reason,omitempty"`
	StarterPrompt          string        `json:"starter_prompt,omitempty"` // what the assistant says first
	Summary                string        `json:"summary,omitempty"`
	EffectivenessRating    *int          `json:"effectiveness_rating,omitempty"` // 1-5 user rating
}

// DayPlan is the structured outcome of a morning planning analysis. It drives
// schedule materialization for the day.
type DayPlan struct {
	EmotionalState          EmotionalState `json:"emotional_state"`
	EnergyLevel             string         `json:"energy_level"` // high/medium/low
	TaskCount               int            `json:"task_count"`
	TaskComplexity          string         `json:"task_complexity"`   // simple/medium/complex
	StressIndicators        string         `json:"stress_indicators"` // none/mild/moderate/high
	HyperfocusRisk          string         `json:"hyperfocus_risk"`   // low/medium/high
	RecommendedBlockLength  int            `json:"recommended_block_length"`
	RecommendedBreakLength  int            `json:"recommended_break_length"`
	MaxWorkBlocks           int            `json:"max_work_blocks"`
	InterventionSensitivity string         `json:"intervention_sensitivity"` // low/medium/high
}

// DefaultDayPlan returns the moderate plan used when analysis fails.
func DefaultDayPlan() DayPlan {
	return DayPlan{
		EmotionalState:          EmotionalStateNeutral,
		EnergyLevel:             "medium",
		TaskCount:               3,
		TaskComplexity:          "medium",
		StressIndicators:        "mild",
		HyperfocusRisk:          "medium",
		RecommendedBlockLength:  35,
		RecommendedBreakLength:  15,
		MaxWorkBlocks:           4,
		InterventionSensitivity: "medium",
	}
}

// MorningAnalysis is the durable record of a morning planning analysis and
// the schedule generated from it.
type MorningAnalysis struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	AnalysisDate time.Time      `json:"analysis_date"`
	Plan         DayPlan        `json:"plan"`
	Transcript   string         `json:"transcript,omitempty"`
	Schedule     []ScheduleItem `json:"generated_schedule,omitempty"`
}

// ScheduleItem is one entry of a materialized day schedule.
type ScheduleItem struct {
	Type            SessionType `json:"type"`
	StartTime       time.Time   `json:"start_time"`
	EndTime         time.Time   `json:"end_time"`
	DurationMinutes int         `json:"duration_minutes"`
	BlockNumber     int         `json:"block_number,omitempty"`
	Mandatory       bool        `json:"mandatory,omitempty"`
}

// SessionStatusAction is a lifecycle transition requested through the API.
type SessionStatusAction string

const (
	SessionActionStart    SessionStatusAction = "start"
	SessionActionComplete SessionStatusAction = "complete"
	SessionActionSkip     SessionStatusAction = "skip"
)

// SessionStatusUpdateRequest is the payload for transitioning a session's
// lifecycle state.
type SessionStatusUpdateRequest struct {
	Action              SessionStatusAction `json:"action"`
	Summary             string              `json:"summary,omitempty"`
	EffectivenessRating *int                `json:"effectiveness_rating,omitempty"`
	Reason              string              `json:"reason,omitempty"`
}

// Validate performs validation on a SessionStatusUpdateRequest.
func (r *SessionStatusUpdateRequest) Validate() error {
	switch r.Action {
	case SessionActionStart, SessionActionComplete, SessionActionSkip:
	default:
		return ErrInvalidSessionAction
	}
	if r.EffectivenessRating != nil && (*r.EffectivenessRating < 1 || *r.EffectivenessRating > 5) {
		return ErrRatingOutOfRange
	}
	return nil
}

// SessionStatistics summarizes session outcomes over a period.
type SessionStatistics struct {
	TotalSessions        int            `json:"total_sessions"`
	CompletedSessions    int            `json:"completed_sessions"`
	SkippedSessions      int            `json:"skipped_sessions"`
	CompletionRate       float64        `json:"completion_rate"` // percentage
	SessionTypeBreakdown map[string]int `json:"session_type_breakdown"`
	AverageEffectiveness float64        `json:"average_effectiveness"`
	PeriodDays           int            `json:"period_days"`
}
