package models

import "time"

// ConversationStage identifies where a planning conversation currently is.
type ConversationStage string

const (
	// StageInitialPlanning is the open dialogue before any durations are discussed.
	StageInitialPlanning ConversationStage = "INITIAL_PLANNING"
	// StageWorkBlockDecision means duration options are on the table.
	StageWorkBlockDecision ConversationStage = "WORK_BLOCK_DECISION"
	// StageBreakDecision means break options are on the table.
	StageBreakDecision ConversationStage = "BREAK_DECISION"
	// StageAdaptationConversation is entered when a state check triggers adaptation talk.
	StageAdaptationConversation ConversationStage = "ADAPTATION_CONVERSATION"
	// StageInterventionDialogue is entered when an intervention needs discussing.
	StageInterventionDialogue ConversationStage = "INTERVENTION_DIALOGUE"
	// StageContinuationCheck asks whether the user wants another block.
	StageContinuationCheck ConversationStage = "CONTINUATION_CHECK"
)

// IsValidConversationStage checks if the given stage is one the engine knows.
func IsValidConversationStage(s ConversationStage) bool {
	switch s {
	case StageInitialPlanning, StageWorkBlockDecision, StageBreakDecision,
		StageAdaptationConversation, StageInterventionDialogue, StageContinuationCheck:
		return true
	default:
		return false
	}
}

// Conversation turn roles as rendered into planning transcripts.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is a single transcript entry in a planning conversation.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is a user's active planning dialogue. Each user has at most
// one; starting a new one overwrites the old. The engine guards all access
// with its registry lock, so the struct itself carries no synchronization.
type Conversation struct {
	UserID               string             `json:"user_id"`
	Stage                ConversationStage  `json:"stage"`
	History              []ConversationTurn `json:"history"`
	GatheredInfo         map[string]any     `json:"gathered_info,omitempty"`
	ScheduleDecisions    map[string]any     `json:"schedule_decisions,omitempty"`
	PendingWorkBlock     *PendingWorkBlock  `json:"pending_work_block,omitempty"`
	CompletedWorkBlockID string             `json:"completed_work_block_id,omitempty"`
	BreakOptions         []int              `json:"break_options,omitempty"`
	StartedAt            time.Time          `json:"started_at"`
	LastActivityAt       time.Time          `json:"last_activity_at"`
}

// Append adds a turn to the history and marks the conversation active.
func (c *Conversation) Append(role, content string, now time.Time) {
	c.History = append(c.History, ConversationTurn{Role: role, Content: content})
	c.LastActivityAt = now
}

// IdleFor reports how long the conversation has been idle as of now.
func (c *Conversation) IdleFor(now time.Time) time.Duration {
	return now.Sub(c.LastActivityAt)
}

// PlanningDecisionType is what the model decided to do with its planning turn.
type PlanningDecisionType string

const (
	// PlanningDecisionQuestion asks the user for more information.
	PlanningDecisionQuestion PlanningDecisionType = "question"
	// PlanningDecisionOptions offers specific duration choices.
	PlanningDecisionOptions PlanningDecisionType = "options"
	// PlanningDecisionSchedule delivers a complete schedule proposal.
	PlanningDecisionSchedule PlanningDecisionType = "schedule"
)

// PlanningDecision is the interpreted outcome of a planning conversation turn.
type PlanningDecision struct {
	Type               PlanningDecisionType `json:"type"`
	Content            string               `json:"content"`
	NeedsUserInput     bool                 `json:"needs_user_input"`
	SuggestedDurations []int                `json:"suggested_durations,omitempty"`
	Schedule           map[string]any       `json:"schedule,omitempty"` // raw schedule sketch when Type is schedule
}

// ScheduleTypeDynamic marks schedules produced by a live planning dialogue.
const ScheduleTypeDynamic = "dynamic_schedule"

// ProposedSchedule wraps a schedule sketch materialized from a planning
// conversation. Schedules built from morning analyses use ScheduleItem
// instead; this form preserves whatever structure the dialogue produced.
type ProposedSchedule struct {
	Type        string         `json:"type"`
	UserID      string         `json:"user_id"`
	CreatedFrom string         `json:"created_from"`
	Data        map[string]any `json:"schedule_data"`
	CreatedAt   time.Time      `json:"created_at"`
}

// DurationProposal is the interpreted outcome of a work block duration request.
type DurationProposal struct {
	Question        string `json:"question"`
	DurationOptions []int  `json:"duration_options"`
	Reasoning       string `json:"reasoning,omitempty"`
}

// StateCheckDecision is the interpreted outcome of a dynamic state check turn.
type StateCheckDecision struct {
	EmotionalStateDetected EmotionalState  `json:"emotional_state_detected"`
	NeedsAdaptation        bool            `json:"needs_adaptation"`
	SuggestedAction        SuggestedAction `json:"suggested_action"`
	AIResponse             string          `json:"ai_response"`
	Reasoning              string          `json:"reasoning,omitempty"`
}

// BreakDecision is the interpreted outcome of a break decision request.
type BreakDecision struct {
	CheckInQuestion    string   `json:"check_in_question"`
	BreakOptions       []int    `json:"break_options"`
	OptionDescriptions []string `json:"option_descriptions,omitempty"`
	Reasoning          string   `json:"reasoning,omitempty"`
}
