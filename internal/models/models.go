// Package models defines the core data structures for FocusLoop.
//
// It includes work block, emotional state, planning conversation, and session
// types, which are shared across modules.
package models

import (
	"errors"
	"time"
)

// Validation constants for input validation
const (
	// MaxUserIDLength defines the maximum allowed length for user identifiers
	MaxUserIDLength = 64
	// MaxMessageLength defines the maximum allowed length for user message content
	MaxMessageLength = 4096
	// MaxTaskDescriptionLength defines the maximum allowed length for work block task descriptions
	MaxTaskDescriptionLength = 500
	// MaxTranscriptLength defines the maximum allowed length for morning session transcripts
	MaxTranscriptLength = 16384
	// MinWorkBlockMinutes defines the shortest plannable work block
	MinWorkBlockMinutes = 5
	// MaxWorkBlockMinutes defines the longest plannable work block
	MaxWorkBlockMinutes = 180
)

// Error variables for better error handling and testability
var (
	ErrEmptyUserID           = errors.New("user_id cannot be empty")
	ErrUserIDTooLong         = errors.New("user_id exceeds maximum length")
	ErrEmptyWorkBlockID      = errors.New("work_block_id cannot be empty")
	ErrEmptyMessage          = errors.New("message cannot be empty")
	ErrMessageTooLong        = errors.New("message exceeds maximum length")
	ErrEmptyTaskDescription  = errors.New("task_description cannot be empty")
	ErrTaskDescriptionLong   = errors.New("task_description exceeds maximum length")
	ErrEmptyTranscript       = errors.New("transcript cannot be empty")
	ErrTranscriptTooLong     = errors.New("transcript exceeds maximum length")
	ErrDurationOutOfRange    = errors.New("duration_minutes is out of range")
	ErrConversationNotFound  = errors.New("no active planning conversation found")
	ErrNoPendingWorkBlock    = errors.New("no pending work block decision")
	ErrInvalidDurationChoice = errors.New("duration must be one of the offered options")
	ErrTimerNotFound         = errors.New("no work block timer found")
	ErrWorkBlockNotFound     = errors.New("work block not found")
	ErrSessionNotFound       = errors.New("session not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrUpstreamUnavailable   = errors.New("language model gateway unavailable")
	ErrInvalidSessionAction  = errors.New("action must be start, complete, or skip")
	ErrRatingOutOfRange      = errors.New("effectiveness_rating must be between 1 and 5")
)

// User represents an enrolled FocusLoop user.
type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Timezone    string    `json:"timezone,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate performs validation on a User structure.
func (u *User) Validate() error {
	if u.ID == "" {
		return ErrEmptyUserID
	}
	if len(u.ID) > MaxUserIDLength {
		return ErrUserIDTooLong
	}
	if u.Timezone != "" {
		if _, err := time.LoadLocation(u.Timezone); err != nil {
			return errors.New("invalid timezone: must be a valid IANA timezone")
		}
	}
	return nil
}

// validateUserID checks the shared user id constraints used by request types.
func validateUserID(id string) error {
	if id == "" {
		return ErrEmptyUserID
	}
	if len(id) > MaxUserIDLength {
		return ErrUserIDTooLong
	}
	return nil
}

// validateMessage checks the shared message constraints used by request types.
func validateMessage(msg string) error {
	if msg == "" {
		return ErrEmptyMessage
	}
	if len(msg) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// PlanningStartRequest is the payload for starting a planning conversation.
type PlanningStartRequest struct {
	UserID string `json:"user_id"`
}

// Validate performs validation on a PlanningStartRequest.
func (r *PlanningStartRequest) Validate() error {
	return validateUserID(r.UserID)
}

// PlanningContinueRequest is the payload for continuing a planning conversation.
type PlanningContinueRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// Validate performs validation on a PlanningContinueRequest.
func (r *PlanningContinueRequest) Validate() error {
	if err := validateUserID(r.UserID); err != nil {
		return err
	}
	return validateMessage(r.Message)
}

// WorkBlockStartRequest is the payload for proposing work block durations.
type WorkBlockStartRequest struct {
	UserID          string `json:"user_id"`
	TaskDescription string `json:"task_description"`
}

// Validate performs validation on a WorkBlockStartRequest.
func (r *WorkBlockStartRequest) Validate() error {
	if err := validateUserID(r.UserID); err != nil {
		return err
	}
	if r.TaskDescription == "" {
		return ErrEmptyTaskDescription
	}
	if len(r.TaskDescription) > MaxTaskDescriptionLength {
		return ErrTaskDescriptionLong
	}
	return nil
}

// ConfirmDurationRequest is the payload for confirming a work block duration.
type ConfirmDurationRequest struct {
	UserID          string `json:"user_id"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Validate performs validation on a ConfirmDurationRequest.
func (r *ConfirmDurationRequest) Validate() error {
	if err := validateUserID(r.UserID); err != nil {
		return err
	}
	if r.DurationMinutes < MinWorkBlockMinutes || r.DurationMinutes > MaxWorkBlockMinutes {
		return ErrDurationOutOfRange
	}
	return nil
}

// StateCheckRequest is the payload for a dynamic state check during a work block.
type StateCheckRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// Validate performs validation on a StateCheckRequest.
func (r *StateCheckRequest) Validate() error {
	if err := validateUserID(r.UserID); err != nil {
		return err
	}
	return validateMessage(r.Message)
}

// BreakDecisionRequest is the payload for requesting break options after a
// work block ends.
type BreakDecisionRequest struct {
	UserID      string `json:"user_id"`
	WorkBlockID string `json:"work_block_id"`
}

// Validate performs validation on a BreakDecisionRequest.
func (r *BreakDecisionRequest) Validate() error {
	if err := validateUserID(r.UserID); err != nil {
		return err
	}
	if r.WorkBlockID == "" {
		return ErrEmptyWorkBlockID
	}
	return nil
}

// EmotionDetectRequest is the payload for standalone emotional state detection.
type EmotionDetectRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// Validate performs validation on an EmotionDetectRequest.
func (r *EmotionDetectRequest) Validate() error {
	if err := validateUserID(r.UserID); err != nil {
		return err
	}
	if r.Text == "" {
		return ErrEmptyMessage
	}
	if len(r.Text) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// MorningSessionRequest is the payload for analyzing a morning planning session.
type MorningSessionRequest struct {
	UserID     string `json:"user_id"`
	Transcript string `json:"transcript"`
}

// Validate performs validation on a MorningSessionRequest.
func (r *MorningSessionRequest) Validate() error {
	if err := validateUserID(r.UserID); err != nil {
		return err
	}
	if r.Transcript == "" {
		return ErrEmptyTranscript
	}
	if len(r.Transcript) > MaxTranscriptLength {
		return ErrTranscriptTooLong
	}
	return nil
}

// ChatRequest is the payload for a companion chat message.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// Validate performs validation on a ChatRequest.
func (r *ChatRequest) Validate() error {
	if err := validateUserID(r.UserID); err != nil {
		return err
	}
	return validateMessage(r.Message)
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusSuccess indicates an API request completed successfully.
	APIStatusSuccess APIStatus = "success"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with the given result.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusSuccess).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and result.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusSuccess).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with the given message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}
