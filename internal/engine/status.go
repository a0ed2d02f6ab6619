package engine

import (
	"sort"
	"time"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

// Status is the read-only view of a user's engine state: the active
// conversation, any pending work block offer, and every timer the user owns
// with derived elapsed and remaining minutes.
type Status struct {
	UserID                string                   `json:"user_id"`
	HasActiveConversation bool                     `json:"has_active_conversation"`
	ConversationStage     models.ConversationStage `json:"conversation_state,omitempty"`
	PendingWorkBlock      *models.PendingWorkBlock `json:"pending_work_block,omitempty"`
	ActiveWorkBlocks      []models.TimerStatus     `json:"active_work_blocks"`
	LastUpdate            time.Time                `json:"last_update"`
}

// GetStatus reports the user's current conversation stage and timers. It
// never mutates anything; remaining minutes go negative once a block
// overruns its planned duration.
func (e *Engine) GetStatus(userID string) Status {
	now := time.Now().UTC()

	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{
		UserID:           userID,
		ActiveWorkBlocks: []models.TimerStatus{},
		LastUpdate:       now,
	}
	if conv, ok := e.conversations[userID]; ok {
		st.HasActiveConversation = true
		st.ConversationStage = conv.Stage
		st.PendingWorkBlock = conv.PendingWorkBlock
	}
	for _, t := range e.timers {
		if t.UserID != userID {
			continue
		}
		st.ActiveWorkBlocks = append(st.ActiveWorkBlocks, t.Status(now))
	}
	sort.Slice(st.ActiveWorkBlocks, func(i, j int) bool {
		return st.ActiveWorkBlocks[i].WorkBlockID < st.ActiveWorkBlocks[j].WorkBlockID
	})
	return st
}
