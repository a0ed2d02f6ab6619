package models

import "time"

// ChatInteraction is the durable record of one companion chat exchange: the
// user's message and the reply it got.
type ChatInteraction struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	UserMessage string    `json:"user_message"`
	Reply       string    `json:"reply"`
	CreatedAt   time.Time `json:"created_at"`
}
