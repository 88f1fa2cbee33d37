package models

import "time"

// Follow event types.
const (
	FollowEventFollow   = "follow"
	FollowEventUnfollow = "unfollow"
)

// Outbox delivery states.
const (
	OutboxStatusPending = "pending"
	OutboxStatusSent    = "sent"
	OutboxStatusFailed  = "failed"
)

// FollowEvent is an outbox row written in the same transaction as a follow
// state change and later relayed to the event stream.
type FollowEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventType string    `gorm:"size:16;not null" json:"event_type"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	AuthorID  uint      `gorm:"not null" json:"author_id"`
	Payload   string    `gorm:"type:text;not null" json:"payload"`
	Status    string    `gorm:"size:16;not null;default:pending;index" json:"status"`
	Attempts  int       `gorm:"not null;default:0" json:"attempts"`
	LastError string    `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
