package notification

import (
	"time"
)

// Kind - what triggered the notification.
type Kind string

const (
	KindAnswer  Kind = "answer"
	KindComment Kind = "comment"
	KindMention Kind = "mention"
)

func (k Kind) Valid() bool {
	switch k {
	case KindAnswer, KindComment, KindMention:
		return true
	}
	return false
}

// Notification - a row per recipient. SourceID is the answer or comment that
// triggered it and is not checked against Type. Only Read ever changes.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Type      Kind      `gorm:"size:20;not null" json:"type"`
	SourceID  uint      `gorm:"not null" json:"source_id"`
	Read      bool      `gorm:"default:false;not null" json:"read"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
