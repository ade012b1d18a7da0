package models

import "time"

const (
	NotificationQuestCompleted = "quest_completed"
	NotificationBadgeEarned    = "badge_earned"
)

// Notification is the outbox row consumed by the notification sink.
// Writing it is fire-and-forget: a failure never fails the claim.
type Notification struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string `gorm:"index;not null" json:"user_id"` // wallet address
	Type     string `gorm:"type:varchar(32);not null" json:"type"`
	Title    string `gorm:"not null" json:"title"`
	Message  string `gorm:"type:text;not null" json:"message"`
	Metadata string `gorm:"type:text" json:"metadata,omitempty"`
	IsRead   bool   `gorm:"default:false;index" json:"is_read"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
