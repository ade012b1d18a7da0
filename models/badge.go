package models

import "time"

// Badge is a milestone marker, at most one per (user_wallet, badge_type).
// Issuance is best-effort relative to the reward transaction.
type Badge struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	UserWallet string `gorm:"not null;uniqueIndex:idx_wallet_badge" json:"user_wallet"`
	BadgeType  string `gorm:"not null;uniqueIndex:idx_wallet_badge" json:"badge_type"`

	Tier     string    `gorm:"type:varchar(16)" json:"tier"` // Bronze, Silver, Gold
	Metadata string    `gorm:"type:text" json:"metadata,omitempty"`
	EarnedAt time.Time `gorm:"autoCreateTime" json:"earned_at"`
}

// BadgeTrigger maps a completion-count threshold to a badge grant.
type BadgeTrigger struct {
	BadgeType string
	Name      string
	Tier      string
	Threshold int64 // quest_completed_count at which the badge is earned
}

// BadgeTriggers are evaluated in order after every successful completion.
var BadgeTriggers = []BadgeTrigger{
	{BadgeType: "first_quest", Name: "First Quest", Tier: "Bronze", Threshold: 1},
	{BadgeType: "quest_master_10", Name: "Quest Master", Tier: "Bronze", Threshold: 10},
	{BadgeType: "quest_master_50", Name: "Quest Master", Tier: "Silver", Threshold: 50},
	{BadgeType: "quest_master_100", Name: "Quest Master", Tier: "Gold", Threshold: 100},
}
