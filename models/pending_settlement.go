package models

import "time"

// PendingSettlement exists only when value has moved on-chain but the
// off-chain commit failed. The tx hash is the idempotency key: the
// reconciliation worker replays the DB commit with it, never a second
// settlement. Rows are deleted once the completion is recorded.
type PendingSettlement struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	TxHash     string `gorm:"uniqueIndex;not null" json:"tx_hash"` // settlement proof
	QuestID    string `gorm:"index;not null" json:"quest_id"`
	UserWallet string `gorm:"not null" json:"user_wallet"`

	RewardAmount float64 `gorm:"not null" json:"reward_amount"`

	Attempts  int       `gorm:"default:0" json:"attempts"`
	LastError string    `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
