package models

import "time"

// QuestCompletion is the authoritative record of one settled claim.
// Exactly one row may exist per (quest_id, user_wallet) — enforced by the
// composite unique index, not by a check-then-insert.
// Rows are created once by a successful settlement and never mutated.
type QuestCompletion struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	QuestID    string `gorm:"not null;uniqueIndex:idx_quest_user" json:"quest_id"`
	UserWallet string `gorm:"not null;uniqueIndex:idx_quest_user" json:"user_wallet"`

	RewardAmount  float64 `gorm:"not null" json:"reward_amount"`
	RewardClaimed bool    `gorm:"default:true" json:"reward_claimed"`

	// Settlement proof on the distributed ledger. nil for off-chain-only
	// quests; never nil for contract-backed ones.
	TxHash *string `gorm:"index" json:"tx_hash,omitempty"`

	CompletedAt time.Time `gorm:"autoCreateTime" json:"completed_at"`
}
