package models

import "time"

// Stake records tokens a user has locked. The engine only cares about the
// active total (staker bonus eligibility) — yield math lives elsewhere.
type Stake struct {
	ID         string  `gorm:"primaryKey;type:uuid" json:"id"`
	UserWallet string  `gorm:"index;not null" json:"user_wallet"`
	Amount     float64 `gorm:"not null" json:"amount"`
	IsActive   bool    `gorm:"default:true;index" json:"is_active"`

	StakedAt   time.Time  `gorm:"autoCreateTime" json:"staked_at"`
	UnstakedAt *time.Time `json:"unstaked_at,omitempty"`
}
