package models

import (
	"time"

	"gorm.io/gorm"
)

// User is keyed by wallet address (always stored lowercased).
// is_kyc_verified is an externally-supplied fact — this service never runs KYC.
type User struct {
	ID            string  `gorm:"primaryKey;type:uuid" json:"id"`
	WalletAddress string  `gorm:"uniqueIndex;not null" json:"wallet_address"`
	Username      *string `json:"username,omitempty"`
	AvatarURL     *string `json:"avatar_url,omitempty"`
	Bio           *string `json:"bio,omitempty"`

	// Denormalized stats, incremented atomically on successful settlement.
	TotalEarned         float64 `gorm:"default:0" json:"total_earned"`
	QuestCompletedCount int64   `gorm:"default:0" json:"quest_completed_count"`
	ReputationScore     int64   `gorm:"default:0" json:"reputation_score"`

	IsKYCVerified bool `gorm:"default:false" json:"is_kyc_verified"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
