package models

import "time"

// DailyCheckin: one row per user per calendar day (UTC date string).
type DailyCheckin struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserWallet   string    `gorm:"not null;uniqueIndex:idx_wallet_day" json:"user_wallet"`
	CheckinDate  string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_wallet_day" json:"checkin_date"` // YYYY-MM-DD
	PointsEarned int64     `gorm:"not null" json:"points_earned"`
	StreakCount  int64     `gorm:"not null" json:"streak_count"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}
