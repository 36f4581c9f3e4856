package models

import (
	"time"
)

// User represents a learner in the system. XPTotal, CoinBalance and Level are
// cached aggregates: the canonical values are derived from the point ledger and
// the level table, and are only mutated through the reward engine or explicit
// admin action.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"uniqueIndex;not null;size:255" json:"username"`
	Email       string    `gorm:"size:255" json:"email"`
	XPTotal     int64     `gorm:"column:xp_total;not null;default:0" json:"xp_total"`
	CoinBalance int64     `gorm:"not null;default:0" json:"coin_balance"`
	Level       int       `gorm:"not null;default:1" json:"level"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}
