package models

import (
	"time"
)

// Currency identifies which user balance a transaction affects.
const (
	CurrencyXP   = "xp"
	CurrencyCoin = "coin"
)

// ActionType constants for point transactions.
const (
	ActionLessonComplete    = "lesson_complete"
	ActionQuizComplete      = "quiz_complete"
	ActionCourseComplete    = "course_complete"
	ActionAchievementUnlock = "achievement_unlock"
	ActionAdminAdjustment   = "admin_adjustment"
)

// ReferenceType constants for point transactions.
const (
	RefTypeLesson      = "lesson"
	RefTypeCourse      = "course"
	RefTypeAchievement = "achievement"
)

// PointTransaction is an immutable, append-only ledger entry. A user's cached
// xp_total / coin_balance must always equal the sum of their XP / coin
// transaction amounts.
type PointTransaction struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	User          User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Amount        int64     `gorm:"not null" json:"amount"`
	Currency      string    `gorm:"not null;size:10;index" json:"currency"` // 'xp' or 'coin'
	ActionType    string    `gorm:"not null;size:50;index" json:"action_type"`
	Description   string    `gorm:"type:text" json:"description"`
	ReferenceID   uint      `gorm:"index" json:"reference_id"`
	ReferenceType string    `gorm:"size:50" json:"reference_type"` // 'lesson', 'course', 'achievement'
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for PointTransaction model.
func (PointTransaction) TableName() string {
	return "point_transactions"
}
