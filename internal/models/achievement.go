// Package models defines domain models for the progression engine.
package models

import (
	"time"
)

// Requirement types for achievements.
const (
	RequirementLessonsCompleted = "lessons_completed"
	RequirementCoursesCompleted = "courses_completed"
	RequirementStreak           = "streak"
	RequirementXPEarned         = "xp_earned"
	RequirementSpecial          = "special"
)

// Achievement is a one-time-unlockable badge tied to a crossed counter
// threshold. Admin-managed.
type Achievement struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Name             string    `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Description      string    `gorm:"type:text" json:"description"`
	Icon             string    `gorm:"size:50" json:"icon"`
	XPReward         int64     `gorm:"column:xp_reward;not null;default:0" json:"xp_reward"`
	CoinReward       int64     `gorm:"not null;default:0" json:"coin_reward"`
	RequirementType  string    `gorm:"not null;size:50" json:"requirement_type"`
	RequirementValue int64     `gorm:"not null;default:0" json:"requirement_value"`
	IsSecret         bool      `gorm:"not null;default:false" json:"is_secret"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name for Achievement model.
func (Achievement) TableName() string {
	return "achievements"
}

// UserAchievement records an unlocked achievement. At most one row exists per
// (user, achievement) pair; once created it is never removed. The uniqueness
// constraint is the sole idempotence mechanism for achievement rewards.
type UserAchievement struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	UserID        uint        `gorm:"not null;uniqueIndex:idx_user_achievement" json:"user_id"`
	User          User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	AchievementID uint        `gorm:"not null;uniqueIndex:idx_user_achievement" json:"achievement_id"`
	Achievement   Achievement `gorm:"foreignKey:AchievementID" json:"achievement,omitempty"`
	UnlockedAt    time.Time   `gorm:"not null" json:"unlocked_at"`
}

// TableName specifies the table name for UserAchievement model.
func (UserAchievement) TableName() string {
	return "user_achievements"
}
