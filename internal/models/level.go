package models

import (
	"time"
)

// Level is a static reference entity mapping a cumulative XP threshold to a
// tier. Admin-managed; read-only from the engine's perspective.
type Level struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	LevelNumber int       `gorm:"uniqueIndex;not null" json:"level_number"`
	Title       string    `gorm:"not null;size:100" json:"title"`
	XPRequired  int64     `gorm:"column:xp_required;not null;index" json:"xp_required"`
	Badge       string    `gorm:"size:50" json:"badge"`
	Color       string    `gorm:"size:20" json:"color"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for Level model.
func (Level) TableName() string {
	return "levels"
}
