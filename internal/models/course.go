package models

import (
	"time"
)

// Course groups modules and carries the fixed reward granted on full
// completion.
type Course struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null;size:255" json:"title"`
	Slug        string    `gorm:"uniqueIndex;size:255" json:"slug"`
	XPReward    int64     `gorm:"column:xp_reward;not null;default:0" json:"xp_reward"`
	CoinReward  int64     `gorm:"not null;default:0" json:"coin_reward"`
	IsPublished bool      `gorm:"not null;default:false" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Modules []CourseModule `gorm:"foreignKey:CourseID" json:"modules,omitempty"`
}

// TableName specifies the table name for Course model.
func (Course) TableName() string {
	return "courses"
}

// CourseModule is an ordered section of a course.
type CourseModule struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;index" json:"course_id"`
	Title     string    `gorm:"not null;size:255" json:"title"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time `json:"created_at"`

	Lessons []Lesson `gorm:"foreignKey:ModuleID" json:"lessons,omitempty"`
}

// TableName specifies the table name for CourseModule model.
func (CourseModule) TableName() string {
	return "course_modules"
}

// Lesson is an individual unit of learning content with a fixed per-lesson
// reward. Only published lessons count toward course progress.
type Lesson struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	ModuleID    uint         `gorm:"not null;index" json:"module_id"`
	Module      CourseModule `gorm:"foreignKey:ModuleID" json:"module,omitempty"`
	Title       string       `gorm:"not null;size:255" json:"title"`
	Position    int          `gorm:"not null;default:0" json:"position"`
	XPReward    int64        `gorm:"column:xp_reward;not null;default:0" json:"xp_reward"`
	CoinReward  int64        `gorm:"not null;default:0" json:"coin_reward"`
	IsPublished bool         `gorm:"not null;default:false;index" json:"is_published"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	Questions []QuizQuestion `gorm:"foreignKey:LessonID" json:"questions,omitempty"`
}

// TableName specifies the table name for Lesson model.
func (Lesson) TableName() string {
	return "lessons"
}

// QuizQuestion is a multiple-choice question attached to a lesson. Answer is
// the index of the correct option.
type QuizQuestion struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	LessonID uint   `gorm:"not null;index" json:"lesson_id"`
	Position int    `gorm:"not null;default:0" json:"position"`
	Question string `gorm:"type:text;not null" json:"question"`
	Options  string `gorm:"type:text" json:"options"` // JSON array of option strings
	Answer   int    `gorm:"not null" json:"answer"`
}

// TableName specifies the table name for QuizQuestion model.
func (QuizQuestion) TableName() string {
	return "quiz_questions"
}
