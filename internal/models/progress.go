package models

import (
	"time"
)

// Enrollment status constants.
const (
	EnrollmentActive    = "active"
	EnrollmentCompleted = "completed"
)

// LessonProgress tracks per (user, lesson) completion state. One row exists
// per pair; it is created on first interaction and updated, never duplicated.
// Completion is terminal: re-submission does not regress state.
type LessonProgress struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"not null;uniqueIndex:idx_user_lesson" json:"user_id"`
	User               User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	LessonID           uint      `gorm:"not null;uniqueIndex:idx_user_lesson" json:"lesson_id"`
	Lesson             Lesson    `gorm:"foreignKey:LessonID" json:"lesson,omitempty"`
	IsCompleted        bool      `gorm:"not null;default:false" json:"is_completed"`
	ProgressPercentage float64   `gorm:"not null;default:0" json:"progress_percentage"`
	Score              int       `gorm:"not null;default:0" json:"score"`
	MaxScore           int       `gorm:"not null;default:0" json:"max_score"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName specifies the table name for LessonProgress model.
func (LessonProgress) TableName() string {
	return "lesson_progress"
}

// Enrollment is a user's relationship to a course, tracking aggregate lesson
// progress. ProgressPercentage always equals
// round(completed_lessons/total_lessons*100, 2) when total_lessons > 0. The
// status transitions active -> completed exactly once; CompletedAt doubles as
// the idempotence guard for the course-level reward.
type Enrollment struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	UserID             uint       `gorm:"not null;uniqueIndex:idx_user_course" json:"user_id"`
	User               User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CourseID           uint       `gorm:"not null;uniqueIndex:idx_user_course" json:"course_id"`
	Course             Course     `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	CompletedLessons   int        `gorm:"not null;default:0" json:"completed_lessons"`
	TotalLessons       int        `gorm:"not null;default:0" json:"total_lessons"`
	ProgressPercentage float64    `gorm:"not null;default:0" json:"progress_percentage"`
	Status             string     `gorm:"not null;size:50;default:active" json:"status"`
	CompletedAt        *time.Time `json:"completed_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Enrollment model.
func (Enrollment) TableName() string {
	return "enrollments"
}
