package repository

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/edumate/progression/internal/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	// Enable foreign key constraints (SQLite default is off)
	db.Exec("PRAGMA foreign_keys = ON")

	// Auto-migrate tables
	err = db.AutoMigrate(
		&models.User{},
		&models.Level{},
		&models.PointTransaction{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Course{},
		&models.CourseModule{},
		&models.Lesson{},
		&models.QuizQuestion{},
		&models.LessonProgress{},
		&models.Enrollment{},
	)
	if err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}

	return &DB{db}
}

// createTestUser creates a test user in the database.
func createTestUser(t *testing.T, db *DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Level:    1,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// createTestCourse creates a published course with one module and the given
// lessons. Lessons are published unless their title starts with "draft".
func createTestCourse(t *testing.T, db *DB, title string, lessonTitles ...string) (*models.Course, []models.Lesson) {
	t.Helper()

	course := &models.Course{
		Title:       title,
		Slug:        title,
		XPReward:    50,
		CoinReward:  5,
		IsPublished: true,
	}
	if err := db.Create(course).Error; err != nil {
		t.Fatalf("Failed to create test course: %v", err)
	}

	module := &models.CourseModule{
		CourseID: course.ID,
		Title:    title + " module",
		Position: 1,
	}
	if err := db.Create(module).Error; err != nil {
		t.Fatalf("Failed to create test module: %v", err)
	}

	lessons := make([]models.Lesson, 0, len(lessonTitles))
	for i, lessonTitle := range lessonTitles {
		lesson := models.Lesson{
			ModuleID:    module.ID,
			Title:       lessonTitle,
			Position:    i + 1,
			XPReward:    10,
			CoinReward:  1,
			IsPublished: len(lessonTitle) < 5 || lessonTitle[:5] != "draft",
		}
		if err := db.Create(&lesson).Error; err != nil {
			t.Fatalf("Failed to create test lesson: %v", err)
		}
		lessons = append(lessons, lesson)
	}

	return course, lessons
}

// createTestAchievement creates a test achievement definition.
func createTestAchievement(t *testing.T, db *DB, name, requirementType string, requirementValue int64) *models.Achievement {
	t.Helper()

	achievement := &models.Achievement{
		Name:             name,
		Description:      "test achievement",
		Icon:             "star",
		XPReward:         25,
		CoinReward:       5,
		RequirementType:  requirementType,
		RequirementValue: requirementValue,
	}
	if err := db.Create(achievement).Error; err != nil {
		t.Fatalf("Failed to create test achievement: %v", err)
	}

	return achievement
}

// appendTestTransaction appends a ledger entry with an explicit timestamp.
func appendTestTransaction(t *testing.T, repo *LedgerRepository, userID uint, amount int64, currency string, createdAt time.Time) {
	t.Helper()

	tx := &models.PointTransaction{
		UserID:     userID,
		Amount:     amount,
		Currency:   currency,
		ActionType: models.ActionLessonComplete,
		CreatedAt:  createdAt,
	}
	if err := repo.Append(tx); err != nil {
		t.Fatalf("Failed to append test transaction: %v", err)
	}
}
