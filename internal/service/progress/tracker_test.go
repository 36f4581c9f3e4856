package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/edumate/progression/internal/models"
	"github.com/edumate/progression/internal/repository"
	"github.com/edumate/progression/pkg/logger"
)

func setupTrackerTest(t *testing.T) (*repository.DB, *Tracker) {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.CourseModule{},
		&models.Lesson{},
		&models.LessonProgress{},
		&models.Enrollment{},
	))

	db := &repository.DB{DB: gormDB}
	tracker := NewTracker(
		repository.NewCourseRepository(db),
		repository.NewProgressRepository(db),
		logger.New("error", "text", "stdout"),
	)
	return db, tracker
}

// createCourseFixture builds a published course with one module and the given
// number of published lessons, returning the course and lesson IDs.
func createCourseFixture(t *testing.T, db *repository.DB, lessonCount int) (uint, []uint) {
	t.Helper()

	course := &models.Course{Title: "Go Basics", Slug: "go-basics", XPReward: 50, IsPublished: true}
	require.NoError(t, db.Create(course).Error)

	module := &models.CourseModule{CourseID: course.ID, Title: "Module 1", Position: 1}
	require.NoError(t, db.Create(module).Error)

	ids := make([]uint, 0, lessonCount)
	for i := 0; i < lessonCount; i++ {
		lesson := &models.Lesson{
			ModuleID:    module.ID,
			Title:       "Lesson",
			Position:    i + 1,
			XPReward:    10,
			IsPublished: true,
		}
		require.NoError(t, db.Create(lesson).Error)
		ids = append(ids, lesson.ID)
	}
	return course.ID, ids
}

func TestCompleteLesson_FirstTime(t *testing.T) {
	db, tracker := setupTrackerTest(t)
	_, lessons := createCourseFixture(t, db, 1)

	progress, err := tracker.CompleteLesson(1, lessons[0])
	require.NoError(t, err)
	assert.True(t, progress.IsCompleted)
	assert.Equal(t, float64(100), progress.ProgressPercentage)
}

func TestCompleteLesson_CompletedIsTerminal(t *testing.T) {
	db, tracker := setupTrackerTest(t)
	_, lessons := createCourseFixture(t, db, 1)

	_, err := tracker.CompleteLesson(1, lessons[0])
	require.NoError(t, err)

	_, err = tracker.CompleteLesson(1, lessons[0])
	assert.ErrorIs(t, err, models.ErrAlreadyCompleted)
}

func TestRecordQuizAttempt(t *testing.T) {
	db, tracker := setupTrackerTest(t)
	_, lessons := createCourseFixture(t, db, 1)

	ratio, err := tracker.RecordQuizAttempt(1, lessons[0], 7, 10)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, ratio, 1e-9)

	progress, err := tracker.LessonProgress(1, lessons[0])
	require.NoError(t, err)
	assert.True(t, progress.IsCompleted)
	assert.Equal(t, 7, progress.Score)
	assert.Equal(t, 10, progress.MaxScore)

	// Any score completes the lesson; a retake is a duplicate.
	_, err = tracker.RecordQuizAttempt(1, lessons[0], 10, 10)
	assert.ErrorIs(t, err, models.ErrAlreadyCompleted)
}

func TestRecordQuizAttempt_EmptyQuiz(t *testing.T) {
	db, tracker := setupTrackerTest(t)
	_, lessons := createCourseFixture(t, db, 1)

	ratio, err := tracker.RecordQuizAttempt(1, lessons[0], 0, 0)
	require.NoError(t, err)
	assert.Zero(t, ratio)

	progress, err := tracker.LessonProgress(1, lessons[0])
	require.NoError(t, err)
	assert.True(t, progress.IsCompleted)
}

func TestRecomputeCourseProgress_Percentage(t *testing.T) {
	db, tracker := setupTrackerTest(t)
	courseID, lessons := createCourseFixture(t, db, 3)

	_, err := tracker.CompleteLesson(1, lessons[0])
	require.NoError(t, err)

	result, err := tracker.RecomputeCourseProgress(1, courseID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Enrollment.CompletedLessons)
	assert.Equal(t, 3, result.Enrollment.TotalLessons)
	assert.Equal(t, 33.33, result.Enrollment.ProgressPercentage)
	assert.False(t, result.CompletedNow)
}

func TestRecomputeCourseProgress_IgnoresUnpublished(t *testing.T) {
	db, tracker := setupTrackerTest(t)
	courseID, lessons := createCourseFixture(t, db, 2)

	// An unpublished lesson must not count toward the total.
	var lesson models.Lesson
	require.NoError(t, db.First(&lesson, lessons[0]).Error)
	draft := &models.Lesson{ModuleID: lesson.ModuleID, Title: "Draft", Position: 99}
	require.NoError(t, db.Create(draft).Error)

	for _, id := range lessons {
		_, err := tracker.CompleteLesson(1, id)
		require.NoError(t, err)
	}

	result, err := tracker.RecomputeCourseProgress(1, courseID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Enrollment.TotalLessons)
	assert.Equal(t, float64(100), result.Enrollment.ProgressPercentage)
	assert.True(t, result.CompletedNow)
}

func TestRecomputeCourseProgress_CompletionWonOnce(t *testing.T) {
	db, tracker := setupTrackerTest(t)
	courseID, lessons := createCourseFixture(t, db, 1)

	_, err := tracker.CompleteLesson(1, lessons[0])
	require.NoError(t, err)

	first, err := tracker.RecomputeCourseProgress(1, courseID)
	require.NoError(t, err)
	assert.True(t, first.CompletedNow)
	assert.Equal(t, models.EnrollmentCompleted, first.Enrollment.Status)

	second, err := tracker.RecomputeCourseProgress(1, courseID)
	require.NoError(t, err)
	assert.False(t, second.CompletedNow, "only the winning call grants the course reward")
}

func TestRecomputeCourseProgress_EmptyCourse(t *testing.T) {
	db, tracker := setupTrackerTest(t)

	course := &models.Course{Title: "Empty", Slug: "empty", IsPublished: true}
	require.NoError(t, db.Create(course).Error)

	result, err := tracker.RecomputeCourseProgress(1, course.ID)
	require.NoError(t, err)
	assert.Zero(t, result.Enrollment.TotalLessons)
	assert.Zero(t, result.Enrollment.ProgressPercentage)
	assert.False(t, result.CompletedNow, "a course with no lessons never completes")
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 33.33, round2(100.0/3))
	assert.Equal(t, 66.67, round2(200.0/3))
	assert.Equal(t, float64(50), round2(50))
}
