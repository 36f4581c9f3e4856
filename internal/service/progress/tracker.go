// Package progress tracks per-lesson completion state and derives course
// progress from it.
package progress

import (
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/edumate/progression/internal/models"
	"github.com/edumate/progression/internal/repository"
	"github.com/edumate/progression/pkg/logger"
)

// Tracker maintains lesson and course completion state. A lesson moves
// not_started -> in_progress -> completed; completed is terminal.
type Tracker struct {
	courseRepo   *repository.CourseRepository
	progressRepo *repository.ProgressRepository
	log          *logger.Logger
}

// NewTracker creates a new progress tracker.
func NewTracker(courseRepo *repository.CourseRepository, progressRepo *repository.ProgressRepository, log *logger.Logger) *Tracker {
	return &Tracker{
		courseRepo:   courseRepo,
		progressRepo: progressRepo,
		log:          log,
	}
}

// WithTx returns a copy of the tracker bound to the given transaction.
func (t *Tracker) WithTx(tx *gorm.DB) *Tracker {
	return &Tracker{
		courseRepo:   t.courseRepo.WithTx(tx),
		progressRepo: t.progressRepo.WithTx(tx),
		log:          t.log,
	}
}

// CompleteLesson marks a lesson completed for a user. Returns
// models.ErrAlreadyCompleted when the lesson was completed before; the caller
// must not grant a reward in that case.
func (t *Tracker) CompleteLesson(userID, lessonID uint) (*models.LessonProgress, error) {
	progress, err := t.progressRepo.GetLessonProgress(userID, lessonID)
	if err != nil {
		return nil, err
	}
	if progress != nil && progress.IsCompleted {
		return progress, models.ErrAlreadyCompleted
	}

	if progress == nil {
		progress = &models.LessonProgress{UserID: userID, LessonID: lessonID}
	}
	progress.IsCompleted = true
	progress.ProgressPercentage = 100

	if err := t.progressRepo.SaveLessonProgress(progress); err != nil {
		return nil, err
	}
	return progress, nil
}

// RecordQuizAttempt records a quiz result and marks the lesson completed.
// Any score counts as completion; there is no pass gate. Returns the partial
// reward ratio correct/total (0 when total is 0) for the reward engine to
// scale XP with, and models.ErrAlreadyCompleted when the lesson was completed
// before.
func (t *Tracker) RecordQuizAttempt(userID, lessonID uint, correct, total int) (float64, error) {
	progress, err := t.progressRepo.GetLessonProgress(userID, lessonID)
	if err != nil {
		return 0, err
	}
	if progress != nil && progress.IsCompleted {
		return 0, models.ErrAlreadyCompleted
	}

	if progress == nil {
		progress = &models.LessonProgress{UserID: userID, LessonID: lessonID}
	}
	progress.Score = correct
	progress.MaxScore = total
	progress.IsCompleted = true
	progress.ProgressPercentage = 100

	if err := t.progressRepo.SaveLessonProgress(progress); err != nil {
		return 0, err
	}

	if total == 0 {
		return 0, nil
	}
	return float64(correct) / float64(total), nil
}

// CourseProgress summarizes the result of a recompute.
type CourseProgress struct {
	Enrollment   *models.Enrollment
	CompletedNow bool // this call won the active -> completed transition
}

// RecomputeCourseProgress recounts published lessons under the course and the
// subset completed by the user, and rewrites the enrollment counters. When the
// recomputed percentage reaches 100 it attempts the active -> completed
// transition; the completed_at IS NULL guard ensures exactly one caller wins
// it, and that caller is told to grant the course reward.
func (t *Tracker) RecomputeCourseProgress(userID, courseID uint) (*CourseProgress, error) {
	lessonIDs, err := t.courseRepo.ListPublishedLessonIDs(courseID)
	if err != nil {
		return nil, err
	}
	total := len(lessonIDs)

	completed, err := t.progressRepo.CountCompletedLessons(userID, lessonIDs)
	if err != nil {
		return nil, err
	}

	enrollment, err := t.progressRepo.GetOrCreateEnrollment(userID, courseID)
	if err != nil {
		return nil, err
	}

	var percentage float64
	if total > 0 {
		percentage = round2(float64(completed) / float64(total) * 100)
	}

	if err := t.progressRepo.UpdateEnrollmentCounters(enrollment.ID, int(completed), total, percentage); err != nil {
		return nil, err
	}
	enrollment.CompletedLessons = int(completed)
	enrollment.TotalLessons = total
	enrollment.ProgressPercentage = percentage

	result := &CourseProgress{Enrollment: enrollment}

	if total > 0 && percentage >= 100 && enrollment.CompletedAt == nil {
		now := time.Now().UTC()
		won, err := t.progressRepo.MarkEnrollmentCompleted(enrollment.ID, now)
		if err != nil {
			return nil, err
		}
		if won {
			enrollment.Status = models.EnrollmentCompleted
			enrollment.CompletedAt = &now
			result.CompletedNow = true
			t.log.Info().
				Uint("user_id", userID).
				Uint("course_id", courseID).
				Msg("Course completed")
		}
	}

	return result, nil
}

// LessonProgress returns the progress row for a (user, lesson) pair, nil when
// the lesson is not started.
func (t *Tracker) LessonProgress(userID, lessonID uint) (*models.LessonProgress, error) {
	return t.progressRepo.GetLessonProgress(userID, lessonID)
}

// Enrollments returns all of a user's enrollments.
func (t *Tracker) Enrollments(userID uint) ([]models.Enrollment, error) {
	return t.progressRepo.ListEnrollments(userID)
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
