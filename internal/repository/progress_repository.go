package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/edumate/progression/internal/models"
)

// ProgressRepository handles lesson progress and enrollment state.
type ProgressRepository struct {
	db *DB
}

// NewProgressRepository creates a new progress repository.
func NewProgressRepository(db *DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{db: &DB{tx}}
}

// GetLessonProgress retrieves the progress row for a (user, lesson) pair.
// Returns nil without error when no row exists yet.
func (r *ProgressRepository) GetLessonProgress(userID, lessonID uint) (*models.LessonProgress, error) {
	var progress models.LessonProgress
	err := r.db.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson progress: %w", err)
	}
	return &progress, nil
}

// SaveLessonProgress creates or updates the single progress row for a
// (user, lesson) pair. The unique index on the pair rejects duplicates.
func (r *ProgressRepository) SaveLessonProgress(progress *models.LessonProgress) error {
	if progress.ID == 0 {
		if err := r.db.Create(progress).Error; err != nil {
			return fmt.Errorf("failed to create lesson progress: %w", err)
		}
		return nil
	}
	if err := r.db.Save(progress).Error; err != nil {
		return fmt.Errorf("failed to update lesson progress: %w", err)
	}
	return nil
}

// CountCompletedLessons counts completed lessons for a user restricted to the
// given lesson IDs.
func (r *ProgressRepository) CountCompletedLessons(userID uint, lessonIDs []uint) (int64, error) {
	if len(lessonIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&models.LessonProgress{}).
		Where("user_id = ? AND is_completed = ? AND lesson_id IN ?", userID, true, lessonIDs).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count completed lessons: %w", err)
	}
	return count, nil
}

// CountAllCompletedLessons counts every completed lesson for a user. Used by
// the achievement evaluator.
func (r *ProgressRepository) CountAllCompletedLessons(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.LessonProgress{}).
		Where("user_id = ? AND is_completed = ?", userID, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count completed lessons: %w", err)
	}
	return count, nil
}

// CountCompletedCourses counts completed enrollments for a user.
func (r *ProgressRepository) CountCompletedCourses(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Enrollment{}).
		Where("user_id = ? AND status = ?", userID, models.EnrollmentCompleted).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count completed courses: %w", err)
	}
	return count, nil
}

// GetOrCreateEnrollment returns the enrollment for a (user, course) pair,
// creating an active one on first interaction.
func (r *ProgressRepository) GetOrCreateEnrollment(userID, courseID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := r.db.
		Where(models.Enrollment{UserID: userID, CourseID: courseID}).
		Attrs(models.Enrollment{Status: models.EnrollmentActive}).
		FirstOrCreate(&enrollment).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get or create enrollment: %w", err)
	}
	return &enrollment, nil
}

// GetEnrollment retrieves the enrollment for a (user, course) pair.
func (r *ProgressRepository) GetEnrollment(userID, courseID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := r.db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("enrollment user=%d course=%d: %w", userID, courseID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return &enrollment, nil
}

// UpdateEnrollmentCounters writes the recomputed lesson counts and percentage.
func (r *ProgressRepository) UpdateEnrollmentCounters(enrollmentID uint, completed, total int, percentage float64) error {
	err := r.db.Model(&models.Enrollment{}).
		Where("id = ?", enrollmentID).
		Updates(map[string]interface{}{
			"completed_lessons":   completed,
			"total_lessons":       total,
			"progress_percentage": percentage,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update enrollment counters: %w", err)
	}
	return nil
}

// MarkEnrollmentCompleted transitions an enrollment to completed, guarded by
// completed_at IS NULL. Returns true only for the request that won the
// transition, which is the signal to grant the course-level reward.
func (r *ProgressRepository) MarkEnrollmentCompleted(enrollmentID uint, completedAt time.Time) (bool, error) {
	res := r.db.Model(&models.Enrollment{}).
		Where("id = ? AND completed_at IS NULL", enrollmentID).
		Updates(map[string]interface{}{
			"status":       models.EnrollmentCompleted,
			"completed_at": completedAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark enrollment completed: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ListEnrollments retrieves all enrollments for a user.
func (r *ProgressRepository) ListEnrollments(userID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := r.db.Where("user_id = ?", userID).
		Preload("Course").
		Order("created_at ASC").
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments for user %d: %w", userID, err)
	}
	return enrollments, nil
}
