package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/edumate/progression/internal/models"
)

// CourseRepository handles read access to the course/module/lesson hierarchy.
// Authoring that content is out of scope; the engine only consumes it.
type CourseRepository struct {
	db *DB
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(db *DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{db: &DB{tx}}
}

// GetCourseByID retrieves a course by ID.
func (r *CourseRepository) GetCourseByID(id uint) (*models.Course, error) {
	var course models.Course
	if err := r.db.First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("course %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get course %d: %w", id, err)
	}
	return &course, nil
}

// GetLessonByID retrieves a lesson by ID.
func (r *CourseRepository) GetLessonByID(id uint) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := r.db.First(&lesson, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("lesson %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get lesson %d: %w", id, err)
	}
	return &lesson, nil
}

// GetCourseForLesson resolves the course a lesson belongs to through its
// module.
func (r *CourseRepository) GetCourseForLesson(lessonID uint) (*models.Course, error) {
	var course models.Course
	err := r.db.
		Joins("JOIN course_modules ON course_modules.course_id = courses.id").
		Joins("JOIN lessons ON lessons.module_id = course_modules.id").
		Where("lessons.id = ?", lessonID).
		First(&course).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("course for lesson %d: %w", lessonID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get course for lesson %d: %w", lessonID, err)
	}
	return &course, nil
}

// ListPublishedLessonIDs returns the IDs of all published lessons under a
// course's modules.
func (r *CourseRepository) ListPublishedLessonIDs(courseID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Lesson{}).
		Joins("JOIN course_modules ON course_modules.id = lessons.module_id").
		Where("course_modules.course_id = ? AND lessons.is_published = ?", courseID, true).
		Pluck("lessons.id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons for course %d: %w", courseID, err)
	}
	return ids, nil
}

// GetQuizQuestions retrieves a lesson's quiz questions in position order.
func (r *CourseRepository) GetQuizQuestions(lessonID uint) ([]models.QuizQuestion, error) {
	var questions []models.QuizQuestion
	err := r.db.Where("lesson_id = ?", lessonID).
		Order("position ASC, id ASC").
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz questions for lesson %d: %w", lessonID, err)
	}
	return questions, nil
}
