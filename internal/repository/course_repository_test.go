package repository

import (
	"errors"
	"testing"

	"github.com/edumate/progression/internal/models"
)

func TestCourseRepository_GetCourseForLesson(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCourseRepository(db)
	course, lessons := createTestCourse(t, db, "go-basics", "intro", "types")

	got, err := repo.GetCourseForLesson(lessons[1].ID)
	if err != nil {
		t.Fatalf("GetCourseForLesson failed: %v", err)
	}
	if got.ID != course.ID {
		t.Errorf("Expected course %d, got %d", course.ID, got.ID)
	}
}

func TestCourseRepository_GetCourseForLesson_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCourseRepository(db)

	_, err := repo.GetCourseForLesson(999)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCourseRepository_GetLessonByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCourseRepository(db)
	_, lessons := createTestCourse(t, db, "go-basics", "intro")

	got, err := repo.GetLessonByID(lessons[0].ID)
	if err != nil {
		t.Fatalf("GetLessonByID failed: %v", err)
	}
	if got.Title != "intro" {
		t.Errorf("Expected lesson intro, got %s", got.Title)
	}

	_, err = repo.GetLessonByID(999)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCourseRepository_ListPublishedLessonIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCourseRepository(db)
	course, lessons := createTestCourse(t, db, "go-basics", "intro", "draft-extras", "types")
	other, _ := createTestCourse(t, db, "go-advanced", "generics")

	ids, err := repo.ListPublishedLessonIDs(course.ID)
	if err != nil {
		t.Fatalf("ListPublishedLessonIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Expected 2 published lessons, got %d", len(ids))
	}
	for _, id := range ids {
		if id == lessons[1].ID {
			t.Error("Expected unpublished lesson to be excluded")
		}
	}

	otherIDs, err := repo.ListPublishedLessonIDs(other.ID)
	if err != nil {
		t.Fatalf("ListPublishedLessonIDs failed: %v", err)
	}
	if len(otherIDs) != 1 {
		t.Errorf("Expected lessons scoped to their course, got %d", len(otherIDs))
	}
}

func TestCourseRepository_GetQuizQuestions_Order(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCourseRepository(db)
	_, lessons := createTestCourse(t, db, "go-basics", "intro")

	for _, q := range []models.QuizQuestion{
		{LessonID: lessons[0].ID, Position: 2, Question: "second", Answer: 1},
		{LessonID: lessons[0].ID, Position: 1, Question: "first", Answer: 0},
		{LessonID: lessons[0].ID, Position: 3, Question: "third", Answer: 2},
	} {
		question := q
		if err := db.Create(&question).Error; err != nil {
			t.Fatalf("Failed to create question: %v", err)
		}
	}

	questions, err := repo.GetQuizQuestions(lessons[0].ID)
	if err != nil {
		t.Fatalf("GetQuizQuestions failed: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("Expected 3 questions, got %d", len(questions))
	}
	for i, want := range []string{"first", "second", "third"} {
		if questions[i].Question != want {
			t.Errorf("Position %d: expected %q, got %q", i, want, questions[i].Question)
		}
	}
}

func TestCourseRepository_GetCourseByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCourseRepository(db)

	_, err := repo.GetCourseByID(999)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
