package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/edumate/progression/internal/models"
)

func TestAchievementRepository_GetAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAchievementRepository(db)
	createTestAchievement(t, db, "First Steps", models.RequirementLessonsCompleted, 1)
	createTestAchievement(t, db, "Scholar", models.RequirementLessonsCompleted, 25)

	achievements, err := repo.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(achievements) != 2 {
		t.Errorf("Expected 2 achievements, got %d", len(achievements))
	}
}

func TestAchievementRepository_GetByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAchievementRepository(db)

	_, err := repo.GetByID(999)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAchievementRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAchievementRepository(db)

	achievement := &models.Achievement{
		Name:             "First Steps",
		XPReward:         25,
		RequirementType:  models.RequirementLessonsCompleted,
		RequirementValue: 1,
	}
	if err := repo.Upsert(achievement); err != nil {
		t.Fatalf("Upsert insert failed: %v", err)
	}
	originalID := achievement.ID

	updated := &models.Achievement{
		Name:             "First Steps",
		XPReward:         50,
		RequirementType:  models.RequirementLessonsCompleted,
		RequirementValue: 1,
	}
	if err := repo.Upsert(updated); err != nil {
		t.Fatalf("Upsert update failed: %v", err)
	}
	if updated.ID != originalID {
		t.Errorf("Expected upsert to reuse row %d, got %d", originalID, updated.ID)
	}

	got, err := repo.GetByName("First Steps")
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	if got.XPReward != 50 {
		t.Errorf("Expected updated xp_reward 50, got %d", got.XPReward)
	}

	all, err := repo.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected 1 achievement after upsert, got %d", len(all))
	}
}

func TestAchievementRepository_InsertUnlock(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAchievementRepository(db)
	user := createTestUser(t, db, "alice")
	achievement := createTestAchievement(t, db, "First Steps", models.RequirementLessonsCompleted, 1)

	now := time.Now().UTC()
	inserted, err := repo.InsertUnlock(user.ID, achievement.ID, now)
	if err != nil {
		t.Fatalf("InsertUnlock failed: %v", err)
	}
	if !inserted {
		t.Error("Expected first unlock to insert")
	}

	// The unique pair index absorbs the duplicate without error.
	inserted, err = repo.InsertUnlock(user.ID, achievement.ID, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("InsertUnlock duplicate failed: %v", err)
	}
	if inserted {
		t.Error("Expected duplicate unlock to be a no-op")
	}

	count, err := repo.GetUserAchievementCount(user.ID)
	if err != nil {
		t.Fatalf("GetUserAchievementCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 unlock, got %d", count)
	}
}

func TestAchievementRepository_HasUserUnlocked(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAchievementRepository(db)
	user := createTestUser(t, db, "alice")
	achievement := createTestAchievement(t, db, "First Steps", models.RequirementLessonsCompleted, 1)

	unlocked, err := repo.HasUserUnlocked(user.ID, achievement.ID)
	if err != nil {
		t.Fatalf("HasUserUnlocked failed: %v", err)
	}
	if unlocked {
		t.Error("Expected not unlocked yet")
	}

	if _, err := repo.InsertUnlock(user.ID, achievement.ID, time.Now().UTC()); err != nil {
		t.Fatalf("InsertUnlock failed: %v", err)
	}

	unlocked, err = repo.HasUserUnlocked(user.ID, achievement.ID)
	if err != nil {
		t.Fatalf("HasUserUnlocked failed: %v", err)
	}
	if !unlocked {
		t.Error("Expected unlocked after insert")
	}
}

func TestAchievementRepository_GetUserAchievements(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAchievementRepository(db)
	user := createTestUser(t, db, "alice")
	first := createTestAchievement(t, db, "First Steps", models.RequirementLessonsCompleted, 1)
	second := createTestAchievement(t, db, "Scholar", models.RequirementLessonsCompleted, 25)

	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	if _, err := repo.InsertUnlock(user.ID, first.ID, base); err != nil {
		t.Fatalf("InsertUnlock failed: %v", err)
	}
	if _, err := repo.InsertUnlock(user.ID, second.ID, base.Add(time.Hour)); err != nil {
		t.Fatalf("InsertUnlock failed: %v", err)
	}

	unlocks, err := repo.GetUserAchievements(user.ID)
	if err != nil {
		t.Fatalf("GetUserAchievements failed: %v", err)
	}
	if len(unlocks) != 2 {
		t.Fatalf("Expected 2 unlocks, got %d", len(unlocks))
	}
	// Newest first with the definition preloaded.
	if unlocks[0].Achievement.Name != "Scholar" {
		t.Errorf("Expected Scholar first, got %s", unlocks[0].Achievement.Name)
	}
}

func TestAchievementRepository_GetHoldersCount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAchievementRepository(db)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	achievement := createTestAchievement(t, db, "First Steps", models.RequirementLessonsCompleted, 1)

	now := time.Now().UTC()
	if _, err := repo.InsertUnlock(alice.ID, achievement.ID, now); err != nil {
		t.Fatalf("InsertUnlock failed: %v", err)
	}
	if _, err := repo.InsertUnlock(bob.ID, achievement.ID, now); err != nil {
		t.Fatalf("InsertUnlock failed: %v", err)
	}

	count, err := repo.GetHoldersCount(achievement.ID)
	if err != nil {
		t.Fatalf("GetHoldersCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 holders, got %d", count)
	}
}
