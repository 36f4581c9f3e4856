package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/edumate/progression/internal/models"
)

// AchievementRepository handles achievement definitions and unlock records.
type AchievementRepository struct {
	db *DB
}

// NewAchievementRepository creates a new achievement repository.
func NewAchievementRepository(db *DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *AchievementRepository) WithTx(tx *gorm.DB) *AchievementRepository {
	return &AchievementRepository{db: &DB{tx}}
}

// GetAll retrieves all achievement definitions.
func (r *AchievementRepository) GetAll() ([]models.Achievement, error) {
	var achievements []models.Achievement
	err := r.db.Order("created_at ASC").Find(&achievements).Error
	return achievements, err
}

// GetByID retrieves an achievement by its ID.
func (r *AchievementRepository) GetByID(id uint) (*models.Achievement, error) {
	var achievement models.Achievement
	err := r.db.First(&achievement, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("achievement %d: %w", id, models.ErrNotFound)
		}
		return nil, err
	}
	return &achievement, nil
}

// GetByName retrieves an achievement by its name.
func (r *AchievementRepository) GetByName(name string) (*models.Achievement, error) {
	var achievement models.Achievement
	err := r.db.Where("name = ?", name).First(&achievement).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("achievement %s: %w", name, models.ErrNotFound)
		}
		return nil, err
	}
	return &achievement, nil
}

// Upsert creates or updates an achievement definition keyed by name. Used by
// the seed loader.
func (r *AchievementRepository) Upsert(achievement *models.Achievement) error {
	var existing models.Achievement
	err := r.db.Where("name = ?", achievement.Name).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.Create(achievement).Error
	}
	if err != nil {
		return fmt.Errorf("failed to look up achievement %s: %w", achievement.Name, err)
	}
	achievement.ID = existing.ID
	return r.db.Save(achievement).Error
}

// HasUserUnlocked checks if a user has unlocked a specific achievement.
func (r *AchievementRepository) HasUserUnlocked(userID, achievementID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.UserAchievement{}).
		Where("user_id = ? AND achievement_id = ?", userID, achievementID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertUnlock inserts the unlock record for a (user, achievement) pair.
// Returns false without error when the pair already exists: the unique index
// on the pair makes the insert the atomic first-crossing check.
func (r *AchievementRepository) InsertUnlock(userID, achievementID uint, unlockedAt time.Time) (bool, error) {
	record := &models.UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		UnlockedAt:    unlockedAt,
	}
	err := r.db.Create(record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert unlock: %w", err)
	}
	return true, nil
}

// GetUserAchievements retrieves all achievements unlocked by a user with
// definitions preloaded.
func (r *AchievementRepository) GetUserAchievements(userID uint) ([]models.UserAchievement, error) {
	var unlocks []models.UserAchievement
	err := r.db.
		Where("user_id = ?", userID).
		Preload("Achievement").
		Order("unlocked_at DESC").
		Find(&unlocks).Error
	return unlocks, err
}

// GetHoldersCount returns the number of users who have unlocked an
// achievement.
func (r *AchievementRepository) GetHoldersCount(achievementID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.UserAchievement{}).
		Where("achievement_id = ?", achievementID).
		Count(&count).Error
	return count, err
}

// GetUserAchievementCount returns the total number of achievements a user has
// unlocked.
func (r *AchievementRepository) GetUserAchievementCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.UserAchievement{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
