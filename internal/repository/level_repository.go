package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/edumate/progression/internal/models"
)

// LevelRepository handles the static level threshold table.
type LevelRepository struct {
	db *DB
}

// NewLevelRepository creates a new level repository.
func NewLevelRepository(db *DB) *LevelRepository {
	return &LevelRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *LevelRepository) WithTx(tx *gorm.DB) *LevelRepository {
	return &LevelRepository{db: &DB{tx}}
}

// GetAll retrieves all levels ordered by xp_required ascending, then
// level_number ascending. The resolver relies on this ordering.
func (r *LevelRepository) GetAll() ([]models.Level, error) {
	var levels []models.Level
	err := r.db.Order("xp_required ASC, level_number ASC").Find(&levels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}
	return levels, nil
}

// Upsert creates or updates a level keyed by level_number. Used by the seed
// loader; the engine itself never writes levels.
func (r *LevelRepository) Upsert(level *models.Level) error {
	var existing models.Level
	err := r.db.Where("level_number = ?", level.LevelNumber).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.Create(level).Error
	}
	if err != nil {
		return fmt.Errorf("failed to look up level %d: %w", level.LevelNumber, err)
	}
	level.ID = existing.ID
	return r.db.Save(level).Error
}
