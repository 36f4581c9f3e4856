// Package seed loads reference data (level table, achievement catalog) from
// YAML files and upserts it at startup. Seed files are admin-managed; removing
// an entry from a file never deletes rows that users already reference.
package seed

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/edumate/progression/internal/models"
	"github.com/edumate/progression/pkg/logger"
)

// LevelRepository interface for level upserts.
type LevelRepository interface {
	Upsert(level *models.Level) error
}

// AchievementRepository interface for achievement upserts.
type AchievementRepository interface {
	Upsert(achievement *models.Achievement) error
}

type levelEntry struct {
	LevelNumber int    `yaml:"level_number"`
	Title       string `yaml:"title"`
	XPRequired  int64  `yaml:"xp_required"`
	Badge       string `yaml:"badge"`
	Color       string `yaml:"color"`
}

type levelFile struct {
	Levels []levelEntry `yaml:"levels"`
}

type achievementFile struct {
	Achievements []struct {
		Name             string `yaml:"name"`
		Description      string `yaml:"description"`
		Icon             string `yaml:"icon"`
		XPReward         int64  `yaml:"xp_reward"`
		CoinReward       int64  `yaml:"coin_reward"`
		RequirementType  string `yaml:"requirement_type"`
		RequirementValue int64  `yaml:"requirement_value"`
		IsSecret         bool   `yaml:"is_secret"`
	} `yaml:"achievements"`
}

// Loader seeds reference tables from YAML files.
type Loader struct {
	levelRepo       LevelRepository
	achievementRepo AchievementRepository
	log             *logger.Logger
}

// NewLoader creates a new seed loader.
func NewLoader(levelRepo LevelRepository, achievementRepo AchievementRepository, log *logger.Logger) *Loader {
	return &Loader{
		levelRepo:       levelRepo,
		achievementRepo: achievementRepo,
		log:             log,
	}
}

// LoadLevels reads a level table file and upserts each level by level_number.
func (l *Loader) LoadLevels(path string) error {
	if path == "" {
		l.log.Debug().Msg("No level seed file configured, skipping")
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read level seed file %s: %w", path, err)
	}

	var file levelFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse level seed file %s: %w", path, err)
	}

	for _, entry := range file.Levels {
		if entry.LevelNumber < 1 {
			return fmt.Errorf("invalid level_number %d in %s", entry.LevelNumber, path)
		}
		if entry.XPRequired < 0 {
			return fmt.Errorf("negative xp_required for level %d in %s", entry.LevelNumber, path)
		}
	}
	if err := validateThresholdOrder(file.Levels); err != nil {
		return fmt.Errorf("%w in %s", err, path)
	}

	for _, entry := range file.Levels {
		level := &models.Level{
			LevelNumber: entry.LevelNumber,
			Title:       entry.Title,
			XPRequired:  entry.XPRequired,
			Badge:       entry.Badge,
			Color:       entry.Color,
		}
		if err := l.levelRepo.Upsert(level); err != nil {
			return fmt.Errorf("failed to upsert level %d: %w", entry.LevelNumber, err)
		}
	}

	l.log.Info().
		Int("levels", len(file.Levels)).
		Str("file", path).
		Msg("Seeded level table")
	return nil
}

// LoadAchievements reads an achievement catalog file and upserts each
// achievement by name.
func (l *Loader) LoadAchievements(path string) error {
	if path == "" {
		l.log.Debug().Msg("No achievement seed file configured, skipping")
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read achievement seed file %s: %w", path, err)
	}

	var file achievementFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse achievement seed file %s: %w", path, err)
	}

	for _, entry := range file.Achievements {
		if entry.Name == "" {
			return fmt.Errorf("achievement with empty name in %s", path)
		}
		if !validRequirementType(entry.RequirementType) {
			return fmt.Errorf("unknown requirement_type %q for achievement %q in %s",
				entry.RequirementType, entry.Name, path)
		}

		achievement := &models.Achievement{
			Name:             entry.Name,
			Description:      entry.Description,
			Icon:             entry.Icon,
			XPReward:         entry.XPReward,
			CoinReward:       entry.CoinReward,
			RequirementType:  entry.RequirementType,
			RequirementValue: entry.RequirementValue,
			IsSecret:         entry.IsSecret,
		}
		if err := l.achievementRepo.Upsert(achievement); err != nil {
			return fmt.Errorf("failed to upsert achievement %q: %w", entry.Name, err)
		}
	}

	l.log.Info().
		Int("achievements", len(file.Achievements)).
		Str("file", path).
		Msg("Seeded achievement catalog")
	return nil
}

// validateThresholdOrder rejects duplicate level numbers and thresholds that
// decrease as the level number grows. Equal thresholds on consecutive levels
// are allowed; resolution then picks the higher level number.
func validateThresholdOrder(levels []levelEntry) error {
	sorted := make([]levelEntry, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LevelNumber < sorted[j].LevelNumber })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].LevelNumber == sorted[i-1].LevelNumber {
			return fmt.Errorf("duplicate level_number %d", sorted[i].LevelNumber)
		}
		if sorted[i].XPRequired < sorted[i-1].XPRequired {
			return fmt.Errorf("xp_required %d for level %d is below level %d's %d",
				sorted[i].XPRequired, sorted[i].LevelNumber, sorted[i-1].LevelNumber, sorted[i-1].XPRequired)
		}
	}
	return nil
}

func validRequirementType(t string) bool {
	switch t {
	case models.RequirementLessonsCompleted,
		models.RequirementCoursesCompleted,
		models.RequirementStreak,
		models.RequirementXPEarned,
		models.RequirementSpecial:
		return true
	}
	return false
}
