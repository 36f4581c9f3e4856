// Package level maps cumulative XP totals to levels via a monotonic threshold
// table.
package level

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/edumate/progression/internal/models"
	"github.com/edumate/progression/internal/repository"
)

// LevelRepository interface for level table access.
type LevelRepository interface {
	GetAll() ([]models.Level, error)
}

// Resolver resolves cumulative XP totals to levels.
type Resolver struct {
	levelRepo LevelRepository
}

// NewResolver creates a new level resolver.
func NewResolver(levelRepo *repository.LevelRepository) *Resolver {
	return &Resolver{levelRepo: levelRepo}
}

// NewResolverWithInterfaces creates a new level resolver with interface dependencies (useful for testing).
func NewResolverWithInterfaces(levelRepo LevelRepository) *Resolver {
	return &Resolver{levelRepo: levelRepo}
}

// WithTx returns a resolver that reads the level table through tx, so that
// resolution inside a transaction sees rows written by that transaction.
// Resolvers built on repositories without transaction support are returned
// unchanged.
func (r *Resolver) WithTx(tx *gorm.DB) *Resolver {
	type txBinder interface {
		WithTx(tx *gorm.DB) *repository.LevelRepository
	}
	if repo, ok := r.levelRepo.(txBinder); ok {
		return &Resolver{levelRepo: repo.WithTx(tx)}
	}
	return r
}

// Resolve returns the highest level whose xp_required is at or below xpTotal.
// Levels come back ordered by xp_required then level_number ascending, so ties
// on xp_required resolve to the highest level_number. Resolution is monotonic
// in xpTotal.
func (r *Resolver) Resolve(xpTotal int64) (*models.Level, error) {
	levels, err := r.levelRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load level table: %w", err)
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("level table: %w", models.ErrNotFound)
	}

	var resolved *models.Level
	for i := range levels {
		if levels[i].XPRequired > xpTotal {
			break
		}
		resolved = &levels[i]
	}
	if resolved == nil {
		// Below the lowest threshold; the base level applies.
		resolved = &levels[0]
	}
	return resolved, nil
}
