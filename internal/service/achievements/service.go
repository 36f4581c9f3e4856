// Package achievements provides achievement evaluation and unlocking.
package achievements

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	prommetrics "github.com/edumate/progression/internal/metrics"
	"github.com/edumate/progression/internal/models"
	"github.com/edumate/progression/internal/repository"
	"github.com/edumate/progression/internal/service/ledger"
	"github.com/edumate/progression/pkg/logger"
)

// Service evaluates achievement requirements and unlocks achievements.
type Service struct {
	db              *repository.DB
	achievementRepo *repository.AchievementRepository
	progressRepo    *repository.ProgressRepository
	userRepo        *repository.UserRepository
	ledger          *ledger.Service
	log             *logger.Logger
}

// NewService creates a new achievement service.
func NewService(
	db *repository.DB,
	achievementRepo *repository.AchievementRepository,
	progressRepo *repository.ProgressRepository,
	userRepo *repository.UserRepository,
	ledgerSvc *ledger.Service,
	log *logger.Logger,
) *Service {
	return &Service{
		db:              db,
		achievementRepo: achievementRepo,
		progressRepo:    progressRepo,
		userRepo:        userRepo,
		ledger:          ledgerSvc,
		log:             log,
	}
}

// EvaluateForUser checks every achievement definition against the user's
// current counters and unlocks those whose threshold was first crossed,
// granting their rewards on the same transaction. Runs after every XP or
// progress affecting event. Already-unlocked achievements are no-ops: the
// unique (user, achievement) index is the only idempotence mechanism.
//
// Unlock rewards add XP, so one unlock can push the total across another
// xp_earned threshold. Evaluation repeats with fresh counters until a pass
// unlocks nothing; the unique index bounds the loop at one pass per
// definition.
//
// The streak length is supplied by the caller; consecutive-day activity is
// tracked by an external collaborator, not this engine.
func (s *Service) EvaluateForUser(tx *gorm.DB, userID uint, streak int) ([]models.Achievement, error) {
	definitions, err := s.achievementRepo.WithTx(tx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to get achievements: %w", err)
	}
	if len(definitions) == 0 {
		return nil, nil
	}

	var unlocked []models.Achievement
	for {
		batch, err := s.evaluatePass(tx, userID, streak, definitions)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			return unlocked, nil
		}
		unlocked = append(unlocked, batch...)
	}
}

// evaluatePass runs one evaluation over the definitions against a fresh
// snapshot of the user's counters, returning what it unlocked.
func (s *Service) evaluatePass(tx *gorm.DB, userID uint, streak int, definitions []models.Achievement) ([]models.Achievement, error) {
	achievementRepo := s.achievementRepo.WithTx(tx)
	progressRepo := s.progressRepo.WithTx(tx)

	user, err := s.userRepo.WithTx(tx).GetByID(userID)
	if err != nil {
		return nil, err
	}

	lessonsCompleted, err := progressRepo.CountAllCompletedLessons(userID)
	if err != nil {
		return nil, err
	}
	coursesCompleted, err := progressRepo.CountCompletedCourses(userID)
	if err != nil {
		return nil, err
	}

	var unlocked []models.Achievement
	for _, def := range definitions {
		ok, err := qualifies(&def, user.XPTotal, lessonsCompleted, coursesCompleted, int64(streak))
		if err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Str("achievement", def.Name).
				Msg("Failed to evaluate achievement")
			continue
		}
		if !ok {
			continue
		}

		inserted, err := achievementRepo.InsertUnlock(userID, def.ID, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		if !inserted {
			// Already unlocked earlier.
			continue
		}

		if err := s.grantReward(tx, userID, &def); err != nil {
			return nil, err
		}

		unlocked = append(unlocked, def)
		prommetrics.RecordAchievementUnlocked(def.Name)
		s.log.Info().
			Uint("user_id", userID).
			Str("achievement", def.Name).
			Msg("Achievement unlocked")
	}

	return unlocked, nil
}

// AdminUnlock unlocks an achievement for a user by explicit admin action.
// This is the only unlock path for 'special' achievements, which are never
// auto-evaluated. Returns models.ErrAlreadyCompleted when the user already
// holds the achievement.
func (s *Service) AdminUnlock(userID, achievementID uint) (*models.Achievement, error) {
	achievement, err := s.achievementRepo.GetByID(achievementID)
	if err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(userID); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		inserted, err := s.achievementRepo.WithTx(tx).InsertUnlock(userID, achievementID, time.Now().UTC())
		if err != nil {
			return err
		}
		if !inserted {
			return models.ErrAlreadyCompleted
		}
		return s.grantReward(tx, userID, achievement)
	})
	if err != nil {
		if errors.Is(err, models.ErrAlreadyCompleted) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrTransactionFailed, err)
	}

	prommetrics.RecordAchievementUnlocked(achievement.Name)
	s.log.Info().
		Uint("user_id", userID).
		Str("achievement", achievement.Name).
		Msg("Achievement unlocked by admin")

	return achievement, nil
}

// grantReward records the achievement's XP and coin rewards on the given
// transaction.
func (s *Service) grantReward(tx *gorm.DB, userID uint, achievement *models.Achievement) error {
	description := fmt.Sprintf("Achievement: %s", achievement.Name)
	if achievement.XPReward > 0 {
		_, err := s.ledger.Record(tx, ledger.Entry{
			UserID:        userID,
			Amount:        achievement.XPReward,
			Currency:      models.CurrencyXP,
			ActionType:    models.ActionAchievementUnlock,
			Description:   description,
			ReferenceID:   achievement.ID,
			ReferenceType: models.RefTypeAchievement,
		})
		if err != nil {
			return err
		}
	}
	if achievement.CoinReward > 0 {
		_, err := s.ledger.Record(tx, ledger.Entry{
			UserID:        userID,
			Amount:        achievement.CoinReward,
			Currency:      models.CurrencyCoin,
			ActionType:    models.ActionAchievementUnlock,
			Description:   description,
			ReferenceID:   achievement.ID,
			ReferenceType: models.RefTypeAchievement,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// qualifies evaluates a single achievement definition against the user's
// counters.
func qualifies(def *models.Achievement, xpTotal, lessonsCompleted, coursesCompleted, streak int64) (bool, error) {
	switch def.RequirementType {
	case models.RequirementLessonsCompleted:
		return lessonsCompleted >= def.RequirementValue, nil
	case models.RequirementCoursesCompleted:
		return coursesCompleted >= def.RequirementValue, nil
	case models.RequirementXPEarned:
		return xpTotal >= def.RequirementValue, nil
	case models.RequirementStreak:
		return streak >= def.RequirementValue, nil
	case models.RequirementSpecial:
		// Never auto-evaluated; admin action only.
		return false, nil
	default:
		return false, fmt.Errorf("unsupported requirement type: %s", def.RequirementType)
	}
}

// Catalog retrieves all achievement definitions.
func (s *Service) Catalog() ([]models.Achievement, error) {
	return s.achievementRepo.GetAll()
}

// GetByID retrieves an achievement definition.
func (s *Service) GetByID(achievementID uint) (*models.Achievement, error) {
	return s.achievementRepo.GetByID(achievementID)
}

// UserAchievements retrieves all achievements unlocked by a user.
func (s *Service) UserAchievements(userID uint) ([]models.UserAchievement, error) {
	return s.achievementRepo.GetUserAchievements(userID)
}

// HoldersCount retrieves the number of users holding an achievement.
func (s *Service) HoldersCount(achievementID uint) (int64, error) {
	return s.achievementRepo.GetHoldersCount(achievementID)
}
