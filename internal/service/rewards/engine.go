// Package rewards orchestrates reward granting for completed learner
// activities: idempotence guard, ledger writes, progress updates, level
// resolution and achievement evaluation run as one atomic sequence.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	prommetrics "github.com/edumate/progression/internal/metrics"
	"github.com/edumate/progression/internal/models"
	"github.com/edumate/progression/internal/repository"
	"github.com/edumate/progression/internal/service/achievements"
	"github.com/edumate/progression/internal/service/ledger"
	"github.com/edumate/progression/internal/service/level"
	"github.com/edumate/progression/internal/service/progress"
	"github.com/edumate/progression/pkg/logger"
)

// StreakProvider supplies the user's current consecutive-day activity streak.
// Streak tracking lives in an external collaborator; the engine only consumes
// the value for streak achievements.
type StreakProvider interface {
	CurrentStreak(ctx context.Context, userID uint) (int, error)
}

// Invalidator is notified when a user's XP changed so derived read-side views
// (leaderboards) can drop stale data.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Result reports what a reward event did.
type Result struct {
	AlreadyCompleted bool                 `json:"already_completed"`
	XPAwarded        int64                `json:"xp_awarded"`
	CoinsAwarded     int64                `json:"coins_awarded"`
	Correct          int                  `json:"correct,omitempty"`
	Total            int                  `json:"total,omitempty"`
	CourseCompleted  bool                 `json:"course_completed"`
	LeveledUp        bool                 `json:"leveled_up"`
	Level            int                  `json:"level"`
	NewAchievements  []models.Achievement `json:"new_achievements,omitempty"`
}

// Engine converts learner activities into persistent reward state.
type Engine struct {
	db           *repository.DB
	userRepo     *repository.UserRepository
	courseRepo   *repository.CourseRepository
	ledger       *ledger.Service
	levels       *level.Resolver
	tracker      *progress.Tracker
	achievements *achievements.Service
	streaks      StreakProvider
	invalidator  Invalidator
	log          *logger.Logger
}

// NewEngine creates a new reward engine. streaks and invalidator may be nil.
func NewEngine(
	db *repository.DB,
	userRepo *repository.UserRepository,
	courseRepo *repository.CourseRepository,
	ledgerSvc *ledger.Service,
	levels *level.Resolver,
	tracker *progress.Tracker,
	achievementsSvc *achievements.Service,
	streaks StreakProvider,
	invalidator Invalidator,
	log *logger.Logger,
) *Engine {
	return &Engine{
		db:           db,
		userRepo:     userRepo,
		courseRepo:   courseRepo,
		ledger:       ledgerSvc,
		levels:       levels,
		tracker:      tracker,
		achievements: achievementsSvc,
		streaks:      streaks,
		invalidator:  invalidator,
		log:          log,
	}
}

// CompleteLesson rewards a lesson completion exactly once. The second and any
// later call for the same (user, lesson) pair returns AlreadyCompleted with no
// state change.
func (e *Engine) CompleteLesson(ctx context.Context, userID, lessonID uint) (*Result, error) {
	start := time.Now()
	result := &Result{}

	err := e.db.Transaction(func(tx *gorm.DB) error {
		// Lock the user row first: concurrent reward sequences for the same
		// user serialize here.
		if _, err := e.userRepo.WithTx(tx).GetByIDForUpdate(userID); err != nil {
			return err
		}

		lesson, err := e.courseRepo.WithTx(tx).GetLessonByID(lessonID)
		if err != nil {
			return err
		}

		if _, err := e.tracker.WithTx(tx).CompleteLesson(userID, lessonID); err != nil {
			return err
		}

		if err := e.grantLessonReward(tx, userID, lesson, models.ActionLessonComplete,
			fmt.Sprintf("Lesson: %s", lesson.Title), lesson.XPReward, lesson.CoinReward, result); err != nil {
			return err
		}

		return e.finishSequence(ctx, tx, userID, lesson, result)
	})
	if err != nil {
		return e.translate(ctx, models.ActionLessonComplete, result, err)
	}

	prommetrics.RecordReward(models.ActionLessonComplete, result.XPAwarded, result.CoinsAwarded)
	prommetrics.ObserveRewardSequenceDuration(models.ActionLessonComplete, time.Since(start).Seconds())
	e.afterCommit(ctx, userID, models.ActionLessonComplete, result)
	return result, nil
}

// SubmitQuiz scores the answers against the lesson's stored quiz, marks the
// lesson completed regardless of score, and grants XP and coins scaled by the
// score ratio: floor(reward * correct/total), zero when the quiz has no
// questions. answers holds the selected option index per question in position
// order; missing trailing answers count as wrong.
func (e *Engine) SubmitQuiz(ctx context.Context, userID, lessonID uint, answers []int) (*Result, error) {
	start := time.Now()
	result := &Result{}

	err := e.db.Transaction(func(tx *gorm.DB) error {
		if _, err := e.userRepo.WithTx(tx).GetByIDForUpdate(userID); err != nil {
			return err
		}

		lesson, err := e.courseRepo.WithTx(tx).GetLessonByID(lessonID)
		if err != nil {
			return err
		}

		questions, err := e.courseRepo.WithTx(tx).GetQuizQuestions(lessonID)
		if err != nil {
			return err
		}

		correct, total := scoreQuiz(questions, answers)
		result.Correct = correct
		result.Total = total

		ratio, err := e.tracker.WithTx(tx).RecordQuizAttempt(userID, lessonID, correct, total)
		if err != nil {
			return err
		}

		xp := int64(0)
		coins := int64(0)
		if total > 0 {
			xp = lesson.XPReward * int64(correct) / int64(total)
			coins = lesson.CoinReward * int64(correct) / int64(total)
		}
		description := fmt.Sprintf("Quiz: %s (%d/%d)", lesson.Title, correct, total)
		if err := e.grantLessonReward(tx, userID, lesson, models.ActionQuizComplete,
			description, xp, coins, result); err != nil {
			return err
		}

		prommetrics.ObserveQuizScoreRatio(ratio)
		return e.finishSequence(ctx, tx, userID, lesson, result)
	})
	if err != nil {
		return e.translate(ctx, models.ActionQuizComplete, result, err)
	}

	prommetrics.RecordReward(models.ActionQuizComplete, result.XPAwarded, result.CoinsAwarded)
	prommetrics.ObserveRewardSequenceDuration(models.ActionQuizComplete, time.Since(start).Seconds())
	e.afterCommit(ctx, userID, models.ActionQuizComplete, result)
	return result, nil
}

// grantLessonReward records XP and coin transactions for a lesson-level
// action. Zero amounts produce no ledger rows.
func (e *Engine) grantLessonReward(tx *gorm.DB, userID uint, lesson *models.Lesson, actionType, description string, xp, coins int64, result *Result) error {
	if xp > 0 {
		_, err := e.ledger.Record(tx, ledger.Entry{
			UserID:        userID,
			Amount:        xp,
			Currency:      models.CurrencyXP,
			ActionType:    actionType,
			Description:   description,
			ReferenceID:   lesson.ID,
			ReferenceType: models.RefTypeLesson,
		})
		if err != nil {
			return err
		}
		result.XPAwarded += xp
	}
	if coins > 0 {
		_, err := e.ledger.Record(tx, ledger.Entry{
			UserID:        userID,
			Amount:        coins,
			Currency:      models.CurrencyCoin,
			ActionType:    actionType,
			Description:   description,
			ReferenceID:   lesson.ID,
			ReferenceType: models.RefTypeLesson,
		})
		if err != nil {
			return err
		}
		result.CoinsAwarded += coins
	}
	return nil
}

// finishSequence runs the steps shared by every reward event: course progress
// recompute with the one-shot course reward, level resolution, and achievement
// evaluation. Must run on the same transaction as the triggering reward.
func (e *Engine) finishSequence(ctx context.Context, tx *gorm.DB, userID uint, lesson *models.Lesson, result *Result) error {
	course, err := e.courseRepo.WithTx(tx).GetCourseForLesson(lesson.ID)
	if err != nil {
		return err
	}

	courseProgress, err := e.tracker.WithTx(tx).RecomputeCourseProgress(userID, course.ID)
	if err != nil {
		return err
	}
	if courseProgress.CompletedNow {
		result.CourseCompleted = true
		description := fmt.Sprintf("Course: %s", course.Title)
		if course.XPReward > 0 {
			_, err := e.ledger.Record(tx, ledger.Entry{
				UserID:        userID,
				Amount:        course.XPReward,
				Currency:      models.CurrencyXP,
				ActionType:    models.ActionCourseComplete,
				Description:   description,
				ReferenceID:   course.ID,
				ReferenceType: models.RefTypeCourse,
			})
			if err != nil {
				return err
			}
			result.XPAwarded += course.XPReward
		}
		if course.CoinReward > 0 {
			_, err := e.ledger.Record(tx, ledger.Entry{
				UserID:        userID,
				Amount:        course.CoinReward,
				Currency:      models.CurrencyCoin,
				ActionType:    models.ActionCourseComplete,
				Description:   description,
				ReferenceID:   course.ID,
				ReferenceType: models.RefTypeCourse,
			})
			if err != nil {
				return err
			}
			result.CoinsAwarded += course.CoinReward
		}
		prommetrics.RecordReward(models.ActionCourseComplete, course.XPReward, course.CoinReward)
	}

	if err := e.applyLevel(tx, userID, result); err != nil {
		return err
	}

	streak := 0
	if e.streaks != nil {
		streak, err = e.streaks.CurrentStreak(ctx, userID)
		if err != nil {
			return err
		}
	}
	unlocked, err := e.achievements.EvaluateForUser(tx, userID, streak)
	if err != nil {
		return err
	}
	result.NewAchievements = unlocked

	// Achievement rewards may add XP, so levels are resolved again after
	// evaluation.
	if len(unlocked) > 0 {
		if err := e.applyLevel(tx, userID, result); err != nil {
			return err
		}
	}
	return nil
}

// applyLevel recomputes the user's level from the updated XP total and writes
// the cached level field only when it changed. The change comparison is the
// hook point for level-up notifications.
func (e *Engine) applyLevel(tx *gorm.DB, userID uint, result *Result) error {
	user, err := e.userRepo.WithTx(tx).GetByID(userID)
	if err != nil {
		return err
	}

	resolved, err := e.levels.WithTx(tx).Resolve(user.XPTotal)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// No level table configured; the cached level stays as is.
			result.Level = user.Level
			return nil
		}
		return err
	}

	result.Level = resolved.LevelNumber
	if resolved.LevelNumber == user.Level {
		return nil
	}

	if err := e.userRepo.WithTx(tx).UpdateLevel(userID, resolved.LevelNumber); err != nil {
		return err
	}
	if resolved.LevelNumber > user.Level {
		result.LeveledUp = true
		prommetrics.RecordLevelUp()
		e.log.Info().
			Uint("user_id", userID).
			Int("level", resolved.LevelNumber).
			Str("title", resolved.Title).
			Msg("Level up")
	}
	return nil
}

// translate maps transaction outcomes to the engine's error contract.
func (e *Engine) translate(ctx context.Context, actionType string, result *Result, err error) (*Result, error) {
	if errors.Is(err, models.ErrAlreadyCompleted) {
		prommetrics.RecordDuplicateCompletion(actionType)
		return &Result{AlreadyCompleted: true, Correct: result.Correct, Total: result.Total}, nil
	}
	if errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %v", models.ErrTransactionFailed, err)
}

// afterCommit runs post-commit side effects that must not influence the
// transaction outcome.
func (e *Engine) afterCommit(ctx context.Context, userID uint, actionType string, result *Result) {
	e.log.Info().
		Uint("user_id", userID).
		Str("action_type", actionType).
		Int64("xp", result.XPAwarded).
		Int64("coins", result.CoinsAwarded).
		Bool("course_completed", result.CourseCompleted).
		Int("new_achievements", len(result.NewAchievements)).
		Msg("Reward granted")

	if e.invalidator != nil && result.XPAwarded > 0 {
		if err := e.invalidator.Invalidate(ctx); err != nil {
			e.log.Warn().Err(err).Msg("Failed to invalidate leaderboard cache")
		}
	}
}

// scoreQuiz scores submitted answers by exact match against each question's
// stored answer index. Questions are matched to answers by position order.
func scoreQuiz(questions []models.QuizQuestion, answers []int) (correct, total int) {
	total = len(questions)
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.Answer {
			correct++
		}
	}
	return correct, total
}
