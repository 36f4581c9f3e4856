package scheduler

import (
	"context"
	"errors"
	"time"

	prommetrics "github.com/edumate/progression/internal/metrics"
	"github.com/edumate/progression/internal/models"
)

// runInvariantSweep verifies every user's cached XP and coin totals against
// the ledger. Divergences are reported, never repaired: the job surfaces
// corruption for operators instead of papering over it.
func (s *Service) runInvariantSweep(_ context.Context) {
	start := time.Now()
	defer func() {
		prommetrics.ObserveSchedulerJobDuration("invariant_sweep", time.Since(start).Seconds())
		prommetrics.SetSchedulerLastRun("invariant_sweep", float64(time.Now().Unix()))
	}()

	s.log.Info().Msg("Running ledger invariant sweep")

	users, err := s.userRepo.List()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list users for invariant sweep")
		prommetrics.RecordSchedulerJobRun("invariant_sweep", "error")
		return
	}

	violations := 0
	for _, user := range users {
		if err := s.ledgerService.VerifyUser(user.ID); err != nil {
			if errors.Is(err, models.ErrInvariantViolation) {
				violations++
				continue
			}
			s.log.Error().Err(err).Uint("user_id", user.ID).Msg("Invariant check failed")
		}
	}

	// Refresh the holders gauge while we are here
	s.refreshHoldersGauge()

	if violations > 0 {
		s.log.Error().
			Int("violations", violations).
			Int("users", len(users)).
			Msg("Ledger invariant sweep found divergences")
		prommetrics.RecordSchedulerJobRun("invariant_sweep", "violations")
		return
	}

	s.log.Info().
		Int("users", len(users)).
		Msg("Ledger invariant sweep clean")
	prommetrics.RecordSchedulerJobRun("invariant_sweep", "success")
}

// refreshHoldersGauge updates the per-achievement holder count gauge.
func (s *Service) refreshHoldersGauge() {
	achievements, err := s.achievementRepo.GetAll()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list achievements for holders gauge")
		return
	}
	for _, achievement := range achievements {
		count, err := s.achievementRepo.GetHoldersCount(achievement.ID)
		if err != nil {
			s.log.Error().Err(err).Str("achievement", achievement.Name).Msg("Failed to count holders")
			continue
		}
		prommetrics.SetAchievementHolders(achievement.Name, int(count))
	}
}

// runCacheWarm recomputes both leaderboard scopes so dashboard reads stay
// cache-hot between invalidations.
func (s *Service) runCacheWarm(ctx context.Context) {
	start := time.Now()
	defer func() {
		prommetrics.ObserveSchedulerJobDuration("cache_warm", time.Since(start).Seconds())
		prommetrics.SetSchedulerLastRun("cache_warm", float64(time.Now().Unix()))
	}()

	if err := s.leaderboardService.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to drop leaderboard cache before warm")
	}

	if _, err := s.leaderboardService.GetWeekly(ctx, 0); err != nil {
		s.log.Error().Err(err).Msg("Failed to warm weekly leaderboard")
		prommetrics.RecordSchedulerJobRun("cache_warm", "error")
		return
	}
	if _, err := s.leaderboardService.GetAllTime(ctx, 0); err != nil {
		s.log.Error().Err(err).Msg("Failed to warm all-time leaderboard")
		prommetrics.RecordSchedulerJobRun("cache_warm", "error")
		return
	}

	prommetrics.RecordSchedulerJobRun("cache_warm", "success")
}
