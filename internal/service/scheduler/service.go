// Package scheduler runs periodic maintenance jobs: a daily ledger invariant
// sweep and leaderboard cache warming.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/edumate/progression/internal/config"
	"github.com/edumate/progression/internal/repository"
	"github.com/edumate/progression/internal/service/leaderboard"
	"github.com/edumate/progression/internal/service/ledger"
	"github.com/edumate/progression/pkg/logger"
)

// Service runs scheduled maintenance jobs.
type Service struct {
	config             *config.Config
	userRepo           *repository.UserRepository
	achievementRepo    *repository.AchievementRepository
	ledgerService      *ledger.Service
	leaderboardService *leaderboard.Service
	log                *logger.Logger
	cron               *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(
	cfg *config.Config,
	userRepo *repository.UserRepository,
	achievementRepo *repository.AchievementRepository,
	ledgerService *ledger.Service,
	leaderboardService *leaderboard.Service,
	log *logger.Logger,
) *Service {
	return &Service{
		config:             cfg,
		userRepo:           userRepo,
		achievementRepo:    achievementRepo,
		ledgerService:      ledgerService,
		leaderboardService: leaderboardService,
		log:                log,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Scheduler.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := time.LoadLocation(s.config.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Scheduler.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	// Daily ledger verification sweep
	cronExpr, err := buildDailyCronExpression(s.config.Scheduler.VerificationTime)
	if err != nil {
		return fmt.Errorf("failed to build verification schedule: %w", err)
	}
	_, err = s.cron.AddFunc(cronExpr, func() {
		s.runInvariantSweep(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to register verification job: %w", err)
	}

	// Periodic leaderboard cache warming
	if s.config.Scheduler.CacheWarmInterval > 0 {
		warmExpr := fmt.Sprintf("@every %dm", s.config.Scheduler.CacheWarmInterval)
		_, err = s.cron.AddFunc(warmExpr, func() {
			s.runCacheWarm(context.Background())
		})
		if err != nil {
			return fmt.Errorf("failed to register cache warm job: %w", err)
		}
		s.log.Info().
			Int("interval_minutes", s.config.Scheduler.CacheWarmInterval).
			Msg("Cache warm job registered")
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("verification_schedule", cronExpr).
		Str("timezone", s.config.Scheduler.Timezone).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// buildDailyCronExpression converts an "HH:MM" time into a daily cron
// expression.
func buildDailyCronExpression(at string) (string, error) {
	parts := strings.Split(at, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", at)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}

	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
