package leaderboard

import (
	"context"
	"fmt"
	"math"

	"github.com/edumate/progression/internal/models"
)

// AchievementRepository interface for achievement lookups used by user stats.
type AchievementRepository interface {
	GetUserAchievements(userID uint) ([]models.UserAchievement, error)
	GetUserAchievementCount(userID uint) (int64, error)
}

// UserStats represents a user's progression summary.
type UserStats struct {
	UserID           uint                 `json:"user_id"`
	Username         string               `json:"username"`
	XPTotal          int64                `json:"xp_total"`
	CoinBalance      int64                `json:"coin_balance"`
	Level            int                  `json:"level"`
	AchievementCount int                  `json:"achievement_count"`
	Achievements     []models.Achievement `json:"achievements"`
	WeeklyRank       int                  `json:"weekly_rank"`
	AllTimeRank      int                  `json:"all_time_rank"`
}

// GetUserStats returns a user's progression summary including both ranks.
func (s *Service) GetUserStats(ctx context.Context, userID uint, achievementRepo AchievementRepository) (*UserStats, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	stats := &UserStats{
		UserID:      userID,
		Username:    user.Username,
		XPTotal:     user.XPTotal,
		CoinBalance: user.CoinBalance,
		Level:       user.Level,
	}

	unlocks, err := achievementRepo.GetUserAchievements(userID)
	if err != nil {
		s.log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to get user achievements")
	} else {
		for _, unlock := range unlocks {
			if unlock.Achievement.ID != 0 {
				stats.Achievements = append(stats.Achievements, unlock.Achievement)
			}
		}
		stats.AchievementCount = len(stats.Achievements)
	}

	weekly, err := s.GetUserRank(ctx, userID, ScopeWeekly)
	if err != nil {
		s.log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to get weekly rank")
	} else {
		stats.WeeklyRank = weekly.Rank
	}

	allTime, err := s.GetUserRank(ctx, userID, ScopeAllTime)
	if err != nil {
		s.log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to get all-time rank")
	} else {
		stats.AllTimeRank = allTime.Rank
	}

	return stats, nil
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
