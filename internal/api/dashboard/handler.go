// Package dashboard provides REST API handlers for the progression dashboard.
// It exposes endpoints for leaderboards, user statistics, achievements, and
// achievement holders.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edumate/progression/internal/models"
	"github.com/edumate/progression/internal/service/achievements"
	"github.com/edumate/progression/internal/service/leaderboard"
	"github.com/edumate/progression/pkg/logger"
)

// AchievementService interface for achievement operations.
type AchievementService interface {
	Catalog() ([]models.Achievement, error)
	GetByID(achievementID uint) (*models.Achievement, error)
	UserAchievements(userID uint) ([]models.UserAchievement, error)
	HoldersCount(achievementID uint) (int64, error)
}

// LeaderboardService interface for leaderboard operations.
type LeaderboardService interface {
	GetWeekly(ctx context.Context, limit int) ([]leaderboard.Entry, error)
	GetAllTime(ctx context.Context, limit int) ([]leaderboard.Entry, error)
	GetUserRank(ctx context.Context, userID uint, scope string) (*leaderboard.Rank, error)
	GetUserStats(ctx context.Context, userID uint, achievementRepo leaderboard.AchievementRepository) (*leaderboard.UserStats, error)
}

// Handler handles dashboard API requests.
type Handler struct {
	achievementService AchievementService
	leaderboardService LeaderboardService
	achievementRepo    leaderboard.AchievementRepository
	defaultLimit       int
	log                *logger.Logger
}

// NewHandler creates a new dashboard handler.
func NewHandler(
	achievementService *achievements.Service,
	leaderboardService *leaderboard.Service,
	achievementRepo leaderboard.AchievementRepository,
	defaultLimit int,
	log *logger.Logger,
) *Handler {
	return &Handler{
		achievementService: achievementService,
		leaderboardService: leaderboardService,
		achievementRepo:    achievementRepo,
		defaultLimit:       defaultLimit,
		log:                log,
	}
}

// NewHandlerWithInterfaces creates a new dashboard handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(
	achievementService AchievementService,
	leaderboardService LeaderboardService,
	achievementRepo leaderboard.AchievementRepository,
	defaultLimit int,
	log *logger.Logger,
) *Handler {
	return &Handler{
		achievementService: achievementService,
		leaderboardService: leaderboardService,
		achievementRepo:    achievementRepo,
		defaultLimit:       defaultLimit,
		log:                log,
	}
}

// GetLeaderboard returns the XP leaderboard for a scope.
// GET /api/v1/leaderboard?scope=weekly&limit=10.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	scope := c.DefaultQuery("scope", leaderboard.ScopeWeekly)
	if err := h.validateScope(scope); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	limit, err := h.parseLimit(c, h.defaultLimit)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := context.Background()
	var entries []leaderboard.Entry
	if scope == leaderboard.ScopeWeekly {
		entries, err = h.leaderboardService.GetWeekly(ctx, limit)
	} else {
		entries, err = h.leaderboardService.GetAllTime(ctx, limit)
	}
	if err != nil {
		h.log.Error().Err(err).Str("scope", scope).Msg("Failed to get leaderboard")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve leaderboard")
		return
	}

	h.log.Info().
		Str("scope", scope).
		Int("limit", limit).
		Int("entries", len(entries)).
		Msg("Retrieved leaderboard")

	c.JSON(http.StatusOK, gin.H{
		"leaderboard":   entries,
		"scope":         scope,
		"total_entries": len(entries),
		"generated_at":  time.Now().UTC(),
	})
}

// GetUserStats returns progression statistics for a specific user.
// GET /api/v1/users/:id/stats.
func (h *Handler) GetUserStats(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := context.Background()
	stats, err := h.leaderboardService.GetUserStats(ctx, userID, h.achievementRepo)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			h.errorResponse(c, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get user stats")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve user statistics")
		return
	}

	h.log.Info().
		Uint("user_id", userID).
		Msg("Retrieved user stats")

	c.JSON(http.StatusOK, gin.H{
		"stats":        stats,
		"generated_at": time.Now().UTC(),
	})
}

// GetUserRank returns a user's rank within a leaderboard scope.
// GET /api/v1/users/:id/rank?scope=all_time.
func (h *Handler) GetUserRank(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	scope := c.DefaultQuery("scope", leaderboard.ScopeAllTime)
	if err := h.validateScope(scope); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := context.Background()
	rank, err := h.leaderboardService.GetUserRank(ctx, userID, scope)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get user rank")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve user rank")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rank":         rank,
		"scope":        scope,
		"generated_at": time.Now().UTC(),
	})
}

// GetUserAchievements returns achievements unlocked by a specific user.
// GET /api/v1/users/:id/achievements.
func (h *Handler) GetUserAchievements(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	unlocks, err := h.achievementService.UserAchievements(userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get user achievements")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve user achievements")
		return
	}

	h.log.Info().
		Uint("user_id", userID).
		Int("achievement_count", len(unlocks)).
		Msg("Retrieved user achievements")

	c.JSON(http.StatusOK, gin.H{
		"user_id":            userID,
		"achievements":       unlocks,
		"total_achievements": len(unlocks),
		"generated_at":       time.Now().UTC(),
	})
}

// GetAchievementCatalog returns all visible achievements.
// GET /api/v1/achievements.
func (h *Handler) GetAchievementCatalog(c *gin.Context) {
	catalog, err := h.achievementService.Catalog()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get achievement catalog")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve achievement catalog")
		return
	}

	// Secret achievements are hidden from the public catalog until unlocked
	visible := make([]models.Achievement, 0, len(catalog))
	for _, a := range catalog {
		if !a.IsSecret {
			visible = append(visible, a)
		}
	}

	h.log.Info().
		Int("achievement_count", len(visible)).
		Msg("Retrieved achievement catalog")

	c.JSON(http.StatusOK, gin.H{
		"achievements":       visible,
		"total_achievements": len(visible),
		"generated_at":       time.Now().UTC(),
	})
}

// GetAchievementByID returns details for a specific achievement with its
// holder count.
// GET /api/v1/achievements/:id.
func (h *Handler) GetAchievementByID(c *gin.Context) {
	achievementID, err := h.parseAchievementID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	achievement, err := h.achievementService.GetByID(achievementID)
	if err != nil {
		h.log.Error().Err(err).Uint("achievement_id", achievementID).Msg("Failed to get achievement details")
		h.errorResponse(c, http.StatusNotFound, "Achievement not found")
		return
	}

	holders, err := h.achievementService.HoldersCount(achievementID)
	if err != nil {
		h.log.Error().Err(err).Uint("achievement_id", achievementID).Msg("Failed to count achievement holders")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve achievement holders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"achievement":   achievement,
		"total_holders": holders,
		"generated_at":  time.Now().UTC(),
	})
}

// Helper functions

// parseUserID extracts and validates the user ID from the URL parameter.
func (h *Handler) parseUserID(c *gin.Context) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID: %s", idStr)
	}
	return uint(id), nil
}

// parseAchievementID extracts and validates the achievement ID from the URL parameter.
func (h *Handler) parseAchievementID(c *gin.Context) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid achievement ID: %s", idStr)
	}
	return uint(id), nil
}

// parseLimit extracts and validates the limit query parameter.
func (h *Handler) parseLimit(c *gin.Context, defaultLimit int) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: %s", limitStr)
	}

	if limit < 1 {
		return 0, fmt.Errorf("limit must be greater than 0")
	}

	if limit > 1000 {
		return 0, fmt.Errorf("limit cannot exceed 1000")
	}

	return limit, nil
}

// validateScope validates the leaderboard scope parameter.
func (h *Handler) validateScope(scope string) error {
	if scope != leaderboard.ScopeWeekly && scope != leaderboard.ScopeAllTime {
		return fmt.Errorf("invalid scope: %s (valid: weekly, all_time)", scope)
	}
	return nil
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
