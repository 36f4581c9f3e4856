// Package progression provides REST API handlers for the reward engine's
// write operations: lesson completion, quiz submission, and admin unlocks.
package progression

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
	"github.com/edumate/progression/internal/service/rewards"
	"github.com/edumate/progression/pkg/logger"
)

// RewardEngine interface for reward-granting operations.
type RewardEngine interface {
	CompleteLesson(ctx context.Context, userID, lessonID uint) (*rewards.Result, error)
	SubmitQuiz(ctx context.Context, userID, lessonID uint, answers []int) (*rewards.Result, error)
}

// AchievementService interface for admin unlock operations.
type AchievementService interface {
	AdminUnlock(userID, achievementID uint) (*models.Achievement, error)
}

// Handler handles progression API requests.
type Handler struct {
	engine             RewardEngine
	achievementService AchievementService
	log                *logger.Logger
}

// NewHandler creates a new progression handler.
func NewHandler(engine *rewards.Engine, achievementService *achievements.Service, log *logger.Logger) *Handler {
	return &Handler{
		engine:             engine,
		achievementService: achievementService,
		log:                log,
	}
}

// NewHandlerWithInterfaces creates a new progression handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(engine RewardEngine, achievementService AchievementService, log *logger.Logger) *Handler {
	return &Handler{
		engine:             engine,
		achievementService: achievementService,
		log:                log,
	}
}

// quizRequest is the body for quiz submissions. Answers are selected option
// indexes in question order.
type quizRequest struct {
	Answers []int `json:"answers" binding:"required"`
}

// CompleteLesson marks a lesson completed and grants its rewards.
// POST /api/v1/users/:id/lessons/:lesson_id/complete.
func (h *Handler) CompleteLesson(c *gin.Context) {
	userID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	lessonID, err := h.parseID(c, "lesson_id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.engine.CompleteLesson(context.Background(), userID, lessonID)
	if err != nil {
		h.handleEngineError(c, err, userID, lessonID)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result":       result,
		"generated_at": time.Now().UTC(),
	})
}

// SubmitQuiz scores a quiz attempt and grants proportional rewards.
// POST /api/v1/users/:id/lessons/:lesson_id/quiz.
func (h *Handler) SubmitQuiz(c *gin.Context) {
	userID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	lessonID, err := h.parseID(c, "lesson_id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req quizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "answers array is required")
		return
	}

	result, err := h.engine.SubmitQuiz(context.Background(), userID, lessonID, req.Answers)
	if err != nil {
		h.handleEngineError(c, err, userID, lessonID)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result":       result,
		"generated_at": time.Now().UTC(),
	})
}

// AdminUnlockAchievement grants a special achievement to a user.
// POST /api/v1/users/:id/achievements/:achievement_id/unlock.
func (h *Handler) AdminUnlockAchievement(c *gin.Context) {
	userID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	achievementID, err := h.parseID(c, "achievement_id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	achievement, err := h.achievementService.AdminUnlock(userID, achievementID)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrAlreadyCompleted):
		h.errorResponse(c, http.StatusConflict, "Achievement already unlocked")
		return
	case errors.Is(err, models.ErrNotFound):
		h.errorResponse(c, http.StatusNotFound, "User or achievement not found")
		return
	default:
		h.log.Error().Err(err).
			Uint("user_id", userID).
			Uint("achievement_id", achievementID).
			Msg("Failed to unlock achievement")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to unlock achievement")
		return
	}

	h.log.Info().
		Uint("user_id", userID).
		Uint("achievement_id", achievementID).
		Msg("Achievement unlocked by admin")

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"achievement":  achievement,
		"unlocked":     true,
		"generated_at": time.Now().UTC(),
	})
}

// handleEngineError maps engine errors to HTTP responses.
func (h *Handler) handleEngineError(c *gin.Context, err error, userID, lessonID uint) {
	if errors.Is(err, models.ErrNotFound) {
		h.errorResponse(c, http.StatusNotFound, "User or lesson not found")
		return
	}
	h.log.Error().Err(err).
		Uint("user_id", userID).
		Uint("lesson_id", lessonID).
		Msg("Reward sequence failed")
	h.errorResponse(c, http.StatusInternalServerError, "Failed to process completion")
}

// parseID extracts and validates a numeric URL parameter.
func (h *Handler) parseID(c *gin.Context, name string) (uint, error) {
	idStr := c.Param(name)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", name, idStr)
	}
	return uint(id), nil
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
