package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edumate/progression/internal/api/dashboard"
	"github.com/edumate/progression/internal/api/progression"
	"github.com/edumate/progression/internal/config"
	"github.com/edumate/progression/internal/repository"
	"github.com/edumate/progression/internal/seed"
	"github.com/edumate/progression/internal/service/achievements"
	"github.com/edumate/progression/internal/service/leaderboard"
	"github.com/edumate/progression/internal/service/ledger"
	"github.com/edumate/progression/internal/service/level"
	"github.com/edumate/progression/internal/service/progress"
	"github.com/edumate/progression/internal/service/rewards"
	"github.com/edumate/progression/internal/service/scheduler"
	"github.com/edumate/progression/internal/service/streaks"
	"github.com/edumate/progression/pkg/cache"
	"github.com/edumate/progression/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Msg("Starting progression server")

	// Schema migrations run before the pool opens
	if err := repository.Migrate(&cfg.Database.Postgres, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	redisCache, err := cache.NewRedisCache(&cfg.Database.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer func() {
		if err := redisCache.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis connection")
		}
	}()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	levelRepo := repository.NewLevelRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)

	// Reference data
	seeder := seed.NewLoader(levelRepo, achievementRepo, log)
	if err := seeder.LoadLevels(cfg.Seeds.LevelsFile); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed level table")
	}
	if err := seeder.LoadAchievements(cfg.Seeds.AchievementsFile); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed achievement catalog")
	}

	// Services
	ledgerService := ledger.NewService(ledgerRepo, userRepo, log)
	levelResolver := level.NewResolver(levelRepo)
	tracker := progress.NewTracker(courseRepo, progressRepo, log)
	achievementService := achievements.NewService(db, achievementRepo, progressRepo, userRepo, ledgerService, log)
	leaderboardService := leaderboard.NewService(
		ledgerRepo,
		userRepo,
		redisCache,
		time.Duration(cfg.Leaderboard.CacheTTL)*time.Second,
		log,
	)
	streakProvider := streaks.NewProvider(ledgerRepo)
	engine := rewards.NewEngine(
		db,
		userRepo,
		courseRepo,
		ledgerService,
		levelResolver,
		tracker,
		achievementService,
		streakProvider,
		leaderboardService,
		log,
	)

	// Maintenance jobs
	schedulerService := scheduler.NewService(cfg, userRepo, achievementRepo, ledgerService, leaderboardService, log)
	if err := schedulerService.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer schedulerService.Stop()

	// HTTP surface
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	dashboardHandler := dashboard.NewHandler(
		achievementService,
		leaderboardService,
		achievementRepo,
		cfg.Leaderboard.DefaultLimit,
		log,
	)
	progressionHandler := progression.NewHandler(engine, achievementService, log)

	api := router.Group("/api/v1")
	{
		api.GET("/leaderboard", dashboardHandler.GetLeaderboard)
		api.GET("/users/:id/stats", dashboardHandler.GetUserStats)
		api.GET("/users/:id/rank", dashboardHandler.GetUserRank)
		api.GET("/users/:id/achievements", dashboardHandler.GetUserAchievements)
		api.GET("/achievements", dashboardHandler.GetAchievementCatalog)
		api.GET("/achievements/:id", dashboardHandler.GetAchievementByID)

		api.POST("/users/:id/lessons/:lesson_id/complete", progressionHandler.CompleteLesson)
		api.POST("/users/:id/lessons/:lesson_id/quiz", progressionHandler.SubmitQuiz)
		api.POST("/users/:id/achievements/:achievement_id/unlock", progressionHandler.AdminUnlockAchievement)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}
}
