package rewards

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/edumate/progression/internal/models"
	"github.com/edumate/progression/internal/repository"
	"github.com/edumate/progression/internal/service/achievements"
	"github.com/edumate/progression/internal/service/ledger"
	"github.com/edumate/progression/internal/service/level"
	"github.com/edumate/progression/internal/service/progress"
	"github.com/edumate/progression/pkg/logger"
)

type stubStreakProvider struct {
	streak int
}

func (s *stubStreakProvider) CurrentStreak(ctx context.Context, userID uint) (int, error) {
	return s.streak, nil
}

type stubInvalidator struct {
	calls int
}

func (s *stubInvalidator) Invalidate(ctx context.Context) error {
	s.calls++
	return nil
}

type engineFixture struct {
	db          *repository.DB
	engine      *Engine
	ledger      *ledger.Service
	streaks     *stubStreakProvider
	invalidator *stubInvalidator
	user        *models.User
}

func setupEngineTest(t *testing.T) *engineFixture {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(
		&models.User{},
		&models.Level{},
		&models.PointTransaction{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Course{},
		&models.CourseModule{},
		&models.Lesson{},
		&models.QuizQuestion{},
		&models.LessonProgress{},
		&models.Enrollment{},
	))

	db := &repository.DB{DB: gormDB}
	log := logger.New("error", "text", "stdout")
	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	ledgerSvc := ledger.NewService(repository.NewLedgerRepository(db), userRepo, log)
	achievementsSvc := achievements.NewService(db, achievementRepo, progressRepo, userRepo, ledgerSvc, log)

	streaks := &stubStreakProvider{}
	invalidator := &stubInvalidator{}
	engine := NewEngine(
		db,
		userRepo,
		courseRepo,
		ledgerSvc,
		level.NewResolver(repository.NewLevelRepository(db)),
		progress.NewTracker(courseRepo, progressRepo, log),
		achievementsSvc,
		streaks,
		invalidator,
		log,
	)

	user := &models.User{Username: "alice", Level: 1}
	require.NoError(t, db.Create(user).Error)

	return &engineFixture{
		db:          db,
		engine:      engine,
		ledger:      ledgerSvc,
		streaks:     streaks,
		invalidator: invalidator,
		user:        user,
	}
}

// buildCourse creates a published course with one module and one published
// lesson per reward pair.
func buildCourse(t *testing.T, db *repository.DB, courseXP, courseCoins int64, lessonRewards ...[2]int64) (uint, []uint) {
	t.Helper()

	course := &models.Course{Title: "Go Basics", Slug: "go-basics", XPReward: courseXP, CoinReward: courseCoins, IsPublished: true}
	require.NoError(t, db.Create(course).Error)
	module := &models.CourseModule{CourseID: course.ID, Title: "Module 1", Position: 1}
	require.NoError(t, db.Create(module).Error)

	ids := make([]uint, 0, len(lessonRewards))
	for i, rewards := range lessonRewards {
		lesson := &models.Lesson{
			ModuleID:    module.ID,
			Title:       "Lesson",
			Position:    i + 1,
			XPReward:    rewards[0],
			CoinReward:  rewards[1],
			IsPublished: true,
		}
		require.NoError(t, db.Create(lesson).Error)
		ids = append(ids, lesson.ID)
	}
	return course.ID, ids
}

// addQuiz attaches count questions whose correct answer is always option 0.
func addQuiz(t *testing.T, db *repository.DB, lessonID uint, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		question := &models.QuizQuestion{
			LessonID: lessonID,
			Position: i + 1,
			Question: "pick the first option",
			Options:  `["a","b","c"]`,
			Answer:   0,
		}
		require.NoError(t, db.Create(question).Error)
	}
}

func seedLevels(t *testing.T, db *repository.DB, levels ...models.Level) {
	t.Helper()
	for _, l := range levels {
		lvl := l
		require.NoError(t, db.Create(&lvl).Error)
	}
}

func (f *engineFixture) requireTotals(t *testing.T, xp, coins int64) {
	t.Helper()
	var got models.User
	require.NoError(t, f.db.First(&got, f.user.ID).Error)
	assert.Equal(t, xp, got.XPTotal)
	assert.Equal(t, coins, got.CoinBalance)
	// The cached totals must always equal the ledger sums.
	assert.NoError(t, f.ledger.VerifyUser(f.user.ID))
}

func TestCompleteLesson_GrantsReward(t *testing.T) {
	f := setupEngineTest(t)
	_, lessons := buildCourse(t, f.db, 50, 5, [2]int64{10, 1}, [2]int64{10, 1})

	result, err := f.engine.CompleteLesson(context.Background(), f.user.ID, lessons[0])
	require.NoError(t, err)

	assert.False(t, result.AlreadyCompleted)
	assert.Equal(t, int64(10), result.XPAwarded)
	assert.Equal(t, int64(1), result.CoinsAwarded)
	assert.False(t, result.CourseCompleted)
	f.requireTotals(t, 10, 1)
}

func TestCompleteLesson_DuplicateIsNoOp(t *testing.T) {
	f := setupEngineTest(t)
	_, lessons := buildCourse(t, f.db, 50, 5, [2]int64{10, 1}, [2]int64{10, 1})

	_, err := f.engine.CompleteLesson(context.Background(), f.user.ID, lessons[0])
	require.NoError(t, err)

	result, err := f.engine.CompleteLesson(context.Background(), f.user.ID, lessons[0])
	require.NoError(t, err)

	assert.True(t, result.AlreadyCompleted)
	assert.Zero(t, result.XPAwarded)
	assert.Zero(t, result.CoinsAwarded)
	f.requireTotals(t, 10, 1)

	var count int64
	require.NoError(t, f.db.Model(&models.PointTransaction{}).Count(&count).Error)
	assert.Equal(t, int64(2), count, "duplicate completion must not append ledger rows")
}

func TestCompleteLesson_UnknownLesson(t *testing.T) {
	f := setupEngineTest(t)

	_, err := f.engine.CompleteLesson(context.Background(), f.user.ID, 999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCompleteLesson_UnknownUser(t *testing.T) {
	f := setupEngineTest(t)
	_, lessons := buildCourse(t, f.db, 0, 0, [2]int64{10, 0})

	_, err := f.engine.CompleteLesson(context.Background(), 999, lessons[0])
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSubmitQuiz_PartialCredit(t *testing.T) {
	f := setupEngineTest(t)
	_, lessons := buildCourse(t, f.db, 0, 0, [2]int64{20, 0}, [2]int64{10, 0})
	addQuiz(t, f.db, lessons[0], 10)

	// 7 of 10 correct on a 20 XP lesson: floor(20 * 7/10) = 14.
	answers := []int{0, 0, 0, 0, 0, 0, 0, 1, 1, 1}
	result, err := f.engine.SubmitQuiz(context.Background(), f.user.ID, lessons[0], answers)
	require.NoError(t, err)

	assert.Equal(t, 7, result.Correct)
	assert.Equal(t, 10, result.Total)
	assert.Equal(t, int64(14), result.XPAwarded)
	f.requireTotals(t, 14, 0)
}

func TestSubmitQuiz_MissingAnswersCountWrong(t *testing.T) {
	f := setupEngineTest(t)
	_, lessons := buildCourse(t, f.db, 0, 0, [2]int64{10, 0}, [2]int64{10, 0})
	addQuiz(t, f.db, lessons[0], 4)

	result, err := f.engine.SubmitQuiz(context.Background(), f.user.ID, lessons[0], []int{0, 0})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Correct)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, int64(5), result.XPAwarded)
}

func TestSubmitQuiz_NoQuestions(t *testing.T) {
	f := setupEngineTest(t)
	_, lessons := buildCourse(t, f.db, 0, 0, [2]int64{20, 2}, [2]int64{10, 0})

	result, err := f.engine.SubmitQuiz(context.Background(), f.user.ID, lessons[0], nil)
	require.NoError(t, err)

	assert.Zero(t, result.Correct)
	assert.Zero(t, result.Total)
	assert.Zero(t, result.XPAwarded)
	assert.Zero(t, result.CoinsAwarded)

	// The lesson still completed.
	result, err = f.engine.SubmitQuiz(context.Background(), f.user.ID, lessons[0], nil)
	require.NoError(t, err)
	assert.True(t, result.AlreadyCompleted)
}

func TestCourseReward_GrantedExactlyOnce(t *testing.T) {
	f := setupEngineTest(t)
	_, lessons := buildCourse(t, f.db, 50, 5, [2]int64{10, 1}, [2]int64{10, 1})
	ctx := context.Background()

	first, err := f.engine.CompleteLesson(ctx, f.user.ID, lessons[0])
	require.NoError(t, err)
	assert.False(t, first.CourseCompleted)

	second, err := f.engine.CompleteLesson(ctx, f.user.ID, lessons[1])
	require.NoError(t, err)
	assert.True(t, second.CourseCompleted)
	assert.Equal(t, int64(60), second.XPAwarded, "final lesson plus course reward")
	assert.Equal(t, int64(6), second.CoinsAwarded)

	f.requireTotals(t, 70, 7)

	// Replaying the final lesson must not grant the course reward again.
	replay, err := f.engine.CompleteLesson(ctx, f.user.ID, lessons[1])
	require.NoError(t, err)
	assert.True(t, replay.AlreadyCompleted)
	f.requireTotals(t, 70, 7)
}

func TestCompleteLesson_LevelUp(t *testing.T) {
	f := setupEngineTest(t)
	seedLevels(t, f.db,
		models.Level{LevelNumber: 1, Title: "Novice", XPRequired: 0},
		models.Level{LevelNumber: 2, Title: "Apprentice", XPRequired: 15},
	)
	_, lessons := buildCourse(t, f.db, 0, 0, [2]int64{10, 0}, [2]int64{10, 0})
	ctx := context.Background()

	first, err := f.engine.CompleteLesson(ctx, f.user.ID, lessons[0])
	require.NoError(t, err)
	assert.False(t, first.LeveledUp)
	assert.Equal(t, 1, first.Level)

	second, err := f.engine.CompleteLesson(ctx, f.user.ID, lessons[1])
	require.NoError(t, err)
	assert.True(t, second.LeveledUp)
	assert.Equal(t, 2, second.Level)

	var got models.User
	require.NoError(t, f.db.First(&got, f.user.ID).Error)
	assert.Equal(t, 2, got.Level)
}

func TestCompleteLesson_UnlocksAchievement(t *testing.T) {
	f := setupEngineTest(t)
	seedLevels(t, f.db,
		models.Level{LevelNumber: 1, Title: "Novice", XPRequired: 0},
		models.Level{LevelNumber: 2, Title: "Apprentice", XPRequired: 30},
	)
	achievement := &models.Achievement{
		Name:             "First Steps",
		RequirementType:  models.RequirementLessonsCompleted,
		RequirementValue: 1,
		XPReward:         25,
	}
	require.NoError(t, f.db.Create(achievement).Error)
	_, lessons := buildCourse(t, f.db, 0, 0, [2]int64{10, 0}, [2]int64{10, 0})

	result, err := f.engine.CompleteLesson(context.Background(), f.user.ID, lessons[0])
	require.NoError(t, err)

	require.Len(t, result.NewAchievements, 1)
	assert.Equal(t, "First Steps", result.NewAchievements[0].Name)
	// Achievement XP counts toward the level resolved for this event.
	assert.True(t, result.LeveledUp)
	assert.Equal(t, 2, result.Level)
	f.requireTotals(t, 35, 0)
}

func TestCompleteLesson_StreakAchievement(t *testing.T) {
	f := setupEngineTest(t)
	f.streaks.streak = 7
	streakDef := &models.Achievement{
		Name:             "Week Warrior",
		RequirementType:  models.RequirementStreak,
		RequirementValue: 7,
		XPReward:         50,
	}
	require.NoError(t, f.db.Create(streakDef).Error)
	_, lessons := buildCourse(t, f.db, 0, 0, [2]int64{10, 0}, [2]int64{10, 0})

	result, err := f.engine.CompleteLesson(context.Background(), f.user.ID, lessons[0])
	require.NoError(t, err)

	require.Len(t, result.NewAchievements, 1)
	assert.Equal(t, "Week Warrior", result.NewAchievements[0].Name)
	f.requireTotals(t, 60, 0)
}

func TestCompleteLesson_NotifiesInvalidator(t *testing.T) {
	f := setupEngineTest(t)
	_, lessons := buildCourse(t, f.db, 0, 0, [2]int64{10, 0}, [2]int64{10, 0})
	ctx := context.Background()

	_, err := f.engine.CompleteLesson(ctx, f.user.ID, lessons[0])
	require.NoError(t, err)
	assert.Equal(t, 1, f.invalidator.calls)

	// A duplicate grants nothing, so the cache stays untouched.
	_, err = f.engine.CompleteLesson(ctx, f.user.ID, lessons[0])
	require.NoError(t, err)
	assert.Equal(t, 1, f.invalidator.calls)
}

func TestScoreQuiz(t *testing.T) {
	questions := []models.QuizQuestion{
		{Position: 1, Answer: 0},
		{Position: 2, Answer: 2},
		{Position: 3, Answer: 1},
	}

	correct, total := scoreQuiz(questions, []int{0, 2, 0})
	assert.Equal(t, 2, correct)
	assert.Equal(t, 3, total)

	correct, total = scoreQuiz(questions, nil)
	assert.Zero(t, correct)
	assert.Equal(t, 3, total)

	correct, total = scoreQuiz(nil, []int{0, 1})
	assert.Zero(t, correct)
	assert.Zero(t, total)
}
