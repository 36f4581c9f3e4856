// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the progression engine.
var (
	// Counters.
	RewardsGrantedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_granted_total",
			Help: "Total number of reward grants by action type",
		},
		[]string{"action_type"},
	)

	DuplicateCompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duplicate_completions_total",
			Help: "Total completions rejected by the idempotence guard",
		},
		[]string{"action_type"},
	)

	XPAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xp_awarded_total",
			Help: "Total XP awarded by action type",
		},
		[]string{"action_type"},
	)

	CoinsAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coins_awarded_total",
			Help: "Total coins awarded by action type",
		},
		[]string{"action_type"},
	)

	LevelUpsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "level_ups_total",
			Help: "Total number of level-up events",
		},
	)

	InvariantViolationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invariant_violations_total",
			Help: "Total detected divergences between cached totals and the ledger",
		},
	)

	// Achievement metrics.
	AchievementsUnlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievements_unlocked_total",
			Help: "Total number of achievements unlocked",
		},
		[]string{"achievement"},
	)

	AchievementHolders = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "achievement_holders",
			Help: "Current number of users holding each achievement",
		},
		[]string{"achievement"},
	)

	// Leaderboard metrics.
	LeaderboardCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaderboard_cache_lookups_total",
			Help: "Leaderboard cache lookups by scope and result",
		},
		[]string{"scope", "result"},
	)

	// Scheduler metrics.
	SchedulerJobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_job_runs_total",
			Help: "Total scheduler job runs by job and status",
		},
		[]string{"job", "status"},
	)

	SchedulerJobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Time taken to run a scheduler job",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"job"},
	)

	SchedulerLastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scheduler_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last run per scheduler job",
		},
		[]string{"job"},
	)

	// Histograms.
	RewardSequenceDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reward_sequence_duration_seconds",
			Help:    "Time taken to run a full reward sequence",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"action_type"},
	)

	QuizScoreRatio = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quiz_score_ratio",
			Help:    "Distribution of quiz score ratios (correct/total)",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 to 1.0
		},
	)
)

// RecordReward records a reward grant event.
func RecordReward(actionType string, xp, coins int64) {
	RewardsGrantedTotal.WithLabelValues(actionType).Inc()
	if xp > 0 {
		XPAwardedTotal.WithLabelValues(actionType).Add(float64(xp))
	}
	if coins > 0 {
		CoinsAwardedTotal.WithLabelValues(actionType).Add(float64(coins))
	}
}

// RecordDuplicateCompletion records an idempotence guard hit.
func RecordDuplicateCompletion(actionType string) {
	DuplicateCompletionsTotal.WithLabelValues(actionType).Inc()
}

// RecordLevelUp records a level-up event.
func RecordLevelUp() {
	LevelUpsTotal.Inc()
}

// RecordInvariantViolation records a detected ledger divergence.
func RecordInvariantViolation() {
	InvariantViolationsTotal.Inc()
}

// RecordAchievementUnlocked records an achievement unlock event.
func RecordAchievementUnlocked(achievement string) {
	AchievementsUnlockedTotal.WithLabelValues(achievement).Inc()
}

// SetAchievementHolders sets the number of holders for an achievement.
func SetAchievementHolders(achievement string, count int) {
	AchievementHolders.WithLabelValues(achievement).Set(float64(count))
}

// RecordLeaderboardCacheLookup records a cache hit or miss for a leaderboard
// scope.
func RecordLeaderboardCacheLookup(scope, result string) {
	LeaderboardCacheLookupsTotal.WithLabelValues(scope, result).Inc()
}

// RecordSchedulerJobRun records a scheduler job completion.
func RecordSchedulerJobRun(job, status string) {
	SchedulerJobRunsTotal.WithLabelValues(job, status).Inc()
}

// ObserveSchedulerJobDuration observes how long a scheduler job took.
func ObserveSchedulerJobDuration(job string, seconds float64) {
	SchedulerJobDurationSeconds.WithLabelValues(job).Observe(seconds)
}

// SetSchedulerLastRun updates the last-run timestamp for a scheduler job.
func SetSchedulerLastRun(job string, unixSeconds float64) {
	SchedulerLastRunTimestamp.WithLabelValues(job).Set(unixSeconds)
}

// ObserveRewardSequenceDuration observes the duration of a reward sequence.
func ObserveRewardSequenceDuration(actionType string, seconds float64) {
	RewardSequenceDurationSeconds.WithLabelValues(actionType).Observe(seconds)
}

// ObserveQuizScoreRatio observes a quiz score ratio.
func ObserveQuizScoreRatio(ratio float64) {
	QuizScoreRatio.Observe(ratio)
}
