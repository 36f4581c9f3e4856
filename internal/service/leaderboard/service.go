// Package leaderboard provides XP rankings derived from the point ledger.
package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edumate/progression/internal/metrics"
	"github.com/edumate/progression/internal/models"
	"github.com/edumate/progression/internal/repository"
	"github.com/edumate/progression/pkg/cache"
	"github.com/edumate/progression/pkg/logger"
)

// Leaderboard scopes.
const (
	ScopeWeekly  = "weekly"
	ScopeAllTime = "all_time"
)

// LedgerRepository interface for ledger aggregation.
type LedgerRepository interface {
	SumXPByUserSince(since time.Time) ([]repository.UserTotal, error)
}

// UserRepository interface for user lookups.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
}

// Entry represents a single entry in a leaderboard.
type Entry struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	XP       int64  `json:"xp"`
	Rank     int    `json:"rank"`
}

// Rank describes one user's position in a leaderboard.
type Rank struct {
	UserID     uint    `json:"user_id"`
	Rank       int     `json:"rank"`
	XP         int64   `json:"xp"`
	TotalUsers int     `json:"total_users"`
	Percentile float64 `json:"percentile"`
}

// Service builds leaderboards from the transaction ledger. Boards are always
// derivable purely from ledger history; Redis only caches the computed
// snapshot.
type Service struct {
	ledgerRepo LedgerRepository
	userRepo   UserRepository
	cache      cache.Cache
	cacheTTL   time.Duration
	log        *logger.Logger
}

// NewService creates a new leaderboard service.
func NewService(
	ledgerRepo *repository.LedgerRepository,
	userRepo *repository.UserRepository,
	c cache.Cache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Service {
	return &Service{
		ledgerRepo: ledgerRepo,
		userRepo:   userRepo,
		cache:      c,
		cacheTTL:   cacheTTL,
		log:        log,
	}
}

// NewServiceWithInterfaces creates a new leaderboard service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	ledgerRepo LedgerRepository,
	userRepo UserRepository,
	c cache.Cache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Service {
	return &Service{
		ledgerRepo: ledgerRepo,
		userRepo:   userRepo,
		cache:      c,
		cacheTTL:   cacheTTL,
		log:        log,
	}
}

// GetWeekly returns the current ISO week's XP ranking.
func (s *Service) GetWeekly(ctx context.Context, limit int) ([]Entry, error) {
	return s.getBoard(ctx, ScopeWeekly, limit)
}

// GetAllTime returns the all-time XP ranking.
func (s *Service) GetAllTime(ctx context.Context, limit int) ([]Entry, error) {
	return s.getBoard(ctx, ScopeAllTime, limit)
}

// GetUserRank returns a user's rank within a scope. Users without XP in the
// window are not ranked and get rank 0.
func (s *Service) GetUserRank(ctx context.Context, userID uint, scope string) (*Rank, error) {
	board, err := s.getBoard(ctx, scope, 0)
	if err != nil {
		return nil, err
	}

	rank := &Rank{UserID: userID, TotalUsers: len(board)}
	for _, entry := range board {
		if entry.UserID == userID {
			rank.Rank = entry.Rank
			rank.XP = entry.XP
			if len(board) > 0 {
				rank.Percentile = round2(float64(entry.Rank) / float64(len(board)) * 100)
			}
			return rank, nil
		}
	}
	return rank, nil
}

// Invalidate drops the cached boards. Called after reward grants.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Del(ctx, s.cacheKey(ScopeWeekly), s.cacheKey(ScopeAllTime))
}

// getBoard returns the board for a scope, from cache when fresh, otherwise
// recomputed from the ledger. The full board is cached; limit applies on the
// way out.
func (s *Service) getBoard(ctx context.Context, scope string, limit int) ([]Entry, error) {
	key := s.cacheKey(scope)

	if cached, err := s.cache.Get(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("scope", scope).Msg("Leaderboard cache read failed")
	} else if cached != "" {
		var board []Entry
		if err := json.Unmarshal([]byte(cached), &board); err == nil {
			metrics.RecordLeaderboardCacheLookup(scope, "hit")
			return applyLimit(board, limit), nil
		}
		s.log.Warn().Str("scope", scope).Msg("Discarding corrupt leaderboard cache entry")
	}
	metrics.RecordLeaderboardCacheLookup(scope, "miss")

	board, err := s.compute(scope)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(board); err == nil {
		if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Str("scope", scope).Msg("Leaderboard cache write failed")
		}
	}

	return applyLimit(board, limit), nil
}

// compute builds a board from ledger history. The ledger query orders by XP
// descending with ties broken by lowest user id, so ranks are deterministic
// and equal scores never thrash.
func (s *Service) compute(scope string) ([]Entry, error) {
	var since time.Time
	if scope == ScopeWeekly {
		since = weekStart(time.Now().UTC())
	}

	totals, err := s.ledgerRepo.SumXPByUserSince(since)
	if err != nil {
		return nil, fmt.Errorf("failed to compute %s leaderboard: %w", scope, err)
	}

	entries := make([]Entry, 0, len(totals))
	for i, t := range totals {
		user, err := s.userRepo.GetByID(t.UserID)
		if err != nil {
			s.log.Warn().Err(err).Uint("user_id", t.UserID).Msg("Failed to get user for leaderboard")
			continue
		}
		entries = append(entries, Entry{
			UserID:   t.UserID,
			Username: user.Username,
			XP:       t.Total,
			Rank:     i + 1,
		})
	}
	return entries, nil
}

// cacheKey returns the cache key for a scope. Weekly keys roll over with the
// ISO week so stale weeks age out naturally.
func (s *Service) cacheKey(scope string) string {
	if scope == ScopeWeekly {
		year, week := time.Now().UTC().ISOWeek()
		return fmt.Sprintf("leaderboard:weekly:%d-W%02d", year, week)
	}
	return "leaderboard:all_time"
}

// weekStart returns 00:00 UTC on the Monday of t's ISO week.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the preceding Monday's week
	}
	day := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

// applyLimit truncates a board.
func applyLimit(board []Entry, limit int) []Entry {
	if limit > 0 && len(board) > limit {
		return board[:limit]
	}
	return board
}
