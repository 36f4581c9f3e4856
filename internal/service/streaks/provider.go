// Package streaks derives consecutive-day activity streaks from the point
// ledger. The reward engine consumes the value through its StreakProvider
// interface and never computes streaks itself.
package streaks

import (
	"context"
	"time"

	"github.com/edumate/progression/internal/repository"
)

// lookback bounds the ledger scan; streaks longer than this are reported
// capped, which is far above any configured streak achievement.
const lookback = 366

// LedgerRepository interface for activity lookups.
type LedgerRepository interface {
	ActivityTimes(userID uint, since time.Time) ([]time.Time, error)
}

// Provider computes a user's current streak from ledger activity.
type Provider struct {
	ledgerRepo LedgerRepository
	now        func() time.Time
}

// NewProvider creates a new streak provider.
func NewProvider(ledgerRepo *repository.LedgerRepository) *Provider {
	return &Provider{ledgerRepo: ledgerRepo, now: time.Now}
}

// NewProviderWithInterfaces creates a new streak provider with interface dependencies (useful for testing).
func NewProviderWithInterfaces(ledgerRepo LedgerRepository) *Provider {
	return &Provider{ledgerRepo: ledgerRepo, now: time.Now}
}

// CurrentStreak returns the number of consecutive UTC days, ending today or
// yesterday, on which the user earned anything. A user active yesterday but
// not yet today keeps their streak; a gap of a full day breaks it.
func (p *Provider) CurrentStreak(ctx context.Context, userID uint) (int, error) {
	today := p.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -lookback)

	times, err := p.ledgerRepo.ActivityTimes(userID, since)
	if err != nil {
		return 0, err
	}
	if len(times) == 0 {
		return 0, nil
	}

	days := make(map[time.Time]bool, len(times))
	for _, t := range times {
		days[t.UTC().Truncate(24*time.Hour)] = true
	}

	cursor := today
	if !days[cursor] {
		cursor = cursor.AddDate(0, 0, -1)
	}

	streak := 0
	for days[cursor] {
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak, nil
}
