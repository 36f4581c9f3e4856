// Package ledger provides the durable append-only record of XP and coin
// transactions and keeps the users' cached totals in lockstep with it.
package ledger

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	prommetrics "github.com/edumate/progression/internal/metrics"
	"github.com/edumate/progression/internal/models"
	"github.com/edumate/progression/internal/repository"
	"github.com/edumate/progression/pkg/logger"
)

// Entry describes one transaction to record.
type Entry struct {
	UserID        uint
	Amount        int64
	Currency      string
	ActionType    string
	Description   string
	ReferenceID   uint
	ReferenceType string
}

// Service records point transactions.
type Service struct {
	ledgerRepo *repository.LedgerRepository
	userRepo   *repository.UserRepository
	log        *logger.Logger
}

// NewService creates a new ledger service.
func NewService(ledgerRepo *repository.LedgerRepository, userRepo *repository.UserRepository, log *logger.Logger) *Service {
	return &Service{
		ledgerRepo: ledgerRepo,
		userRepo:   userRepo,
		log:        log,
	}
}

// Record appends an immutable transaction row and increments the user's
// cached running total by the same amount, both on the given transaction.
// The two writes share one transaction so the cached total can never diverge
// from the ledger sum. Returns the new transaction's ID.
func (s *Service) Record(tx *gorm.DB, e Entry) (uint, error) {
	if e.Currency != models.CurrencyXP && e.Currency != models.CurrencyCoin {
		return 0, fmt.Errorf("unknown currency %q", e.Currency)
	}
	// Reward paths only ever add; negative amounts are reserved for coin
	// spending, which is not a reward operation.
	if e.Amount < 0 && e.Currency == models.CurrencyXP {
		return 0, fmt.Errorf("xp amount must not be negative, got %d", e.Amount)
	}

	record := &models.PointTransaction{
		UserID:        e.UserID,
		Amount:        e.Amount,
		Currency:      e.Currency,
		ActionType:    e.ActionType,
		Description:   e.Description,
		ReferenceID:   e.ReferenceID,
		ReferenceType: e.ReferenceType,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.ledgerRepo.WithTx(tx).Append(record); err != nil {
		return 0, err
	}
	if err := s.userRepo.WithTx(tx).IncrementBalance(e.UserID, e.Currency, e.Amount); err != nil {
		return 0, err
	}

	s.log.Debug().
		Uint("user_id", e.UserID).
		Int64("amount", e.Amount).
		Str("currency", e.Currency).
		Str("action_type", e.ActionType).
		Msg("Recorded point transaction")

	return record.ID, nil
}

// VerifyUser checks that a user's cached totals equal the ledger sums.
// A divergence is fatal: it is reported, never auto-corrected.
func (s *Service) VerifyUser(userID uint) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}

	xpSum, err := s.ledgerRepo.SumByUser(userID, models.CurrencyXP)
	if err != nil {
		return err
	}
	coinSum, err := s.ledgerRepo.SumByUser(userID, models.CurrencyCoin)
	if err != nil {
		return err
	}

	if user.XPTotal != xpSum || user.CoinBalance != coinSum {
		prommetrics.RecordInvariantViolation()
		s.log.Error().
			Uint("user_id", userID).
			Int64("cached_xp", user.XPTotal).
			Int64("ledger_xp", xpSum).
			Int64("cached_coins", user.CoinBalance).
			Int64("ledger_coins", coinSum).
			Msg("Cached totals diverged from ledger")
		return fmt.Errorf("user %d cached totals diverged from ledger: %w", userID, models.ErrInvariantViolation)
	}
	return nil
}

// History retrieves a user's transactions, newest first.
func (s *Service) History(userID uint, limit int) ([]models.PointTransaction, error) {
	return s.ledgerRepo.ListByUser(userID, limit)
}
