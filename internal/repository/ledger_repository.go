package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/edumate/progression/internal/models"
)

// LedgerRepository handles the append-only point transaction ledger.
type LedgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new ledger repository.
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *LedgerRepository) WithTx(tx *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: &DB{tx}}
}

// Append inserts an immutable transaction row. Rows are never updated or
// deleted.
func (r *LedgerRepository) Append(tx *models.PointTransaction) error {
	if err := r.db.Create(tx).Error; err != nil {
		return fmt.Errorf("failed to append point transaction: %w", err)
	}
	return nil
}

// SumByUser returns the sum of transaction amounts for a user and currency.
func (r *LedgerRepository) SumByUser(userID uint, currency string) (int64, error) {
	var total int64
	err := r.db.Model(&models.PointTransaction{}).
		Where("user_id = ? AND currency = ?", userID, currency).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum ledger for user %d: %w", userID, err)
	}
	return total, nil
}

// UserTotal holds an aggregated XP sum for one user.
type UserTotal struct {
	UserID uint
	Total  int64
}

// SumXPByUserSince aggregates XP amounts per user for transactions created at
// or after since. A zero since aggregates all time. Ordered by total
// descending, ties broken by lowest user id so ranks stay stable.
func (r *LedgerRepository) SumXPByUserSince(since time.Time) ([]UserTotal, error) {
	var totals []UserTotal
	query := r.db.Model(&models.PointTransaction{}).
		Select("user_id, SUM(amount) as total").
		Where("currency = ?", models.CurrencyXP)

	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}

	err := query.
		Group("user_id").
		Order("total DESC, user_id ASC").
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ledger: %w", err)
	}
	return totals, nil
}

// ActivityTimes returns the creation timestamps of a user's transactions at
// or after since, newest first.
func (r *LedgerRepository) ActivityTimes(userID uint, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.db.Model(&models.PointTransaction{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at DESC").
		Pluck("created_at", &times).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list activity times for user %d: %w", userID, err)
	}
	return times, nil
}

// ListByUser retrieves a user's transactions, newest first.
func (r *LedgerRepository) ListByUser(userID uint, limit int) ([]models.PointTransaction, error) {
	var txs []models.PointTransaction
	query := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions for user %d: %w", userID, err)
	}
	return txs, nil
}
