package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tropicaldog17/networth/internal/db"
	"github.com/tropicaldog17/networth/internal/models"
)

type ledgerVersionRepository struct {
	db *gorm.DB
}

// NewLedgerVersionRepository creates a new ledger version repository
func NewLedgerVersionRepository(database *db.DB) LedgerVersionRepository {
	return &ledgerVersionRepository{db: database.DB}
}

func (r *ledgerVersionRepository) WithTx(tx *gorm.DB) LedgerVersionRepository {
	return &ledgerVersionRepository{db: tx}
}

// Bump increments the pair's version and marks it dirty. Call it inside the
// transaction that mutates the pair's trades.
func (r *ledgerVersionRepository) Bump(ctx context.Context, key models.PairKey, lastTradeID uint) (int64, error) {
	q := r.db.WithContext(ctx)
	var v models.LedgerVersion
	err := q.First(&v, "account_id = ? AND ticker = ?", key.AccountID, key.Ticker).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		v = models.LedgerVersion{AccountID: key.AccountID, Ticker: key.Ticker, Version: 1, LastTradeID: lastTradeID, Dirty: true}
		if err := q.Create(&v).Error; err != nil {
			return 0, fmt.Errorf("failed to create ledger version: %w", err)
		}
		return v.Version, nil
	case err != nil:
		return 0, fmt.Errorf("failed to get ledger version: %w", err)
	}

	v.Version++
	v.LastTradeID = lastTradeID
	v.Dirty = true
	if err := q.Save(&v).Error; err != nil {
		return 0, fmt.Errorf("failed to bump ledger version: %w", err)
	}
	return v.Version, nil
}

// Get returns the pair's version, or version 0 for a pair never written.
func (r *ledgerVersionRepository) Get(ctx context.Context, key models.PairKey) (models.LedgerVersion, error) {
	var v models.LedgerVersion
	err := r.db.WithContext(ctx).First(&v, "account_id = ? AND ticker = ?", key.AccountID, key.Ticker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.LedgerVersion{AccountID: key.AccountID, Ticker: key.Ticker}, nil
	}
	if err != nil {
		return v, fmt.Errorf("failed to get ledger version: %w", err)
	}
	return v, nil
}

func (r *ledgerVersionRepository) ListByAccount(ctx context.Context, accountID uint) ([]models.LedgerVersion, error) {
	var out []models.LedgerVersion
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Order("ticker ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list ledger versions: %w", err)
	}
	return out, nil
}

func (r *ledgerVersionRepository) ListDirty(ctx context.Context) ([]models.LedgerVersion, error) {
	var out []models.LedgerVersion
	if err := r.db.WithContext(ctx).Where("dirty = ?", true).Order("account_id ASC, ticker ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list dirty pairs: %w", err)
	}
	return out, nil
}

func (r *ledgerVersionRepository) ClearDirty(ctx context.Context, accountID uint) error {
	err := r.db.WithContext(ctx).Model(&models.LedgerVersion{}).
		Where("account_id = ? AND dirty = ?", accountID, true).
		Update("dirty", false).Error
	if err != nil {
		return fmt.Errorf("failed to clear dirty pairs: %w", err)
	}
	return nil
}

func (r *ledgerVersionRepository) DeleteByAccount(ctx context.Context, accountID uint) error {
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&models.LedgerVersion{}).Error; err != nil {
		return fmt.Errorf("failed to delete ledger versions: %w", err)
	}
	return nil
}
