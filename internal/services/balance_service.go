package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tropicaldog17/networth/internal/db"
	apperrors "github.com/tropicaldog17/networth/internal/errors"
	"github.com/tropicaldog17/networth/internal/logger"
	"github.com/tropicaldog17/networth/internal/models"
	"github.com/tropicaldog17/networth/internal/repositories"
)

type balanceService struct {
	db       *db.DB
	accounts repositories.AccountRepository
	balances repositories.BalanceRepository
	locks    *AccountLocks
	listener LedgerListener
	logger   *zap.Logger
}

// NewBalanceService creates the manual balance service for non-investment accounts.
func NewBalanceService(database *db.DB, locks *AccountLocks, listener LedgerListener, log *zap.Logger) BalanceService {
	return &balanceService{
		db:       database,
		accounts: repositories.NewAccountRepository(database),
		balances: repositories.NewBalanceRepository(database),
		locks:    locks,
		listener: listener,
		logger:   logger.OrNop(log),
	}
}

func (s *balanceService) requireManualAccount(ctx context.Context, tx *gorm.DB, accountID uint) error {
	account, err := s.accounts.WithTx(tx).GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.IsInvestment() {
		return &apperrors.ErrInvalidAccountCategory{
			AccountID: account.ID,
			Category:  account.Category,
			Reason:    "investment balances are derived from trades",
		}
	}
	return nil
}

// SetBalance upserts the manual balance of the account on date.
func (s *balanceService) SetBalance(ctx context.Context, accountID uint, date time.Time, balance decimal.Decimal) (*models.BalanceSnapshot, error) {
	snap := &models.BalanceSnapshot{
		AccountID: accountID,
		Date:      models.DateOnly(date),
		Balance:   balance,
		Source:    models.SnapshotSourceManual,
	}
	if err := snap.Validate(); err != nil {
		return nil, validationError("balance", err)
	}

	err := func() error {
		unlock := s.locks.Lock(accountID)
		defer unlock()
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.requireManualAccount(ctx, tx, accountID); err != nil {
				return err
			}
			return s.balances.WithTx(tx).Upsert(ctx, snap)
		})
	}()
	if err != nil {
		return nil, err
	}

	s.logger.Info("balance set",
		zap.Uint("account_id", accountID),
		zap.String("date", snap.Date.Format(models.DateLayout)),
		zap.String("balance", snap.Balance.String()))
	s.notify(ctx, accountID)
	return snap, nil
}

func (s *balanceService) DeleteBalance(ctx context.Context, accountID uint, date time.Time) error {
	date = models.DateOnly(date)
	err := func() error {
		unlock := s.locks.Lock(accountID)
		defer unlock()
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.requireManualAccount(ctx, tx, accountID); err != nil {
				return err
			}
			deleted, err := s.balances.WithTx(tx).DeleteByAccountDate(ctx, accountID, date)
			if err != nil {
				return err
			}
			if !deleted {
				return &apperrors.ErrNotFound{Resource: "balance", ID: date.Format(models.DateLayout)}
			}
			return nil
		})
	}()
	if err != nil {
		return err
	}
	s.notify(ctx, accountID)
	return nil
}

func (s *balanceService) ListBalances(ctx context.Context, accountID uint) ([]models.BalanceSnapshot, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	unlock := s.locks.RLock(accountID)
	defer unlock()

	out := []models.BalanceSnapshot{}
	err := s.db.ReadTx(ctx, func(tx *gorm.DB) error {
		snaps, err := s.balances.WithTx(tx).ListByAccount(ctx, accountID)
		if err != nil {
			return err
		}
		out = append(out, snaps...)
		return nil
	})
	return out, err
}

func (s *balanceService) notify(ctx context.Context, accountID uint) {
	if s.listener == nil {
		return
	}
	if err := s.listener.OnLedgerChanged(context.WithoutCancel(ctx), accountID); err != nil {
		s.logger.Warn("net worth rebuild after balance change failed",
			zap.Uint("account_id", accountID), zap.Error(err))
	}
}
