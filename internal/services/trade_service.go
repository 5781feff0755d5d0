package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tropicaldog17/networth/internal/db"
	apperrors "github.com/tropicaldog17/networth/internal/errors"
	"github.com/tropicaldog17/networth/internal/ledger"
	"github.com/tropicaldog17/networth/internal/logger"
	"github.com/tropicaldog17/networth/internal/models"
	"github.com/tropicaldog17/networth/internal/repositories"
)

// pendingTradeID stands in for a trade not yet inserted; it replays after
// every existing trade of the same day, as its real id will.
const pendingTradeID = ^uint(0)

type tradeService struct {
	db       *db.DB
	accounts repositories.AccountRepository
	trades   repositories.TradeRepository
	versions repositories.LedgerVersionRepository
	locks    *AccountLocks
	listener LedgerListener
	logger   *zap.Logger
}

// NewTradeService creates the trade ledger service. listener may be nil, in
// which case mutated pairs stay dirty until the next explicit recompute.
func NewTradeService(database *db.DB, locks *AccountLocks, listener LedgerListener, log *zap.Logger) TradeService {
	return &tradeService{
		db:       database,
		accounts: repositories.NewAccountRepository(database),
		trades:   repositories.NewTradeRepository(database),
		versions: repositories.NewLedgerVersionRepository(database),
		locks:    locks,
		listener: listener,
		logger:   logger.OrNop(log),
	}
}

func validationError(field string, err error) error {
	return &apperrors.ErrValidation{Field: field, Message: err.Error()}
}

func (s *tradeService) AddTrade(ctx context.Context, accountID uint, trade *models.Trade, opts ...MutationOption) (*models.Trade, error) {
	if trade == nil {
		return nil, &apperrors.ErrValidation{Field: "trade", Message: "trade is required"}
	}
	trade.ID = 0
	trade.AccountID = accountID
	trade.Normalize()
	if err := trade.Validate(); err != nil {
		return nil, validationError("trade", err)
	}

	if err := s.addLocked(ctx, trade); err != nil {
		return nil, err
	}
	s.logger.Info("trade added",
		zap.Uint("trade_id", trade.ID),
		zap.Uint("account_id", accountID),
		zap.String("ticker", trade.Ticker),
		zap.String("trade_type", string(trade.TradeType)))

	s.afterCommit(ctx, applyMutationOptions(opts), accountID)
	return trade, nil
}

func (s *tradeService) addLocked(ctx context.Context, trade *models.Trade) error {
	unlock := s.locks.Lock(trade.AccountID)
	defer unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireInvestmentAccount(ctx, tx, trade.AccountID); err != nil {
			return err
		}
		existing, err := s.trades.WithTx(tx).ListByAccount(ctx, trade.AccountID, trade.Ticker)
		if err != nil {
			return err
		}
		candidate := *trade
		candidate.ID = pendingTradeID
		if _, err := ledger.Project(append(existing, candidate)); err != nil {
			return err
		}
		if err := s.trades.WithTx(tx).Create(ctx, trade); err != nil {
			return err
		}
		_, err = s.versions.WithTx(tx).Bump(ctx, trade.Pair(), trade.ID)
		return err
	})
}

func (s *tradeService) UpdateTrade(ctx context.Context, id uint, patch models.TradePatch, opts ...MutationOption) (*models.Trade, error) {
	current, err := s.trades.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var updated models.Trade
	err = func() error {
		unlock := s.locks.Lock(current.AccountID)
		defer unlock()

		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			trades := s.trades.WithTx(tx)
			// re-read under the lock
			before, err := trades.GetByID(ctx, id)
			if err != nil {
				return err
			}
			updated = patch.Apply(*before)
			updated.Normalize()
			if err := updated.Validate(); err != nil {
				return validationError("trade", err)
			}
			if err := s.requireInvestmentAccount(ctx, tx, updated.AccountID); err != nil {
				return err
			}

			pairs := []models.PairKey{before.Pair()}
			if updated.Ticker != before.Ticker {
				pairs = append(pairs, updated.Pair())
			}
			for _, key := range pairs {
				stream, err := trades.ListByAccount(ctx, key.AccountID, key.Ticker)
				if err != nil {
					return err
				}
				replay := make([]models.Trade, 0, len(stream)+1)
				for _, t := range stream {
					if t.ID != id {
						replay = append(replay, t)
					}
				}
				if updated.Pair() == key {
					replay = append(replay, updated)
				}
				if _, err := ledger.Project(replay); err != nil {
					return err
				}
			}

			if err := trades.Update(ctx, &updated); err != nil {
				return err
			}
			for _, key := range pairs {
				if _, err := s.versions.WithTx(tx).Bump(ctx, key, id); err != nil {
					return err
				}
			}
			return nil
		})
	}()
	if err != nil {
		return nil, err
	}

	s.logger.Info("trade updated",
		zap.Uint("trade_id", id),
		zap.Uint("account_id", updated.AccountID),
		zap.String("ticker", updated.Ticker))
	s.afterCommit(ctx, applyMutationOptions(opts), updated.AccountID)
	return &updated, nil
}

func (s *tradeService) DeleteTrade(ctx context.Context, id uint, opts ...MutationOption) error {
	current, err := s.trades.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = func() error {
		unlock := s.locks.Lock(current.AccountID)
		defer unlock()

		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			trades := s.trades.WithTx(tx)
			target, err := trades.GetByID(ctx, id)
			if err != nil {
				return err
			}
			stream, err := trades.ListByAccount(ctx, target.AccountID, target.Ticker)
			if err != nil {
				return err
			}
			remaining := make([]models.Trade, 0, len(stream))
			for _, t := range stream {
				if t.ID != id {
					remaining = append(remaining, t)
				}
			}
			if _, err := ledger.Project(remaining); err != nil {
				return fmt.Errorf("deleting trade %d would leave the ledger inconsistent: %w", id, err)
			}
			if err := trades.Delete(ctx, id); err != nil {
				return err
			}
			_, err = s.versions.WithTx(tx).Bump(ctx, target.Pair(), id)
			return err
		})
	}()
	if err != nil {
		return err
	}

	s.logger.Info("trade deleted",
		zap.Uint("trade_id", id),
		zap.Uint("account_id", current.AccountID),
		zap.String("ticker", current.Ticker))
	s.afterCommit(ctx, applyMutationOptions(opts), current.AccountID)
	return nil
}

func (s *tradeService) GetTrade(ctx context.Context, id uint) (*models.Trade, error) {
	return s.trades.GetByID(ctx, id)
}

func (s *tradeService) ListTrades(ctx context.Context, accountID uint, ticker string) ([]models.Trade, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	unlock := s.locks.RLock(accountID)
	defer unlock()

	var out []models.Trade
	err := s.db.ReadTx(ctx, func(tx *gorm.DB) error {
		var err error
		out, err = s.trades.WithTx(tx).ListByAccount(ctx, accountID, strings.ToUpper(strings.TrimSpace(ticker)))
		return err
	})
	if out == nil {
		out = []models.Trade{}
	}
	return out, err
}

func (s *tradeService) requireInvestmentAccount(ctx context.Context, tx *gorm.DB, accountID uint) error {
	account, err := s.accounts.WithTx(tx).GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.IsInvestment() {
		return &apperrors.ErrInvalidAccountCategory{AccountID: account.ID, Category: account.Category}
	}
	return nil
}

// afterCommit runs the incremental recompute outside the account lock.
func (s *tradeService) afterCommit(ctx context.Context, o mutationOptions, accountID uint) {
	if o.deferRecompute || s.listener == nil {
		return
	}
	if err := s.listener.OnLedgerChanged(context.WithoutCancel(ctx), accountID); err != nil {
		var insufficient *apperrors.ErrInsufficientHoldings
		level := s.logger.Warn
		if errors.As(err, &insufficient) {
			level = s.logger.Error
		}
		level("incremental recompute failed; pair stays dirty",
			zap.Uint("account_id", accountID), zap.Error(err))
	}
}
