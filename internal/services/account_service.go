package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tropicaldog17/networth/internal/db"
	apperrors "github.com/tropicaldog17/networth/internal/errors"
	"github.com/tropicaldog17/networth/internal/logger"
	"github.com/tropicaldog17/networth/internal/models"
	"github.com/tropicaldog17/networth/internal/repositories"
)

type accountService struct {
	db       *db.DB
	accounts repositories.AccountRepository
	trades   repositories.TradeRepository
	versions repositories.LedgerVersionRepository
	balances repositories.BalanceRepository
	locks    *AccountLocks
	listener LedgerListener
	logger   *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(database *db.DB, locks *AccountLocks, listener LedgerListener, log *zap.Logger) AccountService {
	return &accountService{
		db:       database,
		accounts: repositories.NewAccountRepository(database),
		trades:   repositories.NewTradeRepository(database),
		versions: repositories.NewLedgerVersionRepository(database),
		balances: repositories.NewBalanceRepository(database),
		locks:    locks,
		listener: listener,
		logger:   logger.OrNop(log),
	}
}

func (s *accountService) ListAccounts(ctx context.Context, includeInactive bool) ([]models.Account, error) {
	accounts, err := s.accounts.List(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	return accounts, nil
}

func (s *accountService) GetAccount(ctx context.Context, id uint) (*models.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

func (s *accountService) CreateAccount(ctx context.Context, account *models.Account) error {
	account.ID = 0
	account.Name = strings.TrimSpace(account.Name)
	account.Category = models.NormalizeCategory(account.Category)
	account.IsActive = true
	if err := account.Validate(); err != nil {
		return validationError("account", err)
	}
	if err := s.ensureUniqueName(ctx, s.accounts, account.Name, 0); err != nil {
		return err
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return err
	}
	s.logger.Info("account created",
		zap.Uint("account_id", account.ID),
		zap.String("name", account.Name),
		zap.String("category", account.Category))
	return nil
}

func (s *accountService) ensureUniqueName(ctx context.Context, repo repositories.AccountRepository, name string, selfID uint) error {
	existing, err := repo.GetByName(ctx, name)
	var notFound *apperrors.ErrNotFound
	if errors.As(err, &notFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return &apperrors.ErrValidation{Field: "name", Message: "an account named " + name + " already exists"}
	}
	return nil
}

// UpdateAccount applies patch. An account that still owns trades cannot leave
// the Investment category.
func (s *accountService) UpdateAccount(ctx context.Context, id uint, patch models.AccountPatch) (*models.Account, error) {
	var (
		updated     models.Account
		wasActive   bool
		needRebuild bool
	)
	err := func() error {
		unlock := s.locks.Lock(id)
		defer unlock()

		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			accounts := s.accounts.WithTx(tx)
			current, err := accounts.GetByID(ctx, id)
			if err != nil {
				return err
			}
			wasActive = current.IsActive
			updated = *current
			patch.Apply(&updated)
			if err := updated.Validate(); err != nil {
				return validationError("account", err)
			}
			if updated.Name != current.Name {
				if err := s.ensureUniqueName(ctx, accounts, updated.Name, id); err != nil {
					return err
				}
			}
			if current.IsInvestment() && !updated.IsInvestment() {
				n, err := s.trades.WithTx(tx).CountByAccount(ctx, id)
				if err != nil {
					return err
				}
				if n > 0 {
					return &apperrors.ErrInvalidAccountCategory{
						AccountID: id,
						Category:  current.Category,
						Reason:    "account still has trades",
					}
				}
			}
			needRebuild = updated.Category != current.Category || updated.Type != current.Type || updated.IsActive != current.IsActive
			return accounts.Update(ctx, &updated)
		})
	}()
	if err != nil {
		return nil, err
	}

	s.logger.Info("account updated", zap.Uint("account_id", id))
	if needRebuild && s.listener != nil {
		var lerr error
		if wasActive && !updated.IsActive {
			lerr = s.listener.OnAccountRemoved(context.WithoutCancel(ctx), id)
		} else {
			lerr = s.listener.OnLedgerChanged(context.WithoutCancel(ctx), id)
		}
		if lerr != nil {
			s.logger.Warn("recompute after account update failed", zap.Uint("account_id", id), zap.Error(lerr))
		}
	}
	return &updated, nil
}

// DeleteAccount deactivates the account, or with purge removes it along with
// its trades, snapshots and ledger versions.
func (s *accountService) DeleteAccount(ctx context.Context, id uint, purge bool) error {
	err := func() error {
		unlock := s.locks.Lock(id)
		defer unlock()

		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			accounts := s.accounts.WithTx(tx)
			account, err := accounts.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if !purge {
				account.IsActive = false
				return accounts.Update(ctx, account)
			}
			if err := s.trades.WithTx(tx).DeleteByAccount(ctx, id); err != nil {
				return err
			}
			if err := s.balances.WithTx(tx).DeleteByAccount(ctx, id); err != nil {
				return err
			}
			if err := s.versions.WithTx(tx).DeleteByAccount(ctx, id); err != nil {
				return err
			}
			return accounts.Delete(ctx, id)
		})
	}()
	if err != nil {
		return err
	}

	s.logger.Info("account deleted", zap.Uint("account_id", id), zap.Bool("purge", purge))
	if s.listener != nil {
		if err := s.listener.OnAccountRemoved(context.WithoutCancel(ctx), id); err != nil {
			s.logger.Warn("net worth rebuild after account delete failed", zap.Uint("account_id", id), zap.Error(err))
		}
	}
	return nil
}
