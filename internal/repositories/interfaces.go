package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tropicaldog17/networth/internal/models"
)

// AccountRepository defines the interface for account data operations
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uint) (*models.Account, error)
	GetByName(ctx context.Context, name string) (*models.Account, error)
	List(ctx context.Context, includeInactive bool) ([]models.Account, error)
	ListByIDs(ctx context.Context, ids []uint) ([]models.Account, error)
	Update(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id uint) error
	WithTx(tx *gorm.DB) AccountRepository
}

// TradeRepository defines the interface for trade ledger operations.
// Lists are always in replay order: trade_date, then id.
type TradeRepository interface {
	Create(ctx context.Context, trade *models.Trade) error
	GetByID(ctx context.Context, id uint) (*models.Trade, error)
	Update(ctx context.Context, trade *models.Trade) error
	Delete(ctx context.Context, id uint) error
	ListByAccount(ctx context.Context, accountID uint, ticker string) ([]models.Trade, error)
	ListByAccounts(ctx context.Context, accountIDs []uint) ([]models.Trade, error)
	ListAll(ctx context.Context) ([]models.Trade, error)
	CountByAccount(ctx context.Context, accountID uint) (int64, error)
	DistinctTickers(ctx context.Context) ([]string, error)
	AccountIDs(ctx context.Context) ([]uint, error)
	DeleteByAccount(ctx context.Context, accountID uint) error
	WithTx(tx *gorm.DB) TradeRepository
}

// LedgerVersionRepository tracks the generation of each (account, ticker) stream.
type LedgerVersionRepository interface {
	Bump(ctx context.Context, key models.PairKey, lastTradeID uint) (int64, error)
	Get(ctx context.Context, key models.PairKey) (models.LedgerVersion, error)
	ListByAccount(ctx context.Context, accountID uint) ([]models.LedgerVersion, error)
	ListDirty(ctx context.Context) ([]models.LedgerVersion, error)
	ClearDirty(ctx context.Context, accountID uint) error
	DeleteByAccount(ctx context.Context, accountID uint) error
	WithTx(tx *gorm.DB) LedgerVersionRepository
}

// BalanceRepository defines the interface for balance snapshot operations
type BalanceRepository interface {
	Upsert(ctx context.Context, snap *models.BalanceSnapshot) error
	ListByAccount(ctx context.Context, accountID uint) ([]models.BalanceSnapshot, error)
	ListAll(ctx context.Context) ([]models.BalanceSnapshot, error)
	AccountIDsOn(ctx context.Context, date time.Time) ([]uint, error)
	DeleteByAccountDate(ctx context.Context, accountID uint, date time.Time) (bool, error)
	ReplaceComputed(ctx context.Context, accountID uint, snaps []models.BalanceSnapshot) (int, error)
	DeleteByAccount(ctx context.Context, accountID uint) error
	WithTx(tx *gorm.DB) BalanceRepository
}

// NetWorthRepository stores the derived net-worth series.
type NetWorthRepository interface {
	ReplaceAll(ctx context.Context, points []models.NetWorthPoint) error
	List(ctx context.Context, period models.Period) ([]models.NetWorthPoint, error)
	WithTx(tx *gorm.DB) NetWorthRepository
}

// PriceRepository stores quotes per (ticker, date).
type PriceRepository interface {
	Upsert(ctx context.Context, price *models.AssetPrice) error
	Latest(ctx context.Context, ticker string) (*models.AssetPrice, error)
	LatestForTickers(ctx context.Context, tickers []string) (map[string]models.AssetPrice, error)
	ListForTickers(ctx context.Context, tickers []string, upTo time.Time) ([]models.AssetPrice, error)
	WithTx(tx *gorm.DB) PriceRepository
}
