package services

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tropicaldog17/networth/internal/models"
	"github.com/tropicaldog17/networth/internal/pricefeed"
)

// AccountService defines the interface for account operations
type AccountService interface {
	ListAccounts(ctx context.Context, includeInactive bool) ([]models.Account, error)
	GetAccount(ctx context.Context, id uint) (*models.Account, error)
	CreateAccount(ctx context.Context, account *models.Account) error
	UpdateAccount(ctx context.Context, id uint, patch models.AccountPatch) (*models.Account, error)
	DeleteAccount(ctx context.Context, id uint, purge bool) error
}

// TradeService is the trade ledger: every mutation is validated by replay
// before it commits.
type TradeService interface {
	AddTrade(ctx context.Context, accountID uint, trade *models.Trade, opts ...MutationOption) (*models.Trade, error)
	UpdateTrade(ctx context.Context, id uint, patch models.TradePatch, opts ...MutationOption) (*models.Trade, error)
	DeleteTrade(ctx context.Context, id uint, opts ...MutationOption) error
	GetTrade(ctx context.Context, id uint) (*models.Trade, error)
	ListTrades(ctx context.Context, accountID uint, ticker string) ([]models.Trade, error)
}

// HoldingService serves projected holdings valued at the latest known price.
type HoldingService interface {
	GetHolding(ctx context.Context, accountID uint, ticker string) (*models.Holding, error)
	ListHoldings(ctx context.Context, accountID uint) ([]models.Holding, error)
	AllHoldings(ctx context.Context) ([]models.Holding, error)
	Positions(ctx context.Context) ([]models.Holding, error)
	HeldTickers(ctx context.Context) ([]string, error)
}

// PriceService refreshes market prices from the external feed.
type PriceService interface {
	RefreshPrices(ctx context.Context, tickers []string) (*models.RefreshReport, error)
	RefreshHeld(ctx context.Context) (*models.RefreshReport, error)
}

// BalanceService manages manual balance snapshots.
type BalanceService interface {
	SetBalance(ctx context.Context, accountID uint, date time.Time, balance decimal.Decimal) (*models.BalanceSnapshot, error)
	DeleteBalance(ctx context.Context, accountID uint, date time.Time) error
	ListBalances(ctx context.Context, accountID uint) ([]models.BalanceSnapshot, error)
}

// Reconciler rebuilds every derived snapshot from trades and manual balances.
type Reconciler interface {
	LedgerListener
	PriceListener
	RecomputeAll(ctx context.Context, accountIDs []uint) (*models.RecomputeReport, error)
	Export(ctx context.Context) (*models.ReconcileExport, error)
	DirtyPairs(ctx context.Context) ([]models.LedgerVersion, error)
}

// HistoryService serves the read-only history views.
type HistoryService interface {
	AccountsHistory(ctx context.Context) (*models.AccountsHistory, error)
	NetWorthHistory(ctx context.Context, period models.Period) ([]models.NetWorthPoint, error)
	InvestmentHistory(ctx context.Context, period models.Period) ([]models.InvestmentHistoryPoint, error)
	Portfolio(ctx context.Context) (*models.PortfolioSummary, error)
	Allocation(ctx context.Context) (*models.Allocation, error)
}

// ImportService ingests CSV files with row-level partial failure.
type ImportService interface {
	ImportTrades(ctx context.Context, accountID uint, r io.Reader) (*models.ImportReport, error)
	ImportHistory(ctx context.Context, r io.Reader) (*models.ImportReport, error)
	WriteTradeTemplate(w io.Writer) error
}

// LedgerListener is told about committed source-data changes.
type LedgerListener interface {
	OnLedgerChanged(ctx context.Context, accountIDs ...uint) error
	OnAccountRemoved(ctx context.Context, accountID uint) error
}

// PriceListener is told when stored prices moved.
type PriceListener interface {
	OnPricesChanged(ctx context.Context) error
}

// QuoteFeed is the external price-feed collaborator.
type QuoteFeed interface {
	Quote(ctx context.Context, ticker string) (*pricefeed.Quote, error)
	FXRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// MutationOption tunes a single ledger mutation.
type MutationOption func(*mutationOptions)

type mutationOptions struct {
	deferRecompute bool
}

// WithDeferredRecompute skips the post-commit recompute; the caller
// reconciles once after a batch.
func WithDeferredRecompute() MutationOption {
	return func(o *mutationOptions) {
		o.deferRecompute = true
	}
}

func applyMutationOptions(opts []MutationOption) mutationOptions {
	var o mutationOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
