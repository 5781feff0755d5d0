// Package app wires configuration, storage, services and handlers into a
// runnable application shared by the server and the CLI.
package app

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/tropicaldog17/networth/internal/config"
	"github.com/tropicaldog17/networth/internal/db"
	"github.com/tropicaldog17/networth/internal/handlers"
	"github.com/tropicaldog17/networth/internal/logger"
	"github.com/tropicaldog17/networth/internal/pricefeed"
	"github.com/tropicaldog17/networth/internal/services"
)

// Services is the full service graph over one database.
type Services struct {
	Accounts   services.AccountService
	Trades     services.TradeService
	Holdings   services.HoldingService
	Balances   services.BalanceService
	Prices     services.PriceService
	History    services.HistoryService
	Imports    services.ImportService
	Reconciler services.Reconciler
}

// NewServices builds every service. With recompute_on_write disabled the
// mutating services get no listener and derived data is only rebuilt by an
// explicit recalculation.
func NewServices(cfg *config.Config, database *db.DB, feed services.QuoteFeed, log *zap.Logger) *Services {
	log = logger.OrNop(log)
	locks := services.NewAccountLocks()
	reconciler := services.NewReconciler(database, locks, log.Named("reconciler"))

	var (
		ledgerListener services.LedgerListener
		priceListener  services.PriceListener
	)
	if cfg.Ledger.RecomputeOnWrite {
		ledgerListener = reconciler
		priceListener = reconciler
	}

	accounts := services.NewAccountService(database, locks, ledgerListener, log.Named("accounts"))
	trades := services.NewTradeService(database, locks, ledgerListener, log.Named("trades"))
	holdings := services.NewHoldingService(database, locks, cfg.Ledger.GetHoldingCacheTTL(), log.Named("holdings"))

	if feed == nil {
		feed = pricefeed.NewClient(
			pricefeed.WithBaseURL(cfg.PriceFeed.BaseURL),
			pricefeed.WithRateLimit(cfg.PriceFeed.RateLimit),
			pricefeed.WithTimeout(cfg.PriceFeed.GetTimeout()),
			pricefeed.WithLogger(log.Named("pricefeed")),
		)
	}

	return &Services{
		Accounts: accounts,
		Trades:   trades,
		Holdings: holdings,
		Balances: services.NewBalanceService(database, locks, ledgerListener, log.Named("balances")),
		Prices: services.NewPriceRefresher(database, feed, holdings, priceListener, services.PriceRefresherOptions{
			SystemCurrency: cfg.SystemCurrency,
			Concurrency:    cfg.PriceFeed.Concurrency,
			Timeout:        cfg.PriceFeed.GetTimeout(),
		}, log.Named("prices")),
		History:    services.NewHistoryService(database, holdings, cfg.SystemCurrency, log.Named("history")),
		Imports:    services.NewImportService(database, accounts, trades, locks, ledgerListener, log.Named("imports")),
		Reconciler: reconciler,
	}
}

// NewHandler returns the HTTP API over svc.
func NewHandler(svc *Services, database *db.DB, log *zap.Logger) http.Handler {
	return handlers.NewRouter(handlers.Handlers{
		Accounts:    handlers.NewAccountHandler(svc.Accounts, svc.Balances, svc.Holdings),
		Trades:      handlers.NewTradeHandler(svc.Trades, svc.Imports),
		Investments: handlers.NewInvestmentHandler(svc.Holdings, svc.Prices, svc.History),
		Reporting:   handlers.NewReportingHandler(svc.History, svc.Reconciler, svc.Imports),
		Health:      database.Health,
	}, log)
}
