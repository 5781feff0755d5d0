package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tropicaldog17/networth/internal/db"
	"github.com/tropicaldog17/networth/internal/models"
	"github.com/tropicaldog17/networth/internal/testutil"
)

// ledgerFixture wires every service against one private sqlite database
// with recompute-on-write enabled.
type ledgerFixture struct {
	db         *db.DB
	reconciler Reconciler
	accounts   AccountService
	trades     TradeService
	holdings   HoldingService
	balances   BalanceService
	history    HistoryService
	imports    ImportService

	// now is the reconcile date; tests move it with setNow
	now time.Time
}

func newLedgerFixture(t *testing.T, now time.Time) *ledgerFixture {
	t.Helper()
	database := testutil.NewSQLiteDB(t)
	f := &ledgerFixture{db: database, now: now}
	locks := NewAccountLocks()
	reconciler := NewReconciler(database, locks, nil, WithClock(func() time.Time { return f.now }))
	accounts := NewAccountService(database, locks, reconciler, nil)
	trades := NewTradeService(database, locks, reconciler, nil)
	holdings := NewHoldingService(database, locks, time.Minute, nil)

	f.reconciler = reconciler
	f.accounts = accounts
	f.trades = trades
	f.holdings = holdings
	f.balances = NewBalanceService(database, locks, reconciler, nil)
	f.history = NewHistoryService(database, holdings, "AUD", nil)
	f.imports = NewImportService(database, accounts, trades, locks, reconciler, nil)
	return f
}

func (f *ledgerFixture) setNow(now time.Time) {
	f.now = now
}

func (f *ledgerFixture) account(t *testing.T, name string, typ models.AccountType, category string) models.Account {
	t.Helper()
	return testutil.CreateAccount(t, f.db, name, typ, category)
}

func (f *ledgerFixture) trade(t *testing.T, accountID uint, ticker string, typ models.TradeType, date time.Time, qty, price string) *models.Trade {
	t.Helper()
	tr := testutil.Trade(accountID, ticker, typ, date, qty, price)
	added, err := f.trades.AddTrade(context.Background(), accountID, &tr)
	require.NoError(t, err)
	return added
}
