package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tropicaldog17/networth/internal/db"
	apperrors "github.com/tropicaldog17/networth/internal/errors"
	"github.com/tropicaldog17/networth/internal/ledger"
	"github.com/tropicaldog17/networth/internal/logger"
	"github.com/tropicaldog17/networth/internal/models"
	"github.com/tropicaldog17/networth/internal/repositories"
)

// ReconcilerOption configures a reconciler.
type ReconcilerOption func(*reconciler)

// WithClock sets the source of the reconcile date.
func WithClock(clock func() time.Time) ReconcilerOption {
	return func(r *reconciler) {
		r.clock = clock
	}
}

type reconciler struct {
	db       *db.DB
	accounts repositories.AccountRepository
	trades   repositories.TradeRepository
	versions repositories.LedgerVersionRepository
	balances repositories.BalanceRepository
	netWorth repositories.NetWorthRepository
	prices   repositories.PriceRepository
	locks    *AccountLocks
	clock    func() time.Time
	logger   *zap.Logger

	// guards the net-worth rebuild; account work only takes account locks
	netWorthMu sync.Mutex
}

// NewReconciler creates the reconciler that owns every derived row:
// computed investment snapshots and the net-worth series.
func NewReconciler(database *db.DB, locks *AccountLocks, log *zap.Logger, opts ...ReconcilerOption) Reconciler {
	r := &reconciler{
		db:       database,
		accounts: repositories.NewAccountRepository(database),
		trades:   repositories.NewTradeRepository(database),
		versions: repositories.NewLedgerVersionRepository(database),
		balances: repositories.NewBalanceRepository(database),
		netWorth: repositories.NewNetWorthRepository(database),
		prices:   repositories.NewPriceRepository(database),
		locks:    locks,
		clock:    time.Now,
		logger:   logger.OrNop(log),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecomputeAll rebuilds the given accounts, or every account when none are
// named, then rebuilds the net-worth series. Accounts are independent: a
// failure is recorded and the run moves on. Cancellation stops between
// accounts and reports the ones not reached.
func (r *reconciler) RecomputeAll(ctx context.Context, accountIDs []uint) (*models.RecomputeReport, error) {
	report := &models.RecomputeReport{
		RunID:     uuid.NewString(),
		StartedAt: r.clock().UTC(),
		Errors:    []apperrors.RecomputeAccountError{},
	}
	log := r.logger.With(zap.String("run_id", report.RunID))

	// cancellation is honoured between accounts, not while picking them
	accounts, err := r.targets(context.WithoutCancel(ctx), accountIDs, report)
	if err != nil {
		return nil, err
	}
	asOf := models.DateOnly(r.clock())

	for i, account := range accounts {
		if ctx.Err() != nil {
			markPending(report, accounts[i:])
			log.Warn("recompute cancelled", zap.Int("pending", len(report.PendingAccountIDs)))
			break
		}
		n, err := r.recomputeAccount(ctx, account, asOf)
		if err != nil && ctx.Err() != nil {
			// cancelled mid-account: its transaction rolled back
			markPending(report, accounts[i:])
			log.Warn("recompute cancelled", zap.Int("pending", len(report.PendingAccountIDs)))
			break
		}
		if err != nil {
			log.Error("account recompute failed", zap.Uint("account_id", account.ID), zap.Error(err))
			report.Errors = append(report.Errors, apperrors.RecomputeAccountError{AccountID: account.ID, Message: err.Error()})
			continue
		}
		report.AccountsUpdated++
		report.SnapshotsRebuilt += n
	}

	// the series must match whatever snapshots are stored, even after a cancel
	points, err := r.rebuildNetWorth(context.WithoutCancel(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild net worth: %w", err)
	}
	report.NetWorthPoints = points
	report.FinishedAt = r.clock().UTC()

	log.Info("recompute finished",
		zap.Int("accounts_updated", report.AccountsUpdated),
		zap.Int("snapshots_rebuilt", report.SnapshotsRebuilt),
		zap.Int("net_worth_points", report.NetWorthPoints),
		zap.Int("errors", len(report.Errors)),
		zap.Bool("cancelled", report.Cancelled))
	return report, nil
}

func markPending(report *models.RecomputeReport, accounts []models.Account) {
	report.Cancelled = true
	for _, a := range accounts {
		report.PendingAccountIDs = append(report.PendingAccountIDs, a.ID)
	}
}

func (r *reconciler) targets(ctx context.Context, accountIDs []uint, report *models.RecomputeReport) ([]models.Account, error) {
	if len(accountIDs) == 0 {
		return r.accounts.List(ctx, true)
	}
	accounts, err := r.accounts.ListByIDs(ctx, accountIDs)
	if err != nil {
		return nil, err
	}
	found := make(map[uint]struct{}, len(accounts))
	for _, a := range accounts {
		found[a.ID] = struct{}{}
	}
	missing := make(map[uint]struct{})
	for _, id := range accountIDs {
		if _, ok := found[id]; ok {
			continue
		}
		if _, dup := missing[id]; dup {
			continue
		}
		missing[id] = struct{}{}
		report.Errors = append(report.Errors, apperrors.RecomputeAccountError{AccountID: id, Message: "account not found"})
	}
	return accounts, nil
}

// recomputeAccount rewrites the computed snapshots of one account under its
// write lock. Non-investment accounts only lose stale computed rows.
func (r *reconciler) recomputeAccount(ctx context.Context, account models.Account, asOf time.Time) (int, error) {
	unlock := r.locks.Lock(account.ID)
	defer unlock()

	var written int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var snaps []models.BalanceSnapshot
		if account.IsInvestment() {
			var err error
			snaps, err = r.valueInvestment(ctx, tx, account.ID, asOf)
			if err != nil {
				return err
			}
		}
		n, err := r.balances.WithTx(tx).ReplaceComputed(ctx, account.ID, snaps)
		if err != nil {
			return err
		}
		written = n
		return r.versions.WithTx(tx).ClearDirty(ctx, account.ID)
	})
	return written, err
}

// valueInvestment values the account at each month-end since its first trade
// and at asOf.
func (r *reconciler) valueInvestment(ctx context.Context, tx *gorm.DB, accountID uint, asOf time.Time) ([]models.BalanceSnapshot, error) {
	trades, err := r.trades.WithTx(tx).ListByAccount(ctx, accountID, "")
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{})
	var tickers []string
	for _, t := range trades {
		if _, ok := seen[t.Ticker]; !ok {
			seen[t.Ticker] = struct{}{}
			tickers = append(tickers, t.Ticker)
		}
	}
	quotes, err := r.prices.WithTx(tx).ListForTickers(ctx, tickers, asOf)
	if err != nil {
		return nil, err
	}

	dates := ledger.SnapshotDates(trades[0].TradeDate, asOf)
	points, err := ledger.ValueAccount(trades, ledger.NewPriceBook(quotes, trades), dates)
	if err != nil {
		return nil, err
	}
	snaps := make([]models.BalanceSnapshot, len(points))
	for i, p := range points {
		snaps[i] = models.BalanceSnapshot{
			AccountID: accountID,
			Date:      p.Date,
			Balance:   p.Balance,
			Source:    models.SnapshotSourceComputed,
		}
	}
	return snaps, nil
}

// rebuildNetWorth replaces the stored series with one summed from every
// active account's snapshots.
func (r *reconciler) rebuildNetWorth(ctx context.Context) (int, error) {
	r.netWorthMu.Lock()
	defer r.netWorthMu.Unlock()

	var count int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accounts, err := r.accounts.WithTx(tx).List(ctx, false)
		if err != nil {
			return err
		}
		snaps, err := r.balances.WithTx(tx).ListAll(ctx)
		if err != nil {
			return err
		}
		byAccount := make(map[uint][]models.BalanceSnapshot)
		for _, s := range snaps {
			byAccount[s.AccountID] = append(byAccount[s.AccountID], s)
		}
		series := make([]ledger.Series, 0, len(accounts))
		for _, a := range accounts {
			series = append(series, ledger.SeriesFromSnapshots(a, byAccount[a.ID]))
		}
		points := ledger.BuildNetWorth(series)
		count = len(points)
		return r.netWorth.WithTx(tx).ReplaceAll(ctx, points)
	})
	return count, err
}

// OnLedgerChanged recomputes the touched accounts right after a commit,
// together with any investment account whose valuation stops short of
// today. Both leave the same rows a full recompute would.
func (r *reconciler) OnLedgerChanged(ctx context.Context, accountIDs ...uint) error {
	if len(accountIDs) == 0 {
		return nil
	}
	ids, err := r.withStaleTails(ctx, accountIDs)
	if err != nil {
		return err
	}
	report, err := r.RecomputeAll(ctx, ids)
	if err != nil {
		return err
	}
	return reportError(report)
}

// OnAccountRemoved drops a deleted or deactivated account from the series.
func (r *reconciler) OnAccountRemoved(ctx context.Context, accountID uint) error {
	stale, err := r.withStaleTails(ctx, nil)
	if err != nil {
		return err
	}
	if len(stale) > 0 {
		report, err := r.RecomputeAll(ctx, stale)
		if err != nil {
			return err
		}
		return reportError(report)
	}
	n, err := r.rebuildNetWorth(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("net worth rebuilt after account removal",
		zap.Uint("account_id", accountID), zap.Int("net_worth_points", n))
	return nil
}

// withStaleTails appends to accountIDs every investment account with trades
// but no snapshot on the reconcile date. Those were last valued on an
// earlier day and are missing month-ends and today's point.
func (r *reconciler) withStaleTails(ctx context.Context, accountIDs []uint) ([]uint, error) {
	asOf := models.DateOnly(r.clock())
	accounts, err := r.accounts.List(ctx, true)
	if err != nil {
		return nil, err
	}
	traded, err := r.trades.AccountIDs(ctx)
	if err != nil {
		return nil, err
	}
	current, err := r.balances.AccountIDsOn(ctx, asOf)
	if err != nil {
		return nil, err
	}

	hasTrades := make(map[uint]bool, len(traded))
	for _, id := range traded {
		hasTrades[id] = true
	}
	upToDate := make(map[uint]bool, len(current))
	for _, id := range current {
		upToDate[id] = true
	}

	out := make([]uint, 0, len(accountIDs))
	seen := make(map[uint]bool, len(accountIDs))
	for _, id := range accountIDs {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, a := range accounts {
		if seen[a.ID] || !a.IsInvestment() || !hasTrades[a.ID] || upToDate[a.ID] {
			continue
		}
		seen[a.ID] = true
		out = append(out, a.ID)
	}
	return out, nil
}

// OnPricesChanged revalues every investment account.
func (r *reconciler) OnPricesChanged(ctx context.Context) error {
	accounts, err := r.accounts.List(ctx, true)
	if err != nil {
		return err
	}
	var ids []uint
	for _, a := range accounts {
		if a.IsInvestment() {
			ids = append(ids, a.ID)
		}
	}
	return r.OnLedgerChanged(ctx, ids...)
}

func reportError(report *models.RecomputeReport) error {
	if len(report.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(report.Errors))
	for i := range report.Errors {
		errs[i] = &report.Errors[i]
	}
	return errors.Join(errs...)
}

// Export renders every derived row in canonical form.
func (r *reconciler) Export(ctx context.Context) (*models.ReconcileExport, error) {
	out := &models.ReconcileExport{
		Snapshots: []models.ExportedSnapshot{},
		NetWorth:  []models.ExportedNetWorthPoint{},
	}
	err := r.db.ReadTx(ctx, func(tx *gorm.DB) error {
		snaps, err := r.balances.WithTx(tx).ListAll(ctx)
		if err != nil {
			return err
		}
		for _, s := range snaps {
			if s.Source != models.SnapshotSourceComputed {
				continue
			}
			out.Snapshots = append(out.Snapshots, models.ExportedSnapshot{
				AccountID: s.AccountID,
				Date:      models.DateOnly(s.Date).Format(models.DateLayout),
				Balance:   models.CanonicalDecimal(s.Balance),
				Source:    string(s.Source),
			})
		}
		points, err := r.netWorth.WithTx(tx).List(ctx, models.Period{})
		if err != nil {
			return err
		}
		for _, p := range points {
			out.NetWorth = append(out.NetWorth, models.ExportedNetWorthPoint{
				Date:             models.DateOnly(p.Date).Format(models.DateLayout),
				TotalAssets:      models.CanonicalDecimal(p.TotalAssets),
				TotalLiabilities: models.CanonicalDecimal(p.TotalLiabilities),
				NetWorth:         models.CanonicalDecimal(p.NetWorth),
				InvestmentsValue: models.CanonicalDecimal(p.InvestmentsValue),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out.Snapshots, func(i, j int) bool {
		a, b := out.Snapshots[i], out.Snapshots[j]
		if a.AccountID != b.AccountID {
			return a.AccountID < b.AccountID
		}
		return a.Date < b.Date
	})
	return out, nil
}

func (r *reconciler) DirtyPairs(ctx context.Context) ([]models.LedgerVersion, error) {
	pairs, err := r.versions.ListDirty(ctx)
	if err != nil {
		return nil, err
	}
	if pairs == nil {
		pairs = []models.LedgerVersion{}
	}
	return pairs, nil
}
