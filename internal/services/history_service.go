package services

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tropicaldog17/networth/internal/db"
	"github.com/tropicaldog17/networth/internal/ledger"
	"github.com/tropicaldog17/networth/internal/logger"
	"github.com/tropicaldog17/networth/internal/models"
	"github.com/tropicaldog17/networth/internal/repositories"
)

var hundred = decimal.NewFromInt(100)

type historyService struct {
	db             *db.DB
	accounts       repositories.AccountRepository
	balances       repositories.BalanceRepository
	netWorth       repositories.NetWorthRepository
	holdings       HoldingService
	systemCurrency string
	clock          func() time.Time
	logger         *zap.Logger
}

// NewHistoryService creates the read side over reconciler output and live holdings.
func NewHistoryService(database *db.DB, holdings HoldingService, systemCurrency string, log *zap.Logger) HistoryService {
	return &historyService{
		db:             database,
		accounts:       repositories.NewAccountRepository(database),
		balances:       repositories.NewBalanceRepository(database),
		netWorth:       repositories.NewNetWorthRepository(database),
		holdings:       holdings,
		systemCurrency: systemCurrency,
		clock:          time.Now,
		logger:         logger.OrNop(log),
	}
}

// AccountsHistory lays every active account's forward-filled balance onto a
// month axis. The total rows come from the stored net-worth series sampled
// on the same axis.
func (s *historyService) AccountsHistory(ctx context.Context) (*models.AccountsHistory, error) {
	out := &models.AccountsHistory{
		Months:   []string{},
		Dates:    []string{},
		Accounts: []models.AccountHistoryRow{},
		Totals: models.AccountsHistoryTotals{
			AssetsByMonth:      []decimal.Decimal{},
			LiabilitiesByMonth: []decimal.Decimal{},
			NetWorthByMonth:    []decimal.Decimal{},
		},
	}

	err := s.db.ReadTx(ctx, func(tx *gorm.DB) error {
		accounts, err := s.accounts.WithTx(tx).List(ctx, false)
		if err != nil {
			return err
		}
		snaps, err := s.balances.WithTx(tx).ListAll(ctx)
		if err != nil {
			return err
		}
		points, err := s.netWorth.WithTx(tx).List(ctx, models.Period{})
		if err != nil {
			return err
		}

		byAccount := make(map[uint][]models.BalanceSnapshot)
		for _, snap := range snaps {
			byAccount[snap.AccountID] = append(byAccount[snap.AccountID], snap)
		}
		series := make([]ledger.Series, len(accounts))
		for i, a := range accounts {
			series[i] = ledger.SeriesFromSnapshots(a, byAccount[a.ID])
		}
		dates := ledger.UnionDates(series)
		if len(dates) == 0 {
			return nil
		}

		months, axis := ledger.MonthAxis(dates[0], dates[len(dates)-1])
		out.Months = months
		for _, d := range axis {
			out.Dates = append(out.Dates, d.Format(models.DateLayout))
		}
		for i, a := range accounts {
			out.Accounts = append(out.Accounts, models.AccountHistoryRow{
				ID:              a.ID,
				Name:            a.Name,
				Type:            a.Type,
				Category:        a.Category,
				BalancesByMonth: ledger.ForwardFill(series[i].Points, axis),
			})
		}
		for _, p := range ledger.ResampleNetWorth(points, axis) {
			out.Totals.AssetsByMonth = append(out.Totals.AssetsByMonth, p.TotalAssets)
			out.Totals.LiabilitiesByMonth = append(out.Totals.LiabilitiesByMonth, p.TotalLiabilities)
			out.Totals.NetWorthByMonth = append(out.Totals.NetWorthByMonth, p.NetWorth)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *historyService) NetWorthHistory(ctx context.Context, period models.Period) ([]models.NetWorthPoint, error) {
	points, err := s.netWorth.List(ctx, period)
	if err != nil {
		return nil, err
	}
	if points == nil {
		points = []models.NetWorthPoint{}
	}
	return points, nil
}

func (s *historyService) InvestmentHistory(ctx context.Context, period models.Period) ([]models.InvestmentHistoryPoint, error) {
	points, err := s.netWorth.List(ctx, period)
	if err != nil {
		return nil, err
	}
	out := make([]models.InvestmentHistoryPoint, 0, len(points))
	for _, p := range points {
		out = append(out, models.InvestmentHistoryPoint{Date: p.Date, TotalHoldingsValue: p.InvestmentsValue})
	}
	return out, nil
}

// Portfolio totals every position. Closed positions add only their realized
// gain and dividends.
func (s *historyService) Portfolio(ctx context.Context) (*models.PortfolioSummary, error) {
	positions, err := s.holdings.Positions(ctx)
	if err != nil {
		return nil, err
	}
	sum := &models.PortfolioSummary{
		AsOf:     models.DateOnly(s.clock()),
		Currency: s.systemCurrency,
	}
	for _, h := range positions {
		sum.RealizedGain = sum.RealizedGain.Add(h.RealizedGain)
		sum.Dividends = sum.Dividends.Add(h.Dividends)
		if !h.IsActive() {
			continue
		}
		sum.HoldingCount++
		sum.TotalValue = sum.TotalValue.Add(h.Value)
		sum.TotalCost = sum.TotalCost.Add(h.TotalCost)
	}
	sum.UnrealizedGain = sum.TotalValue.Sub(sum.TotalCost)
	sum.TotalReturn = sum.UnrealizedGain.Add(sum.RealizedGain).Add(sum.Dividends)
	if sum.TotalCost.IsPositive() {
		sum.TotalReturnPercent = sum.TotalReturn.Div(sum.TotalCost).Mul(hundred).Round(2)
	}
	return sum, nil
}

// Allocation splits the value of active holdings by ticker, account and
// quote currency. Percentages are rounded to two places.
func (s *historyService) Allocation(ctx context.Context) (*models.Allocation, error) {
	holdings, err := s.holdings.AllHoldings(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := s.accounts.List(ctx, true)
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}

	byTicker := newBuckets()
	byAccount := newBuckets()
	byCurrency := newBuckets()
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.Value)
		byTicker.add(h.Ticker, h.Name, h.Value)
		byAccount.add(uintKey(h.AccountID), names[h.AccountID], h.Value)
		currency := h.LastPriceCurrency
		if currency == "" {
			currency = s.systemCurrency
		}
		byCurrency.add(currency, currency, h.Value)
	}
	return &models.Allocation{
		TotalValue: total,
		ByTicker:   byTicker.slices(total),
		ByAccount:  byAccount.slices(total),
		ByCurrency: byCurrency.slices(total),
	}, nil
}

type buckets struct {
	order  []string
	labels map[string]string
	values map[string]decimal.Decimal
}

func newBuckets() *buckets {
	return &buckets{labels: map[string]string{}, values: map[string]decimal.Decimal{}}
}

func (b *buckets) add(key, label string, v decimal.Decimal) {
	if _, ok := b.values[key]; !ok {
		b.order = append(b.order, key)
		b.labels[key] = label
	}
	b.values[key] = b.values[key].Add(v)
}

// slices returns the buckets largest first, ties by key.
func (b *buckets) slices(total decimal.Decimal) []models.AllocationSlice {
	out := make([]models.AllocationSlice, 0, len(b.order))
	for _, key := range b.order {
		v := b.values[key]
		pct := decimal.Zero
		if total.IsPositive() {
			pct = v.Div(total).Mul(hundred).Round(2)
		}
		out = append(out, models.AllocationSlice{Key: key, Label: b.labels[key], Value: v, Percent: pct})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Value.Cmp(out[j].Value); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func uintKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
