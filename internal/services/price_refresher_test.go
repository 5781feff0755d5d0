package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicaldog17/networth/internal/models"
	"github.com/tropicaldog17/networth/internal/pricefeed"
	"github.com/tropicaldog17/networth/internal/repositories"
	"github.com/tropicaldog17/networth/internal/testutil"
)

type fakeFeed struct {
	mu     sync.Mutex
	quotes map[string]pricefeed.Quote
	fx     map[string]decimal.Decimal
	calls  []string
	block  bool
}

func (f *fakeFeed) Quote(ctx context.Context, ticker string) (*pricefeed.Quote, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ticker)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	q, ok := f.quotes[ticker]
	if !ok {
		return nil, pricefeed.ErrNoQuote
	}
	return &q, nil
}

func (f *fakeFeed) FXRate(_ context.Context, from, to string) (decimal.Decimal, error) {
	rate, ok := f.fx[from+to]
	if !ok {
		return decimal.Zero, errors.New("no fx rate")
	}
	return rate, nil
}

type countingPriceListener struct {
	mu    sync.Mutex
	calls int
}

func (l *countingPriceListener) OnPricesChanged(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return nil
}

func TestPriceRefresher_PartialFailureFallsBackToCache(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewSQLiteDB(t)
	asOf := time.Date(2024, 5, 2, 6, 0, 0, 0, time.UTC)
	feed := &fakeFeed{
		quotes: map[string]pricefeed.Quote{
			"AAPL":   {Ticker: "AAPL", Price: testutil.Dec("200"), Currency: "USD", AsOf: asOf},
			"VAS.AX": {Ticker: "VAS.AX", Price: testutil.Dec("98.5"), Currency: "AUD", AsOf: asOf},
		},
		fx: map[string]decimal.Decimal{"USDAUD": testutil.Dec("1.5")},
	}
	prices := repositories.NewPriceRepository(database)
	require.NoError(t, prices.Upsert(ctx, &models.AssetPrice{
		Ticker: "CBA.AX", Date: testutil.Day(2024, 4, 1), Price: testutil.Dec("110"),
		Currency: "AUD", FXRate: testutil.Dec("1"), Source: "feed", AsOf: testutil.Day(2024, 4, 1),
	}))
	listener := &countingPriceListener{}
	svc := NewPriceRefresher(database, feed, nil, listener, PriceRefresherOptions{SystemCurrency: "AUD", Concurrency: 2}, nil)

	report, err := svc.RefreshPrices(ctx, []string{"aapl", "VAS.AX", "CBA.AX", "NOPE", "AAPL"})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Refreshed)
	assert.Equal(t, []string{"CBA.AX", "NOPE"}, report.Stale)
	require.Len(t, report.Warnings, 2)
	assert.Contains(t, report.Warnings[0].Message, "using cached price from 2024-04-01")
	assert.Contains(t, report.Warnings[1].Message, "no cached price")

	aapl := report.Quotes["AAPL"]
	assert.True(t, aapl.FXRate.Equal(testutil.Dec("1.5")))
	assert.True(t, aapl.SystemValue().Equal(testutil.Dec("300")))
	assert.False(t, aapl.Stale)
	assert.True(t, report.Quotes["CBA.AX"].Stale)
	_, ok := report.Quotes["NOPE"]
	assert.False(t, ok)

	stored, err := prices.Latest(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-02", stored.Date.Format(models.DateLayout))
	assert.Equal(t, "USD", stored.Currency)

	assert.Equal(t, 1, listener.calls)
	assert.Len(t, feed.calls, 4)
}

func TestPriceRefresher_TimeoutIsPerTicker(t *testing.T) {
	database := testutil.NewSQLiteDB(t)
	feed := &fakeFeed{block: true}
	listener := &countingPriceListener{}
	svc := NewPriceRefresher(database, feed, nil, listener, PriceRefresherOptions{Timeout: 20 * time.Millisecond}, nil)

	report, err := svc.RefreshPrices(context.Background(), []string{"SLOW"})
	require.NoError(t, err)
	assert.Zero(t, report.Refreshed)
	assert.Equal(t, []string{"SLOW"}, report.Stale)
	assert.Zero(t, listener.calls)
}

func TestPriceRefresher_RefreshHeld(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, testutil.Day(2024, 6, 30))
	broker := f.account(t, "Broker", models.AccountTypeAsset, models.CategoryInvestment)
	f.trade(t, broker.ID, "VAS", models.TradeTypeBuy, testutil.Day(2024, 1, 10), "10", "100")

	feed := &fakeFeed{quotes: map[string]pricefeed.Quote{
		"VAS": {Ticker: "VAS", Price: testutil.Dec("120"), Currency: "AUD", AsOf: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)},
	}}
	svc := NewPriceRefresher(f.db, feed, f.holdings, f.reconciler, PriceRefresherOptions{}, nil)

	report, err := svc.RefreshHeld(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Refreshed)

	// the price listener revalued the account at the new quote
	points, err := f.history.InvestmentHistory(ctx, models.Period{})
	require.NoError(t, err)
	require.NotEmpty(t, points)
	assert.True(t, points[len(points)-1].TotalHoldingsValue.Equal(testutil.Dec("1200")))
}

func TestNormalizeTickers(t *testing.T) {
	assert.Equal(t, []string{"AAPL", "VAS"}, normalizeTickers([]string{" vas", "AAPL", "", "aapl"}))
	assert.Empty(t, normalizeTickers(nil))
}
