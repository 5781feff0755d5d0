package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tropicaldog17/networth/internal/errors"
	"github.com/tropicaldog17/networth/internal/models"
	"github.com/tropicaldog17/networth/internal/testutil"
)

func TestTradeService_RejectsNonInvestmentAccount(t *testing.T) {
	f := newLedgerFixture(t, testutil.Day(2024, 6, 30))
	cash := f.account(t, "Everyday", models.AccountTypeAsset, models.CategoryCash)

	tr := testutil.Trade(cash.ID, "VAS", models.TradeTypeBuy, testutil.Day(2024, 1, 2), "10", "100")
	_, err := f.trades.AddTrade(context.Background(), cash.ID, &tr)

	var invalid *apperrors.ErrInvalidAccountCategory
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, models.CategoryCash, invalid.Category)
}

func TestTradeService_ValidationErrorsDoNotMutate(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, testutil.Day(2024, 6, 30))
	broker := f.account(t, "Broker", models.AccountTypeAsset, models.CategoryInvestment)

	tests := []struct {
		name   string
		mutate func(*models.Trade)
	}{
		{"missing ticker", func(tr *models.Trade) { tr.Ticker = "" }},
		{"zero quantity buy", func(tr *models.Trade) { tr.Quantity = testutil.Dec("0") }},
		{"unknown currency", func(tr *models.Trade) { tr.Currency = "XXQ" }},
		{"negative fees", func(tr *models.Trade) { tr.Fees = testutil.Dec("-1") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := testutil.Trade(broker.ID, "VAS", models.TradeTypeBuy, testutil.Day(2024, 1, 2), "10", "100")
			tt.mutate(&tr)
			_, err := f.trades.AddTrade(ctx, broker.ID, &tr)
			var validation *apperrors.ErrValidation
			assert.True(t, errors.As(err, &validation), "got %v", err)
		})
	}

	trades, err := f.trades.ListTrades(ctx, broker.ID, "")
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestTradeService_OversellRejected(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, testutil.Day(2024, 6, 30))
	broker := f.account(t, "Broker", models.AccountTypeAsset, models.CategoryInvestment)

	f.trade(t, broker.ID, "VAS", models.TradeTypeBuy, testutil.Day(2024, 1, 10), "10", "100")
	// a later buy does not cover an earlier sell
	f.trade(t, broker.ID, "VAS", models.TradeTypeBuy, testutil.Day(2024, 3, 10), "10", "100")

	sell := testutil.Trade(broker.ID, "VAS", models.TradeTypeSell, testutil.Day(2024, 2, 10), "15", "120")
	_, err := f.trades.AddTrade(ctx, broker.ID, &sell)

	var insufficient *apperrors.ErrInsufficientHoldings
	require.True(t, errors.As(err, &insufficient), "got %v", err)
	assert.True(t, insufficient.Available.Equal(testutil.Dec("10")))

	trades, err := f.trades.ListTrades(ctx, broker.ID, "VAS")
	require.NoError(t, err)
	assert.Len(t, trades, 2)
}

func TestTradeService_UpdateAndDeleteReplay(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, testutil.Day(2024, 6, 30))
	broker := f.account(t, "Broker", models.AccountTypeAsset, models.CategoryInvestment)

	buy := f.trade(t, broker.ID, "VAS", models.TradeTypeBuy, testutil.Day(2024, 1, 10), "10", "100")
	f.trade(t, broker.ID, "VAS", models.TradeTypeSell, testutil.Day(2024, 2, 10), "8", "110")

	t.Run("shrinking the buy below the sell is rejected", func(t *testing.T) {
		qty := testutil.Dec("5")
		_, err := f.trades.UpdateTrade(ctx, buy.ID, models.TradePatch{Quantity: &qty})
		var insufficient *apperrors.ErrInsufficientHoldings
		assert.True(t, errors.As(err, &insufficient), "got %v", err)
	})

	t.Run("deleting the buy is rejected", func(t *testing.T) {
		err := f.trades.DeleteTrade(ctx, buy.ID)
		var insufficient *apperrors.ErrInsufficientHoldings
		assert.True(t, errors.As(err, &insufficient), "got %v", err)
		_, err = f.trades.GetTrade(ctx, buy.ID)
		assert.NoError(t, err)
	})

	t.Run("valid update commits", func(t *testing.T) {
		price := testutil.Dec("90")
		updated, err := f.trades.UpdateTrade(ctx, buy.ID, models.TradePatch{Price: &price})
		require.NoError(t, err)
		assert.True(t, updated.Price.Equal(price))

		h, err := f.holdings.GetHolding(ctx, broker.ID, "VAS")
		require.NoError(t, err)
		assert.Equal(t, "90", h.AverageCostBasis.String())
	})

	t.Run("missing trade", func(t *testing.T) {
		err := f.trades.DeleteTrade(ctx, 9999)
		var nf *apperrors.ErrNotFound
		assert.True(t, errors.As(err, &nf))
	})
}

func TestTradeService_RenamingTickerRevalidatesBothPairs(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, testutil.Day(2024, 6, 30))
	broker := f.account(t, "Broker", models.AccountTypeAsset, models.CategoryInvestment)

	buy := f.trade(t, broker.ID, "VAS", models.TradeTypeBuy, testutil.Day(2024, 1, 10), "10", "100")
	f.trade(t, broker.ID, "VAS", models.TradeTypeSell, testutil.Day(2024, 2, 10), "4", "110")

	ticker := "VGS"
	_, err := f.trades.UpdateTrade(ctx, buy.ID, models.TradePatch{Ticker: &ticker})
	var insufficient *apperrors.ErrInsufficientHoldings
	assert.True(t, errors.As(err, &insufficient), "got %v", err)
}

func TestTradeService_MutationsMarkPairsDirtyUntilReconciled(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewSQLiteDB(t)
	locks := NewAccountLocks()
	trades := NewTradeService(database, locks, nil, nil)
	broker := testutil.CreateAccount(t, database, "Broker", models.AccountTypeAsset, models.CategoryInvestment)

	tr := testutil.Trade(broker.ID, "VAS", models.TradeTypeBuy, testutil.Day(2024, 1, 10), "10", "100")
	_, err := trades.AddTrade(ctx, broker.ID, &tr)
	require.NoError(t, err)

	reconciler := NewReconciler(database, locks, nil)
	dirty, err := reconciler.DirtyPairs(ctx)
	require.NoError(t, err)
	require.Len(t, dirty, 1)
	assert.Equal(t, models.PairKey{AccountID: broker.ID, Ticker: "VAS"}, dirty[0].Key())
	assert.Equal(t, tr.ID, dirty[0].LastTradeID)

	_, err = reconciler.RecomputeAll(ctx, nil)
	require.NoError(t, err)
	dirty, err = reconciler.DirtyPairs(ctx)
	require.NoError(t, err)
	assert.Empty(t, dirty)
}
