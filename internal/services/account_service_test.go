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

func TestAccountService_CreateValidatesAndDedupes(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, testutil.Day(2024, 6, 30))

	a := &models.Account{Name: " Broker ", Type: models.AccountTypeAsset, Category: "investment"}
	require.NoError(t, f.accounts.CreateAccount(ctx, a))
	assert.Equal(t, "Broker", a.Name)
	assert.Equal(t, models.CategoryInvestment, a.Category)
	assert.True(t, a.IsActive)

	tests := []struct {
		name    string
		account models.Account
	}{
		{"duplicate name", models.Account{Name: "broker", Type: models.AccountTypeAsset, Category: models.CategoryCash}},
		{"missing name", models.Account{Type: models.AccountTypeAsset, Category: models.CategoryCash}},
		{"bad type", models.Account{Name: "X", Type: "Equity", Category: models.CategoryCash}},
		{"investment liability", models.Account{Name: "Y", Type: models.AccountTypeLiability, Category: models.CategoryInvestment}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := tt.account
			err := f.accounts.CreateAccount(ctx, &account)
			var validation *apperrors.ErrValidation
			assert.True(t, errors.As(err, &validation), "got %v", err)
		})
	}
}

func TestAccountService_CategoryChangeBlockedByTrades(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, testutil.Day(2024, 6, 30))
	broker := f.account(t, "Broker", models.AccountTypeAsset, models.CategoryInvestment)
	f.trade(t, broker.ID, "VAS", models.TradeTypeBuy, testutil.Day(2024, 1, 10), "10", "100")

	category := models.CategoryCash
	_, err := f.accounts.UpdateAccount(ctx, broker.ID, models.AccountPatch{Category: &category})
	var invalid *apperrors.ErrInvalidAccountCategory
	require.True(t, errors.As(err, &invalid), "got %v", err)

	name := "Brokerage"
	updated, err := f.accounts.UpdateAccount(ctx, broker.ID, models.AccountPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Brokerage", updated.Name)
}

func TestAccountService_PurgeCascades(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, testutil.Day(2024, 6, 30))
	broker := f.account(t, "Broker", models.AccountTypeAsset, models.CategoryInvestment)
	f.trade(t, broker.ID, "VAS", models.TradeTypeBuy, testutil.Day(2024, 1, 10), "10", "100")

	require.NoError(t, f.accounts.DeleteAccount(ctx, broker.ID, true))

	_, err := f.accounts.GetAccount(ctx, broker.ID)
	var nf *apperrors.ErrNotFound
	assert.True(t, errors.As(err, &nf))

	var trades, snaps int64
	require.NoError(t, f.db.Model(&models.Trade{}).Count(&trades).Error)
	require.NoError(t, f.db.Model(&models.BalanceSnapshot{}).Count(&snaps).Error)
	assert.Zero(t, trades)
	assert.Zero(t, snaps)

	points, err := f.history.NetWorthHistory(ctx, models.Period{})
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestAccountService_SoftDeleteKeepsData(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, testutil.Day(2024, 6, 30))
	cash := f.account(t, "Everyday", models.AccountTypeAsset, models.CategoryCash)

	require.NoError(t, f.accounts.DeleteAccount(ctx, cash.ID, false))

	active, err := f.accounts.ListAccounts(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	got, err := f.accounts.GetAccount(ctx, cash.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}
