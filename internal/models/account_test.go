package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_Validate(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		wantErr bool
	}{
		{name: "cash asset", account: Account{Name: "Everyday", Type: AccountTypeAsset, Category: CategoryCash}},
		{name: "mortgage liability", account: Account{Name: "Home loan", Type: AccountTypeLiability, Category: CategoryMortgage}},
		{name: "missing name", account: Account{Type: AccountTypeAsset, Category: CategoryCash}, wantErr: true},
		{name: "bad type", account: Account{Name: "x", Type: "Equity", Category: CategoryCash}, wantErr: true},
		{name: "missing category", account: Account{Name: "x", Type: AccountTypeAsset}, wantErr: true},
		{name: "investment liability", account: Account{Name: "x", Type: AccountTypeLiability, Category: CategoryInvestment}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.account.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseAccountTypeAndCategory(t *testing.T) {
	typ, ok := ParseAccountType("liability")
	require.True(t, ok)
	assert.Equal(t, AccountTypeLiability, typ)

	_, ok = ParseAccountType("equity")
	assert.False(t, ok)

	assert.Equal(t, CategoryInvestment, NormalizeCategory(" investment "))
	assert.Equal(t, "Crypto", NormalizeCategory("Crypto"))
}

func TestAccountPatch_Apply(t *testing.T) {
	a := Account{Name: "Old", Type: AccountTypeAsset, Category: CategoryCash, IsActive: true}
	name := " New "
	inactive := false
	category := "savings"
	(&AccountPatch{Name: &name, IsActive: &inactive, Category: &category}).Apply(&a)

	assert.Equal(t, "New", a.Name)
	assert.False(t, a.IsActive)
	assert.Equal(t, CategorySavings, a.Category)
	assert.Equal(t, AccountTypeAsset, a.Type)
}

func TestHolding_ApplyPrice(t *testing.T) {
	h := Holding{
		Quantity:  decimal.NewFromInt(15),
		TotalCost: decimal.NewFromInt(2250),
	}
	h.ApplyPrice(Quote{Ticker: "VAS.AX", Price: decimal.NewFromInt(100), Currency: "USD", FXRate: decimal.RequireFromString("1.5")})

	assert.True(t, h.Value.Equal(decimal.NewFromInt(2250)), h.Value.String())
	assert.True(t, h.UnrealizedGain.IsZero())
	assert.Equal(t, "USD", h.LastPriceCurrency)
	require.NotNil(t, h.PriceAsOf)
	assert.True(t, h.IsActive())
}

func TestImportReport_AddError(t *testing.T) {
	var r ImportReport
	r.AddError(2, "bad date")
	r.AddError(5, "unknown type")
	assert.Equal(t, 2, r.TotalErrors)
	assert.Equal(t, 5, r.Errors[1].Row)
}
