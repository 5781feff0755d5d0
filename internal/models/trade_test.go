package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTrade() Trade {
	return Trade{
		AccountID:    1,
		Ticker:       "VAS.AX",
		TradeType:    TradeTypeBuy,
		TradeDate:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Quantity:     decimal.NewFromInt(10),
		Price:        decimal.NewFromInt(100),
		Currency:     "AUD",
		ExchangeRate: decimal.NewFromInt(1),
	}
}

func TestParseTradeType(t *testing.T) {
	tests := []struct {
		in      string
		want    TradeType
		wantErr bool
	}{
		{in: "BUY", want: TradeTypeBuy},
		{in: " sell ", want: TradeTypeSell},
		{in: "Dividend", want: TradeTypeDividend},
		{in: "drip", want: TradeTypeDRIP},
		{in: "transfer", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTradeType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTradeType_Valid(t *testing.T) {
	for _, tt := range TradeTypes() {
		assert.True(t, tt.Valid(), tt)
	}
	assert.False(t, TradeType("buy").Valid())
	assert.False(t, TradeType("SPLIT").Valid())
}

func TestTrade_Normalize(t *testing.T) {
	tr := Trade{
		Ticker:    "  vas.ax ",
		Currency:  "aud",
		TradeType: "buy",
		TradeDate: time.Date(2024, 1, 15, 13, 45, 0, 0, time.UTC),
	}
	tr.Normalize()

	assert.Equal(t, "VAS.AX", tr.Ticker)
	assert.Equal(t, "VAS.AX", tr.Name)
	assert.Equal(t, "AUD", tr.Currency)
	assert.Equal(t, TradeTypeBuy, tr.TradeType)
	assert.True(t, tr.ExchangeRate.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), tr.TradeDate)
}

func TestTrade_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Trade)
		wantErr string
	}{
		{name: "valid buy", mutate: func(*Trade) {}},
		{name: "missing ticker", mutate: func(tr *Trade) { tr.Ticker = "" }, wantErr: "ticker is required"},
		{name: "unknown type", mutate: func(tr *Trade) { tr.TradeType = "SPLIT" }, wantErr: "trade_type"},
		{name: "missing date", mutate: func(tr *Trade) { tr.TradeDate = time.Time{} }, wantErr: "trade_date is required"},
		{name: "zero quantity buy", mutate: func(tr *Trade) { tr.Quantity = decimal.Zero }, wantErr: "quantity must be positive"},
		{name: "negative price", mutate: func(tr *Trade) { tr.Price = decimal.NewFromInt(-1) }, wantErr: "price must be non-negative"},
		{name: "negative fees", mutate: func(tr *Trade) { tr.Fees = decimal.NewFromInt(-1) }, wantErr: "fees must be non-negative"},
		{name: "bad currency", mutate: func(tr *Trade) { tr.Currency = "XYZ" }, wantErr: "currency"},
		{name: "zero fx", mutate: func(tr *Trade) { tr.ExchangeRate = decimal.Zero }, wantErr: "exchange_rate must be positive"},
		{
			name: "cash dividend with amount",
			mutate: func(tr *Trade) {
				tr.TradeType = TradeTypeDividend
				tr.Quantity = decimal.Zero
				tr.Price = decimal.NewFromInt(42)
			},
		},
		{
			name: "cash dividend without amount",
			mutate: func(tr *Trade) {
				tr.TradeType = TradeTypeDividend
				tr.Quantity = decimal.Zero
				tr.Price = decimal.Zero
			},
			wantErr: "cash dividend",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := validTrade()
			tt.mutate(&tr)
			err := tr.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTradePatch_Apply(t *testing.T) {
	orig := validTrade()
	orig.ID = 7
	qty := decimal.NewFromInt(3)
	ticker := "VGS.AX"
	patch := TradePatch{Quantity: &qty, Ticker: &ticker}

	got := patch.Apply(orig)

	assert.Equal(t, uint(7), got.ID)
	assert.Equal(t, uint(1), got.AccountID)
	assert.Equal(t, "VGS.AX", got.Ticker)
	assert.True(t, got.Quantity.Equal(qty))
	assert.True(t, orig.Quantity.Equal(decimal.NewFromInt(10)), "original must be untouched")
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-02-29", "29/02/2024", "2024-02-29T18:30:00Z", " 2024-02-29 "} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDate("02-29-2024")
	assert.Error(t, err)
	_, err = ParseDate("")
	assert.Error(t, err)
}
