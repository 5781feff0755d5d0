package ledger

import (
	stderrors "errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tropicaldog17/networth/internal/errors"
	"github.com/tropicaldog17/networth/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func trade(id uint, typ models.TradeType, date time.Time, qty, price string) models.Trade {
	return models.Trade{
		ID:           id,
		AccountID:    1,
		Ticker:       "VAS",
		Name:         "Vanguard Australian Shares",
		TradeType:    typ,
		TradeDate:    date,
		Quantity:     dec(qty),
		Price:        dec(price),
		Currency:     "AUD",
		ExchangeRate: decimal.NewFromInt(1),
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "%s: want %s, got %s", field, want, got.String())
}

func TestHandlersCoverEveryTradeType(t *testing.T) {
	for _, tt := range models.TradeTypes() {
		_, ok := handlers[tt]
		assert.Truef(t, ok, "no handler for %s", tt)
	}
	assert.Len(t, handlers, len(models.TradeTypes()))
}

func TestProject_AverageCost(t *testing.T) {
	trades := []models.Trade{
		trade(1, models.TradeTypeBuy, day(2024, 1, 1), "10", "100"),
		trade(2, models.TradeTypeBuy, day(2024, 2, 1), "10", "200"),
	}
	h, err := Project(trades)
	require.NoError(t, err)
	assertDecimal(t, "20", h.Quantity, "quantity")
	assertDecimal(t, "150", h.AverageCostBasis, "average_cost_basis")

	trades = append(trades, trade(3, models.TradeTypeSell, day(2024, 3, 1), "5", "300"))
	h, err = Project(trades)
	require.NoError(t, err)
	assertDecimal(t, "15", h.Quantity, "quantity")
	assertDecimal(t, "150", h.AverageCostBasis, "average_cost_basis")
	assertDecimal(t, "2250", h.TotalCost, "total_cost")
	assertDecimal(t, "750", h.RealizedGain, "realized_gain")
	assert.Equal(t, uint(3), h.LastTradeID)
	assert.Equal(t, 3, h.TradeCount)
	require.NotNil(t, h.FirstTradeDate)
	assert.Equal(t, day(2024, 1, 1), *h.FirstTradeDate)
}

func TestProject_FeesAndExchangeRate(t *testing.T) {
	buy := trade(1, models.TradeTypeBuy, day(2024, 1, 1), "10", "100")
	buy.Fees = dec("10")
	buy.ExchangeRate = dec("1.5")
	sell := trade(2, models.TradeTypeSell, day(2024, 2, 1), "10", "120")
	sell.Fees = dec("10")
	sell.ExchangeRate = dec("1.5")

	h, err := Project([]models.Trade{buy, sell})
	require.NoError(t, err)
	assertDecimal(t, "0", h.Quantity, "quantity")
	assertDecimal(t, "0", h.TotalCost, "total_cost")
	assertDecimal(t, "0", h.AverageCostBasis, "average_cost_basis")
	// proceeds 1800 - 15, cost 1500 + 15
	assertDecimal(t, "270", h.RealizedGain, "realized_gain")
	assert.False(t, h.IsActive())
}

func TestProject_DRIPIsCashNeutral(t *testing.T) {
	base := trade(1, models.TradeTypeBuy, day(2024, 1, 1), "10", "50")
	drip := trade(2, models.TradeTypeDRIP, day(2024, 6, 30), "2", "50")
	drip.Fees = dec("5")

	h, err := Project([]models.Trade{base, drip})
	require.NoError(t, err)
	assertDecimal(t, "12", h.Quantity, "quantity")
	assertDecimal(t, "600", h.TotalCost, "total_cost")
	assertDecimal(t, "0", h.Dividends, "dividends")
	assertDecimal(t, "0", h.RealizedGain, "realized_gain")
}

func TestProject_Dividends(t *testing.T) {
	perUnit := trade(2, models.TradeTypeDividend, day(2024, 3, 31), "100", "0.5")
	flat := trade(3, models.TradeTypeDividend, day(2024, 6, 30), "0", "42")
	flat.Fees = dec("2")

	h, err := Project([]models.Trade{
		trade(1, models.TradeTypeBuy, day(2024, 1, 1), "100", "10"),
		perUnit,
		flat,
	})
	require.NoError(t, err)
	assertDecimal(t, "100", h.Quantity, "quantity")
	assertDecimal(t, "1000", h.TotalCost, "total_cost")
	assertDecimal(t, "90", h.Dividends, "dividends")
}

func TestProject_OversellRejected(t *testing.T) {
	trades := []models.Trade{
		trade(1, models.TradeTypeBuy, day(2024, 1, 1), "10", "100"),
		trade(2, models.TradeTypeSell, day(2024, 2, 1), "15", "120"),
		trade(3, models.TradeTypeBuy, day(2024, 3, 1), "10", "100"),
	}
	_, err := Project(trades)
	require.Error(t, err)

	var insufficient *apperrors.ErrInsufficientHoldings
	require.True(t, stderrors.As(err, &insufficient))
	assert.Equal(t, uint(2), insufficient.TradeID)
	assertDecimal(t, "15", insufficient.Requested, "requested")
	assertDecimal(t, "10", insufficient.Available, "available")

	// an earlier-dated buy covers the sale
	trades = append(trades, trade(4, models.TradeTypeBuy, day(2024, 1, 15), "10", "100"))
	h, err := Project(trades)
	require.NoError(t, err)
	assertDecimal(t, "15", h.Quantity, "quantity")
}

func TestProject_ReplayDeterminism(t *testing.T) {
	trades := []models.Trade{
		trade(1, models.TradeTypeBuy, day(2023, 7, 3), "40", "91.20"),
		trade(2, models.TradeTypeBuy, day(2023, 9, 14), "15", "88.05"),
		trade(3, models.TradeTypeDividend, day(2023, 10, 1), "55", "0.87"),
		trade(4, models.TradeTypeSell, day(2023, 11, 20), "22", "93.10"),
		trade(5, models.TradeTypeDRIP, day(2024, 1, 2), "1.5", "95"),
		trade(6, models.TradeTypeBuy, day(2024, 1, 2), "7", "95.40"),
		trade(7, models.TradeTypeSell, day(2024, 4, 18), "30", "101.75"),
	}
	want, err := Project(trades)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := make([]models.Trade, len(trades))
		copy(shuffled, trades)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := Project(shuffled)
		require.NoError(t, err)
		assert.Equal(t, want.Quantity.String(), got.Quantity.String())
		assert.Equal(t, want.AverageCostBasis.String(), got.AverageCostBasis.String())
		assert.Equal(t, want.RealizedGain.String(), got.RealizedGain.String())
		assert.Equal(t, want.Dividends.String(), got.Dividends.String())
	}
}

func TestProject_SameDayTiesUseID(t *testing.T) {
	sell := trade(1, models.TradeTypeSell, day(2024, 1, 1), "5", "100")
	buy := trade(2, models.TradeTypeBuy, day(2024, 1, 1), "5", "100")

	_, err := Project([]models.Trade{buy, sell})
	assert.Error(t, err, "sell with the lower id replays first")

	sell.ID, buy.ID = 2, 1
	_, err = Project([]models.Trade{sell, buy})
	assert.NoError(t, err)
}

func TestProject_RejectsMixedPairs(t *testing.T) {
	other := trade(2, models.TradeTypeBuy, day(2024, 1, 2), "1", "1")
	other.Ticker = "VGS"
	_, err := Project([]models.Trade{trade(1, models.TradeTypeBuy, day(2024, 1, 1), "1", "1"), other})
	assert.Error(t, err)
}

func TestProjectAll(t *testing.T) {
	vgs := trade(3, models.TradeTypeBuy, day(2024, 1, 1), "4", "100")
	vgs.Ticker = "VGS"
	acct2 := trade(4, models.TradeTypeBuy, day(2024, 1, 1), "1", "10")
	acct2.AccountID = 2

	holdings, err := ProjectAll([]models.Trade{
		acct2,
		vgs,
		trade(1, models.TradeTypeBuy, day(2024, 1, 1), "10", "100"),
	})
	require.NoError(t, err)
	require.Len(t, holdings, 3)
	assert.Equal(t, "VAS", holdings[0].Ticker)
	assert.Equal(t, "VGS", holdings[1].Ticker)
	assert.Equal(t, uint(2), holdings[2].AccountID)
}

func TestProject_Empty(t *testing.T) {
	h, err := Project(nil)
	require.NoError(t, err)
	assert.False(t, h.IsActive())
}
