package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is the projection of every trade of one (account, ticker) pair.
// It is never stored as a source of truth.
type Holding struct {
	AccountID         uint            `json:"account_id"`
	Ticker            string          `json:"ticker"`
	Name              string          `json:"name"`
	Quantity          decimal.Decimal `json:"quantity"`
	AverageCostBasis  decimal.Decimal `json:"average_cost_basis"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	RealizedGain      decimal.Decimal `json:"realized_gain"`
	Dividends         decimal.Decimal `json:"dividends"`
	TradeCount        int             `json:"trade_count"`
	FirstTradeDate    *time.Time      `json:"first_trade_date,omitempty"`
	LastTradeID       uint            `json:"last_trade_id"`
	LastPrice         decimal.Decimal `json:"last_price"`
	LastPriceCurrency string          `json:"last_price_currency"`
	LastFXRate        decimal.Decimal `json:"last_fx_rate"`
	PriceAsOf         *time.Time      `json:"price_as_of,omitempty"`
	PriceStale        bool            `json:"price_stale"`
	Value             decimal.Decimal `json:"value"`
	UnrealizedGain    decimal.Decimal `json:"unrealized_gain"`
	Version           int64           `json:"version"`
}

// IsActive reports whether any units are still held.
func (h *Holding) IsActive() bool {
	return h.Quantity.IsPositive()
}

// ApplyPrice stamps a quote onto the holding and derives its value.
func (h *Holding) ApplyPrice(q Quote) {
	fx := q.FXRate
	if !fx.IsPositive() {
		fx = decimal.NewFromInt(1)
	}
	asOf := q.AsOf
	h.LastPrice = q.Price
	h.LastPriceCurrency = q.Currency
	h.LastFXRate = fx
	h.PriceAsOf = &asOf
	h.PriceStale = q.Stale
	h.Value = h.Quantity.Mul(q.Price).Mul(fx)
	h.UnrealizedGain = h.Value.Sub(h.TotalCost)
}
