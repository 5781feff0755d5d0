package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AssetPrice is a quote persisted per (ticker, date). The latest row for a
// ticker is its cached current price; older rows value past month-ends.
type AssetPrice struct {
	ID        uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	Ticker    string          `json:"ticker" gorm:"column:ticker;type:varchar(32);not null;uniqueIndex:idx_asset_prices_ticker_date,priority:1"`
	Date      time.Time       `json:"date" gorm:"column:date;not null;uniqueIndex:idx_asset_prices_ticker_date,priority:2"`
	Price     decimal.Decimal `json:"price" gorm:"column:price;type:decimal(30,18);not null"`
	Currency  string          `json:"currency" gorm:"column:currency;type:varchar(3);not null"`
	FXRate    decimal.Decimal `json:"fx_rate" gorm:"column:fx_rate;type:decimal(30,18);not null"`
	Source    string          `json:"source" gorm:"column:source;type:varchar(32);not null"`
	AsOf      time.Time       `json:"as_of" gorm:"column:as_of;not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name for the AssetPrice model
func (AssetPrice) TableName() string {
	return "asset_prices"
}

func (p *AssetPrice) Validate() error {
	if p.Ticker == "" {
		return errors.New("ticker is required")
	}
	if !IsValidCurrency(p.Currency) {
		return errors.New("currency must be an ISO-4217 code")
	}
	if !p.Price.IsPositive() {
		return errors.New("price must be positive")
	}
	if !p.FXRate.IsPositive() {
		return errors.New("fx_rate must be positive")
	}
	if p.Date.IsZero() {
		return errors.New("date is required")
	}
	if p.Source == "" {
		return errors.New("source is required")
	}
	return nil
}

// Quote is the result of a price lookup for one ticker.
type Quote struct {
	Ticker   string          `json:"ticker"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	FXRate   decimal.Decimal `json:"fx_rate"`
	AsOf     time.Time       `json:"as_of"`
	Stale    bool            `json:"stale"`
}

// SystemValue converts one unit at this quote into the system currency.
func (q Quote) SystemValue() decimal.Decimal {
	fx := q.FXRate
	if !fx.IsPositive() {
		fx = decimal.NewFromInt(1)
	}
	return q.Price.Mul(fx)
}

// ToAssetPrice turns a fresh quote into the row persisted for its day.
func (q Quote) ToAssetPrice(source string) AssetPrice {
	return AssetPrice{
		Ticker:   strings.ToUpper(q.Ticker),
		Date:     DateOnly(q.AsOf),
		Price:    q.Price,
		Currency: q.Currency,
		FXRate:   q.FXRate,
		Source:   source,
		AsOf:     q.AsOf.UTC(),
	}
}

// QuoteFromAssetPrice rebuilds a quote from its persisted row.
func QuoteFromAssetPrice(p AssetPrice) Quote {
	return Quote{
		Ticker:   p.Ticker,
		Price:    p.Price,
		Currency: p.Currency,
		FXRate:   p.FXRate,
		AsOf:     p.AsOf,
	}
}

// PriceWarning records a non-fatal per-ticker refresh failure.
type PriceWarning struct {
	Ticker  string `json:"ticker"`
	Message string `json:"message"`
}

// RefreshReport summarises a price refresh run.
type RefreshReport struct {
	Quotes    map[string]Quote `json:"quotes"`
	Refreshed int              `json:"refreshed"`
	Stale     []string         `json:"stale"`
	Warnings  []PriceWarning   `json:"warnings"`
}
