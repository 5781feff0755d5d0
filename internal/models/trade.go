package models

import (
	"errors"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// TradeType is the closed set of ledger events.
type TradeType string

const (
	TradeTypeBuy      TradeType = "BUY"
	TradeTypeSell     TradeType = "SELL"
	TradeTypeDividend TradeType = "DIVIDEND"
	TradeTypeDRIP     TradeType = "DRIP"
)

// TradeTypes lists every trade type in a stable order.
func TradeTypes() []TradeType {
	return []TradeType{TradeTypeBuy, TradeTypeSell, TradeTypeDividend, TradeTypeDRIP}
}

// ParseTradeType matches a trade type case-insensitively.
func ParseTradeType(s string) (TradeType, error) {
	candidate := TradeType(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range TradeTypes() {
		if candidate == t {
			return t, nil
		}
	}
	return "", errors.New("trade_type must be one of BUY, SELL, DIVIDEND, DRIP")
}

// Valid reports whether t is one of the known trade types.
func (t TradeType) Valid() bool {
	_, err := ParseTradeType(string(t))
	return err == nil && strings.ToUpper(string(t)) == string(t)
}

// ChangesQuantity reports whether trades of this type move units in or out.
func (t TradeType) ChangesQuantity() bool {
	return t == TradeTypeBuy || t == TradeTypeSell || t == TradeTypeDRIP
}

// Trade is a single event in an investment account's ledger.
type Trade struct {
	ID           uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	AccountID    uint            `json:"account_id" gorm:"column:account_id;not null;index:idx_trades_replay,priority:1"`
	Ticker       string          `json:"ticker" gorm:"column:ticker;type:varchar(32);not null;index:idx_trades_replay,priority:2"`
	Name         string          `json:"name" gorm:"column:name;type:varchar(255)"`
	TradeType    TradeType       `json:"trade_type" gorm:"column:trade_type;type:varchar(16);not null"`
	TradeDate    time.Time       `json:"trade_date" gorm:"column:trade_date;not null;index:idx_trades_replay,priority:3"`
	Quantity     decimal.Decimal `json:"quantity" gorm:"column:quantity;type:decimal(30,18);not null"`
	Price        decimal.Decimal `json:"price" gorm:"column:price;type:decimal(30,18);not null"`
	Fees         decimal.Decimal `json:"fees" gorm:"column:fees;type:decimal(30,18);not null;default:0"`
	Currency     string          `json:"currency" gorm:"column:currency;type:varchar(3);not null"`
	ExchangeRate decimal.Decimal `json:"exchange_rate" gorm:"column:exchange_rate;type:decimal(30,18);not null"`
	Notes        *string         `json:"notes" gorm:"column:notes;type:text"`
	CreatedAt    time.Time       `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name for the Trade model
func (Trade) TableName() string {
	return "trades"
}

// Normalize canonicalises user-supplied fields before validation.
func (t *Trade) Normalize() {
	t.Ticker = strings.ToUpper(strings.TrimSpace(t.Ticker))
	t.Name = strings.TrimSpace(t.Name)
	t.Currency = strings.ToUpper(strings.TrimSpace(t.Currency))
	t.TradeType = TradeType(strings.ToUpper(strings.TrimSpace(string(t.TradeType))))
	if !t.TradeDate.IsZero() {
		t.TradeDate = DateOnly(t.TradeDate)
	}
	if t.ExchangeRate.IsZero() {
		t.ExchangeRate = decimal.NewFromInt(1)
	}
	if t.Name == "" {
		t.Name = t.Ticker
	}
}

// Validate validates the trade data
func (t *Trade) Validate() error {
	if t.Ticker == "" {
		return errors.New("ticker is required")
	}
	if len(t.Ticker) > 32 {
		return errors.New("ticker must be 32 characters or less")
	}
	if !t.TradeType.Valid() {
		return errors.New("trade_type must be one of BUY, SELL, DIVIDEND, DRIP")
	}
	if t.TradeDate.IsZero() {
		return errors.New("trade_date is required")
	}
	if t.Quantity.IsNegative() {
		return errors.New("quantity must be non-negative")
	}
	if t.TradeType.ChangesQuantity() && !t.Quantity.IsPositive() {
		return errors.New("quantity must be positive for " + string(t.TradeType))
	}
	if t.Price.IsNegative() {
		return errors.New("price must be non-negative")
	}
	if t.TradeType == TradeTypeDividend && t.Quantity.IsZero() && !t.Price.IsPositive() {
		return errors.New("cash dividend requires a positive amount in price")
	}
	if t.Fees.IsNegative() {
		return errors.New("fees must be non-negative")
	}
	if !IsValidCurrency(t.Currency) {
		return errors.New("currency must be an ISO-4217 code")
	}
	if !t.ExchangeRate.IsPositive() {
		return errors.New("exchange_rate must be positive")
	}
	return nil
}

// IsValidCurrency reports whether code is a known ISO-4217 currency.
func IsValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	return money.GetCurrency(code) != nil
}

// TradePatch carries the mutable trade fields of an update request.
// The owning account cannot be changed.
type TradePatch struct {
	Ticker       *string          `json:"ticker,omitempty"`
	Name         *string          `json:"name,omitempty"`
	TradeType    *TradeType       `json:"trade_type,omitempty"`
	TradeDate    *time.Time       `json:"trade_date,omitempty"`
	Quantity     *decimal.Decimal `json:"quantity,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Fees         *decimal.Decimal `json:"fees,omitempty"`
	Currency     *string          `json:"currency,omitempty"`
	ExchangeRate *decimal.Decimal `json:"exchange_rate,omitempty"`
	Notes        *string          `json:"notes,omitempty"`
}

// Apply returns a copy of t with the set fields of p applied.
func (p *TradePatch) Apply(t Trade) Trade {
	if p.Ticker != nil {
		t.Ticker = *p.Ticker
	}
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.TradeType != nil {
		t.TradeType = *p.TradeType
	}
	if p.TradeDate != nil {
		t.TradeDate = *p.TradeDate
	}
	if p.Quantity != nil {
		t.Quantity = *p.Quantity
	}
	if p.Price != nil {
		t.Price = *p.Price
	}
	if p.Fees != nil {
		t.Fees = *p.Fees
	}
	if p.Currency != nil {
		t.Currency = *p.Currency
	}
	if p.ExchangeRate != nil {
		t.ExchangeRate = *p.ExchangeRate
	}
	if p.Notes != nil {
		t.Notes = p.Notes
	}
	return t
}

// PairKey identifies the (account, ticker) stream a trade belongs to.
type PairKey struct {
	AccountID uint   `json:"account_id"`
	Ticker    string `json:"ticker"`
}

// Pair returns the replay stream key of the trade.
func (t *Trade) Pair() PairKey {
	return PairKey{AccountID: t.AccountID, Ticker: t.Ticker}
}
