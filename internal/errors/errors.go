package errors

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return e.Field + ": " + e.Message
}

// ErrNotFound is returned when a referenced row does not exist.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrInsufficientHoldings is raised when a SELL exceeds the quantity held at
// its trade date under chronological replay.
type ErrInsufficientHoldings struct {
	AccountID uint
	Ticker    string
	TradeID   uint
	TradeDate time.Time
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *ErrInsufficientHoldings) Error() string {
	return fmt.Sprintf("insufficient holdings: sell of %s %s on %s exceeds %s held",
		e.Requested.String(), e.Ticker, e.TradeDate.Format("2006-01-02"), e.Available.String())
}

// ErrInvalidAccountCategory is raised when an operation does not fit the
// account's category, e.g. a trade on a Cash account.
type ErrInvalidAccountCategory struct {
	AccountID uint
	Category  string
	Reason    string
}

func (e *ErrInvalidAccountCategory) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "trades require an Investment account"
	}
	return fmt.Sprintf("account %d has category %q: %s", e.AccountID, e.Category, reason)
}

// ErrPriceFeedUnavailable marks a per-ticker price lookup failure. It is never fatal.
type ErrPriceFeedUnavailable struct {
	Ticker string
	Cause  error
}

func (e *ErrPriceFeedUnavailable) Error() string {
	if e.Cause == nil {
		return "price feed unavailable for " + e.Ticker
	}
	return "price feed unavailable for " + e.Ticker + ": " + e.Cause.Error()
}

func (e *ErrPriceFeedUnavailable) Unwrap() error { return e.Cause }

// ImportRowError describes one rejected CSV row. Row is 1-based and counts the header.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e *ImportRowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// RecomputeAccountError records a failed account inside a recompute run.
type RecomputeAccountError struct {
	AccountID uint   `json:"account_id"`
	Message   string `json:"message"`
}

func (e *RecomputeAccountError) Error() string {
	return fmt.Sprintf("recompute account %d: %s", e.AccountID, e.Message)
}
