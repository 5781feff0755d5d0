package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestErrValidationError(t *testing.T) {
	err := &ErrValidation{Field: "quantity", Message: "must be positive"}
	if got, want := err.Error(), "quantity: must be positive"; got != want {
		t.Fatalf("unexpected error string: got %q want %q", got, want)
	}
}

func TestErrInsufficientHoldingsError(t *testing.T) {
	err := &ErrInsufficientHoldings{
		Ticker:    "VAS",
		TradeDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Requested: decimal.NewFromInt(12),
		Available: decimal.NewFromInt(10),
	}
	want := "insufficient holdings: sell of 12 VAS on 2024-03-01 exceeds 10 held"
	if got := err.Error(); got != want {
		t.Fatalf("unexpected error string: got %q want %q", got, want)
	}
}

func TestErrPriceFeedUnavailableUnwrap(t *testing.T) {
	cause := fmt.Errorf("timeout")
	wrapped := fmt.Errorf("refresh: %w", &ErrPriceFeedUnavailable{Ticker: "VGS", Cause: cause})

	var feedErr *ErrPriceFeedUnavailable
	if !stderrors.As(wrapped, &feedErr) {
		t.Fatal("expected errors.As to find ErrPriceFeedUnavailable")
	}
	if !stderrors.Is(wrapped, cause) {
		t.Fatal("expected cause to be reachable through Unwrap")
	}
}

func TestImportRowError(t *testing.T) {
	err := &ImportRowError{Row: 4, Message: "invalid date"}
	if got, want := err.Error(), "row 4: invalid date"; got != want {
		t.Fatalf("unexpected error string: got %q want %q", got, want)
	}
}

func TestErrInvalidAccountCategoryError(t *testing.T) {
	err := &ErrInvalidAccountCategory{AccountID: 3, Category: "Cash"}
	if got, want := err.Error(), `account 3 has category "Cash": trades require an Investment account`; got != want {
		t.Fatalf("unexpected error string: got %q want %q", got, want)
	}
	err.Reason = "investment balances are derived from trades"
	if got, want := err.Error(), `account 3 has category "Cash": investment balances are derived from trades`; got != want {
		t.Fatalf("unexpected error string: got %q want %q", got, want)
	}
}
