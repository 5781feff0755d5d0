// Package testutil provides database fixtures for package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tropicaldog17/networth/internal/db"
	"github.com/tropicaldog17/networth/internal/models"
)

// NewSQLiteDB opens a private in-memory database with every migration applied.
func NewSQLiteDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.ConnectSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if _, err := database.Migrate(nil); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return database
}

// Day returns midnight UTC of the given date.
func Day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Dec parses a decimal literal.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// CreateAccount inserts an active account and returns it.
func CreateAccount(t *testing.T, database *db.DB, name string, typ models.AccountType, category string) models.Account {
	t.Helper()
	a := models.Account{Name: name, Type: typ, Category: category, IsActive: true}
	if err := database.Create(&a).Error; err != nil {
		t.Fatalf("Failed to create account %s: %v", name, err)
	}
	return a
}

// Trade builds an AUD trade with exchange rate 1.
func Trade(accountID uint, ticker string, typ models.TradeType, date time.Time, qty, price string) models.Trade {
	return models.Trade{
		AccountID:    accountID,
		Ticker:       ticker,
		Name:         ticker,
		TradeType:    typ,
		TradeDate:    date,
		Quantity:     Dec(qty),
		Price:        Dec(price),
		Currency:     "AUD",
		ExchangeRate: decimal.NewFromInt(1),
	}
}
