package models

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/tropicaldog17/networth/internal/errors"
)

// Period represents a time period for reporting
type Period struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Contains reports whether d falls inside the period. Zero bounds are open.
func (p Period) Contains(d time.Time) bool {
	if !p.StartDate.IsZero() && d.Before(p.StartDate) {
		return false
	}
	if !p.EndDate.IsZero() && d.After(p.EndDate) {
		return false
	}
	return true
}

// AccountsHistory is the per-account monthly balance grid.
type AccountsHistory struct {
	Months   []string              `json:"months"`
	Dates    []string              `json:"dates"`
	Accounts []AccountHistoryRow   `json:"accounts"`
	Totals   AccountsHistoryTotals `json:"totals"`
}

// AccountHistoryRow is one account's balances across the month axis.
type AccountHistoryRow struct {
	ID              uint              `json:"id"`
	Name            string            `json:"name"`
	Type            AccountType       `json:"type"`
	Category        string            `json:"category"`
	BalancesByMonth []decimal.Decimal `json:"balances_by_month"`
}

// AccountsHistoryTotals holds the subtotal and net-worth rows of the grid.
type AccountsHistoryTotals struct {
	AssetsByMonth      []decimal.Decimal `json:"assets_by_month"`
	LiabilitiesByMonth []decimal.Decimal `json:"liabilities_by_month"`
	NetWorthByMonth    []decimal.Decimal `json:"net_worth_by_month"`
}

// InvestmentHistoryPoint is the total holdings value on one date.
type InvestmentHistoryPoint struct {
	Date               time.Time       `json:"date"`
	TotalHoldingsValue decimal.Decimal `json:"total_holdings_value"`
}

// PortfolioSummary aggregates every active holding in system currency.
type PortfolioSummary struct {
	AsOf               time.Time       `json:"as_of"`
	Currency           string          `json:"currency"`
	TotalValue         decimal.Decimal `json:"total_value"`
	TotalCost          decimal.Decimal `json:"total_cost"`
	UnrealizedGain     decimal.Decimal `json:"unrealized_gain"`
	RealizedGain       decimal.Decimal `json:"realized_gain"`
	Dividends          decimal.Decimal `json:"dividends"`
	TotalReturn        decimal.Decimal `json:"total_return"`
	TotalReturnPercent decimal.Decimal `json:"total_return_percent"`
	HoldingCount       int             `json:"holding_count"`
}

// AllocationSlice is one bucket of an allocation breakdown.
type AllocationSlice struct {
	Key     string          `json:"key"`
	Label   string          `json:"label"`
	Value   decimal.Decimal `json:"value"`
	Percent decimal.Decimal `json:"percent"`
}

// Allocation splits current holdings value three ways.
type Allocation struct {
	TotalValue decimal.Decimal   `json:"total_value"`
	ByTicker   []AllocationSlice `json:"by_ticker"`
	ByAccount  []AllocationSlice `json:"by_account"`
	ByCurrency []AllocationSlice `json:"by_currency"`
}

// ImportReport is the partial-failure result of a CSV import.
type ImportReport struct {
	ImportedCount   int                        `json:"imported_count"`
	CreatedAccounts int                        `json:"created_accounts"`
	Errors          []apperrors.ImportRowError `json:"errors"`
	TotalErrors     int                        `json:"total_errors"`
}

// AddError appends a row failure and keeps TotalErrors in step.
func (r *ImportReport) AddError(row int, msg string) {
	r.Errors = append(r.Errors, apperrors.ImportRowError{Row: row, Message: msg})
	r.TotalErrors = len(r.Errors)
}
