package models

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/tropicaldog17/networth/internal/errors"
)

// NetWorthPoint is the derived household position on one snapshot date.
type NetWorthPoint struct {
	ID               uint            `json:"-" gorm:"primaryKey;autoIncrement"`
	Date             time.Time       `json:"date" gorm:"column:date;not null;uniqueIndex"`
	TotalAssets      decimal.Decimal `json:"total_assets" gorm:"column:total_assets;type:decimal(30,18);not null"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities" gorm:"column:total_liabilities;type:decimal(30,18);not null"`
	NetWorth         decimal.Decimal `json:"net_worth" gorm:"column:net_worth;type:decimal(30,18);not null"`
	InvestmentsValue decimal.Decimal `json:"investments_value" gorm:"column:investments_value;type:decimal(30,18);not null"`
}

// TableName returns the table name for the NetWorthPoint model
func (NetWorthPoint) TableName() string {
	return "net_worth_points"
}

// RecomputeReport is returned by every reconcile run, full or scoped.
type RecomputeReport struct {
	RunID             string                            `json:"run_id"`
	StartedAt         time.Time                         `json:"started_at"`
	FinishedAt        time.Time                         `json:"finished_at"`
	AccountsUpdated   int                               `json:"accounts_updated"`
	SnapshotsRebuilt  int                               `json:"snapshots_rebuilt"`
	NetWorthPoints    int                               `json:"net_worth_points"`
	Errors            []apperrors.RecomputeAccountError `json:"errors"`
	Cancelled         bool                              `json:"cancelled"`
	PendingAccountIDs []uint                            `json:"pending_account_ids,omitempty"`
}

// ExportedSnapshot is the canonical text form of one balance snapshot.
type ExportedSnapshot struct {
	AccountID uint   `json:"account_id"`
	Date      string `json:"date"`
	Balance   string `json:"balance"`
	Source    string `json:"source"`
}

// ExportedNetWorthPoint is the canonical text form of one net-worth point.
type ExportedNetWorthPoint struct {
	Date             string `json:"date"`
	TotalAssets      string `json:"total_assets"`
	TotalLiabilities string `json:"total_liabilities"`
	NetWorth         string `json:"net_worth"`
	InvestmentsValue string `json:"investments_value"`
}

// ReconcileExport is every derived row in a canonical order. Two exports
// taken around a reconcile with no source mutation in between are equal.
type ReconcileExport struct {
	Snapshots []ExportedSnapshot      `json:"snapshots"`
	NetWorth  []ExportedNetWorthPoint `json:"net_worth"`
}

// CanonicalDecimal renders d at a fixed scale so values read back from
// either database driver compare equal.
func CanonicalDecimal(d decimal.Decimal) string {
	return d.StringFixed(8)
}
