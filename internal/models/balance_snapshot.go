package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotSource distinguishes user-entered balances from reconciler rollups.
type SnapshotSource string

const (
	SnapshotSourceManual   SnapshotSource = "manual"
	SnapshotSourceComputed SnapshotSource = "computed"
)

// BalanceSnapshot is one (account, date, balance) fact. Liability balances
// are positive magnitudes.
type BalanceSnapshot struct {
	ID        uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	AccountID uint            `json:"account_id" gorm:"column:account_id;not null;uniqueIndex:idx_balance_snapshots_account_date,priority:1"`
	Date      time.Time       `json:"date" gorm:"column:date;not null;uniqueIndex:idx_balance_snapshots_account_date,priority:2"`
	Balance   decimal.Decimal `json:"balance" gorm:"column:balance;type:decimal(30,18);not null"`
	Source    SnapshotSource  `json:"source" gorm:"column:source;type:varchar(16);not null;index"`
	CreatedAt time.Time       `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name for the BalanceSnapshot model
func (BalanceSnapshot) TableName() string {
	return "balance_snapshots"
}

func (s *BalanceSnapshot) Validate() error {
	if s.AccountID == 0 {
		return errors.New("account_id is required")
	}
	if s.Date.IsZero() {
		return errors.New("date is required")
	}
	if s.Balance.IsNegative() {
		return errors.New("balance must be a non-negative magnitude")
	}
	if s.Source != SnapshotSourceManual && s.Source != SnapshotSourceComputed {
		return errors.New("source must be 'manual' or 'computed'")
	}
	return nil
}

// BalanceUpdate is the body of a single-date manual balance upsert.
type BalanceUpdate struct {
	Date    string          `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}
