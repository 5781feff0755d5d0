package models

import "time"

// LedgerVersion is the generation counter of one (account, ticker) stream.
// It moves in the same transaction as every trade mutation on the pair, and
// Dirty stays set until the reconciler has rebuilt the account.
type LedgerVersion struct {
	AccountID   uint      `json:"account_id" gorm:"primaryKey;autoIncrement:false"`
	Ticker      string    `json:"ticker" gorm:"primaryKey;type:varchar(32)"`
	Version     int64     `json:"version" gorm:"column:version;not null"`
	LastTradeID uint      `json:"last_trade_id" gorm:"column:last_trade_id;not null"`
	Dirty       bool      `json:"dirty" gorm:"column:dirty;not null;index"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name for the LedgerVersion model
func (LedgerVersion) TableName() string {
	return "ledger_versions"
}

// Key returns the pair the version belongs to.
func (v LedgerVersion) Key() PairKey {
	return PairKey{AccountID: v.AccountID, Ticker: v.Ticker}
}
