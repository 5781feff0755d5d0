package models

import (
	"errors"
	"strings"
	"time"
)

// AccountType is the balance-sheet side of an account.
type AccountType string

const (
	AccountTypeAsset     AccountType = "Asset"
	AccountTypeLiability AccountType = "Liability"
)

// Common account categories
const (
	CategoryCash       = "Cash"
	CategorySavings    = "Savings"
	CategoryInvestment = "Investment"
	CategorySuper      = "Super"
	CategoryProperty   = "Property"
	CategoryVehicle    = "Vehicle"
	CategoryMortgage   = "Mortgage"
	CategoryHECS       = "HECS"
	CategoryCreditCard = "CreditCard"
	CategoryLoan       = "Loan"
	CategoryOther      = "Other"
)

// Account represents a household account whose balance feeds net worth.
// Investment accounts own trades; every other category owns balance snapshots.
type Account struct {
	ID        uint        `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string      `json:"name" gorm:"column:name;type:varchar(100);not null;uniqueIndex"`
	Type      AccountType `json:"type" gorm:"column:type;type:varchar(16);not null"`
	Category  string      `json:"category" gorm:"column:category;type:varchar(32);not null;index"`
	IsActive  bool        `json:"is_active" gorm:"column:is_active;not null"`
	CreatedAt time.Time   `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time   `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name for the Account model
func (Account) TableName() string {
	return "accounts"
}

// IsInvestment reports whether the account's balance is derived from trades.
func (a *Account) IsInvestment() bool {
	return a.Category == CategoryInvestment
}

// IsLiability reports whether the account's balance is subtracted from net worth.
func (a *Account) IsLiability() bool {
	return a.Type == AccountTypeLiability
}

// Validate validates the account data
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("name is required")
	}
	if len(a.Name) > 100 {
		return errors.New("name must be 100 characters or less")
	}
	if !IsValidAccountType(a.Type) {
		return errors.New("type must be 'Asset' or 'Liability'")
	}
	if a.Category == "" {
		return errors.New("category is required")
	}
	if len(a.Category) > 32 {
		return errors.New("category must be 32 characters or less")
	}
	if a.Category == CategoryInvestment && a.Type != AccountTypeAsset {
		return errors.New("investment accounts must be assets")
	}
	return nil
}

// IsValidAccountType checks if the account type is valid
func IsValidAccountType(t AccountType) bool {
	return t == AccountTypeAsset || t == AccountTypeLiability
}

// ParseAccountType matches an account type case-insensitively.
func ParseAccountType(s string) (AccountType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asset":
		return AccountTypeAsset, true
	case "liability":
		return AccountTypeLiability, true
	}
	return "", false
}

// NormalizeCategory maps a free-form category onto a known one when it
// matches case-insensitively; unknown categories are kept as given.
func NormalizeCategory(s string) string {
	s = strings.TrimSpace(s)
	for _, known := range []string{
		CategoryCash, CategorySavings, CategoryInvestment, CategorySuper, CategoryProperty,
		CategoryVehicle, CategoryMortgage, CategoryHECS, CategoryCreditCard, CategoryLoan, CategoryOther,
	} {
		if strings.EqualFold(s, known) {
			return known
		}
	}
	return s
}

// AccountPatch carries the mutable account fields of an update request.
type AccountPatch struct {
	Name     *string      `json:"name,omitempty"`
	Type     *AccountType `json:"type,omitempty"`
	Category *string      `json:"category,omitempty"`
	IsActive *bool        `json:"is_active,omitempty"`
}

// Apply copies the set fields of p onto a.
func (p *AccountPatch) Apply(a *Account) {
	if p.Name != nil {
		a.Name = strings.TrimSpace(*p.Name)
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Category != nil {
		a.Category = NormalizeCategory(*p.Category)
	}
	if p.IsActive != nil {
		a.IsActive = *p.IsActive
	}
}
