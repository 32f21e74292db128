package models

import "github.com/shopspring/decimal"

// User is the owner of accounts and transactions and the actor behind every
// ledger operation.
type User struct {
	Base
	Name           string          `gorm:"not null" json:"name"`
	Email          string          `gorm:"uniqueIndex;not null" json:"email"`
	IsActive       bool            `gorm:"default:true" json:"is_active"`
	HasCommission  bool            `gorm:"default:false" json:"has_commission"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0" json:"commission_rate"`
}

// CommissionEligible reports whether income recorded by the user accrues commission.
func (u *User) CommissionEligible() bool {
	return u.HasCommission && u.CommissionRate.IsPositive()
}
