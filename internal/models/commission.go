package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Commission is accrued on an income transaction for a commission-eligible owner.
type Commission struct {
	Base
	UserID           string          `gorm:"type:uuid;not null;index" json:"user_id"`
	TransactionID    string          `gorm:"type:uuid;not null;uniqueIndex" json:"transaction_id"`
	CommissionRate   decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"commission_rate"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"commission_amount"`
	TransactionDate  time.Time       `gorm:"not null;index" json:"transaction_date"`

	Transaction *Transaction `gorm:"foreignKey:TransactionID" json:"transaction,omitempty"`
}

// CommissionPayout records money paid out against accrued commission.
type CommissionPayout struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	PaymentDate time.Time       `gorm:"not null;index" json:"payment_date"`
	PeriodStart *time.Time      `json:"period_start,omitempty"`
	PeriodEnd   *time.Time      `json:"period_end,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}
