package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome        TransactionType = "income"
	TransactionTypeExpense       TransactionType = "expense"
	TransactionTypeTransfer      TransactionType = "transfer"
	TransactionTypeLoanPayment   TransactionType = "loan_payment"
	TransactionTypeDebtPayment   TransactionType = "debt_payment"
	TransactionTypeCreditPayment TransactionType = "credit_payment"
	TransactionTypeATMDeposit    TransactionType = "atm_deposit"
	TransactionTypeATMWithdraw   TransactionType = "atm_withdraw"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer,
		TransactionTypeLoanPayment, TransactionTypeDebtPayment, TransactionTypeCreditPayment,
		TransactionTypeATMDeposit, TransactionTypeATMWithdraw:
		return true
	}
	return false
}

// Immutable reports whether transactions of this type represent a completed,
// counter-entried movement that may be neither edited nor deleted.
func (t TransactionType) Immutable() bool {
	switch t {
	case TransactionTypeTransfer, TransactionTypeATMDeposit, TransactionTypeATMWithdraw,
		TransactionTypeLoanPayment, TransactionTypeCreditPayment:
		return true
	}
	return false
}

// PaymentMethod describes how a transaction was settled.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodDebitCard    PaymentMethod = "debit_card"
	PaymentMethodCrypto       PaymentMethod = "crypto"
	PaymentMethodVirtualPOS   PaymentMethod = "virtual_pos"
	PaymentMethodOther        PaymentMethod = "other"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodCrypto, PaymentMethodVirtualPOS, PaymentMethodOther:
		return true
	}
	return false
}

// SubscriptionPeriod is the recurrence interval of a subscription transaction.
type SubscriptionPeriod string

const (
	PeriodDaily      SubscriptionPeriod = "daily"
	PeriodWeekly     SubscriptionPeriod = "weekly"
	PeriodMonthly    SubscriptionPeriod = "monthly"
	PeriodQuarterly  SubscriptionPeriod = "quarterly"
	PeriodBiannually SubscriptionPeriod = "biannually"
	PeriodAnnually   SubscriptionPeriod = "annually"
)

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
)

// Transaction is a single financial movement. Amount is expressed in Currency;
// TryEquivalent is Amount converted to TRY with ExchangeRate.
type Transaction struct {
	Base
	UserID               string            `gorm:"type:uuid;not null;index" json:"user_id"`
	CategoryID           string            `gorm:"type:uuid;not null;index" json:"category_id"`
	SourceAccountID      *string           `gorm:"type:uuid;index" json:"source_account_id,omitempty"`
	DestinationAccountID *string           `gorm:"type:uuid;index" json:"destination_account_id,omitempty"`
	CustomerID           *string           `gorm:"type:uuid" json:"customer_id,omitempty"`
	SupplierID           *string           `gorm:"type:uuid" json:"supplier_id,omitempty"`
	Type                 TransactionType   `gorm:"not null;index" json:"type"`
	Amount               decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"amount"`
	Currency             string            `gorm:"size:3;not null" json:"currency"`
	ExchangeRate         decimal.Decimal   `gorm:"type:decimal(20,6);not null;default:1" json:"exchange_rate"`
	TryEquivalent        decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"try_equivalent"`
	FeeAmount            *decimal.Decimal  `gorm:"type:decimal(20,4)" json:"fee_amount,omitempty"`
	Date                 time.Time         `gorm:"not null;index" json:"date"`
	PaymentMethod        PaymentMethod     `gorm:"not null" json:"payment_method"`
	Description          string            `json:"description"`
	Status               TransactionStatus `gorm:"not null;default:'completed'" json:"status"`

	Installments          *int             `json:"installments,omitempty"`
	RemainingInstallments *int             `json:"remaining_installments,omitempty"`
	MonthlyAmount         *decimal.Decimal `gorm:"type:decimal(20,4)" json:"monthly_amount,omitempty"`

	IsSubscription     bool                `gorm:"default:false;index" json:"is_subscription"`
	SubscriptionPeriod *SubscriptionPeriod `json:"subscription_period,omitempty"`
	NextPaymentDate    *time.Time          `json:"next_payment_date,omitempty"`

	IsTaxable         bool             `gorm:"default:false" json:"is_taxable"`
	TaxRate           *decimal.Decimal `gorm:"type:decimal(20,6)" json:"tax_rate,omitempty"`
	TaxAmount         *decimal.Decimal `gorm:"type:decimal(20,4)" json:"tax_amount,omitempty"`
	HasWithholding    bool             `gorm:"default:false" json:"has_withholding"`
	WithholdingRate   *decimal.Decimal `gorm:"type:decimal(20,6)" json:"withholding_rate,omitempty"`
	WithholdingAmount *decimal.Decimal `gorm:"type:decimal(20,4)" json:"withholding_amount,omitempty"`

	// ReferenceID links the two legs of a transfer, or a duplicate to its source.
	ReferenceID *string `gorm:"type:uuid;index" json:"reference_id,omitempty"`

	Category           *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	SourceAccount      *Account  `gorm:"foreignKey:SourceAccountID" json:"source_account,omitempty"`
	DestinationAccount *Account  `gorm:"foreignKey:DestinationAccountID" json:"destination_account,omitempty"`
}
