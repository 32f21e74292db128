package models

import (
	"github.com/shopspring/decimal"
)

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeBank       AccountType = "bank_account"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeCrypto     AccountType = "crypto_wallet"
	AccountTypeVirtualPOS AccountType = "virtual_pos"
	AccountTypeCash       AccountType = "cash"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeBank, AccountTypeCreditCard, AccountTypeCrypto, AccountTypeVirtualPOS, AccountTypeCash:
		return true
	}
	return false
}

// BankDetails holds the fields specific to bank accounts.
type BankDetails struct {
	BankName      string `json:"bank_name,omitempty"`
	Branch        string `json:"branch,omitempty"`
	IBAN          string `gorm:"column:iban" json:"iban,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
}

// CreditCardDetails holds the fields specific to credit card accounts.
type CreditCardDetails struct {
	BankName     string          `json:"bank_name,omitempty"`
	LastFour     string          `gorm:"size:4" json:"last_four,omitempty"`
	CreditLimit  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit_limit"`
	StatementDay int             `json:"statement_day,omitempty"`
	DueDay       int             `json:"due_day,omitempty"`
}

// CryptoWalletDetails holds the fields specific to crypto wallets.
type CryptoWalletDetails struct {
	Platform string `json:"platform,omitempty"`
	Network  string `json:"network,omitempty"`
	Address  string `json:"address,omitempty"`
}

// VirtualPOSDetails holds the fields specific to virtual POS accounts.
type VirtualPOSDetails struct {
	Provider       string          `json:"provider,omitempty"`
	MerchantID     string          `json:"merchant_id,omitempty"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"commission_rate"`
}

// Account holds one balance, always in the account's own currency.
type Account struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Name        string          `gorm:"not null" json:"name"`
	Type        AccountType     `gorm:"not null" json:"type"`
	Description string          `json:"description"`
	Currency    string          `gorm:"size:3;not null" json:"currency"`
	Balance     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"balance"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`

	Bank       BankDetails         `gorm:"embedded;embeddedPrefix:bank_" json:"bank"`
	CreditCard CreditCardDetails   `gorm:"embedded;embeddedPrefix:card_" json:"credit_card"`
	Crypto     CryptoWalletDetails `gorm:"embedded;embeddedPrefix:crypto_" json:"crypto"`
	VirtualPOS VirtualPOSDetails   `gorm:"embedded;embeddedPrefix:pos_" json:"virtual_pos"`
}

// ClearForeignDetails zeroes every detail block that does not belong to the account type.
func (a *Account) ClearForeignDetails() {
	if a.Type != AccountTypeBank {
		a.Bank = BankDetails{}
	}
	if a.Type != AccountTypeCreditCard {
		a.CreditCard = CreditCardDetails{}
	}
	if a.Type != AccountTypeCrypto {
		a.Crypto = CryptoWalletDetails{}
	}
	if a.Type != AccountTypeVirtualPOS {
		a.VirtualPOS = VirtualPOSDetails{}
	}
}

// Available returns how much can be debited from the account.
// Credit cards may go negative down to their credit limit.
func (a *Account) Available() decimal.Decimal {
	if a.Type == AccountTypeCreditCard {
		return a.Balance.Add(a.CreditCard.CreditLimit)
	}
	return a.Balance
}
