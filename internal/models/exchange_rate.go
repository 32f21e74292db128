package models

import "github.com/shopspring/decimal"

// RateSource identifies where a stored exchange rate came from.
type RateSource string

const (
	RateSourceTCMB   RateSource = "tcmb"
	RateSourceManual RateSource = "manual"
	RateSourceStatic RateSource = "static"
)

// ExchangeRate is a persisted buying/selling quote of Currency against TRY for one day.
type ExchangeRate struct {
	Base
	Currency string          `gorm:"size:3;not null;uniqueIndex:idx_exchange_rates_currency_date" json:"currency"`
	RateDate string          `gorm:"size:10;not null;uniqueIndex:idx_exchange_rates_currency_date" json:"rate_date"` // YYYY-MM-DD
	Buying   decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"buying"`
	Selling  decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"selling"`
	Source   RateSource      `gorm:"not null" json:"source"`
}
