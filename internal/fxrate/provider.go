// Package fxrate resolves point-in-time exchange rates of foreign currencies
// against the Turkish lira and converts amounts with them.
package fxrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BaseCurrency is the local reference currency every rate is quoted against.
const BaseCurrency = "TRY"

// ErrRateUnavailable is returned (wrapped) when no rate exists for a currency and date.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// Rate is a buying/selling quote of one unit of a currency in TRY.
type Rate struct {
	Currency string
	Date     time.Time
	Buying   decimal.Decimal
	Selling  decimal.Decimal
}

// Provider looks up the rate of currency against TRY on date.
type Provider interface {
	GetRate(ctx context.Context, currency string, date time.Time) (Rate, error)
}

// identity is the rate of TRY against itself.
func identity(date time.Time) Rate {
	one := decimal.NewFromInt(1)
	return Rate{Currency: BaseCurrency, Date: Day(date), Buying: one, Selling: one}
}

// IsBase reports whether currency is the local reference currency.
func IsBase(currency string) bool {
	return strings.EqualFold(currency, BaseCurrency)
}

// Day truncates date to a UTC calendar day, the granularity rates are published at.
func Day(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayKey formats date as YYYY-MM-DD.
func DayKey(date time.Time) string {
	return Day(date).Format(time.DateOnly)
}

func unavailable(currency string, date time.Time) error {
	return fmt.Errorf("%w: %s on %s", ErrRateUnavailable, strings.ToUpper(currency), DayKey(date))
}
