package fxrate

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the precision amounts are rounded to.
const MoneyPlaces = 2

// ToTRY converts amount with rate, rounded to money precision.
func ToTRY(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Round(MoneyPlaces)
}

// CrossRate returns how many units of target one unit of source buys:
// buying(source) / selling(target), or 1 when the currencies match.
func CrossRate(source, target Rate) decimal.Decimal {
	if source.Currency == target.Currency {
		return decimal.NewFromInt(1)
	}
	return source.Buying.DivRound(target.Selling, 6)
}

// Lookup resolves a rate, short-circuiting TRY to 1/1 without consulting p.
func Lookup(ctx context.Context, p Provider, currency string, date time.Time) (Rate, error) {
	if IsBase(currency) {
		return identity(date), nil
	}
	return p.GetRate(ctx, currency, date)
}
