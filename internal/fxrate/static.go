package fxrate

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StaticProvider serves the same rate for a currency on every date.
type StaticProvider struct {
	rates map[string]Rate
}

// NewStaticProvider creates a provider from currency -> {buying, selling} pairs.
func NewStaticProvider(quotes map[string][2]decimal.Decimal) *StaticProvider {
	rates := make(map[string]Rate, len(quotes))
	for code, q := range quotes {
		code = strings.ToUpper(code)
		rates[code] = Rate{Currency: code, Buying: q[0], Selling: q[1]}
	}
	return &StaticProvider{rates: rates}
}

// ParseStaticQuotes converts string pairs, e.g. from configuration, to decimal quotes.
func ParseStaticQuotes(raw map[string][2]string) (map[string][2]decimal.Decimal, error) {
	quotes := make(map[string][2]decimal.Decimal, len(raw))
	for code, pair := range raw {
		buying, err := decimal.NewFromString(pair[0])
		if err != nil {
			return nil, err
		}
		selling, err := decimal.NewFromString(pair[1])
		if err != nil {
			return nil, err
		}
		quotes[code] = [2]decimal.Decimal{buying, selling}
	}
	return quotes, nil
}

// GetRate returns the configured quote or ErrRateUnavailable.
func (s *StaticProvider) GetRate(_ context.Context, currency string, date time.Time) (Rate, error) {
	code := strings.ToUpper(currency)
	if code == BaseCurrency {
		return identity(date), nil
	}
	rate, ok := s.rates[code]
	if !ok {
		return Rate{}, unavailable(code, date)
	}
	rate.Date = Day(date)
	return rate, nil
}
