package fxrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kasa/internal/models"
)

// StoreProvider persists rates in the exchange_rates table. Lookups read the
// table first and fall back to upstream, saving what upstream returns.
// Manually saved rates take precedence over upstream for their day.
type StoreProvider struct {
	db       *gorm.DB
	upstream Provider
	source   models.RateSource
}

// NewStoreProvider creates a read-through store in front of upstream.
// upstream may be nil, in which case only stored rates are served.
func NewStoreProvider(db *gorm.DB, upstream Provider, source models.RateSource) *StoreProvider {
	return &StoreProvider{db: db, upstream: upstream, source: source}
}

// GetRate returns the stored rate for the day or fetches and stores it.
func (s *StoreProvider) GetRate(ctx context.Context, currency string, date time.Time) (Rate, error) {
	code := strings.ToUpper(currency)
	if code == BaseCurrency {
		return identity(date), nil
	}

	var row models.ExchangeRate
	err := s.db.WithContext(ctx).Where("currency = ? AND rate_date = ?", code, DayKey(date)).First(&row).Error
	switch {
	case err == nil:
		return rateFromRow(row), nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return Rate{}, fmt.Errorf("reading stored rate: %w", err)
	}

	if s.upstream == nil {
		return Rate{}, unavailable(code, date)
	}

	rate, err := s.upstream.GetRate(ctx, code, date)
	if err != nil {
		return Rate{}, err
	}

	// Stored under the requested day so later lookups for a holiday hit the table.
	if err := s.save(ctx, code, date, rate.Buying, rate.Selling, s.source, false); err != nil {
		return Rate{}, err
	}
	rate.Date = Day(date)
	return rate, nil
}

// SaveManualRate records an operator-supplied rate for currency on date,
// replacing any stored rate for that day.
func (s *StoreProvider) SaveManualRate(ctx context.Context, currency string, date time.Time, buying, selling decimal.Decimal) (Rate, error) {
	code := strings.ToUpper(currency)
	if code == BaseCurrency {
		return Rate{}, fmt.Errorf("rates of %s against itself are fixed", BaseCurrency)
	}
	if !buying.IsPositive() || !selling.IsPositive() {
		return Rate{}, fmt.Errorf("buying and selling rates must be positive")
	}
	if err := s.save(ctx, code, date, buying, selling, models.RateSourceManual, true); err != nil {
		return Rate{}, err
	}
	return Rate{Currency: code, Date: Day(date), Buying: buying, Selling: selling}, nil
}

func (s *StoreProvider) save(ctx context.Context, code string, date time.Time, buying, selling decimal.Decimal, source models.RateSource, overwrite bool) error {
	row := models.ExchangeRate{
		Currency: code,
		RateDate: DayKey(date),
		Buying:   buying,
		Selling:  selling,
		Source:   source,
	}
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "currency"}, {Name: "rate_date"}},
		DoNothing: true,
	}
	if overwrite {
		onConflict = clause.OnConflict{
			Columns:   []clause.Column{{Name: "currency"}, {Name: "rate_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"buying", "selling", "source", "updated_at"}),
		}
	}
	if err := s.db.WithContext(ctx).Clauses(onConflict).Create(&row).Error; err != nil {
		return fmt.Errorf("storing rate: %w", err)
	}
	return nil
}

func rateFromRow(row models.ExchangeRate) Rate {
	day, _ := time.Parse(time.DateOnly, row.RateDate)
	return Rate{Currency: row.Currency, Date: day, Buying: row.Buying, Selling: row.Selling}
}
