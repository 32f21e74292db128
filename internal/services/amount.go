package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	apperrors "kasa/internal/errors"
)

// amountScale is the number of decimal places money columns keep.
const amountScale = 4

// checkScale rejects amounts that would be truncated on storage.
func checkScale(field string, amount decimal.Decimal) error {
	if amount.Exponent() >= -amountScale || amount.Equal(amount.Truncate(amountScale)) {
		return nil
	}
	return apperrors.WithMessage(apperrors.ErrInvalidInput,
		fmt.Sprintf("%s cannot have more than %d decimal places", field, amountScale))
}
