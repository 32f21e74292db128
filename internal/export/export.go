// Package export writes transaction history as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"kasa/internal/models"
	"kasa/internal/pagination"
	"kasa/internal/services"
)

// Row is one exported transaction. Amounts keep two decimals, rates six.
type Row struct {
	ID                   string `csv:"id"`
	Date                 string `csv:"date"`
	Type                 string `csv:"type"`
	Category             string `csv:"category"`
	Description          string `csv:"description"`
	Amount               string `csv:"amount"`
	Currency             string `csv:"currency"`
	ExchangeRate         string `csv:"exchange_rate"`
	TryEquivalent        string `csv:"try_equivalent"`
	Fee                  string `csv:"fee"`
	PaymentMethod        string `csv:"payment_method"`
	SourceAccountID      string `csv:"source_account_id"`
	DestinationAccountID string `csv:"destination_account_id"`
	Tax                  string `csv:"tax"`
	Withholding          string `csv:"withholding"`
	Subscription         string `csv:"subscription_period"`
	NextPaymentDate      string `csv:"next_payment_date"`
	ReferenceID          string `csv:"reference_id"`
}

// Lister pages through an owner's transactions.
type Lister interface {
	GetUserTransactions(userID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
}

// Options controls the CSV layout.
type Options struct {
	Delimiter rune // defaults to ','
}

// NewRow flattens a transaction into an export row.
func NewRow(tx *models.Transaction) Row {
	row := Row{
		ID:            tx.ID,
		Date:          tx.Date.UTC().Format(time.RFC3339),
		Type:          string(tx.Type),
		Description:   tx.Description,
		Amount:        tx.Amount.StringFixed(2),
		Currency:      tx.Currency,
		ExchangeRate:  tx.ExchangeRate.StringFixed(6),
		TryEquivalent: tx.TryEquivalent.StringFixed(2),
		PaymentMethod: string(tx.PaymentMethod),
	}
	if tx.Category != nil {
		row.Category = tx.Category.Name
	}
	if tx.FeeAmount != nil {
		row.Fee = tx.FeeAmount.StringFixed(2)
	}
	if tx.SourceAccountID != nil {
		row.SourceAccountID = *tx.SourceAccountID
	}
	if tx.DestinationAccountID != nil {
		row.DestinationAccountID = *tx.DestinationAccountID
	}
	if tx.TaxAmount != nil {
		row.Tax = tx.TaxAmount.StringFixed(2)
	}
	if tx.WithholdingAmount != nil {
		row.Withholding = tx.WithholdingAmount.StringFixed(2)
	}
	if tx.IsSubscription && tx.SubscriptionPeriod != nil {
		row.Subscription = string(*tx.SubscriptionPeriod)
	}
	if tx.NextPaymentDate != nil {
		row.NextPaymentDate = tx.NextPaymentDate.UTC().Format("2006-01-02")
	}
	if tx.ReferenceID != nil {
		row.ReferenceID = *tx.ReferenceID
	}
	return row
}

// WriteTransactions writes every transaction of userID matching filter to w,
// newest first, one page at a time. It returns the number of rows written.
// The header is written even when nothing matches.
func WriteTransactions(w io.Writer, lister Lister, userID string, filter services.TransactionFilter, opts Options) (int, error) {
	csvWriter := csv.NewWriter(w)
	if opts.Delimiter != 0 {
		csvWriter.Comma = opts.Delimiter
	}
	out := gocsv.NewSafeCSVWriter(csvWriter)

	page := pagination.PageRequest{Page: 1, PageSize: pagination.MaxPageSize}
	written := 0
	for {
		result, err := lister.GetUserTransactions(userID, page, filter)
		if err != nil {
			return written, err
		}

		rows := make([]Row, 0, len(result.Data))
		for i := range result.Data {
			rows = append(rows, NewRow(&result.Data[i]))
		}

		if page.Page == 1 {
			err = gocsv.MarshalCSV(rows, out)
		} else {
			err = gocsv.MarshalCSVWithoutHeaders(rows, out)
		}
		if err != nil {
			return written, fmt.Errorf("writing page %d: %w", page.Page, err)
		}
		written += len(rows)

		if !result.HasNext {
			break
		}
		page = page.Next()
	}

	out.Flush()
	return written, out.Error()
}
