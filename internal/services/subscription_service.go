package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "kasa/internal/errors"
	"kasa/internal/events"
	"kasa/internal/logger"
	"kasa/internal/models"
	"kasa/internal/schedule"
)

// subscriptionService schedules recurring transactions.
type subscriptionService struct {
	db                 *gorm.DB
	transactionService TransactionServicer
	publisher          events.Publisher
	now                func() time.Time
}

// NewSubscriptionService creates a new SubscriptionServicer.
func NewSubscriptionService(db *gorm.DB, transactionService TransactionServicer, publisher events.Publisher) SubscriptionServicer {
	return &subscriptionService{
		db:                 db,
		transactionService: transactionService,
		publisher:          publisher,
		now:                time.Now,
	}
}

// CalculateNextPaymentDate returns the current next payment date advanced by
// one period. A subscription without a next date advances from its own date.
func (s *subscriptionService) CalculateNextPaymentDate(transaction *models.Transaction) (time.Time, error) {
	if !transaction.IsSubscription || transaction.SubscriptionPeriod == nil {
		return time.Time{}, apperrors.ErrNotASubscription
	}

	from := transaction.Date
	if transaction.NextPaymentDate != nil {
		from = *transaction.NextPaymentDate
	}

	next, err := schedule.Next(from.UTC(), *transaction.SubscriptionPeriod)
	if err != nil {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	return next, nil
}

// AdvanceSchedule moves a subscription's next payment date forward by one period.
func (s *subscriptionService) AdvanceSchedule(ctx context.Context, userID, transactionID string) (*models.Transaction, error) {
	var result *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.advanceWithDB(tx, userID, transactionID)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("subscription advanced", "user_id", userID, "transaction_id", transactionID, "next_payment_date", result.NextPaymentDate)
	return result, nil
}

// advanceWithDB locks the subscription row so concurrent advances accumulate.
func (s *subscriptionService) advanceWithDB(tx *gorm.DB, userID, transactionID string) (*models.Transaction, error) {
	var t models.Transaction
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", transactionID, userID).
		First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	next, err := s.CalculateNextPaymentDate(&t)
	if err != nil {
		return nil, err
	}

	if err := tx.Model(&t).Update("next_payment_date", next).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	t.NextPaymentDate = &next
	return &t, nil
}

// QuickDuplicate records a copy of a past transaction dated today, through the
// full ledger path. When the original is a subscription its next payment date
// advances in the same unit of work.
func (s *subscriptionService) QuickDuplicate(ctx context.Context, userID, transactionID string) (*DuplicateResult, error) {
	original, err := s.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	input := RecordTransactionInput{
		CategoryID:      original.CategoryID,
		Type:            original.Type,
		Amount:          original.Amount,
		Currency:        original.Currency,
		FeeAmount:       original.FeeAmount,
		Date:            s.now().UTC(),
		PaymentMethod:   original.PaymentMethod,
		Description:     original.Description,
		CustomerID:      original.CustomerID,
		SupplierID:      original.SupplierID,
		IsTaxable:       original.IsTaxable,
		TaxRate:         original.TaxRate,
		HasWithholding:  original.HasWithholding,
		WithholdingRate: original.WithholdingRate,
		ReferenceID:     &original.ID,
	}
	if original.SourceAccountID != nil {
		input.SourceAccountID = *original.SourceAccountID
	}
	if original.DestinationAccountID != nil {
		input.DestinationAccountID = *original.DestinationAccountID
	}

	prepared, err := s.transactionService.PrepareTransaction(ctx, userID, input)
	if err != nil {
		return nil, err
	}

	result := &DuplicateResult{Original: original}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		duplicate, err := s.transactionService.CommitTransaction(tx, prepared)
		if err != nil {
			return err
		}
		result.Duplicate = duplicate

		if original.IsSubscription {
			advanced, err := s.advanceWithDB(tx, userID, original.ID)
			if err != nil {
				return err
			}
			result.Original = advanced
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := logger.Get()
	log.Infow("transaction duplicated",
		"user_id", userID,
		"original_id", original.ID,
		"duplicate_id", result.Duplicate.ID,
		"next_payment_date", result.Original.NextPaymentDate,
	)
	if err := s.publisher.Publish(ctx, events.New(events.TransactionRecorded, userID, map[string]any{
		"transaction_id": result.Duplicate.ID,
		"type":           result.Duplicate.Type,
		"amount":         result.Duplicate.Amount.String(),
		"currency":       result.Duplicate.Currency,
		"exchange_rate":  result.Duplicate.ExchangeRate.String(),
		"try_equivalent": result.Duplicate.TryEquivalent.String(),
		"duplicate_of":   original.ID,
	})); err != nil {
		log.Errorw("failed to publish transaction event", "error", err, "transaction_id", result.Duplicate.ID)
	}

	return result, nil
}

// EndSubscription stops a transaction from recurring. Its history stays.
func (s *subscriptionService) EndSubscription(ctx context.Context, userID, transactionID string) (*models.Transaction, error) {
	t, err := s.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}
	if !t.IsSubscription {
		return nil, apperrors.ErrNotASubscription
	}

	updates := map[string]interface{}{
		"is_subscription":     false,
		"subscription_period": nil,
		"next_payment_date":   nil,
	}
	if err := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("id = ?", t.ID).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	t.IsSubscription = false
	t.SubscriptionPeriod = nil
	t.NextPaymentDate = nil

	logger.Get().Infow("subscription ended", "user_id", userID, "transaction_id", transactionID)
	return t, nil
}

// DueSubscriptions lists subscriptions whose next payment falls on or before asOf's day.
func (s *subscriptionService) DueSubscriptions(ctx context.Context, userID string, asOf time.Time) ([]models.Transaction, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	cutoff := schedule.StartOfDay(asOf.UTC()).AddDate(0, 0, 1)

	var due []models.Transaction
	if err := s.db.WithContext(ctx).
		Preload("Category").
		Where("user_id = ? AND is_subscription = ? AND next_payment_date < ?", userID, true, cutoff).
		Order("next_payment_date").
		Find(&due).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if due == nil {
		due = []models.Transaction{}
	}
	return due, nil
}
