package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "kasa/internal/errors"
	"kasa/internal/events"
	"kasa/internal/fxrate"
	"kasa/internal/logger"
	"kasa/internal/models"
	"kasa/internal/pagination"
	"kasa/internal/schedule"
	"kasa/internal/validator"
)

const maxInstallments = 36

// transactionService is the ledger write path. A new transaction runs through
// validate, convert and derive outside the database transaction, then persist,
// mutate-balance and accrue-commission inside it.
type transactionService struct {
	db                *gorm.DB
	accountService    AccountServicer
	categoryService   CategoryServicer
	commissionService CommissionServicer
	rates             fxrate.Provider
	publisher         events.Publisher
	now               func() time.Time
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(
	db *gorm.DB,
	accountService AccountServicer,
	categoryService CategoryServicer,
	commissionService CommissionServicer,
	rates fxrate.Provider,
	publisher events.Publisher,
) TransactionServicer {
	return &transactionService{
		db:                db,
		accountService:    accountService,
		categoryService:   categoryService,
		commissionService: commissionService,
		rates:             rates,
		publisher:         publisher,
		now:               time.Now,
	}
}

// RecordTransaction records a new income, expense or payment and applies it
// to the routed account balances in one unit of work.
func (s *transactionService) RecordTransaction(ctx context.Context, userID string, input RecordTransactionInput) (*models.Transaction, error) {
	prepared, err := s.PrepareTransaction(ctx, userID, input)
	if err != nil {
		return nil, err
	}

	var result *models.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.CommitTransaction(tx, prepared)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.recorded(ctx, result)
	return result, nil
}

// recorded logs and publishes a committed transaction.
func (s *transactionService) recorded(ctx context.Context, t *models.Transaction) {
	log := logger.Get()
	log.Infow("transaction recorded",
		"user_id", t.UserID,
		"transaction_id", t.ID,
		"type", t.Type,
		"amount", t.Amount.String(),
		"currency", t.Currency,
		"try_equivalent", t.TryEquivalent.String(),
	)

	if err := s.publisher.Publish(ctx, events.New(events.TransactionRecorded, t.UserID, map[string]any{
		"transaction_id": t.ID,
		"type":           t.Type,
		"amount":         t.Amount.String(),
		"currency":       t.Currency,
		"exchange_rate":  t.ExchangeRate.String(),
		"try_equivalent": t.TryEquivalent.String(),
	})); err != nil {
		log.Errorw("failed to publish transaction event", "error", err, "transaction_id", t.ID)
	}
}

// PrepareTransaction validates input, resolves its exchange rate and derives
// every computed field without writing anything.
func (s *transactionService) PrepareTransaction(ctx context.Context, userID string, input RecordTransactionInput) (*PreparedTransaction, error) {
	if err := s.validate(userID, &input); err != nil {
		return nil, err
	}

	rate, err := s.convert(ctx, input.Currency, input.Date, input.ExchangeRate)
	if err != nil {
		return nil, err
	}

	t, err := s.derive(userID, input, rate)
	if err != nil {
		return nil, err
	}

	return &PreparedTransaction{
		Transaction:     t,
		sourceCash:      input.SourceAccountID == CashAccount,
		destinationCash: input.DestinationAccountID == CashAccount,
	}, nil
}

// CommitTransaction persists a prepared transaction, mutates the routed
// balances and accrues commission, all within tx.
func (s *transactionService) CommitTransaction(tx *gorm.DB, prepared *PreparedTransaction) (*models.Transaction, error) {
	t := prepared.Transaction

	if err := s.resolveCash(tx, prepared); err != nil {
		return nil, err
	}

	// persist
	if err := tx.Create(t).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// mutate-balance
	if err := s.mutateBalances(tx, t); err != nil {
		return nil, err
	}

	// accrue-commission
	if _, err := s.commissionService.Accrue(tx, t); err != nil {
		return nil, err
	}

	return t, nil
}

// validate checks input and normalizes currency, date and payment method in place.
func (s *transactionService) validate(userID string, input *RecordTransactionInput) error {
	if !input.Amount.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if err := checkScale("amount", input.Amount); err != nil {
		return err
	}

	now := s.now().UTC()
	if input.Date.IsZero() {
		input.Date = now
	}
	input.Date = input.Date.UTC()
	if schedule.AfterDay(input.Date, now) {
		return apperrors.ErrFutureDated
	}

	input.Currency = strings.ToUpper(input.Currency)
	if !validator.ValidCurrency(input.Currency) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "currency must be an ISO 4217 code")
	}

	switch input.Type {
	case models.TransactionTypeIncome, models.TransactionTypeExpense, models.TransactionTypeLoanPayment,
		models.TransactionTypeDebtPayment, models.TransactionTypeCreditPayment:
	case models.TransactionTypeTransfer, models.TransactionTypeATMDeposit, models.TransactionTypeATMWithdraw:
		return apperrors.WithMessage(apperrors.ErrInvalidTransactionType, "transfers and ATM operations are recorded through the transfer endpoints")
	default:
		return apperrors.ErrInvalidTransactionType
	}

	if input.PaymentMethod == "" {
		input.PaymentMethod = models.PaymentMethodOther
		if input.SourceAccountID == CashAccount || input.DestinationAccountID == CashAccount {
			input.PaymentMethod = models.PaymentMethodCash
		}
	}
	if !input.PaymentMethod.Valid() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported payment method")
	}

	if input.FeeAmount != nil {
		if input.FeeAmount.IsNegative() {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "fee amount cannot be negative")
		}
		if err := checkScale("fee amount", *input.FeeAmount); err != nil {
			return err
		}
	}
	if input.ExchangeRate != nil && input.ExchangeRate.IsNegative() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "exchange rate cannot be negative")
	}

	if err := validateInstallments(input.Installments); err != nil {
		return err
	}
	if err := validateTax(input.IsTaxable, input.TaxRate, input.HasWithholding, input.WithholdingRate); err != nil {
		return err
	}

	if input.IsSubscription {
		if input.SubscriptionPeriod == nil || !schedule.ValidPeriod(*input.SubscriptionPeriod) {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "subscriptions need a daily, weekly, monthly, quarterly, biannually or annually period")
		}
	}

	if input.CategoryID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required")
	}
	if _, err := s.categoryService.GetCategoryByID(userID, input.CategoryID); err != nil {
		return err
	}

	if err := s.validateCounterparty(userID, input.CustomerID, input.SupplierID); err != nil {
		return err
	}

	return s.validateRouting(userID, input)
}

func validateInstallments(installments *int) error {
	if installments != nil && (*installments < 1 || *installments > maxInstallments) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("installments must be between 1 and %d", maxInstallments))
	}
	return nil
}

func validateTax(taxable bool, taxRate *decimal.Decimal, withheld bool, withholdingRate *decimal.Decimal) error {
	if withheld && !taxable {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "withholding requires a taxable transaction")
	}
	if taxable {
		if taxRate == nil || !validPercentage(*taxRate) {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "tax rate must be between 0 and 100")
		}
	}
	if withheld {
		if withholdingRate == nil || !validPercentage(*withholdingRate) {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "withholding rate must be between 0 and 100")
		}
	}
	return nil
}

func validPercentage(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(hundred)
}

func (s *transactionService) validateCounterparty(userID string, customerID, supplierID *string) error {
	if customerID != nil && supplierID != nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "a transaction references either a customer or a supplier, not both")
	}

	var model interface{}
	var id string
	switch {
	case customerID != nil:
		model, id = &models.Customer{}, *customerID
	case supplierID != nil:
		model, id = &models.Supplier{}, *supplierID
	default:
		return nil
	}

	var count int64
	if err := s.db.Model(model).Where("id = ? AND user_id = ?", id, userID).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrCounterpartyNotFound
	}
	return nil
}

// validateRouting enforces which account fields each type uses and that every
// routed account is active and held in the transaction currency.
func (s *transactionService) validateRouting(userID string, input *RecordTransactionInput) error {
	src, dst := input.SourceAccountID, input.DestinationAccountID

	switch input.Type {
	case models.TransactionTypeIncome:
		if dst == "" {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "income needs a destination account")
		}
		if src != "" {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "income cannot have a source account")
		}
	case models.TransactionTypeCreditPayment:
		if src == "" || dst == "" {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "credit payments need a source account and a credit card")
		}
		if dst == CashAccount {
			return apperrors.WithMessage(apperrors.ErrInvalidAccountType, "credit payments must be made to a credit card")
		}
	default:
		if src == "" {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("%s needs a source account", input.Type))
		}
		if dst != "" {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("%s cannot have a destination account", input.Type))
		}
	}

	if src != "" && src == dst {
		return apperrors.ErrSameAccountTransfer
	}

	for _, id := range []string{src, dst} {
		if id == "" || id == CashAccount {
			continue
		}
		account, err := s.accountService.GetAccountByID(userID, id)
		if err != nil {
			return err
		}
		if !account.IsActive {
			return apperrors.WithMessage(apperrors.ErrAccountInactive, fmt.Sprintf("account %q is not active", account.Name))
		}
		if account.Currency != input.Currency {
			return apperrors.WithMessage(apperrors.ErrCurrencyMismatch,
				fmt.Sprintf("account %q holds %s, transaction is in %s", account.Name, account.Currency, input.Currency))
		}
		if id == dst && input.Type == models.TransactionTypeCreditPayment && account.Type != models.AccountTypeCreditCard {
			return apperrors.WithMessage(apperrors.ErrInvalidAccountType, "credit payments must be made to a credit card")
		}
	}
	return nil
}

// convert resolves the TRY rate of currency on date: 1 for TRY, the manual
// rate when given, the provider's buying rate otherwise.
func (s *transactionService) convert(ctx context.Context, currency string, date time.Time, manual *decimal.Decimal) (decimal.Decimal, error) {
	if fxrate.IsBase(currency) {
		return decimal.NewFromInt(1), nil
	}
	if manual != nil && manual.IsPositive() {
		return *manual, nil
	}
	return buyingRate(ctx, s.rates, currency, date)
}

// buyingRate looks up the buying rate of currency, mapping provider failures
// to RATE_UNAVAILABLE.
func buyingRate(ctx context.Context, rates fxrate.Provider, currency string, date time.Time) (decimal.Decimal, error) {
	rate, err := fxrate.Lookup(ctx, rates, currency, date)
	if err != nil {
		logger.Get().Warnw("exchange rate unavailable", "currency", currency, "date", fxrate.DayKey(date), "error", err)
		return decimal.Zero, apperrors.Wrap(apperrors.WithMessage(apperrors.ErrRateUnavailable,
			fmt.Sprintf("no %s rate for %s; supply an exchange rate manually", currency, fxrate.DayKey(date))), err)
	}
	return rate.Buying, nil
}

// derive builds the transaction with its TRY equivalent, tax, installment and
// schedule fields.
func (s *transactionService) derive(userID string, input RecordTransactionInput, rate decimal.Decimal) (*models.Transaction, error) {
	t := &models.Transaction{
		UserID:         userID,
		CategoryID:     input.CategoryID,
		CustomerID:     input.CustomerID,
		SupplierID:     input.SupplierID,
		Type:           input.Type,
		Amount:         input.Amount,
		Currency:       input.Currency,
		ExchangeRate:   rate,
		FeeAmount:      input.FeeAmount,
		Date:           input.Date,
		PaymentMethod:  input.PaymentMethod,
		Description:    input.Description,
		Status:         models.TransactionStatusCompleted,
		IsTaxable:      input.IsTaxable,
		HasWithholding: input.HasWithholding,
		ReferenceID:    input.ReferenceID,
	}
	if id := input.SourceAccountID; id != "" && id != CashAccount {
		t.SourceAccountID = &id
	}
	if id := input.DestinationAccountID; id != "" && id != CashAccount {
		t.DestinationAccountID = &id
	}
	if input.IsTaxable {
		t.TaxRate = input.TaxRate
	}
	if input.HasWithholding {
		t.WithholdingRate = input.WithholdingRate
	}
	if input.Installments != nil {
		n := *input.Installments
		t.Installments = &n
	}

	derivePricing(t)

	if input.IsSubscription {
		period := *input.SubscriptionPeriod
		t.IsSubscription = true
		t.SubscriptionPeriod = &period
		if input.NextPaymentDate != nil {
			next := input.NextPaymentDate.UTC()
			t.NextPaymentDate = &next
		} else {
			next, err := schedule.Next(t.Date, period)
			if err != nil {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
			}
			t.NextPaymentDate = &next
		}
	}

	return t, nil
}

// derivePricing fills the fields computed from amount, rate, tax settings and
// installments. Remaining installments reset to the installment count.
func derivePricing(t *models.Transaction) {
	t.TryEquivalent = fxrate.ToTRY(t.Amount, t.ExchangeRate)

	t.TaxAmount, t.WithholdingAmount = nil, nil
	if t.IsTaxable && t.TaxRate != nil {
		// tax included in the amount: amount - amount/(1+rate/100)
		net := t.Amount.DivRound(decimal.NewFromInt(1).Add(t.TaxRate.Div(hundred)), 8)
		tax := t.Amount.Sub(net).Round(fxrate.MoneyPlaces)
		t.TaxAmount = &tax
	} else {
		t.TaxRate = nil
	}
	if t.IsTaxable && t.HasWithholding && t.WithholdingRate != nil {
		w := t.Amount.Mul(*t.WithholdingRate).Div(hundred).Round(fxrate.MoneyPlaces)
		t.WithholdingAmount = &w
	} else {
		t.HasWithholding = false
		t.WithholdingRate = nil
	}

	t.MonthlyAmount, t.RemainingInstallments = nil, nil
	if t.Installments != nil {
		n := *t.Installments
		t.RemainingInstallments = &n
		if n > 1 {
			monthly := t.Amount.DivRound(decimal.NewFromInt(int64(n)), fxrate.MoneyPlaces)
			t.MonthlyAmount = &monthly
		}
	}
}

// resolveCash routes cash sentinels to the owner's cash account in the
// transaction currency, creating it on first use.
func (s *transactionService) resolveCash(tx *gorm.DB, prepared *PreparedTransaction) error {
	t := prepared.Transaction
	if !prepared.sourceCash && !prepared.destinationCash {
		return nil
	}
	cash, err := s.accountService.EnsureCashAccount(tx, t.UserID, t.Currency)
	if err != nil {
		return err
	}
	if prepared.sourceCash {
		t.SourceAccountID = &cash.ID
	}
	if prepared.destinationCash {
		t.DestinationAccountID = &cash.ID
	}
	return nil
}

// mutateBalances debits the source and credits the destination of t under row locks.
func (s *transactionService) mutateBalances(tx *gorm.DB, t *models.Transaction) error {
	var ids []string
	if t.SourceAccountID != nil {
		ids = append(ids, *t.SourceAccountID)
	}
	if t.DestinationAccountID != nil {
		ids = append(ids, *t.DestinationAccountID)
	}

	locked, err := s.accountService.LockAccounts(tx, t.UserID, ids...)
	if err != nil {
		return err
	}

	if t.SourceAccountID != nil {
		if err := s.accountService.ApplyBalanceDelta(tx, locked[*t.SourceAccountID], t.Amount.Neg()); err != nil {
			return err
		}
	}
	if t.DestinationAccountID != nil {
		if err := s.accountService.ApplyBalanceDelta(tx, locked[*t.DestinationAccountID], t.Amount); err != nil {
			return err
		}
	}
	return nil
}

// UpdateTransaction amends an editable transaction and re-derives its computed
// fields. Account balances are left as they were when it was recorded.
func (s *transactionService) UpdateTransaction(ctx context.Context, userID, transactionID string, input UpdateTransactionInput) (*models.Transaction, error) {
	t, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}
	if t.Type.Immutable() {
		return nil, apperrors.WithMessage(apperrors.ErrTransactionNotEditable,
			fmt.Sprintf("%s transactions cannot be edited", t.Type))
	}
	t.Category = nil

	if input.CategoryID != nil && *input.CategoryID != t.CategoryID {
		if _, err := s.categoryService.GetCategoryByID(userID, *input.CategoryID); err != nil {
			return nil, err
		}
		t.CategoryID = *input.CategoryID
	}
	if input.Amount != nil {
		if !input.Amount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
		}
		if err := checkScale("amount", *input.Amount); err != nil {
			return nil, err
		}
		t.Amount = *input.Amount
	}
	if input.FeeAmount != nil {
		if input.FeeAmount.IsNegative() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "fee amount cannot be negative")
		}
		if err := checkScale("fee amount", *input.FeeAmount); err != nil {
			return nil, err
		}
		t.FeeAmount = input.FeeAmount
	}
	if input.PaymentMethod != nil {
		if !input.PaymentMethod.Valid() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported payment method")
		}
		t.PaymentMethod = *input.PaymentMethod
	}
	if input.Description != nil {
		t.Description = *input.Description
	}

	dateChanged := false
	if input.Date != nil {
		date := input.Date.UTC()
		if schedule.AfterDay(date, s.now().UTC()) {
			return nil, apperrors.ErrFutureDated
		}
		dateChanged = !fxrate.Day(date).Equal(fxrate.Day(t.Date))
		t.Date = date
	}

	if input.Installments != nil {
		if err := validateInstallments(input.Installments); err != nil {
			return nil, err
		}
		n := *input.Installments
		t.Installments = &n
	}

	if input.IsTaxable != nil {
		t.IsTaxable = *input.IsTaxable
	}
	if input.TaxRate != nil {
		t.TaxRate = input.TaxRate
	}
	if input.HasWithholding != nil {
		t.HasWithholding = *input.HasWithholding
	} else if !t.IsTaxable {
		t.HasWithholding = false
	}
	if input.WithholdingRate != nil {
		t.WithholdingRate = input.WithholdingRate
	}
	if err := validateTax(t.IsTaxable, t.TaxRate, t.HasWithholding, t.WithholdingRate); err != nil {
		return nil, err
	}

	if input.ExchangeRate != nil && input.ExchangeRate.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "exchange rate cannot be negative")
	}
	switch {
	case input.ExchangeRate != nil && input.ExchangeRate.IsPositive():
		if !fxrate.IsBase(t.Currency) {
			t.ExchangeRate = *input.ExchangeRate
		}
	case dateChanged:
		rate, err := s.convert(ctx, t.Currency, t.Date, nil)
		if err != nil {
			return nil, err
		}
		t.ExchangeRate = rate
	}

	remaining := t.RemainingInstallments
	derivePricing(t)
	if input.Installments == nil && remaining != nil && t.RemainingInstallments != nil && *remaining < *t.RemainingInstallments {
		t.RemainingInstallments = remaining
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Category", "SourceAccount", "DestinationAccount").Save(t).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.commissionService.Recompute(tx, t)
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("transaction updated",
		"user_id", userID,
		"transaction_id", t.ID,
		"amount", t.Amount.String(),
		"try_equivalent", t.TryEquivalent.String(),
	)
	return t, nil
}

// DeleteTransaction soft-deletes a transaction, then deletes its commission.
// Counter-entried types are refused.
func (s *transactionService) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	t, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}
	if t.Type.Immutable() {
		return apperrors.WithMessage(apperrors.ErrTransactionNotDeletable,
			fmt.Sprintf("%s transactions are one side of a paired or reconciled movement and cannot be deleted", t.Type))
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Transaction{}, "id = ?", t.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.commissionService.DeleteForTransaction(tx, t.ID)
	})
	if err != nil {
		return err
	}

	logger.Get().Infow("transaction deleted", "user_id", userID, "transaction_id", transactionID, "type", t.Type)
	return nil
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Preload("Category").Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// GetUserTransactions retrieves a paginated, filtered list of a user's transactions, newest first.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := applyTransactionFilters(s.db.Model(&models.Transaction{}).Where("user_id = ?", userID), filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Preload("Category").
		Order("date DESC").
		Order("created_at DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", f.FromDate.UTC())
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", f.ToDate.UTC())
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.AccountID != nil {
		q = q.Where("(source_account_id = ? OR destination_account_id = ?)", *f.AccountID, *f.AccountID)
	}
	if f.IsSubscription != nil {
		q = q.Where("is_subscription = ?", *f.IsSubscription)
	}
	return q
}
