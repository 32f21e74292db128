package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "kasa/internal/errors"
	"kasa/internal/events"
	"kasa/internal/fxrate"
	"kasa/internal/logger"
	"kasa/internal/models"
	"kasa/internal/schedule"
)

// transferService moves money between two accounts of one owner as a pair of
// linked ledger legs.
type transferService struct {
	db              *gorm.DB
	accountService  AccountServicer
	categoryService CategoryServicer
	rates           fxrate.Provider
	publisher       events.Publisher
	now             func() time.Time
}

// NewTransferService creates a new TransferServicer.
func NewTransferService(
	db *gorm.DB,
	accountService AccountServicer,
	categoryService CategoryServicer,
	rates fxrate.Provider,
	publisher events.Publisher,
) TransferServicer {
	return &transferService{
		db:              db,
		accountService:  accountService,
		categoryService: categoryService,
		rates:           rates,
		publisher:       publisher,
		now:             time.Now,
	}
}

// legPlan is everything needed to write both legs once rates are resolved.
// An empty account ID with its cash flag set selects the owner's cash account.
type legPlan struct {
	legType        models.TransactionType
	paymentMethod  models.PaymentMethod
	sourceID       string
	targetID       string
	sourceCash     bool
	targetCash     bool
	sourceCurrency string
	targetCurrency string
	sourceAmount   decimal.Decimal
	targetAmount   decimal.Decimal
	sourceTRYRate  decimal.Decimal
	targetTRYRate  decimal.Decimal
	effectiveRate  decimal.Decimal
	date           time.Time
	description    string
}

// Transfer debits Amount from the source account and credits the converted
// amount to the target account in one unit of work.
func (s *transferService) Transfer(ctx context.Context, userID string, input TransferInput) (*TransferResult, error) {
	result, err := s.transfer(ctx, userID, input)
	if err != nil {
		s.failed(ctx, userID, models.TransactionTypeTransfer, input.SourceAccountID, input.TargetAccountID, input.Amount, err)
		return nil, err
	}
	s.completed(ctx, userID, result)
	return result, nil
}

func (s *transferService) transfer(ctx context.Context, userID string, input TransferInput) (*TransferResult, error) {
	if !input.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if err := checkScale("amount", input.Amount); err != nil {
		return nil, err
	}
	if input.SourceAccountID == "" || input.TargetAccountID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "source and target accounts are required")
	}
	if input.SourceAccountID == input.TargetAccountID {
		return nil, apperrors.ErrSameAccountTransfer
	}
	if input.TargetAmount != nil && input.ExchangeRate != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "give either a target amount or an exchange rate, not both")
	}
	if input.TargetAmount != nil {
		if !input.TargetAmount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount must be greater than zero")
		}
		if err := checkScale("target amount", *input.TargetAmount); err != nil {
			return nil, err
		}
	}
	if input.ExchangeRate != nil && !input.ExchangeRate.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "exchange rate must be greater than zero")
	}
	date, err := s.transactionDate(input.Date)
	if err != nil {
		return nil, err
	}

	source, err := s.activeAccount(userID, input.SourceAccountID)
	if err != nil {
		return nil, err
	}
	target, err := s.activeAccount(userID, input.TargetAccountID)
	if err != nil {
		return nil, err
	}

	plan := legPlan{
		legType:        models.TransactionTypeTransfer,
		paymentMethod:  models.PaymentMethodBankTransfer,
		sourceID:       source.ID,
		targetID:       target.ID,
		sourceCurrency: source.Currency,
		targetCurrency: target.Currency,
		sourceAmount:   input.Amount,
		date:           date,
		description:    input.Description,
	}
	if plan.description == "" {
		plan.description = fmt.Sprintf("Transfer from %s to %s", source.Name, target.Name)
	}

	if err := s.resolveRates(ctx, &plan, input.TargetAmount, input.ExchangeRate); err != nil {
		return nil, err
	}

	return s.execute(ctx, userID, plan)
}

// resolveRates fills the target amount, the effective cross rate and the TRY
// rate of each leg.
func (s *transferService) resolveRates(ctx context.Context, plan *legPlan, targetAmount, rateOverride *decimal.Decimal) error {
	srcRate, srcErr := fxrate.Lookup(ctx, s.rates, plan.sourceCurrency, plan.date)
	dstRate, dstErr := fxrate.Lookup(ctx, s.rates, plan.targetCurrency, plan.date)

	overridden := false
	switch {
	case plan.sourceCurrency == plan.targetCurrency:
		plan.effectiveRate = decimal.NewFromInt(1)
		plan.targetAmount = plan.sourceAmount
	case targetAmount != nil:
		overridden = true
		plan.targetAmount = *targetAmount
		plan.effectiveRate = targetAmount.DivRound(plan.sourceAmount, 6)
	case rateOverride != nil:
		overridden = true
		plan.effectiveRate = *rateOverride
		plan.targetAmount = plan.sourceAmount.Mul(*rateOverride).Round(fxrate.MoneyPlaces)
	default:
		if err := errors.Join(srcErr, dstErr); err != nil {
			return rateUnavailable(plan.sourceCurrency, plan.targetCurrency, plan.date, err)
		}
		plan.effectiveRate = fxrate.CrossRate(srcRate, dstRate)
		plan.targetAmount = plan.sourceAmount.Mul(plan.effectiveRate).Round(fxrate.MoneyPlaces)
	}
	if !plan.targetAmount.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "converted amount rounds to zero")
	}

	// A manual rate against TRY also prices the foreign leg when the provider has nothing.
	switch {
	case srcErr == nil:
		plan.sourceTRYRate = srcRate.Buying
	case overridden && fxrate.IsBase(plan.targetCurrency):
		plan.sourceTRYRate = plan.effectiveRate
	default:
		return rateUnavailable(plan.sourceCurrency, plan.targetCurrency, plan.date, srcErr)
	}
	switch {
	case dstErr == nil:
		plan.targetTRYRate = dstRate.Buying
	case overridden && fxrate.IsBase(plan.sourceCurrency):
		plan.targetTRYRate = plan.sourceAmount.DivRound(plan.targetAmount, 6)
	default:
		return rateUnavailable(plan.sourceCurrency, plan.targetCurrency, plan.date, dstErr)
	}
	return nil
}

func rateUnavailable(source, target string, date time.Time, err error) error {
	logger.Get().Warnw("transfer rate unavailable", "source_currency", source, "target_currency", target, "date", fxrate.DayKey(date), "error", err)
	return apperrors.Wrap(apperrors.WithMessage(apperrors.ErrRateUnavailable,
		fmt.Sprintf("no %s/%s rate for %s; supply a target amount or exchange rate manually", source, target, fxrate.DayKey(date))), err)
}

// ATM withdraws cash from a bank account into the owner's cash account, or
// deposits cash into a bank account.
func (s *transferService) ATM(ctx context.Context, userID string, input ATMInput) (*TransferResult, error) {
	result, err := s.atm(ctx, userID, input)
	if err != nil {
		s.failed(ctx, userID, input.Type, input.BankAccountID, CashAccount, input.Amount, err)
		return nil, err
	}
	s.completed(ctx, userID, result)
	return result, nil
}

func (s *transferService) atm(ctx context.Context, userID string, input ATMInput) (*TransferResult, error) {
	if input.Type != models.TransactionTypeATMWithdraw && input.Type != models.TransactionTypeATMDeposit {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidTransactionType, "ATM operations are atm_withdraw or atm_deposit")
	}
	if !input.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if err := checkScale("amount", input.Amount); err != nil {
		return nil, err
	}
	date, err := s.transactionDate(input.Date)
	if err != nil {
		return nil, err
	}

	bank, err := s.activeAccount(userID, input.BankAccountID)
	if err != nil {
		return nil, err
	}
	if bank.Type != models.AccountTypeBank {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidAccountType, "ATM operations need a bank account")
	}

	rate, err := buyingRate(ctx, s.rates, bank.Currency, date)
	if err != nil {
		return nil, err
	}

	plan := legPlan{
		legType:        input.Type,
		paymentMethod:  models.PaymentMethodCash,
		sourceCurrency: bank.Currency,
		targetCurrency: bank.Currency,
		sourceAmount:   input.Amount,
		targetAmount:   input.Amount,
		sourceTRYRate:  rate,
		targetTRYRate:  rate,
		effectiveRate:  decimal.NewFromInt(1),
		date:           date,
		description:    input.Description,
	}
	if input.Type == models.TransactionTypeATMWithdraw {
		plan.sourceID, plan.targetCash = bank.ID, true
	} else {
		plan.sourceCash, plan.targetID = true, bank.ID
	}
	if plan.description == "" {
		verb := "withdrawal from"
		if input.Type == models.TransactionTypeATMDeposit {
			verb = "deposit to"
		}
		plan.description = fmt.Sprintf("ATM %s %s", verb, bank.Name)
	}

	return s.execute(ctx, userID, plan)
}

// execute writes both legs and both balance changes in one database
// transaction; any failure rolls every step back.
func (s *transferService) execute(ctx context.Context, userID string, plan legPlan) (*TransferResult, error) {
	var result *TransferResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category, err := s.categoryService.EnsureTransferCategory(tx, userID)
		if err != nil {
			return err
		}

		if plan.sourceCash || plan.targetCash {
			cash, err := s.accountService.EnsureCashAccount(tx, userID, plan.sourceCurrency)
			if err != nil {
				return err
			}
			if plan.sourceCash {
				plan.sourceID = cash.ID
			} else {
				plan.targetID = cash.ID
			}
		}

		locked, err := s.accountService.LockAccounts(tx, userID, plan.sourceID, plan.targetID)
		if err != nil {
			return err
		}
		source, target := locked[plan.sourceID], locked[plan.targetID]

		outbound := s.leg(userID, category.ID, plan, plan.sourceAmount.Neg(), plan.sourceCurrency, plan.sourceTRYRate)
		outbound.SourceAccountID = &source.ID
		if err := tx.Create(outbound).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.accountService.ApplyBalanceDelta(tx, source, plan.sourceAmount.Neg()); err != nil {
			return err
		}

		inbound := s.leg(userID, category.ID, plan, plan.targetAmount, plan.targetCurrency, plan.targetTRYRate)
		inbound.DestinationAccountID = &target.ID
		inbound.ReferenceID = &outbound.ID
		if err := tx.Create(inbound).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.accountService.ApplyBalanceDelta(tx, target, plan.targetAmount); err != nil {
			return err
		}

		if err := tx.Model(outbound).Update("reference_id", inbound.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		outbound.ReferenceID = &inbound.ID

		result = &TransferResult{
			SourceTransaction: outbound,
			TargetTransaction: inbound,
			SourceCurrency:    plan.sourceCurrency,
			TargetCurrency:    plan.targetCurrency,
			SourceAmount:      plan.sourceAmount,
			TargetAmount:      plan.targetAmount,
			EffectiveRate:     plan.effectiveRate,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *transferService) leg(userID, categoryID string, plan legPlan, amount decimal.Decimal, currency string, tryRate decimal.Decimal) *models.Transaction {
	return &models.Transaction{
		UserID:        userID,
		CategoryID:    categoryID,
		Type:          plan.legType,
		Amount:        amount,
		Currency:      currency,
		ExchangeRate:  tryRate,
		TryEquivalent: fxrate.ToTRY(amount, tryRate),
		Date:          plan.date,
		PaymentMethod: plan.paymentMethod,
		Description:   plan.description,
		Status:        models.TransactionStatusCompleted,
	}
}

func (s *transferService) transactionDate(date time.Time) (time.Time, error) {
	now := s.now().UTC()
	if date.IsZero() {
		return now, nil
	}
	date = date.UTC()
	if schedule.AfterDay(date, now) {
		return time.Time{}, apperrors.ErrFutureDated
	}
	return date, nil
}

func (s *transferService) activeAccount(userID, accountID string) (*models.Account, error) {
	account, err := s.accountService.GetAccountByID(userID, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, apperrors.WithMessage(apperrors.ErrAccountInactive, fmt.Sprintf("account %q is not active", account.Name))
	}
	return account, nil
}

func (s *transferService) completed(ctx context.Context, userID string, r *TransferResult) {
	log := logger.Get()
	log.Infow("transfer completed",
		"user_id", userID,
		"type", r.SourceTransaction.Type,
		"source_transaction_id", r.SourceTransaction.ID,
		"target_transaction_id", r.TargetTransaction.ID,
		"source_amount", r.SourceAmount.String(),
		"source_currency", r.SourceCurrency,
		"target_amount", r.TargetAmount.String(),
		"target_currency", r.TargetCurrency,
		"effective_rate", r.EffectiveRate.String(),
	)

	if err := s.publisher.Publish(ctx, events.New(events.TransferCompleted, userID, map[string]any{
		"type":                  r.SourceTransaction.Type,
		"source_transaction_id": r.SourceTransaction.ID,
		"target_transaction_id": r.TargetTransaction.ID,
		"source_amount":         r.SourceAmount.String(),
		"source_currency":       r.SourceCurrency,
		"target_amount":         r.TargetAmount.String(),
		"target_currency":       r.TargetCurrency,
		"effective_rate":        r.EffectiveRate.String(),
	})); err != nil {
		log.Errorw("failed to publish transfer event", "error", err, "source_transaction_id", r.SourceTransaction.ID)
	}
}

func (s *transferService) failed(ctx context.Context, userID string, kind models.TransactionType, sourceID, targetID string, amount decimal.Decimal, cause error) {
	reason := apperrors.ErrInternalServer.Code
	var appErr *apperrors.AppError
	if errors.As(cause, &appErr) {
		reason = appErr.Code
	}

	log := logger.Get()
	log.Infow("transfer failed",
		"user_id", userID,
		"type", kind,
		"source_account_id", sourceID,
		"target_account_id", targetID,
		"amount", amount.String(),
		"reason", reason,
		"error", cause,
	)

	if err := s.publisher.Publish(ctx, events.New(events.TransferFailed, userID, map[string]any{
		"type":              kind,
		"source_account_id": sourceID,
		"target_account_id": targetID,
		"amount":            amount.String(),
		"reason":            reason,
		"message":           cause.Error(),
	})); err != nil {
		log.Errorw("failed to publish transfer event", "error", err)
	}
}
