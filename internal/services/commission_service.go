package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "kasa/internal/errors"
	"kasa/internal/events"
	"kasa/internal/logger"
	"kasa/internal/models"
	"kasa/internal/pagination"
)

var hundred = decimal.NewFromInt(100)

// commissionService accrues commission on income and tracks payouts against it.
type commissionService struct {
	db                 *gorm.DB
	publisher          events.Publisher
	enforcePayoutLimit bool
	now                func() time.Time
}

// NewCommissionService creates a new CommissionServicer. With enforcePayoutLimit
// a payout larger than the pending commission of its period is rejected;
// otherwise it is recorded and logged as a warning.
func NewCommissionService(db *gorm.DB, publisher events.Publisher, enforcePayoutLimit bool) CommissionServicer {
	return &commissionService{
		db:                 db,
		publisher:          publisher,
		enforcePayoutLimit: enforcePayoutLimit,
		now:                time.Now,
	}
}

func commissionAmount(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred).Round(2)
}

// Accrue creates the commission of an income transaction when its owner is
// commission-eligible. It returns nil without error when nothing accrues.
func (s *commissionService) Accrue(tx *gorm.DB, transaction *models.Transaction) (*models.Commission, error) {
	if transaction.Type != models.TransactionTypeIncome {
		return nil, nil
	}

	var owner models.User
	if err := tx.Where("id = ?", transaction.UserID).First(&owner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !owner.CommissionEligible() {
		return nil, nil
	}

	commission := &models.Commission{
		UserID:           owner.ID,
		TransactionID:    transaction.ID,
		CommissionRate:   owner.CommissionRate,
		CommissionAmount: commissionAmount(transaction.Amount, owner.CommissionRate),
		TransactionDate:  transaction.Date,
	}
	if err := tx.Create(commission).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	logger.Get().Infow("commission accrued",
		"user_id", owner.ID,
		"transaction_id", transaction.ID,
		"rate", owner.CommissionRate.String(),
		"amount", commission.CommissionAmount.String(),
	)
	return commission, nil
}

// Recompute refreshes the commission of an amended transaction with the rate
// stored at accrual time. Transactions without commission are left alone.
func (s *commissionService) Recompute(tx *gorm.DB, transaction *models.Transaction) error {
	var commission models.Commission
	err := tx.Where("transaction_id = ?", transaction.ID).First(&commission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	updates := map[string]interface{}{
		"commission_amount": commissionAmount(transaction.Amount, commission.CommissionRate),
		"transaction_date":  transaction.Date,
	}
	if err := tx.Model(&commission).Updates(updates).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// DeleteForTransaction removes the commission accrued on a transaction, if any.
func (s *commissionService) DeleteForTransaction(tx *gorm.DB, transactionID string) error {
	if err := tx.Where("transaction_id = ?", transactionID).Delete(&models.Commission{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// RecordPayout records money paid to userID against accrued commission.
func (s *commissionService) RecordPayout(ctx context.Context, userID string, input RecordPayoutInput) (*models.CommissionPayout, error) {
	if !input.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "payout amount must be greater than zero")
	}
	if err := checkScale("payout amount", input.Amount); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	paymentDate := input.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = now
	}
	paymentDate = paymentDate.UTC()
	if paymentDate.After(now) {
		return nil, apperrors.ErrFutureDated
	}
	if input.PeriodStart != nil && input.PeriodEnd != nil && input.PeriodEnd.Before(*input.PeriodStart) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period end must not be before period start")
	}

	payout := &models.CommissionPayout{
		UserID:      userID,
		Amount:      input.Amount,
		PaymentDate: paymentDate,
		PeriodStart: utcPtr(input.PeriodStart),
		PeriodEnd:   utcPtr(input.PeriodEnd),
		Notes:       input.Notes,
	}
	period := CommissionPeriod{From: payout.PeriodStart, To: payout.PeriodEnd}

	var pending decimal.Decimal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serializes payouts of one owner so the pending check sees every earlier payout.
		var owner models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", userID).First(&owner).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrUserNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		summary, err := s.summaryWithDB(tx, userID, period)
		if err != nil {
			return err
		}
		pending = summary.Pending

		if input.Amount.GreaterThan(pending) && s.enforcePayoutLimit {
			return apperrors.WithMessage(apperrors.ErrPayoutExceedsPending,
				fmt.Sprintf("payout of %s exceeds pending commission of %s", input.Amount.StringFixed(2), pending.StringFixed(2)))
		}

		if err := tx.Create(payout).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := logger.Get()
	if input.Amount.GreaterThan(pending) {
		log.Warnw("commission payout exceeds pending amount",
			"user_id", userID,
			"payout_id", payout.ID,
			"amount", input.Amount.String(),
			"pending", pending.String(),
		)
	}
	log.Infow("commission payout recorded", "user_id", userID, "payout_id", payout.ID, "amount", input.Amount.String())

	if err := s.publisher.Publish(ctx, events.New(events.CommissionPayout, userID, map[string]any{
		"payout_id":    payout.ID,
		"amount":       payout.Amount.StringFixed(2),
		"payment_date": payout.PaymentDate,
		"pending":      pending.Sub(payout.Amount).StringFixed(2),
	})); err != nil {
		log.Errorw("failed to publish payout event", "error", err, "payout_id", payout.ID)
	}

	return payout, nil
}

// Summary returns accrued, paid and pending commission of userID within period.
// Pending is negative when more was paid out than accrued.
func (s *commissionService) Summary(ctx context.Context, userID string, period CommissionPeriod) (*CommissionSummary, error) {
	return s.summaryWithDB(s.db.WithContext(ctx), userID, period)
}

func (s *commissionService) summaryWithDB(db *gorm.DB, userID string, period CommissionPeriod) (*CommissionSummary, error) {
	var accrued []decimal.Decimal
	q := applyPeriod(db.Model(&models.Commission{}).Where("user_id = ?", userID), "transaction_date", period)
	if err := q.Pluck("commission_amount", &accrued).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var paid []decimal.Decimal
	q = applyPeriod(db.Model(&models.CommissionPayout{}).Where("user_id = ?", userID), "payment_date", period)
	if err := q.Pluck("amount", &paid).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summary := &CommissionSummary{
		UserID:          userID,
		TotalCommission: decimal.Sum(decimal.Zero, accrued...),
		TotalPaid:       decimal.Sum(decimal.Zero, paid...),
		Count:           int64(len(accrued)),
	}
	summary.Pending = summary.TotalCommission.Sub(summary.TotalPaid)
	return summary, nil
}

// GetUserCommissions retrieves a paginated list of commissions earned by userID.
func (s *commissionService) GetUserCommissions(userID string, period CommissionPeriod, page pagination.PageRequest) (*pagination.PageResponse[models.Commission], error) {
	page.Defaults()

	base := applyPeriod(s.db.Model(&models.Commission{}).Where("user_id = ?", userID), "transaction_date", period)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var commissions []models.Commission
	if err := base.Scopes(pagination.Paginate(page)).
		Preload("Transaction").
		Order("transaction_date DESC").
		Find(&commissions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(commissions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyPeriod(q *gorm.DB, column string, period CommissionPeriod) *gorm.DB {
	if period.From != nil {
		q = q.Where(column+" >= ?", period.From.UTC())
	}
	if period.To != nil {
		q = q.Where(column+" <= ?", period.To.UTC())
	}
	return q
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
