package services

import (
	"context"
	"testing"
	"time"

	"kasa/internal/events"
	"kasa/internal/models"
	"kasa/internal/pagination"
	"kasa/internal/testutil"
)

// recordIncome records a TRY income of amount on date for user.
func recordIncome(t *testing.T, l *ledger, userID, categoryID, accountID, amount string, date time.Time) *models.Transaction {
	t.Helper()

	tx, err := l.transactions.RecordTransaction(context.Background(), userID, RecordTransactionInput{
		CategoryID:           categoryID,
		Type:                 models.TransactionTypeIncome,
		Amount:               dec(amount),
		Currency:             "TRY",
		Date:                 date,
		DestinationAccountID: accountID,
	})
	testutil.AssertNoError(t, err)
	return tx
}

func TestCommissionAccrual(t *testing.T) {
	tests := []struct {
		rate   string
		amount string
		want   string
	}{
		{"10", "1000", "100"},
		{"10", "333.33", "33.33"},
		{"2.5", "199.99", "5"},
		{"12.75", "80", "10.2"},
	}

	for _, tt := range tests {
		t.Run(tt.rate+"%_of_"+tt.amount, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			defer testutil.TeardownTestDB(t, db)
			l := newLedger(t, db, testRates(), false)
			user := testutil.CreateTestUserWithCommission(t, db, tt.rate)
			cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeIncome)
			account := testutil.CreateTestBankAccount(t, db, user.ID, "TRY", "0")

			tx := recordIncome(t, l, user.ID, cat.ID, account.ID, tt.amount, testNow)

			var commission models.Commission
			testutil.AssertNoError(t, db.Where("transaction_id = ?", tx.ID).First(&commission).Error)
			testutil.AssertDecimal(t, "commission_amount", commission.CommissionAmount, tt.want)
			if !commission.TransactionDate.Equal(tx.Date) {
				t.Errorf("expected transaction date %v, got %v", tx.Date, commission.TransactionDate)
			}
		})
	}
}

func TestRecordPayout(t *testing.T) {
	ctx := context.Background()

	t.Run("over_pending_warns_by_default", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(t, db, testRates(), false)
		user := testutil.CreateTestUserWithCommission(t, db, "10")
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeIncome)
		account := testutil.CreateTestBankAccount(t, db, user.ID, "TRY", "0")
		recordIncome(t, l, user.ID, cat.ID, account.ID, "1000", testNow)

		payout, err := l.commissions.RecordPayout(ctx, user.ID, RecordPayoutInput{Amount: dec("150"), Notes: "advance"})
		testutil.AssertNoError(t, err)

		if !payout.PaymentDate.Equal(testNow) {
			t.Errorf("expected payment date to default to now, got %v", payout.PaymentDate)
		}

		summary, err := l.commissions.Summary(ctx, user.ID, CommissionPeriod{})
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "total_commission", summary.TotalCommission, "100")
		testutil.AssertDecimal(t, "total_paid", summary.TotalPaid, "150")
		testutil.AssertDecimal(t, "pending", summary.Pending, "-50")

		e := l.published.last()
		if e.Key != events.CommissionPayout || e.Payload["pending"] != "-50.00" {
			t.Errorf("expected commission.payout with pending -50.00, got %s %v", e.Key, e.Payload)
		}
	})

	t.Run("over_pending_rejected_when_enforced", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(t, db, testRates(), true)
		user := testutil.CreateTestUserWithCommission(t, db, "10")
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeIncome)
		account := testutil.CreateTestBankAccount(t, db, user.ID, "TRY", "0")
		recordIncome(t, l, user.ID, cat.ID, account.ID, "1000", testNow)

		_, err := l.commissions.RecordPayout(ctx, user.ID, RecordPayoutInput{Amount: dec("100.01")})
		testutil.AssertAppError(t, err, "PAYOUT_EXCEEDS_PENDING")
		if n := testutil.CountRows(t, db, &models.CommissionPayout{}); n != 0 {
			t.Errorf("expected no payout, got %d", n)
		}

		_, err = l.commissions.RecordPayout(ctx, user.ID, RecordPayoutInput{Amount: dec("60")})
		testutil.AssertNoError(t, err)
		_, err = l.commissions.RecordPayout(ctx, user.ID, RecordPayoutInput{Amount: dec("40.01")})
		testutil.AssertAppError(t, err, "PAYOUT_EXCEEDS_PENDING")
		_, err = l.commissions.RecordPayout(ctx, user.ID, RecordPayoutInput{Amount: dec("40")})
		testutil.AssertNoError(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(t, db, testRates(), false)
		user := testutil.CreateTestUserWithCommission(t, db, "10")

		start, end := day(2024, 2, 1), day(2024, 1, 1)
		tests := []struct {
			name  string
			input RecordPayoutInput
			code  string
		}{
			{"zero_amount", RecordPayoutInput{Amount: dec("0")}, "INVALID_INPUT"},
			{"future_date", RecordPayoutInput{Amount: dec("1"), PaymentDate: testNow.Add(time.Hour)}, "FUTURE_DATED"},
			{"inverted_period", RecordPayoutInput{Amount: dec("1"), PeriodStart: &start, PeriodEnd: &end}, "INVALID_INPUT"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := l.commissions.RecordPayout(ctx, user.ID, tt.input)
				testutil.AssertAppError(t, err, tt.code)
			})
		}

		_, err := l.commissions.RecordPayout(ctx, "00000000-0000-0000-0000-000000000000", RecordPayoutInput{Amount: dec("1")})
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func TestCommissionSummary_Period(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	l := newLedger(t, db, testRates(), false)
	user := testutil.CreateTestUserWithCommission(t, db, "10")
	cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeIncome)
	account := testutil.CreateTestBankAccount(t, db, user.ID, "TRY", "0")

	recordIncome(t, l, user.ID, cat.ID, account.ID, "1000", day(2024, 1, 10))
	recordIncome(t, l, user.ID, cat.ID, account.ID, "500", day(2024, 2, 10))
	recordIncome(t, l, user.ID, cat.ID, account.ID, "200", day(2024, 2, 20))

	_, err := l.commissions.RecordPayout(ctx, user.ID, RecordPayoutInput{Amount: dec("30"), PaymentDate: day(2024, 2, 25)})
	testutil.AssertNoError(t, err)
	_, err = l.commissions.RecordPayout(ctx, user.ID, RecordPayoutInput{Amount: dec("100"), PaymentDate: day(2024, 1, 31)})
	testutil.AssertNoError(t, err)

	from, to := day(2024, 2, 1), day(2024, 2, 29)
	february, err := l.commissions.Summary(ctx, user.ID, CommissionPeriod{From: &from, To: &to})
	testutil.AssertNoError(t, err)

	testutil.AssertDecimal(t, "total_commission", february.TotalCommission, "70")
	testutil.AssertDecimal(t, "total_paid", february.TotalPaid, "30")
	testutil.AssertDecimal(t, "pending", february.Pending, "40")
	if february.Count != 2 {
		t.Errorf("expected 2 commissions in February, got %d", february.Count)
	}

	all, err := l.commissions.Summary(ctx, user.ID, CommissionPeriod{})
	testutil.AssertNoError(t, err)
	testutil.AssertDecimal(t, "pending", all.Pending, "40")

	page, err := l.commissions.GetUserCommissions(user.ID, CommissionPeriod{From: &from, To: &to}, pagination.PageRequest{Page: 1, PageSize: 1})
	testutil.AssertNoError(t, err)
	if page.TotalItems != 2 || page.TotalPages != 2 || len(page.Data) != 1 {
		t.Errorf("unexpected page %d/%d with %d items", page.TotalItems, page.TotalPages, len(page.Data))
	}
	if !page.Data[0].TransactionDate.Equal(day(2024, 2, 20)) {
		t.Errorf("expected newest commission first, got %v", page.Data[0].TransactionDate)
	}
}

func TestCommissionSummary_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	l := newLedger(t, db, testRates(), false)
	user := testutil.CreateTestUser(t, db)

	summary, err := l.commissions.Summary(context.Background(), user.ID, CommissionPeriod{})
	testutil.AssertNoError(t, err)
	testutil.AssertDecimal(t, "total_commission", summary.TotalCommission, "0")
	testutil.AssertDecimal(t, "pending", summary.Pending, "0")
	if summary.Count != 0 {
		t.Errorf("expected no commissions, got %d", summary.Count)
	}
}
