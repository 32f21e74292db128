package services

import (
	"context"
	"testing"
	"time"

	"kasa/internal/events"
	"kasa/internal/models"
	"kasa/internal/testutil"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalculateNextPaymentDate(t *testing.T) {
	svc := NewSubscriptionService(nil, nil, nil)
	monthly := models.PeriodMonthly

	tests := []struct {
		name    string
		tx      models.Transaction
		want    time.Time
		wantErr string
	}{
		{
			name: "from_next_payment_date",
			tx:   models.Transaction{IsSubscription: true, SubscriptionPeriod: &monthly, Date: day(2023, 1, 1), NextPaymentDate: ptrTime(day(2024, 1, 31))},
			want: day(2024, 2, 29),
		},
		{
			name: "from_date_when_unscheduled",
			tx:   models.Transaction{IsSubscription: true, SubscriptionPeriod: &monthly, Date: day(2024, 3, 10)},
			want: day(2024, 4, 10),
		},
		{
			name:    "not_a_subscription",
			tx:      models.Transaction{Date: day(2024, 3, 10)},
			wantErr: "NOT_A_SUBSCRIPTION",
		},
		{
			name:    "missing_period",
			tx:      models.Transaction{IsSubscription: true, Date: day(2024, 3, 10)},
			wantErr: "NOT_A_SUBSCRIPTION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CalculateNextPaymentDate(&tt.tx)
			if tt.wantErr != "" {
				testutil.AssertAppError(t, err, tt.wantErr)
				return
			}
			testutil.AssertNoError(t, err)
			if !got.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func ptrTime(t time.Time) *time.Time {
	return &t
}

func TestAdvanceSchedule(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		period models.SubscriptionPeriod
		next   time.Time
		steps  int
		want   time.Time
	}{
		{"monthly_clamps_to_month_end", models.PeriodMonthly, day(2024, 1, 31), 1, day(2024, 2, 29)},
		{"monthly_twice", models.PeriodMonthly, day(2024, 1, 31), 2, day(2024, 3, 29)},
		{"quarterly", models.PeriodQuarterly, day(2024, 1, 31), 1, day(2024, 4, 30)},
		{"weekly", models.PeriodWeekly, day(2024, 2, 26), 1, day(2024, 3, 4)},
		{"annually_from_leap_day", models.PeriodAnnually, day(2024, 2, 29), 1, day(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			defer testutil.TeardownTestDB(t, db)
			l := newLedger(t, db, testRates(), false)
			user := testutil.CreateTestUser(t, db)
			cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
			account := testutil.CreateTestBankAccount(t, db, user.ID, "TRY", "0")
			sub := testutil.CreateTestSubscription(t, db, user.ID, cat.ID, account.ID, tt.period, tt.next)

			var got *models.Transaction
			for i := 0; i < tt.steps; i++ {
				var err error
				got, err = l.subscriptions.AdvanceSchedule(ctx, user.ID, sub.ID)
				testutil.AssertNoError(t, err)
			}

			if got.NextPaymentDate == nil || !got.NextPaymentDate.Equal(tt.want) {
				t.Errorf("expected next payment %v, got %v", tt.want, got.NextPaymentDate)
			}

			var stored models.Transaction
			testutil.AssertNoError(t, db.First(&stored, "id = ?", sub.ID).Error)
			if stored.NextPaymentDate == nil || !stored.NextPaymentDate.Equal(tt.want) {
				t.Errorf("expected stored next payment %v, got %v", tt.want, stored.NextPaymentDate)
			}
		})
	}

	t.Run("not_a_subscription", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(t, db, testRates(), false)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		account := testutil.CreateTestBankAccount(t, db, user.ID, "TRY", "0")
		tx := testutil.CreateTestTransaction(t, db, user.ID, cat.ID, account.ID, models.TransactionTypeExpense, "10")

		_, err := l.subscriptions.AdvanceSchedule(ctx, user.ID, tx.ID)
		testutil.AssertAppError(t, err, "NOT_A_SUBSCRIPTION")
	})

	t.Run("other_owner", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(t, db, testRates(), false)
		owner := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, owner.ID, models.CategoryTypeExpense)
		account := testutil.CreateTestBankAccount(t, db, owner.ID, "TRY", "0")
		sub := testutil.CreateTestSubscription(t, db, owner.ID, cat.ID, account.ID, models.PeriodMonthly, day(2024, 3, 1))

		_, err := l.subscriptions.AdvanceSchedule(ctx, other.ID, sub.ID)
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})
}

func TestQuickDuplicate(t *testing.T) {
	ctx := context.Background()

	t.Run("subscription_advances_original", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(t, db, testRates(), false)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		account := testutil.CreateTestBankAccount(t, db, user.ID, "TRY", "1000")
		period := models.PeriodMonthly

		original, err := l.transactions.RecordTransaction(ctx, user.ID, RecordTransactionInput{
			CategoryID:         cat.ID,
			Type:               models.TransactionTypeExpense,
			Amount:             dec("118"),
			Currency:           "TRY",
			Date:               day(2024, 2, 15),
			PaymentMethod:      models.PaymentMethodDebitCard,
			Description:        "hosting",
			SourceAccountID:    account.ID,
			IsTaxable:          true,
			TaxRate:            decPtr("18"),
			IsSubscription:     true,
			SubscriptionPeriod: &period,
		})
		testutil.AssertNoError(t, err)

		result, err := l.subscriptions.QuickDuplicate(ctx, user.ID, original.ID)
		testutil.AssertNoError(t, err)

		dup := result.Duplicate
		if dup.ID == original.ID {
			t.Fatal("expected a new transaction")
		}
		if !dup.Date.Equal(testNow) {
			t.Errorf("expected duplicate dated now, got %v", dup.Date)
		}
		if dup.ReferenceID == nil || *dup.ReferenceID != original.ID {
			t.Errorf("expected duplicate to reference %s, got %v", original.ID, dup.ReferenceID)
		}
		if dup.IsSubscription || dup.NextPaymentDate != nil {
			t.Error("expected duplicate not to be a subscription")
		}
		if dup.PaymentMethod != models.PaymentMethodDebitCard || dup.Description != "hosting" {
			t.Errorf("expected cloned payment method and description, got %s %q", dup.PaymentMethod, dup.Description)
		}
		if dup.TaxAmount == nil {
			t.Fatal("expected cloned tax configuration")
		}
		testutil.AssertDecimal(t, "tax_amount", *dup.TaxAmount, "18")

		if want := day(2024, 4, 15); result.Original.NextPaymentDate == nil || !result.Original.NextPaymentDate.Equal(want) {
			t.Errorf("expected original advanced to %v, got %v", want, result.Original.NextPaymentDate)
		}
		testutil.AssertDecimal(t, "balance", testutil.ReloadAccount(t, db, account.ID).Balance, "764")

		if e := l.published.last(); e.Key != events.TransactionRecorded || e.Payload["duplicate_of"] != original.ID {
			t.Errorf("expected transaction.recorded for the duplicate, got %s %v", e.Key, e.Payload)
		}
	})

	t.Run("plain_transaction", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(t, db, testRates(), false)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeIncome)
		account := testutil.CreateTestBankAccount(t, db, user.ID, "USD", "0")

		original, err := l.transactions.RecordTransaction(ctx, user.ID, RecordTransactionInput{
			CategoryID:           cat.ID,
			Type:                 models.TransactionTypeIncome,
			Amount:               dec("50"),
			Currency:             "USD",
			ExchangeRate:         decPtr("30"),
			Date:                 day(2024, 1, 5),
			DestinationAccountID: account.ID,
		})
		testutil.AssertNoError(t, err)

		result, err := l.subscriptions.QuickDuplicate(ctx, user.ID, original.ID)
		testutil.AssertNoError(t, err)

		// re-priced at today's rate
		testutil.AssertDecimal(t, "exchange_rate", result.Duplicate.ExchangeRate, "32")
		if result.Original.NextPaymentDate != nil {
			t.Error("expected plain original to stay unscheduled")
		}
		testutil.AssertDecimal(t, "balance", testutil.ReloadAccount(t, db, account.ID).Balance, "100")
	})

	t.Run("failure_leaves_original_unadvanced", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(t, db, testRates(), false)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		account := testutil.CreateTestBankAccount(t, db, user.ID, "TRY", "10")
		next := day(2024, 3, 1)
		sub := testutil.CreateTestSubscription(t, db, user.ID, cat.ID, account.ID, models.PeriodMonthly, next)

		_, err := l.subscriptions.QuickDuplicate(ctx, user.ID, sub.ID)
		testutil.AssertAppError(t, err, "INSUFFICIENT_BALANCE")

		var stored models.Transaction
		testutil.AssertNoError(t, db.First(&stored, "id = ?", sub.ID).Error)
		if stored.NextPaymentDate == nil || !stored.NextPaymentDate.Equal(next) {
			t.Errorf("expected next payment to stay %v, got %v", next, stored.NextPaymentDate)
		}
		if n := testutil.CountRows(t, db, &models.Transaction{}); n != 1 {
			t.Errorf("expected only the original, got %d transactions", n)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		l := newLedger(t, db, testRates(), false)
		user := testutil.CreateTestUser(t, db)

		_, err := l.subscriptions.QuickDuplicate(ctx, user.ID, "00000000-0000-0000-0000-000000000000")
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})
}

func TestEndSubscription(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	l := newLedger(t, db, testRates(), false)
	user := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
	account := testutil.CreateTestBankAccount(t, db, user.ID, "TRY", "0")
	sub := testutil.CreateTestSubscription(t, db, user.ID, cat.ID, account.ID, models.PeriodMonthly, day(2024, 3, 1))

	ended, err := l.subscriptions.EndSubscription(ctx, user.ID, sub.ID)
	testutil.AssertNoError(t, err)
	if ended.IsSubscription || ended.SubscriptionPeriod != nil || ended.NextPaymentDate != nil {
		t.Error("expected subscription fields to be cleared")
	}

	var stored models.Transaction
	testutil.AssertNoError(t, db.First(&stored, "id = ?", sub.ID).Error)
	if stored.IsSubscription || stored.NextPaymentDate != nil {
		t.Error("expected stored subscription fields to be cleared")
	}
	testutil.AssertDecimal(t, "amount", stored.Amount, "49.90")

	_, err = l.subscriptions.EndSubscription(ctx, user.ID, sub.ID)
	testutil.AssertAppError(t, err, "NOT_A_SUBSCRIPTION")
}

func TestDueSubscriptions(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	l := newLedger(t, db, testRates(), false)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
	account := testutil.CreateTestBankAccount(t, db, user.ID, "TRY", "0")
	otherCat := testutil.CreateTestCategory(t, db, other.ID, models.CategoryTypeExpense)
	otherAccount := testutil.CreateTestBankAccount(t, db, other.ID, "TRY", "0")

	lateToday := testutil.CreateTestSubscription(t, db, user.ID, cat.ID, account.ID, models.PeriodMonthly, time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC))
	overdue := testutil.CreateTestSubscription(t, db, user.ID, cat.ID, account.ID, models.PeriodWeekly, day(2024, 3, 10))
	testutil.CreateTestSubscription(t, db, user.ID, cat.ID, account.ID, models.PeriodMonthly, day(2024, 3, 16))
	testutil.CreateTestSubscription(t, db, other.ID, otherCat.ID, otherAccount.ID, models.PeriodMonthly, day(2024, 3, 1))

	due, err := l.subscriptions.DueSubscriptions(ctx, user.ID, testNow)
	testutil.AssertNoError(t, err)

	if len(due) != 2 {
		t.Fatalf("expected 2 due subscriptions, got %d", len(due))
	}
	if due[0].ID != overdue.ID || due[1].ID != lateToday.ID {
		t.Errorf("expected overdue first, got %s then %s", due[0].ID, due[1].ID)
	}
	if due[0].Category == nil {
		t.Error("expected category to be preloaded")
	}

	none, err := l.subscriptions.DueSubscriptions(ctx, user.ID, day(2024, 3, 1))
	testutil.AssertNoError(t, err)
	if len(none) != 0 {
		t.Errorf("expected nothing due on 2024-03-01, got %d", len(none))
	}
}
