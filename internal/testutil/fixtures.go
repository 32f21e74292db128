package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"kasa/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates an active user without commission.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithCommission(t, db, "0")
}

// CreateTestUserWithCommission creates a user earning rate percent commission on income.
// A zero rate leaves the user ineligible.
func CreateTestUserWithCommission(t *testing.T, db *gorm.DB, rate string) *models.User {
	t.Helper()

	n := nextID()
	r := decimal.RequireFromString(rate)
	user := &models.User{
		Name:           fmt.Sprintf("Test User %d", n),
		Email:          fmt.Sprintf("user%d@test.com", n),
		IsActive:       true,
		HasCommission:  r.IsPositive(),
		CommissionRate: r,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAccount creates an active account of the given type, currency and balance.
func CreateTestAccount(t *testing.T, db *gorm.DB, userID string, accountType models.AccountType, currency, balance string) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:   userID,
		Name:     fmt.Sprintf("Test Account %d", nextID()),
		Type:     accountType,
		Balance:  decimal.RequireFromString(balance),
		Currency: currency,
		IsActive: true,
	}
	if accountType == models.AccountTypeBank {
		account.Bank = models.BankDetails{BankName: "Test Bank", IBAN: fmt.Sprintf("TR%024d", nextID())}
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestBankAccount creates a bank account with the given currency and balance.
func CreateTestBankAccount(t *testing.T, db *gorm.DB, userID, currency, balance string) *models.Account {
	t.Helper()
	return CreateTestAccount(t, db, userID, models.AccountTypeBank, currency, balance)
}

// CreateTestCreditCard creates a credit card account with the given balance and limit.
func CreateTestCreditCard(t *testing.T, db *gorm.DB, userID, currency, balance, limit string) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:   userID,
		Name:     fmt.Sprintf("Test Credit Card %d", nextID()),
		Type:     models.AccountTypeCreditCard,
		Balance:  decimal.RequireFromString(balance),
		Currency: currency,
		IsActive: true,
		CreditCard: models.CreditCardDetails{
			BankName:     "Test Bank",
			LastFour:     "4242",
			CreditLimit:  decimal.RequireFromString(limit),
			StatementDay: 5,
			DueDay:       15,
		},
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test credit card: %v", err)
	}
	return account
}

// CreateTestCategory creates a category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID string, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: userID,
		Name:   fmt.Sprintf("Test Category %d", nextID()),
		Type:   categoryType,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestCustomer creates a customer counterparty.
func CreateTestCustomer(t *testing.T, db *gorm.DB, userID string) *models.Customer {
	t.Helper()

	customer := &models.Customer{
		UserID: userID,
		Name:   fmt.Sprintf("Test Customer %d", nextID()),
	}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("failed to create test customer: %v", err)
	}
	return customer
}

// CreateTestTransaction inserts a completed TRY transaction directly, without
// touching balances. The account becomes the destination for income and the
// source for every other type.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, categoryID, accountID string, txType models.TransactionType, amount string) *models.Transaction {
	t.Helper()

	amt := decimal.RequireFromString(amount)
	tx := &models.Transaction{
		UserID:        userID,
		CategoryID:    categoryID,
		Type:          txType,
		Amount:        amt,
		Currency:      "TRY",
		ExchangeRate:  decimal.NewFromInt(1),
		TryEquivalent: amt,
		Date:          time.Now().UTC(),
		PaymentMethod: models.PaymentMethodBankTransfer,
		Status:        models.TransactionStatusCompleted,
	}
	if txType == models.TransactionTypeIncome {
		tx.DestinationAccountID = &accountID
	} else {
		tx.SourceAccountID = &accountID
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestSubscription inserts a subscription transaction with the given period and next payment date.
func CreateTestSubscription(t *testing.T, db *gorm.DB, userID, categoryID, accountID string, period models.SubscriptionPeriod, next time.Time) *models.Transaction {
	t.Helper()

	tx := CreateTestTransaction(t, db, userID, categoryID, accountID, models.TransactionTypeExpense, "49.90")
	tx.IsSubscription = true
	tx.SubscriptionPeriod = &period
	tx.NextPaymentDate = &next
	if err := db.Save(tx).Error; err != nil {
		t.Fatalf("failed to mark test subscription: %v", err)
	}
	return tx
}

// ReloadAccount reads the account back from the database.
func ReloadAccount(t *testing.T, db *gorm.DB, accountID string) *models.Account {
	t.Helper()

	var account models.Account
	if err := db.First(&account, "id = ?", accountID).Error; err != nil {
		t.Fatalf("failed to reload account %s: %v", accountID, err)
	}
	return &account
}
