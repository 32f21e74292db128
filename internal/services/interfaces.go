package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"kasa/internal/models"
	"kasa/internal/pagination"
)

// CashAccount is the routing sentinel that selects the owner's cash account in
// the transaction currency, creating it on first use.
const CashAccount = "cash"

// UserServicer defines the contract for owner records and commission settings.
type UserServicer interface {
	CreateUser(name, email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	UpdateCommissionSettings(id string, hasCommission bool, rate decimal.Decimal) (*models.User, error)
}

// CreateAccountInput holds the fields of a new account. Only the detail block
// matching Type is kept.
type CreateAccountInput struct {
	Name           string
	Type           models.AccountType
	Description    string
	Currency       string
	InitialBalance decimal.Decimal
	Bank           models.BankDetails
	CreditCard     models.CreditCardDetails
	Crypto         models.CryptoWalletDetails
	VirtualPOS     models.VirtualPOSDetails
}

// AccountUpdateFields holds optional fields for updating an account.
// Detail blocks not matching the account type are ignored.
type AccountUpdateFields struct {
	Name        *string
	Description *string
	IsActive    *bool
	Bank        *models.BankDetails
	CreditCard  *models.CreditCardDetails
	Crypto      *models.CryptoWalletDetails
	VirtualPOS  *models.VirtualPOSDetails
}

// AccountServicer defines the contract for account-related business logic.
// Balances change only through ApplyBalanceDelta on accounts returned by
// LockAccounts within the same database transaction.
type AccountServicer interface {
	CreateAccount(userID string, input CreateAccountInput) (*models.Account, error)
	GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(userID, accountID string) (*models.Account, error)
	UpdateAccount(userID, accountID string, fields AccountUpdateFields) (*models.Account, error)
	DeleteAccount(userID, accountID string) error
	EnsureCashAccount(tx *gorm.DB, userID, currency string) (*models.Account, error)
	LockAccounts(tx *gorm.DB, userID string, accountIDs ...string) (map[string]*models.Account, error)
	ApplyBalanceDelta(tx *gorm.DB, account *models.Account, delta decimal.Decimal) error
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, name string, categoryType models.CategoryType, description string, parentID *string) (*models.Category, error)
	GetUserCategories(userID string, categoryType *models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error
	EnsureTransferCategory(tx *gorm.DB, userID string) (*models.Category, error)
}

// RecordTransactionInput describes a new ledger entry. SourceAccountID and
// DestinationAccountID take an account ID or CashAccount.
type RecordTransactionInput struct {
	CategoryID           string
	Type                 models.TransactionType
	Amount               decimal.Decimal
	Currency             string
	ExchangeRate         *decimal.Decimal // manual rate to TRY; looked up when nil
	FeeAmount            *decimal.Decimal
	Date                 time.Time
	PaymentMethod        models.PaymentMethod
	Description          string
	SourceAccountID      string
	DestinationAccountID string
	CustomerID           *string
	SupplierID           *string
	Installments         *int
	IsSubscription       bool
	SubscriptionPeriod   *models.SubscriptionPeriod
	NextPaymentDate      *time.Time
	IsTaxable            bool
	TaxRate              *decimal.Decimal
	HasWithholding       bool
	WithholdingRate      *decimal.Decimal
	ReferenceID          *string
}

// UpdateTransactionInput holds optional fields for amending a transaction.
// Routing, type and currency cannot change.
type UpdateTransactionInput struct {
	CategoryID      *string
	Amount          *decimal.Decimal
	ExchangeRate    *decimal.Decimal
	FeeAmount       *decimal.Decimal
	Date            *time.Time
	PaymentMethod   *models.PaymentMethod
	Description     *string
	Installments    *int
	IsTaxable       *bool
	TaxRate         *decimal.Decimal
	HasWithholding  *bool
	WithholdingRate *decimal.Decimal
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate       *time.Time
	ToDate         *time.Time
	Type           *models.TransactionType
	CategoryID     *string
	AccountID      *string
	IsSubscription *bool
}

// PreparedTransaction is a validated, converted and derived transaction that
// has not been persisted yet. Commit it with TransactionServicer.CommitTransaction.
type PreparedTransaction struct {
	Transaction *models.Transaction

	sourceCash      bool
	destinationCash bool
}

// TransactionServicer defines the contract of the transaction ledger.
type TransactionServicer interface {
	RecordTransaction(ctx context.Context, userID string, input RecordTransactionInput) (*models.Transaction, error)
	PrepareTransaction(ctx context.Context, userID string, input RecordTransactionInput) (*PreparedTransaction, error)
	CommitTransaction(tx *gorm.DB, prepared *PreparedTransaction) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, transactionID string, input UpdateTransactionInput) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID string) error
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
}

// TransferInput describes a movement between two accounts of the same owner.
// Amount is debited from the source in its currency. TargetAmount or
// ExchangeRate override the looked-up cross rate.
type TransferInput struct {
	SourceAccountID string
	TargetAccountID string
	Amount          decimal.Decimal
	TargetAmount    *decimal.Decimal
	ExchangeRate    *decimal.Decimal
	Date            time.Time
	Description     string
}

// ATMInput describes a cash withdrawal from, or deposit into, a bank account.
type ATMInput struct {
	Type          models.TransactionType // atm_withdraw or atm_deposit
	BankAccountID string
	Amount        decimal.Decimal
	Date          time.Time
	Description   string
}

// TransferResult reports both legs of a completed transfer and what was moved.
type TransferResult struct {
	SourceTransaction *models.Transaction `json:"source_transaction"`
	TargetTransaction *models.Transaction `json:"target_transaction"`
	SourceCurrency    string              `json:"source_currency"`
	TargetCurrency    string              `json:"target_currency"`
	SourceAmount      decimal.Decimal     `json:"source_amount"`
	TargetAmount      decimal.Decimal     `json:"target_amount"`
	EffectiveRate     decimal.Decimal     `json:"effective_rate"`
}

// TransferServicer defines the contract of the transfer orchestrator.
type TransferServicer interface {
	Transfer(ctx context.Context, userID string, input TransferInput) (*TransferResult, error)
	ATM(ctx context.Context, userID string, input ATMInput) (*TransferResult, error)
}

// DuplicateResult reports a quick duplicate and the original it was cloned from.
type DuplicateResult struct {
	Duplicate *models.Transaction `json:"duplicate"`
	Original  *models.Transaction `json:"original"`
}

// SubscriptionServicer defines the contract of the subscription scheduler.
type SubscriptionServicer interface {
	CalculateNextPaymentDate(transaction *models.Transaction) (time.Time, error)
	AdvanceSchedule(ctx context.Context, userID, transactionID string) (*models.Transaction, error)
	QuickDuplicate(ctx context.Context, userID, transactionID string) (*DuplicateResult, error)
	EndSubscription(ctx context.Context, userID, transactionID string) (*models.Transaction, error)
	DueSubscriptions(ctx context.Context, userID string, asOf time.Time) ([]models.Transaction, error)
}

// CommissionPeriod bounds a commission query by transaction or payment date.
// Nil bounds are open.
type CommissionPeriod struct {
	From *time.Time
	To   *time.Time
}

// CommissionSummary is the accrued, paid and pending commission of an owner.
type CommissionSummary struct {
	UserID          string          `json:"user_id"`
	TotalCommission decimal.Decimal `json:"total_commission"`
	TotalPaid       decimal.Decimal `json:"total_paid"`
	Pending         decimal.Decimal `json:"pending"`
	Count           int64           `json:"count"`
}

// RecordPayoutInput describes a commission payout.
type RecordPayoutInput struct {
	Amount      decimal.Decimal
	PaymentDate time.Time
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	Notes       string
}

// CommissionServicer defines the contract of the commission engine.
type CommissionServicer interface {
	Accrue(tx *gorm.DB, transaction *models.Transaction) (*models.Commission, error)
	Recompute(tx *gorm.DB, transaction *models.Transaction) error
	DeleteForTransaction(tx *gorm.DB, transactionID string) error
	RecordPayout(ctx context.Context, userID string, input RecordPayoutInput) (*models.CommissionPayout, error)
	Summary(ctx context.Context, userID string, period CommissionPeriod) (*CommissionSummary, error)
	GetUserCommissions(userID string, period CommissionPeriod, page pagination.PageRequest) (*pagination.PageResponse[models.Commission], error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID string, action, resourceType string, resourceID string, ipAddress string, changes map[string]interface{})
}
