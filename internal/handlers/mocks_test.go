package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"kasa/internal/fxrate"
	"kasa/internal/middleware"
	"kasa/internal/models"
	"kasa/internal/pagination"
	"kasa/internal/services"
	"kasa/internal/validator"
)

const (
	actorID   = "0190a6b2-7c1e-7d3a-9f00-000000000001"
	accountID = "0190a6b2-7c1e-7d3a-9f00-0000000000a1"
	otherID   = "0190a6b2-7c1e-7d3a-9f00-0000000000a2"
	txID      = "0190a6b2-7c1e-7d3a-9f00-0000000000b1"
)

// --- mock services ---

type mockUserService struct {
	createUserFn               func(name, email string) (*models.User, error)
	getUserByIDFn              func(id string) (*models.User, error)
	updateCommissionSettingsFn func(id string, has bool, rate decimal.Decimal) (*models.User, error)
}

var _ services.UserServicer = (*mockUserService)(nil)

func (m *mockUserService) CreateUser(name, email string) (*models.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(name, email)
	}
	return &models.User{Name: name, Email: email}, nil
}

func (m *mockUserService) GetUserByID(id string) (*models.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(id)
	}
	u := &models.User{}
	u.ID = id
	return u, nil
}

func (m *mockUserService) UpdateCommissionSettings(id string, has bool, rate decimal.Decimal) (*models.User, error) {
	if m.updateCommissionSettingsFn != nil {
		return m.updateCommissionSettingsFn(id, has, rate)
	}
	u := &models.User{HasCommission: has, CommissionRate: rate}
	u.ID = id
	return u, nil
}

type mockAccountService struct {
	createAccountFn   func(userID string, input services.CreateAccountInput) (*models.Account, error)
	getUserAccountsFn func(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	getAccountByIDFn  func(userID, accountID string) (*models.Account, error)
	updateAccountFn   func(userID, accountID string, fields services.AccountUpdateFields) (*models.Account, error)
	deleteAccountFn   func(userID, accountID string) error
}

var _ services.AccountServicer = (*mockAccountService)(nil)

func (m *mockAccountService) CreateAccount(userID string, input services.CreateAccountInput) (*models.Account, error) {
	if m.createAccountFn != nil {
		return m.createAccountFn(userID, input)
	}
	return &models.Account{UserID: userID, Name: input.Name}, nil
}

func (m *mockAccountService) GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
	if m.getUserAccountsFn != nil {
		return m.getUserAccountsFn(userID, page)
	}
	page.Defaults()
	resp := pagination.NewPageResponse[models.Account](nil, page.Page, page.PageSize, 0)
	return &resp, nil
}

func (m *mockAccountService) GetAccountByID(userID, accountID string) (*models.Account, error) {
	if m.getAccountByIDFn != nil {
		return m.getAccountByIDFn(userID, accountID)
	}
	a := &models.Account{UserID: userID}
	a.ID = accountID
	return a, nil
}

func (m *mockAccountService) UpdateAccount(userID, accountID string, fields services.AccountUpdateFields) (*models.Account, error) {
	if m.updateAccountFn != nil {
		return m.updateAccountFn(userID, accountID, fields)
	}
	a := &models.Account{UserID: userID}
	a.ID = accountID
	return a, nil
}

func (m *mockAccountService) DeleteAccount(userID, accountID string) error {
	if m.deleteAccountFn != nil {
		return m.deleteAccountFn(userID, accountID)
	}
	return nil
}

func (m *mockAccountService) EnsureCashAccount(*gorm.DB, string, string) (*models.Account, error) {
	return &models.Account{}, nil
}

func (m *mockAccountService) LockAccounts(*gorm.DB, string, ...string) (map[string]*models.Account, error) {
	return map[string]*models.Account{}, nil
}

func (m *mockAccountService) ApplyBalanceDelta(*gorm.DB, *models.Account, decimal.Decimal) error {
	return nil
}

type mockCategoryService struct {
	createCategoryFn    func(userID, name string, t models.CategoryType, desc string, parentID *string) (*models.Category, error)
	getUserCategoriesFn func(userID string, t *models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	getCategoryByIDFn   func(userID, categoryID string) (*models.Category, error)
	deleteCategoryFn    func(userID, categoryID string) error
}

var _ services.CategoryServicer = (*mockCategoryService)(nil)

func (m *mockCategoryService) CreateCategory(userID, name string, t models.CategoryType, desc string, parentID *string) (*models.Category, error) {
	if m.createCategoryFn != nil {
		return m.createCategoryFn(userID, name, t, desc, parentID)
	}
	return &models.Category{UserID: userID, Name: name, Type: t}, nil
}

func (m *mockCategoryService) GetUserCategories(userID string, t *models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	if m.getUserCategoriesFn != nil {
		return m.getUserCategoriesFn(userID, t, page)
	}
	resp := pagination.NewPageResponse[models.Category](nil, 1, pagination.DefaultPageSize, 0)
	return &resp, nil
}

func (m *mockCategoryService) GetCategoryByID(userID, categoryID string) (*models.Category, error) {
	if m.getCategoryByIDFn != nil {
		return m.getCategoryByIDFn(userID, categoryID)
	}
	return &models.Category{UserID: userID}, nil
}

func (m *mockCategoryService) DeleteCategory(userID, categoryID string) error {
	if m.deleteCategoryFn != nil {
		return m.deleteCategoryFn(userID, categoryID)
	}
	return nil
}

func (m *mockCategoryService) EnsureTransferCategory(*gorm.DB, string) (*models.Category, error) {
	return &models.Category{}, nil
}

type mockTransactionService struct {
	recordTransactionFn   func(ctx context.Context, userID string, input services.RecordTransactionInput) (*models.Transaction, error)
	updateTransactionFn   func(ctx context.Context, userID, id string, input services.UpdateTransactionInput) (*models.Transaction, error)
	deleteTransactionFn   func(ctx context.Context, userID, id string) error
	getTransactionByIDFn  func(userID, id string) (*models.Transaction, error)
	getUserTransactionsFn func(userID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

func (m *mockTransactionService) RecordTransaction(ctx context.Context, userID string, input services.RecordTransactionInput) (*models.Transaction, error) {
	if m.recordTransactionFn != nil {
		return m.recordTransactionFn(ctx, userID, input)
	}
	tx := &models.Transaction{UserID: userID, Type: input.Type, Amount: input.Amount, Currency: input.Currency}
	tx.ID = txID
	return tx, nil
}

func (m *mockTransactionService) PrepareTransaction(context.Context, string, services.RecordTransactionInput) (*services.PreparedTransaction, error) {
	return &services.PreparedTransaction{}, nil
}

func (m *mockTransactionService) CommitTransaction(*gorm.DB, *services.PreparedTransaction) (*models.Transaction, error) {
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) UpdateTransaction(ctx context.Context, userID, id string, input services.UpdateTransactionInput) (*models.Transaction, error) {
	if m.updateTransactionFn != nil {
		return m.updateTransactionFn(ctx, userID, id, input)
	}
	tx := &models.Transaction{UserID: userID}
	tx.ID = id
	return tx, nil
}

func (m *mockTransactionService) DeleteTransaction(ctx context.Context, userID, id string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(ctx, userID, id)
	}
	return nil
}

func (m *mockTransactionService) GetTransactionByID(userID, id string) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(userID, id)
	}
	tx := &models.Transaction{UserID: userID}
	tx.ID = id
	return tx, nil
}

func (m *mockTransactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.getUserTransactionsFn != nil {
		return m.getUserTransactionsFn(userID, page, filter)
	}
	resp := pagination.NewPageResponse[models.Transaction](nil, 1, pagination.DefaultPageSize, 0)
	return &resp, nil
}

type mockSubscriptionService struct {
	advanceScheduleFn  func(userID, id string) (*models.Transaction, error)
	quickDuplicateFn   func(userID, id string) (*services.DuplicateResult, error)
	endSubscriptionFn  func(userID, id string) (*models.Transaction, error)
	dueSubscriptionsFn func(userID string, asOf time.Time) ([]models.Transaction, error)
}

var _ services.SubscriptionServicer = (*mockSubscriptionService)(nil)

func (m *mockSubscriptionService) CalculateNextPaymentDate(*models.Transaction) (time.Time, error) {
	return time.Time{}, nil
}

func (m *mockSubscriptionService) AdvanceSchedule(_ context.Context, userID, id string) (*models.Transaction, error) {
	if m.advanceScheduleFn != nil {
		return m.advanceScheduleFn(userID, id)
	}
	tx := &models.Transaction{UserID: userID}
	tx.ID = id
	return tx, nil
}

func (m *mockSubscriptionService) QuickDuplicate(_ context.Context, userID, id string) (*services.DuplicateResult, error) {
	if m.quickDuplicateFn != nil {
		return m.quickDuplicateFn(userID, id)
	}
	original := &models.Transaction{UserID: userID}
	original.ID = id
	dup := &models.Transaction{UserID: userID, ReferenceID: &original.ID}
	dup.ID = otherID
	return &services.DuplicateResult{Duplicate: dup, Original: original}, nil
}

func (m *mockSubscriptionService) EndSubscription(_ context.Context, userID, id string) (*models.Transaction, error) {
	if m.endSubscriptionFn != nil {
		return m.endSubscriptionFn(userID, id)
	}
	tx := &models.Transaction{UserID: userID}
	tx.ID = id
	return tx, nil
}

func (m *mockSubscriptionService) DueSubscriptions(_ context.Context, userID string, asOf time.Time) ([]models.Transaction, error) {
	if m.dueSubscriptionsFn != nil {
		return m.dueSubscriptionsFn(userID, asOf)
	}
	return []models.Transaction{}, nil
}

type mockTransferService struct {
	transferFn func(userID string, input services.TransferInput) (*services.TransferResult, error)
	atmFn      func(userID string, input services.ATMInput) (*services.TransferResult, error)
}

var _ services.TransferServicer = (*mockTransferService)(nil)

func legs(amount decimal.Decimal) *services.TransferResult {
	src, dst := &models.Transaction{}, &models.Transaction{}
	src.ID, dst.ID = txID, otherID
	return &services.TransferResult{
		SourceTransaction: src,
		TargetTransaction: dst,
		SourceAmount:      amount,
		TargetAmount:      amount,
		EffectiveRate:     decimal.NewFromInt(1),
	}
}

func (m *mockTransferService) Transfer(_ context.Context, userID string, input services.TransferInput) (*services.TransferResult, error) {
	if m.transferFn != nil {
		return m.transferFn(userID, input)
	}
	return legs(input.Amount), nil
}

func (m *mockTransferService) ATM(_ context.Context, userID string, input services.ATMInput) (*services.TransferResult, error) {
	if m.atmFn != nil {
		return m.atmFn(userID, input)
	}
	return legs(input.Amount), nil
}

type mockCommissionService struct {
	recordPayoutFn       func(userID string, input services.RecordPayoutInput) (*models.CommissionPayout, error)
	summaryFn            func(userID string, period services.CommissionPeriod) (*services.CommissionSummary, error)
	getUserCommissionsFn func(userID string, period services.CommissionPeriod, page pagination.PageRequest) (*pagination.PageResponse[models.Commission], error)
}

var _ services.CommissionServicer = (*mockCommissionService)(nil)

func (m *mockCommissionService) Accrue(*gorm.DB, *models.Transaction) (*models.Commission, error) {
	return nil, nil
}

func (m *mockCommissionService) Recompute(*gorm.DB, *models.Transaction) error { return nil }

func (m *mockCommissionService) DeleteForTransaction(*gorm.DB, string) error { return nil }

func (m *mockCommissionService) RecordPayout(_ context.Context, userID string, input services.RecordPayoutInput) (*models.CommissionPayout, error) {
	if m.recordPayoutFn != nil {
		return m.recordPayoutFn(userID, input)
	}
	return &models.CommissionPayout{UserID: userID, Amount: input.Amount}, nil
}

func (m *mockCommissionService) Summary(_ context.Context, userID string, period services.CommissionPeriod) (*services.CommissionSummary, error) {
	if m.summaryFn != nil {
		return m.summaryFn(userID, period)
	}
	return &services.CommissionSummary{UserID: userID}, nil
}

func (m *mockCommissionService) GetUserCommissions(userID string, period services.CommissionPeriod, page pagination.PageRequest) (*pagination.PageResponse[models.Commission], error) {
	if m.getUserCommissionsFn != nil {
		return m.getUserCommissionsFn(userID, period, page)
	}
	resp := pagination.NewPageResponse[models.Commission](nil, 1, pagination.DefaultPageSize, 0)
	return &resp, nil
}

type auditEntry struct {
	userID, action, resourceType, resourceID string
	changes                                  map[string]interface{}
}

type mockAuditService struct {
	entries []auditEntry
}

func (m *mockAuditService) Log(userID, action, resourceType, resourceID, _ string, changes map[string]interface{}) {
	m.entries = append(m.entries, auditEntry{userID, action, resourceType, resourceID, changes})
}

func (m *mockAuditService) actions() []string {
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.action)
	}
	return out
}

type fakeRates struct {
	rates     map[string]fxrate.Rate
	forgotten []string
}

func (f *fakeRates) GetRate(_ context.Context, currency string, date time.Time) (fxrate.Rate, error) {
	r, ok := f.rates[currency]
	if !ok {
		return fxrate.Rate{}, fxrate.ErrRateUnavailable
	}
	r.Date = fxrate.Day(date)
	return r, nil
}

func (f *fakeRates) Forget(currency string, date time.Time) {
	f.forgotten = append(f.forgotten, currency+"|"+fxrate.DayKey(date))
}

func (f *fakeRates) SaveManualRate(_ context.Context, currency string, date time.Time, buying, selling decimal.Decimal) (fxrate.Rate, error) {
	r := fxrate.Rate{Currency: currency, Date: fxrate.Day(date), Buying: buying, Selling: selling}
	if f.rates == nil {
		f.rates = map[string]fxrate.Rate{}
	}
	f.rates[currency] = r
	return r, nil
}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func injectActorID(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ActorKey, id)
		c.Next()
	}
}

func newRouter() *gin.Engine {
	r := gin.New()
	r.Use(injectActorID(actorID))
	return r
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}
