package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "kasa/internal/errors"
	"kasa/internal/models"
	"kasa/internal/pagination"
	"kasa/internal/services"
)

func setupAccountRouter(accounts *mockAccountService, audit *mockAuditService) *gin.Engine {
	h := NewAccountHandler(accounts, audit)
	r := newRouter()
	r.POST("/accounts", h.CreateAccount)
	r.GET("/accounts", h.GetUserAccounts)
	r.GET("/accounts/:id", h.GetAccountByID)
	r.PUT("/accounts/:id", h.UpdateAccount)
	r.DELETE("/accounts/:id", h.DeleteAccount)
	return r
}

func TestAccountHandler_CreateAccount(t *testing.T) {
	t.Run("credit card with limit", func(t *testing.T) {
		var got services.CreateAccountInput
		accounts := &mockAccountService{createAccountFn: func(userID string, input services.CreateAccountInput) (*models.Account, error) {
			got = input
			a := &models.Account{UserID: userID, Name: input.Name, Type: input.Type, Currency: "TRY",
				Balance: input.InitialBalance, CreditCard: input.CreditCard}
			a.ID = accountID
			return a, nil
		}}
		audit := &mockAuditService{}
		r := setupAccountRouter(accounts, audit)

		body := `{"name":"Card","type":"credit_card","currency":"try","initial_balance":"-250",
			"credit_card":{"bank_name":"Garanti","credit_limit":"5000","statement_day":12}}`
		rec := doRequest(r, http.MethodPost, "/accounts", body)
		assertStatus(t, rec, http.StatusCreated)

		if !got.InitialBalance.Equal(decimal.NewFromInt(-250)) {
			t.Errorf("expected initial balance -250, got %s", got.InitialBalance)
		}
		if !got.CreditCard.CreditLimit.Equal(decimal.NewFromInt(5000)) || got.CreditCard.StatementDay != 12 {
			t.Errorf("unexpected credit card details %+v", got.CreditCard)
		}
		if parseJSON(t, rec)["available"] != "4750" {
			t.Errorf("expected available 4750, got %v", parseJSON(t, rec)["available"])
		}
		if len(audit.entries) != 1 || audit.entries[0].resourceID != accountID {
			t.Errorf("expected create audit for %s, got %+v", accountID, audit.entries)
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"type":"cash","currency":"TRY"}`},
		{"unknown type", `{"name":"x","type":"brokerage","currency":"TRY"}`},
		{"unknown currency", `{"name":"x","type":"cash","currency":"ZZZ"}`},
		{"non-decimal balance", `{"name":"x","type":"cash","currency":"TRY","initial_balance":"1,5"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupAccountRouter(&mockAccountService{}, &mockAuditService{})
			rec := doRequest(r, http.MethodPost, "/accounts", tt.body)
			assertStatus(t, rec, http.StatusBadRequest)
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		})
	}
}

func TestAccountHandler_GetUserAccounts(t *testing.T) {
	var gotPage pagination.PageRequest
	accounts := &mockAccountService{getUserAccountsFn: func(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
		gotPage = page
		resp := pagination.NewPageResponse([]models.Account{{UserID: userID}}, 2, 5, 6)
		return &resp, nil
	}}
	r := setupAccountRouter(accounts, &mockAuditService{})

	rec := doRequest(r, http.MethodGet, "/accounts?page=2&page_size=5", "")
	assertStatus(t, rec, http.StatusOK)
	if gotPage.Page != 2 || gotPage.PageSize != 5 {
		t.Errorf("expected page 2 size 5, got %+v", gotPage)
	}
	if parseJSON(t, rec)["total_pages"] != float64(2) {
		t.Errorf("expected 2 total pages, got %v", parseJSON(t, rec)["total_pages"])
	}

	rec = doRequest(r, http.MethodGet, "/accounts?page_size=1000", "")
	assertStatus(t, rec, http.StatusBadRequest)
}

func TestAccountHandler_GetAccountByID(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		r := setupAccountRouter(&mockAccountService{}, &mockAuditService{})
		rec := doRequest(r, http.MethodGet, "/accounts/42", "")
		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("not found", func(t *testing.T) {
		accounts := &mockAccountService{getAccountByIDFn: func(string, string) (*models.Account, error) {
			return nil, apperrors.ErrAccountNotFound
		}}
		r := setupAccountRouter(accounts, &mockAuditService{})
		rec := doRequest(r, http.MethodGet, "/accounts/"+accountID, "")
		assertStatus(t, rec, http.StatusNotFound)
		assertErrorCode(t, parseJSON(t, rec), "ACCOUNT_NOT_FOUND")
	})
}

func TestAccountHandler_UpdateAccount(t *testing.T) {
	var got services.AccountUpdateFields
	accounts := &mockAccountService{updateAccountFn: func(userID, id string, fields services.AccountUpdateFields) (*models.Account, error) {
		got = fields
		a := &models.Account{UserID: userID, Name: *fields.Name}
		a.ID = id
		return a, nil
	}}
	r := setupAccountRouter(accounts, &mockAuditService{})

	rec := doRequest(r, http.MethodPut, "/accounts/"+accountID, `{"name":"Renamed","bank":{"iban":"TR00"}}`)
	assertStatus(t, rec, http.StatusOK)
	if got.Bank == nil || got.Bank.IBAN != "TR00" {
		t.Errorf("expected bank details to pass through, got %+v", got.Bank)
	}
	if got.Description != nil || got.CreditCard != nil {
		t.Error("expected unset fields to stay nil")
	}
}

func TestAccountHandler_DeleteAccount(t *testing.T) {
	audit := &mockAuditService{}
	r := setupAccountRouter(&mockAccountService{}, audit)

	rec := doRequest(r, http.MethodDelete, "/accounts/"+accountID, "")
	assertStatus(t, rec, http.StatusNoContent)
	if len(audit.entries) != 1 || audit.entries[0].action != services.AuditDeleteAccount {
		t.Errorf("expected delete audit, got %v", audit.actions())
	}
}
