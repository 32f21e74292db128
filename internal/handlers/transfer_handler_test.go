package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "kasa/internal/errors"
	"kasa/internal/models"
	"kasa/internal/services"
)

func setupTransferRouter(transfers *mockTransferService, audit *mockAuditService) *gin.Engine {
	h := NewTransferHandler(transfers, audit)
	r := newRouter()
	r.POST("/transfers", h.Transfer)
	r.POST("/atm", h.ATM)
	return r
}

func TestTransferHandler_Transfer(t *testing.T) {
	t.Run("target amount override", func(t *testing.T) {
		var got services.TransferInput
		transfers := &mockTransferService{transferFn: func(_ string, input services.TransferInput) (*services.TransferResult, error) {
			got = input
			res := legs(input.Amount)
			res.TargetAmount = *input.TargetAmount
			res.EffectiveRate = decimal.NewFromInt(33)
			return res, nil
		}}
		audit := &mockAuditService{}
		r := setupTransferRouter(transfers, audit)

		body := `{"source_account_id":"` + accountID + `","target_account_id":"` + otherID + `","amount":"100","target_amount":"3300"}`
		rec := doRequest(r, http.MethodPost, "/transfers", body)
		assertStatus(t, rec, http.StatusCreated)

		if got.TargetAmount == nil || !got.TargetAmount.Equal(decimal.NewFromInt(3300)) || got.ExchangeRate != nil {
			t.Errorf("unexpected overrides %v / %v", got.TargetAmount, got.ExchangeRate)
		}
		result := parseJSON(t, rec)
		if result["effective_rate"] != "33" || result["target_amount"] != "3300" {
			t.Errorf("unexpected result %v", result)
		}
		if len(audit.entries) != 1 || audit.entries[0].changes["target_transaction"] != otherID {
			t.Errorf("expected transfer audit linking both legs, got %+v", audit.entries)
		}
	})

	t.Run("invalid accounts", func(t *testing.T) {
		r := setupTransferRouter(&mockTransferService{}, &mockAuditService{})
		rec := doRequest(r, http.MethodPost, "/transfers", `{"source_account_id":"cash","target_account_id":"`+otherID+`","amount":"1"}`)
		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("insufficient balance", func(t *testing.T) {
		transfers := &mockTransferService{transferFn: func(string, services.TransferInput) (*services.TransferResult, error) {
			return nil, apperrors.ErrInsufficientBalance
		}}
		r := setupTransferRouter(transfers, &mockAuditService{})
		body := `{"source_account_id":"` + accountID + `","target_account_id":"` + otherID + `","amount":"100"}`
		rec := doRequest(r, http.MethodPost, "/transfers", body)
		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "INSUFFICIENT_BALANCE")
	})
}

func TestTransferHandler_ATM(t *testing.T) {
	var got services.ATMInput
	transfers := &mockTransferService{atmFn: func(_ string, input services.ATMInput) (*services.TransferResult, error) {
		got = input
		return legs(input.Amount), nil
	}}
	r := setupTransferRouter(transfers, &mockAuditService{})

	rec := doRequest(r, http.MethodPost, "/atm", `{"type":"atm_withdraw","bank_account_id":"`+accountID+`","amount":"300"}`)
	assertStatus(t, rec, http.StatusCreated)
	if got.Type != models.TransactionTypeATMWithdraw || !got.Amount.Equal(decimal.NewFromInt(300)) {
		t.Errorf("unexpected input %+v", got)
	}

	rec = doRequest(r, http.MethodPost, "/atm", `{"type":"expense","bank_account_id":"`+accountID+`","amount":"300"}`)
	assertStatus(t, rec, http.StatusBadRequest)
}
