package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kasa/internal/models"
	"kasa/internal/services"
)

// TransferHandler handles movements between the actor's own accounts.
type TransferHandler struct {
	transferService services.TransferServicer
	auditService    services.AuditServicer
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferService services.TransferServicer, auditService services.AuditServicer) *TransferHandler {
	return &TransferHandler{transferService: transferService, auditService: auditService}
}

// TransferRequest represents the request payload for a transfer. Amount is in
// the source account currency; target_amount or exchange_rate override the
// looked-up cross rate.
type TransferRequest struct {
	SourceAccountID string  `json:"source_account_id" binding:"required,uuid"`
	TargetAccountID string  `json:"target_account_id" binding:"required,uuid"`
	Amount          string  `json:"amount" binding:"required,decimal"`
	TargetAmount    *string `json:"target_amount" binding:"omitempty,decimal"`
	ExchangeRate    *string `json:"exchange_rate" binding:"omitempty,decimal"`
	Date            string  `json:"date"`
	Description     string  `json:"description" binding:"max=500"`
}

// ATMRequest represents the request payload for an ATM withdrawal or deposit.
type ATMRequest struct {
	Type          models.TransactionType `json:"type" binding:"required,oneof=atm_withdraw atm_deposit"`
	BankAccountID string                 `json:"bank_account_id" binding:"required,uuid"`
	Amount        string                 `json:"amount" binding:"required,decimal"`
	Date          string                 `json:"date"`
	Description   string                 `json:"description" binding:"max=500"`
}

// Transfer moves money between two accounts, converting across currencies.
// @Summary     Transfer between accounts
// @Tags        transfers
// @Accept      json
// @Produce     json
// @Param       request body TransferRequest true "Transfer details"
// @Success     201 {object} services.TransferResult
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient balance"
// @Failure     422 {object} ErrorResponse "Rate unavailable"
// @Router      /transfers [post]
func (h *TransferHandler) Transfer(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	input := services.TransferInput{
		SourceAccountID: req.SourceAccountID,
		TargetAccountID: req.TargetAccountID,
		Description:     req.Description,
	}
	if input.Amount, err = parseDecimal("amount", req.Amount); err != nil {
		respondWithError(c, err)
		return
	}
	if input.TargetAmount, err = parseOptionalDecimal("target_amount", req.TargetAmount); err != nil {
		respondWithError(c, err)
		return
	}
	if input.ExchangeRate, err = parseOptionalDecimal("exchange_rate", req.ExchangeRate); err != nil {
		respondWithError(c, err)
		return
	}
	if input.Date, err = parseDate("date", req.Date); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transferService.Transfer(c.Request.Context(), userID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditTransfer, "transaction", result.SourceTransaction.ID, c.ClientIP(),
		map[string]interface{}{
			"target_transaction": result.TargetTransaction.ID,
			"source_amount":      result.SourceAmount.String(),
			"target_amount":      result.TargetAmount.String(),
			"effective_rate":     result.EffectiveRate.String(),
		})

	c.JSON(http.StatusCreated, result)
}

// ATM withdraws cash from, or deposits cash into, a bank account through the
// cash account in the same currency.
// @Summary     ATM withdrawal or deposit
// @Tags        transfers
// @Accept      json
// @Produce     json
// @Param       request body ATMRequest true "ATM details"
// @Success     201 {object} services.TransferResult
// @Router      /atm [post]
func (h *TransferHandler) ATM(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ATMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	input := services.ATMInput{
		Type:          req.Type,
		BankAccountID: req.BankAccountID,
		Description:   req.Description,
	}
	if input.Amount, err = parseDecimal("amount", req.Amount); err != nil {
		respondWithError(c, err)
		return
	}
	if input.Date, err = parseDate("date", req.Date); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transferService.ATM(c.Request.Context(), userID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditATM, "transaction", result.SourceTransaction.ID, c.ClientIP(),
		map[string]interface{}{"type": req.Type, "amount": result.SourceAmount.String()})

	c.JSON(http.StatusCreated, result)
}
