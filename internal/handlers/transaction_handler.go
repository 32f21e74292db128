package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "kasa/internal/errors"
	"kasa/internal/models"
	"kasa/internal/pagination"
	"kasa/internal/services"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// RecordTransactionRequest represents the request payload for recording a
// transaction. Amounts and rates are decimal strings. Account fields take an
// account ID or "cash".
type RecordTransactionRequest struct {
	CategoryID           string                     `json:"category_id" binding:"required,uuid"`
	Type                 models.TransactionType     `json:"type" binding:"required,transaction_type"`
	Amount               string                     `json:"amount" binding:"required,decimal"`
	Currency             string                     `json:"currency" binding:"required,iso4217"`
	ExchangeRate         *string                    `json:"exchange_rate" binding:"omitempty,decimal"`
	FeeAmount            *string                    `json:"fee_amount" binding:"omitempty,decimal"`
	Date                 string                     `json:"date"`
	PaymentMethod        models.PaymentMethod       `json:"payment_method" binding:"omitempty,payment_method"`
	Description          string                     `json:"description" binding:"max=500"`
	SourceAccountID      string                     `json:"source_account_id"`
	DestinationAccountID string                     `json:"destination_account_id"`
	CustomerID           *string                    `json:"customer_id" binding:"omitempty,uuid"`
	SupplierID           *string                    `json:"supplier_id" binding:"omitempty,uuid"`
	Installments         *int                       `json:"installments" binding:"omitempty,min=1,max=36"`
	IsSubscription       bool                       `json:"is_subscription"`
	SubscriptionPeriod   *models.SubscriptionPeriod `json:"subscription_period" binding:"omitempty,subscription_period"`
	NextPaymentDate      *string                    `json:"next_payment_date"`
	IsTaxable            bool                       `json:"is_taxable"`
	TaxRate              *string                    `json:"tax_rate" binding:"omitempty,decimal"`
	HasWithholding       bool                       `json:"has_withholding"`
	WithholdingRate      *string                    `json:"withholding_rate" binding:"omitempty,decimal"`
}

// UpdateTransactionRequest represents the request payload for amending a
// transaction. Routing, type and currency cannot change.
type UpdateTransactionRequest struct {
	CategoryID      *string               `json:"category_id" binding:"omitempty,uuid"`
	Amount          *string               `json:"amount" binding:"omitempty,decimal"`
	ExchangeRate    *string               `json:"exchange_rate" binding:"omitempty,decimal"`
	FeeAmount       *string               `json:"fee_amount" binding:"omitempty,decimal"`
	Date            *string               `json:"date"`
	PaymentMethod   *models.PaymentMethod `json:"payment_method" binding:"omitempty,payment_method"`
	Description     *string               `json:"description" binding:"omitempty,max=500"`
	Installments    *int                  `json:"installments" binding:"omitempty,min=1,max=36"`
	IsTaxable       *bool                 `json:"is_taxable"`
	TaxRate         *string               `json:"tax_rate" binding:"omitempty,decimal"`
	HasWithholding  *bool                 `json:"has_withholding"`
	WithholdingRate *string               `json:"withholding_rate" binding:"omitempty,decimal"`
}

func (r *RecordTransactionRequest) toInput() (services.RecordTransactionInput, error) {
	input := services.RecordTransactionInput{
		CategoryID:           r.CategoryID,
		Type:                 r.Type,
		Currency:             r.Currency,
		PaymentMethod:        r.PaymentMethod,
		Description:          r.Description,
		SourceAccountID:      r.SourceAccountID,
		DestinationAccountID: r.DestinationAccountID,
		CustomerID:           r.CustomerID,
		SupplierID:           r.SupplierID,
		Installments:         r.Installments,
		IsSubscription:       r.IsSubscription,
		SubscriptionPeriod:   r.SubscriptionPeriod,
		IsTaxable:            r.IsTaxable,
		HasWithholding:       r.HasWithholding,
	}

	var err error
	if input.Amount, err = parseDecimal("amount", r.Amount); err != nil {
		return input, err
	}
	if input.ExchangeRate, err = parseOptionalDecimal("exchange_rate", r.ExchangeRate); err != nil {
		return input, err
	}
	if input.FeeAmount, err = parseOptionalDecimal("fee_amount", r.FeeAmount); err != nil {
		return input, err
	}
	if input.TaxRate, err = parseOptionalDecimal("tax_rate", r.TaxRate); err != nil {
		return input, err
	}
	if input.WithholdingRate, err = parseOptionalDecimal("withholding_rate", r.WithholdingRate); err != nil {
		return input, err
	}
	if input.Date, err = parseDate("date", r.Date); err != nil {
		return input, err
	}
	if input.NextPaymentDate, err = parseOptionalDate("next_payment_date", r.NextPaymentDate); err != nil {
		return input, err
	}
	return input, nil
}

func (r *UpdateTransactionRequest) toInput() (services.UpdateTransactionInput, error) {
	input := services.UpdateTransactionInput{
		CategoryID:     r.CategoryID,
		PaymentMethod:  r.PaymentMethod,
		Description:    r.Description,
		Installments:   r.Installments,
		IsTaxable:      r.IsTaxable,
		HasWithholding: r.HasWithholding,
	}

	var err error
	if input.Amount, err = parseOptionalDecimal("amount", r.Amount); err != nil {
		return input, err
	}
	if input.ExchangeRate, err = parseOptionalDecimal("exchange_rate", r.ExchangeRate); err != nil {
		return input, err
	}
	if input.FeeAmount, err = parseOptionalDecimal("fee_amount", r.FeeAmount); err != nil {
		return input, err
	}
	if input.TaxRate, err = parseOptionalDecimal("tax_rate", r.TaxRate); err != nil {
		return input, err
	}
	if input.WithholdingRate, err = parseOptionalDecimal("withholding_rate", r.WithholdingRate); err != nil {
		return input, err
	}
	if input.Date, err = parseOptionalDate("date", r.Date); err != nil {
		return input, err
	}
	return input, nil
}

// RecordTransaction records an income, expense, credit payment or other
// single-leg entry and applies it to the routed balances.
// @Summary     Record a transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Param       request body RecordTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction recorded"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Account or category not found"
// @Failure     422 {object} ErrorResponse "Rate unavailable"
// @Router      /transactions [post]
func (h *TransactionHandler) RecordTransaction(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondWithError(c, err)
		return
	}

	tx, err := h.transactionService.RecordTransaction(c.Request.Context(), userID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	changes := map[string]interface{}{
		"type":     tx.Type,
		"amount":   tx.Amount.String(),
		"currency": tx.Currency,
	}
	h.auditService.Log(userID, services.AuditRecordTransaction, "transaction", tx.ID, c.ClientIP(), changes)
	if req.ExchangeRate != nil {
		h.auditService.Log(userID, services.AuditManualRate, "transaction", tx.ID, c.ClientIP(),
			map[string]interface{}{"exchange_rate": tx.ExchangeRate.String()})
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// GetUserTransactions lists the actor's transactions, newest first.
// @Summary     List transactions
// @Tags        transactions
// @Produce     json
// @Param       from_date       query string false "From date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date         query string false "To date (RFC3339 or YYYY-MM-DD)"
// @Param       type            query string false "Transaction type"
// @Param       category_id     query string false "Category ID"
// @Param       account_id      query string false "Source or destination account ID"
// @Param       is_subscription query bool   false "Only subscriptions"
// @Success     200 {object} pagination.PageResponse[models.Transaction]
// @Router      /transactions [get]
func (h *TransactionHandler) GetUserTransactions(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.GetUserTransactions(userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	var err error
	if v := c.Query("from_date"); v != "" {
		if filter.FromDate, err = parseOptionalDate("from_date", &v); err != nil {
			return filter, err
		}
	}
	if v := c.Query("to_date"); v != "" {
		if filter.ToDate, err = parseOptionalUpperBound("to_date", &v); err != nil {
			return filter, err
		}
	}

	if v := c.Query("type"); v != "" {
		txType := models.TransactionType(v)
		if !txType.Valid() {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid type")
		}
		filter.Type = &txType
	}

	if v := c.Query("category_id"); v != "" {
		if _, err := uuid.Parse(v); err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid category_id")
		}
		filter.CategoryID = &v
	}

	if v := c.Query("account_id"); v != "" {
		if _, err := uuid.Parse(v); err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid account_id")
		}
		filter.AccountID = &v
	}

	if v := c.Query("is_subscription"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid is_subscription")
		}
		filter.IsSubscription = &b
	}

	return filter, nil
}

// GetTransactionByID handles the retrieval of a specific transaction
// @Summary     Get transaction by ID
// @Tags        transactions
// @Produce     json
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction details"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	tx, err := h.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// UpdateTransaction amends the descriptive and derived fields of a transaction.
// Balances are not touched.
// @Summary     Update a transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Param       id      path string                   true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to update"
// @Success     200 {object} models.Transaction
// @Failure     409 {object} ErrorResponse "Transaction not editable"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondWithError(c, err)
		return
	}

	tx, err := h.transactionService.UpdateTransaction(c.Request.Context(), userID, transactionID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditUpdateTransaction, "transaction", tx.ID, c.ClientIP(), nil)
	if req.ExchangeRate != nil {
		h.auditService.Log(userID, services.AuditManualRate, "transaction", tx.ID, c.ClientIP(),
			map[string]interface{}{"exchange_rate": tx.ExchangeRate.String()})
	}

	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// DeleteTransaction removes a transaction and its commission. Balances are
// not touched.
// @Summary     Delete a transaction
// @Tags        transactions
// @Param       id path string true "Transaction ID"
// @Success     204
// @Failure     409 {object} ErrorResponse "Transaction not deletable"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(c.Request.Context(), userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditDeleteTransaction, "transaction", transactionID, c.ClientIP(), nil)

	c.Status(http.StatusNoContent)
}
