package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"kasa/internal/models"
	"kasa/internal/pagination"
	"kasa/internal/services"
)

// AccountHandler handles account-related requests.
type AccountHandler struct {
	accountService services.AccountServicer
	auditService   services.AuditServicer
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService services.AccountServicer, auditService services.AuditServicer) *AccountHandler {
	return &AccountHandler{accountService: accountService, auditService: auditService}
}

// CreateAccountRequest represents the request payload for creating an account.
// Only the detail block matching Type is kept.
type CreateAccountRequest struct {
	Name           string                     `json:"name" binding:"required,min=1,max=100"`
	Type           models.AccountType         `json:"type" binding:"required,account_type"`
	Description    string                     `json:"description" binding:"max=500"`
	Currency       string                     `json:"currency" binding:"required,iso4217"`
	InitialBalance string                     `json:"initial_balance" binding:"omitempty,decimal"`
	Bank           models.BankDetails         `json:"bank"`
	CreditCard     models.CreditCardDetails   `json:"credit_card"`
	Crypto         models.CryptoWalletDetails `json:"crypto"`
	VirtualPOS     models.VirtualPOSDetails   `json:"virtual_pos"`
}

// UpdateAccountRequest represents the request payload for updating an account.
// Type, currency and balance cannot be changed.
type UpdateAccountRequest struct {
	Name        *string                     `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string                     `json:"description" binding:"omitempty,max=500"`
	IsActive    *bool                       `json:"is_active"`
	Bank        *models.BankDetails         `json:"bank"`
	CreditCard  *models.CreditCardDetails   `json:"credit_card"`
	Crypto      *models.CryptoWalletDetails `json:"crypto"`
	VirtualPOS  *models.VirtualPOSDetails   `json:"virtual_pos"`
}

// AccountResponse represents an account in the response.
type AccountResponse struct {
	Account   models.Account  `json:"account"`
	Available decimal.Decimal `json:"available"`
}

func accountResponse(account *models.Account) AccountResponse {
	return AccountResponse{Account: *account, Available: account.Available()}
}

// CreateAccount handles the creation of a new account of any type.
// @Summary     Create an account
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Param       request body CreateAccountRequest true "Account details"
// @Success     201 {object} AccountResponse "Account created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /accounts [post]
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	input := services.CreateAccountInput{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Currency:    req.Currency,
		Bank:        req.Bank,
		CreditCard:  req.CreditCard,
		Crypto:      req.Crypto,
		VirtualPOS:  req.VirtualPOS,
	}
	if req.InitialBalance != "" {
		if input.InitialBalance, err = parseDecimal("initial_balance", req.InitialBalance); err != nil {
			respondWithError(c, err)
			return
		}
	}

	account, err := h.accountService.CreateAccount(userID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditCreateAccount, "account", account.ID, c.ClientIP(),
		map[string]interface{}{"name": account.Name, "type": account.Type, "currency": account.Currency})

	c.JSON(http.StatusCreated, accountResponse(account))
}

// GetUserAccounts lists the actor's active accounts.
// @Summary     List accounts
// @Tags        accounts
// @Produce     json
// @Param       page      query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.Account]
// @Router      /accounts [get]
func (h *AccountHandler) GetUserAccounts(c *gin.Context) {
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

	result, err := h.accountService.GetUserAccounts(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetAccountByID returns one account with its available balance.
// @Summary     Get an account
// @Tags        accounts
// @Produce     json
// @Param       id path string true "Account ID"
// @Success     200 {object} AccountResponse
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id} [get]
func (h *AccountHandler) GetAccountByID(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.accountService.GetAccountByID(userID, accountID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, accountResponse(account))
}

// UpdateAccount amends the descriptive fields of an account.
// @Summary     Update an account
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Param       id      path string               true "Account ID"
// @Param       request body UpdateAccountRequest true "Fields to update"
// @Success     200 {object} AccountResponse
// @Router      /accounts/{id} [put]
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	account, err := h.accountService.UpdateAccount(userID, accountID, services.AccountUpdateFields{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
		Bank:        req.Bank,
		CreditCard:  req.CreditCard,
		Crypto:      req.Crypto,
		VirtualPOS:  req.VirtualPOS,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditUpdateAccount, "account", account.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, accountResponse(account))
}

// DeleteAccount deactivates an account. Its history is kept.
// @Summary     Delete an account
// @Tags        accounts
// @Param       id path string true "Account ID"
// @Success     204
// @Router      /accounts/{id} [delete]
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.accountService.DeleteAccount(userID, accountID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditDeleteAccount, "account", accountID, c.ClientIP(), nil)

	c.Status(http.StatusNoContent)
}
