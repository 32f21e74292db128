package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "kasa/internal/errors"
	"kasa/internal/logger"
	"kasa/internal/models"
	"kasa/internal/pagination"
	"kasa/internal/validator"
)

// accountService handles account-related business logic.
type accountService struct {
	db *gorm.DB
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB) AccountServicer {
	return &accountService{db: db}
}

// CreateAccount creates an account of any type with its opening balance.
func (s *accountService) CreateAccount(userID string, input CreateAccountInput) (*models.Account, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if !input.Type.Valid() {
		return nil, apperrors.ErrInvalidAccountType
	}

	currency := strings.ToUpper(input.Currency)
	if !validator.ValidCurrency(currency) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "currency must be an ISO 4217 code")
	}

	// Only credit cards may open with a debt.
	if input.InitialBalance.IsNegative() && input.Type != models.AccountTypeCreditCard {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "initial balance cannot be negative")
	}
	if err := checkScale("initial balance", input.InitialBalance); err != nil {
		return nil, err
	}

	if input.Type == models.AccountTypeCreditCard {
		if err := validateCreditCard(input.CreditCard); err != nil {
			return nil, err
		}
	}

	if input.Type == models.AccountTypeCash {
		var count int64
		if err := s.db.Model(&models.Account{}).
			Where("user_id = ? AND type = ? AND currency = ?", userID, models.AccountTypeCash, currency).
			Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("a cash account in %s already exists", currency))
		}
	}

	account := &models.Account{
		UserID:      userID,
		Name:        input.Name,
		Type:        input.Type,
		Description: input.Description,
		Currency:    currency,
		Balance:     input.InitialBalance,
		IsActive:    true,
		Bank:        input.Bank,
		CreditCard:  input.CreditCard,
		Crypto:      input.Crypto,
		VirtualPOS:  input.VirtualPOS,
	}
	account.ClearForeignDetails()

	if err := s.db.Create(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	logger.Get().Infow("account created",
		"user_id", userID,
		"account_id", account.ID,
		"type", account.Type,
		"currency", account.Currency,
	)
	return account, nil
}

func validateCreditCard(d models.CreditCardDetails) error {
	if d.CreditLimit.IsNegative() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "credit limit cannot be negative")
	}
	if err := checkScale("credit limit", d.CreditLimit); err != nil {
		return err
	}
	if d.StatementDay < 0 || d.StatementDay > 31 || d.DueDay < 0 || d.DueDay > 31 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "statement and due day must be between 1 and 31")
	}
	if d.LastFour != "" && len(d.LastFour) != 4 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "last four must be exactly 4 digits")
	}
	return nil
}

// GetUserAccounts retrieves a paginated list of accounts for a user.
func (s *accountService) GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.Account{}).Where("user_id = ?", userID)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := base.Scopes(pagination.Paginate(page)).Order("created_at").Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetAccountByID retrieves an account by ID for a specific user
func (s *accountService) GetAccountByID(userID, accountID string) (*models.Account, error) {
	return s.getAccountWithDB(s.db, userID, accountID)
}

func (s *accountService) getAccountWithDB(db *gorm.DB, userID, accountID string) (*models.Account, error) {
	var account models.Account
	if err := db.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// UpdateAccount updates the descriptive fields of an account. Balance,
// currency and type never change here.
func (s *accountService) UpdateAccount(userID, accountID string, fields AccountUpdateFields) (*models.Account, error) {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if fields.Name != nil && *fields.Name != "" {
		updates["name"] = *fields.Name
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.IsActive != nil {
		updates["is_active"] = *fields.IsActive
	}

	switch account.Type {
	case models.AccountTypeBank:
		if d := fields.Bank; d != nil {
			updates["bank_bank_name"] = d.BankName
			updates["bank_branch"] = d.Branch
			updates["bank_iban"] = d.IBAN
			updates["bank_account_number"] = d.AccountNumber
		}
	case models.AccountTypeCreditCard:
		if d := fields.CreditCard; d != nil {
			if err := validateCreditCard(*d); err != nil {
				return nil, err
			}
			updates["card_bank_name"] = d.BankName
			updates["card_last_four"] = d.LastFour
			updates["card_credit_limit"] = d.CreditLimit
			updates["card_statement_day"] = d.StatementDay
			updates["card_due_day"] = d.DueDay
		}
	case models.AccountTypeCrypto:
		if d := fields.Crypto; d != nil {
			updates["crypto_platform"] = d.Platform
			updates["crypto_network"] = d.Network
			updates["crypto_address"] = d.Address
		}
	case models.AccountTypeVirtualPOS:
		if d := fields.VirtualPOS; d != nil {
			updates["pos_provider"] = d.Provider
			updates["pos_merchant_id"] = d.MerchantID
			updates["pos_commission_rate"] = d.CommissionRate
		}
	}

	if len(updates) > 0 {
		if err := s.db.Model(account).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		// Reload to get fresh data
		if err := s.db.Where("id = ?", account.ID).First(account).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return account, nil
}

// DeleteAccount deactivates and soft-deletes an account. Its transactions keep
// referencing it.
func (s *accountService) DeleteAccount(userID, accountID string) error {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(account).Update("is_active", false).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		logger.Get().Infow("account deleted", "user_id", userID, "account_id", accountID, "balance", account.Balance.String())
		return nil
	})
}

// EnsureCashAccount returns the owner's cash account in currency, creating it
// with a zero balance inside tx when missing.
func (s *accountService) EnsureCashAccount(tx *gorm.DB, userID, currency string) (*models.Account, error) {
	currency = strings.ToUpper(currency)

	var account models.Account
	err := tx.Where("user_id = ? AND type = ? AND currency = ?", userID, models.AccountTypeCash, currency).
		Order("created_at").
		First(&account).Error
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	account = models.Account{
		UserID:   userID,
		Name:     fmt.Sprintf("Cash (%s)", currency),
		Type:     models.AccountTypeCash,
		Currency: currency,
		Balance:  decimal.Zero,
		IsActive: true,
	}
	if err := tx.Create(&account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	logger.Get().Infow("cash account provisioned", "user_id", userID, "account_id", account.ID, "currency", currency)
	return &account, nil
}

// LockAccounts reads the given accounts of userID with row locks held until tx
// ends. Locks are taken in ascending ID order so that concurrent transfers
// between the same accounts cannot deadlock.
func (s *accountService) LockAccounts(tx *gorm.DB, userID string, accountIDs ...string) (map[string]*models.Account, error) {
	ids := make([]string, 0, len(accountIDs))
	seen := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	locked := make(map[string]*models.Account, len(ids))
	for _, id := range ids {
		var account models.Account
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", id, userID).
			First(&account).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrAccountNotFound
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if !account.IsActive {
			return nil, apperrors.WithMessage(apperrors.ErrAccountInactive, fmt.Sprintf("account %q is not active", account.Name))
		}
		locked[id] = &account
	}
	return locked, nil
}

// ApplyBalanceDelta adds delta to the balance of a locked account. A debit
// beyond what the account can cover is rejected without writing anything.
func (s *accountService) ApplyBalanceDelta(tx *gorm.DB, account *models.Account, delta decimal.Decimal) error {
	if delta.IsNegative() && account.Available().Add(delta).IsNegative() {
		return apperrors.WithMessage(apperrors.ErrInsufficientBalance,
			fmt.Sprintf("account %q has %s %s available, %s required",
				account.Name, account.Available().StringFixed(2), account.Currency, delta.Neg().StringFixed(2)))
	}

	balance := account.Balance.Add(delta)
	if err := tx.Model(&models.Account{}).Where("id = ?", account.ID).Update("balance", balance).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	account.Balance = balance
	return nil
}
