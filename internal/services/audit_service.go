package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"kasa/internal/logger"
	"kasa/internal/models"
)

// Audit actions recorded by the HTTP layer.
const (
	AuditCreateAccount      = "CREATE_ACCOUNT"
	AuditUpdateAccount      = "UPDATE_ACCOUNT"
	AuditDeleteAccount      = "DELETE_ACCOUNT"
	AuditRecordTransaction  = "RECORD_TRANSACTION"
	AuditUpdateTransaction  = "UPDATE_TRANSACTION"
	AuditDeleteTransaction  = "DELETE_TRANSACTION"
	AuditDuplicate          = "DUPLICATE_TRANSACTION"
	AuditAdvanceSchedule    = "ADVANCE_SUBSCRIPTION"
	AuditEndSubscription    = "END_SUBSCRIPTION"
	AuditTransfer           = "TRANSFER"
	AuditATM                = "ATM"
	AuditManualRate         = "SAVE_MANUAL_RATE"
	AuditCommissionPayout   = "COMMISSION_PAYOUT"
	AuditCommissionSettings = "UPDATE_COMMISSION_SETTINGS"
)

// auditService handles audit log recording.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Errors are logged but never propagate
// to avoid disrupting the main operation.
func (s *auditService) Log(userID string, action, resourceType string, resourceID string, ipAddress string, changes map[string]any) {
	var changesJSON string
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Errorw("failed to marshal audit log changes", "error", err, "action", action)
			changesJSON = "{}"
		} else {
			changesJSON = string(data)
		}
	}

	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      changesJSON,
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}
