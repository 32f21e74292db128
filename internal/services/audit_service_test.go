package services

import (
	"encoding/json"
	"testing"

	"kasa/internal/models"
	"kasa/internal/testutil"
)

func TestAuditLog(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAuditService(db)
	user := testutil.CreateTestUser(t, db)

	svc.Log(user.ID, AuditManualRate, "exchange_rate", "USD|2024-03-15", "10.0.0.1",
		map[string]interface{}{"buying": "32", "selling": "32.1"})
	svc.Log(user.ID, AuditDeleteAccount, "account", "acc-1", "10.0.0.1", nil)

	var entries []models.AuditLog
	if err := db.Where("user_id = ?", user.ID).Order("action").Find(&entries).Error; err != nil {
		t.Fatalf("failed to read audit log: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}

	deleted, saved := entries[0], entries[1]
	if deleted.Action != AuditDeleteAccount || deleted.Changes != "" {
		t.Errorf("unexpected delete entry: %+v", deleted)
	}
	if saved.ResourceID != "USD|2024-03-15" || saved.IPAddress != "10.0.0.1" {
		t.Errorf("unexpected rate entry: %+v", saved)
	}

	var changes map[string]string
	if err := json.Unmarshal([]byte(saved.Changes), &changes); err != nil {
		t.Fatalf("changes are not JSON: %v", err)
	}
	if changes["selling"] != "32.1" {
		t.Errorf("expected selling 32.1 in changes, got %v", changes)
	}
}

func TestAuditLog_UnmarshalableChanges(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAuditService(db)

	svc.Log("0190a6b2-7c1e-7d3a-9f00-000000000001", AuditTransfer, "transaction", "tx-1", "",
		map[string]interface{}{"bad": make(chan int)})

	var entry models.AuditLog
	if err := db.Where("action = ?", AuditTransfer).First(&entry).Error; err != nil {
		t.Fatalf("expected the entry to be written anyway: %v", err)
	}
	if entry.Changes != "{}" {
		t.Errorf("expected empty JSON object, got %q", entry.Changes)
	}
}
