package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// failingNotifier persists nothing and fails, forcing the update to roll back.
type failingNotifier struct {
	NotificationService
}

func (failingNotifier) Persist(tx *gorm.DB, event NotificationEvent) (*DispatchResult, error) {
	return nil, errors.New("notification store unavailable")
}

func TestComplianceService_CreateRule(t *testing.T) {
	env := setupTestEnv(t)

	rule := env.createRule(t, "Trade License Renewal", model.CategoryTradeLicense, 365)
	assert.Equal(t, 365, rule.FrequencyDays)
	assert.Equal(t, model.PriorityHigh, rule.Priority)

	_, err := env.compliance.CreateRule(RuleInput{
		Title:     "Trade License Renewal",
		Category:  "trade_license",
		Priority:  "medium",
		Frequency: Flex("30"),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	_, err = env.compliance.CreateRule(RuleInput{Title: "Bad", Category: "invalid_category", Priority: "high"})
	assertInvalid(t, err, "Invalid compliance category")

	env.createRule(t, "VAT Return Filing", model.CategoryTaxRegistration, 90)
	rules, err := env.compliance.ListRules("tax_registration")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "VAT Return Filing", rules[0].Title)

	_, err = env.compliance.GetRule(9999)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestComplianceService_CreateRecord_Defaults(t *testing.T) {
	env := setupTestEnv(t)
	rule := env.createRule(t, "Trade License Renewal", model.CategoryTradeLicense, 365)

	record, err := env.compliance.CreateRecord(context.Background(), env.rc(), CreateRecordInput{RuleID: rule.ID})
	require.NoError(t, err)
	assert.Equal(t, model.ComplianceStatusInProgress, record.Status)
	assert.Equal(t, "2025-06-01", record.LastCheckDate.String())
	assert.Equal(t, "2026-06-01", record.NextDueDate().String())

	history, err := env.compliance.History(env.rc(), record.ID)
	require.NoError(t, err)
	require.Len(t, history.Checks, 1)
	assert.Nil(t, history.Checks[0].FromStatus)
	assert.Equal(t, model.ComplianceStatusInProgress, history.Checks[0].ToStatus)

	assert.Empty(t, env.notificationsFor(t, env.admin.ID), "creating a record raises no notification")

	_, err = env.compliance.CreateRecord(context.Background(), env.rc(), CreateRecordInput{RuleID: 9999})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestComplianceService_UpdateRecord_CheckDate(t *testing.T) {
	env := setupTestEnv(t)
	rule := env.createRule(t, "Trade License Renewal", model.CategoryTradeLicense, 365)
	record := env.createRecord(t, env.rc(), rule.ID, model.ComplianceStatusInProgress, "2025-05-01")

	_, err := env.compliance.UpdateRecord(context.Background(), env.rc(), record.ID, UpdateRecordInput{
		Status:    "compliant",
		CheckDate: "2025-06-02",
	})
	assertInvalid(t, err, "Check date cannot be in the future")

	unchanged, err := env.compliance.GetRecord(env.rc(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ComplianceStatusInProgress, unchanged.Status)
	assert.Equal(t, "2025-05-01", unchanged.LastCheckDate.String())

	updated, err := env.compliance.UpdateRecord(context.Background(), env.rc(), record.ID, UpdateRecordInput{
		Status:    "compliant",
		CheckDate: "2025-06-01",
		Notes:     "Renewed at DED",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ComplianceStatusCompliant, updated.Status)
	assert.Equal(t, "2025-06-01", updated.LastCheckDate.String())
}

func TestComplianceService_UpdateRecord_LinksDocumentAndNotifies(t *testing.T) {
	env := setupTestEnv(t)
	colleague := env.createUser(t, env.company.ID, "officer@example.com")

	rule := env.createRule(t, "Trade License Renewal", model.CategoryTradeLicense, 365)
	record := env.createRecord(t, env.rc(), rule.ID, model.ComplianceStatusInProgress, "")
	doc := env.createDocument(t, env.rc(), "Trade License", model.DocumentTypeLicense, "2026-05-31")

	updated, err := env.compliance.UpdateRecord(context.Background(), env.rc(), record.ID, UpdateRecordInput{
		Status:     "compliant",
		CheckDate:  "2025-06-01",
		Notes:      "License renewed",
		DocumentID: &doc.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.DocumentID)
	assert.Equal(t, doc.ID, *updated.DocumentID)

	linked, err := env.documents.Get(env.rc(), doc.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.ComplianceRecordID)
	assert.Equal(t, record.ID, *linked.ComplianceRecordID)

	for _, user := range []*model.User{env.admin, colleague} {
		notifications := env.notificationsFor(t, user.ID)
		require.Len(t, notifications, 1, user.Email)
		n := notifications[0]
		assert.Equal(t, model.NotificationTypeComplianceUpdate, n.Type)
		assert.Equal(t, model.SubjectCompliance, n.SubjectType)
		assert.Equal(t, record.ID, n.SubjectID)
		assert.Equal(t, model.DeliverySent, n.DeliveryStatus)
		assert.Contains(t, n.Title, "Trade License Renewal")

		emails := env.sender.SentTo(user.Email)
		require.Len(t, emails, 1)
		assert.Equal(t, "Compliance update: Trade License Renewal", emails[0].Subject)
		assert.Contains(t, emails[0].Body, "compliant")
	}

	history, err := env.compliance.History(env.rc(), record.ID)
	require.NoError(t, err)
	require.Len(t, history.Checks, 2)
	require.NotNil(t, history.Checks[1].FromStatus)
	assert.Equal(t, model.ComplianceStatusInProgress, *history.Checks[1].FromStatus)
	assert.Equal(t, model.ComplianceStatusCompliant, history.Checks[1].ToStatus)
	assert.Equal(t, doc.ID, *history.Checks[1].DocumentID)
}

func TestComplianceService_UpdateRecord_SameStatusNoNotification(t *testing.T) {
	env := setupTestEnv(t)
	rule := env.createRule(t, "Trade License Renewal", model.CategoryTradeLicense, 365)
	record := env.createRecord(t, env.rc(), rule.ID, model.ComplianceStatusCompliant, "2025-05-01")

	_, err := env.compliance.UpdateRecord(context.Background(), env.rc(), record.ID, UpdateRecordInput{
		Status:    "compliant",
		CheckDate: "2025-06-01",
		Notes:     "Re-checked",
	})
	require.NoError(t, err)
	assert.Empty(t, env.notificationsFor(t, env.admin.ID))
	assert.Empty(t, env.sender.Sent())
}

func TestComplianceService_UpdateRecord_RollsBackOnFailure(t *testing.T) {
	env := setupTestEnv(t)
	rule := env.createRule(t, "Trade License Renewal", model.CategoryTradeLicense, 365)
	record := env.createRecord(t, env.rc(), rule.ID, model.ComplianceStatusInProgress, "2025-05-01")
	doc := env.createDocument(t, env.rc(), "Trade License", model.DocumentTypeLicense, "")

	compliance := NewComplianceService(env.ruleRepo, env.recordRepo, env.docRepo, failingNotifier{}, env.db, env.policy)
	_, err := compliance.UpdateRecord(context.Background(), env.rc(), record.ID, UpdateRecordInput{
		Status:     "compliant",
		CheckDate:  "2025-06-01",
		DocumentID: &doc.ID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsDependency(err))

	stored, err := env.compliance.GetRecord(env.rc(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ComplianceStatusInProgress, stored.Status)
	assert.Nil(t, stored.DocumentID)

	storedDoc, err := env.documents.Get(env.rc(), doc.ID)
	require.NoError(t, err)
	assert.Nil(t, storedDoc.ComplianceRecordID)

	history, err := env.compliance.History(env.rc(), record.ID)
	require.NoError(t, err)
	assert.Len(t, history.Checks, 1)
}

func TestComplianceService_UpdateRecord_DeliveryFailureKeepsUpdate(t *testing.T) {
	env := setupTestEnv(t)
	rule := env.createRule(t, "Trade License Renewal", model.CategoryTradeLicense, 365)
	record := env.createRecord(t, env.rc(), rule.ID, model.ComplianceStatusInProgress, "2025-05-01")

	env.sender.FailWith(errors.New("ses throttled"))

	updated, err := env.compliance.UpdateRecord(context.Background(), env.rc(), record.ID, UpdateRecordInput{
		Status:    "non_compliant",
		CheckDate: "2025-06-01",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ComplianceStatusNonCompliant, updated.Status)

	notifications := env.notificationsFor(t, env.admin.ID)
	require.Len(t, notifications, 1)
	assert.Equal(t, model.DeliveryFailed, notifications[0].DeliveryStatus)
	assert.Contains(t, notifications[0].DeliveryError, "ses throttled")
}

func TestComplianceService_RecordsAreCompanyScoped(t *testing.T) {
	env := setupTestEnv(t)
	rule := env.createRule(t, "Trade License Renewal", model.CategoryTradeLicense, 365)
	record := env.createRecord(t, env.rc(), rule.ID, model.ComplianceStatusInProgress, "")

	other := env.createCompany(t, "Other Co", "OC-000001")
	otherRC := RequestContext{CompanyID: other.ID}

	_, err := env.compliance.GetRecord(otherRC, record.ID)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = env.compliance.UpdateRecord(context.Background(), otherRC, record.ID, UpdateRecordInput{
		Status:    "compliant",
		CheckDate: "2025-06-01",
	})
	assert.True(t, apperrors.IsNotFound(err))

	doc := env.createDocument(t, otherRC, "Foreign Doc", model.DocumentTypeOther, "")
	_, err = env.compliance.UpdateRecord(context.Background(), env.rc(), record.ID, UpdateRecordInput{
		Status:     "compliant",
		CheckDate:  "2025-06-01",
		DocumentID: &doc.ID,
	})
	assert.True(t, apperrors.IsNotFound(err))

	records, err := env.compliance.ListRecords(env.rc(), ListRecordsInput{Category: "trade_license"})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = env.compliance.ListRecords(otherRC, ListRecordsInput{})
	require.NoError(t, err)
	assert.Empty(t, records)
}
