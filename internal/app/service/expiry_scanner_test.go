package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bizcomply/compliance-backend/internal/app/model"
	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	redislock "github.com/bizcomply/compliance-backend/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateFor(candidates []ExpiryCandidate, subjectType model.SubjectType, id uint) *ExpiryCandidate {
	for i := range candidates {
		if candidates[i].SubjectType == subjectType && candidates[i].SubjectID == id {
			return &candidates[i]
		}
	}
	return nil
}

func TestExpiryScanner_Scan_Window(t *testing.T) {
	env := setupTestEnv(t)

	lastDay := env.createDocument(t, env.rc(), "Trade License", model.DocumentTypeLicense, "2025-07-01")
	outside := env.createDocument(t, env.rc(), "Lease Agreement", model.DocumentTypeContract, "2025-07-02")
	soon := env.createDocument(t, env.rc(), "Fire Safety Certificate", model.DocumentTypeCertificate, "2025-06-05")
	noExpiry := env.createDocument(t, env.rc(), "Articles of Association", model.DocumentTypeOther, "")
	removed := env.createDocument(t, env.rc(), "Old Permit", model.DocumentTypePermit, "2025-06-10")
	dueToday := env.createDocument(t, env.rc(), "Visa Quota Approval", model.DocumentTypePermit, "2025-06-01")
	require.NoError(t, env.documents.Delete(env.rc(), removed.ID))

	candidates, err := env.scanner.Scan(30)
	require.NoError(t, err)

	included := candidateFor(candidates, model.SubjectDocument, lastDay.ID)
	require.NotNil(t, included, "expiry on the last day of the window is included")
	assert.Equal(t, "2025-07-01", included.DueDate.String())
	assert.Equal(t, model.PriorityMedium, included.Priority)
	assert.Equal(t, model.DocumentTypeLicense, included.DocumentType)

	critical := candidateFor(candidates, model.SubjectDocument, soon.ID)
	require.NotNil(t, critical)
	assert.Equal(t, model.PriorityCritical, critical.Priority)

	assert.Nil(t, candidateFor(candidates, model.SubjectDocument, outside.ID))
	assert.Nil(t, candidateFor(candidates, model.SubjectDocument, noExpiry.ID))
	assert.Nil(t, candidateFor(candidates, model.SubjectDocument, removed.ID))

	wider, err := env.scanner.Scan(31)
	require.NoError(t, err)
	assert.NotNil(t, candidateFor(wider, model.SubjectDocument, outside.ID))

	sameDay, err := env.scanner.Scan(0)
	require.NoError(t, err)
	require.Len(t, sameDay, 1, "zero scans today only")
	assert.Equal(t, dueToday.ID, sameDay[0].SubjectID)
	assert.NotNil(t, candidateFor(candidates, model.SubjectDocument, dueToday.ID))
	assert.Equal(t, 30, env.scanner.DefaultLookahead())

	_, err = env.scanner.Scan(-1)
	assertInvalid(t, err, "Lookahead days must not be negative")
}

func TestExpiryScanner_Scan_Records(t *testing.T) {
	env := setupTestEnv(t)
	monthly := env.createRule(t, "Monthly Payroll (WPS)", model.CategoryLabor, 30)
	yearly := env.createRule(t, "Trade License Renewal", model.CategoryTradeLicense, 365)

	due := env.createRecord(t, env.rc(), monthly.ID, model.ComplianceStatusCompliant, "2025-05-15")
	notDue := env.createRecord(t, env.rc(), yearly.ID, model.ComplianceStatusCompliant, "2025-06-01")

	other := env.createCompany(t, "Other Co", "OC-000001")
	exempt := env.createRecord(t, RequestContext{CompanyID: other.ID}, monthly.ID, model.ComplianceStatusNotApplicable, "2025-05-15")

	candidates, err := env.scanner.Scan(30)
	require.NoError(t, err)

	c := candidateFor(candidates, model.SubjectCompliance, due.ID)
	require.NotNil(t, c)
	assert.Equal(t, "2025-06-14", c.DueDate.String())
	assert.Equal(t, "Monthly Payroll (WPS)", c.Title)
	assert.Equal(t, model.PriorityHigh, c.Priority)
	assert.Equal(t, env.company.ID, c.CompanyID)

	assert.Nil(t, candidateFor(candidates, model.SubjectCompliance, notDue.ID))
	assert.Nil(t, candidateFor(candidates, model.SubjectCompliance, exempt.ID))
}

func TestExpiryScanner_Scan_IsReadOnly(t *testing.T) {
	env := setupTestEnv(t)
	doc := env.createDocument(t, env.rc(), "Trade License", model.DocumentTypeLicense, "2025-06-20")

	first, err := env.scanner.Scan(30)
	require.NoError(t, err)
	second, err := env.scanner.Scan(30)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, err := env.documents.Get(env.rc(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusActive, stored.Status)
	assert.Empty(t, env.notificationsFor(t, env.admin.ID))
}

func TestExpiryScanner_Run(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, env.company.ID, "officer@example.com")

	env.createDocument(t, env.rc(), "Trade License", model.DocumentTypeLicense, "2025-06-20")
	rule := env.createRule(t, "Monthly Payroll (WPS)", model.CategoryLabor, 30)
	env.createRecord(t, env.rc(), rule.ID, model.ComplianceStatusCompliant, "2025-05-15")

	report, err := env.scanner.Run(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", report.Today.String())
	assert.Equal(t, 30, report.LookaheadDays)
	assert.Equal(t, 2, report.Candidates)
	assert.Equal(t, 4, report.Notified, "two candidates for two users")
	assert.Zero(t, report.Suppressed)
	assert.Zero(t, report.Failed)

	notifications := env.notificationsFor(t, env.admin.ID)
	require.Len(t, notifications, 2)
	assert.Equal(t, model.NotificationTypeDocumentExpiring, notifications[0].Type)
	assert.Equal(t, "Document expiring: Trade License", notifications[0].Title)
	assert.Equal(t, model.PriorityMedium, notifications[0].Priority)
	require.NotNil(t, notifications[0].DueDate)
	assert.Equal(t, "2025-06-20", notifications[0].DueDate.String())
	assert.Equal(t, model.NotificationTypeComplianceDue, notifications[1].Type)
	assert.Equal(t, "Compliance due: Monthly Payroll (WPS)", notifications[1].Title)

	emails := env.sender.SentTo("admin@example.com")
	require.Len(t, emails, 2)
	assert.Equal(t, "Document expiring: Trade License", emails[0].Subject)

	// an unchanged window raises nothing new while the notifications are unread
	again, err := env.scanner.Run(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Candidates)
	assert.Zero(t, again.Notified)
	assert.Equal(t, 4, again.Suppressed)
	assert.Len(t, env.sender.Sent(), 4)
}

func TestExpiryScanner_Run_ReportsDeliveryFailures(t *testing.T) {
	env := setupTestEnv(t)
	env.createDocument(t, env.rc(), "Trade License", model.DocumentTypeLicense, "2025-06-20")
	env.sender.FailWith(assert.AnError)

	report, err := env.scanner.Run(context.Background(), 30)
	require.Error(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, 1, report.Notified)
	assert.Equal(t, 1, report.Failed)
}

func TestExpiryScanner_Run_Locked(t *testing.T) {
	env := setupTestEnv(t)
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	locker := redislock.NewLocker(client)
	scanner := NewExpiryScanner(env.docRepo, env.recordRepo, env.notifier, env.policy, ScannerOptions{
		Locker:  locker,
		LockTTL: time.Minute,
	})

	held, err := locker.Acquire(context.Background(), "expiry-scan", time.Minute)
	require.NoError(t, err)

	_, err = scanner.Run(context.Background(), 30)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	require.NoError(t, held.Release(context.Background()))
	report, err := scanner.Run(context.Background(), 30)
	require.NoError(t, err)
	assert.Zero(t, report.Candidates)

	assert.False(t, mr.Exists("lock:expiry-scan"), "the scan releases its lock")
}
