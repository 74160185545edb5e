package service

import (
	"bytes"
	"context"
	"io/fs"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"github.com/bizcomply/compliance-backend/internal/app/repository"
	"github.com/bizcomply/compliance-backend/internal/db"
	"github.com/bizcomply/compliance-backend/internal/messaging"
	"github.com/bizcomply/compliance-backend/internal/storage"
	"github.com/bizcomply/compliance-backend/pkg/util"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fixedNow is 2025-06-01 in UTC, the "today" of every service test.
var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	db          *gorm.DB
	clock       *util.FixedClock
	sender      *messaging.MemorySender
	messenger   *messaging.Messenger
	files       *storage.LocalStorage
	storageRoot string
	policy      Policy

	userRepo    repository.UserRepository
	companyRepo repository.CompanyRepository
	notifRepo   repository.NotificationRepository
	ruleRepo    repository.ComplianceRuleRepository
	recordRepo  repository.ComplianceRecordRepository
	docRepo     repository.DocumentRepository

	notifier   NotificationService
	documents  DocumentService
	compliance ComplianceService
	scanner    ExpiryScanner
	reports    ReportService

	company *model.Company
	admin   *model.User
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	root := t.TempDir()
	files, err := storage.NewLocalStorage(root, "", storage.DefaultUploadPolicy())
	require.NoError(t, err)

	sender := messaging.NewMemorySender()
	env := &testEnv{
		db:          testDB,
		clock:       util.NewFixedClock(fixedNow),
		sender:      sender,
		messenger:   messaging.NewMessenger(messaging.NewRenderer(), sender, nil),
		files:       files,
		storageRoot: root,
		userRepo:    repository.NewUserRepository(testDB),
		companyRepo: repository.NewCompanyRepository(testDB),
		notifRepo:   repository.NewNotificationRepository(testDB),
		ruleRepo:    repository.NewComplianceRuleRepository(testDB),
		recordRepo:  repository.NewComplianceRecordRepository(testDB),
		docRepo:     repository.NewDocumentRepository(testDB),
	}
	env.policy = Policy{Clock: env.clock, Location: time.UTC, LookaheadDays: 30}
	env.wire(NotificationOptions{Clock: env.clock})

	env.company = env.createCompany(t, "Test Company LLC", "TL-123456")
	env.admin = env.createUser(t, env.company.ID, "admin@example.com")
	return env
}

// wire (re)builds the services, letting a test change dispatcher options.
func (e *testEnv) wire(opts NotificationOptions) {
	e.notifier = NewNotificationService(e.notifRepo, e.userRepo, e.companyRepo, e.messenger, nil, e.db, opts)
	e.documents = NewDocumentService(e.docRepo, e.recordRepo, e.files, e.policy)
	e.compliance = NewComplianceService(e.ruleRepo, e.recordRepo, e.docRepo, e.notifier, e.db, e.policy)
	e.scanner = NewExpiryScanner(e.docRepo, e.recordRepo, e.notifier, e.policy, ScannerOptions{})
	e.reports = NewReportService(e.recordRepo, e.policy)
}

func (e *testEnv) rc() RequestContext {
	return RequestContext{CompanyID: e.company.ID, UserID: e.admin.ID}
}

func (e *testEnv) createCompany(t *testing.T, name, license string) *model.Company {
	t.Helper()
	company := &model.Company{
		Name:           name,
		TradeLicenseNo: license,
		Phone:          "+971501234567",
		Email:          "info@example.com",
		IndustryType:   model.IndustryTrading,
		CompanyType:    model.CompanyTypeLLC,
		Status:         model.CompanyStatusActive,
	}
	require.NoError(t, e.companyRepo.Create(company))
	return company
}

func (e *testEnv) createUser(t *testing.T, companyID uint, email string) *model.User {
	t.Helper()
	user := &model.User{
		CompanyID:    companyID,
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "User",
		Role:         model.RoleAdmin,
		Status:       model.UserStatusActive,
	}
	require.NoError(t, e.userRepo.Create(user))
	return user
}

func (e *testEnv) createRule(t *testing.T, title string, category model.ComplianceCategory, frequencyDays int) *model.ComplianceRule {
	t.Helper()
	rule, err := e.compliance.CreateRule(RuleInput{
		Title:     title,
		Category:  string(category),
		Priority:  string(model.PriorityHigh),
		Frequency: Flex(strconv.Itoa(frequencyDays)),
	})
	require.NoError(t, err)
	return rule
}

func (e *testEnv) createRecord(t *testing.T, rc RequestContext, ruleID uint, status model.ComplianceStatus, checkDate string) *model.ComplianceRecord {
	t.Helper()
	record, err := e.compliance.CreateRecord(context.Background(), rc, CreateRecordInput{
		RuleID:    ruleID,
		Status:    string(status),
		CheckDate: checkDate,
	})
	require.NoError(t, err)
	return record
}

func (e *testEnv) storeFile(t *testing.T, companyID uint, name string, content []byte) string {
	t.Helper()
	ref, err := e.files.Store(context.Background(), bytes.NewReader(content), storage.FileMeta{
		CompanyID:    companyID,
		OriginalName: name,
		ContentType:  storage.ContentTypeFor(name),
		Size:         int64(len(content)),
	})
	require.NoError(t, err)
	return ref
}

func (e *testEnv) createDocument(t *testing.T, rc RequestContext, title string, docType model.DocumentType, expiry string) *model.Document {
	t.Helper()
	ref := e.storeFile(t, rc.CompanyID, "document.pdf", []byte("%PDF-1.4 test"))
	doc, err := e.documents.Create(context.Background(), rc, CreateDocumentInput{
		Title:      title,
		Type:       string(docType),
		FileRef:    ref,
		ExpiryDate: expiry,
	})
	require.NoError(t, err)
	return doc
}

// storedFiles counts the regular files under the storage root.
func (e *testEnv) storedFiles(t *testing.T) int {
	t.Helper()
	count := 0
	err := filepath.WalkDir(e.storageRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			count++
		}
		return nil
	})
	require.NoError(t, err)
	return count
}

func (e *testEnv) notificationsFor(t *testing.T, userID uint) []model.Notification {
	t.Helper()
	var notifications []model.Notification
	require.NoError(t, e.db.Where("user_id = ?", userID).Order("id ASC").Find(&notifications).Error)
	return notifications
}

func uintPtr(v uint) *uint { return &v }

func strPtr(v string) *string { return &v }

func boolPtr(v bool) *bool { return &v }
