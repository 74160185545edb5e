package controller

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"github.com/bizcomply/compliance-backend/internal/app/repository"
	"github.com/bizcomply/compliance-backend/internal/app/service"
	"github.com/bizcomply/compliance-backend/internal/db"
	"github.com/bizcomply/compliance-backend/internal/messaging"
	"github.com/bizcomply/compliance-backend/internal/middleware"
	"github.com/bizcomply/compliance-backend/internal/storage"
	"github.com/bizcomply/compliance-backend/pkg/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret"

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type testServer struct {
	router *gin.Engine
	sender *messaging.MemorySender
	auth   service.AuthService
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	policy := storage.DefaultUploadPolicy()
	files, err := storage.NewLocalStorage(t.TempDir(), "", policy)
	require.NoError(t, err)

	clock := util.NewFixedClock(fixedNow)
	sender := messaging.NewMemorySender()
	messenger := messaging.NewMessenger(messaging.NewRenderer(), sender, nil)
	rules := service.Policy{Clock: clock, Location: time.UTC, LookaheadDays: 30}

	userRepo := repository.NewUserRepository(testDB)
	companyRepo := repository.NewCompanyRepository(testDB)
	recordRepo := repository.NewComplianceRecordRepository(testDB)
	docRepo := repository.NewDocumentRepository(testDB)

	authService := service.NewAuthService(userRepo, companyRepo, messenger, clock, testDB, service.AuthConfig{
		Secret:        testJWTSecret,
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 7 * 24 * time.Hour,
	})
	resetService := service.NewPasswordResetService(repository.NewPasswordResetRepository(testDB), userRepo, messenger, clock, testDB)
	notifier := service.NewNotificationService(repository.NewNotificationRepository(testDB), userRepo, companyRepo, messenger, nil, testDB,
		service.NotificationOptions{Clock: clock})
	compliance := service.NewComplianceService(repository.NewComplianceRuleRepository(testDB), recordRepo, docRepo, notifier, testDB, rules)
	documents := service.NewDocumentService(docRepo, recordRepo, files, rules)
	scanner := service.NewExpiryScanner(docRepo, recordRepo, notifier, rules, service.ScannerOptions{})

	authCtrl := NewAuthController(authService, resetService)
	companyCtrl := NewCompanyController(service.NewCompanyService(companyRepo))
	complianceCtrl := NewComplianceController(compliance)
	documentCtrl := NewDocumentController(documents, policy)
	notificationCtrl := NewNotificationController(notifier)
	reportCtrl := NewReportController(service.NewReportService(recordRepo, rules))
	scanCtrl := NewScanController(scanner)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	admin := authMiddleware.RequireRole(model.RoleAdmin)

	r := gin.New()
	r.POST("/auth/register", authCtrl.Register)
	r.POST("/auth/login", authCtrl.Login)
	r.POST("/auth/refresh", authCtrl.RefreshToken)
	r.POST("/auth/forgot-password", authCtrl.ForgotPassword)
	r.POST("/auth/reset-password", authCtrl.ResetPassword)

	api := r.Group("/", authMiddleware.Authenticate())
	api.GET("/auth/me", authCtrl.GetMe)
	api.PUT("/auth/me", authCtrl.UpdateMe)
	api.GET("/company", companyCtrl.GetCompany)

	api.GET("/compliance/rules", complianceCtrl.ListRules)
	api.GET("/compliance/rules/:id", complianceCtrl.GetRule)
	api.POST("/compliance/rules/validate", complianceCtrl.ValidateRule)
	api.POST("/compliance/rules", admin, complianceCtrl.CreateRule)
	api.POST("/compliance/records", complianceCtrl.CreateRecord)
	api.POST("/compliance/records/validate", complianceCtrl.ValidateRecordUpdate)
	api.GET("/compliance/records", complianceCtrl.ListRecords)
	api.GET("/compliance/records/:id", complianceCtrl.GetRecord)
	api.PUT("/compliance/records/:id", complianceCtrl.UpdateRecord)
	api.GET("/compliance/records/:id/history", complianceCtrl.RecordHistory)

	api.POST("/documents", documentCtrl.CreateDocument)
	api.POST("/documents/upload", documentCtrl.UploadDocument)
	api.GET("/documents", documentCtrl.ListDocuments)
	api.GET("/documents/expiring", documentCtrl.ExpiringDocuments)
	api.GET("/documents/:id", documentCtrl.GetDocument)
	api.GET("/documents/:id/download", documentCtrl.DownloadDocument)
	api.DELETE("/documents/:id", documentCtrl.DeleteDocument)

	api.GET("/notifications", notificationCtrl.GetNotifications)
	api.PATCH("/notifications/:id/read", notificationCtrl.MarkAsRead)
	api.PATCH("/notifications/read-all", notificationCtrl.MarkAllAsRead)

	api.GET("/reports/compliance", reportCtrl.GenerateReport)
	api.GET("/admin/scans/preview", admin, scanCtrl.PreviewScan)
	api.POST("/admin/scans", admin, scanCtrl.RunScan)

	return &testServer{router: r, sender: sender, auth: authService}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func registration(license, email string) service.RegisterInput {
	return service.RegisterInput{
		Company: service.RegisterCompanyInput{
			Name:           "Gulf Trading LLC",
			TradeLicenseNo: license,
			Phone:          "+971501112233",
			Email:          "office@gulftrading.ae",
			IndustryType:   "trading",
			CompanyType:    "llc",
		},
		Admin: service.RegisterUserInput{
			FirstName: "Layla",
			LastName:  "Haddad",
			Email:     email,
			Password:  "password123",
		},
	}
}

// registerCompany registers a company and returns its admin's access token.
func (s *testServer) registerCompany(t *testing.T, license, email string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/auth/register", "", registration(license, email))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tokens := decode(t, w)["tokens"].(map[string]interface{})
	return tokens["access_token"].(string)
}

func (s *testServer) createRule(t *testing.T, token, title, category string, frequency int) uint {
	t.Helper()
	w := s.do(t, http.MethodPost, "/compliance/rules", token, gin.H{
		"title":     title,
		"category":  category,
		"priority":  "high",
		"frequency": frequency,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return uint(decode(t, w)["rule"].(map[string]interface{})["id"].(float64))
}

func (s *testServer) createRecord(t *testing.T, token string, ruleID uint, status, checkDate string) uint {
	t.Helper()
	w := s.do(t, http.MethodPost, "/compliance/records", token, gin.H{
		"rule_id":    ruleID,
		"status":     status,
		"check_date": checkDate,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return uint(decode(t, w)["record"].(map[string]interface{})["id"].(float64))
}
