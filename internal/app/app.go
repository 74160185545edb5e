// Package app assembles the compliance backend from configuration: storage,
// messaging, services, HTTP handlers and background jobs.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bizcomply/compliance-backend/config"
	"github.com/bizcomply/compliance-backend/internal/app/controller"
	"github.com/bizcomply/compliance-backend/internal/app/repository"
	"github.com/bizcomply/compliance-backend/internal/app/service"
	"github.com/bizcomply/compliance-backend/internal/messaging"
	"github.com/bizcomply/compliance-backend/internal/middleware"
	"github.com/bizcomply/compliance-backend/internal/router"
	"github.com/bizcomply/compliance-backend/internal/scheduler"
	"github.com/bizcomply/compliance-backend/internal/storage"
	"github.com/bizcomply/compliance-backend/internal/websocket"
	"github.com/bizcomply/compliance-backend/pkg/logger"
	redislock "github.com/bizcomply/compliance-backend/pkg/redis"
	"github.com/bizcomply/compliance-backend/pkg/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Options overrides infrastructure chosen from configuration. Zero values
// fall back to the configured drivers and the system clock.
type Options struct {
	Clock       util.Clock
	EmailSender messaging.EmailSender
	SMSSender   messaging.SMSSender
	Locker      *redislock.Locker
}

// Container holds the wired application.
type Container struct {
	Config    *config.Config
	DB        *gorm.DB
	Hub       *websocket.Hub
	Messenger *messaging.Messenger
	Files     storage.FileStorage
	S3        *storage.S3Storage
	Policy    service.Policy

	Auth          service.AuthService
	PasswordReset service.PasswordResetService
	Companies     service.CompanyService
	Notifications service.NotificationService
	Compliance    service.ComplianceService
	Documents     service.DocumentService
	Scanner       service.ExpiryScanner
	Reports       service.ReportService

	Scheduler   *scheduler.ExpiryScheduler
	RateLimiter *middleware.RateLimiter
}

// UploadPolicy converts the storage configuration into an upload policy.
func UploadPolicy(cfg config.StorageConfig) storage.UploadPolicy {
	policy := storage.DefaultUploadPolicy()
	if cfg.MaxSize > 0 {
		policy.MaxSize = cfg.MaxSize
	}
	if len(cfg.AllowedTypes) > 0 {
		policy.AllowedExtensions = cfg.AllowedTypes
	}
	return policy
}

// NewFileStorage opens the configured document store. The S3 store is also
// returned on its own so presigned uploads can be offered.
func NewFileStorage(cfg *config.Config) (storage.FileStorage, *storage.S3Storage, error) {
	policy := UploadPolicy(cfg.Storage)
	switch cfg.Storage.Driver {
	case "s3":
		s3 := storage.NewS3Storage(cfg.S3, policy)
		return s3, s3, nil
	case "local", "":
		key := ""
		if cfg.Storage.EncryptFiles {
			key = cfg.Storage.EncryptionKey
		}
		local, err := storage.NewLocalStorage(cfg.Storage.LocalPath, key, policy)
		if err != nil {
			return nil, nil, err
		}
		return local, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// NewEmailSender returns the configured email provider.
func NewEmailSender(ctx context.Context, cfg config.MailConfig) (messaging.EmailSender, error) {
	switch cfg.Driver {
	case "ses":
		return messaging.NewSESSender(ctx, cfg.Region, cfg.FromAddress, cfg.FromName)
	case "memory", "":
		logger.Warn("Email driver is memory, outbound mail is kept in process only")
		return messaging.NewMemorySender(), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
}

// New wires every service against database.
func New(ctx context.Context, cfg *config.Config, database *gorm.DB, opts Options) (*Container, error) {
	files, s3, err := NewFileStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open file storage: %w", err)
	}

	emailSender := opts.EmailSender
	if emailSender == nil {
		if emailSender, err = NewEmailSender(ctx, cfg.Mail); err != nil {
			return nil, fmt.Errorf("failed to create email sender: %w", err)
		}
	}
	var smsSender messaging.SMSSender
	switch {
	case opts.SMSSender != nil:
		smsSender = opts.SMSSender
	case cfg.SMS.Enabled:
		sns, err := messaging.NewSNSSender(ctx, cfg.SMS.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create SMS sender: %w", err)
		}
		smsSender = sns
	}

	clock := opts.Clock
	if clock == nil {
		clock = util.SystemClock{}
	}
	locker := opts.Locker
	if locker == nil && cfg.Redis.Enabled && redislock.GetClient() != nil {
		locker = redislock.NewLocker(redislock.GetClient())
	}

	c := &Container{
		Config:    cfg,
		DB:        database,
		Hub:       websocket.NewHub(),
		Messenger: messaging.NewMessenger(messaging.NewRenderer(), emailSender, smsSender),
		Files:     files,
		S3:        s3,
		Policy: service.Policy{
			Clock:         clock,
			Location:      cfg.Compliance.Location(),
			LookaheadDays: cfg.Compliance.LookaheadDays,
		},
	}

	userRepo := repository.NewUserRepository(database)
	companyRepo := repository.NewCompanyRepository(database)
	recordRepo := repository.NewComplianceRecordRepository(database)
	docRepo := repository.NewDocumentRepository(database)

	c.Auth = service.NewAuthService(userRepo, companyRepo, c.Messenger, clock, database, service.AuthConfig{
		Secret:        cfg.JWT.Secret,
		AccessExpiry:  cfg.JWT.AccessTokenExpiry,
		RefreshExpiry: cfg.JWT.RefreshTokenExpiry,
	})
	c.PasswordReset = service.NewPasswordResetService(repository.NewPasswordResetRepository(database), userRepo, c.Messenger, clock, database)
	c.Companies = service.NewCompanyService(companyRepo)
	c.Notifications = service.NewNotificationService(
		repository.NewNotificationRepository(database),
		userRepo,
		companyRepo,
		c.Messenger,
		c.Hub,
		database,
		service.NotificationOptions{Clock: clock, DedupWindow: cfg.Compliance.DedupWindow},
	)
	c.Compliance = service.NewComplianceService(repository.NewComplianceRuleRepository(database), recordRepo, docRepo, c.Notifications, database, c.Policy)
	c.Documents = service.NewDocumentService(docRepo, recordRepo, files, c.Policy)
	c.Scanner = service.NewExpiryScanner(docRepo, recordRepo, c.Notifications, c.Policy, service.ScannerOptions{
		Locker:  locker,
		LockTTL: cfg.Compliance.ScanLockTTL,
	})
	c.Reports = service.NewReportService(recordRepo, c.Policy)

	c.Scheduler = scheduler.NewExpiryScheduler(c.Scanner, c.PasswordReset, scheduler.Options{
		ScanSchedule:  cfg.Compliance.ScanSchedule,
		LookaheadDays: cfg.Compliance.LookaheadDays,
		Location:      c.Policy.Location,
	})
	if cfg.RateLimit.Enabled {
		c.RateLimiter = middleware.NewRateLimiter(float64(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst, 5*time.Minute)
	}
	return c, nil
}

// Router builds the HTTP engine.
func (c *Container) Router() *gin.Engine {
	controllers := router.Controllers{
		Auth:         controller.NewAuthController(c.Auth, c.PasswordReset),
		Company:      controller.NewCompanyController(c.Companies),
		Compliance:   controller.NewComplianceController(c.Compliance),
		Document:     controller.NewDocumentController(c.Documents, UploadPolicy(c.Config.Storage)),
		Notification: controller.NewNotificationController(c.Notifications),
		Report:       controller.NewReportController(c.Reports),
		Scan:         controller.NewScanController(c.Scanner),
		WebSocket:    controller.NewWebSocketController(c.Hub),
	}
	if c.S3 != nil {
		controllers.Upload = controller.NewUploadController(c.S3)
	}
	return router.NewRouter(controllers, middleware.NewAuthMiddleware(c.Config.JWT.Secret), c.RateLimiter, c.Config).Setup()
}

// Start launches the hub and, unless disabled, the scheduler.
func (c *Container) Start() error {
	go c.Hub.Run()
	if c.Config.Compliance.SchedulerDisabled {
		logger.Info("Expiry scheduler disabled by configuration")
		return nil
	}
	return c.Scheduler.Start()
}

// Stop halts background work started by Start.
func (c *Container) Stop() {
	if !c.Config.Compliance.SchedulerDisabled {
		c.Scheduler.Stop()
	}
	c.Hub.Stop()
	if c.RateLimiter != nil {
		c.RateLimiter.Stop()
	}
}
