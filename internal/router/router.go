package router

import (
	"net/http"
	"time"

	"github.com/bizcomply/compliance-backend/config"
	"github.com/bizcomply/compliance-backend/internal/app/controller"
	"github.com/bizcomply/compliance-backend/internal/app/model"
	"github.com/bizcomply/compliance-backend/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Controllers groups the HTTP handlers. Upload is nil unless documents are
// stored on S3.
type Controllers struct {
	Auth         *controller.AuthController
	Company      *controller.CompanyController
	Compliance   *controller.ComplianceController
	Document     *controller.DocumentController
	Notification *controller.NotificationController
	Report       *controller.ReportController
	Scan         *controller.ScanController
	Upload       *controller.UploadController
	WebSocket    *controller.WebSocketController
}

type Router struct {
	controllers    Controllers
	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimiter
	config         *config.Config
}

func NewRouter(
	controllers Controllers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimiter,
	cfg *config.Config,
) *Router {
	return &Router{
		controllers:    controllers,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		config:         cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	corsConfig := cors.Config{
		AllowOrigins:     r.config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(corsConfig))
	if r.rateLimiter != nil {
		router.Use(r.rateLimiter.Middleware())
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Compliance API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	c := r.controllers
	authenticated := r.authMiddleware.Authenticate()
	adminOnly := r.authMiddleware.RequireRole(model.RoleAdmin)
	managers := r.authMiddleware.RequireRole(model.RoleAdmin, model.RoleManager)

	router.GET("/ws", authenticated, c.WebSocket.Connect)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", c.Auth.Register)
			auth.POST("/login", c.Auth.Login)
			auth.POST("/refresh", c.Auth.RefreshToken)
			auth.POST("/forgot-password", c.Auth.ForgotPassword)
			auth.POST("/reset-password", c.Auth.ResetPassword)
			auth.POST("/logout", authenticated, c.Auth.Logout)
			auth.GET("/me", authenticated, c.Auth.GetMe)
			auth.PUT("/me", authenticated, c.Auth.UpdateMe)
		}

		v1.POST("/companies/validate", c.Company.ValidateRegistration)

		company := v1.Group("/company")
		company.Use(authenticated)
		{
			company.GET("", c.Company.GetCompany)
			company.PUT("", adminOnly, c.Company.UpdateCompany)
			company.PATCH("/status", adminOnly, c.Company.UpdateStatus)
		}

		compliance := v1.Group("/compliance")
		compliance.Use(authenticated)
		{
			compliance.GET("/rules", c.Compliance.ListRules)
			compliance.GET("/rules/:id", c.Compliance.GetRule)
			compliance.POST("/rules/validate", c.Compliance.ValidateRule)
			compliance.POST("/rules", adminOnly, c.Compliance.CreateRule)

			compliance.GET("/records", c.Compliance.ListRecords)
			compliance.POST("/records", managers, c.Compliance.CreateRecord)
			compliance.POST("/records/validate", c.Compliance.ValidateRecordUpdate)
			compliance.GET("/records/:id", c.Compliance.GetRecord)
			compliance.PUT("/records/:id", managers, c.Compliance.UpdateRecord)
			compliance.GET("/records/:id/history", c.Compliance.RecordHistory)
		}

		documents := v1.Group("/documents")
		documents.Use(authenticated)
		{
			documents.GET("", c.Document.ListDocuments)
			documents.POST("", c.Document.CreateDocument)
			documents.POST("/upload", c.Document.UploadDocument)
			documents.GET("/search", c.Document.SearchDocuments)
			documents.GET("/expiring", c.Document.ExpiringDocuments)
			documents.GET("/:id", c.Document.GetDocument)
			documents.PATCH("/:id", c.Document.UpdateDocument)
			documents.DELETE("/:id", managers, c.Document.DeleteDocument)
			documents.GET("/:id/download", c.Document.DownloadDocument)
		}

		notifications := v1.Group("/notifications")
		notifications.Use(authenticated)
		{
			notifications.GET("", c.Notification.GetNotifications)
			notifications.GET("/unread-count", c.Notification.GetUnreadCount)
			notifications.GET("/online", c.WebSocket.OnlineUsers)
			notifications.PATCH("/read-all", c.Notification.MarkAllAsRead)
			notifications.PATCH("/:id/read", c.Notification.MarkAsRead)
			notifications.DELETE("/:id", c.Notification.DeleteNotification)
		}

		users := v1.Group("/users")
		users.Use(authenticated)
		{
			users.GET("/notification-settings", c.Notification.GetNotificationSettings)
			users.PUT("/notification-settings", c.Notification.UpdateNotificationSettings)
		}

		reports := v1.Group("/reports")
		reports.Use(authenticated)
		{
			reports.GET("/compliance", c.Report.GenerateReport)
		}

		admin := v1.Group("/admin")
		admin.Use(authenticated, adminOnly)
		{
			admin.GET("/scans/preview", c.Scan.PreviewScan)
			admin.POST("/scans", c.Scan.RunScan)
			admin.POST("/notifications/bulk-email", c.Notification.SendBulkEmail)
		}

		if c.Upload != nil {
			upload := v1.Group("/upload")
			upload.Use(authenticated)
			{
				upload.POST("/presigned-url", c.Upload.GeneratePresignedURL)
			}
		}
	}

	return router
}
