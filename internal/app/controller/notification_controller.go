package controller

import (
	"errors"
	"net/http"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"github.com/bizcomply/compliance-backend/internal/app/service"
	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	"github.com/bizcomply/compliance-backend/internal/messaging"
	"github.com/bizcomply/compliance-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// NotificationController serves the in-app notification inbox
type NotificationController struct {
	service service.NotificationService
}

// NewNotificationController creates a NotificationController
func NewNotificationController(service service.NotificationService) *NotificationController {
	return &NotificationController{
		service: service,
	}
}

// GetNotifications godoc
// @Summary List notifications
// @Description Lists the caller's notifications, newest first
// @Tags notifications
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Param type query string false "Notification type (document_expiring, compliance_due, compliance_update)"
// @Param is_read query bool false "Read state"
// @Success 200 {object} gin.H{data=[]model.Notification,total=int,page=int,page_size=int,unread_count=int}
// @Failure 401 {object} gin.H
// @Security BearerAuth
// @Router /api/v1/notifications [get]
func (c *NotificationController) GetNotifications(ctx *gin.Context) {
	userID, exists := middleware.GetUserID(ctx)
	if !exists {
		apperrors.Unauthorized(ctx, "Authentication required")
		return
	}

	input := service.ListNotificationsInput{
		Page:     queryInt(ctx, "page", 1),
		PageSize: queryInt(ctx, "page_size", 20),
	}
	if typeStr := ctx.Query("type"); typeStr != "" {
		t := model.NotificationType(typeStr)
		input.Type = &t
	}
	switch ctx.Query("is_read") {
	case "true":
		t := true
		input.IsRead = &t
	case "false":
		f := false
		input.IsRead = &f
	}

	notifications, total, unreadCount, err := c.service.GetNotifications(userID, input)
	if err != nil {
		middleware.GetLoggerFromContext(ctx).Error("Failed to list notifications", err)
		apperrors.InternalError(ctx, "Failed to list notifications")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"data":         notifications,
		"total":        total,
		"page":         input.Page,
		"page_size":    input.PageSize,
		"unread_count": unreadCount,
	})
}

// GetUnreadCount godoc
// @Summary Unread notification count
// @Tags notifications
// @Produce json
// @Success 200 {object} gin.H{unread_count=int}
// @Failure 401 {object} gin.H
// @Security BearerAuth
// @Router /api/v1/notifications/unread-count [get]
func (c *NotificationController) GetUnreadCount(ctx *gin.Context) {
	userID, exists := middleware.GetUserID(ctx)
	if !exists {
		apperrors.Unauthorized(ctx, "Authentication required")
		return
	}

	count, err := c.service.GetUnreadCount(userID)
	if err != nil {
		apperrors.InternalError(ctx, "Failed to count unread notifications")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"unread_count": count,
	})
}

// MarkAsRead godoc
// @Summary Mark a notification as read
// @Tags notifications
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} gin.H{notification=model.Notification}
// @Failure 401 {object} gin.H
// @Failure 403 {object} gin.H
// @Failure 404 {object} gin.H
// @Security BearerAuth
// @Router /api/v1/notifications/{id}/read [patch]
func (c *NotificationController) MarkAsRead(ctx *gin.Context) {
	userID, exists := middleware.GetUserID(ctx)
	if !exists {
		apperrors.Unauthorized(ctx, "Authentication required")
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	notification, err := c.service.MarkAsRead(id, userID)
	if err != nil {
		respondNotificationError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"notification": notification,
	})
}

// MarkAllAsRead godoc
// @Summary Mark every notification as read
// @Tags notifications
// @Produce json
// @Success 200 {object} gin.H{updated=int}
// @Failure 401 {object} gin.H
// @Security BearerAuth
// @Router /api/v1/notifications/read-all [patch]
func (c *NotificationController) MarkAllAsRead(ctx *gin.Context) {
	userID, exists := middleware.GetUserID(ctx)
	if !exists {
		apperrors.Unauthorized(ctx, "Authentication required")
		return
	}

	updated, err := c.service.MarkAllAsRead(userID)
	if err != nil {
		apperrors.InternalError(ctx, "Failed to mark notifications as read")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"updated": updated,
	})
}

// DeleteNotification godoc
// @Summary Delete a notification
// @Tags notifications
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} gin.H{message=string}
// @Failure 401 {object} gin.H
// @Failure 403 {object} gin.H
// @Failure 404 {object} gin.H
// @Security BearerAuth
// @Router /api/v1/notifications/{id} [delete]
func (c *NotificationController) DeleteNotification(ctx *gin.Context) {
	userID, exists := middleware.GetUserID(ctx)
	if !exists {
		apperrors.Unauthorized(ctx, "Authentication required")
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	if err := c.service.DeleteNotification(id, userID); err != nil {
		respondNotificationError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Notification deleted",
	})
}

// GetNotificationSettings godoc
// @Summary Get notification settings
// @Tags notifications
// @Produce json
// @Success 200 {object} gin.H{settings=model.NotificationSettings}
// @Failure 401 {object} gin.H
// @Security BearerAuth
// @Router /api/v1/users/notification-settings [get]
func (c *NotificationController) GetNotificationSettings(ctx *gin.Context) {
	userID, exists := middleware.GetUserID(ctx)
	if !exists {
		apperrors.Unauthorized(ctx, "Authentication required")
		return
	}

	settings, err := c.service.GetNotificationSettings(userID)
	if err != nil {
		apperrors.InternalError(ctx, "Failed to load notification settings")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"settings": settings,
	})
}

// UpdateNotificationSettings godoc
// @Summary Update notification settings
// @Tags notifications
// @Accept json
// @Produce json
// @Param request body service.UpdateNotificationSettingsRequest true "Settings patch"
// @Success 200 {object} gin.H{settings=model.NotificationSettings}
// @Failure 400 {object} gin.H
// @Failure 401 {object} gin.H
// @Security BearerAuth
// @Router /api/v1/users/notification-settings [put]
func (c *NotificationController) UpdateNotificationSettings(ctx *gin.Context) {
	userID, exists := middleware.GetUserID(ctx)
	if !exists {
		apperrors.Unauthorized(ctx, "Authentication required")
		return
	}

	var req service.UpdateNotificationSettingsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(ctx, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	settings, err := c.service.UpdateNotificationSettings(userID, &req)
	if err != nil {
		apperrors.InternalError(ctx, "Failed to update notification settings")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"settings": settings,
	})
}

type bulkEmailRecipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// BulkEmailRequest is an administrator broadcast.
type BulkEmailRequest struct {
	Recipients []bulkEmailRecipient `json:"recipients"`
	Subject    string               `json:"subject"`
	Message    string               `json:"message"`
}

// SendBulkEmail godoc
// @Summary Send one message to many recipients
// @Tags notifications
// @Accept json
// @Produce json
// @Param request body BulkEmailRequest true "Broadcast"
// @Success 200 {object} service.BulkEmailResult
// @Failure 400 {object} gin.H
// @Failure 502 {object} gin.H
// @Security BearerAuth
// @Router /api/v1/admin/notifications/bulk-email [post]
func (c *NotificationController) SendBulkEmail(ctx *gin.Context) {
	var req BulkEmailRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(ctx, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	recipients := make([]messaging.Recipient, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		recipients = append(recipients, messaging.Recipient{Name: r.Name, Email: r.Email})
	}

	result, err := c.service.SendBulkEmail(ctx.Request.Context(), recipients, req.Subject, req.Message)
	if err != nil {
		apperrors.RespondError(ctx, err, "send bulk email")
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func respondNotificationError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotificationForbidden):
		apperrors.Forbidden(ctx, "You do not have access to this notification")
	case errors.Is(err, service.ErrNotificationNotFound):
		apperrors.NotFound(ctx, apperrors.NotificationNotFound, "Notification not found")
	default:
		apperrors.RespondError(ctx, err, "update notification")
	}
}
