package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"github.com/bizcomply/compliance-backend/internal/app/repository"
	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	"github.com/bizcomply/compliance-backend/internal/messaging"
	"github.com/bizcomply/compliance-backend/internal/metrics"
	"github.com/bizcomply/compliance-backend/internal/websocket"
	"github.com/bizcomply/compliance-backend/pkg/logger"
	"github.com/bizcomply/compliance-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrNotificationNotFound  = errors.New("notification not found")
	ErrNotificationForbidden = errors.New("notification belongs to another user")
)

// NotificationEvent is something every active user of a company should hear
// about. Data feeds the email template named after Type.
type NotificationEvent struct {
	CompanyID   uint
	Type        model.NotificationType
	SubjectType model.SubjectType
	SubjectID   uint
	Title       string
	Message     string
	Priority    model.Priority
	DueDate     *model.Date
	Data        map[string]interface{}
}

// DispatchResult lists the notifications persisted for an event.
type DispatchResult struct {
	Created    []model.Notification `json:"created"`
	Suppressed int                  `json:"suppressed"`
}

// BulkEmailResult reports a bulk send. Success is true only when every
// recipient was accepted.
type BulkEmailResult struct {
	Success bool               `json:"success"`
	Sent    int                `json:"sent"`
	Failed  int                `json:"failed"`
	Results []messaging.Result `json:"results"`
	Errors  map[string]string  `json:"errors,omitempty"`
}

// ListNotificationsInput filters a user's notification list.
type ListNotificationsInput struct {
	Type     *model.NotificationType
	IsRead   *bool
	Page     int
	PageSize int
}

// UpdateNotificationSettingsRequest is a partial settings update.
type UpdateNotificationSettingsRequest struct {
	EmailEnabled     *bool `json:"email_enabled"`
	SMSEnabled       *bool `json:"sms_enabled"`
	DocumentExpiring *bool `json:"document_expiring"`
	ComplianceDue    *bool `json:"compliance_due"`
	ComplianceUpdate *bool `json:"compliance_update"`
}

type NotificationService interface {
	// Dispatch persists the event for every active user, then delivers it.
	Dispatch(ctx context.Context, event NotificationEvent) (*DispatchResult, error)
	// Persist writes the event's notifications through tx (or the default
	// connection when tx is nil) without delivering them.
	Persist(tx *gorm.DB, event NotificationEvent) (*DispatchResult, error)
	// Deliver sends persisted notifications and records the outcome on each row.
	Deliver(ctx context.Context, event NotificationEvent, notifications []model.Notification) error

	// Notification operations
	GetNotifications(userID uint, input ListNotificationsInput) ([]model.Notification, int64, int64, error)
	GetUnreadCount(userID uint) (int64, error)
	MarkAsRead(notificationID, userID uint) (*model.Notification, error)
	MarkAllAsRead(userID uint) (int64, error)
	DeleteNotification(notificationID, userID uint) error

	// NotificationSettings operations
	GetNotificationSettings(userID uint) (*model.NotificationSettings, error)
	UpdateNotificationSettings(userID uint, req *UpdateNotificationSettingsRequest) (*model.NotificationSettings, error)

	SendBulkEmail(ctx context.Context, recipients []messaging.Recipient, subject, message string) (*BulkEmailResult, error)
}

type notificationService struct {
	repo        repository.NotificationRepository
	userRepo    repository.UserRepository
	companyRepo repository.CompanyRepository
	messenger   *messaging.Messenger
	hub         *websocket.Hub
	clock       util.Clock
	dedupWindow time.Duration
	db          *gorm.DB
}

// NotificationOptions carries the dispatcher policy.
type NotificationOptions struct {
	Clock util.Clock
	// DedupWindow additionally suppresses an event when an identical
	// notification, read or not, was created within the window. Zero disables it.
	DedupWindow time.Duration
}

func NewNotificationService(
	repo repository.NotificationRepository,
	userRepo repository.UserRepository,
	companyRepo repository.CompanyRepository,
	messenger *messaging.Messenger,
	hub *websocket.Hub,
	db *gorm.DB,
	opts NotificationOptions,
) NotificationService {
	clock := opts.Clock
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &notificationService{
		repo:        repo,
		userRepo:    userRepo,
		companyRepo: companyRepo,
		messenger:   messenger,
		hub:         hub,
		clock:       clock,
		dedupWindow: opts.DedupWindow,
		db:          db,
	}
}

func (s *notificationService) Dispatch(ctx context.Context, event NotificationEvent) (*DispatchResult, error) {
	result, err := s.Persist(nil, event)
	if err != nil {
		return nil, err
	}
	if len(result.Created) == 0 {
		return result, nil
	}
	return result, s.Deliver(ctx, event, result.Created)
}

func (s *notificationService) Persist(tx *gorm.DB, event NotificationEvent) (*DispatchResult, error) {
	repo, userRepo := s.repo, s.userRepo
	if tx != nil {
		repo, userRepo = s.repo.WithTx(tx), s.userRepo.WithTx(tx)
	}

	users, err := userRepo.FindActiveByCompany(event.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipients: %w", err)
	}

	priority := event.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	now := s.clock.Now()
	result := &DispatchResult{}
	for _, user := range users {
		n := model.Notification{
			CompanyID:      event.CompanyID,
			UserID:         user.ID,
			Type:           event.Type,
			SubjectType:    event.SubjectType,
			SubjectID:      event.SubjectID,
			Title:          event.Title,
			Message:        event.Message,
			Priority:       priority,
			DueDate:        event.DueDate,
			DeliveryStatus: model.DeliveryPending,
			CreatedAt:      now,
		}

		if s.dedupWindow > 0 {
			recent, err := repo.ExistsSince(&n, now.Add(-s.dedupWindow))
			if err != nil {
				return nil, fmt.Errorf("failed to check recent notifications: %w", err)
			}
			if recent {
				result.Suppressed++
				metrics.NotificationsSuppressed.WithLabelValues(string(event.Type)).Inc()
				continue
			}
		}

		created, err := repo.CreateIfAbsent(&n)
		if err != nil {
			return nil, fmt.Errorf("failed to persist notification: %w", err)
		}
		if !created {
			result.Suppressed++
			metrics.NotificationsSuppressed.WithLabelValues(string(event.Type)).Inc()
			continue
		}
		metrics.NotificationsCreated.WithLabelValues(string(event.Type)).Inc()
		result.Created = append(result.Created, n)
	}

	logger.Debug("Notifications persisted", map[string]interface{}{
		"company_id": event.CompanyID,
		"type":       event.Type,
		"subject_id": event.SubjectID,
		"created":    len(result.Created),
		"suppressed": result.Suppressed,
	})
	return result, nil
}

func (s *notificationService) Deliver(ctx context.Context, event NotificationEvent, notifications []model.Notification) error {
	data := make(map[string]interface{}, len(event.Data)+1)
	for k, v := range event.Data {
		data[k] = v
	}
	if _, ok := data["company_name"]; !ok {
		data["company_name"] = ""
		if company, err := s.companyRepo.FindByID(event.CompanyID); err == nil {
			data["company_name"] = company.Name
		}
	}

	var failures []error
	for i := range notifications {
		n := &notifications[i]
		if err := s.deliverOne(ctx, n, data); err != nil {
			failures = append(failures, fmt.Errorf("notification %d: %w", n.ID, err))
		}
		s.push(n)
	}

	if len(failures) > 0 {
		err := apperrors.NewDependency("messaging", errors.Join(failures...))
		logger.Error("Notification delivery failed", err, map[string]interface{}{
			"company_id": event.CompanyID,
			"type":       event.Type,
			"failed":     len(failures),
		})
		return err
	}
	return nil
}

// deliverOne sends one notification over the channels its user accepts and
// records the outcome on the row.
func (s *notificationService) deliverOne(ctx context.Context, n *model.Notification, data map[string]interface{}) error {
	user, err := s.userRepo.FindByID(n.UserID)
	if err != nil {
		return s.recordDelivery(n, model.DeliveryFailed, err)
	}
	settings, err := s.repo.GetNotificationSettings(n.UserID)
	if err != nil {
		return s.recordDelivery(n, model.DeliveryFailed, err)
	}

	wantsSMS := settings.SMSEnabled && s.messenger.SMSEnabled() && user.Phone != ""
	if !settings.Wants(n.Type) || (!settings.EmailEnabled && !wantsSMS) {
		return s.recordDelivery(n, model.DeliverySkipped, nil)
	}

	recipient := messaging.Recipient{Name: user.FullName(), Email: user.Email, Phone: user.Phone}
	template := string(n.Type)

	var errs []error
	if settings.EmailEnabled {
		if _, err := s.messenger.Send(ctx, recipient, template, data); err != nil {
			metrics.Deliveries.WithLabelValues(string(messaging.ChannelEmail), "failed").Inc()
			errs = append(errs, err)
		} else {
			metrics.Deliveries.WithLabelValues(string(messaging.ChannelEmail), "sent").Inc()
		}
	}
	if wantsSMS {
		if _, err := s.messenger.SendSMS(ctx, recipient, template, data); err != nil {
			metrics.Deliveries.WithLabelValues(string(messaging.ChannelSMS), "failed").Inc()
			errs = append(errs, err)
		} else {
			metrics.Deliveries.WithLabelValues(string(messaging.ChannelSMS), "sent").Inc()
		}
	}

	if len(errs) > 0 {
		return s.recordDelivery(n, model.DeliveryFailed, errors.Join(errs...))
	}
	return s.recordDelivery(n, model.DeliverySent, nil)
}

// recordDelivery stores the outcome and passes the delivery error through.
func (s *notificationService) recordDelivery(n *model.Notification, status model.DeliveryStatus, deliveryErr error) error {
	now := s.clock.Now()
	msg := ""
	if deliveryErr != nil {
		msg = deliveryErr.Error()
	}
	if err := s.repo.UpdateDelivery(n.ID, status, msg, now); err != nil {
		logger.Error("Failed to record delivery status", err, map[string]interface{}{
			"notification_id": n.ID,
		})
	}
	n.DeliveryStatus = status
	n.DeliveryError = msg
	if status == model.DeliverySent {
		n.DeliveredAt = &now
	}
	return deliveryErr
}

func (s *notificationService) push(n *model.Notification) {
	if s.hub == nil {
		return
	}
	if err := s.hub.SendNotificationToUser(n.UserID, websocket.Event{Type: "notification", Data: n}); err != nil {
		logger.Warn("Failed to push notification", map[string]interface{}{
			"notification_id": n.ID,
			"error":           err.Error(),
		})
	}
}

func (s *notificationService) pushUnreadCount(userID uint) {
	if s.hub == nil {
		return
	}
	count, err := s.repo.GetUnreadCount(userID)
	if err != nil {
		return
	}
	_ = s.hub.SendNotificationToUser(userID, websocket.Event{
		Type: "unread_count",
		Data: map[string]interface{}{"unread_count": count},
	})
}

func (s *notificationService) GetNotifications(userID uint, input ListNotificationsInput) ([]model.Notification, int64, int64, error) {
	page, pageSize := normalizePage(input.Page, input.PageSize)

	notifications, total, err := s.repo.GetNotifications(userID, repository.NotificationFilter{
		Type:   input.Type,
		IsRead: input.IsRead,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		return nil, 0, 0, err
	}

	unreadCount, err := s.repo.GetUnreadCount(userID)
	if err != nil {
		return nil, 0, 0, err
	}

	return notifications, total, unreadCount, nil
}

func (s *notificationService) GetUnreadCount(userID uint) (int64, error) {
	return s.repo.GetUnreadCount(userID)
}

func (s *notificationService) ownedNotification(notificationID, userID uint) (*model.Notification, error) {
	notification, err := s.repo.GetNotificationByID(notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	if notification.UserID != userID {
		return nil, ErrNotificationForbidden
	}
	return notification, nil
}

func (s *notificationService) MarkAsRead(notificationID, userID uint) (*model.Notification, error) {
	notification, err := s.ownedNotification(notificationID, userID)
	if err != nil {
		return nil, err
	}

	if notification.IsRead {
		return notification, nil
	}

	now := s.clock.Now()
	if err := s.repo.MarkAsRead(notificationID, now); err != nil {
		return nil, err
	}

	notification.IsRead = true
	notification.ReadAt = &now
	s.pushUnreadCount(userID)
	return notification, nil
}

func (s *notificationService) MarkAllAsRead(userID uint) (int64, error) {
	updated, err := s.repo.MarkAllAsRead(userID, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		s.pushUnreadCount(userID)
	}
	return updated, nil
}

func (s *notificationService) DeleteNotification(notificationID, userID uint) error {
	if _, err := s.ownedNotification(notificationID, userID); err != nil {
		return err
	}
	return s.repo.DeleteNotification(notificationID)
}

func (s *notificationService) GetNotificationSettings(userID uint) (*model.NotificationSettings, error) {
	return s.repo.GetNotificationSettings(userID)
}

func (s *notificationService) UpdateNotificationSettings(
	userID uint,
	req *UpdateNotificationSettingsRequest,
) (*model.NotificationSettings, error) {
	settings, err := s.repo.GetNotificationSettings(userID)
	if err != nil {
		return nil, err
	}

	if req.EmailEnabled != nil {
		settings.EmailEnabled = *req.EmailEnabled
	}
	if req.SMSEnabled != nil {
		settings.SMSEnabled = *req.SMSEnabled
	}
	if req.DocumentExpiring != nil {
		settings.DocumentExpiring = *req.DocumentExpiring
	}
	if req.ComplianceDue != nil {
		settings.ComplianceDue = *req.ComplianceDue
	}
	if req.ComplianceUpdate != nil {
		settings.ComplianceUpdate = *req.ComplianceUpdate
	}

	if err := s.repo.UpdateNotificationSettings(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *notificationService) SendBulkEmail(ctx context.Context, recipients []messaging.Recipient, subject, message string) (*BulkEmailResult, error) {
	if len(recipients) == 0 {
		return nil, invalid("recipients", "At least one recipient is required")
	}
	if subject == "" || message == "" {
		return nil, invalid("subject", "Subject and message are required")
	}

	result := &BulkEmailResult{Errors: map[string]string{}}
	data := map[string]interface{}{"subject": subject, "message": message}
	for _, to := range recipients {
		sent, err := s.messenger.Send(ctx, to, messaging.TemplateBulk, data)
		if err != nil {
			result.Failed++
			result.Errors[to.Email] = err.Error()
			metrics.Deliveries.WithLabelValues(string(messaging.ChannelEmail), "failed").Inc()
			continue
		}
		result.Sent++
		result.Results = append(result.Results, sent)
		metrics.Deliveries.WithLabelValues(string(messaging.ChannelEmail), "sent").Inc()
	}
	result.Success = result.Failed == 0

	logger.Info("Bulk email sent", map[string]interface{}{
		"sent":   result.Sent,
		"failed": result.Failed,
	})
	if result.Failed > 0 && result.Sent == 0 {
		return result, apperrors.NewDependency("messaging", fmt.Errorf("all %d deliveries failed", result.Failed))
	}
	return result, nil
}

// normalizePage applies the list defaults: page 1, size 20, at most 100.
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
