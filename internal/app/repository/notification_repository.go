package repository

import (
	"errors"
	"time"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationFilter narrows a user's notification list.
type NotificationFilter struct {
	Type   *model.NotificationType
	IsRead *bool
	Limit  int
	Offset int
}

type NotificationRepository interface {
	// Notification operations
	CreateIfAbsent(notification *model.Notification) (bool, error)
	ExistsSince(n *model.Notification, since time.Time) (bool, error)
	GetNotificationByID(id uint) (*model.Notification, error)
	GetNotifications(userID uint, filter NotificationFilter) ([]model.Notification, int64, error)
	GetUnreadCount(userID uint) (int64, error)
	MarkAsRead(id uint, at time.Time) error
	MarkAllAsRead(userID uint, at time.Time) (int64, error)
	UpdateDelivery(id uint, status model.DeliveryStatus, deliveryErr string, at time.Time) error
	DeleteNotification(id uint) error

	// NotificationSettings operations
	GetNotificationSettings(userID uint) (*model.NotificationSettings, error)
	UpdateNotificationSettings(settings *model.NotificationSettings) error

	WithTx(tx *gorm.DB) NotificationRepository
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) WithTx(tx *gorm.DB) NotificationRepository {
	return &notificationRepository{db: tx}
}

// CreateIfAbsent inserts the notification unless an unread one with the same
// dedup tuple exists. The check and insert are one statement against the
// partial unique index, so concurrent scans cannot both insert. It returns
// false when the insert was suppressed.
func (r *notificationRepository) CreateIfAbsent(notification *model.Notification) (bool, error) {
	res := r.db.Omit("User").Clauses(clause.OnConflict{DoNothing: true}).Create(notification)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ExistsSince reports whether a notification with the same tuple, read or
// not, was created at or after since.
func (r *notificationRepository) ExistsSince(n *model.Notification, since time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&model.Notification{}).
		Where("company_id = ? AND user_id = ? AND type = ? AND subject_type = ? AND subject_id = ?",
			n.CompanyID, n.UserID, n.Type, n.SubjectType, n.SubjectID).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count > 0, err
}

func (r *notificationRepository) GetNotificationByID(id uint) (*model.Notification, error) {
	var notification model.Notification
	if err := r.db.First(&notification, id).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *notificationRepository) GetNotifications(userID uint, filter NotificationFilter) ([]model.Notification, int64, error) {
	var notifications []model.Notification
	var total int64

	query := r.db.Model(&model.Notification{}).Where("user_id = ?", userID)

	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.IsRead != nil {
		query = query.Where("is_read = ?", *filter.IsRead)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at DESC, id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&notifications).Error; err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *notificationRepository) GetUnreadCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) MarkAsRead(id uint, at time.Time) error {
	return r.db.Model(&model.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_read": true, "read_at": at}).Error
}

func (r *notificationRepository) MarkAllAsRead(userID uint, at time.Time) (int64, error) {
	res := r.db.Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) UpdateDelivery(id uint, status model.DeliveryStatus, deliveryErr string, at time.Time) error {
	updates := map[string]interface{}{
		"delivery_status": status,
		"delivery_error":  deliveryErr,
	}
	if status == model.DeliverySent {
		updates["delivered_at"] = at
	}
	return r.db.Model(&model.Notification{}).Where("id = ?", id).Updates(updates).Error
}

func (r *notificationRepository) DeleteNotification(id uint) error {
	return r.db.Delete(&model.Notification{}, id).Error
}

// GetNotificationSettings returns stored settings, creating the defaults on
// first access.
func (r *notificationRepository) GetNotificationSettings(userID uint) (*model.NotificationSettings, error) {
	var settings model.NotificationSettings
	err := r.db.Where("user_id = ?", userID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = model.DefaultNotificationSettings(userID)
		if err := r.db.Create(&settings).Error; err != nil {
			return nil, err
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *notificationRepository) UpdateNotificationSettings(settings *model.NotificationSettings) error {
	return r.db.Save(settings).Error
}
