package model

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeDocumentExpiring NotificationType = "document_expiring"
	NotificationTypeComplianceDue    NotificationType = "compliance_due"
	NotificationTypeComplianceUpdate NotificationType = "compliance_update"
)

// SubjectType names the kind of record a notification is about.
type SubjectType string

const (
	SubjectDocument   SubjectType = "document"
	SubjectCompliance SubjectType = "compliance"
)

type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliverySkipped DeliveryStatus = "skipped"
)

// Notification is the persisted notification of record. Rows are hard
// deleted so the unread dedup index never sees a hidden duplicate.
type Notification struct {
	ID          uint             `gorm:"primarykey" json:"id"`
	CompanyID   uint             `gorm:"not null;index" json:"company_id"`
	UserID      uint             `gorm:"not null;index" json:"user_id"`
	Type        NotificationType `gorm:"type:varchar(50);not null;index" json:"type"`
	SubjectType SubjectType      `gorm:"type:varchar(20);not null" json:"subject_type"`
	SubjectID   uint             `gorm:"not null" json:"subject_id"`
	Title       string           `gorm:"type:varchar(255);not null" json:"title"`
	Message     string           `gorm:"type:text;not null" json:"message"`
	Priority    Priority         `gorm:"type:varchar(20);default:'medium'" json:"priority"`
	DueDate     *Date            `gorm:"type:date" json:"due_date,omitempty"`

	IsRead bool       `gorm:"not null;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	DeliveryStatus DeliveryStatus `gorm:"type:varchar(20);default:'pending'" json:"delivery_status"`
	DeliveryError  string         `gorm:"type:text" json:"delivery_error,omitempty"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}

// NotificationSettings are per-user delivery preferences. They gate outbound
// delivery only; notifications are always persisted.
type NotificationSettings struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`

	// No column defaults: gorm would skip explicit false values on insert.
	EmailEnabled bool `gorm:"not null" json:"email_enabled"`
	SMSEnabled   bool `gorm:"not null" json:"sms_enabled"`

	DocumentExpiring bool `gorm:"not null" json:"document_expiring"`
	ComplianceDue    bool `gorm:"not null" json:"compliance_due"`
	ComplianceUpdate bool `gorm:"not null" json:"compliance_update"`
}

func (NotificationSettings) TableName() string {
	return "notification_settings"
}

// DefaultNotificationSettings is used when a user has no stored settings.
func DefaultNotificationSettings(userID uint) NotificationSettings {
	return NotificationSettings{
		UserID:           userID,
		EmailEnabled:     true,
		DocumentExpiring: true,
		ComplianceDue:    true,
		ComplianceUpdate: true,
	}
}

// Wants reports whether the user accepts delivery of the given type.
func (s *NotificationSettings) Wants(t NotificationType) bool {
	switch t {
	case NotificationTypeDocumentExpiring:
		return s.DocumentExpiring
	case NotificationTypeComplianceDue:
		return s.ComplianceDue
	case NotificationTypeComplianceUpdate:
		return s.ComplianceUpdate
	}
	return false
}
