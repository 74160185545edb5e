package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type DocumentType string

const (
	DocumentTypeLicense     DocumentType = "license"
	DocumentTypePermit      DocumentType = "permit"
	DocumentTypeCertificate DocumentType = "certificate"
	DocumentTypeContract    DocumentType = "contract"
	DocumentTypeInsurance   DocumentType = "insurance"
	DocumentTypeOther       DocumentType = "other"
)

var DocumentTypes = []DocumentType{
	DocumentTypeLicense, DocumentTypePermit, DocumentTypeCertificate,
	DocumentTypeContract, DocumentTypeInsurance, DocumentTypeOther,
}

type DocumentStatus string

const (
	DocumentStatusActive   DocumentStatus = "active"
	DocumentStatusExpired  DocumentStatus = "expired"
	DocumentStatusArchived DocumentStatus = "archived"
)

var DocumentStatuses = []DocumentStatus{DocumentStatusActive, DocumentStatusExpired, DocumentStatusArchived}

// Document is a regulatory document held by a company. FileRef is the opaque
// key returned by file storage.
type Document struct {
	ID                 uint           `gorm:"primarykey" json:"id"`
	CompanyID          uint           `gorm:"not null;index" json:"company_id"`
	Type               DocumentType   `gorm:"type:varchar(30);not null;index" json:"type"`
	Title              string         `gorm:"type:varchar(255);not null" json:"title"`
	SearchTitle        string         `gorm:"type:varchar(255);index" json:"-"`
	FileRef            string         `gorm:"type:varchar(512);not null" json:"file_ref"`
	OriginalName       string         `gorm:"type:varchar(255)" json:"original_name,omitempty"`
	MimeType           string         `gorm:"type:varchar(100)" json:"mime_type,omitempty"`
	Size               int64          `json:"size,omitempty"`
	ExpiryDate         *Date          `gorm:"type:date;index" json:"expiry_date"`
	Status             DocumentStatus `gorm:"type:varchar(20);default:'active';index" json:"status"`
	ComplianceRecordID *uint          `gorm:"index" json:"compliance_record_id,omitempty"`
	UploadedBy         *uint          `json:"uploaded_by,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (Document) TableName() string {
	return "documents"
}

// BeforeSave keeps SearchTitle in step with Title. Search matches against it
// instead of LOWER(title), which folds only ASCII on SQLite.
func (d *Document) BeforeSave(tx *gorm.DB) error {
	d.SearchTitle = strings.ToLower(d.Title)
	return nil
}

// EffectiveStatus recomputes the stored status against today. An active
// document past its expiry date reads as expired even before a sweep runs.
func (d *Document) EffectiveStatus(today Date) DocumentStatus {
	if d.Status == DocumentStatusActive && d.ExpiryDate != nil && d.ExpiryDate.Before(today) {
		return DocumentStatusExpired
	}
	return d.Status
}
