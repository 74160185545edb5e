package model

import (
	"time"
)

type ComplianceCategory string

const (
	CategoryTradeLicense    ComplianceCategory = "trade_license"
	CategoryTaxRegistration ComplianceCategory = "tax_registration"
	CategoryImmigration     ComplianceCategory = "immigration"
	CategoryLabor           ComplianceCategory = "labor"
	CategoryHealthSafety    ComplianceCategory = "health_safety"
	CategoryEnvironmental   ComplianceCategory = "environmental"
	CategoryFinancial       ComplianceCategory = "financial"
)

var ComplianceCategories = []ComplianceCategory{
	CategoryTradeLicense, CategoryTaxRegistration, CategoryImmigration, CategoryLabor,
	CategoryHealthSafety, CategoryEnvironmental, CategoryFinancial,
}

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

type ComplianceStatus string

const (
	ComplianceStatusCompliant     ComplianceStatus = "compliant"
	ComplianceStatusNonCompliant  ComplianceStatus = "non_compliant"
	ComplianceStatusInProgress    ComplianceStatus = "in_progress"
	ComplianceStatusNotApplicable ComplianceStatus = "not_applicable"
)

var ComplianceStatuses = []ComplianceStatus{
	ComplianceStatusCompliant, ComplianceStatusNonCompliant,
	ComplianceStatusInProgress, ComplianceStatusNotApplicable,
}

// ComplianceRule is reference data describing one regulatory obligation.
// FrequencyDays is the number of days between required checks.
type ComplianceRule struct {
	ID            uint               `gorm:"primarykey" json:"id"`
	Title         string             `gorm:"type:varchar(255);not null;uniqueIndex" json:"title"`
	Description   string             `gorm:"type:text" json:"description"`
	Category      ComplianceCategory `gorm:"type:varchar(30);not null;index" json:"category"`
	Priority      Priority           `gorm:"type:varchar(20);not null" json:"priority"`
	FrequencyDays int                `gorm:"not null" json:"frequency"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func (ComplianceRule) TableName() string {
	return "compliance_rules"
}

// ComplianceRecord tracks one company's standing against one rule. Records
// are never deleted; every change is kept in ComplianceCheck rows.
type ComplianceRecord struct {
	ID            uint             `gorm:"primarykey" json:"id"`
	CompanyID     uint             `gorm:"not null;index" json:"company_id"`
	RuleID        uint             `gorm:"not null;index" json:"rule_id"`
	Status        ComplianceStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	LastCheckDate Date             `gorm:"type:date;not null;index" json:"last_check_date"`
	Notes         string           `gorm:"type:text" json:"notes"`
	DocumentID    *uint            `gorm:"index" json:"document_id,omitempty"`
	UpdatedBy     *uint            `json:"updated_by,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`

	Rule *ComplianceRule `gorm:"foreignKey:RuleID" json:"rule,omitempty"`
}

func (ComplianceRecord) TableName() string {
	return "compliance_records"
}

// NextDueDate is the last check date plus the rule's frequency. It is zero
// when the rule is not loaded.
func (r *ComplianceRecord) NextDueDate() Date {
	if r.Rule == nil || r.LastCheckDate.IsZero() {
		return Date{}
	}
	return r.LastCheckDate.AddDays(r.Rule.FrequencyDays)
}

// ComplianceCheck is one entry of a record's audit history.
type ComplianceCheck struct {
	ID         uint              `gorm:"primarykey" json:"id"`
	RecordID   uint              `gorm:"not null;index" json:"record_id"`
	FromStatus *ComplianceStatus `gorm:"type:varchar(20)" json:"from_status,omitempty"`
	ToStatus   ComplianceStatus  `gorm:"type:varchar(20);not null" json:"to_status"`
	CheckDate  Date              `gorm:"type:date;not null" json:"check_date"`
	Notes      string            `gorm:"type:text" json:"notes"`
	DocumentID *uint             `json:"document_id,omitempty"`
	CheckedBy  *uint             `json:"checked_by,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (ComplianceCheck) TableName() string {
	return "compliance_checks"
}
