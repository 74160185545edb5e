package model

import (
	"time"

	"gorm.io/gorm"
)

type IndustryType string

const (
	IndustryTrading       IndustryType = "trading"
	IndustryManufacturing IndustryType = "manufacturing"
	IndustryServices      IndustryType = "services"
	IndustryConstruction  IndustryType = "construction"
	IndustryTechnology    IndustryType = "technology"
)

var IndustryTypes = []IndustryType{
	IndustryTrading, IndustryManufacturing, IndustryServices, IndustryConstruction, IndustryTechnology,
}

type CompanyType string

const (
	CompanyTypeLLC                CompanyType = "llc"
	CompanyTypeSoleProprietorship CompanyType = "sole_proprietorship"
	CompanyTypePartnership        CompanyType = "partnership"
	CompanyTypeFreeZone           CompanyType = "free_zone"
	CompanyTypeBranch             CompanyType = "branch"
)

var CompanyTypes = []CompanyType{
	CompanyTypeLLC, CompanyTypeSoleProprietorship, CompanyTypePartnership, CompanyTypeFreeZone, CompanyTypeBranch,
}

type CompanyStatus string

const (
	CompanyStatusActive    CompanyStatus = "active"
	CompanyStatusInactive  CompanyStatus = "inactive"
	CompanyStatusSuspended CompanyStatus = "suspended"
)

var CompanyStatuses = []CompanyStatus{CompanyStatusActive, CompanyStatusInactive, CompanyStatusSuspended}

// Company is the tenant every other record hangs off.
type Company struct {
	ID                uint           `gorm:"primarykey" json:"id"`
	Name              string         `gorm:"type:varchar(255);not null" json:"name"`
	TradeLicenseNo    string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"trade_license_no"`
	TaxRegistrationNo string         `gorm:"type:varchar(50)" json:"tax_registration_no"`
	Address           string         `gorm:"type:text" json:"address"`
	Phone             string         `gorm:"type:varchar(20)" json:"phone"`
	Email             string         `gorm:"type:varchar(255);not null" json:"email"`
	IndustryType      IndustryType   `gorm:"type:varchar(30);not null" json:"industry_type"`
	CompanyType       CompanyType    `gorm:"type:varchar(30);not null" json:"company_type"`
	Status            CompanyStatus  `gorm:"type:varchar(20);default:'active';index" json:"status"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Company) TableName() string {
	return "companies"
}

func (c *Company) IsActive() bool {
	return c.Status == CompanyStatusActive
}
