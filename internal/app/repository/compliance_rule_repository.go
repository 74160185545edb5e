package repository

import (
	"github.com/bizcomply/compliance-backend/internal/app/model"
	"gorm.io/gorm"
)

type ComplianceRuleRepository interface {
	Create(rule *model.ComplianceRule) error
	FindByID(id uint) (*model.ComplianceRule, error)
	FindAll(category *model.ComplianceCategory) ([]model.ComplianceRule, error)
	WithTx(tx *gorm.DB) ComplianceRuleRepository
}

type complianceRuleRepository struct {
	db *gorm.DB
}

func NewComplianceRuleRepository(db *gorm.DB) ComplianceRuleRepository {
	return &complianceRuleRepository{db: db}
}

func (r *complianceRuleRepository) WithTx(tx *gorm.DB) ComplianceRuleRepository {
	return &complianceRuleRepository{db: tx}
}

func (r *complianceRuleRepository) Create(rule *model.ComplianceRule) error {
	return r.db.Create(rule).Error
}

func (r *complianceRuleRepository) FindByID(id uint) (*model.ComplianceRule, error) {
	var rule model.ComplianceRule
	if err := r.db.First(&rule, id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *complianceRuleRepository) FindAll(category *model.ComplianceCategory) ([]model.ComplianceRule, error) {
	var rules []model.ComplianceRule
	query := r.db.Order("id ASC")
	if category != nil {
		query = query.Where("category = ?", *category)
	}
	err := query.Find(&rules).Error
	return rules, err
}
