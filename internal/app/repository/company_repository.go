package repository

import (
	"github.com/bizcomply/compliance-backend/internal/app/model"
	"gorm.io/gorm"
)

type CompanyRepository interface {
	Create(company *model.Company) error
	FindByID(id uint) (*model.Company, error)
	FindByTradeLicense(tradeLicenseNo string) (*model.Company, error)
	FindActiveIDs() ([]uint, error)
	Update(company *model.Company) error
	WithTx(tx *gorm.DB) CompanyRepository
}

type companyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) WithTx(tx *gorm.DB) CompanyRepository {
	return &companyRepository{db: tx}
}

func (r *companyRepository) Create(company *model.Company) error {
	return r.db.Create(company).Error
}

func (r *companyRepository) FindByID(id uint) (*model.Company, error) {
	var company model.Company
	if err := r.db.First(&company, id).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) FindByTradeLicense(tradeLicenseNo string) (*model.Company, error) {
	var company model.Company
	if err := r.db.Where("trade_license_no = ?", tradeLicenseNo).First(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) FindActiveIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.Company{}).
		Where("status = ?", model.CompanyStatusActive).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *companyRepository) Update(company *model.Company) error {
	return r.db.Save(company).Error
}
