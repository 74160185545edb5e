package repository

import (
	"github.com/bizcomply/compliance-backend/internal/app/model"
	"gorm.io/gorm"
)

// RecordFilter narrows record listings. Zero values are ignored.
type RecordFilter struct {
	Status   *model.ComplianceStatus
	Category *model.ComplianceCategory
	From     *model.Date // last check date lower bound, inclusive
	To       *model.Date // last check date upper bound, inclusive
}

type ComplianceRecordRepository interface {
	Create(record *model.ComplianceRecord) error
	FindByID(id uint) (*model.ComplianceRecord, error)
	FindByCompany(companyID uint, filter RecordFilter) ([]model.ComplianceRecord, error)
	FindDueCandidates(from, to model.Date, batchSize int, fn func([]model.ComplianceRecord) error) error
	Update(record *model.ComplianceRecord) error
	CreateCheck(check *model.ComplianceCheck) error
	FindChecks(recordID uint) ([]model.ComplianceCheck, error)
	WithTx(tx *gorm.DB) ComplianceRecordRepository
}

type complianceRecordRepository struct {
	db *gorm.DB
}

func NewComplianceRecordRepository(db *gorm.DB) ComplianceRecordRepository {
	return &complianceRecordRepository{db: db}
}

func (r *complianceRecordRepository) WithTx(tx *gorm.DB) ComplianceRecordRepository {
	return &complianceRecordRepository{db: tx}
}

func (r *complianceRecordRepository) Create(record *model.ComplianceRecord) error {
	return r.db.Omit("Rule").Create(record).Error
}

func (r *complianceRecordRepository) FindByID(id uint) (*model.ComplianceRecord, error) {
	var record model.ComplianceRecord
	if err := r.db.Preload("Rule").First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *complianceRecordRepository) FindByCompany(companyID uint, filter RecordFilter) ([]model.ComplianceRecord, error) {
	var records []model.ComplianceRecord

	query := r.db.Model(&model.ComplianceRecord{}).
		Preload("Rule").
		Where("compliance_records.company_id = ?", companyID)

	if filter.Status != nil {
		query = query.Where("compliance_records.status = ?", *filter.Status)
	}
	if filter.Category != nil {
		query = query.
			Joins("JOIN compliance_rules ON compliance_rules.id = compliance_records.rule_id").
			Where("compliance_rules.category = ?", *filter.Category)
	}
	if filter.From != nil {
		query = query.Where("compliance_records.last_check_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("compliance_records.last_check_date <= ?", *filter.To)
	}

	err := query.Order("compliance_records.id ASC").Find(&records).Error
	return records, err
}

// FindDueCandidates passes fn, batchSize rows at a time in id order, the
// records whose next due date can fall in [from, to], with their rule loaded.
// The bound uses the longest rule frequency, so callers still check each
// record's own due date. not_applicable records never fall due.
func (r *complianceRecordRepository) FindDueCandidates(from, to model.Date, batchSize int, fn func([]model.ComplianceRecord) error) error {
	var maxFrequency int
	if err := r.db.Model(&model.ComplianceRule{}).
		Select("COALESCE(MAX(frequency_days), 0)").
		Scan(&maxFrequency).Error; err != nil {
		return err
	}
	if maxFrequency <= 0 {
		return nil
	}

	var batch []model.ComplianceRecord
	return r.db.Preload("Rule").
		Where("status <> ?", model.ComplianceStatusNotApplicable).
		Where("last_check_date >= ? AND last_check_date < ?", from.AddDays(-maxFrequency), to).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		}).Error
}

func (r *complianceRecordRepository) Update(record *model.ComplianceRecord) error {
	return r.db.Omit("Rule").Save(record).Error
}

func (r *complianceRecordRepository) CreateCheck(check *model.ComplianceCheck) error {
	return r.db.Create(check).Error
}

func (r *complianceRecordRepository) FindChecks(recordID uint) ([]model.ComplianceCheck, error) {
	var checks []model.ComplianceCheck
	err := r.db.Where("record_id = ?", recordID).Order("id ASC").Find(&checks).Error
	return checks, err
}
