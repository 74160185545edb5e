package repository

import (
	"strings"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"gorm.io/gorm"
)

// DocumentFilter narrows List results. Zero values are ignored. Status is
// matched against the effective status as of Today, so an active document
// past its expiry date is listed as expired.
type DocumentFilter struct {
	Type   *model.DocumentType
	Status *model.DocumentStatus
	Today  model.Date
	Limit  int
	Offset int
}

type DocumentRepository interface {
	Create(doc *model.Document) error
	FindByID(id uint) (*model.Document, error)
	FindByCompany(companyID uint, filter DocumentFilter) ([]model.Document, int64, error)
	Search(companyID uint, query string) ([]model.Document, error)
	FindActiveExpiringBetween(from, to model.Date, companyID *uint) ([]model.Document, error)
	Update(doc *model.Document) error
	LinkToRecord(docID, recordID uint) error
	Delete(id uint) (int64, error)
	WithTx(tx *gorm.DB) DocumentRepository
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) WithTx(tx *gorm.DB) DocumentRepository {
	return &documentRepository{db: tx}
}

func (r *documentRepository) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

func (r *documentRepository) FindByID(id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.First(&doc, id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) FindByCompany(companyID uint, filter DocumentFilter) ([]model.Document, int64, error) {
	var docs []model.Document
	var total int64

	query := r.db.Model(&model.Document{}).Where("company_id = ?", companyID)
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Status != nil {
		query = whereEffectiveStatus(query, *filter.Status, filter.Today)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("id ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if err := query.Find(&docs).Error; err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// Search is a case-insensitive substring match on title, ordered by id.
func (r *documentRepository) Search(companyID uint, query string) ([]model.Document, error) {
	var docs []model.Document
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	err := r.db.
		Where("company_id = ?", companyID).
		Where(`search_title LIKE ? ESCAPE '\'`, pattern).
		Order("id ASC").
		Find(&docs).Error
	return docs, err
}

// FindActiveExpiringBetween returns active documents whose expiry date lies in
// [from, to]. A nil companyID searches every company.
func (r *documentRepository) FindActiveExpiringBetween(from, to model.Date, companyID *uint) ([]model.Document, error) {
	var docs []model.Document
	query := r.db.
		Where("status = ?", model.DocumentStatusActive).
		Where("expiry_date IS NOT NULL AND expiry_date >= ? AND expiry_date <= ?", from, to)
	if companyID != nil {
		query = query.Where("company_id = ?", *companyID)
	}
	err := query.Order("expiry_date ASC, id ASC").Find(&docs).Error
	return docs, err
}

func (r *documentRepository) Update(doc *model.Document) error {
	return r.db.Save(doc).Error
}

func (r *documentRepository) LinkToRecord(docID, recordID uint) error {
	res := r.db.Model(&model.Document{}).Where("id = ?", docID).Update("compliance_record_id", recordID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the record and reports how many rows went away.
func (r *documentRepository) Delete(id uint) (int64, error) {
	res := r.db.Delete(&model.Document{}, id)
	return res.RowsAffected, res.Error
}

func whereEffectiveStatus(query *gorm.DB, status model.DocumentStatus, today model.Date) *gorm.DB {
	switch status {
	case model.DocumentStatusActive:
		return query.Where("status = ? AND (expiry_date IS NULL OR expiry_date >= ?)", model.DocumentStatusActive, today)
	case model.DocumentStatusExpired:
		return query.Where("(status = ? OR (status = ? AND expiry_date IS NOT NULL AND expiry_date < ?))",
			model.DocumentStatusExpired, model.DocumentStatusActive, today)
	default:
		return query.Where("status = ?", status)
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
