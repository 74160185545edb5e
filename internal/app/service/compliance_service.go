package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"github.com/bizcomply/compliance-backend/internal/app/repository"
	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	"github.com/bizcomply/compliance-backend/pkg/logger"
	"gorm.io/gorm"
)

const duplicateRuleMessage = "A compliance rule with this title already exists"

// ListRecordsInput filters a company's compliance records.
type ListRecordsInput struct {
	Status   string `form:"status"`
	Category string `form:"category"`
}

// RecordHistory is a record with its check trail.
type RecordHistory struct {
	Record *model.ComplianceRecord `json:"record"`
	Checks []model.ComplianceCheck `json:"checks"`
}

type ComplianceService interface {
	// Rule catalog
	CreateRule(input RuleInput) (*model.ComplianceRule, error)
	ListRules(category string) ([]model.ComplianceRule, error)
	GetRule(id uint) (*model.ComplianceRule, error)

	// Record tracker
	CreateRecord(ctx context.Context, rc RequestContext, input CreateRecordInput) (*model.ComplianceRecord, error)
	UpdateRecord(ctx context.Context, rc RequestContext, id uint, input UpdateRecordInput) (*model.ComplianceRecord, error)
	GetRecord(rc RequestContext, id uint) (*model.ComplianceRecord, error)
	ListRecords(rc RequestContext, input ListRecordsInput) ([]model.ComplianceRecord, error)
	History(rc RequestContext, id uint) (*RecordHistory, error)
	// CheckUpdate validates an update payload against today without applying it.
	CheckUpdate(input UpdateRecordInput) error
}

type complianceService struct {
	ruleRepo   repository.ComplianceRuleRepository
	recordRepo repository.ComplianceRecordRepository
	docRepo    repository.DocumentRepository
	notifier   NotificationService
	cal        calendar
	db         *gorm.DB
}

func NewComplianceService(
	ruleRepo repository.ComplianceRuleRepository,
	recordRepo repository.ComplianceRecordRepository,
	docRepo repository.DocumentRepository,
	notifier NotificationService,
	db *gorm.DB,
	policy Policy,
) ComplianceService {
	return &complianceService{
		ruleRepo:   ruleRepo,
		recordRepo: recordRepo,
		docRepo:    docRepo,
		notifier:   notifier,
		cal:        policy.calendar(),
		db:         db,
	}
}

// ==================== Rule catalog ====================

func (s *complianceService) CreateRule(input RuleInput) (*model.ComplianceRule, error) {
	frequency, err := ValidateRule(input)
	if err != nil {
		return nil, err
	}

	rule := &model.ComplianceRule{
		Title:         strings.TrimSpace(input.Title),
		Description:   input.Description,
		Category:      model.ComplianceCategory(input.Category),
		Priority:      model.Priority(input.Priority),
		FrequencyDays: frequency,
	}
	if err := s.ruleRepo.Create(rule); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &apperrors.ConflictError{Message: duplicateRuleMessage, Code: apperrors.ResourceAlreadyExists}
		}
		return nil, err
	}

	logger.Info("Compliance rule created", map[string]interface{}{
		"rule_id":  rule.ID,
		"category": rule.Category,
	})
	return rule, nil
}

func (s *complianceService) ListRules(category string) ([]model.ComplianceRule, error) {
	if category == "" {
		return s.ruleRepo.FindAll(nil)
	}
	if !isComplianceCategory(category) {
		return nil, invalid("category", "Invalid compliance category")
	}
	c := model.ComplianceCategory(category)
	return s.ruleRepo.FindAll(&c)
}

func (s *complianceService) GetRule(id uint) (*model.ComplianceRule, error) {
	rule, err := s.ruleRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ruleNotFound(id)
		}
		return nil, err
	}
	return rule, nil
}

// ==================== Record tracker ====================

func (s *complianceService) CreateRecord(ctx context.Context, rc RequestContext, input CreateRecordInput) (*model.ComplianceRecord, error) {
	change, err := ValidateRecordCreate(input, s.cal.today())
	if err != nil {
		return nil, err
	}

	rule, err := s.GetRule(input.RuleID)
	if err != nil {
		return nil, err
	}
	if change.DocumentID != nil {
		if _, err := s.companyDocument(rc, *change.DocumentID); err != nil {
			return nil, err
		}
	}

	record := &model.ComplianceRecord{
		CompanyID:     rc.CompanyID,
		RuleID:        rule.ID,
		Status:        change.Status,
		LastCheckDate: change.CheckDate,
		Notes:         change.Notes,
		DocumentID:    change.DocumentID,
		UpdatedBy:     userRef(rc),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.recordRepo.WithTx(tx).Create(record); err != nil {
			return err
		}
		if record.DocumentID != nil {
			if err := s.docRepo.WithTx(tx).LinkToRecord(*record.DocumentID, record.ID); err != nil {
				return err
			}
		}
		return s.recordRepo.WithTx(tx).CreateCheck(&model.ComplianceCheck{
			RecordID:   record.ID,
			ToStatus:   record.Status,
			CheckDate:  record.LastCheckDate,
			Notes:      record.Notes,
			DocumentID: record.DocumentID,
			CheckedBy:  userRef(rc),
		})
	})
	if err != nil {
		logger.Error("Failed to create compliance record", err, map[string]interface{}{
			"company_id": rc.CompanyID,
			"rule_id":    rule.ID,
		})
		return nil, apperrors.NewDependency("database", err)
	}

	record.Rule = rule
	logger.Info("Compliance record created", map[string]interface{}{
		"record_id":  record.ID,
		"company_id": rc.CompanyID,
		"status":     record.Status,
	})
	return record, nil
}

// UpdateRecord applies a status transition. The record, the document link,
// the check row and the compliance_update notifications commit together;
// delivery runs after commit.
func (s *complianceService) UpdateRecord(ctx context.Context, rc RequestContext, id uint, input UpdateRecordInput) (*model.ComplianceRecord, error) {
	change, err := ValidateRecordUpdate(input, s.cal.today())
	if err != nil {
		return nil, err
	}

	record, err := s.companyRecord(rc, id)
	if err != nil {
		return nil, err
	}
	if change.DocumentID != nil {
		if _, err := s.companyDocument(rc, *change.DocumentID); err != nil {
			return nil, err
		}
	}

	previous := record.Status
	statusChanged := previous != change.Status
	linked := change.DocumentID != nil

	record.Status = change.Status
	record.LastCheckDate = change.CheckDate
	record.Notes = change.Notes
	if linked {
		record.DocumentID = change.DocumentID
	}
	record.UpdatedBy = userRef(rc)

	var (
		event     *NotificationEvent
		persisted *DispatchResult
	)
	if statusChanged || linked {
		e := complianceUpdateEvent(record)
		event = &e
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, apperrors.NewDependency("database", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during compliance update, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"record_id": id,
			})
			panic(r)
		}
	}()

	fail := func(step string, err error) (*model.ComplianceRecord, error) {
		tx.Rollback()
		logger.Error("Compliance update failed, rolled back", err, map[string]interface{}{
			"record_id": id,
			"step":      step,
		})
		return nil, apperrors.NewDependency("database", err)
	}

	if err := s.recordRepo.WithTx(tx).Update(record); err != nil {
		return fail("update_record", err)
	}
	if linked {
		if err := s.docRepo.WithTx(tx).LinkToRecord(*change.DocumentID, record.ID); err != nil {
			return fail("link_document", err)
		}
	}
	from := previous
	if err := s.recordRepo.WithTx(tx).CreateCheck(&model.ComplianceCheck{
		RecordID:   record.ID,
		FromStatus: &from,
		ToStatus:   record.Status,
		CheckDate:  record.LastCheckDate,
		Notes:      record.Notes,
		DocumentID: change.DocumentID,
		CheckedBy:  userRef(rc),
	}); err != nil {
		return fail("create_check", err)
	}
	if event != nil {
		persisted, err = s.notifier.Persist(tx, *event)
		if err != nil {
			return fail("persist_notifications", err)
		}
	}
	if err := tx.Commit().Error; err != nil {
		return fail("commit", err)
	}

	logger.Info("Compliance record updated", map[string]interface{}{
		"record_id":   record.ID,
		"from_status": previous,
		"to_status":   record.Status,
		"document_id": change.DocumentID,
	})

	// Delivery failures are recorded on the notification rows and never
	// undo the committed update.
	if event != nil && persisted != nil && len(persisted.Created) > 0 {
		if err := s.notifier.Deliver(ctx, *event, persisted.Created); err != nil {
			logger.Warn("Compliance update saved but notification delivery failed", map[string]interface{}{
				"record_id": record.ID,
				"error":     err.Error(),
			})
		}
	}

	return record, nil
}

func (s *complianceService) CheckUpdate(input UpdateRecordInput) error {
	_, err := ValidateRecordUpdate(input, s.cal.today())
	return err
}

func (s *complianceService) GetRecord(rc RequestContext, id uint) (*model.ComplianceRecord, error) {
	return s.companyRecord(rc, id)
}

func (s *complianceService) ListRecords(rc RequestContext, input ListRecordsInput) ([]model.ComplianceRecord, error) {
	filter := repository.RecordFilter{}
	if input.Status != "" {
		st, err := ValidateComplianceStatus(input.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &st
	}
	if input.Category != "" {
		if !isComplianceCategory(input.Category) {
			return nil, invalid("category", "Invalid compliance category")
		}
		c := model.ComplianceCategory(input.Category)
		filter.Category = &c
	}
	return s.recordRepo.FindByCompany(rc.CompanyID, filter)
}

func (s *complianceService) History(rc RequestContext, id uint) (*RecordHistory, error) {
	record, err := s.companyRecord(rc, id)
	if err != nil {
		return nil, err
	}
	checks, err := s.recordRepo.FindChecks(record.ID)
	if err != nil {
		return nil, err
	}
	return &RecordHistory{Record: record, Checks: checks}, nil
}

func (s *complianceService) companyRecord(rc RequestContext, id uint) (*model.ComplianceRecord, error) {
	record, err := s.recordRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, recordNotFound(id)
		}
		return nil, err
	}
	if record.CompanyID != rc.CompanyID {
		return nil, recordNotFound(id)
	}
	return record, nil
}

func (s *complianceService) companyDocument(rc RequestContext, id uint) (*model.Document, error) {
	doc, err := s.docRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, documentNotFound(id)
		}
		return nil, err
	}
	if doc.CompanyID != rc.CompanyID {
		return nil, documentNotFound(id)
	}
	return doc, nil
}

// complianceUpdateEvent describes a record change for its company's users.
func complianceUpdateEvent(record *model.ComplianceRecord) NotificationEvent {
	ruleTitle := fmt.Sprintf("Compliance record #%d", record.ID)
	priority := model.PriorityMedium
	if record.Rule != nil {
		ruleTitle = record.Rule.Title
		priority = record.Rule.Priority
	}
	due := record.NextDueDate()

	message := fmt.Sprintf("%s is now %s.", ruleTitle, record.Status)
	if record.Notes != "" {
		message += " Notes: " + record.Notes
	}

	return NotificationEvent{
		CompanyID:   record.CompanyID,
		Type:        model.NotificationTypeComplianceUpdate,
		SubjectType: model.SubjectCompliance,
		SubjectID:   record.ID,
		Title:       "Compliance update: " + ruleTitle,
		Message:     message,
		Priority:    priority,
		DueDate:     due.Ptr(),
		Data: map[string]interface{}{
			"rule_title": ruleTitle,
			"status":     string(record.Status),
			"notes":      record.Notes,
			"due_date":   due.String(),
		},
	}
}

func userRef(rc RequestContext) *uint {
	if rc.UserID == 0 {
		return nil
	}
	id := rc.UserID
	return &id
}

func ruleNotFound(id uint) error {
	return &apperrors.NotFoundError{Resource: "compliance rule", ID: id, Code: apperrors.ComplianceRuleNotFound}
}

func recordNotFound(id uint) error {
	return &apperrors.NotFoundError{Resource: "compliance record", ID: id, Code: apperrors.ComplianceRecordNotFound}
}
