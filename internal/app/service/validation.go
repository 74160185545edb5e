package service

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
)

const maxNotesLength = 1000

// ValidationResult is the {valid, error} shape returned by validate endpoints.
type ValidationResult struct {
	Valid bool    `json:"valid"`
	Error *string `json:"error"`
}

// ResultOf converts a validation outcome into a ValidationResult.
func ResultOf(err error) ValidationResult {
	if err == nil {
		return ValidationResult{Valid: true}
	}
	msg := err.Error()
	return ValidationResult{Valid: false, Error: &msg}
}

// FlexibleString accepts a JSON string or a bare JSON value (number, bool)
// and keeps its text, so "30" and 30 validate the same way.
type FlexibleString struct {
	Value string
	Set   bool
}

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*f = FlexibleString{}
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		s, err := strconv.Unquote(raw)
		if err != nil {
			return err
		}
		*f = FlexibleString{Value: s, Set: true}
		return nil
	}
	*f = FlexibleString{Value: raw, Set: true}
	return nil
}

func (f FlexibleString) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(f.Value)), nil
}

// Flex builds a set FlexibleString.
func Flex(v string) FlexibleString {
	return FlexibleString{Value: v, Set: true}
}

func invalid(field, message string) error {
	return apperrors.NewValidation(field, message)
}

func invalidWithCode(field, message, code string) error {
	return &apperrors.ValidationError{Field: field, Message: message, Code: code}
}

// ==================== Compliance rules ====================

// RuleInput is the payload for authoring a compliance rule.
type RuleInput struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Priority    string         `json:"priority"`
	Frequency   FlexibleString `json:"frequency"`
}

func (in RuleInput) empty() bool {
	return in.Title == "" && in.Description == "" && in.Category == "" && in.Priority == "" && !in.Frequency.Set
}

// ValidateRule checks a rule payload and returns the parsed frequency in days.
func ValidateRule(in RuleInput) (int, error) {
	if in.empty() {
		return 0, invalid("", "Compliance rule data is required")
	}
	if in.Category == "" || in.Priority == "" {
		return 0, invalid("category", "Category and priority are required")
	}
	if !isComplianceCategory(in.Category) {
		return 0, invalid("category", "Invalid compliance category")
	}
	if !isPriority(in.Priority) {
		return 0, invalid("priority", "Invalid priority level")
	}
	if strings.TrimSpace(in.Title) == "" {
		return 0, invalid("title", "Title is required")
	}
	return ValidateFrequency(in.Frequency)
}

// ValidateFrequency parses a recurrence in days.
func ValidateFrequency(f FlexibleString) (int, error) {
	value := strings.TrimSpace(f.Value)
	if !f.Set || value == "" {
		return 0, invalid("frequency", "Frequency is required")
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, invalid("frequency", "Frequency must be a number")
	}
	if n <= 0 {
		return 0, invalid("frequency", "Frequency must be positive")
	}
	return n, nil
}

// ==================== Compliance records ====================

// ValidateComplianceStatus checks a record status.
func ValidateComplianceStatus(status string) (model.ComplianceStatus, error) {
	if status == "" {
		return "", invalid("status", "Status is required")
	}
	for _, s := range model.ComplianceStatuses {
		if string(s) == status {
			return s, nil
		}
	}
	return "", invalidWithCode("status", "Invalid compliance status", apperrors.ComplianceInvalidStatus)
}

// ValidateCheckDate parses a check date and rejects dates after today.
func ValidateCheckDate(value string, today model.Date) (model.Date, error) {
	if strings.TrimSpace(value) == "" {
		return model.Date{}, invalid("check_date", "Check date is required")
	}
	d, err := model.ParseDate(value)
	if err != nil {
		return model.Date{}, invalidWithCode("check_date", "Invalid date format", apperrors.ValidationInvalidFormat)
	}
	if d.After(today) {
		return model.Date{}, invalidWithCode("check_date", "Check date cannot be in the future", apperrors.ComplianceFutureCheck)
	}
	return d, nil
}

// ValidateNotes allows empty notes up to maxNotesLength characters.
func ValidateNotes(notes string) error {
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return invalidWithCode("notes", "Notes must not exceed 1000 characters", apperrors.ValidationTooLong)
	}
	return nil
}

// UpdateRecordInput is a status transition on a compliance record.
type UpdateRecordInput struct {
	Status     string `json:"status"`
	CheckDate  string `json:"check_date"`
	Notes      string `json:"notes"`
	DocumentID *uint  `json:"document_id"`
}

// RecordChange is a validated record transition.
type RecordChange struct {
	Status     model.ComplianceStatus
	CheckDate  model.Date
	Notes      string
	DocumentID *uint
}

// ValidateRecordUpdate checks a transition. Every failure leaves state untouched.
func ValidateRecordUpdate(in UpdateRecordInput, today model.Date) (*RecordChange, error) {
	if in.Status == "" && in.CheckDate == "" && in.Notes == "" && in.DocumentID == nil {
		return nil, invalid("", "Update data is required")
	}
	status, err := ValidateComplianceStatus(in.Status)
	if err != nil {
		return nil, err
	}
	checkDate, err := ValidateCheckDate(in.CheckDate, today)
	if err != nil {
		return nil, err
	}
	if err := ValidateNotes(in.Notes); err != nil {
		return nil, err
	}
	if in.DocumentID != nil && *in.DocumentID == 0 {
		return nil, invalidWithCode("document_id", "Invalid document ID", apperrors.ValidationInvalidID)
	}
	return &RecordChange{Status: status, CheckDate: checkDate, Notes: in.Notes, DocumentID: in.DocumentID}, nil
}

// CreateRecordInput starts tracking a rule for the caller's company.
type CreateRecordInput struct {
	RuleID     uint   `json:"rule_id"`
	Status     string `json:"status"`
	CheckDate  string `json:"check_date"`
	Notes      string `json:"notes"`
	DocumentID *uint  `json:"document_id"`
}

// ValidateRecordCreate applies the creation defaults: in_progress and today.
func ValidateRecordCreate(in CreateRecordInput, today model.Date) (*RecordChange, error) {
	if in.RuleID == 0 {
		return nil, invalid("rule_id", "Rule ID is required")
	}
	out := &RecordChange{Status: model.ComplianceStatusInProgress, CheckDate: today, Notes: in.Notes, DocumentID: in.DocumentID}
	if in.Status != "" {
		status, err := ValidateComplianceStatus(in.Status)
		if err != nil {
			return nil, err
		}
		out.Status = status
	}
	if in.CheckDate != "" {
		d, err := ValidateCheckDate(in.CheckDate, today)
		if err != nil {
			return nil, err
		}
		out.CheckDate = d
	}
	if err := ValidateNotes(in.Notes); err != nil {
		return nil, err
	}
	if in.DocumentID != nil && *in.DocumentID == 0 {
		return nil, invalidWithCode("document_id", "Invalid document ID", apperrors.ValidationInvalidID)
	}
	return out, nil
}

// ==================== Reports ====================

// ReportCriteriaInput selects the records a report covers.
type ReportCriteriaInput struct {
	FromDate string `json:"from_date" form:"from_date"`
	ToDate   string `json:"to_date" form:"to_date"`
	Category string `json:"category" form:"category"`
	Status   string `json:"status" form:"status"`
}

// ReportCriteria is validated report input.
type ReportCriteria struct {
	CompanyID uint
	FromDate  model.Date
	ToDate    model.Date
	Category  *model.ComplianceCategory
	Status    *model.ComplianceStatus
}

// ValidateReportCriteria parses the date range and optional filters.
func ValidateReportCriteria(in ReportCriteriaInput) (*ReportCriteria, error) {
	if in.FromDate == "" && in.ToDate == "" && in.Category == "" && in.Status == "" {
		return nil, invalid("", "Report criteria is required")
	}
	if in.FromDate == "" || in.ToDate == "" {
		return nil, invalid("from_date", "From date and to date are required")
	}
	from, err := model.ParseDate(in.FromDate)
	if err != nil {
		return nil, invalidWithCode("from_date", "Invalid date format", apperrors.ValidationInvalidFormat)
	}
	to, err := model.ParseDate(in.ToDate)
	if err != nil {
		return nil, invalidWithCode("to_date", "Invalid date format", apperrors.ValidationInvalidFormat)
	}
	if from.After(to) {
		return nil, invalidWithCode("from_date", "Invalid date range", apperrors.ReportInvalidRange)
	}

	criteria := &ReportCriteria{FromDate: from, ToDate: to}
	if in.Category != "" {
		if !isComplianceCategory(in.Category) {
			return nil, invalid("category", "Invalid compliance category")
		}
		c := model.ComplianceCategory(in.Category)
		criteria.Category = &c
	}
	if in.Status != "" {
		s, err := ValidateComplianceStatus(in.Status)
		if err != nil {
			return nil, err
		}
		criteria.Status = &s
	}
	return criteria, nil
}

// ==================== Documents ====================

const maxTitleLength = 255

// CreateDocumentInput describes a document whose file is already stored.
type CreateDocumentInput struct {
	Title              string `json:"title" form:"title"`
	Type               string `json:"type" form:"type"`
	FileRef            string `json:"file_ref" form:"file_ref"`
	ExpiryDate         string `json:"expiry_date" form:"expiry_date"`
	ComplianceRecordID *uint  `json:"compliance_record_id" form:"compliance_record_id"`
	OriginalName       string `json:"original_name"`
	MimeType           string `json:"mime_type"`
	Size               int64  `json:"size"`
}

// UpdateDocumentInput is a partial update. Nil fields are left alone; an
// empty expiry date clears it.
type UpdateDocumentInput struct {
	Title      *string `json:"title"`
	Type       *string `json:"type"`
	ExpiryDate *string `json:"expiry_date"`
	Status     *string `json:"status"`
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return invalid("title", "Title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return invalidWithCode("title", "Title must not exceed 255 characters", apperrors.ValidationTooLong)
	}
	return nil
}

func validateDocumentType(t string) (model.DocumentType, error) {
	if t == "" {
		return "", invalid("type", "Document type is required")
	}
	for _, dt := range model.DocumentTypes {
		if string(dt) == t {
			return dt, nil
		}
	}
	return "", invalidWithCode("type", "Invalid document type", apperrors.DocumentInvalidType)
}

func validateDocumentStatus(s string) (model.DocumentStatus, error) {
	for _, ds := range model.DocumentStatuses {
		if string(ds) == s {
			return ds, nil
		}
	}
	return "", invalid("status", "Invalid document status")
}

// validateExpiryDate parses an optional expiry date. Empty means none.
func validateExpiryDate(value string) (*model.Date, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	d, err := model.ParseDate(value)
	if err != nil {
		return nil, invalidWithCode("expiry_date", "Expiry date must be a valid date in YYYY-MM-DD format", apperrors.DocumentInvalidDate)
	}
	return &d, nil
}

// validateDocumentFields checks everything but the file reference.
func validateDocumentFields(in CreateDocumentInput) (model.DocumentType, *model.Date, error) {
	if err := validateTitle(in.Title); err != nil {
		return "", nil, err
	}
	docType, err := validateDocumentType(in.Type)
	if err != nil {
		return "", nil, err
	}
	expiry, err := validateExpiryDate(in.ExpiryDate)
	if err != nil {
		return "", nil, err
	}
	return docType, expiry, nil
}

func isComplianceCategory(v string) bool {
	for _, c := range model.ComplianceCategories {
		if string(c) == v {
			return true
		}
	}
	return false
}

func isPriority(v string) bool {
	for _, p := range model.Priorities {
		if string(p) == v {
			return true
		}
	}
	return false
}
