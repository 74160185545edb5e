package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"github.com/bizcomply/compliance-backend/internal/app/repository"
	"github.com/bizcomply/compliance-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	itemsSheet   = "Records"
)

// ReportItem is one record in a compliance report.
type ReportItem struct {
	RecordID      uint                     `json:"record_id"`
	RuleID        uint                     `json:"rule_id"`
	RuleTitle     string                   `json:"rule_title"`
	Category      model.ComplianceCategory `json:"category"`
	Priority      model.Priority           `json:"priority"`
	Status        model.ComplianceStatus   `json:"status"`
	LastCheckDate model.Date               `json:"last_check_date"`
	NextDueDate   *model.Date              `json:"next_due_date,omitempty"`
	Notes         string                   `json:"notes"`
	DocumentID    *uint                    `json:"document_id,omitempty"`
}

// CategoryBreakdown counts records per rule category.
type CategoryBreakdown struct {
	Category       model.ComplianceCategory `json:"category"`
	Total          int                      `json:"total"`
	Compliant      int                      `json:"compliant"`
	ComplianceRate int                      `json:"compliance_rate"`
}

// ComplianceReport summarizes a company's records checked inside a date range.
type ComplianceReport struct {
	CompanyID      uint                           `json:"company_id"`
	FromDate       model.Date                     `json:"from_date"`
	ToDate         model.Date                     `json:"to_date"`
	Category       *model.ComplianceCategory      `json:"category,omitempty"`
	Status         *model.ComplianceStatus        `json:"status,omitempty"`
	GeneratedAt    time.Time                      `json:"generated_at"`
	TotalItems     int                            `json:"total_items"`
	ComplianceRate int                            `json:"compliance_rate"`
	StatusCounts   map[model.ComplianceStatus]int `json:"status_counts"`
	Categories     []CategoryBreakdown            `json:"categories"`
	Items          []ReportItem                   `json:"items"`
}

type ReportService interface {
	Generate(rc RequestContext, in ReportCriteriaInput) (*ComplianceReport, error)
	ExportXLSX(report *ComplianceReport) ([]byte, error)
}

type reportService struct {
	recordRepo repository.ComplianceRecordRepository
	cal        calendar
}

func NewReportService(recordRepo repository.ComplianceRecordRepository, policy Policy) ReportService {
	return &reportService{recordRepo: recordRepo, cal: policy.calendar()}
}

// complianceRate is round(100 * compliant / total), or 0 for no records.
func complianceRate(compliant, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(compliant) / float64(total)))
}

func (s *reportService) Generate(rc RequestContext, in ReportCriteriaInput) (*ComplianceReport, error) {
	criteria, err := ValidateReportCriteria(in)
	if err != nil {
		return nil, err
	}
	criteria.CompanyID = rc.CompanyID

	records, err := s.recordRepo.FindByCompany(criteria.CompanyID, repository.RecordFilter{
		Status:   criteria.Status,
		Category: criteria.Category,
		From:     &criteria.FromDate,
		To:       &criteria.ToDate,
	})
	if err != nil {
		logger.Error("Failed to load records for report", err, map[string]interface{}{
			"company_id": criteria.CompanyID,
		})
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	report := &ComplianceReport{
		CompanyID:    criteria.CompanyID,
		FromDate:     criteria.FromDate,
		ToDate:       criteria.ToDate,
		Category:     criteria.Category,
		Status:       criteria.Status,
		GeneratedAt:  s.cal.now(),
		TotalItems:   len(records),
		StatusCounts: make(map[model.ComplianceStatus]int, len(model.ComplianceStatuses)),
		Items:        make([]ReportItem, 0, len(records)),
	}
	for _, status := range model.ComplianceStatuses {
		report.StatusCounts[status] = 0
	}

	byCategory := make(map[model.ComplianceCategory]*CategoryBreakdown)
	for i := range records {
		record := &records[i]
		report.StatusCounts[record.Status]++

		item := ReportItem{
			RecordID:      record.ID,
			RuleID:        record.RuleID,
			Status:        record.Status,
			LastCheckDate: record.LastCheckDate,
			Notes:         record.Notes,
			DocumentID:    record.DocumentID,
		}
		if record.Rule != nil {
			item.RuleTitle = record.Rule.Title
			item.Category = record.Rule.Category
			item.Priority = record.Rule.Priority
			if due := record.NextDueDate(); !due.IsZero() {
				item.NextDueDate = due.Ptr()
			}
		}
		report.Items = append(report.Items, item)

		b, ok := byCategory[item.Category]
		if !ok {
			b = &CategoryBreakdown{Category: item.Category}
			byCategory[item.Category] = b
		}
		b.Total++
		if record.Status == model.ComplianceStatusCompliant {
			b.Compliant++
		}
	}

	report.ComplianceRate = complianceRate(report.StatusCounts[model.ComplianceStatusCompliant], report.TotalItems)

	report.Categories = make([]CategoryBreakdown, 0, len(byCategory))
	for _, b := range byCategory {
		b.ComplianceRate = complianceRate(b.Compliant, b.Total)
		report.Categories = append(report.Categories, *b)
	}
	sort.Slice(report.Categories, func(i, j int) bool {
		return report.Categories[i].Category < report.Categories[j].Category
	})

	logger.Info("Compliance report generated", map[string]interface{}{
		"company_id":      report.CompanyID,
		"from_date":       report.FromDate.String(),
		"to_date":         report.ToDate.String(),
		"total_items":     report.TotalItems,
		"compliance_rate": report.ComplianceRate,
	})

	return report, nil
}

// ExportXLSX renders the report as a workbook with a summary sheet and one
// row per record.
func (s *reportService) ExportXLSX(report *ComplianceReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return nil, err
	}

	summary := [][]interface{}{
		{"Company ID", report.CompanyID},
		{"From", report.FromDate.String()},
		{"To", report.ToDate.String()},
		{"Generated At", report.GeneratedAt.Format(time.RFC3339)},
		{"Total Items", report.TotalItems},
		{"Compliance Rate (%)", report.ComplianceRate},
		{},
		{"Status", "Count"},
	}
	for _, status := range model.ComplianceStatuses {
		summary = append(summary, []interface{}{string(status), report.StatusCounts[status]})
	}
	summary = append(summary, []interface{}{}, []interface{}{"Category", "Total", "Compliant", "Compliance Rate (%)"})
	for _, b := range report.Categories {
		summary = append(summary, []interface{}{string(b.Category), b.Total, b.Compliant, b.ComplianceRate})
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, err
	}
	rows := [][]interface{}{{
		"Record ID", "Rule", "Category", "Priority", "Status",
		"Last Check", "Next Due", "Notes", "Document ID",
	}}
	for _, item := range report.Items {
		nextDue, docID := "", ""
		if item.NextDueDate != nil {
			nextDue = item.NextDueDate.String()
		}
		if item.DocumentID != nil {
			docID = fmt.Sprint(*item.DocumentID)
		}
		rows = append(rows, []interface{}{
			item.RecordID, item.RuleTitle, string(item.Category), string(item.Priority), string(item.Status),
			item.LastCheckDate.String(), nextDue, item.Notes, docID,
		})
	}
	if err := writeRows(f, itemsSheet, rows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
