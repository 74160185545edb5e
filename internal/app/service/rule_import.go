package service

import (
	"fmt"
	"io"
	"strings"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"github.com/xuri/excelize/v2"
)

// RuleSheetIssue is a row that was not imported.
type RuleSheetIssue struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// RuleSheet is a parsed rule catalog workbook.
type RuleSheet struct {
	Rules   []model.ComplianceRule
	Skipped []RuleSheetIssue
}

// ReadRuleSheet parses the first sheet of a workbook with the columns
// Title, Description, Category, Priority, Frequency (days). The first row is
// a header. Rows failing rule validation, and repeated titles, are skipped.
func ReadRuleSheet(r io.Reader) (*RuleSheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	sheet := &RuleSheet{}
	seen := make(map[string]bool)
	for i, row := range rows[1:] {
		rowNum := i + 2
		cell := func(col int) string {
			if col < len(row) {
				return strings.TrimSpace(row[col])
			}
			return ""
		}

		input := RuleInput{
			Title:       cell(0),
			Description: cell(1),
			Category:    strings.ToLower(cell(2)),
			Priority:    strings.ToLower(cell(3)),
			Frequency:   Flex(cell(4)),
		}
		if input.Title == "" && input.Category == "" && input.Priority == "" && cell(4) == "" {
			continue
		}

		frequency, err := ValidateRule(input)
		if err != nil {
			sheet.Skipped = append(sheet.Skipped, RuleSheetIssue{Row: rowNum, Reason: err.Error()})
			continue
		}
		key := strings.ToLower(input.Title)
		if seen[key] {
			sheet.Skipped = append(sheet.Skipped, RuleSheetIssue{Row: rowNum, Reason: "duplicate title"})
			continue
		}
		seen[key] = true

		sheet.Rules = append(sheet.Rules, model.ComplianceRule{
			Title:         input.Title,
			Description:   input.Description,
			Category:      model.ComplianceCategory(input.Category),
			Priority:      model.Priority(input.Priority),
			FrequencyDays: frequency,
		})
	}
	return sheet, nil
}
