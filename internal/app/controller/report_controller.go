package controller

import (
	"fmt"
	"net/http"

	"github.com/bizcomply/compliance-backend/internal/app/service"
	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	"github.com/bizcomply/compliance-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportController struct {
	reportService service.ReportService
}

func NewReportController(reportService service.ReportService) *ReportController {
	return &ReportController{reportService: reportService}
}

// GenerateReport builds a compliance report from query criteria. With
// ?format=xlsx the report is returned as a workbook.
// GET /api/v1/reports/compliance
func (ctrl *ReportController) GenerateReport(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}

	var criteria service.ReportCriteriaInput
	if err := c.ShouldBindQuery(&criteria); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid query parameters")
		return
	}

	report, err := ctrl.reportService.Generate(rc, criteria)
	if err != nil {
		apperrors.RespondError(c, err, "generate report")
		return
	}

	if c.Query("format") != "xlsx" {
		c.JSON(http.StatusOK, report)
		return
	}

	data, err := ctrl.reportService.ExportXLSX(report)
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to export report", err)
		apperrors.InternalError(c, "Failed to export report")
		return
	}
	filename := fmt.Sprintf("compliance-report-%s-%s.xlsx", report.FromDate, report.ToDate)
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(http.StatusOK, xlsxContentType, data)
}
