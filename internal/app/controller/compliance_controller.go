package controller

import (
	"net/http"

	"github.com/bizcomply/compliance-backend/internal/app/service"
	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	"github.com/gin-gonic/gin"
)

type ComplianceController struct {
	complianceService service.ComplianceService
}

func NewComplianceController(complianceService service.ComplianceService) *ComplianceController {
	return &ComplianceController{complianceService: complianceService}
}

// ==================== Rule catalog ====================

// ValidateRule reports whether a rule payload is acceptable
// POST /api/v1/compliance/rules/validate
func (ctrl *ComplianceController) ValidateRule(c *gin.Context) {
	var req service.RuleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}
	_, err := service.ValidateRule(req)
	c.JSON(http.StatusOK, service.ResultOf(err))
}

// CreateRule adds a rule to the catalog
// POST /api/v1/compliance/rules
func (ctrl *ComplianceController) CreateRule(c *gin.Context) {
	var req service.RuleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	rule, err := ctrl.complianceService.CreateRule(req)
	if err != nil {
		apperrors.RespondError(c, err, "create compliance rule")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}

// ListRules lists the catalog, optionally by ?category=
// GET /api/v1/compliance/rules
func (ctrl *ComplianceController) ListRules(c *gin.Context) {
	rules, err := ctrl.complianceService.ListRules(c.Query("category"))
	if err != nil {
		apperrors.RespondError(c, err, "list compliance rules")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rules})
}

// GetRule returns one rule
// GET /api/v1/compliance/rules/:id
func (ctrl *ComplianceController) GetRule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	rule, err := ctrl.complianceService.GetRule(id)
	if err != nil {
		apperrors.RespondError(c, err, "fetch compliance rule")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

// ==================== Record tracker ====================

// CreateRecord starts tracking a rule for the company
// POST /api/v1/compliance/records
func (ctrl *ComplianceController) CreateRecord(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}

	var req service.CreateRecordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	record, err := ctrl.complianceService.CreateRecord(c.Request.Context(), rc, req)
	if err != nil {
		apperrors.RespondError(c, err, "create compliance record")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"record": record})
}

// ValidateRecordUpdate reports whether an update payload is acceptable today
// POST /api/v1/compliance/records/validate
func (ctrl *ComplianceController) ValidateRecordUpdate(c *gin.Context) {
	var req service.UpdateRecordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}
	c.JSON(http.StatusOK, service.ResultOf(ctrl.complianceService.CheckUpdate(req)))
}

// UpdateRecord records a compliance check
// PUT /api/v1/compliance/records/:id
func (ctrl *ComplianceController) UpdateRecord(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateRecordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	record, err := ctrl.complianceService.UpdateRecord(c.Request.Context(), rc, id, req)
	if err != nil {
		apperrors.RespondError(c, err, "update compliance record")
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": record})
}

// GetRecord returns one record
// GET /api/v1/compliance/records/:id
func (ctrl *ComplianceController) GetRecord(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	record, err := ctrl.complianceService.GetRecord(rc, id)
	if err != nil {
		apperrors.RespondError(c, err, "fetch compliance record")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"record":        record,
		"next_due_date": record.NextDueDate().Ptr(),
	})
}

// ListRecords lists the company's records
// GET /api/v1/compliance/records
func (ctrl *ComplianceController) ListRecords(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}

	var query service.ListRecordsInput
	if err := c.ShouldBindQuery(&query); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid query parameters")
		return
	}

	records, err := ctrl.complianceService.ListRecords(rc, query)
	if err != nil {
		apperrors.RespondError(c, err, "list compliance records")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}

// RecordHistory returns a record with its check trail
// GET /api/v1/compliance/records/:id/history
func (ctrl *ComplianceController) RecordHistory(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	history, err := ctrl.complianceService.History(rc, id)
	if err != nil {
		apperrors.RespondError(c, err, "fetch compliance history")
		return
	}
	c.JSON(http.StatusOK, history)
}
