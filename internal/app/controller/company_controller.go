package controller

import (
	"net/http"

	"github.com/bizcomply/compliance-backend/internal/app/service"
	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	"github.com/gin-gonic/gin"
)

type CompanyController struct {
	companyService service.CompanyService
}

func NewCompanyController(companyService service.CompanyService) *CompanyController {
	return &CompanyController{companyService: companyService}
}

type UpdateCompanyStatusRequest struct {
	Status string `json:"status"`
}

// GetCompany returns the caller's company
// GET /api/v1/company
func (ctrl *CompanyController) GetCompany(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}

	company, err := ctrl.companyService.GetCompany(rc)
	if err != nil {
		apperrors.RespondError(c, err, "fetch company")
		return
	}
	c.JSON(http.StatusOK, gin.H{"company": company})
}

// UpdateCompany applies a partial update
// PUT /api/v1/company
func (ctrl *CompanyController) UpdateCompany(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}

	var req service.UpdateCompanyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	company, err := ctrl.companyService.UpdateCompany(rc, req)
	if err != nil {
		apperrors.RespondError(c, err, "update company")
		return
	}
	c.JSON(http.StatusOK, gin.H{"company": company})
}

// UpdateStatus changes the company lifecycle status
// PATCH /api/v1/company/status
func (ctrl *CompanyController) UpdateStatus(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}

	var req UpdateCompanyStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	company, err := ctrl.companyService.UpdateStatus(rc, req.Status)
	if err != nil {
		apperrors.RespondError(c, err, "update company status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"company": company})
}

// ValidateRegistration checks a registration payload without creating anything
// POST /api/v1/companies/validate
func (ctrl *CompanyController) ValidateRegistration(c *gin.Context) {
	var req service.RegisterCompanyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}
	c.JSON(http.StatusOK, service.ResultOf(service.ValidateRegistration(req)))
}
