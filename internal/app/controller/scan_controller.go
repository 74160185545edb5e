package controller

import (
	"net/http"

	"github.com/bizcomply/compliance-backend/internal/app/service"
	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	"github.com/bizcomply/compliance-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ScanController exposes the expiry scanner to administrators.
type ScanController struct {
	scanner service.ExpiryScanner
}

func NewScanController(scanner service.ExpiryScanner) *ScanController {
	return &ScanController{scanner: scanner}
}

type runScanRequest struct {
	LookaheadDays *int `json:"lookahead_days"`
}

// PreviewScan lists candidates without notifying anyone
// GET /api/v1/admin/scans/preview?days=30
func (ctrl *ScanController) PreviewScan(c *gin.Context) {
	candidates, err := ctrl.scanner.Scan(queryInt(c, "days", ctrl.scanner.DefaultLookahead()))
	if err != nil {
		apperrors.RespondError(c, err, "preview expiry scan")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  candidates,
		"total": len(candidates),
	})
}

// RunScan scans and notifies. A scan already running elsewhere yields 409.
// POST /api/v1/admin/scans
func (ctrl *ScanController) RunScan(c *gin.Context) {
	var req runScanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
			return
		}
	}

	days := ctrl.scanner.DefaultLookahead()
	if req.LookaheadDays != nil {
		days = *req.LookaheadDays
	}

	report, err := ctrl.scanner.Run(c.Request.Context(), days)
	if err != nil {
		if report != nil {
			middleware.GetLoggerFromContext(c).Warn("Expiry scan finished with delivery failures", map[string]interface{}{
				"failed": report.Failed,
				"error":  err.Error(),
			})
			c.JSON(http.StatusOK, report)
			return
		}
		apperrors.RespondError(c, err, "run expiry scan")
		return
	}
	c.JSON(http.StatusOK, report)
}
