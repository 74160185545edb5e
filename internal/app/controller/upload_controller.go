package controller

import (
	"errors"
	"net/http"

	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	"github.com/bizcomply/compliance-backend/internal/middleware"
	"github.com/bizcomply/compliance-backend/internal/storage"
	"github.com/bizcomply/compliance-backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

type UploadController struct {
	storage *storage.S3Storage
}

func NewUploadController(storage *storage.S3Storage) *UploadController {
	return &UploadController{
		storage: storage,
	}
}

type GeneratePresignedURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	Size        int64  `json:"size" binding:"required,gt=0"`
}

// GeneratePresignedURL issues a direct-to-bucket upload URL. The returned key
// is passed as file_ref when the document is created.
// POST /api/v1/upload/presigned-url
func (ctrl *UploadController) GeneratePresignedURL(c *gin.Context) {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	var req GeneratePresignedURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid presigned URL request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	response, err := ctrl.storage.GeneratePresignedUpload(c.Request.Context(), storage.FileMeta{
		CompanyID:    companyID,
		OriginalName: req.Filename,
		ContentType:  req.ContentType,
		Size:         req.Size,
	})
	if err != nil {
		if errors.Is(err, storage.ErrInvalidFileType) || errors.Is(err, storage.ErrFileTooLarge) || errors.Is(err, storage.ErrNoFile) {
			logger.Warn("Rejected presigned upload", map[string]interface{}{
				"filename":     req.Filename,
				"content_type": req.ContentType,
				"size":         req.Size,
			})
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
			return
		}
		logger.Error("Failed to generate presigned URL", err, map[string]interface{}{
			"filename":   req.Filename,
			"company_id": companyID,
		})
		apperrors.InternalError(c, "Failed to generate presigned URL")
		return
	}

	logger.Info("Presigned URL generated successfully", map[string]interface{}{
		"company_id": companyID,
		"key":        response.Key,
	})

	c.JSON(http.StatusOK, response)
}
