package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bizcomply/compliance-backend/internal/app/service"
	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	"github.com/bizcomply/compliance-backend/internal/middleware"
	"github.com/bizcomply/compliance-backend/internal/storage"
	"github.com/gin-gonic/gin"
)

type DocumentController struct {
	documentService service.DocumentService
	policy          storage.UploadPolicy
}

func NewDocumentController(documentService service.DocumentService, policy storage.UploadPolicy) *DocumentController {
	return &DocumentController{
		documentService: documentService,
		policy:          policy,
	}
}

// CreateDocument registers a document for an already stored file
// POST /api/v1/documents
func (ctrl *DocumentController) CreateDocument(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}

	var req service.CreateDocumentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	doc, err := ctrl.documentService.Create(c.Request.Context(), rc, req)
	if err != nil {
		apperrors.RespondError(c, err, "create document")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": doc.ID, "document": doc})
}

// UploadDocument stores a multipart file and creates its document
// POST /api/v1/documents/upload
func (ctrl *DocumentController) UploadDocument(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	log := middleware.GetLoggerFromContext(c)

	if ctrl.policy.MaxSize > 0 {
		// multipart overhead on top of the file itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ctrl.policy.MaxSize+1<<20)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apperrors.BadRequest(c, apperrors.UploadFileTooLarge, storage.ErrFileTooLarge.Error())
			return
		}
		apperrors.BadRequest(c, apperrors.UploadNoFile, storage.ErrNoFile.Error())
		return
	}

	file, err := header.Open()
	if err != nil {
		log.Error("Failed to open uploaded file", err)
		apperrors.BadRequest(c, apperrors.UploadFailed, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	input := service.CreateDocumentInput{
		Title:      c.PostForm("title"),
		Type:       c.PostForm("type"),
		ExpiryDate: c.PostForm("expiry_date"),
	}
	if raw := c.PostForm("compliance_record_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid compliance record ID")
			return
		}
		recordID := uint(id)
		input.ComplianceRecordID = &recordID
	}

	doc, err := ctrl.documentService.Upload(c.Request.Context(), rc, &service.UploadedFile{
		Reader:      file,
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}, input)
	if err != nil {
		apperrors.RespondError(c, err, "upload document")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": doc.ID, "document": doc})
}

// GetDocument returns one document
// GET /api/v1/documents/:id
func (ctrl *DocumentController) GetDocument(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	doc, err := ctrl.documentService.Get(rc, id)
	if err != nil {
		apperrors.RespondError(c, err, "fetch document")
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc})
}

// ListDocuments lists the company's documents
// GET /api/v1/documents
func (ctrl *DocumentController) ListDocuments(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}

	var query service.ListDocumentsInput
	if err := c.ShouldBindQuery(&query); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid query parameters")
		return
	}

	docs, total, err := ctrl.documentService.List(rc, query)
	if err != nil {
		apperrors.RespondError(c, err, "list documents")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  docs,
		"total": total,
	})
}

// SearchDocuments finds documents by title
// GET /api/v1/documents/search?q=
func (ctrl *DocumentController) SearchDocuments(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}

	docs, err := ctrl.documentService.Search(rc, c.Query("q"))
	if err != nil {
		apperrors.RespondError(c, err, "search documents")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": docs})
}

// ExpiringDocuments lists documents expiring within ?days= (default: configured lookahead)
// GET /api/v1/documents/expiring
func (ctrl *DocumentController) ExpiringDocuments(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}

	docs, err := ctrl.documentService.Expiring(rc, queryInt(c, "days", ctrl.documentService.DefaultLookahead()))
	if err != nil {
		apperrors.RespondError(c, err, "list expiring documents")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": docs})
}

// UpdateDocument applies a partial update
// PATCH /api/v1/documents/:id
func (ctrl *DocumentController) UpdateDocument(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateDocumentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	doc, err := ctrl.documentService.Update(rc, id, req)
	if err != nil {
		apperrors.RespondError(c, err, "update document")
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc})
}

// DeleteDocument removes a document record
// DELETE /api/v1/documents/:id
func (ctrl *DocumentController) DeleteDocument(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.documentService.Delete(rc, id); err != nil {
		apperrors.RespondError(c, err, "delete document")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document deleted successfully"})
}

// DownloadDocument streams the stored file
// GET /api/v1/documents/:id/download
func (ctrl *DocumentController) DownloadDocument(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	file, err := ctrl.documentService.Download(c.Request.Context(), rc, id)
	if err != nil {
		apperrors.RespondError(c, err, "download document")
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+file.Name+"\"")
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
