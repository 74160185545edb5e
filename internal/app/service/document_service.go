package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"github.com/bizcomply/compliance-backend/internal/app/repository"
	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	"github.com/bizcomply/compliance-backend/internal/storage"
	"github.com/bizcomply/compliance-backend/pkg/logger"
	"gorm.io/gorm"
)

// ListDocumentsInput filters a company's documents.
type ListDocumentsInput struct {
	Type     string `form:"type"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// UploadedFile is a file received from a client.
type UploadedFile struct {
	Reader      io.Reader
	Name        string
	ContentType string
	Size        int64
}

// DownloadedFile is a document's stored content.
type DownloadedFile struct {
	Name        string
	ContentType string
	Content     []byte
}

type DocumentService interface {
	Upload(ctx context.Context, rc RequestContext, file *UploadedFile, input CreateDocumentInput) (*model.Document, error)
	Create(ctx context.Context, rc RequestContext, input CreateDocumentInput) (*model.Document, error)
	Get(rc RequestContext, id uint) (*model.Document, error)
	List(rc RequestContext, input ListDocumentsInput) ([]model.Document, int64, error)
	Update(rc RequestContext, id uint, input UpdateDocumentInput) (*model.Document, error)
	Delete(rc RequestContext, id uint) error
	Search(rc RequestContext, query string) ([]model.Document, error)
	Download(ctx context.Context, rc RequestContext, id uint) (*DownloadedFile, error)
	Expiring(rc RequestContext, days int) ([]model.Document, error)
	DefaultLookahead() int
}

type documentService struct {
	docRepo       repository.DocumentRepository
	recordRepo    repository.ComplianceRecordRepository
	files         storage.FileStorage
	cal           calendar
	lookaheadDays int
}

func NewDocumentService(
	docRepo repository.DocumentRepository,
	recordRepo repository.ComplianceRecordRepository,
	files storage.FileStorage,
	policy Policy,
) DocumentService {
	return &documentService{
		docRepo:       docRepo,
		recordRepo:    recordRepo,
		files:         files,
		cal:           policy.calendar(),
		lookaheadDays: policy.lookahead(),
	}
}

func (s *documentService) Upload(ctx context.Context, rc RequestContext, file *UploadedFile, input CreateDocumentInput) (*model.Document, error) {
	if file == nil || file.Reader == nil {
		return nil, uploadError(storage.ErrNoFile)
	}
	// Reject bad metadata before any bytes are written
	if _, _, err := validateDocumentFields(input); err != nil {
		return nil, err
	}

	contentType := file.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = storage.ContentTypeFor(file.Name)
	}

	ref, err := s.files.Store(ctx, file.Reader, storage.FileMeta{
		CompanyID:    rc.CompanyID,
		OriginalName: file.Name,
		ContentType:  contentType,
		Size:         file.Size,
	})
	if err != nil {
		return nil, uploadError(err)
	}

	input.FileRef = ref
	input.OriginalName = file.Name
	input.MimeType = contentType
	input.Size = file.Size

	doc, err := s.Create(ctx, rc, input)
	if err != nil {
		if delErr := s.files.Delete(ctx, ref); delErr != nil {
			logger.Error("Failed to remove orphaned upload", delErr, map[string]interface{}{
				"file_ref": ref,
			})
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) Create(ctx context.Context, rc RequestContext, input CreateDocumentInput) (*model.Document, error) {
	docType, expiry, err := validateDocumentFields(input)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.FileRef) == "" {
		return nil, invalidWithCode("file_ref", "File reference is required", apperrors.DocumentFileMissing)
	}

	exists, err := s.files.Exists(ctx, input.FileRef)
	if err != nil {
		return nil, apperrors.NewDependency("storage", err)
	}
	if !exists {
		return nil, invalidWithCode("file_ref", "Stored file not found", apperrors.DocumentFileMissing)
	}

	if input.ComplianceRecordID != nil {
		if err := s.checkRecord(rc, *input.ComplianceRecordID); err != nil {
			return nil, err
		}
	}

	doc := &model.Document{
		CompanyID:          rc.CompanyID,
		Type:               docType,
		Title:              strings.TrimSpace(input.Title),
		FileRef:            input.FileRef,
		OriginalName:       input.OriginalName,
		MimeType:           input.MimeType,
		Size:               input.Size,
		ExpiryDate:         expiry,
		Status:             model.DocumentStatusActive,
		ComplianceRecordID: input.ComplianceRecordID,
	}
	if rc.UserID != 0 {
		uploader := rc.UserID
		doc.UploadedBy = &uploader
	}

	if err := s.docRepo.Create(doc); err != nil {
		logger.Error("Failed to create document", err, map[string]interface{}{
			"company_id": rc.CompanyID,
		})
		return nil, err
	}

	logger.Info("Document created", map[string]interface{}{
		"document_id": doc.ID,
		"company_id":  rc.CompanyID,
		"type":        doc.Type,
	})
	return doc, nil
}

func (s *documentService) checkRecord(rc RequestContext, recordID uint) error {
	record, err := s.recordRepo.FindByID(recordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return recordNotFound(recordID)
		}
		return err
	}
	if record.CompanyID != rc.CompanyID {
		return recordNotFound(recordID)
	}
	return nil
}

// find loads a document of the caller's company. Documents of other
// companies read as missing.
func (s *documentService) find(rc RequestContext, id uint) (*model.Document, error) {
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

func (s *documentService) Get(rc RequestContext, id uint) (*model.Document, error) {
	doc, err := s.find(rc, id)
	if err != nil {
		return nil, err
	}
	s.refreshStatus(doc)
	return doc, nil
}

func (s *documentService) List(rc RequestContext, input ListDocumentsInput) ([]model.Document, int64, error) {
	filter := repository.DocumentFilter{Today: s.cal.today()}
	if input.Type != "" {
		t, err := validateDocumentType(input.Type)
		if err != nil {
			return nil, 0, err
		}
		filter.Type = &t
	}
	if input.Status != "" {
		st, err := validateDocumentStatus(input.Status)
		if err != nil {
			return nil, 0, err
		}
		filter.Status = &st
	}
	page, pageSize := normalizePage(input.Page, input.PageSize)
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	docs, total, err := s.docRepo.FindByCompany(rc.CompanyID, filter)
	if err != nil {
		return nil, 0, err
	}
	for i := range docs {
		s.refreshStatus(&docs[i])
	}
	return docs, total, nil
}

// Update applies a partial update. Every supplied field is validated before
// anything is written.
func (s *documentService) Update(rc RequestContext, id uint, input UpdateDocumentInput) (*model.Document, error) {
	if input.Title == nil && input.Type == nil && input.ExpiryDate == nil && input.Status == nil {
		return nil, invalid("", "Update data is required")
	}

	doc, err := s.find(rc, id)
	if err != nil {
		return nil, err
	}

	updated := *doc
	if input.Title != nil {
		if err := validateTitle(*input.Title); err != nil {
			return nil, err
		}
		updated.Title = strings.TrimSpace(*input.Title)
	}
	if input.Type != nil {
		t, err := validateDocumentType(*input.Type)
		if err != nil {
			return nil, err
		}
		updated.Type = t
	}
	if input.ExpiryDate != nil {
		expiry, err := validateExpiryDate(*input.ExpiryDate)
		if err != nil {
			return nil, err
		}
		updated.ExpiryDate = expiry
	}
	if input.Status != nil {
		st, err := validateDocumentStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		updated.Status = st
	}

	if err := s.docRepo.Update(&updated); err != nil {
		logger.Error("Failed to update document", err, map[string]interface{}{
			"document_id": id,
		})
		return nil, err
	}
	s.refreshStatus(&updated)
	return &updated, nil
}

// Delete removes the record. The stored file is left to the storage
// lifecycle, so a missing file never fails the delete.
func (s *documentService) Delete(rc RequestContext, id uint) error {
	if _, err := s.find(rc, id); err != nil {
		return err
	}
	removed, err := s.docRepo.Delete(id)
	if err != nil {
		return err
	}
	if removed == 0 {
		return documentNotFound(id)
	}

	logger.Info("Document deleted", map[string]interface{}{
		"document_id": id,
		"company_id":  rc.CompanyID,
	})
	return nil
}

func (s *documentService) Search(rc RequestContext, query string) ([]model.Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("q", "Search query is required")
	}
	docs, err := s.docRepo.Search(rc.CompanyID, query)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		s.refreshStatus(&docs[i])
	}
	return docs, nil
}

func (s *documentService) Download(ctx context.Context, rc RequestContext, id uint) (*DownloadedFile, error) {
	doc, err := s.find(rc, id)
	if err != nil {
		return nil, err
	}

	content, err := s.files.Retrieve(ctx, doc.FileRef)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, &apperrors.NotFoundError{Resource: "file", ID: id, Code: apperrors.DocumentFileMissing}
		}
		return nil, apperrors.NewDependency("storage", err)
	}

	name := doc.OriginalName
	if name == "" {
		name = doc.FileRef[strings.LastIndex(doc.FileRef, "/")+1:]
	}
	contentType := doc.MimeType
	if contentType == "" {
		contentType = storage.ContentTypeFor(name)
	}
	return &DownloadedFile{Name: name, ContentType: contentType, Content: content}, nil
}

// Expiring lists the company's active documents expiring within days of today.
func (s *documentService) Expiring(rc RequestContext, days int) ([]model.Document, error) {
	if days < 0 {
		return nil, invalid("days", "Lookahead days must not be negative")
	}
	today := s.cal.today()
	companyID := rc.CompanyID
	return s.docRepo.FindActiveExpiringBetween(today, today.AddDays(days), &companyID)
}

func (s *documentService) DefaultLookahead() int {
	return s.lookaheadDays
}

func (s *documentService) refreshStatus(doc *model.Document) {
	doc.Status = doc.EffectiveStatus(s.cal.today())
}

func documentNotFound(id uint) error {
	return &apperrors.NotFoundError{Resource: "document", ID: id, Code: apperrors.DocumentNotFound}
}

// uploadError maps storage policy failures onto validation errors.
func uploadError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNoFile):
		return invalidWithCode("file", storage.ErrNoFile.Error(), apperrors.UploadNoFile)
	case errors.Is(err, storage.ErrInvalidFileType):
		return invalidWithCode("file", storage.ErrInvalidFileType.Error(), apperrors.UploadInvalidFileType)
	case errors.Is(err, storage.ErrFileTooLarge):
		return invalidWithCode("file", storage.ErrFileTooLarge.Error(), apperrors.UploadFileTooLarge)
	default:
		return apperrors.NewDependency("storage", err)
	}
}
