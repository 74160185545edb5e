package storage

import (
	"path/filepath"
	"strings"
)

var extensionContentTypes = map[string]string{
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// UploadPolicy bounds what may be stored.
type UploadPolicy struct {
	MaxSize           int64
	AllowedExtensions []string
}

// DefaultUploadPolicy allows office documents and images up to 10MB.
func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		MaxSize:           10 * 1024 * 1024,
		AllowedExtensions: []string{"pdf", "doc", "docx", "jpg", "jpeg", "png"},
	}
}

// Validate checks an upload's name and size.
func (p UploadPolicy) Validate(name string, size int64) error {
	if name == "" || size <= 0 {
		return ErrNoFile
	}
	if !p.allowedExtension(name) {
		return ErrInvalidFileType
	}
	if p.MaxSize > 0 && size > p.MaxSize {
		return ErrFileTooLarge
	}
	return nil
}

// ValidateContentType checks a declared MIME type against the allowed extensions.
func (p UploadPolicy) ValidateContentType(contentType string) error {
	contentType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	for _, ext := range p.AllowedExtensions {
		if extensionContentTypes[ext] == contentType {
			return nil
		}
	}
	return ErrInvalidFileType
}

func (p UploadPolicy) allowedExtension(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, allowed := range p.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// ContentTypeFor guesses the MIME type of a file from its extension.
func ContentTypeFor(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ct, ok := extensionContentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
